package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finboard/walletcore/internal/adapters/http/common"
	"github.com/finboard/walletcore/internal/application/dtos"
)

// GetAccountUseCase loads one account.
type GetAccountUseCase interface {
	Execute(ctx context.Context, query dtos.GetAccountQuery) (*dtos.AccountDTO, error)
}

// ListAccountsUseCase lists an owner's accounts.
type ListAccountsUseCase interface {
	Execute(ctx context.Context, query dtos.ListAccountsQuery) (*dtos.AccountListDTO, error)
}

// AccountHandler serves the account read endpoints.
type AccountHandler struct {
	get  GetAccountUseCase
	list ListAccountsUseCase
}

func NewAccountHandler(get GetAccountUseCase, list ListAccountsUseCase) *AccountHandler {
	return &AccountHandler{get: get, list: list}
}

// AccountIDParam is the :id URI parameter.
type AccountIDParam struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// GetAccountParams are the query parameters of GET /accounts/:id.
type GetAccountParams struct {
	UserID string `form:"user_id" binding:"required,uuid"`
}

// ListAccountsParams are the query parameters of GET /accounts.
type ListAccountsParams struct {
	OwnerID string `form:"owner_id" binding:"required,uuid"`
}

// GetAccount returns one account with its available balance. Accounts
// of other owners read as not found.
func (h *AccountHandler) GetAccount(c *gin.Context) {
	var param AccountIDParam
	if !BindURI(c, &param) {
		return
	}
	var params GetAccountParams
	if !BindQuery(c, &params) {
		return
	}

	result, err := h.get.Execute(c.Request.Context(), dtos.GetAccountQuery{
		AccountID: param.ID,
		UserID:    params.UserID,
	})
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}

// ListAccounts returns the accounts of one owner.
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	var params ListAccountsParams
	if !BindQuery(c, &params) {
		return
	}

	result, err := h.list.Execute(c.Request.Context(), dtos.ListAccountsQuery{
		OwnerID: params.OwnerID,
	})
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}
