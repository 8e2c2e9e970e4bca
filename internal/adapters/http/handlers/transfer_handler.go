package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finboard/walletcore/internal/adapters/http/common"
	"github.com/finboard/walletcore/internal/application/dtos"
)

// RequestTransferUseCase is the request half of the wallet engine.
type RequestTransferUseCase interface {
	RequestSend(ctx context.Context, cmd dtos.SendCommand) (*dtos.TransferRequestedDTO, error)
	RequestWithdraw(ctx context.Context, cmd dtos.WithdrawCommand) (*dtos.TransferRequestedDTO, error)
	RequestDeposit(ctx context.Context, cmd dtos.DepositCommand) (*dtos.TransferRequestedDTO, error)
	RequestClaim(ctx context.Context, cmd dtos.ClaimCommand) (*dtos.TransferRequestedDTO, error)
}

// ConfirmTransferUseCase is the confirm half of the wallet engine.
type ConfirmTransferUseCase interface {
	Execute(ctx context.Context, cmd dtos.ConfirmTransferCommand) (*dtos.TransferDTO, error)
}

// GetTransferUseCase loads one transaction.
type GetTransferUseCase interface {
	Execute(ctx context.Context, query dtos.GetTransferQuery) (*dtos.TransferDTO, error)
}

// ListTransfersUseCase lists transactions.
type ListTransfersUseCase interface {
	Execute(ctx context.Context, query dtos.ListTransfersQuery) (*dtos.TransferListDTO, error)
}

// TransferHandler serves the money-movement endpoints.
type TransferHandler struct {
	request RequestTransferUseCase
	confirm ConfirmTransferUseCase
	get     GetTransferUseCase
	list    ListTransfersUseCase
}

func NewTransferHandler(
	request RequestTransferUseCase,
	confirm ConfirmTransferUseCase,
	get GetTransferUseCase,
	list ListTransfersUseCase,
) *TransferHandler {
	return &TransferHandler{
		request: request,
		confirm: confirm,
		get:     get,
		list:    list,
	}
}

// SendRequest is the body of POST /transfers/send.
type SendRequest struct {
	UserID        string `json:"user_id" binding:"required,uuid"`
	FromAccountID string `json:"from_account_id" binding:"required,uuid"`
	ToAccountID   string `json:"to_account_id" binding:"required,uuid"`
	Amount        string `json:"amount" binding:"required,money_amount"`
	Currency      string `json:"currency" binding:"required,currency_code"`
	Description   string `json:"description" binding:"omitempty,max=500"`
}

// WithdrawRequest is the body of POST /transfers/withdraw.
type WithdrawRequest struct {
	UserID        string `json:"user_id" binding:"required,uuid"`
	FromAccountID string `json:"from_account_id" binding:"required,uuid"`
	Amount        string `json:"amount" binding:"required,money_amount"`
	Currency      string `json:"currency" binding:"required,currency_code"`
	Description   string `json:"description" binding:"omitempty,max=500"`
}

// DepositRequest is the body of POST /transfers/deposit.
type DepositRequest struct {
	UserID        string `json:"user_id" binding:"required,uuid"`
	FromAccountID string `json:"from_account_id" binding:"required,uuid"`
	Amount        string `json:"amount" binding:"required,money_amount"`
	Currency      string `json:"currency" binding:"required,currency_code"`
	Description   string `json:"description" binding:"omitempty,max=500"`
}

// ClaimRequest is the body of POST /transfers/claim.
type ClaimRequest struct {
	UserID        string `json:"user_id" binding:"required,uuid"`
	FromAccountID string `json:"from_account_id" binding:"required,uuid"`
	VoucherRef    string `json:"voucher_ref" binding:"required,min=1,max=100"`
	Amount        string `json:"amount" binding:"required,money_amount"`
	Currency      string `json:"currency" binding:"required,currency_code"`
	Description   string `json:"description" binding:"omitempty,max=500"`
}

// ConfirmRequest is the body of POST /transfers/:id/confirm.
type ConfirmRequest struct {
	Code string `json:"code" binding:"required,otp_code"`
}

// TransferIDParam is the :id URI parameter.
type TransferIDParam struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// ListTransfersParams are the query parameters of GET /transfers.
type ListTransfersParams struct {
	AccountID string `form:"account_id" binding:"omitempty,uuid"`
	Status    string `form:"status" binding:"omitempty,transfer_status"`
	Offset    int    `form:"offset" binding:"omitempty,min=0"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Send requests an account-to-account transfer.
func (h *TransferHandler) Send(c *gin.Context) {
	var req SendRequest
	if !BindJSON(c, &req) {
		return
	}

	result, err := h.request.RequestSend(c.Request.Context(), dtos.SendCommand{
		UserID:        req.UserID,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Description:   req.Description,
	})
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusAccepted, result)
}

// Withdraw requests a withdrawal to an external target.
func (h *TransferHandler) Withdraw(c *gin.Context) {
	var req WithdrawRequest
	if !BindJSON(c, &req) {
		return
	}

	result, err := h.request.RequestWithdraw(c.Request.Context(), dtos.WithdrawCommand{
		UserID:        req.UserID,
		FromAccountID: req.FromAccountID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Description:   req.Description,
	})
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusAccepted, result)
}

// Deposit requests a credit from an external source.
func (h *TransferHandler) Deposit(c *gin.Context) {
	var req DepositRequest
	if !BindJSON(c, &req) {
		return
	}

	result, err := h.request.RequestDeposit(c.Request.Context(), dtos.DepositCommand{
		UserID:        req.UserID,
		FromAccountID: req.FromAccountID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Description:   req.Description,
	})
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusAccepted, result)
}

// Claim requests a credit from a voucher reference.
func (h *TransferHandler) Claim(c *gin.Context) {
	var req ClaimRequest
	if !BindJSON(c, &req) {
		return
	}

	result, err := h.request.RequestClaim(c.Request.Context(), dtos.ClaimCommand{
		UserID:        req.UserID,
		FromAccountID: req.FromAccountID,
		VoucherRef:    req.VoucherRef,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Description:   req.Description,
	})
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusAccepted, result)
}

// Confirm confirms a pending transaction with its OTP code.
func (h *TransferHandler) Confirm(c *gin.Context) {
	var param TransferIDParam
	if !BindURI(c, &param) {
		return
	}
	var req ConfirmRequest
	if !BindJSON(c, &req) {
		return
	}

	result, err := h.confirm.Execute(c.Request.Context(), dtos.ConfirmTransferCommand{
		TransactionID: param.ID,
		Code:          req.Code,
	})
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}

// GetTransfer returns one transaction.
func (h *TransferHandler) GetTransfer(c *gin.Context) {
	var param TransferIDParam
	if !BindURI(c, &param) {
		return
	}

	result, err := h.get.Execute(c.Request.Context(), dtos.GetTransferQuery{
		TransactionID: param.ID,
	})
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}

// ListTransfers pages through the transaction trail.
func (h *TransferHandler) ListTransfers(c *gin.Context) {
	var params ListTransfersParams
	if !BindQuery(c, &params) {
		return
	}

	result, err := h.list.Execute(c.Request.Context(), dtos.ListTransfersQuery{
		AccountID: params.AccountID,
		Status:    params.Status,
		Offset:    params.Offset,
		Limit:     params.Limit,
	})
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}
