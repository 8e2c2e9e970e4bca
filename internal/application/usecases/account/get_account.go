// Package account implements the read side of the accounts surface:
// single-account and per-owner listings with available balance.
package account

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/finboard/walletcore/internal/application/dtos"
	"github.com/finboard/walletcore/internal/application/ports"
	domainerrors "github.com/finboard/walletcore/internal/domain/errors"
)

// GetAccountUseCase loads one account with its available balance.
type GetAccountUseCase struct {
	accounts ports.AccountRepository
	freezes  ports.FrozenAmountRepository
}

func NewGetAccountUseCase(accounts ports.AccountRepository, freezes ports.FrozenAmountRepository) *GetAccountUseCase {
	return &GetAccountUseCase{accounts: accounts, freezes: freezes}
}

func (uc *GetAccountUseCase) Execute(ctx context.Context, query dtos.GetAccountQuery) (*dtos.AccountDTO, error) {
	accountID, err := uuid.Parse(query.AccountID)
	if err != nil {
		return nil, domainerrors.ValidationError{Field: "account_id", Message: "invalid account ID format"}
	}
	userID, err := uuid.Parse(query.UserID)
	if err != nil {
		return nil, domainerrors.ValidationError{Field: "user_id", Message: "invalid user ID format"}
	}

	account, err := uc.accounts.FindByID(ctx, accountID)
	if err != nil {
		if domainerrors.IsNotFound(err) {
			return nil, fmt.Errorf("%w: account %s", domainerrors.ErrEntityNotFound, query.AccountID)
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account.OwnerID() != userID {
		// Do not leak whether the account exists for another owner.
		return nil, fmt.Errorf("%w: account %s", domainerrors.ErrEntityNotFound, query.AccountID)
	}

	frozen, err := uc.freezes.SumActiveByAccount(ctx, account.ID(), account.Currency())
	if err != nil {
		return nil, fmt.Errorf("failed to sum frozen amounts: %w", err)
	}

	return dtos.MapAccountToDTO(account, frozen), nil
}
