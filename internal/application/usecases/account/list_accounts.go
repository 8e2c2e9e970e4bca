package account

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/finboard/walletcore/internal/application/dtos"
	"github.com/finboard/walletcore/internal/application/ports"
	domainerrors "github.com/finboard/walletcore/internal/domain/errors"
)

// ListAccountsUseCase lists the accounts of one owner, each with its
// available balance.
type ListAccountsUseCase struct {
	accounts ports.AccountRepository
	freezes  ports.FrozenAmountRepository
}

func NewListAccountsUseCase(accounts ports.AccountRepository, freezes ports.FrozenAmountRepository) *ListAccountsUseCase {
	return &ListAccountsUseCase{accounts: accounts, freezes: freezes}
}

func (uc *ListAccountsUseCase) Execute(ctx context.Context, query dtos.ListAccountsQuery) (*dtos.AccountListDTO, error) {
	ownerID, err := uuid.Parse(query.OwnerID)
	if err != nil {
		return nil, domainerrors.ValidationError{Field: "owner_id", Message: "invalid owner ID format"}
	}

	accounts, err := uc.accounts.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	out := make([]*dtos.AccountDTO, 0, len(accounts))
	for _, account := range accounts {
		frozen, err := uc.freezes.SumActiveByAccount(ctx, account.ID(), account.Currency())
		if err != nil {
			return nil, fmt.Errorf("failed to sum frozen amounts: %w", err)
		}
		out = append(out, dtos.MapAccountToDTO(account, frozen))
	}

	return &dtos.AccountListDTO{Accounts: out}, nil
}
