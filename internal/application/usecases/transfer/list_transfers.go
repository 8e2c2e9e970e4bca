package transfer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/finboard/walletcore/internal/application/dtos"
	"github.com/finboard/walletcore/internal/application/ports"
	"github.com/finboard/walletcore/internal/domain/entities"
	domainerrors "github.com/finboard/walletcore/internal/domain/errors"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// ListTransfersUseCase pages through the transaction trail of an account.
type ListTransfersUseCase struct {
	transfers ports.WalletTransactionRepository
}

func NewListTransfersUseCase(transfers ports.WalletTransactionRepository) *ListTransfersUseCase {
	return &ListTransfersUseCase{transfers: transfers}
}

func (uc *ListTransfersUseCase) Execute(ctx context.Context, query dtos.ListTransfersQuery) (*dtos.TransferListDTO, error) {
	filter := ports.TransferFilter{}

	if query.AccountID != "" {
		accountID, err := uuid.Parse(query.AccountID)
		if err != nil {
			return nil, domainerrors.ValidationError{Field: "account_id", Message: "invalid account ID format"}
		}
		filter.AccountID = &accountID
	}

	if query.Status != "" {
		status := entities.TransferStatus(query.Status)
		if !status.IsValid() {
			return nil, domainerrors.ValidationError{Field: "status", Message: "unknown status"}
		}
		filter.Status = &status
	}

	offset := query.Offset
	if offset < 0 {
		offset = 0
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	txs, err := uc.transfers.List(ctx, filter, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return &dtos.TransferListDTO{
		Transfers: dtos.MapTransfersToDTO(txs),
		Offset:    offset,
		Limit:     limit,
	}, nil
}
