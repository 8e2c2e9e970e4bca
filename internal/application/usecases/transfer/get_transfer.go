package transfer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/finboard/walletcore/internal/application/dtos"
	"github.com/finboard/walletcore/internal/application/ports"
	domainerrors "github.com/finboard/walletcore/internal/domain/errors"
)

// GetTransferUseCase loads one transaction for the audit trail.
type GetTransferUseCase struct {
	transfers ports.WalletTransactionRepository
}

func NewGetTransferUseCase(transfers ports.WalletTransactionRepository) *GetTransferUseCase {
	return &GetTransferUseCase{transfers: transfers}
}

func (uc *GetTransferUseCase) Execute(ctx context.Context, query dtos.GetTransferQuery) (*dtos.TransferDTO, error) {
	transactionID, err := uuid.Parse(query.TransactionID)
	if err != nil {
		return nil, domainerrors.ValidationError{Field: "transaction_id", Message: "invalid transaction ID format"}
	}

	tx, err := uc.transfers.FindByID(ctx, transactionID)
	if err != nil {
		if domainerrors.IsNotFound(err) {
			return nil, fmt.Errorf("%w: transaction %s", domainerrors.ErrEntityNotFound, query.TransactionID)
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}

	return dtos.MapTransferToDTO(tx), nil
}
