package dtos

import (
	"github.com/finboard/walletcore/internal/domain/entities"
	"github.com/finboard/walletcore/internal/domain/valueobjects"
)

// MapTransferToDTO converts a wallet transaction entity to its DTO.
func MapTransferToDTO(tx *entities.WalletTransaction) *TransferDTO {
	if tx == nil {
		return nil
	}

	var toAccountID *string
	if tx.ToAccountID() != nil {
		s := tx.ToAccountID().String()
		toAccountID = &s
	}

	return &TransferDTO{
		ID:                tx.ID().String(),
		FromAccountID:     tx.FromAccountID().String(),
		ToAccountID:       toAccountID,
		Kind:              string(tx.Kind()),
		RequestedAmount:   tx.RequestedAmount().Decimal().StringFixed(2),
		RequestedCurrency: tx.RequestedAmount().Currency().Code(),
		SettledAmount:     tx.SettledAmount().Decimal().StringFixed(2),
		SettledCurrency:   tx.SettledAmount().Currency().Code(),
		ExchangeRateUsed:  tx.ExchangeRateUsed(),
		Description:       tx.Description(),
		Status:            string(tx.Status()),
		FailureReason:     tx.FailureReason(),
		CreatedAt:         tx.CreatedAt(),
		ConfirmedAt:       tx.ConfirmedAt(),
	}
}

// MapTransfersToDTO converts a slice of transactions.
func MapTransfersToDTO(txs []*entities.WalletTransaction) []*TransferDTO {
	out := make([]*TransferDTO, 0, len(txs))
	for _, tx := range txs {
		out = append(out, MapTransferToDTO(tx))
	}
	return out
}

// MapAccountToDTO converts an account entity to its DTO. The caller
// supplies the frozen sum so the DTO can expose available balance.
func MapAccountToDTO(account *entities.Account, frozen valueobjects.Money) *AccountDTO {
	if account == nil {
		return nil
	}

	available, err := account.Balance().Sub(frozen)
	if err != nil {
		// Frozen sum in a different currency is a storage defect;
		// surface the book balance rather than fail a read.
		available = account.Balance()
	}

	var creditLimit *string
	if account.CreditLimit() != nil {
		s := account.CreditLimit().Decimal().StringFixed(2)
		creditLimit = &s
	}

	return &AccountDTO{
		ID:               account.ID().String(),
		OwnerID:          account.OwnerID().String(),
		Type:             string(account.Type()),
		Balance:          account.Balance().Decimal().StringFixed(2),
		AvailableBalance: available.Decimal().StringFixed(2),
		CreditLimit:      creditLimit,
		Currency:         account.Currency().Code(),
		CreatedAt:        account.CreatedAt(),
		UpdatedAt:        account.UpdatedAt(),
	}
}
