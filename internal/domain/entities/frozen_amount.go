package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/finboard/walletcore/internal/domain/valueobjects"
)

// FrozenAmount reserves funds out of an account's available balance
// while its parent transaction awaits OTP confirmation. The funds stay
// in the account's balance; only availability shrinks. The row lives
// exactly as long as the transaction's pending phase.
type FrozenAmount struct {
	accountID     uuid.UUID
	transactionID uuid.UUID
	amount        valueobjects.Money
	createdAt     time.Time
	expiresAt     time.Time
}

// NewFrozenAmount creates a reservation expiring with the OTP window.
func NewFrozenAmount(accountID, transactionID uuid.UUID, amount valueobjects.Money, now, expiresAt time.Time) *FrozenAmount {
	return &FrozenAmount{
		accountID:     accountID,
		transactionID: transactionID,
		amount:        amount,
		createdAt:     now.UTC(),
		expiresAt:     expiresAt.UTC(),
	}
}

// ReconstructFrozenAmount hydrates a reservation from stored data.
func ReconstructFrozenAmount(accountID, transactionID uuid.UUID, amount valueobjects.Money, createdAt, expiresAt time.Time) *FrozenAmount {
	return &FrozenAmount{
		accountID:     accountID,
		transactionID: transactionID,
		amount:        amount,
		createdAt:     createdAt,
		expiresAt:     expiresAt,
	}
}

func (f *FrozenAmount) AccountID() uuid.UUID       { return f.accountID }
func (f *FrozenAmount) TransactionID() uuid.UUID   { return f.transactionID }
func (f *FrozenAmount) Amount() valueobjects.Money { return f.amount }
func (f *FrozenAmount) CreatedAt() time.Time       { return f.createdAt }
func (f *FrozenAmount) ExpiresAt() time.Time       { return f.expiresAt }
