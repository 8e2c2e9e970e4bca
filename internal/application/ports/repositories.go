// Package ports defines the interfaces the application layer depends
// on. The infrastructure layer provides the implementations.
package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/finboard/walletcore/internal/domain/entities"
	"github.com/finboard/walletcore/internal/domain/valueobjects"
)

// AccountRepository stores accounts. Balance writes happen only inside
// a unit of work driven by the wallet transaction engine.
type AccountRepository interface {
	// FindByID loads an account.
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Account, error)

	// FindByIDForUpdate loads an account holding a row lock for the
	// remainder of the surrounding transaction. Concurrent reserve and
	// confirm steps serialize on this lock.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Account, error)

	// FindByOwner returns all accounts of one owner.
	FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entities.Account, error)

	// Save persists the account (insert or balance update).
	Save(ctx context.Context, account *entities.Account) error
}

// TransferFilter narrows transaction listings.
type TransferFilter struct {
	AccountID *uuid.UUID
	Kind      *entities.TransferKind
	Status    *entities.TransferStatus
}

// WalletTransactionRepository stores the append-only transaction trail.
type WalletTransactionRepository interface {
	// Save persists the transaction (insert or status transition).
	Save(ctx context.Context, tx *entities.WalletTransaction) error

	// FindByID loads a transaction.
	FindByID(ctx context.Context, id uuid.UUID) (*entities.WalletTransaction, error)

	// FindByIDForUpdate loads a transaction holding a row lock for the
	// remainder of the surrounding transaction. The confirm settle and
	// the reconciliation sweep serialize their status flips on this
	// lock, so neither can overwrite the other's terminal state.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.WalletTransaction, error)

	// FindPendingWithExpiredOtp returns PENDING_OTP transactions whose
	// challenge expiry has passed. Used by the reconciliation sweep.
	FindPendingWithExpiredOtp(ctx context.Context, limit int) ([]*entities.WalletTransaction, error)

	// List returns transactions matching the filter, newest first.
	List(ctx context.Context, filter TransferFilter, offset, limit int) ([]*entities.WalletTransaction, error)

	// SumConfirmedForDay sums the settled amounts of CONFIRMED
	// transactions of an account for one day. Source of truth for
	// counter reconciliation.
	SumConfirmedForDay(ctx context.Context, accountID uuid.UUID, day entities.DayKey, currency valueobjects.Currency) (valueobjects.Money, error)
}

// OtpChallengeRepository stores challenges and performs the atomic
// single-use consumption.
type OtpChallengeRepository interface {
	// Save persists a freshly issued challenge.
	Save(ctx context.Context, challenge *entities.OtpChallenge) error

	// FindByID loads a challenge.
	FindByID(ctx context.Context, id uuid.UUID) (*entities.OtpChallenge, error)

	// ConsumeIfValid sets used_at in a single conditional update keyed
	// on the exact code, used_at IS NULL and expires_at > now. Returns
	// true when the challenge was consumed by this call.
	ConsumeIfValid(ctx context.Context, id uuid.UUID, code string) (bool, error)
}

// FrozenAmountRepository stores pending-phase reservations.
type FrozenAmountRepository interface {
	// Save persists a reservation.
	Save(ctx context.Context, freeze *entities.FrozenAmount) error

	// SumActiveByAccount sums the reservations currently held against
	// an account. Available balance = balance - this sum.
	SumActiveByAccount(ctx context.Context, accountID uuid.UUID, currency valueobjects.Currency) (valueobjects.Money, error)

	// DeleteByTransaction releases the reservation of a transaction.
	// Idempotent: deleting a missing reservation is a no-op.
	DeleteByTransaction(ctx context.Context, transactionID uuid.UUID) error
}

// DailyLimitRepository stores per-account, per-day moved amounts.
type DailyLimitRepository interface {
	// MovedAmount returns the counter value, zero if absent.
	MovedAmount(ctx context.Context, accountID uuid.UUID, day entities.DayKey, currency valueobjects.Currency) (valueobjects.Money, error)

	// Increment adds amount to the counter, creating it if absent.
	Increment(ctx context.Context, accountID uuid.UUID, day entities.DayKey, amount valueobjects.Money) error

	// Set overwrites the counter with a recomputed value.
	Set(ctx context.Context, accountID uuid.UUID, day entities.DayKey, amount valueobjects.Money) error

	// ListForDay returns all counter rows of one day.
	ListForDay(ctx context.Context, day entities.DayKey) ([]*entities.DailyLimitCounter, error)
}
