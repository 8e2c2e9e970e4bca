// Package entities - WalletTransaction is the append-only audit record
// of one money-movement operation. It is created pending OTP
// confirmation and transitions exactly once into a terminal state.
package entities

import (
	"time"

	"github.com/google/uuid"

	domainerrors "github.com/finboard/walletcore/internal/domain/errors"
	"github.com/finboard/walletcore/internal/domain/valueobjects"
)

// TransferKind is the operation kind of a wallet transaction.
type TransferKind string

const (
	TransferKindSend     TransferKind = "SEND"
	TransferKindWithdraw TransferKind = "WITHDRAW"
	TransferKindDeposit  TransferKind = "DEPOSIT"
	TransferKindClaim    TransferKind = "CLAIM"
)

// IsValid checks whether the kind is one of the four operations.
func (k TransferKind) IsValid() bool {
	switch k {
	case TransferKindSend, TransferKindWithdraw, TransferKindDeposit, TransferKindClaim:
		return true
	default:
		return false
	}
}

// MovesFundsOut reports whether the kind debits the source account.
// Send and Withdraw carry funds out and therefore need an available-
// balance reservation; Deposit and Claim only credit.
func (k TransferKind) MovesFundsOut() bool {
	return k == TransferKindSend || k == TransferKindWithdraw
}

// TransferStatus is the lifecycle state of a wallet transaction.
type TransferStatus string

const (
	TransferStatusPendingOtp TransferStatus = "PENDING_OTP"
	TransferStatusConfirmed  TransferStatus = "CONFIRMED"
	TransferStatusFailed     TransferStatus = "FAILED"
	TransferStatusExpired    TransferStatus = "EXPIRED"
)

// IsValid checks whether the status is a known lifecycle state.
func (s TransferStatus) IsValid() bool {
	switch s {
	case TransferStatusPendingOtp, TransferStatusConfirmed, TransferStatusFailed, TransferStatusExpired:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions may occur.
func (s TransferStatus) IsTerminal() bool {
	return s == TransferStatusConfirmed || s == TransferStatusFailed || s == TransferStatusExpired
}

// WalletTransaction records one requested money movement. Once the
// status is terminal the record is immutable; corrections require a new
// compensating transaction, never an edit.
type WalletTransaction struct {
	id                uuid.UUID
	fromAccountID     uuid.UUID
	toAccountID       *uuid.UUID
	kind              TransferKind
	requestedAmount   valueobjects.Money
	settledAmount     valueobjects.Money
	exchangeRateUsed  string
	description       string
	status            TransferStatus
	otpID             uuid.UUID
	failureReason     string
	createdAt         time.Time
	confirmedAt       *time.Time
}

// NewWalletTransaction creates a transaction in PENDING_OTP.
func NewWalletTransaction(
	fromAccountID uuid.UUID,
	toAccountID *uuid.UUID,
	kind TransferKind,
	requestedAmount, settledAmount valueobjects.Money,
	exchangeRateUsed string,
	description string,
	otpID uuid.UUID,
) (*WalletTransaction, error) {
	if !kind.IsValid() {
		return nil, domainerrors.NewDomainError(
			"INVALID_TRANSFER_KIND", "unknown transfer kind", nil)
	}
	return &WalletTransaction{
		id:               uuid.New(),
		fromAccountID:    fromAccountID,
		toAccountID:      toAccountID,
		kind:             kind,
		requestedAmount:  requestedAmount,
		settledAmount:    settledAmount,
		exchangeRateUsed: exchangeRateUsed,
		description:      description,
		status:           TransferStatusPendingOtp,
		otpID:            otpID,
		createdAt:        time.Now().UTC(),
	}, nil
}

// ReconstructWalletTransaction hydrates a transaction from stored data.
func ReconstructWalletTransaction(
	id, fromAccountID uuid.UUID,
	toAccountID *uuid.UUID,
	kind TransferKind,
	requestedAmount, settledAmount valueobjects.Money,
	exchangeRateUsed, description string,
	status TransferStatus,
	otpID uuid.UUID,
	failureReason string,
	createdAt time.Time,
	confirmedAt *time.Time,
) *WalletTransaction {
	return &WalletTransaction{
		id:               id,
		fromAccountID:    fromAccountID,
		toAccountID:      toAccountID,
		kind:             kind,
		requestedAmount:  requestedAmount,
		settledAmount:    settledAmount,
		exchangeRateUsed: exchangeRateUsed,
		description:      description,
		status:           status,
		otpID:            otpID,
		failureReason:    failureReason,
		createdAt:        createdAt,
		confirmedAt:      confirmedAt,
	}
}

func (t *WalletTransaction) ID() uuid.UUID                         { return t.id }
func (t *WalletTransaction) FromAccountID() uuid.UUID              { return t.fromAccountID }
func (t *WalletTransaction) ToAccountID() *uuid.UUID               { return t.toAccountID }
func (t *WalletTransaction) Kind() TransferKind                    { return t.kind }
func (t *WalletTransaction) RequestedAmount() valueobjects.Money   { return t.requestedAmount }
func (t *WalletTransaction) SettledAmount() valueobjects.Money     { return t.settledAmount }
func (t *WalletTransaction) ExchangeRateUsed() string              { return t.exchangeRateUsed }
func (t *WalletTransaction) Description() string                   { return t.description }
func (t *WalletTransaction) Status() TransferStatus                { return t.status }
func (t *WalletTransaction) OtpID() uuid.UUID                      { return t.otpID }
func (t *WalletTransaction) FailureReason() string                 { return t.failureReason }
func (t *WalletTransaction) CreatedAt() time.Time                  { return t.createdAt }
func (t *WalletTransaction) ConfirmedAt() *time.Time               { return t.confirmedAt }

// IsPending reports whether the transaction still awaits confirmation.
func (t *WalletTransaction) IsPending() bool {
	return t.status == TransferStatusPendingOtp
}

// MarkConfirmed flips the transaction to CONFIRMED. Only a pending
// transaction may be confirmed.
func (t *WalletTransaction) MarkConfirmed(at time.Time) error {
	if t.status.IsTerminal() {
		return domainerrors.ErrTransactionTerminal
	}
	if t.status != TransferStatusPendingOtp {
		return domainerrors.ErrTransactionNotPending
	}
	at = at.UTC()
	t.status = TransferStatusConfirmed
	t.confirmedAt = &at
	return nil
}

// MarkFailed flips the transaction to FAILED with a reason.
func (t *WalletTransaction) MarkFailed(reason string) error {
	if t.status.IsTerminal() {
		return domainerrors.ErrTransactionTerminal
	}
	t.status = TransferStatusFailed
	t.failureReason = reason
	return nil
}

// MarkExpired flips the transaction to EXPIRED. Used when the OTP
// window lapsed without a successful confirmation.
func (t *WalletTransaction) MarkExpired() error {
	if t.status.IsTerminal() {
		return domainerrors.ErrTransactionTerminal
	}
	t.status = TransferStatusExpired
	return nil
}
