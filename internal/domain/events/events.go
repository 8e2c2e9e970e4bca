// Package events defines domain events raised by the wallet core.
// Events are immutable facts; the notification collaborator consumes
// them asynchronously, so the engine's success path never depends on
// delivery.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/finboard/walletcore/internal/domain/valueobjects"
)

// DomainEvent is the base interface for all domain events.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
}

// BaseEvent holds the fields common to all events.
type BaseEvent struct {
	eventID     uuid.UUID
	eventType   string
	occurredAt  time.Time
	aggregateID uuid.UUID
}

func newBaseEvent(eventType string, aggregateID uuid.UUID) BaseEvent {
	return BaseEvent{
		eventID:     uuid.New(),
		eventType:   eventType,
		occurredAt:  time.Now().UTC(),
		aggregateID: aggregateID,
	}
}

func (e BaseEvent) EventID() uuid.UUID     { return e.eventID }
func (e BaseEvent) EventType() string      { return e.eventType }
func (e BaseEvent) OccurredAt() time.Time  { return e.occurredAt }
func (e BaseEvent) AggregateID() uuid.UUID { return e.aggregateID }

// Event type subjects.
const (
	EventTypeOtpIssued         = "otp.issued"
	EventTypeTransferRequested = "transfer.requested"
	EventTypeTransferConfirmed = "transfer.confirmed"
	EventTypeTransferFailed    = "transfer.failed"
	EventTypeTransferExpired   = "transfer.expired"
)

// OtpIssued carries a freshly issued passcode to the notification
// collaborator for out-of-band delivery. This event is the only place
// the plaintext code leaves the core, and it must never be logged.
type OtpIssued struct {
	BaseEvent
	UserID        uuid.UUID
	TransactionID uuid.UUID
	OperationType string
	Code          string
	ExpiresAt     time.Time
}

// NewOtpIssued creates an otp.issued event.
func NewOtpIssued(challengeID, userID, transactionID uuid.UUID, operationType, code string, expiresAt time.Time) *OtpIssued {
	return &OtpIssued{
		BaseEvent:     newBaseEvent(EventTypeOtpIssued, challengeID),
		UserID:        userID,
		TransactionID: transactionID,
		OperationType: operationType,
		Code:          code,
		ExpiresAt:     expiresAt,
	}
}

// TransferRequested is raised when a transaction enters PENDING_OTP.
type TransferRequested struct {
	BaseEvent
	FromAccountID uuid.UUID
	Kind          string
	SettledAmount valueobjects.Money
}

// NewTransferRequested creates a transfer.requested event.
func NewTransferRequested(transactionID, fromAccountID uuid.UUID, kind string, settledAmount valueobjects.Money) *TransferRequested {
	return &TransferRequested{
		BaseEvent:     newBaseEvent(EventTypeTransferRequested, transactionID),
		FromAccountID: fromAccountID,
		Kind:          kind,
		SettledAmount: settledAmount,
	}
}

// TransferConfirmed is raised when a transaction reaches CONFIRMED.
type TransferConfirmed struct {
	BaseEvent
	FromAccountID uuid.UUID
	Kind          string
	SettledAmount valueobjects.Money
	BalanceAfter  valueobjects.Money
}

// NewTransferConfirmed creates a transfer.confirmed event.
func NewTransferConfirmed(transactionID, fromAccountID uuid.UUID, kind string, settledAmount, balanceAfter valueobjects.Money) *TransferConfirmed {
	return &TransferConfirmed{
		BaseEvent:     newBaseEvent(EventTypeTransferConfirmed, transactionID),
		FromAccountID: fromAccountID,
		Kind:          kind,
		SettledAmount: settledAmount,
		BalanceAfter:  balanceAfter,
	}
}

// TransferFailed is raised when a transaction reaches FAILED.
type TransferFailed struct {
	BaseEvent
	FromAccountID uuid.UUID
	Kind          string
	Reason        string
}

// NewTransferFailed creates a transfer.failed event.
func NewTransferFailed(transactionID, fromAccountID uuid.UUID, kind, reason string) *TransferFailed {
	return &TransferFailed{
		BaseEvent:     newBaseEvent(EventTypeTransferFailed, transactionID),
		FromAccountID: fromAccountID,
		Kind:          kind,
		Reason:        reason,
	}
}

// TransferExpired is raised when the reconciliation sweep or a late
// confirmation attempt expires a pending transaction.
type TransferExpired struct {
	BaseEvent
	FromAccountID uuid.UUID
	Kind          string
}

// NewTransferExpired creates a transfer.expired event.
func NewTransferExpired(transactionID, fromAccountID uuid.UUID, kind string) *TransferExpired {
	return &TransferExpired{
		BaseEvent:     newBaseEvent(EventTypeTransferExpired, transactionID),
		FromAccountID: fromAccountID,
		Kind:          kind,
	}
}
