// Package dtos defines the commands, queries and response shapes of the
// application layer. Each operation kind has its own closed command
// type carrying only the fields that kind needs; there is no untyped
// payload anywhere past the HTTP boundary.
package dtos

import "time"

// MaxDescriptionLength bounds the free-text description on every
// request command.
const MaxDescriptionLength = 500

// SendCommand moves funds from one account to another account.
type SendCommand struct {
	UserID        string
	FromAccountID string
	ToAccountID   string
	Amount        string
	Currency      string
	Description   string
}

// WithdrawCommand moves funds out of an account to an external target.
type WithdrawCommand struct {
	UserID        string
	FromAccountID string
	Amount        string
	Currency      string
	Description   string
}

// DepositCommand credits an account from an external source.
type DepositCommand struct {
	UserID        string
	FromAccountID string
	Amount        string
	Currency      string
	Description   string
}

// ClaimCommand credits an account from a package or voucher reference
// rather than a peer account.
type ClaimCommand struct {
	UserID        string
	FromAccountID string
	VoucherRef    string
	Amount        string
	Currency      string
	Description   string
}

// ConfirmTransferCommand confirms a pending transaction with an OTP code.
type ConfirmTransferCommand struct {
	TransactionID string
	Code          string
}

// GetTransferQuery loads one transaction.
type GetTransferQuery struct {
	TransactionID string
}

// ListTransfersQuery lists transactions of an account.
type ListTransfersQuery struct {
	AccountID string
	Status    string
	Offset    int
	Limit     int
}

// TransferRequestedDTO is the response to a successful request step.
type TransferRequestedDTO struct {
	TransactionID string    `json:"transaction_id"`
	Status        string    `json:"status"`
	SettledAmount string    `json:"settled_amount"`
	Currency      string    `json:"currency"`
	OtpExpiresAt  time.Time `json:"otp_expires_at"`
}

// TransferDTO is the full transaction view for the audit trail.
type TransferDTO struct {
	ID               string     `json:"id"`
	FromAccountID    string     `json:"from_account_id"`
	ToAccountID      *string    `json:"to_account_id,omitempty"`
	Kind             string     `json:"kind"`
	RequestedAmount  string     `json:"requested_amount"`
	RequestedCurrency string    `json:"requested_currency"`
	SettledAmount    string     `json:"settled_amount"`
	SettledCurrency  string     `json:"settled_currency"`
	ExchangeRateUsed string     `json:"exchange_rate_used"`
	Description      string     `json:"description,omitempty"`
	Status           string     `json:"status"`
	FailureReason    string     `json:"failure_reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	ConfirmedAt      *time.Time `json:"confirmed_at,omitempty"`
}

// TransferListDTO wraps a page of transactions.
type TransferListDTO struct {
	Transfers []*TransferDTO `json:"transfers"`
	Offset    int            `json:"offset"`
	Limit     int            `json:"limit"`
}
