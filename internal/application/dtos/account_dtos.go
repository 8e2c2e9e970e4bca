package dtos

import "time"

// GetAccountQuery loads one account scoped to its owner.
type GetAccountQuery struct {
	AccountID string
	UserID    string
}

// ListAccountsQuery lists the accounts of an owner.
type ListAccountsQuery struct {
	OwnerID string
}

// AccountDTO is the account view, including the available balance the
// dashboard shows next to the book balance.
type AccountDTO struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"owner_id"`
	Type             string    `json:"type"`
	Balance          string    `json:"balance"`
	AvailableBalance string    `json:"available_balance"`
	CreditLimit      *string   `json:"credit_limit,omitempty"`
	Currency         string    `json:"currency"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AccountListDTO wraps a list of accounts.
type AccountListDTO struct {
	Accounts []*AccountDTO `json:"accounts"`
}
