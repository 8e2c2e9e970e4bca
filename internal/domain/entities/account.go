// Package entities - Account is the single-balance ledger entity of the
// dashboard. Each account type carries a balance-sign invariant that is
// enforced on every mutation, never only at creation.
package entities

import (
	"time"

	"github.com/google/uuid"

	domainerrors "github.com/finboard/walletcore/internal/domain/errors"
	"github.com/finboard/walletcore/internal/domain/valueobjects"
)

// AccountType classifies an account and determines its balance invariant.
type AccountType string

const (
	AccountTypePayment    AccountType = "PAYMENT"
	AccountTypeSaving     AccountType = "SAVING"
	AccountTypeCreditCard AccountType = "CREDIT_CARD"
	AccountTypeDebt       AccountType = "DEBT"
	AccountTypeInvestment AccountType = "INVESTMENT"
	AccountTypeLending    AccountType = "LENDING"
)

// IsValid checks whether the account type is one of the known types.
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypePayment, AccountTypeSaving, AccountTypeCreditCard,
		AccountTypeDebt, AccountTypeInvestment, AccountTypeLending:
		return true
	default:
		return false
	}
}

// ValidateBalance decides whether a proposed balance is legal for the
// given account type:
//
//   - Payment, Saving, Investment, Lending: balance >= 0
//   - CreditCard: -limit <= balance <= 0 (limit required)
//   - Debt: balance <= 0
//
// An unknown type is a configuration defect, reported as
// ErrInvalidAccountType rather than accepted silently.
func ValidateBalance(accountType AccountType, proposed valueobjects.Money, creditLimit *valueobjects.Money) error {
	switch accountType {
	case AccountTypePayment, AccountTypeSaving, AccountTypeInvestment, AccountTypeLending:
		if proposed.IsNegative() {
			return domainerrors.ErrInvariantViolation
		}
		return nil

	case AccountTypeCreditCard:
		if creditLimit == nil {
			return domainerrors.ErrCreditLimitMissing
		}
		if proposed.IsPositive() {
			return domainerrors.ErrInvariantViolation
		}
		belowFloor, err := proposed.LessThan(creditLimit.Neg())
		if err != nil {
			return err
		}
		if belowFloor {
			return domainerrors.ErrInvariantViolation
		}
		return nil

	case AccountTypeDebt:
		if proposed.IsPositive() {
			return domainerrors.ErrInvariantViolation
		}
		return nil

	default:
		return domainerrors.ErrInvalidAccountType
	}
}

// Account represents a user's account for a single currency. Balances
// are mutated exclusively by the wallet transaction engine inside an
// atomic unit of work.
type Account struct {
	id          uuid.UUID
	ownerID     uuid.UUID
	accountType AccountType
	balance     valueobjects.Money
	creditLimit *valueobjects.Money
	currency    valueobjects.Currency
	createdAt   time.Time
	updatedAt   time.Time
}

// NewAccount creates an account with a zero balance.
func NewAccount(ownerID uuid.UUID, accountType AccountType, currency valueobjects.Currency, creditLimit *valueobjects.Money) (*Account, error) {
	if !accountType.IsValid() {
		return nil, domainerrors.ErrInvalidAccountType
	}
	if accountType == AccountTypeCreditCard && creditLimit == nil {
		return nil, domainerrors.ErrCreditLimitMissing
	}
	now := time.Now().UTC()
	return &Account{
		id:          uuid.New(),
		ownerID:     ownerID,
		accountType: accountType,
		balance:     valueobjects.Zero(currency),
		creditLimit: creditLimit,
		currency:    currency,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// ReconstructAccount hydrates an Account from stored data.
func ReconstructAccount(
	id, ownerID uuid.UUID,
	accountType AccountType,
	balance valueobjects.Money,
	creditLimit *valueobjects.Money,
	currency valueobjects.Currency,
	createdAt, updatedAt time.Time,
) *Account {
	return &Account{
		id:          id,
		ownerID:     ownerID,
		accountType: accountType,
		balance:     balance,
		creditLimit: creditLimit,
		currency:    currency,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (a *Account) ID() uuid.UUID                       { return a.id }
func (a *Account) OwnerID() uuid.UUID                  { return a.ownerID }
func (a *Account) Type() AccountType                   { return a.accountType }
func (a *Account) Balance() valueobjects.Money         { return a.balance }
func (a *Account) CreditLimit() *valueobjects.Money    { return a.creditLimit }
func (a *Account) Currency() valueobjects.Currency     { return a.currency }
func (a *Account) CreatedAt() time.Time                { return a.createdAt }
func (a *Account) UpdatedAt() time.Time                { return a.updatedAt }

// DebitCapacity returns how much can be debited before the balance hits
// the type invariant's floor, and whether such a floor exists. Debt
// accounts have no floor.
func (a *Account) DebitCapacity() (valueobjects.Money, bool) {
	switch a.accountType {
	case AccountTypeCreditCard:
		if a.creditLimit == nil {
			return valueobjects.Zero(a.currency), true
		}
		capacity, err := a.balance.Add(*a.creditLimit)
		if err != nil {
			return valueobjects.Zero(a.currency), true
		}
		return capacity, true
	case AccountTypeDebt:
		return valueobjects.Zero(a.currency), false
	default:
		return a.balance, true
	}
}

// ProposedBalanceAfterDebit returns the balance this account would hold
// after a debit, without applying it.
func (a *Account) ProposedBalanceAfterDebit(amount valueobjects.Money) (valueobjects.Money, error) {
	return a.balance.Sub(amount)
}

// ProposedBalanceAfterCredit returns the balance this account would
// hold after a credit, without applying it.
func (a *Account) ProposedBalanceAfterCredit(amount valueobjects.Money) (valueobjects.Money, error) {
	return a.balance.Add(amount)
}

// Debit subtracts amount from the balance after checking the type
// invariant against the proposed result. Rejected debits leave the
// balance untouched.
func (a *Account) Debit(amount valueobjects.Money) error {
	proposed, err := a.ProposedBalanceAfterDebit(amount)
	if err != nil {
		return err
	}
	if err := ValidateBalance(a.accountType, proposed, a.creditLimit); err != nil {
		return err
	}
	a.balance = proposed
	a.updatedAt = time.Now().UTC()
	return nil
}

// Credit adds amount to the balance after checking the type invariant
// against the proposed result. A credit can violate an invariant too:
// paying more than is owed onto a credit card would push its balance
// above zero.
func (a *Account) Credit(amount valueobjects.Money) error {
	proposed, err := a.ProposedBalanceAfterCredit(amount)
	if err != nil {
		return err
	}
	if err := ValidateBalance(a.accountType, proposed, a.creditLimit); err != nil {
		return err
	}
	a.balance = proposed
	a.updatedAt = time.Now().UTC()
	return nil
}
