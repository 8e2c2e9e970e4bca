// Package valueobjects - Money combines an amount and a currency so the
// two can never be mixed up. Unlike a plain transfer amount, an account
// balance may legitimately be negative (credit card and debt accounts),
// so Money is signed; positivity of operation amounts is enforced at
// the request boundary, not here.
package valueobjects

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	domainerrors "github.com/finboard/walletcore/internal/domain/errors"
)

// moneyScale is the number of decimal places carried by every Money
// value. All supported currencies settle at two decimals; amounts are
// rounded half-up to this scale on construction and after arithmetic.
const moneyScale = 2

// Money is an immutable signed monetary amount in a single currency.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney parses a decimal string into Money, rounding half-up to two
// decimal places.
func NewMoney(amountStr string, currency Currency) (Money, error) {
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", amountStr, err)
	}
	return Money{amount: amount.Round(moneyScale), currency: currency}, nil
}

// NewMoneyFromDecimal wraps a decimal into Money at the standard scale.
func NewMoneyFromDecimal(amount decimal.Decimal, currency Currency) Money {
	return Money{amount: amount.Round(moneyScale), currency: currency}
}

// NewMoneyFromCents builds Money from the smallest currency unit.
// Preferred when hydrating from storage, which keeps amounts as BIGINT.
func NewMoneyFromCents(cents int64, currency Currency) Money {
	return Money{amount: decimal.New(cents, -moneyScale), currency: currency}
}

// Zero returns a zero amount in the given currency.
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Currency returns the currency of this amount.
func (m Money) Currency() Currency {
	return m.currency
}

// Decimal returns the amount as a decimal.
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// Cents returns the amount in the smallest currency unit. This is the
// storage format.
func (m Money) Cents() int64 {
	return m.amount.Shift(moneyScale).IntPart()
}

// String renders the amount with its currency code, e.g. "100.50 USD".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(moneyScale), m.currency.Code())
}

// Add returns the sum of two amounts of the same currency.
func (m Money) Add(other Money) (Money, error) {
	if !m.currency.Equals(other.currency) {
		return Money{}, domainerrors.ErrCurrencyMismatch
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Sub returns the difference of two amounts of the same currency.
// The result may be negative; whether that is legal for a given account
// type is the invariant validator's call, not Money's.
func (m Money) Sub(other Money) (Money, error) {
	if !m.currency.Equals(other.currency) {
		return Money{}, domainerrors.ErrCurrencyMismatch
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Neg returns the negated amount.
func (m Money) Neg() Money {
	return Money{amount: m.amount.Neg(), currency: m.currency}
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive reports whether the amount is greater than zero.
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative reports whether the amount is less than zero.
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// GreaterThan compares two amounts of the same currency.
func (m Money) GreaterThan(other Money) (bool, error) {
	if !m.currency.Equals(other.currency) {
		return false, domainerrors.ErrCurrencyMismatch
	}
	return m.amount.GreaterThan(other.amount), nil
}

// LessThan compares two amounts of the same currency.
func (m Money) LessThan(other Money) (bool, error) {
	if !m.currency.Equals(other.currency) {
		return false, domainerrors.ErrCurrencyMismatch
	}
	return m.amount.LessThan(other.amount), nil
}

// Equals reports amount and currency equality.
func (m Money) Equals(other Money) bool {
	return m.currency.Equals(other.currency) && m.amount.Equal(other.amount)
}

// MarshalJSON renders the amount as {"amount":"100.50","currency":"USD"}
// so event payloads carry fixed-scale strings, not floats.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	}{
		Amount:   m.amount.StringFixed(moneyScale),
		Currency: m.currency.Code(),
	})
}
