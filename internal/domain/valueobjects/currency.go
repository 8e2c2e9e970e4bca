// Package valueobjects contains immutable value objects compared by
// value, not identity. Invalid instances cannot be constructed.
package valueobjects

import (
	"strings"

	domainerrors "github.com/finboard/walletcore/internal/domain/errors"
)

// Currency is an ISO 4217 currency code.
type Currency struct {
	code string
}

// Predefined supported currencies.
var (
	USD = Currency{code: "USD"}
	EUR = Currency{code: "EUR"}
	GBP = Currency{code: "GBP"}
	JPY = Currency{code: "JPY"}
	VND = Currency{code: "VND"}
	AUD = Currency{code: "AUD"}
	CAD = Currency{code: "CAD"}
)

// supportedCurrencies is the whitelist of codes the dashboard accepts.
// The exchange rate table in config must cover every code listed here.
var supportedCurrencies = map[string]bool{
	"USD": true,
	"EUR": true,
	"GBP": true,
	"JPY": true,
	"VND": true,
	"AUD": true,
	"CAD": true,
}

// NewCurrency validates and normalizes a currency code.
func NewCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !supportedCurrencies[code] {
		return Currency{}, domainerrors.ErrUnsupportedCurrency
	}
	return Currency{code: code}, nil
}

// MustNewCurrency panics on an unsupported code. Init-time use only.
func MustNewCurrency(code string) Currency {
	c, err := NewCurrency(code)
	if err != nil {
		panic(err)
	}
	return c
}

// SupportedCodes returns all accepted currency codes.
func SupportedCodes() []string {
	codes := make([]string, 0, len(supportedCurrencies))
	for code := range supportedCurrencies {
		codes = append(codes, code)
	}
	return codes
}

// Code returns the ISO 4217 code.
func (c Currency) Code() string {
	return c.code
}

// Equals compares two currencies by code.
func (c Currency) Equals(other Currency) bool {
	return c.code == other.code
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return c.code
}

// IsZero reports whether the currency is uninitialized.
func (c Currency) IsZero() bool {
	return c.code == ""
}
