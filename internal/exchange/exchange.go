// Package exchange converts amounts between currencies over a fixed
// rate table. The table is an explicitly constructed configuration
// object handed to the converter at startup, never a package global.
package exchange

import (
	"github.com/shopspring/decimal"

	domainerrors "github.com/finboard/walletcore/internal/domain/errors"
	"github.com/finboard/walletcore/internal/domain/valueobjects"
)

// RateTable maps a currency code to the number of units of that
// currency per 1 USD. USD itself is implicit with rate 1.
type RateTable map[string]decimal.Decimal

// DefaultRateTable returns the built-in cross rates. Production deploys
// override these from config.
func DefaultRateTable() RateTable {
	return RateTable{
		"USD": decimal.NewFromInt(1),
		"EUR": decimal.RequireFromString("0.92"),
		"GBP": decimal.RequireFromString("0.79"),
		"JPY": decimal.RequireFromString("149.50"),
		"VND": decimal.RequireFromString("24500"),
		"AUD": decimal.RequireFromString("1.52"),
		"CAD": decimal.RequireFromString("1.36"),
	}
}

// Converter performs pure currency conversion. No I/O, no side effects.
type Converter struct {
	rates RateTable
}

// NewConverter builds a converter over the given rate table.
func NewConverter(rates RateTable) *Converter {
	return &Converter{rates: rates}
}

// Rate returns the to-USD cross rate for a currency.
func (c *Converter) Rate(currency valueobjects.Currency) (decimal.Decimal, error) {
	rate, ok := c.rates[currency.Code()]
	if !ok || !rate.IsPositive() {
		return decimal.Decimal{}, domainerrors.ErrUnsupportedCurrency
	}
	return rate, nil
}

// Convert converts an amount from one currency to another: divide by
// the source rate to reach USD, multiply by the target rate, then round
// half-up to two decimal places. Total for every supported pair.
func (c *Converter) Convert(amount valueobjects.Money, to valueobjects.Currency) (valueobjects.Money, error) {
	from := amount.Currency()
	if from.Equals(to) {
		return amount, nil
	}

	fromRate, err := c.Rate(from)
	if err != nil {
		return valueobjects.Money{}, err
	}
	toRate, err := c.Rate(to)
	if err != nil {
		return valueobjects.Money{}, err
	}

	// Intermediate USD value kept at high precision; only the final
	// result is rounded.
	usd := amount.Decimal().DivRound(fromRate, 12)
	converted := usd.Mul(toRate)

	return valueobjects.NewMoneyFromDecimal(converted, to), nil
}

// CrossRate returns the effective from→to rate as a string, recorded on
// the transaction for the audit trail.
func (c *Converter) CrossRate(from, to valueobjects.Currency) (string, error) {
	if from.Equals(to) {
		return "1", nil
	}
	fromRate, err := c.Rate(from)
	if err != nil {
		return "", err
	}
	toRate, err := c.Rate(to)
	if err != nil {
		return "", err
	}
	return toRate.DivRound(fromRate, 12).String(), nil
}
