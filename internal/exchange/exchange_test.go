package exchange_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/finboard/walletcore/internal/domain/errors"
	"github.com/finboard/walletcore/internal/domain/valueobjects"
	"github.com/finboard/walletcore/internal/exchange"
)

func mustMoney(t *testing.T, amount, code string) valueobjects.Money {
	t.Helper()
	m, err := valueobjects.NewMoney(amount, valueobjects.MustNewCurrency(code))
	require.NoError(t, err)
	return m
}

func TestConvert_SameCurrencyIsIdentity(t *testing.T) {
	conv := exchange.NewConverter(exchange.DefaultRateTable())

	amount := mustMoney(t, "123.45", "EUR")
	got, err := conv.Convert(amount, valueobjects.EUR)
	require.NoError(t, err)
	assert.True(t, got.Equals(amount))
}

func TestConvert_ThroughUSD(t *testing.T) {
	rates := exchange.RateTable{
		"USD": decimal.NewFromInt(1),
		"EUR": decimal.RequireFromString("0.92"),
		"JPY": decimal.RequireFromString("149.50"),
	}
	conv := exchange.NewConverter(rates)

	tests := []struct {
		name   string
		amount string
		from   string
		to     string
		want   string
	}{
		{name: "EUR to USD", amount: "92.00", from: "EUR", to: "USD", want: "100.00"},
		{name: "USD to EUR", amount: "100.00", from: "USD", to: "EUR", want: "92.00"},
		{name: "EUR to JPY crosses through USD", amount: "92.00", from: "EUR", to: "JPY", want: "14950.00"},
		{name: "result rounds half-up", amount: "1.00", from: "JPY", to: "USD", want: "0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := conv.Convert(mustMoney(t, tt.amount, tt.from), valueobjects.MustNewCurrency(tt.to))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Decimal().StringFixed(2))
			assert.Equal(t, tt.to, got.Currency().Code())
		})
	}
}

func TestConvert_UnsupportedCurrency(t *testing.T) {
	// A table missing a supported code must fail the conversion rather
	// than silently treating the rate as zero.
	conv := exchange.NewConverter(exchange.RateTable{
		"USD": decimal.NewFromInt(1),
	})

	_, err := conv.Convert(mustMoney(t, "10", "EUR"), valueobjects.USD)
	assert.ErrorIs(t, err, domainerrors.ErrUnsupportedCurrency)

	_, err = conv.Convert(mustMoney(t, "10", "USD"), valueobjects.EUR)
	assert.ErrorIs(t, err, domainerrors.ErrUnsupportedCurrency)
}

func TestConvert_NonPositiveRateRejected(t *testing.T) {
	conv := exchange.NewConverter(exchange.RateTable{
		"USD": decimal.NewFromInt(1),
		"EUR": decimal.Zero,
	})

	_, err := conv.Rate(valueobjects.EUR)
	assert.ErrorIs(t, err, domainerrors.ErrUnsupportedCurrency)
}

func TestCrossRate(t *testing.T) {
	conv := exchange.NewConverter(exchange.DefaultRateTable())

	rate, err := conv.CrossRate(valueobjects.USD, valueobjects.USD)
	require.NoError(t, err)
	assert.Equal(t, "1", rate)

	rate, err = conv.CrossRate(valueobjects.USD, valueobjects.EUR)
	require.NoError(t, err)
	assert.Equal(t, "0.92", rate)
}

func TestConvert_RoundTripDrift(t *testing.T) {
	conv := exchange.NewConverter(exchange.DefaultRateTable())

	// Round-tripping through a rate loses at most one cent to rounding.
	start := mustMoney(t, "100.00", "USD")
	eur, err := conv.Convert(start, valueobjects.EUR)
	require.NoError(t, err)
	back, err := conv.Convert(eur, valueobjects.USD)
	require.NoError(t, err)

	diff := start.Decimal().Sub(back.Decimal()).Abs()
	assert.True(t, diff.LessThanOrEqual(decimal.RequireFromString("0.01")),
		"round trip drifted by %s", diff)
}
