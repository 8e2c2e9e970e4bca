package entities_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/finboard/walletcore/internal/domain/entities"
	domainerrors "github.com/finboard/walletcore/internal/domain/errors"
	"github.com/finboard/walletcore/internal/domain/valueobjects"
)

func money(t *testing.T, amount string) valueobjects.Money {
	t.Helper()
	m, err := valueobjects.NewMoney(amount, valueobjects.USD)
	if err != nil {
		t.Fatalf("NewMoney(%q) error: %v", amount, err)
	}
	return m
}

func moneyPtr(t *testing.T, amount string) *valueobjects.Money {
	t.Helper()
	m := money(t, amount)
	return &m
}

func TestValidateBalance(t *testing.T) {
	tests := []struct {
		name        string
		accountType entities.AccountType
		proposed    string
		creditLimit string // empty = nil
		wantErr     error
	}{
		// Non-negative family
		{name: "payment positive", accountType: entities.AccountTypePayment, proposed: "100.00"},
		{name: "payment zero", accountType: entities.AccountTypePayment, proposed: "0"},
		{name: "payment negative", accountType: entities.AccountTypePayment, proposed: "-0.01", wantErr: domainerrors.ErrInvariantViolation},
		{name: "saving negative", accountType: entities.AccountTypeSaving, proposed: "-1", wantErr: domainerrors.ErrInvariantViolation},
		{name: "investment negative", accountType: entities.AccountTypeInvestment, proposed: "-1", wantErr: domainerrors.ErrInvariantViolation},
		{name: "lending negative", accountType: entities.AccountTypeLending, proposed: "-1", wantErr: domainerrors.ErrInvariantViolation},

		// Credit card: -limit <= balance <= 0
		{name: "credit card zero", accountType: entities.AccountTypeCreditCard, proposed: "0", creditLimit: "1000"},
		{name: "credit card in range", accountType: entities.AccountTypeCreditCard, proposed: "-200.00", creditLimit: "1000"},
		{name: "credit card at floor", accountType: entities.AccountTypeCreditCard, proposed: "-1000.00", creditLimit: "1000"},
		{name: "credit card below floor", accountType: entities.AccountTypeCreditCard, proposed: "-1000.01", creditLimit: "1000", wantErr: domainerrors.ErrInvariantViolation},
		{name: "credit card positive", accountType: entities.AccountTypeCreditCard, proposed: "0.01", creditLimit: "1000", wantErr: domainerrors.ErrInvariantViolation},
		{name: "credit card without limit", accountType: entities.AccountTypeCreditCard, proposed: "0", wantErr: domainerrors.ErrCreditLimitMissing},

		// Debt: balance <= 0, no floor
		{name: "debt zero", accountType: entities.AccountTypeDebt, proposed: "0"},
		{name: "debt deeply negative", accountType: entities.AccountTypeDebt, proposed: "-1000000.00"},
		{name: "debt positive", accountType: entities.AccountTypeDebt, proposed: "0.01", wantErr: domainerrors.ErrInvariantViolation},

		// Unknown type is a defect, not a pass
		{name: "unknown type", accountType: entities.AccountType("CHECKING"), proposed: "0", wantErr: domainerrors.ErrInvalidAccountType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var limit *valueobjects.Money
			if tt.creditLimit != "" {
				limit = moneyPtr(t, tt.creditLimit)
			}
			err := entities.ValidateBalance(tt.accountType, money(t, tt.proposed), limit)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateBalance() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewAccount(t *testing.T) {
	ownerID := uuid.New()

	account, err := entities.NewAccount(ownerID, entities.AccountTypePayment, valueobjects.USD, nil)
	if err != nil {
		t.Fatalf("NewAccount error: %v", err)
	}
	if !account.Balance().IsZero() {
		t.Errorf("new account balance = %s, want zero", account.Balance())
	}

	if _, err := entities.NewAccount(ownerID, entities.AccountTypeCreditCard, valueobjects.USD, nil); !errors.Is(err, domainerrors.ErrCreditLimitMissing) {
		t.Errorf("credit card without limit: got %v, want ErrCreditLimitMissing", err)
	}
	if _, err := entities.NewAccount(ownerID, entities.AccountType("BOGUS"), valueobjects.USD, nil); !errors.Is(err, domainerrors.ErrInvalidAccountType) {
		t.Errorf("bogus type: got %v, want ErrInvalidAccountType", err)
	}
}

func TestAccount_DebitRejectedLeavesBalance(t *testing.T) {
	account := entities.ReconstructAccount(
		uuid.New(), uuid.New(), entities.AccountTypePayment,
		money(t, "50.00"), nil, valueobjects.USD,
		timeNow(), timeNow(),
	)

	if err := account.Debit(money(t, "50.01")); !errors.Is(err, domainerrors.ErrInvariantViolation) {
		t.Fatalf("overdraw: got %v, want ErrInvariantViolation", err)
	}
	if !account.Balance().Equals(money(t, "50.00")) {
		t.Errorf("rejected debit changed balance: %s", account.Balance())
	}

	if err := account.Debit(money(t, "50.00")); err != nil {
		t.Fatalf("full debit error: %v", err)
	}
	if !account.Balance().IsZero() {
		t.Errorf("balance after full debit = %s, want zero", account.Balance())
	}
}

func TestAccount_CreditCardOverpayRejected(t *testing.T) {
	account := entities.ReconstructAccount(
		uuid.New(), uuid.New(), entities.AccountTypeCreditCard,
		money(t, "-200.00"), moneyPtr(t, "1000.00"), valueobjects.USD,
		timeNow(), timeNow(),
	)

	// Paying more than is owed would push the balance above zero.
	if err := account.Credit(money(t, "200.01")); !errors.Is(err, domainerrors.ErrInvariantViolation) {
		t.Fatalf("overpay: got %v, want ErrInvariantViolation", err)
	}
	if err := account.Credit(money(t, "200.00")); err != nil {
		t.Fatalf("exact payoff error: %v", err)
	}
	if !account.Balance().IsZero() {
		t.Errorf("balance after payoff = %s, want zero", account.Balance())
	}
}

func TestAccount_DebitCapacity(t *testing.T) {
	payment := entities.ReconstructAccount(
		uuid.New(), uuid.New(), entities.AccountTypePayment,
		money(t, "75.00"), nil, valueobjects.USD,
		timeNow(), timeNow(),
	)
	capacity, limited := payment.DebitCapacity()
	if !limited || !capacity.Equals(money(t, "75.00")) {
		t.Errorf("payment capacity = %s (limited=%v), want 75.00 limited", capacity, limited)
	}

	// A credit card with -200 of 1000 can still spend 800.
	card := entities.ReconstructAccount(
		uuid.New(), uuid.New(), entities.AccountTypeCreditCard,
		money(t, "-200.00"), moneyPtr(t, "1000.00"), valueobjects.USD,
		timeNow(), timeNow(),
	)
	capacity, limited = card.DebitCapacity()
	if !limited || !capacity.Equals(money(t, "800.00")) {
		t.Errorf("credit card capacity = %s (limited=%v), want 800.00 limited", capacity, limited)
	}

	debt := entities.ReconstructAccount(
		uuid.New(), uuid.New(), entities.AccountTypeDebt,
		money(t, "-500.00"), nil, valueobjects.USD,
		timeNow(), timeNow(),
	)
	if _, limited = debt.DebitCapacity(); limited {
		t.Error("debt accounts have no capacity floor")
	}
}
