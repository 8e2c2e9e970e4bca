package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/finboard/walletcore/internal/application/dtos"
	"github.com/finboard/walletcore/internal/domain/entities"
	domainerrors "github.com/finboard/walletcore/internal/domain/errors"
	"github.com/finboard/walletcore/internal/domain/valueobjects"
)

type readAccountRepo struct {
	accounts map[uuid.UUID]*entities.Account
}

func (r *readAccountRepo) FindByID(_ context.Context, id uuid.UUID) (*entities.Account, error) {
	account, ok := r.accounts[id]
	if !ok {
		return nil, domainerrors.ErrEntityNotFound
	}
	return account, nil
}

func (r *readAccountRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Account, error) {
	return r.FindByID(ctx, id)
}

func (r *readAccountRepo) FindByOwner(_ context.Context, ownerID uuid.UUID) ([]*entities.Account, error) {
	var out []*entities.Account
	for _, account := range r.accounts {
		if account.OwnerID() == ownerID {
			out = append(out, account)
		}
	}
	return out, nil
}

func (r *readAccountRepo) Save(_ context.Context, account *entities.Account) error {
	r.accounts[account.ID()] = account
	return nil
}

type readFreezeRepo struct {
	freezes map[uuid.UUID]*entities.FrozenAmount
}

func (r *readFreezeRepo) Save(_ context.Context, freeze *entities.FrozenAmount) error {
	r.freezes[freeze.TransactionID()] = freeze
	return nil
}

func (r *readFreezeRepo) SumActiveByAccount(_ context.Context, accountID uuid.UUID, currency valueobjects.Currency) (valueobjects.Money, error) {
	sum := valueobjects.Zero(currency)
	for _, f := range r.freezes {
		if f.AccountID() != accountID {
			continue
		}
		var err error
		sum, err = sum.Add(f.Amount())
		if err != nil {
			return valueobjects.Money{}, err
		}
	}
	return sum, nil
}

func (r *readFreezeRepo) DeleteByTransaction(_ context.Context, transactionID uuid.UUID) error {
	delete(r.freezes, transactionID)
	return nil
}

type readFixture struct {
	accounts *readAccountRepo
	freezes  *readFreezeRepo
	get      *GetAccountUseCase
}

func newReadFixture() *readFixture {
	f := &readFixture{
		accounts: &readAccountRepo{accounts: make(map[uuid.UUID]*entities.Account)},
		freezes:  &readFreezeRepo{freezes: make(map[uuid.UUID]*entities.FrozenAmount)},
	}
	f.get = NewGetAccountUseCase(f.accounts, f.freezes)
	return f
}

func (f *readFixture) addAccount(t *testing.T, ownerID uuid.UUID, balance string) *entities.Account {
	t.Helper()
	m, err := valueobjects.NewMoney(balance, valueobjects.USD)
	if err != nil {
		t.Fatalf("NewMoney(%q) error: %v", balance, err)
	}
	now := time.Now().UTC()
	account := entities.ReconstructAccount(
		uuid.New(), ownerID, entities.AccountTypePayment,
		m, nil, valueobjects.USD, now, now,
	)
	f.accounts.accounts[account.ID()] = account
	return account
}

func TestGetAccount_AvailableDeductsFrozen(t *testing.T) {
	ctx := context.Background()
	f := newReadFixture()
	owner := uuid.New()
	account := f.addAccount(t, owner, "1000.00")

	frozen, err := valueobjects.NewMoney("250.00", valueobjects.USD)
	if err != nil {
		t.Fatalf("NewMoney error: %v", err)
	}
	now := time.Now().UTC()
	f.freezes.freezes[uuid.New()] = entities.NewFrozenAmount(
		account.ID(), uuid.New(), frozen, now, now.Add(time.Hour),
	)

	result, err := f.get.Execute(ctx, dtos.GetAccountQuery{
		AccountID: account.ID().String(),
		UserID:    owner.String(),
	})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if result.Balance != "1000.00" {
		t.Errorf("balance = %s, want 1000.00", result.Balance)
	}
	if result.AvailableBalance != "750.00" {
		t.Errorf("available = %s, want 750.00", result.AvailableBalance)
	}
}

func TestGetAccount_ForeignOwnerReadsAsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newReadFixture()
	account := f.addAccount(t, uuid.New(), "1000.00")

	_, err := f.get.Execute(ctx, dtos.GetAccountQuery{
		AccountID: account.ID().String(),
		UserID:    uuid.New().String(),
	})
	if !errors.Is(err, domainerrors.ErrEntityNotFound) {
		t.Fatalf("got %v, want ErrEntityNotFound", err)
	}
}

func TestGetAccount_InputErrors(t *testing.T) {
	ctx := context.Background()
	f := newReadFixture()
	owner := uuid.New()
	account := f.addAccount(t, owner, "100.00")

	cases := []struct {
		name  string
		query dtos.GetAccountQuery
	}{
		{"bad account id", dtos.GetAccountQuery{AccountID: "nope", UserID: owner.String()}},
		{"bad user id", dtos.GetAccountQuery{AccountID: account.ID().String(), UserID: "nope"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.get.Execute(ctx, tc.query)
			if !domainerrors.IsValidation(err) {
				t.Errorf("got %v, want validation error", err)
			}
		})
	}
}

func TestGetAccount_UnknownIDIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newReadFixture()

	_, err := f.get.Execute(ctx, dtos.GetAccountQuery{
		AccountID: uuid.New().String(),
		UserID:    uuid.New().String(),
	})
	if !errors.Is(err, domainerrors.ErrEntityNotFound) {
		t.Fatalf("got %v, want ErrEntityNotFound", err)
	}
}
