package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finboard/walletcore/internal/application/ports"
	"github.com/finboard/walletcore/internal/domain/entities"
	domainerrors "github.com/finboard/walletcore/internal/domain/errors"
	"github.com/finboard/walletcore/internal/domain/valueobjects"
)

var _ ports.AccountRepository = (*AccountRepository)(nil)

// AccountRepository implements ports.AccountRepository.
//
// Balance and credit limit are stored as BIGINT minor units. Concurrent
// balance mutations serialize on FindByIDForUpdate row locks rather
// than version columns.
type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const accountColumns = `id, owner_id, account_type, balance, credit_limit, currency, created_at, updated_at`

// FindByID loads an account.
func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Account, error) {
	q := r.getQuerier(ctx)

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	return r.scanAccount(q.QueryRow(ctx, query, id))
}

// FindByIDForUpdate loads an account holding its row lock until the
// surrounding transaction ends. Callers locking more than one account
// must do so in ascending ID order.
func (r *AccountRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Account, error) {
	q := r.getQuerier(ctx)

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	return r.scanAccount(q.QueryRow(ctx, query, id))
}

// FindByOwner returns the owner's accounts, oldest first.
func (r *AccountRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entities.Account, error) {
	q := r.getQuerier(ctx)

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1 ORDER BY created_at ASC`

	rows, err := q.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find accounts by owner: %w", err)
	}
	defer rows.Close()

	var accounts []*entities.Account
	for rows.Next() {
		account, err := r.scanAccountRow(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}

	return accounts, nil
}

// Save upserts the account. Only the balance and updated_at change
// after creation; type, currency and limit are immutable.
func (r *AccountRepository) Save(ctx context.Context, account *entities.Account) error {
	q := r.getQuerier(ctx)

	query := `
		INSERT INTO accounts (id, owner_id, account_type, balance, credit_limit, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			balance = EXCLUDED.balance,
			updated_at = EXCLUDED.updated_at
	`

	var creditLimitCents *int64
	if account.CreditLimit() != nil {
		cents := account.CreditLimit().Cents()
		creditLimitCents = &cents
	}

	_, err := q.Exec(ctx, query,
		account.ID(),
		account.OwnerID(),
		string(account.Type()),
		account.Balance().Cents(),
		creditLimitCents,
		account.Currency().Code(),
		account.CreatedAt(),
		account.UpdatedAt(),
	)
	if err != nil {
		if isCheckViolation(err) {
			return domainerrors.ErrInvariantViolation
		}
		return fmt.Errorf("failed to save account: %w", err)
	}

	return nil
}

func (r *AccountRepository) scanAccount(row pgx.Row) (*entities.Account, error) {
	var (
		id, ownerID          uuid.UUID
		accountTypeStr       string
		balanceCents         int64
		creditLimitCents     *int64
		currencyCode         string
		createdAt, updatedAt time.Time
	)

	err := row.Scan(&id, &ownerID, &accountTypeStr, &balanceCents, &creditLimitCents, &currencyCode, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	return buildAccount(id, ownerID, accountTypeStr, balanceCents, creditLimitCents, currencyCode, createdAt, updatedAt)
}

func (r *AccountRepository) scanAccountRow(rows pgx.Rows) (*entities.Account, error) {
	var (
		id, ownerID          uuid.UUID
		accountTypeStr       string
		balanceCents         int64
		creditLimitCents     *int64
		currencyCode         string
		createdAt, updatedAt time.Time
	)

	err := rows.Scan(&id, &ownerID, &accountTypeStr, &balanceCents, &creditLimitCents, &currencyCode, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan account row: %w", err)
	}

	return buildAccount(id, ownerID, accountTypeStr, balanceCents, creditLimitCents, currencyCode, createdAt, updatedAt)
}

func buildAccount(
	id, ownerID uuid.UUID,
	accountTypeStr string,
	balanceCents int64,
	creditLimitCents *int64,
	currencyCode string,
	createdAt, updatedAt time.Time,
) (*entities.Account, error) {
	currency, err := valueobjects.NewCurrency(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("invalid currency in database: %w", err)
	}

	balance := valueobjects.NewMoneyFromCents(balanceCents, currency)

	var creditLimit *valueobjects.Money
	if creditLimitCents != nil {
		limit := valueobjects.NewMoneyFromCents(*creditLimitCents, currency)
		creditLimit = &limit
	}

	return entities.ReconstructAccount(
		id,
		ownerID,
		entities.AccountType(accountTypeStr),
		balance,
		creditLimit,
		currency,
		createdAt,
		updatedAt,
	), nil
}
