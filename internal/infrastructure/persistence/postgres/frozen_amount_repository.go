package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finboard/walletcore/internal/application/ports"
	"github.com/finboard/walletcore/internal/domain/entities"
	domainerrors "github.com/finboard/walletcore/internal/domain/errors"
	"github.com/finboard/walletcore/internal/domain/valueobjects"
)

var _ ports.FrozenAmountRepository = (*FrozenAmountRepository)(nil)

// FrozenAmountRepository implements ports.FrozenAmountRepository. One
// row per pending transaction, keyed by transaction_id.
type FrozenAmountRepository struct {
	pool *pgxpool.Pool
}

func NewFrozenAmountRepository(pool *pgxpool.Pool) *FrozenAmountRepository {
	return &FrozenAmountRepository{pool: pool}
}

func (r *FrozenAmountRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// Save persists a reservation.
func (r *FrozenAmountRepository) Save(ctx context.Context, freeze *entities.FrozenAmount) error {
	q := r.getQuerier(ctx)

	query := `
		INSERT INTO frozen_amounts (transaction_id, account_id, amount, currency, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := q.Exec(ctx, query,
		freeze.TransactionID(),
		freeze.AccountID(),
		freeze.Amount().Cents(),
		freeze.Amount().Currency().Code(),
		freeze.CreatedAt(),
		freeze.ExpiresAt(),
	)
	if err != nil {
		if isUniqueViolation(err, "frozen_amounts_pkey") {
			return fmt.Errorf("%w: reservation for transaction %s",
				domainerrors.ErrEntityAlreadyExists, freeze.TransactionID())
		}
		return fmt.Errorf("failed to save frozen amount: %w", err)
	}

	return nil
}

// SumActiveByAccount sums the reservations held against an account.
func (r *FrozenAmountRepository) SumActiveByAccount(ctx context.Context, accountID uuid.UUID, currency valueobjects.Currency) (valueobjects.Money, error) {
	q := r.getQuerier(ctx)

	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM frozen_amounts
		WHERE account_id = $1 AND currency = $2
	`

	var cents int64
	err := q.QueryRow(ctx, query, accountID, currency.Code()).Scan(&cents)
	if err != nil {
		return valueobjects.Money{}, fmt.Errorf("failed to sum frozen amounts: %w", err)
	}

	return valueobjects.NewMoneyFromCents(cents, currency), nil
}

// DeleteByTransaction releases the reservation of a transaction.
// Deleting a missing row is a no-op, so release is idempotent.
func (r *FrozenAmountRepository) DeleteByTransaction(ctx context.Context, transactionID uuid.UUID) error {
	q := r.getQuerier(ctx)

	query := `DELETE FROM frozen_amounts WHERE transaction_id = $1`

	if _, err := q.Exec(ctx, query, transactionID); err != nil {
		return fmt.Errorf("failed to delete frozen amount: %w", err)
	}

	return nil
}
