package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finboard/walletcore/internal/application/ports"
	"github.com/finboard/walletcore/internal/domain/entities"
	"github.com/finboard/walletcore/internal/domain/valueobjects"
)

var _ ports.DailyLimitRepository = (*DailyLimitRepository)(nil)

// DailyLimitRepository implements ports.DailyLimitRepository. One row
// per account per UTC day; increments are atomic upserts so concurrent
// confirms never lose an addition.
type DailyLimitRepository struct {
	pool *pgxpool.Pool
}

func NewDailyLimitRepository(pool *pgxpool.Pool) *DailyLimitRepository {
	return &DailyLimitRepository{pool: pool}
}

func (r *DailyLimitRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// MovedAmount returns the counter value, zero when no row exists yet.
func (r *DailyLimitRepository) MovedAmount(ctx context.Context, accountID uuid.UUID, day entities.DayKey, currency valueobjects.Currency) (valueobjects.Money, error) {
	q := r.getQuerier(ctx)

	query := `SELECT moved_amount FROM daily_limit_counters WHERE account_id = $1 AND day = $2`

	var cents int64
	err := q.QueryRow(ctx, query, accountID, string(day)).Scan(&cents)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return valueobjects.Zero(currency), nil
		}
		return valueobjects.Money{}, fmt.Errorf("failed to read daily counter: %w", err)
	}

	return valueobjects.NewMoneyFromCents(cents, currency), nil
}

// Increment adds amount to the counter, creating the row if absent.
func (r *DailyLimitRepository) Increment(ctx context.Context, accountID uuid.UUID, day entities.DayKey, amount valueobjects.Money) error {
	q := r.getQuerier(ctx)

	query := `
		INSERT INTO daily_limit_counters (account_id, day, moved_amount, currency)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id, day) DO UPDATE SET
			moved_amount = daily_limit_counters.moved_amount + EXCLUDED.moved_amount
	`

	_, err := q.Exec(ctx, query, accountID, string(day), amount.Cents(), amount.Currency().Code())
	if err != nil {
		return fmt.Errorf("failed to increment daily counter: %w", err)
	}

	return nil
}

// Set overwrites the counter with a recomputed value.
func (r *DailyLimitRepository) Set(ctx context.Context, accountID uuid.UUID, day entities.DayKey, amount valueobjects.Money) error {
	q := r.getQuerier(ctx)

	query := `
		INSERT INTO daily_limit_counters (account_id, day, moved_amount, currency)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id, day) DO UPDATE SET
			moved_amount = EXCLUDED.moved_amount
	`

	_, err := q.Exec(ctx, query, accountID, string(day), amount.Cents(), amount.Currency().Code())
	if err != nil {
		return fmt.Errorf("failed to set daily counter: %w", err)
	}

	return nil
}

// ListForDay returns all counter rows of one day.
func (r *DailyLimitRepository) ListForDay(ctx context.Context, day entities.DayKey) ([]*entities.DailyLimitCounter, error) {
	q := r.getQuerier(ctx)

	query := `SELECT account_id, day, moved_amount, currency FROM daily_limit_counters WHERE day = $1`

	rows, err := q.Query(ctx, query, string(day))
	if err != nil {
		return nil, fmt.Errorf("failed to list daily counters: %w", err)
	}
	defer rows.Close()

	var counters []*entities.DailyLimitCounter
	for rows.Next() {
		var (
			accountID    uuid.UUID
			dayStr       string
			cents        int64
			currencyCode string
		)
		if err := rows.Scan(&accountID, &dayStr, &cents, &currencyCode); err != nil {
			return nil, fmt.Errorf("failed to scan daily counter row: %w", err)
		}
		currency, err := valueobjects.NewCurrency(currencyCode)
		if err != nil {
			return nil, fmt.Errorf("invalid currency in database: %w", err)
		}
		counters = append(counters, entities.NewDailyLimitCounter(
			accountID,
			entities.DayKey(dayStr),
			valueobjects.NewMoneyFromCents(cents, currency),
		))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily counter rows: %w", err)
	}

	return counters, nil
}
