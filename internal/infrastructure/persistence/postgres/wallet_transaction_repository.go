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

var _ ports.WalletTransactionRepository = (*WalletTransactionRepository)(nil)

// WalletTransactionRepository implements
// ports.WalletTransactionRepository. Amounts are stored as BIGINT minor
// units alongside their currency codes; the exchange rate used is kept
// verbatim as text for the audit trail.
type WalletTransactionRepository struct {
	pool *pgxpool.Pool
}

func NewWalletTransactionRepository(pool *pgxpool.Pool) *WalletTransactionRepository {
	return &WalletTransactionRepository{pool: pool}
}

func (r *WalletTransactionRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const transactionColumns = `
	id, from_account_id, to_account_id, kind,
	requested_amount, requested_currency,
	settled_amount, settled_currency,
	exchange_rate_used, description, status, otp_id,
	failure_reason, created_at, confirmed_at`

// Save upserts the transaction. After creation only status,
// failure_reason and confirmed_at may change, and only while the stored
// row is still PENDING_OTP: a terminal row is never overwritten, so a
// sweep that lost the race against a confirm cannot flip CONFIRMED to
// EXPIRED. Zero affected rows means the race was lost.
func (r *WalletTransactionRepository) Save(ctx context.Context, tx *entities.WalletTransaction) error {
	q := r.getQuerier(ctx)

	query := `
		INSERT INTO wallet_transactions (
			id, from_account_id, to_account_id, kind,
			requested_amount, requested_currency,
			settled_amount, settled_currency,
			exchange_rate_used, description, status, otp_id,
			failure_reason, created_at, confirmed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			failure_reason = EXCLUDED.failure_reason,
			confirmed_at = EXCLUDED.confirmed_at
		WHERE wallet_transactions.status = 'PENDING_OTP'
	`

	tag, err := q.Exec(ctx, query,
		tx.ID(),
		tx.FromAccountID(),
		tx.ToAccountID(),
		string(tx.Kind()),
		tx.RequestedAmount().Cents(),
		tx.RequestedAmount().Currency().Code(),
		tx.SettledAmount().Cents(),
		tx.SettledAmount().Currency().Code(),
		tx.ExchangeRateUsed(),
		tx.Description(),
		string(tx.Status()),
		tx.OtpID(),
		tx.FailureReason(),
		tx.CreatedAt(),
		tx.ConfirmedAt(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: referenced account", domainerrors.ErrEntityNotFound)
		}
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainerrors.NewConcurrencyError(
			"WalletTransaction", tx.ID().String(), "status is already terminal")
	}

	return nil
}

// FindByID loads a transaction.
func (r *WalletTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.WalletTransaction, error) {
	q := r.getQuerier(ctx)

	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE id = $1`

	return scanTransaction(q.QueryRow(ctx, query, id))
}

// FindByIDForUpdate loads a transaction holding its row lock.
func (r *WalletTransactionRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.WalletTransaction, error) {
	q := r.getQuerier(ctx)

	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE id = $1 FOR UPDATE`

	return scanTransaction(q.QueryRow(ctx, query, id))
}

// FindPendingWithExpiredOtp returns PENDING_OTP transactions whose
// challenge window has lapsed, oldest first, up to limit rows.
func (r *WalletTransactionRepository) FindPendingWithExpiredOtp(ctx context.Context, limit int) ([]*entities.WalletTransaction, error) {
	q := r.getQuerier(ctx)

	query := `
		SELECT ` + transactionColumns + `
		FROM wallet_transactions t
		JOIN otp_challenges o ON o.id = t.otp_id
		WHERE t.status = $1 AND o.expires_at <= now()
		ORDER BY t.created_at ASC
		LIMIT $2
	`

	rows, err := q.Query(ctx, query, string(entities.TransferStatusPendingOtp), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale pending transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// List returns transactions matching the filter, newest first. The
// account filter matches either side of a transfer.
func (r *WalletTransactionRepository) List(ctx context.Context, filter ports.TransferFilter, offset, limit int) ([]*entities.WalletTransaction, error) {
	q := r.getQuerier(ctx)

	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE 1=1`
	args := []any{}
	argNum := 1

	if filter.AccountID != nil {
		query += fmt.Sprintf(" AND (from_account_id = $%d OR to_account_id = $%d)", argNum, argNum)
		args = append(args, *filter.AccountID)
		argNum++
	}
	if filter.Kind != nil {
		query += fmt.Sprintf(" AND kind = $%d", argNum)
		args = append(args, string(*filter.Kind))
		argNum++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(*filter.Status))
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC OFFSET $%d LIMIT $%d", argNum, argNum+1)
	args = append(args, offset, limit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// SumConfirmedForDay sums the settled amounts of an account's CONFIRMED
// transactions for one UTC day.
func (r *WalletTransactionRepository) SumConfirmedForDay(ctx context.Context, accountID uuid.UUID, day entities.DayKey, currency valueobjects.Currency) (valueobjects.Money, error) {
	q := r.getQuerier(ctx)

	query := `
		SELECT COALESCE(SUM(settled_amount), 0)
		FROM wallet_transactions
		WHERE from_account_id = $1
		  AND status = $2
		  AND settled_currency = $3
		  AND (confirmed_at AT TIME ZONE 'UTC')::date = $4::date
	`

	var cents int64
	err := q.QueryRow(ctx, query, accountID, string(entities.TransferStatusConfirmed), currency.Code(), string(day)).Scan(&cents)
	if err != nil {
		return valueobjects.Money{}, fmt.Errorf("failed to sum confirmed transactions: %w", err)
	}

	return valueobjects.NewMoneyFromCents(cents, currency), nil
}

func scanTransaction(row pgx.Row) (*entities.WalletTransaction, error) {
	var s transactionScan
	err := row.Scan(s.targets()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return s.build()
}

func scanTransactions(rows pgx.Rows) ([]*entities.WalletTransaction, error) {
	var txs []*entities.WalletTransaction

	for rows.Next() {
		var s transactionScan
		if err := rows.Scan(s.targets()...); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		tx, err := s.build()
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return txs, nil
}

// transactionScan is the flat row shape shared by all transaction
// queries.
type transactionScan struct {
	id, fromAccountID      uuid.UUID
	toAccountID            *uuid.UUID
	kind                   string
	requestedCents         int64
	requestedCurrency      string
	settledCents           int64
	settledCurrency        string
	exchangeRateUsed       string
	description            string
	status                 string
	otpID                  uuid.UUID
	failureReason          string
	createdAt              time.Time
	confirmedAt            *time.Time
}

func (s *transactionScan) targets() []any {
	return []any{
		&s.id, &s.fromAccountID, &s.toAccountID, &s.kind,
		&s.requestedCents, &s.requestedCurrency,
		&s.settledCents, &s.settledCurrency,
		&s.exchangeRateUsed, &s.description, &s.status, &s.otpID,
		&s.failureReason, &s.createdAt, &s.confirmedAt,
	}
}

func (s *transactionScan) build() (*entities.WalletTransaction, error) {
	requestedCurrency, err := valueobjects.NewCurrency(s.requestedCurrency)
	if err != nil {
		return nil, fmt.Errorf("invalid currency in database: %w", err)
	}
	settledCurrency, err := valueobjects.NewCurrency(s.settledCurrency)
	if err != nil {
		return nil, fmt.Errorf("invalid currency in database: %w", err)
	}

	return entities.ReconstructWalletTransaction(
		s.id,
		s.fromAccountID,
		s.toAccountID,
		entities.TransferKind(s.kind),
		valueobjects.NewMoneyFromCents(s.requestedCents, requestedCurrency),
		valueobjects.NewMoneyFromCents(s.settledCents, settledCurrency),
		s.exchangeRateUsed,
		s.description,
		entities.TransferStatus(s.status),
		s.otpID,
		s.failureReason,
		s.createdAt,
		s.confirmedAt,
	), nil
}
