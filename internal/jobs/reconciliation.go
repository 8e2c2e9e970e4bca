// Package jobs holds the background reconciliation sweep that keeps the
// pending-transaction set and the daily counters consistent with the
// transaction trail.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/finboard/walletcore/internal/application/ports"
	"github.com/finboard/walletcore/internal/application/usecases/limits"
	"github.com/finboard/walletcore/internal/domain/entities"
	"github.com/finboard/walletcore/internal/domain/events"
)

const defaultBatchSize = 100

// ReconciliationJob periodically expires stale PENDING_OTP transactions
// and recomputes the daily moved-amount counters from the confirmed
// transaction trail. Every pass is idempotent; rerunning over already
// reconciled rows changes nothing.
type ReconciliationJob struct {
	transfers ports.WalletTransactionRepository
	accounts  ports.AccountRepository
	counters  ports.DailyLimitRepository
	limiter   *limits.Manager
	publisher ports.EventPublisher
	uow       ports.UnitOfWork
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	stopCh    chan struct{}
	now       func() time.Time
}

// NewReconciliationJob wires the sweep. A non-positive interval falls
// back to one minute.
func NewReconciliationJob(
	transfers ports.WalletTransactionRepository,
	accounts ports.AccountRepository,
	counters ports.DailyLimitRepository,
	limiter *limits.Manager,
	publisher ports.EventPublisher,
	uow ports.UnitOfWork,
	logger *slog.Logger,
	interval time.Duration,
) *ReconciliationJob {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReconciliationJob{
		transfers: transfers,
		accounts:  accounts,
		counters:  counters,
		limiter:   limiter,
		publisher: publisher,
		uow:       uow,
		logger:    logger,
		interval:  interval,
		batchSize: defaultBatchSize,
		stopCh:    make(chan struct{}),
		now:       time.Now,
	}
}

// SetBatchSize overrides the per-pass row limit. Non-positive values
// are ignored.
func (j *ReconciliationJob) SetBatchSize(n int) {
	if n > 0 {
		j.batchSize = n
	}
}

// Start runs the sweep loop until the context is cancelled or Stop is
// called. Intended to run in its own goroutine.
func (j *ReconciliationJob) Start(ctx context.Context) {
	j.logger.Info("reconciliation job started", slog.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("reconciliation job stopped", slog.String("reason", "context cancelled"))
			return
		case <-j.stopCh:
			j.logger.Info("reconciliation job stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// Stop signals the loop to exit.
func (j *ReconciliationJob) Stop() {
	close(j.stopCh)
}

// RunOnce executes a single sweep pass: first the expiry of stale
// pending transactions, then the counter recomputation for the current
// day. A failure in one phase does not block the other.
func (j *ReconciliationJob) RunOnce(ctx context.Context) {
	if err := j.expireStalePending(ctx); err != nil {
		j.logger.Error("expiry sweep failed", slog.String("error", err.Error()))
	}
	if err := j.recomputeDailyCounters(ctx); err != nil {
		j.logger.Error("counter reconciliation failed", slog.String("error", err.Error()))
	}
}

// expireStalePending flips PENDING_OTP transactions with a lapsed OTP
// window to EXPIRED and releases their freezes. Each row is its own
// unit of work so one poisoned row cannot stall the sweep.
func (j *ReconciliationJob) expireStalePending(ctx context.Context) error {
	stale, err := j.transfers.FindPendingWithExpiredOtp(ctx, j.batchSize)
	if err != nil {
		return fmt.Errorf("failed to load stale pending transactions: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	expired := 0
	var published []events.DomainEvent

	for _, tx := range stale {
		transactionID := tx.ID()
		err := j.uow.Execute(ctx, func(txCtx context.Context) error {
			// Lock the row so a confirm committing concurrently cannot
			// have its terminal status overwritten.
			tx, err := j.transfers.FindByIDForUpdate(txCtx, transactionID)
			if err != nil {
				return fmt.Errorf("failed to reload transaction: %w", err)
			}
			if !tx.IsPending() {
				// A concurrent confirm or a previous sweep already
				// settled it.
				return nil
			}
			if err := tx.MarkExpired(); err != nil {
				return err
			}
			if err := j.limiter.Release(txCtx, tx.ID()); err != nil {
				return err
			}
			if err := j.transfers.Save(txCtx, tx); err != nil {
				return fmt.Errorf("failed to save expired transaction: %w", err)
			}
			expired++
			published = append(published,
				events.NewTransferExpired(tx.ID(), tx.FromAccountID(), string(tx.Kind())))
			return nil
		})
		if err != nil {
			j.logger.Error("failed to expire stale transaction",
				slog.String("transaction_id", transactionID.String()),
				slog.String("error", err.Error()))
			continue
		}
	}

	if expired > 0 {
		j.logger.Info("expired stale pending transactions", slog.Int("count", expired))
		if err := j.publisher.PublishBatch(ctx, published); err != nil {
			j.logger.Warn("failed to publish transfer.expired events", slog.String("error", err.Error()))
		}
	}
	return nil
}

// recomputeDailyCounters re-derives every counter row of the current
// UTC day from the confirmed transaction trail and overwrites rows that
// drifted. Confirm increments and this recomputation converge on the
// same value, so repeated passes are no-ops.
func (j *ReconciliationJob) recomputeDailyCounters(ctx context.Context) error {
	day := entities.DayKeyFor(j.now())

	rows, err := j.counters.ListForDay(ctx, day)
	if err != nil {
		return fmt.Errorf("failed to list counters for %s: %w", day, err)
	}

	fixed := 0
	for _, row := range rows {
		accountID := row.AccountID()
		err := j.uow.Execute(ctx, func(txCtx context.Context) error {
			account, err := j.accounts.FindByID(txCtx, accountID)
			if err != nil {
				return fmt.Errorf("failed to load account: %w", err)
			}
			actual, err := j.transfers.SumConfirmedForDay(txCtx, accountID, day, account.Currency())
			if err != nil {
				return fmt.Errorf("failed to sum confirmed transactions: %w", err)
			}
			if row.MovedAmount().Equals(actual) {
				return nil
			}
			j.logger.Warn("daily counter drift detected",
				slog.String("account_id", accountID.String()),
				slog.String("day", string(day)),
				slog.String("counter", row.MovedAmount().Decimal().StringFixed(2)),
				slog.String("actual", actual.Decimal().StringFixed(2)))
			fixed++
			return j.counters.Set(txCtx, accountID, day, actual)
		})
		if err != nil {
			j.logger.Error("failed to reconcile daily counter",
				slog.String("account_id", accountID.String()),
				slog.String("error", err.Error()))
			continue
		}
	}

	if fixed > 0 {
		j.logger.Info("reconciled drifted daily counters", slog.Int("count", fixed))
	}
	return nil
}
