// Package limits implements the limit and freeze manager: daily and
// one-time ceilings plus the frozen-amount reservation that keeps
// pending funds from being spent twice.
package limits

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/finboard/walletcore/internal/application/ports"
	"github.com/finboard/walletcore/internal/domain/entities"
	domainerrors "github.com/finboard/walletcore/internal/domain/errors"
	"github.com/finboard/walletcore/internal/domain/valueobjects"
)

// Ceilings carries the per-operation and per-day transfer ceilings, in
// the account's currency. Built from config at startup.
type Ceilings struct {
	OneTime valueobjects.Money
	Daily   valueobjects.Money
}

// Manager reserves and releases funds and tracks the daily counters.
// Every method must be called inside a unit of work that already holds
// the account's row lock, so the read-check-insert sequence is one
// serializable unit.
type Manager struct {
	freezes  ports.FrozenAmountRepository
	counters ports.DailyLimitRepository
	now      func() time.Time
}

// NewManager creates a limit and freeze manager.
func NewManager(freezes ports.FrozenAmountRepository, counters ports.DailyLimitRepository) *Manager {
	return &Manager{freezes: freezes, counters: counters, now: time.Now}
}

// NewManagerWithClock creates a manager with an injected clock for tests.
func NewManagerWithClock(freezes ports.FrozenAmountRepository, counters ports.DailyLimitRepository, now func() time.Time) *Manager {
	return &Manager{freezes: freezes, counters: counters, now: now}
}

// Reserve checks the ceilings and, for fund-moving kinds, the available
// balance, then records a FrozenAmount for the transaction. The freeze
// expires with the OTP window. freezeFunds is false for credit-only
// kinds (Deposit, Claim), which consume limit headroom but put no funds
// at risk.
func (m *Manager) Reserve(
	ctx context.Context,
	account *entities.Account,
	transactionID uuid.UUID,
	amount valueobjects.Money,
	ceilings Ceilings,
	freezeFunds bool,
	expiresAt time.Time,
) (*entities.FrozenAmount, error) {
	exceedsOneTime, err := amount.GreaterThan(ceilings.OneTime)
	if err != nil {
		return nil, err
	}
	if exceedsOneTime {
		return nil, domainerrors.ErrExceedsOneTimeLimit
	}

	day := entities.DayKeyFor(m.now())
	moved, err := m.counters.MovedAmount(ctx, account.ID(), day, account.Currency())
	if err != nil {
		return nil, fmt.Errorf("failed to read daily counter: %w", err)
	}
	projected, err := moved.Add(amount)
	if err != nil {
		return nil, err
	}
	exceedsDaily, err := projected.GreaterThan(ceilings.Daily)
	if err != nil {
		return nil, err
	}
	if exceedsDaily {
		return nil, domainerrors.ErrExceedsDailyLimit
	}

	if !freezeFunds {
		return nil, nil
	}

	// Available = debit capacity minus funds already frozen by other
	// pending transactions. Capacity derives from the type invariant's
	// floor, so a credit card can spend its remaining limit while a
	// payment account can spend only its balance.
	capacity, limited := account.DebitCapacity()
	if limited {
		frozen, err := m.freezes.SumActiveByAccount(ctx, account.ID(), account.Currency())
		if err != nil {
			return nil, fmt.Errorf("failed to sum active freezes: %w", err)
		}
		available, err := capacity.Sub(frozen)
		if err != nil {
			return nil, err
		}
		insufficient, err := amount.GreaterThan(available)
		if err != nil {
			return nil, err
		}
		if insufficient {
			return nil, domainerrors.ErrInsufficientAvailableBalance
		}
	}

	freeze := entities.NewFrozenAmount(account.ID(), transactionID, amount, m.now(), expiresAt)
	if err := m.freezes.Save(ctx, freeze); err != nil {
		return nil, fmt.Errorf("failed to save frozen amount: %w", err)
	}

	return freeze, nil
}

// Release removes the reservation of a transaction. Idempotent; the
// reconciliation job may call it again for a transaction already swept.
func (m *Manager) Release(ctx context.Context, transactionID uuid.UUID) error {
	if err := m.freezes.DeleteByTransaction(ctx, transactionID); err != nil {
		return fmt.Errorf("failed to release frozen amount: %w", err)
	}
	return nil
}

// RecordMoved increments the daily counter after a confirmed mutation.
// Only confirmed transactions count against the daily ceiling.
func (m *Manager) RecordMoved(ctx context.Context, accountID uuid.UUID, amount valueobjects.Money) error {
	day := entities.DayKeyFor(m.now())
	if err := m.counters.Increment(ctx, accountID, day, amount); err != nil {
		return fmt.Errorf("failed to increment daily counter: %w", err)
	}
	return nil
}
