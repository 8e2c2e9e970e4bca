package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/finboard/walletcore/internal/application/ports"
	"github.com/finboard/walletcore/internal/application/usecases/limits"
	"github.com/finboard/walletcore/internal/domain/entities"
	domainerrors "github.com/finboard/walletcore/internal/domain/errors"
	"github.com/finboard/walletcore/internal/domain/events"
	"github.com/finboard/walletcore/internal/domain/valueobjects"
)

type sweepTransferRepo struct {
	transfers map[uuid.UUID]*entities.WalletTransaction
	stale     map[uuid.UUID]bool
	saveErrOn map[uuid.UUID]error
	onLock    func(tx *entities.WalletTransaction)
}

func newSweepTransferRepo() *sweepTransferRepo {
	return &sweepTransferRepo{
		transfers: make(map[uuid.UUID]*entities.WalletTransaction),
		stale:     make(map[uuid.UUID]bool),
		saveErrOn: make(map[uuid.UUID]error),
	}
}

func (r *sweepTransferRepo) Save(_ context.Context, tx *entities.WalletTransaction) error {
	if err := r.saveErrOn[tx.ID()]; err != nil {
		return err
	}
	r.transfers[tx.ID()] = tx
	return nil
}

func (r *sweepTransferRepo) FindByID(_ context.Context, id uuid.UUID) (*entities.WalletTransaction, error) {
	tx, ok := r.transfers[id]
	if !ok {
		return nil, domainerrors.ErrEntityNotFound
	}
	return tx, nil
}

// FindByIDForUpdate mirrors FindByID; onLock lets a test slip in a
// concurrent writer that acquired the lock first.
func (r *sweepTransferRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*entities.WalletTransaction, error) {
	tx, ok := r.transfers[id]
	if !ok {
		return nil, domainerrors.ErrEntityNotFound
	}
	if r.onLock != nil {
		r.onLock(tx)
	}
	return tx, nil
}

func (r *sweepTransferRepo) FindPendingWithExpiredOtp(_ context.Context, limit int) ([]*entities.WalletTransaction, error) {
	var out []*entities.WalletTransaction
	for id, tx := range r.transfers {
		if len(out) >= limit {
			break
		}
		if tx.IsPending() && r.stale[id] {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *sweepTransferRepo) List(_ context.Context, _ ports.TransferFilter, _, _ int) ([]*entities.WalletTransaction, error) {
	return nil, nil
}

func (r *sweepTransferRepo) SumConfirmedForDay(_ context.Context, accountID uuid.UUID, day entities.DayKey, currency valueobjects.Currency) (valueobjects.Money, error) {
	sum := valueobjects.Zero(currency)
	for _, tx := range r.transfers {
		if tx.FromAccountID() != accountID || tx.Status() != entities.TransferStatusConfirmed {
			continue
		}
		if tx.ConfirmedAt() == nil || entities.DayKeyFor(*tx.ConfirmedAt()) != day {
			continue
		}
		if !tx.SettledAmount().Currency().Equals(currency) {
			continue
		}
		var err error
		sum, err = sum.Add(tx.SettledAmount())
		if err != nil {
			return valueobjects.Money{}, err
		}
	}
	return sum, nil
}

type sweepAccountRepo struct {
	accounts map[uuid.UUID]*entities.Account
}

func (r *sweepAccountRepo) FindByID(_ context.Context, id uuid.UUID) (*entities.Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return nil, domainerrors.ErrEntityNotFound
	}
	return a, nil
}

func (r *sweepAccountRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Account, error) {
	return r.FindByID(ctx, id)
}

func (r *sweepAccountRepo) FindByOwner(_ context.Context, _ uuid.UUID) ([]*entities.Account, error) {
	return nil, nil
}

func (r *sweepAccountRepo) Save(_ context.Context, account *entities.Account) error {
	r.accounts[account.ID()] = account
	return nil
}

type sweepFreezeRepo struct {
	freezes map[uuid.UUID]*entities.FrozenAmount
}

func (r *sweepFreezeRepo) Save(_ context.Context, freeze *entities.FrozenAmount) error {
	r.freezes[freeze.TransactionID()] = freeze
	return nil
}

func (r *sweepFreezeRepo) SumActiveByAccount(_ context.Context, accountID uuid.UUID, currency valueobjects.Currency) (valueobjects.Money, error) {
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

func (r *sweepFreezeRepo) DeleteByTransaction(_ context.Context, transactionID uuid.UUID) error {
	delete(r.freezes, transactionID)
	return nil
}

type counterKey struct {
	accountID uuid.UUID
	day       entities.DayKey
}

type sweepCounterRepo struct {
	counters map[counterKey]valueobjects.Money
	setCalls int
}

func (r *sweepCounterRepo) MovedAmount(_ context.Context, accountID uuid.UUID, day entities.DayKey, currency valueobjects.Currency) (valueobjects.Money, error) {
	if m, ok := r.counters[counterKey{accountID, day}]; ok {
		return m, nil
	}
	return valueobjects.Zero(currency), nil
}

func (r *sweepCounterRepo) Increment(_ context.Context, accountID uuid.UUID, day entities.DayKey, amount valueobjects.Money) error {
	key := counterKey{accountID, day}
	current, ok := r.counters[key]
	if !ok {
		r.counters[key] = amount
		return nil
	}
	sum, err := current.Add(amount)
	if err != nil {
		return err
	}
	r.counters[key] = sum
	return nil
}

func (r *sweepCounterRepo) Set(_ context.Context, accountID uuid.UUID, day entities.DayKey, amount valueobjects.Money) error {
	r.setCalls++
	r.counters[counterKey{accountID, day}] = amount
	return nil
}

func (r *sweepCounterRepo) ListForDay(_ context.Context, day entities.DayKey) ([]*entities.DailyLimitCounter, error) {
	var rows []*entities.DailyLimitCounter
	for key, amount := range r.counters {
		if key.day == day {
			rows = append(rows, entities.NewDailyLimitCounter(key.accountID, key.day, amount))
		}
	}
	return rows, nil
}

type sweepPublisher struct {
	events []events.DomainEvent
}

func (p *sweepPublisher) Publish(_ context.Context, event events.DomainEvent) error {
	p.events = append(p.events, event)
	return nil
}

func (p *sweepPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, e := range batch {
		if err := p.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (p *sweepPublisher) byType(eventType string) []events.DomainEvent {
	var out []events.DomainEvent
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type sweepUnitOfWork struct{}

func (sweepUnitOfWork) Execute(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (u sweepUnitOfWork) ExecuteWithRetry(ctx context.Context, _ int, fn func(context.Context) error) error {
	return u.Execute(ctx, fn)
}

type sweepFixture struct {
	clock     time.Time
	transfers *sweepTransferRepo
	accounts  *sweepAccountRepo
	freezes   *sweepFreezeRepo
	counters  *sweepCounterRepo
	publisher *sweepPublisher
	job       *ReconciliationJob
}

func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()

	f := &sweepFixture{
		clock:     time.Now().UTC(),
		transfers: newSweepTransferRepo(),
		accounts:  &sweepAccountRepo{accounts: make(map[uuid.UUID]*entities.Account)},
		freezes:   &sweepFreezeRepo{freezes: make(map[uuid.UUID]*entities.FrozenAmount)},
		counters:  &sweepCounterRepo{counters: make(map[counterKey]valueobjects.Money)},
		publisher: &sweepPublisher{},
	}
	now := func() time.Time { return f.clock }

	limiter := limits.NewManagerWithClock(f.freezes, f.counters, now)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f.job = NewReconciliationJob(
		f.transfers, f.accounts, f.counters, limiter, f.publisher,
		sweepUnitOfWork{}, logger, time.Minute,
	)
	f.job.now = now
	return f
}

func (f *sweepFixture) usd(t *testing.T, amount string) valueobjects.Money {
	t.Helper()
	m, err := valueobjects.NewMoney(amount, valueobjects.USD)
	if err != nil {
		t.Fatalf("NewMoney(%q) error: %v", amount, err)
	}
	return m
}

func (f *sweepFixture) addAccount(t *testing.T) *entities.Account {
	t.Helper()
	account := entities.ReconstructAccount(
		uuid.New(), uuid.New(), entities.AccountTypePayment,
		f.usd(t, "1000.00"), nil, valueobjects.USD, f.clock, f.clock,
	)
	f.accounts.accounts[account.ID()] = account
	return account
}

// addPending seeds a PENDING_OTP withdrawal with its freeze. stale marks
// the OTP window as lapsed.
func (f *sweepFixture) addPending(t *testing.T, account *entities.Account, amount string, stale bool) *entities.WalletTransaction {
	t.Helper()
	m := f.usd(t, amount)
	tx, err := entities.NewWalletTransaction(
		account.ID(), nil, entities.TransferKindWithdraw, m, m, "1", "", uuid.New(),
	)
	if err != nil {
		t.Fatalf("NewWalletTransaction error: %v", err)
	}
	f.transfers.transfers[tx.ID()] = tx
	f.transfers.stale[tx.ID()] = stale
	f.freezes.freezes[tx.ID()] = entities.NewFrozenAmount(
		account.ID(), tx.ID(), m, f.clock, f.clock.Add(entities.OtpTTL),
	)
	return tx
}

func (f *sweepFixture) addConfirmed(t *testing.T, account *entities.Account, amount string) *entities.WalletTransaction {
	t.Helper()
	tx := f.addPending(t, account, amount, false)
	delete(f.freezes.freezes, tx.ID())
	if err := tx.MarkConfirmed(f.clock); err != nil {
		t.Fatalf("MarkConfirmed error: %v", err)
	}
	return tx
}

func TestRunOnce_ExpiresStalePending(t *testing.T) {
	ctx := context.Background()
	f := newSweepFixture(t)
	account := f.addAccount(t)

	stale := f.addPending(t, account, "100.00", true)
	fresh := f.addPending(t, account, "50.00", false)

	f.job.RunOnce(ctx)

	if stale.Status() != entities.TransferStatusExpired {
		t.Errorf("stale status = %s, want EXPIRED", stale.Status())
	}
	if fresh.Status() != entities.TransferStatusPendingOtp {
		t.Errorf("fresh status = %s, want PENDING_OTP", fresh.Status())
	}
	if _, ok := f.freezes.freezes[stale.ID()]; ok {
		t.Error("stale freeze not released")
	}
	if _, ok := f.freezes.freezes[fresh.ID()]; !ok {
		t.Error("fresh freeze released")
	}
	if got := f.publisher.byType(events.EventTypeTransferExpired); len(got) != 1 {
		t.Errorf("transfer.expired events = %d, want 1", len(got))
	}
}

func TestRunOnce_ConcurrentConfirmWinsTheRow(t *testing.T) {
	ctx := context.Background()
	f := newSweepFixture(t)
	account := f.addAccount(t)
	tx := f.addPending(t, account, "100.00", true)

	// A confirm commits between the stale scan and the sweep acquiring
	// the row lock. The locked reload must see CONFIRMED and back off.
	f.transfers.onLock = func(locked *entities.WalletTransaction) {
		if locked.ID() != tx.ID() {
			return
		}
		delete(f.freezes.freezes, locked.ID())
		if err := locked.MarkConfirmed(f.clock); err != nil {
			t.Fatalf("MarkConfirmed error: %v", err)
		}
	}

	f.job.RunOnce(ctx)

	if tx.Status() != entities.TransferStatusConfirmed {
		t.Errorf("status = %s, want CONFIRMED", tx.Status())
	}
	if got := f.publisher.byType(events.EventTypeTransferExpired); len(got) != 0 {
		t.Errorf("transfer.expired events = %d, want 0", len(got))
	}
}

func TestRunOnce_SecondPassIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newSweepFixture(t)
	account := f.addAccount(t)
	f.addPending(t, account, "100.00", true)

	f.job.RunOnce(ctx)
	eventsAfterFirst := len(f.publisher.events)
	setsAfterFirst := f.counters.setCalls

	f.job.RunOnce(ctx)

	if len(f.publisher.events) != eventsAfterFirst {
		t.Errorf("second pass published %d more events", len(f.publisher.events)-eventsAfterFirst)
	}
	if f.counters.setCalls != setsAfterFirst {
		t.Error("second pass rewrote counters")
	}
}

func TestRunOnce_RecomputesDriftedCounter(t *testing.T) {
	ctx := context.Background()
	f := newSweepFixture(t)
	account := f.addAccount(t)
	day := entities.DayKeyFor(f.clock)

	f.addConfirmed(t, account, "100.00")
	f.counters.counters[counterKey{account.ID(), day}] = f.usd(t, "250.00")

	f.job.RunOnce(ctx)

	moved := f.counters.counters[counterKey{account.ID(), day}]
	if !moved.Equals(f.usd(t, "100.00")) {
		t.Errorf("counter = %s, want recomputed 100.00", moved)
	}
	if f.counters.setCalls != 1 {
		t.Errorf("Set calls = %d, want 1", f.counters.setCalls)
	}
}

func TestRunOnce_AccurateCounterIsLeftAlone(t *testing.T) {
	ctx := context.Background()
	f := newSweepFixture(t)
	account := f.addAccount(t)
	day := entities.DayKeyFor(f.clock)

	f.addConfirmed(t, account, "100.00")
	f.counters.counters[counterKey{account.ID(), day}] = f.usd(t, "100.00")

	f.job.RunOnce(ctx)

	if f.counters.setCalls != 0 {
		t.Errorf("Set calls = %d, want 0 for accurate counter", f.counters.setCalls)
	}
}

func TestRunOnce_PoisonedRowDoesNotStallSweep(t *testing.T) {
	ctx := context.Background()
	f := newSweepFixture(t)
	account := f.addAccount(t)

	poisoned := f.addPending(t, account, "100.00", true)
	healthy := f.addPending(t, account, "50.00", true)
	f.transfers.saveErrOn[poisoned.ID()] = errors.New("row corrupted")

	f.job.RunOnce(ctx)

	if healthy.Status() != entities.TransferStatusExpired {
		t.Errorf("healthy status = %s, want EXPIRED despite poisoned sibling", healthy.Status())
	}
}

func TestRunOnce_BatchSizeBoundsEachPass(t *testing.T) {
	ctx := context.Background()
	f := newSweepFixture(t)
	account := f.addAccount(t)

	f.addPending(t, account, "10.00", true)
	f.addPending(t, account, "20.00", true)
	f.job.SetBatchSize(1)

	f.job.RunOnce(ctx)

	expired := 0
	for _, tx := range f.transfers.transfers {
		if tx.Status() == entities.TransferStatusExpired {
			expired++
		}
	}
	if expired != 1 {
		t.Fatalf("expired after one pass = %d, want 1", expired)
	}

	f.job.RunOnce(ctx)
	expired = 0
	for _, tx := range f.transfers.transfers {
		if tx.Status() == entities.TransferStatusExpired {
			expired++
		}
	}
	if expired != 2 {
		t.Errorf("expired after two passes = %d, want 2", expired)
	}
}

func TestStartStop(t *testing.T) {
	f := newSweepFixture(t)

	done := make(chan struct{})
	go func() {
		f.job.Start(context.Background())
		close(done)
	}()

	f.job.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not stop")
	}
}
