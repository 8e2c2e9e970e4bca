package transfer

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/finboard/walletcore/internal/application/ports"
	"github.com/finboard/walletcore/internal/application/usecases/limits"
	"github.com/finboard/walletcore/internal/application/usecases/otp"
	"github.com/finboard/walletcore/internal/domain/entities"
	domainerrors "github.com/finboard/walletcore/internal/domain/errors"
	"github.com/finboard/walletcore/internal/domain/events"
	"github.com/finboard/walletcore/internal/domain/valueobjects"
	"github.com/finboard/walletcore/internal/exchange"
)

// In-memory repositories giving the engine real state to mutate, so
// tests observe end-to-end effects instead of stubbed returns.

type memAccountRepo struct {
	accounts map[uuid.UUID]*entities.Account
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: make(map[uuid.UUID]*entities.Account)}
}

func (r *memAccountRepo) FindByID(_ context.Context, id uuid.UUID) (*entities.Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return nil, domainerrors.ErrEntityNotFound
	}
	return a, nil
}

func (r *memAccountRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Account, error) {
	return r.FindByID(ctx, id)
}

func (r *memAccountRepo) FindByOwner(_ context.Context, ownerID uuid.UUID) ([]*entities.Account, error) {
	var out []*entities.Account
	for _, a := range r.accounts {
		if a.OwnerID() == ownerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAccountRepo) Save(_ context.Context, account *entities.Account) error {
	r.accounts[account.ID()] = account
	return nil
}

type memTransferRepo struct {
	transfers  map[uuid.UUID]*entities.WalletTransaction
	challenges *memOtpRepo
	now        func() time.Time
	saveErr    error
	onLock     func(tx *entities.WalletTransaction)
}

func newMemTransferRepo(challenges *memOtpRepo, now func() time.Time) *memTransferRepo {
	return &memTransferRepo{
		transfers:  make(map[uuid.UUID]*entities.WalletTransaction),
		challenges: challenges,
		now:        now,
	}
}

func (r *memTransferRepo) Save(_ context.Context, tx *entities.WalletTransaction) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.transfers[tx.ID()] = tx
	return nil
}

func (r *memTransferRepo) FindByID(_ context.Context, id uuid.UUID) (*entities.WalletTransaction, error) {
	tx, ok := r.transfers[id]
	if !ok {
		return nil, domainerrors.ErrEntityNotFound
	}
	return tx, nil
}

// FindByIDForUpdate mirrors FindByID; onLock lets a test slip in a
// concurrent writer that acquired the lock first.
func (r *memTransferRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*entities.WalletTransaction, error) {
	tx, ok := r.transfers[id]
	if !ok {
		return nil, domainerrors.ErrEntityNotFound
	}
	if r.onLock != nil {
		r.onLock(tx)
	}
	return tx, nil
}

func (r *memTransferRepo) FindPendingWithExpiredOtp(_ context.Context, limit int) ([]*entities.WalletTransaction, error) {
	var out []*entities.WalletTransaction
	for _, tx := range r.transfers {
		if len(out) >= limit {
			break
		}
		if !tx.IsPending() {
			continue
		}
		challenge, ok := r.challenges.challenges[tx.OtpID()]
		if ok && challenge.IsExpired(r.now()) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *memTransferRepo) List(_ context.Context, filter ports.TransferFilter, offset, limit int) ([]*entities.WalletTransaction, error) {
	var out []*entities.WalletTransaction
	for _, tx := range r.transfers {
		if filter.AccountID != nil {
			matches := tx.FromAccountID() == *filter.AccountID ||
				(tx.ToAccountID() != nil && *tx.ToAccountID() == *filter.AccountID)
			if !matches {
				continue
			}
		}
		if filter.Status != nil && tx.Status() != *filter.Status {
			continue
		}
		out = append(out, tx)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memTransferRepo) SumConfirmedForDay(_ context.Context, accountID uuid.UUID, day entities.DayKey, currency valueobjects.Currency) (valueobjects.Money, error) {
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

type memOtpRepo struct {
	challenges map[uuid.UUID]*entities.OtpChallenge
	now        func() time.Time
}

func newMemOtpRepo(now func() time.Time) *memOtpRepo {
	return &memOtpRepo{challenges: make(map[uuid.UUID]*entities.OtpChallenge), now: now}
}

func (r *memOtpRepo) Save(_ context.Context, challenge *entities.OtpChallenge) error {
	r.challenges[challenge.ID()] = challenge
	return nil
}

func (r *memOtpRepo) FindByID(_ context.Context, id uuid.UUID) (*entities.OtpChallenge, error) {
	c, ok := r.challenges[id]
	if !ok {
		return nil, domainerrors.ErrEntityNotFound
	}
	return c, nil
}

func (r *memOtpRepo) ConsumeIfValid(_ context.Context, id uuid.UUID, code string) (bool, error) {
	c, ok := r.challenges[id]
	if !ok || c.IsUsed() || c.IsExpired(r.now()) || c.Code() != code {
		return false, nil
	}
	used := r.now()
	r.challenges[id] = entities.ReconstructOtpChallenge(
		c.ID(), c.UserID(), c.OperationType(), c.PayloadHash(), c.Code(),
		c.CreatedAt(), c.ExpiresAt(), &used,
	)
	return true, nil
}

type memFreezeRepo struct {
	freezes map[uuid.UUID]*entities.FrozenAmount
}

func newMemFreezeRepo() *memFreezeRepo {
	return &memFreezeRepo{freezes: make(map[uuid.UUID]*entities.FrozenAmount)}
}

func (r *memFreezeRepo) Save(_ context.Context, freeze *entities.FrozenAmount) error {
	r.freezes[freeze.TransactionID()] = freeze
	return nil
}

func (r *memFreezeRepo) SumActiveByAccount(_ context.Context, accountID uuid.UUID, currency valueobjects.Currency) (valueobjects.Money, error) {
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

func (r *memFreezeRepo) DeleteByTransaction(_ context.Context, transactionID uuid.UUID) error {
	delete(r.freezes, transactionID)
	return nil
}

type counterKey struct {
	accountID uuid.UUID
	day       entities.DayKey
}

type memCounterRepo struct {
	counters map[counterKey]valueobjects.Money
}

func newMemCounterRepo() *memCounterRepo {
	return &memCounterRepo{counters: make(map[counterKey]valueobjects.Money)}
}

func (r *memCounterRepo) MovedAmount(_ context.Context, accountID uuid.UUID, day entities.DayKey, currency valueobjects.Currency) (valueobjects.Money, error) {
	if m, ok := r.counters[counterKey{accountID, day}]; ok {
		return m, nil
	}
	return valueobjects.Zero(currency), nil
}

func (r *memCounterRepo) Increment(_ context.Context, accountID uuid.UUID, day entities.DayKey, amount valueobjects.Money) error {
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

func (r *memCounterRepo) Set(_ context.Context, accountID uuid.UUID, day entities.DayKey, amount valueobjects.Money) error {
	r.counters[counterKey{accountID, day}] = amount
	return nil
}

func (r *memCounterRepo) ListForDay(_ context.Context, day entities.DayKey) ([]*entities.DailyLimitCounter, error) {
	var rows []*entities.DailyLimitCounter
	for key, amount := range r.counters {
		if key.day == day {
			rows = append(rows, entities.NewDailyLimitCounter(key.accountID, key.day, amount))
		}
	}
	return rows, nil
}

// mockPublisher records published events.
type mockPublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (p *mockPublisher) Publish(_ context.Context, event events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *mockPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, e := range batch {
		if err := p.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (p *mockPublisher) byType(eventType string) []events.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.DomainEvent
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// mockUnitOfWork runs the function directly; the in-memory repositories
// have no transaction to join.
type mockUnitOfWork struct {
	executeErr error
}

func (m *mockUnitOfWork) Execute(ctx context.Context, fn func(context.Context) error) error {
	if m.executeErr != nil {
		return m.executeErr
	}
	return fn(ctx)
}

func (m *mockUnitOfWork) ExecuteWithRetry(ctx context.Context, maxRetries int, fn func(context.Context) error) error {
	return m.Execute(ctx, fn)
}

// engineFixture wires the full request/confirm engine over in-memory
// state with a controllable clock.
type engineFixture struct {
	clock     time.Time
	accounts  *memAccountRepo
	transfers *memTransferRepo
	otps      *memOtpRepo
	freezes   *memFreezeRepo
	counters  *memCounterRepo
	publisher *mockPublisher
	uow       *mockUnitOfWork
	limiter   *limits.Manager
	request   *RequestTransferUseCase
	confirm   *ConfirmTransferUseCase
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	f := &engineFixture{clock: time.Now().UTC()}
	now := func() time.Time { return f.clock }

	f.otps = newMemOtpRepo(now)
	f.accounts = newMemAccountRepo()
	f.transfers = newMemTransferRepo(f.otps, now)
	f.freezes = newMemFreezeRepo()
	f.counters = newMemCounterRepo()
	f.publisher = &mockPublisher{}
	f.uow = &mockUnitOfWork{}

	gate := otp.NewGateWithClock(f.otps, now)
	f.limiter = limits.NewManagerWithClock(f.freezes, f.counters, now)
	converter := exchange.NewConverter(exchange.DefaultRateTable())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ceilings := func(currency valueobjects.Currency) (limits.Ceilings, error) {
		oneTime, err := converter.Convert(mustUSD(t, "2000.00"), currency)
		if err != nil {
			return limits.Ceilings{}, err
		}
		daily, err := converter.Convert(mustUSD(t, "5000.00"), currency)
		if err != nil {
			return limits.Ceilings{}, err
		}
		return limits.Ceilings{OneTime: oneTime, Daily: daily}, nil
	}

	f.request = NewRequestTransferUseCase(
		f.accounts, f.transfers, gate, f.limiter, converter, ceilings, f.publisher, f.uow, logger,
	)
	f.confirm = NewConfirmTransferUseCase(
		f.accounts, f.transfers, gate, f.limiter, converter, f.publisher, f.uow, logger,
	)
	f.confirm.now = now

	return f
}

// advance moves the fixture clock forward.
func (f *engineFixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

// addAccount seeds an account and returns it.
func (f *engineFixture) addAccount(t *testing.T, accountType entities.AccountType, balance string, creditLimit *valueobjects.Money, currency valueobjects.Currency) *entities.Account {
	t.Helper()
	b, err := valueobjects.NewMoney(balance, currency)
	if err != nil {
		t.Fatalf("NewMoney(%q) error: %v", balance, err)
	}
	account := entities.ReconstructAccount(
		uuid.New(), uuid.New(), accountType, b, creditLimit, currency, f.clock, f.clock,
	)
	f.accounts.accounts[account.ID()] = account
	return account
}

// codeFor returns the plaintext code of a transaction's challenge.
func (f *engineFixture) codeFor(t *testing.T, transactionID string) string {
	t.Helper()
	id, err := uuid.Parse(transactionID)
	if err != nil {
		t.Fatalf("bad transaction ID %q: %v", transactionID, err)
	}
	tx, ok := f.transfers.transfers[id]
	if !ok {
		t.Fatalf("transaction %s not stored", transactionID)
	}
	challenge, ok := f.otps.challenges[tx.OtpID()]
	if !ok {
		t.Fatalf("challenge for transaction %s not stored", transactionID)
	}
	return challenge.Code()
}

func mustParse(t *testing.T, id string) uuid.UUID {
	t.Helper()
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("bad UUID %q: %v", id, err)
	}
	return parsed
}

func mustUSD(t *testing.T, amount string) valueobjects.Money {
	t.Helper()
	m, err := valueobjects.NewMoney(amount, valueobjects.USD)
	if err != nil {
		t.Fatalf("NewMoney(%q) error: %v", amount, err)
	}
	return m
}
