// Package container is the composition root. It builds every dependency
// of the wallet service in order: logger, database, NATS, repositories,
// use cases, reconciliation job, HTTP server, and tears them down in
// reverse on shutdown.
package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	adapterhttp "github.com/finboard/walletcore/internal/adapters/http"
	"github.com/finboard/walletcore/internal/application/ports"
	"github.com/finboard/walletcore/internal/application/usecases/account"
	"github.com/finboard/walletcore/internal/application/usecases/limits"
	"github.com/finboard/walletcore/internal/application/usecases/otp"
	"github.com/finboard/walletcore/internal/application/usecases/transfer"
	"github.com/finboard/walletcore/internal/config"
	"github.com/finboard/walletcore/internal/domain/events"
	"github.com/finboard/walletcore/internal/domain/valueobjects"
	"github.com/finboard/walletcore/internal/exchange"
	natsmsg "github.com/finboard/walletcore/internal/infrastructure/messaging/nats"
	"github.com/finboard/walletcore/internal/infrastructure/persistence/postgres"
	"github.com/finboard/walletcore/internal/jobs"
	"github.com/finboard/walletcore/internal/pkg/logger"
)

// Container holds the application's wired dependencies.
type Container struct {
	config *config.Config
	logger *slog.Logger

	// Infrastructure
	pool          *pgxpool.Pool
	natsPublisher *natsmsg.EventPublisher

	// Repositories
	accountRepo  ports.AccountRepository
	transferRepo ports.WalletTransactionRepository
	otpRepo      ports.OtpChallengeRepository
	freezeRepo   ports.FrozenAmountRepository
	counterRepo  ports.DailyLimitRepository

	// Unit of Work
	uow ports.UnitOfWork

	// Event Publisher
	eventPublisher ports.EventPublisher

	// Domain services
	converter *exchange.Converter
	gate      *otp.Gate
	limiter   *limits.Manager

	// Use Cases
	requestTransferUC *transfer.RequestTransferUseCase
	confirmTransferUC *transfer.ConfirmTransferUseCase
	getTransferUC     *transfer.GetTransferUseCase
	listTransfersUC   *transfer.ListTransfersUseCase
	getAccountUC      *account.GetAccountUseCase
	listAccountsUC    *account.ListAccountsUseCase

	// Jobs
	reconciliation *jobs.ReconciliationJob

	// HTTP
	httpServer *adapterhttp.Server
}

// New creates a container for the given configuration.
func New(cfg *config.Config) *Container {
	return &Container{config: cfg}
}

// Initialize builds all dependencies. Call Shutdown to release them.
func (c *Container) Initialize(ctx context.Context) error {
	c.initLogger()
	c.logger.Info("initializing container")

	if err := c.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("database connected")

	if err := c.initMessaging(); err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}

	c.initRepositories()

	if err := c.initDomainServices(); err != nil {
		return fmt.Errorf("failed to initialize domain services: %w", err)
	}

	if err := c.initUseCases(); err != nil {
		return fmt.Errorf("failed to initialize use cases: %w", err)
	}

	c.initJobs()
	c.initHTTPServer()

	c.logger.Info("container initialization complete")
	return nil
}

func (c *Container) initLogger() {
	c.logger = logger.New(&logger.Config{
		Level:     c.config.Log.Level,
		Format:    c.config.Log.Format,
		AddSource: c.config.App.Debug,
	})
	slog.SetDefault(c.logger)
}

func (c *Container) initDatabase(ctx context.Context) error {
	pool, err := postgres.NewConnectionPool(ctx, postgres.Config{
		Host:            c.config.Database.Host,
		Port:            c.config.Database.Port,
		User:            c.config.Database.User,
		Password:        c.config.Database.Password,
		Database:        c.config.Database.Database,
		SSLMode:         c.config.Database.SSLMode,
		MaxConns:        c.config.Database.MaxConnections,
		MinConns:        c.config.Database.MinConnections,
		MaxConnLifetime: c.config.Database.MaxConnLifetime,
		MaxConnIdleTime: c.config.Database.MaxConnIdleTime,
	})
	if err != nil {
		return err
	}
	c.pool = pool
	return nil
}

func (c *Container) initMessaging() error {
	if !c.config.NATS.Enabled {
		c.logger.Warn("nats disabled, events will be dropped")
		c.eventPublisher = noopPublisher{logger: c.logger}
		return nil
	}

	publisher, err := natsmsg.Connect(c.config.NATS.URL)
	if err != nil {
		return err
	}
	c.natsPublisher = publisher
	c.eventPublisher = publisher
	c.logger.Info("nats connected", slog.String("url", c.config.NATS.URL))
	return nil
}

func (c *Container) initRepositories() {
	c.accountRepo = postgres.NewAccountRepository(c.pool)
	c.transferRepo = postgres.NewWalletTransactionRepository(c.pool)
	c.otpRepo = postgres.NewOtpChallengeRepository(c.pool)
	c.freezeRepo = postgres.NewFrozenAmountRepository(c.pool)
	c.counterRepo = postgres.NewDailyLimitRepository(c.pool)
	c.uow = postgres.NewUnitOfWork(c.pool)
}

func (c *Container) initDomainServices() error {
	rates := exchange.RateTable{}
	for code, rate := range c.config.Wallet.ExchangeRates {
		parsed, err := decimal.NewFromString(rate)
		if err != nil {
			return fmt.Errorf("invalid exchange rate for %s: %w", code, err)
		}
		rates[code] = parsed
	}
	c.converter = exchange.NewConverter(rates)

	c.gate = otp.NewGate(c.otpRepo)
	c.limiter = limits.NewManager(c.freezeRepo, c.counterRepo)
	return nil
}

func (c *Container) initUseCases() error {
	ceilings, err := c.ceilingProvider()
	if err != nil {
		return err
	}

	c.requestTransferUC = transfer.NewRequestTransferUseCase(
		c.accountRepo,
		c.transferRepo,
		c.gate,
		c.limiter,
		c.converter,
		ceilings,
		c.eventPublisher,
		c.uow,
		c.logger,
	)
	c.confirmTransferUC = transfer.NewConfirmTransferUseCase(
		c.accountRepo,
		c.transferRepo,
		c.gate,
		c.limiter,
		c.converter,
		c.eventPublisher,
		c.uow,
		c.logger,
	)
	c.getTransferUC = transfer.NewGetTransferUseCase(c.transferRepo)
	c.listTransfersUC = transfer.NewListTransfersUseCase(c.transferRepo)
	c.getAccountUC = account.NewGetAccountUseCase(c.accountRepo, c.freezeRepo)
	c.listAccountsUC = account.NewListAccountsUseCase(c.accountRepo, c.freezeRepo)
	return nil
}

// ceilingProvider converts the USD-denominated ceilings from config
// into the requested account currency through the rate table.
func (c *Container) ceilingProvider() (transfer.CeilingProvider, error) {
	usd, err := valueobjects.NewCurrency("USD")
	if err != nil {
		return nil, err
	}
	oneTime, err := valueobjects.NewMoney(c.config.Wallet.OneTimeLimitUSD, usd)
	if err != nil {
		return nil, fmt.Errorf("invalid one-time limit: %w", err)
	}
	daily, err := valueobjects.NewMoney(c.config.Wallet.DailyLimitUSD, usd)
	if err != nil {
		return nil, fmt.Errorf("invalid daily limit: %w", err)
	}

	converter := c.converter
	return func(currency valueobjects.Currency) (limits.Ceilings, error) {
		oneTimeLocal, err := converter.Convert(oneTime, currency)
		if err != nil {
			return limits.Ceilings{}, err
		}
		dailyLocal, err := converter.Convert(daily, currency)
		if err != nil {
			return limits.Ceilings{}, err
		}
		return limits.Ceilings{OneTime: oneTimeLocal, Daily: dailyLocal}, nil
	}, nil
}

func (c *Container) initJobs() {
	c.reconciliation = jobs.NewReconciliationJob(
		c.transferRepo,
		c.accountRepo,
		c.counterRepo,
		c.limiter,
		c.eventPublisher,
		c.uow,
		c.logger,
		c.config.Wallet.ReconciliationInterval,
	)
	c.reconciliation.SetBatchSize(c.config.Wallet.ReconciliationBatch)
}

func (c *Container) initHTTPServer() {
	router := adapterhttp.NewRouter(
		&adapterhttp.RouterConfig{
			Logger:      c.logger,
			Pool:        c.pool,
			Version:     c.config.App.Version,
			Environment: c.config.App.Environment,
		},
		&adapterhttp.TransferUseCases{
			Request: c.requestTransferUC,
			Confirm: c.confirmTransferUC,
			Get:     c.getTransferUC,
			List:    c.listTransfersUC,
		},
		&adapterhttp.AccountUseCases{
			Get:  c.getAccountUC,
			List: c.listAccountsUC,
		},
	)

	c.httpServer = adapterhttp.NewServer(&adapterhttp.ServerConfig{
		Host:            c.config.Server.Host,
		Port:            fmt.Sprintf("%d", c.config.Server.Port),
		ReadTimeout:     c.config.Server.ReadTimeout,
		WriteTimeout:    c.config.Server.WriteTimeout,
		IdleTimeout:     c.config.Server.IdleTimeout,
		ShutdownTimeout: c.config.Server.ShutdownTimeout,
		Logger:          c.logger,
	}, router)
}

// Config returns the configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the application logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Pool returns the database connection pool.
func (c *Container) Pool() *pgxpool.Pool {
	return c.pool
}

// HTTPServer returns the HTTP server.
func (c *Container) HTTPServer() *adapterhttp.Server {
	return c.httpServer
}

// ReconciliationJob returns the background sweep.
func (c *Container) ReconciliationJob() *jobs.ReconciliationJob {
	return c.reconciliation
}

// Run starts the reconciliation job and the HTTP server, blocking
// until shutdown.
func (c *Container) Run(ctx context.Context) error {
	c.logger.Info("starting wallet core",
		slog.String("version", c.config.App.Version),
		slog.String("environment", c.config.App.Environment),
		slog.String("address", c.config.Server.Address()),
	)

	go c.reconciliation.Start(ctx)

	return c.httpServer.Run()
}

// Shutdown tears down all components in reverse initialization order.
func (c *Container) Shutdown(ctx context.Context) error {
	c.logger.Info("shutting down container")

	var errs []error

	if c.reconciliation != nil {
		c.reconciliation.Stop()
	}

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.natsPublisher != nil {
		if err := c.natsPublisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("nats close: %w", err))
		}
	}

	if c.pool != nil {
		done := make(chan struct{})
		go func() {
			c.pool.Close()
			close(done)
		}()

		select {
		case <-done:
			c.logger.Info("database connection closed")
		case <-ctx.Done():
			c.logger.Warn("database close timeout")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	c.logger.Info("container shutdown complete")
	return nil
}

// noopPublisher drops events when NATS is disabled. Used in local
// development without a broker.
type noopPublisher struct {
	logger *slog.Logger
}

func (p noopPublisher) Publish(_ context.Context, event events.DomainEvent) error {
	p.logger.Debug("event dropped", slog.String("event_type", event.EventType()))
	return nil
}

func (p noopPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, event := range batch {
		_ = p.Publish(ctx, event)
	}
	return nil
}
