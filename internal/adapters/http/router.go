// Package http wires the handlers and middleware into the gin engine
// and hosts the HTTP server.
package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/finboard/walletcore/internal/adapters/http/common"
	"github.com/finboard/walletcore/internal/adapters/http/handlers"
	"github.com/finboard/walletcore/internal/adapters/http/middleware"
)

// RouterConfig configures the router-wide concerns.
type RouterConfig struct {
	Logger      *slog.Logger
	Pool        *pgxpool.Pool
	Version     string
	Environment string
}

// TransferUseCases groups the money-movement use cases.
type TransferUseCases struct {
	Request handlers.RequestTransferUseCase
	Confirm handlers.ConfirmTransferUseCase
	Get     handlers.GetTransferUseCase
	List    handlers.ListTransfersUseCase
}

// AccountUseCases groups the account read use cases.
type AccountUseCases struct {
	Get  handlers.GetAccountUseCase
	List handlers.ListAccountsUseCase
}

// NewRouter builds the gin engine with the full middleware chain and
// all routes.
func NewRouter(config *RouterConfig, transfers *TransferUseCases, accounts *AccountUseCases) *gin.Engine {
	if config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupValidator()

	router.Use(middleware.Recovery(&middleware.RecoveryConfig{
		Logger:           config.Logger,
		EnableStackTrace: config.Environment != "production",
	}))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logging(&middleware.LoggingConfig{
		Logger:    config.Logger,
		SkipPaths: []string{"/health", "/ready", "/metrics"},
	}))
	router.Use(middleware.Metrics())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	healthHandler := handlers.NewHealthHandler(config.Pool, config.Version)
	healthHandler.RegisterRoutes(router)

	v1 := router.Group("/api/v1")

	if transfers != nil {
		transferHandler := handlers.NewTransferHandler(
			transfers.Request,
			transfers.Confirm,
			transfers.Get,
			transfers.List,
		)
		group := v1.Group("/transfers")
		{
			group.POST("/send", transferHandler.Send)
			group.POST("/withdraw", transferHandler.Withdraw)
			group.POST("/deposit", transferHandler.Deposit)
			group.POST("/claim", transferHandler.Claim)
			group.POST("/:id/confirm", transferHandler.Confirm)
			group.GET("/:id", transferHandler.GetTransfer)
			group.GET("", transferHandler.ListTransfers)
		}
	}

	if accounts != nil {
		accountHandler := handlers.NewAccountHandler(accounts.Get, accounts.List)
		group := v1.Group("/accounts")
		{
			group.GET("", accountHandler.ListAccounts)
			group.GET("/:id", accountHandler.GetAccount)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		common.Error(c, 404, &common.APIError{
			Code:    common.ErrCodeNotFound,
			Message: "Endpoint not found",
			Details: map[string]any{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			},
		})
	})

	return router
}
