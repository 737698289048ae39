// File: app/app.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"go-bank-ledger/config"
	"go-bank-ledger/db"
	"go-bank-ledger/handler"
	"go-bank-ledger/logger"
	"go-bank-ledger/metrics"
	"go-bank-ledger/repository"
	"go-bank-ledger/router"
	"go-bank-ledger/service"
	"go-bank-ledger/tracing"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// App holds the wired service graph shared by the HTTP server and the CLI.
type App struct {
	DB      *sql.DB
	Redis   *redis.Client
	Metrics *metrics.Metrics

	Tokens       *service.TokenService
	Accounts     *service.AccountService
	Transactions *service.TransactionService
	Loans        *service.LoanService
	Penalties    *service.PenaltyService

	Router http.Handler

	shutdownTracing func(context.Context) error
}

// New connects to PostgreSQL and, when reachable, Redis. Without Redis the
// penalty summary is not cached and notifications are dropped.
func New(ctx context.Context) (*App, error) {
	shutdownTracing, err := tracing.Init(ctx, config.AppConfig.Tracing.OTLPEndpoint, config.AppConfig.Tracing.ServiceName)
	if err != nil {
		return nil, err
	}

	database, err := db.Connect()
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, err
	}

	rdb, err := db.ConnectRedis(ctx)
	if err != nil {
		logger.Log.WithError(err).Warn("Redis unavailable, running without cache and notifications")
		rdb = nil
	}

	a := NewWithDeps(database, rdb)
	a.shutdownTracing = shutdownTracing
	return a, nil
}

// NewWithDeps wires repositories, services, handlers and the router on top
// of already opened connections. rdb may be nil.
func NewWithDeps(database *sql.DB, rdb *redis.Client) *App {
	cfg := config.AppConfig
	m := metrics.NewMetrics()

	retry := service.RetryPolicy{
		MaxRetries:     cfg.Ledger.MaxRetries,
		InitialBackoff: cfg.Ledger.InitialBackoff,
		MaxBackoff:     cfg.Ledger.MaxBackoff,
	}
	if retry.InitialBackoff <= 0 || retry.MaxBackoff <= 0 {
		retry = service.DefaultRetryPolicy
	}
	loanPolicy := service.LoanPolicy{
		DefaultGracePeriodDays: cfg.Loan.DefaultGracePeriodDays,
		DefaultPenaltyRate:     decimal.NewFromFloat(cfg.Loan.DefaultPenaltyRate),
		MaxTenureMonths:        cfg.Loan.MaxTenureMonths,
	}

	// --- Wiring All Layers Together ---
	accountRepo := repository.NewAccountRepository(database)
	transactionRepo := repository.NewTransactionRepository(database)
	loanRepo := repository.NewLoanRepository(database)
	paymentRepo := repository.NewLoanPaymentRepository(database)
	penaltyRepo := repository.NewLoanPenaltyRepository(database)

	var cache service.ICacheClient
	var notifier service.Notifier = service.NoopNotifier{}
	if rdb != nil {
		cache = rdb
		notifier = service.NewRedisNotifier(rdb, cfg.Redis.NotificationChannel, m)
	}

	tokens := service.NewTokenService(cfg.JWT.SecretKey)
	accounts := service.NewAccountService(accountRepo)
	transactions := service.NewTransactionService(database, accountRepo, transactionRepo, retry, m)
	penalties := service.NewPenaltyService(database, loanRepo, paymentRepo, penaltyRepo,
		cache, cfg.Redis.SummaryTTL, notifier, cfg.Scheduler.Concurrency, retry, m)
	loans := service.NewLoanService(database, loanRepo, paymentRepo, accountRepo,
		transactions, penalties, notifier, loanPolicy, retry, m)

	r := router.NewRouter(router.Handlers{
		Health:      handler.NewHealthHandler(database),
		Account:     handler.NewAccountHandler(accounts),
		Transaction: handler.NewTransactionHandler(transactions),
		Loan:        handler.NewLoanHandler(loans),
		Penalty:     handler.NewPenaltyHandler(penalties),
		Tokens:      tokens,
		Registry:    m.Registry,
	})

	return &App{
		DB:           database,
		Redis:        rdb,
		Metrics:      m,
		Tokens:       tokens,
		Accounts:     accounts,
		Transactions: transactions,
		Loans:        loans,
		Penalties:    penalties,
		Router:       r,
	}
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down gracefully.
func (a *App) Serve(ctx context.Context) error {
	port := config.AppConfig.Server.Port
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	timeout := config.AppConfig.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Log.Info("Server exited properly")
	return nil
}

// Close flushes pending spans and releases the database and Redis connections.
func (a *App) Close() {
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracing(ctx); err != nil {
			logger.Log.WithError(err).Warn("Failed to flush traces")
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close Redis client")
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close database")
		}
	}
}
