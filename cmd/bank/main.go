package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/bank-backend-go/internal/bootstrap"
	"github.com/boddenberg/bank-backend-go/internal/config"
	"github.com/boddenberg/bank-backend-go/internal/domain"
	"github.com/boddenberg/bank-backend-go/internal/handler"
	"github.com/boddenberg/bank-backend-go/internal/infra/cache"
	"github.com/boddenberg/bank-backend-go/internal/infra/events"
	"github.com/boddenberg/bank-backend-go/internal/infra/memory"
	"github.com/boddenberg/bank-backend-go/internal/infra/observability"
	"github.com/boddenberg/bank-backend-go/internal/infra/postgres"
	"github.com/boddenberg/bank-backend-go/internal/infra/resilience"
	"github.com/boddenberg/bank-backend-go/internal/port"
	"github.com/boddenberg/bank-backend-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Bool("events_enabled", cfg.RedisURL != ""),
		zap.Bool("ledger_opening_deposit", cfg.LedgerOpeningDeposit),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Duration("jwt_refresh_ttl", cfg.JWTRefreshTTL),
	)

	ctx := context.Background()

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "bank-backend")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	// --- Store ---
	var store port.Store
	switch cfg.StoreBackend {
	case config.BackendMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		store = memory.New()
	default:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns, resilienceCfg)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			logger.Fatal("failed to migrate schema", zap.Error(err))
		}
		pgStore := postgres.NewStore(pool, resilienceCfg, logger)
		defer pgStore.Close()
		store = pgStore
		logger.Info("postgres store ready", zap.Int("max_conns", cfg.DBMaxConns))
	}

	// --- Events ---
	var publisher port.EventPublisher = events.Discard{}
	if cfg.RedisURL != "" {
		client, err := events.Connect(ctx, cfg.RedisURL, resilienceCfg)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer client.Close()

		redisPub := events.NewRedisPublisher(client, cfg.EventsQueue, resilience.NewCircuitBreaker("events"), resilienceCfg)
		if backlog, err := redisPub.QueueLength(ctx); err == nil {
			logger.Info("event publishing enabled",
				zap.String("queue", cfg.EventsQueue),
				zap.Int64("backlog", backlog),
			)
		}
		publisher = redisPub
	} else {
		logger.Info("event publishing disabled: REDIS_URL not set")
	}

	// --- Cache ---
	statsCache := cache.New[*domain.DashboardStats](cfg.CacheTTL)
	defer statsCache.Close()

	// --- Services ---
	authSvc := service.NewAuthService(store, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, logger)
	accountSvc := service.NewAccountService(store, publisher, metrics, logger, service.AccountOptions{
		LedgerOpeningDeposit: cfg.LedgerOpeningDeposit,
		StatsCache:           statsCache,
	})
	loanSvc := service.NewLoanService(store, publisher, metrics, logger)
	directorySvc := service.NewDirectoryService(store, authSvc, statsCache, metrics, logger)

	// --- Bootstrap ---
	if err := bootstrap.EnsureAdmin(ctx, store, authSvc, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword, logger); err != nil {
		logger.Fatal("failed to seed admin", zap.Error(err))
	}

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Accounts:           accountSvc,
		Loans:              loanSvc,
		Auth:               authSvc,
		Directory:          directorySvc,
		Store:              store,
		Metrics:            metrics,
		Logger:             logger,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
