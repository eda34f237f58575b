package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/villa-finans-go/internal/config"
	"github.com/boddenberg/villa-finans-go/internal/domain"
	"github.com/boddenberg/villa-finans-go/internal/handler"
	"github.com/boddenberg/villa-finans-go/internal/infra/cache"
	"github.com/boddenberg/villa-finans-go/internal/infra/kvstore"
	"github.com/boddenberg/villa-finans-go/internal/infra/memstore"
	"github.com/boddenberg/villa-finans-go/internal/infra/observability"
	"github.com/boddenberg/villa-finans-go/internal/infra/resilience"
	"github.com/boddenberg/villa-finans-go/internal/port"
	"github.com/boddenberg/villa-finans-go/internal/service"
	"github.com/boddenberg/villa-finans-go/internal/validation"

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

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("use_supabase", cfg.UseSupabase),
		zap.Bool("auth_required", cfg.AuthRequired),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("seed_check_ttl", cfg.SeedCheckTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "villa-finans")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Seed check cache ---
	seedCheck := cache.New[bool](cfg.SeedCheckTTL)

	// --- Stores ---
	var categories port.CategoryStore
	var transactions port.TransactionStore

	if cfg.UseSupabase && cfg.SupabaseURL != "" {
		logger.Info("using Supabase as data backend",
			zap.String("supabase_url", cfg.SupabaseURL),
		)
		resilienceCfg := resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxConcurrency: cfg.MaxConcurrency,
		}
		cb := resilience.NewCircuitBreaker("postgrest")
		httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
		kvClient := kvstore.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			cb,
			resilienceCfg,
			metrics,
			logger,
		)
		categories = kvstore.NewCategories(kvClient, cfg.MaxConcurrency)
		transactions = kvstore.NewStore[domain.Transaction](kvClient, "transaction", cfg.MaxConcurrency)
	} else {
		logger.Info("using in-memory data backend")
		categories = memstore.NewCategories()
		transactions = memstore.New[domain.Transaction]("transaction")
	}

	// --- Services ---
	ledgerSvc := service.NewLedger(categories, transactions, seedCheck, metrics, logger)
	authSvc := service.NewGateAuth(cfg.GatePasswordHash, cfg.GatePassword, cfg.JWTSecret, cfg.JWTAccessTTL, logger)

	// --- Router ---
	router := handler.NewRouter(ledgerSvc, authSvc, validation.New(), metrics, logger, handler.RouterOptions{
		AuthRequired:   cfg.AuthRequired,
		AllowedOrigins: cfg.AllowedOrigins,
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
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
