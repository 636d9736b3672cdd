package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/regenpay/wallet-api/internal/config"
	"github.com/regenpay/wallet-api/internal/domain"
	"github.com/regenpay/wallet-api/internal/handler"
	"github.com/regenpay/wallet-api/internal/infra/cache"
	"github.com/regenpay/wallet-api/internal/infra/observability"
	"github.com/regenpay/wallet-api/internal/infra/payments"
	"github.com/regenpay/wallet-api/internal/infra/resilience"
	"github.com/regenpay/wallet-api/internal/infra/supabase"
	"github.com/regenpay/wallet-api/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("gateway_delay", cfg.GatewayDelay),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Duration("jwt_refresh_ttl", cfg.JWTRefreshTTL),
	)

	if cfg.SupabaseURL == "" {
		logger.Fatal("SUPABASE_URL is required")
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "wallet-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	profileCache := cache.New[domain.UserProfile](cfg.CacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("supabase")

	// --- Stores ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	store := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		cb,
		resilienceCfg,
		logger,
	)

	// --- Payment gateway (simulated mobile-money providers) ---
	gateway := payments.NewSimulatedGateway(cfg.GatewayDelay, logger)

	// --- Services ---
	budgetSvc := service.NewBudgetService(store, metrics, logger)
	walletSvc := service.NewWalletService(
		store,
		store,
		store,
		budgetSvc,
		gateway,
		profileCache,
		metrics,
		logger,
	)
	authSvc := service.NewAuthService(store, store, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, logger)

	// --- Router ---
	router := handler.NewRouter(walletSvc, budgetSvc, authSvc, metrics, logger)

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
