package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohangy/azii/internal/config"
	"github.com/mohangy/azii/internal/domain"
	"github.com/mohangy/azii/internal/fuzzy"
	"github.com/mohangy/azii/internal/handler"
	"github.com/mohangy/azii/internal/infra/broker"
	"github.com/mohangy/azii/internal/infra/cache"
	"github.com/mohangy/azii/internal/infra/observability"
	"github.com/mohangy/azii/internal/infra/scheduler"
	"github.com/mohangy/azii/internal/port"
	"github.com/mohangy/azii/internal/service"

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
		zap.Float64("fuzzy_threshold", cfg.FuzzyThreshold),
		zap.Int("fuzzy_max_results", cfg.FuzzyMaxResults),
		zap.String("auto_sync_schedule", cfg.AutoSyncSchedule),
	)

	// --- Tracing ---
	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "azii")
		if err != nil {
			logger.Fatal("failed to init tracer", zap.Error(err))
		}
		defer shutdown(context.Background())
	}

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Stores ---
	st, err := openStores(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer st.close()

	if cfg.SeedFile != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := st.loadSeed(ctx, cfg.SeedFile, logger)
		cancel()
		if err != nil {
			logger.Fatal("failed to load seed data", zap.Error(err))
		}
	}

	// --- Notifications ---
	checks := st.checks
	var notifier port.Notifier = broker.NewLogNotifier(logger)
	if cfg.AMQPURL != "" {
		pub, err := broker.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			logger.Fatal("failed to connect to broker", zap.Error(err))
		}
		defer pub.Close()
		notifier = pub
		checks = append(checks, handler.HealthCheck{Name: "amqp", Check: pub.Ping})
		logger.Info("publishing notifications", zap.String("exchange", cfg.AMQPExchange))
	}

	// --- Cache ---
	directoryCache := cache.New[[]domain.Subscriber](cfg.CacheTTL)
	defer directoryCache.Close()

	// --- Services ---
	searchSvc := service.NewSearchService(
		st.subscribers,
		directoryCache,
		fuzzy.Options{
			Threshold:  cfg.FuzzyThreshold,
			MaxResults: cfg.FuzzyMaxResults,
			Fuzzy:      cfg.FuzzyEnabled,
		},
		metrics,
		logger,
	)
	accountingSvc := service.NewAccountingService(
		st.transactions,
		st.income,
		st.expenses,
		searchSvc,
		notifier,
		cfg.Location(),
		metrics,
		logger,
	)

	// --- Auto-sync ---
	if cfg.AutoSyncSchedule != "" {
		sched := scheduler.New(cfg.AutoSyncSchedule, cfg.Location(), accountingSvc, time.Minute, logger)
		if err := sched.Start(); err != nil {
			logger.Fatal("failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	// --- Router ---
	router := handler.NewRouter(searchSvc, accountingSvc, checks, metrics, logger)

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
		logger.Error("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
