package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"budgetfy/internal/aggregate"
	"budgetfy/internal/amqp"
	"budgetfy/internal/backend"
	"budgetfy/internal/budget"
	"budgetfy/internal/cache"
	"budgetfy/internal/config"
	"budgetfy/internal/currency"
	"budgetfy/internal/currency/exchangerate"
	apphttp "budgetfy/internal/http"
	applog "budgetfy/internal/log"
	"budgetfy/internal/storage"
	"budgetfy/internal/store"
	"budgetfy/internal/sync"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

	logger.Info("Starting budgetfy")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Local persistence for budgets and preferences.
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Remote document store backend.
	remoteClient, err := backend.NewFactory(logger.Logger).CreateRemote(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize remote backend", "error", err, "backend", cfg.RemoteBackend)
		os.Exit(1)
	}

	// AMQP is optional; without it entity changes simply are not broadcast.
	var publisher sync.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClientWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, 5)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized",
				"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - entity changes will not be broadcast")
	}

	entityStore := store.New()
	engine := sync.NewEngine(entityStore, remoteClient, publisher)
	aggregates := aggregate.NewService(entityStore)
	budgets := budget.NewTracker(repo, aggregates)

	rates := exchangerate.New(cfg.RatesAPIKey, cfg.RatesBaseURL)
	currencies := currency.NewService(rates)
	restoreTargetCurrency(ctx, repo, currencies, logger)

	cacheManager := cache.NewManager()
	cacheManager.Register(currencies.RatesCache())
	cacheManager.StartCleanup(cfg.CacheCleanupInterval)
	defer cacheManager.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, engine, aggregates, budgets, currencies, repo, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", "port", cfg.Port, "backend", cfg.RemoteBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}

// restoreTargetCurrency re-applies the persisted display currency selection,
// if any. The stored rate is reused as-is; no fetch happens at startup.
func restoreTargetCurrency(ctx context.Context, repo *storage.SQLiteRepository, currencies *currency.Service, logger *applog.Logger) {
	raw, err := repo.GetPreference(ctx, storage.PrefTargetCurrency)
	if errors.Is(err, storage.ErrNoPreference) {
		return
	}
	if err != nil {
		logger.Warn("Failed to load persisted currency selection", "error", err)
		return
	}

	var target currency.Currency
	if err := json.Unmarshal([]byte(raw), &target); err != nil || target.ID == "" {
		logger.Warn("Ignoring malformed persisted currency selection", "error", err)
		return
	}

	currencies.SetTarget(target)
	logger.Info("Restored display currency", "code", target.ID, "rate", target.Rate)
}
