package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fluent-loop/feed-engine/internal/api"
	"github.com/fluent-loop/feed-engine/internal/catalog"
	"github.com/fluent-loop/feed-engine/internal/config"
	"github.com/fluent-loop/feed-engine/internal/engine"
	"github.com/fluent-loop/feed-engine/internal/feed"
	"github.com/fluent-loop/feed-engine/internal/health"
	"github.com/fluent-loop/feed-engine/internal/locker"
	"github.com/fluent-loop/feed-engine/internal/storage"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting feed-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	healthChecks := health.NewRegistry()

	// Initialize persistence. An empty DSN runs the engine in a
	// store-less mode where only queue building is served.
	var repo storage.Repository
	if cfg.Database.DSN != "" {
		slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
		if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		pgRepo, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
			DSN:          cfg.Database.DSN,
			MaxOpenConns: int32(cfg.Database.MaxOpenConns),
			MaxIdleConns: int32(cfg.Database.MaxIdleConns),
		})
		if err != nil {
			slog.Error("failed to create database repository", "error", err)
			os.Exit(1)
		}
		repo = pgRepo
		slog.Info("database connected successfully")

		postgresPinger, err := health.NewPostgresPinger(cfg.Database.DSN)
		if err != nil {
			slog.Error("failed to create postgres pinger", "error", err)
			os.Exit(1)
		}
		defer postgresPinger.Close()
		healthChecks.Register("postgres", postgresPinger)
	} else {
		slog.Warn("DATABASE_DSN not set, running without persistence")
	}

	// Initialize aggregate locking. Redis serializes updates across
	// replicas; without it a per-process keyed mutex is used.
	var locks locker.Locker = locker.NewKeyedMutex()
	if cfg.Redis.Address != "" {
		redisLocker, err := locker.NewRedisLocker(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			slog.Error("failed to create redis locker", "error", err)
			os.Exit(1)
		}
		defer redisLocker.Close()
		locks = redisLocker

		redisPinger := health.NewRedisPinger(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		defer redisPinger.Close()
		healthChecks.Register("redis", redisPinger)
		slog.Info("redis connected successfully", "address", cfg.Redis.Address)
	} else {
		slog.Warn("REDIS_ADDRESS not set, using in-process locking")
	}

	// Load challenge catalog
	catalogLoader := catalog.NewLoader()
	if err := catalogLoader.LoadFromDir(cfg.Catalog.Dir); err != nil {
		slog.Warn("failed to load catalog from dir", "dir", cfg.Catalog.Dir, "error", err)
	}
	slog.Info("challenge catalog loaded", "challenges", catalogLoader.Len())

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start catalog refresh worker
	refresher := catalog.NewRefresher(catalogLoader, cfg.Catalog.Dir, cfg.Catalog.RefreshInterval)
	refresher.Start(ctx)

	// Initialize feed engine
	builder := feed.NewBuilder(rand.NewSource(time.Now().UnixNano()))
	eng := engine.New(catalogLoader, builder, repo, locks)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, eng, catalogLoader, healthChecks, cfg.Feed.BatchSize)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if repo != nil {
		repo.Close()
	}

	slog.Info("feed-engine stopped")
}
