// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command oetranslationd runs the translation request service.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/openeuropa/oe-translation-sub001/internal/allocator"
	"github.com/openeuropa/oe-translation-sub001/internal/cache"
	"github.com/openeuropa/oe-translation-sub001/internal/config"
	"github.com/openeuropa/oe-translation-sub001/internal/content"
	"github.com/openeuropa/oe-translation-sub001/internal/handler"
	"github.com/openeuropa/oe-translation-sub001/internal/lifecycle"
	"github.com/openeuropa/oe-translation-sub001/internal/logging"
	"github.com/openeuropa/oe-translation-sub001/internal/mapping"
	"github.com/openeuropa/oe-translation-sub001/internal/provider"
	"github.com/openeuropa/oe-translation-sub001/internal/scheduler"
	"github.com/openeuropa/oe-translation-sub001/internal/store"
	"github.com/openeuropa/oe-translation-sub001/internal/synchronizer"
	"github.com/openeuropa/oe-translation-sub001/internal/version"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	baseHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})

	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := store.Migrate(db); err != nil {
		return err
	}

	// WARN and above land in the events table for auditing.
	logger := slog.New(logging.NewEventLogHandler(baseHandler, db))
	slog.SetDefault(logger)

	logger.Info("starting translation service",
		"version", version.Get(), "env", cfg.Env, "db", cfg.DBPath)

	sharedCache, err := cache.New(cache.Config{
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		DefaultTTL:      time.Duration(cfg.CacheTTL) * time.Second,
		MaxSize:         cfg.CacheMaxSize,
		CleanupInterval: time.Minute,
	})
	if err != nil {
		return err
	}
	defer func() { _ = sharedCache.Close() }()

	providers := provider.NewRegistry(logger)
	client, err := provider.NewClient(cfg.ProviderDryRun)
	if err != nil {
		return err
	}
	logger.Info("provider submissions run in dry-run mode")
	if err := providers.Register(provider.NewEPoetry(client)); err != nil {
		return err
	}
	if err := providers.Register(provider.NewCDT(client)); err != nil {
		return err
	}

	contentStore := content.NewMemoryStore()

	h := handler.New(handler.Options{
		DB:        db,
		Lifecycle: lifecycle.New(db, providers, logger),
		Sync:      synchronizer.New(db, contentStore, providers, logger),
		Allocator: allocator.New(db, cfg.RequesterCode, cfg.SequenceToken, logger),
		Resolver:  mapping.New(db, contentStore, logger),
		Providers: providers,
		Refs:      cache.NewReferenceCache(sharedCache, time.Duration(cfg.CacheTTL)*time.Second),
		Content:   contentStore,
		Logger:    logger,
	})

	sched := scheduler.New(logger)
	if err := sched.Register(cfg.DeadlineCron, scheduler.NewDeadlineWatchdog(db, logger)); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Mount("/", h.Routes(cfg.CallbackAPIKey))

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
