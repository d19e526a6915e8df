// Package main is the entry point for the notifier API server.
//
// It loads configuration, connects to Postgres, runs pending migrations,
// wires the store registry, transaction manager, and event dispatcher into
// the HTTP chassis, and starts listening for requests.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"notifier/internal/api"
	"notifier/internal/api/handlers"
	"notifier/internal/config"
	"notifier/internal/db"
	"notifier/internal/dispatch"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("notifier API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Database pool + migrations.
	pool, err := db.NewPool(startupCtx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(startupCtx, pool, logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	stores := db.NewStoreRegistry(pool)
	tx := db.NewTxManager(pool)

	// Post-commit event dispatch. The audit log subscriber is always wired;
	// delivery workers subscribe through the same interface.
	dispatcher := dispatch.NewDispatcher(cfg.Dispatch, logger,
		dispatch.NewAuditLogSubscriber(logger),
	)

	srv, err := api.NewServer(cfg, stores, tx, dispatcher, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	srv.HealthProbes = append(srv.HealthProbes, api.ProbeFunc{
		ProbeName: "postgres",
		Fn:        pool.Ping,
	})

	// Rate limiting is optional: a missing or disabled Redis leaves the
	// middleware in pass-through mode.
	if cfg.RateLimit.Enabled {
		rlStore, err := api.NewRedisRateLimitStore(startupCtx, cfg.Redis.URL.Unmask(), cfg.RateLimit)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rlStore.Close()

		srv.RateLimitStore = rlStore
		srv.HealthProbes = append(srv.HealthProbes, api.ProbeFunc{
			ProbeName: "redis",
			Fn:        rlStore.Ping,
		})
	}

	// Wire the domain handlers.
	templateHandler := handlers.NewTemplateHandler(stores.Templates(), srv.Validator, logger)
	notificationHandler := handlers.NewNotificationHandler(stores, tx, dispatcher, srv.Validator, logger)
	attemptHandler := handlers.NewAttemptHandler(stores, tx, srv.Validator, logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		func(r chi.Router) { templateHandler.RegisterRoutes(r) },
		func(r chi.Router) { notificationHandler.RegisterRoutes(r) },
		func(r chi.Router) { attemptHandler.RegisterRoutes(r) },
	)

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *api.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
