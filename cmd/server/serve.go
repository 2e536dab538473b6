package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/spf13/cobra"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/database"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/logging"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	if cfg.DBDriver != "sqlite" && cfg.DBPassword == "" {
		return errors.New("DB_PASSWORD environment variable is required")
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		return err
	}
	if err := database.Migrate(database.DB); err != nil {
		return err
	}

	// ERROR+ records also go to system_logs
	dbLogHandler := logging.NewDBHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		logging.NewJSONHandler(os.Stdout, cfg.LogLevel),
		dbLogHandler,
	)))

	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cfg.LogRetention, cleanupDone)

	// Sentry error tracking
	var extra []server.Option
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
			extra = append(extra, server.WithMiddleware(sentryfiber.New(sentryfiber.Options{
				Repanic:         true,
				WaitForDelivery: false,
			})))
		}
	}

	srv, err := server.New(cfg, database.DB, extra...)
	if err != nil {
		return err
	}
	slog.Info("plans loaded", "tiers", len(srv.Catalog.All()))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port)
		listenErr <- srv.App.Listen(":" + cfg.Port)
	}()

	var runErr error
	select {
	case <-quit:
	case runErr = <-listenErr:
		slog.Error("server failed to start", "error", runErr)
	}
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(cleanupDone)
	dbLogHandler.Stop()

	if err := database.Close(database.DB); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
	return runErr
}

