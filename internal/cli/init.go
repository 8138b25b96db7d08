// Package cli provides common initialization utilities for the binaries
// under cmd/.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"spendwatch/internal/backend"
	"spendwatch/internal/config"
	applog "spendwatch/internal/log"
)

// SetupLogger initializes structured logging from LOG_LEVEL and LOG_FORMAT
// and installs it as the default logger. Unknown values fall back to info
// and text.
func SetupLogger(component string) *applog.Logger {
	level, levelErr := applog.ParseLevel(os.Getenv("LOG_LEVEL"))
	logger, formatErr := applog.NewFormat(os.Stdout, os.Getenv("LOG_FORMAT"), level, component)
	applog.SetDefault(logger)
	if levelErr != nil {
		logger.Warn("Unknown log level, using info", "error", levelErr)
	}
	if formatErr != nil {
		logger.Warn("Unknown log format, using text", "error", formatErr)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitStateStore builds the alert ledger selected by STATE_BACKEND.
// Exits the process on failure.
func InitStateStore(ctx context.Context, logger *applog.Logger, factory backend.Factory, cfg backend.Config) *backend.BackendResult {
	res, err := factory.CreateStateStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize alert state store", "error", err, "backend", cfg.Type)
		os.Exit(1)
	}
	return res
}

// InitNotifier builds the notifier of the given kind. Exits the process on
// failure.
func InitNotifier(ctx context.Context, logger *applog.Logger, factory backend.Factory, cfg backend.Config, kind backend.NotifierKind) *backend.NotifierResult {
	res, err := factory.CreateNotifier(ctx, cfg, kind)
	if err != nil {
		logger.Error("Failed to initialize notifier", "error", err, "notifier", kind)
		os.Exit(1)
	}
	return res
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has finished.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}

// Close runs fn and logs its error under name.
func Close(logger *applog.Logger, name string, fn backend.CleanupFunc) {
	if fn == nil {
		return
	}
	if err := fn(); err != nil {
		logger.Error("Failed to close resource", "resource", name, "error", err)
	}
}

