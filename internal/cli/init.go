// Package cli provides common initialization utilities for kasa's binaries.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kasa/internal/config"
	klog "kasa/internal/log"
)

// SetupLogger installs a text handler on w at the given level as the process
// default and returns the logger for component.
func SetupLogger(w io.Writer, level, component string) *klog.Logger {
	if w == nil {
		w = os.Stdout
	}
	h := klog.NewHandler(w, klog.ParseLevel(level))
	slog.SetDefault(slog.New(h))
	return klog.New(h, component)
}

// LoadEnvFile loads a .env file for local development. A missing file is
// not an error; production passes real environment variables.
func LoadEnvFile(paths ...string) {
	_ = godotenv.Load(paths...)
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *klog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", klog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. After
// the signal, cleanup runs with a context bounded by timeout and the
// returned channel closes once it has returned.
func GracefulShutdown(logger *klog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		<-ctx.Done()
		stop()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

// WaitForShutdown blocks until the shutdown sequence has finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
