// Package cli provides common CLI initialization utilities shared by
// cmd/fintrack, cmd/fintrack-worker and cmd/fintrack-useradd.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config) *log.Logger {
	conf := log.DefaultConfig()
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		conf.Level = level
	}
	conf.Format = cfg.LogFormat

	logger := log.New(conf)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() (*config.Config, *log.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// InitBackend opens the configured record store.
// Exits the process on failure.
func InitBackend(ctx context.Context, logger *log.Logger, cfg backend.Config) *backend.BackendResult {
	result, err := backend.NewFactory(logger).CreateBackend(ctx, cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize backend",
			log.FieldError, err,
			log.FieldBackend, cfg.Type.String())
		os.Exit(1)
	}
	return result
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
