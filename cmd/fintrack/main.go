package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result := cli.InitBackend(ctx, logger, backendCfg)
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	srv, err := apphttp.NewServer(":"+cfg.Port, result.Store, apphttp.Options{
		Logger:                logger,
		RateLimitPerMinute:    cfg.RateLimitPerMinute,
		TrustedProxies:        cfg.TrustedProxies,
		DashboardPollInterval: cfg.DashboardPollInterval,
		EventsEnabled:         result.EventsEnabled,
	})
	if err != nil {
		logger.Error("Failed to create server", log.FieldError, err)
		os.Exit(1)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting fintrack server",
			"port", cfg.Port,
			log.FieldBackend, cfg.DataBackend,
			"ledger_events", result.EventsEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			cancel()
			return
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
