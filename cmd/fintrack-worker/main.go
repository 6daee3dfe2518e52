package main

import (
	"context"
	"errors"
	"os"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()
	logger = logger.WithComponent(log.ComponentWorker)

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Worker configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	// The worker only reads the store; it consumes events rather than publishing them.
	backendCfg.AMQPURL = ""
	result := cli.InitBackend(ctx, logger, backendCfg)
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	sheet, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	mirror := worker.NewSheetsMirror(result.Store, sheet, cfg.SheetsResyncSchedule)
	if err := mirror.Start(ctx); err != nil {
		logger.Error("Failed to start sheets mirror", log.FieldError, err)
		os.Exit(1)
	}

	consumeErr := make(chan error, 1)
	go func() {
		consumeErr <- amqpClient.Consume(ctx, mirror.HandleEvent)
	}()
	logger.Info("Fintrack worker started",
		log.FieldBackend, cfg.DataBackend,
		"queue", cfg.AMQPQueue,
		"schedule", cfg.SheetsResyncSchedule)

	select {
	case err := <-consumeErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
		cancel()
	case <-ctx.Done():
		<-consumeErr
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer stopCancel()
	if err := mirror.Stop(stopCtx); err != nil {
		logger.Error("Error stopping sheets mirror", log.FieldError, err)
	}
	logger.Info("Worker stopped")
}
