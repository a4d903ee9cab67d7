package main

import (
	"context"
	"errors"
	"os"
	"time"

	"michaucha/internal/backend"
	"michaucha/internal/cli"
	"michaucha/internal/config"
	"michaucha/internal/log"
	"michaucha/internal/services"
	gsheet "michaucha/internal/sheets/google"
	"michaucha/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker, os.Getenv("LOG_LEVEL"))
	logger.Info("Starting michaucha-worker")
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	b, err := backend.NewFactory(logger).Create(ctx, cfg, true)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	exporter, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:     cfg.GoogleSpreadsheetID,
		TransactionsSheet: cfg.GoogleSheetName,
		PeriodsSheet:      cfg.GooglePeriodsSheetName,
		CredentialsJSON:   cfg.GoogleServiceAccountJSON,
		CredentialsFile:   cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets exporter", "error", err)
		os.Exit(1)
	}

	w := worker.NewSyncWorker(b.Store, exporter, services.NewSummaryService(b.Store))
	if err := b.AMQP.Consume(ctx, w.Handle); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		_ = b.Close()
		os.Exit(1)
	}

	<-done
	logger.Info("Worker shutdown complete")
}
