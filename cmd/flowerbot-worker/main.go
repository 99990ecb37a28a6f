package main

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"flowerbot/internal/amqp"
	"flowerbot/internal/cli"
	"flowerbot/internal/config"
	gsheet "flowerbot/internal/ledger/google"
	applog "flowerbot/internal/log"
	"flowerbot/internal/storage"
	"flowerbot/internal/worker"
)

func main() {
	cfg, logger, err := cli.Bootstrap(applog.ComponentWorker, (*config.Config).ValidateWorker)
	if err != nil {
		cli.Exit(logger, "Configuration validation failed", err)
	}
	logger.Info("Starting flowerbot-worker")

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		stop()
		cli.Exit(logger, "Worker stopped with error", err)
	}
	logger.Info("Worker shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	loc := cfg.Location()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, loc, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	sheets, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
		Location:        loc,
		Logger:          logger.WithComponent(applog.ComponentSheets).Slog(),
	})
	if err != nil {
		return err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return err
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(repo, sheets, cfg.SyncBatchSize, logger)

	// Rows whose messages were lost while the worker was down.
	logger.Info("Performing startup sync check...", applog.FieldOperation, applog.OpStartup)
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", applog.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.ConsumeTransactionLogged(gctx, syncWorker.HandleTransactionLogged)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				logger.Info("Stopping periodic sync", applog.FieldOperation, applog.OpShutdown)
				return nil
			case <-ticker.C:
				if _, err := syncWorker.ProcessPending(gctx, 0); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Periodic sync failed", applog.FieldError, err)
				}
			}
		}
	})

	logger.Info("Worker running", "queue", cfg.AMQPQueue, "sync_interval", cfg.SyncInterval.String())
	return g.Wait()
}
