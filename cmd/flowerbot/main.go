package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"flowerbot/internal/backend"
	"flowerbot/internal/bot"
	"flowerbot/internal/bot/telegram"
	"flowerbot/internal/cli"
	"flowerbot/internal/config"
	apphttp "flowerbot/internal/http"
	"flowerbot/internal/interpreter"
	applog "flowerbot/internal/log"
	"flowerbot/internal/report"
	"flowerbot/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, logger, err := cli.Bootstrap(applog.ComponentApp, (*config.Config).Validate)
	if err != nil {
		cli.Exit(logger, "Configuration validation failed", err)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		stop()
		cli.Exit(logger, "Bot stopped with error", err)
	}
	logger.Info("Bot stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	loc := cfg.Location()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if result.Cleanup == nil {
			return
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()
	logger.Info("Ledger backend ready", "backend", backendCfg.Type.String(), "timezone", loc.String())

	tg, err := telegram.New(cfg.TelegramBotToken, logger)
	if err != nil {
		return err
	}

	clock := func() time.Time { return time.Now().In(loc) }
	reports := report.New(result.Store, report.WithClock(clock), report.WithLogger(logger))
	b := bot.New(
		interpreter.New(),
		bot.NewRecorder(result.Store, clock, logger),
		reports,
		tg,
		bot.WithChunkSize(cfg.MessageChunkSize),
		bot.WithLogger(logger),
	)

	var sched *scheduler.Scheduler
	if chatID, ok := cfg.ReportChat(); ok {
		sched = scheduler.New(loc, logger)
		job := scheduler.NewReportJob("daily", chatID, reports, tg, cfg.MessageChunkSize)
		if err := sched.AddJob(ctx, cfg.ReportSchedule, job); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	var webhook http.Handler
	if cfg.Mode == config.ModeWebhook {
		webhook = tg.WebhookHandler(b.Handle)
		url := strings.TrimSuffix(cfg.WebhookURL, "/") + apphttp.WebhookPath(cfg.TelegramBotToken)
		if err := tg.SetWebhook(ctx, url); err != nil {
			return err
		}
	} else {
		g.Go(func() error { return tg.Poll(gctx, b.Handle) })
	}

	srv := apphttp.NewServer(":"+cfg.Port, cfg.TelegramBotToken, webhook, apphttp.WithLogger(logger))
	g.Go(func() error {
		logger.Info("Starting HTTP server", "port", cfg.Port, "mode", cfg.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server", applog.FieldOperation, applog.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if sched != nil {
		g.Go(func() error { return sched.Run(gctx) })
	}

	logger.Info("Bot is running", "mode", cfg.Mode, "username", tg.Username())
	return g.Wait()
}
