package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"coinpath/internal/amqp"
	"coinpath/internal/backend"
	"coinpath/internal/cli"
	"coinpath/internal/log"
	"coinpath/internal/services"
	"coinpath/internal/settings"
	"coinpath/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting coinpath-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	st, err := settings.Load(cfg.SettingsFile)
	if err != nil {
		logger.Error("Failed to load settings", log.FieldError, err, "path", cfg.SettingsFile)
		os.Exit(1)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).Create(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer res.Close()

	var (
		client    *amqp.Client
		publisher services.Publisher
	)
	if cfg.AMQPEnabled() {
		client, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		publisher = client
	}
	entries := services.NewEntryService(res.Store, publisher, logger)
	defer entries.Close()
	recurring := services.NewRecurringProcessor(entries, logger)

	scheduler, err := worker.NewScheduler(cfg.RecurringSchedule, func(ctx context.Context, now time.Time) error {
		_, err := recurring.ProcessDue(ctx, st.Recurring, now)
		return err
	}, logger)
	if err != nil {
		logger.Error("Invalid recurring schedule", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return scheduler.Run(gctx) })

	if client != nil && cfg.SheetsConfigured() {
		remote, err := backend.NewRemote(ctx, bcfg, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}

		replay := worker.NewReplayWorker(remote, logger)
		g.Go(func() error {
			err := client.ConsumeReplay(gctx, replay.HandleReplay)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		logger.Info("Replay consumer started", "queue", cfg.AMQPQueue, "service_account", remote.Email())
	} else {
		logger.Info("Skipping replay consumption - AMQP and Google Sheets are both required")
	}

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
