package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"coinpath/internal/amqp"
	"coinpath/internal/backend"
	"coinpath/internal/cli"
	"coinpath/internal/config"
	apphttp "coinpath/internal/http"
	"coinpath/internal/log"
	"coinpath/internal/services"
	"coinpath/internal/settings"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
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
	if res.Notice != "" {
		logger.Warn(res.Notice, log.FieldBackend, cfg.DataBackend)
	}

	entries := services.NewEntryService(res.Store, newPublisher(cfg, logger), logger)

	opts := apphttp.Options{Settings: st, Logger: logger}
	if res.Remote != nil {
		opts.RemoteEmail = res.Remote.Email()
	}
	srv := apphttp.NewServer(":"+cfg.Port, entries, opts)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := entries.Close(); err != nil {
			logger.Error("Failed to close replay publisher", log.FieldError, err)
		}
		if err := res.Close(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	})

	status := res.Store.Status()
	logger.Info("Starting coinpath server",
		"port", cfg.Port,
		log.FieldBackend, status.Primary,
		"fallback", status.Fallback,
		"replay_queue", cfg.AMQPEnabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// newPublisher connects the replay queue when configured. It returns a nil
// interface, not a nil *amqp.Client, when the queue is off or unreachable.
func newPublisher(cfg *config.Config, logger *log.Logger) services.Publisher {
	if !cfg.AMQPEnabled() {
		logger.Info("Replay queue disabled - no AMQP_URL provided")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Warn("Replay queue unavailable, fallback writes will not be replayed", log.FieldError, err)
		return nil
	}
	return client
}
