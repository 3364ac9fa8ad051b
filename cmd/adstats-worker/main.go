package main

import (
	"context"
	"errors"
	"os"
	"time"

	"adstats/internal/amqp"
	"adstats/internal/cli"
	applog "adstats/internal/log"
	"adstats/internal/worker"
)

// Requests older than this were superseded by later schedule ticks.
const staleRequestAge = 30 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting adstats-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	amqpClient, err := amqp.NewClient(ctx, amqp.Config{
		URL:               cfg.AMQPURL,
		Exchange:          cfg.AMQPExchange,
		Queue:             cfg.AMQPQueue,
		SummaryRoutingKey: cfg.AMQPSummaryRoutingKey,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
		os.Exit(1)
	}
	defer amqpClient.Close()

	app, err := cli.NewApp(ctx, cfg, amqpClient, logger)
	if err != nil {
		logger.Error("Failed to initialize application", applog.FieldError, err.Error())
		os.Exit(1)
	}
	defer app.Close()

	refreshWorker := worker.NewRefreshWorker(app.Runner, staleRequestAge, logger)

	// Publish a fresh summary on startup instead of waiting for the schedule.
	if err := refreshWorker.StartupRefresh(ctx); err != nil {
		logger.Error("Startup refresh failed", applog.FieldError, err.Error())
		// Don't exit - continue with normal operation
	}

	go func() {
		err := amqpClient.ConsumeRefreshRequests(ctx, refreshWorker.HandleRefreshRequest)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err.Error())
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
