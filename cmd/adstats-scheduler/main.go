package main

import (
	"context"
	"os"
	"time"

	"adstats/internal/amqp"
	"adstats/internal/cli"
	applog "adstats/internal/log"
	"adstats/internal/scheduler"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentScheduler)
	logger.Info("Starting adstats-scheduler")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" || cfg.RefreshSchedule == "" {
		logger.Error("AMQP_URL and REFRESH_SCHEDULE are required for the scheduler")
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(context.Background(), amqp.Config{
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

	sched := scheduler.NewScheduler(amqpClient, cfg.RefreshSchedule, logger)
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		select {
		case <-sched.Stop().Done():
		case <-shutdownCtx.Done():
		}
		published, failed := sched.Stats()
		logger.Info("Scheduler stopped", "published", published, "failed", failed)
	})

	if err := sched.Start(); err != nil {
		logger.Error("Failed to start scheduler", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Refresh scheduler running",
		"schedule", cfg.RefreshSchedule,
		"next_run", sched.Next().Format(time.RFC3339))

	cli.WaitForShutdown(ctx, done)
}
