package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"adstats/internal/amqp"
	"adstats/internal/cli"
	apphttp "adstats/internal/http"
	applog "adstats/internal/log"
	"adstats/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	// Summary events are optional for the dashboard.
	var (
		publisher  services.SummaryPublisher
		amqpClient *amqp.Client
	)
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(context.Background(), amqp.Config{
			URL:               cfg.AMQPURL,
			Exchange:          cfg.AMQPExchange,
			Queue:             cfg.AMQPQueue,
			SummaryRoutingKey: cfg.AMQPSummaryRoutingKey,
		}, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, summary events disabled", applog.FieldError, err.Error())
		} else {
			amqpClient = client
			publisher = client
			defer amqpClient.Close()
		}
	}

	app, err := cli.NewApp(context.Background(), cfg, publisher, logger)
	if err != nil {
		logger.Error("Failed to initialize application", applog.FieldError, err.Error())
		os.Exit(1)
	}
	defer app.Close()

	checkers := map[string]apphttp.ReadinessChecker{"identity": app.Identity}
	if amqpClient != nil {
		checkers["amqp"] = amqpClient
	}

	srv := apphttp.NewServer(":"+cfg.Port, app.Runner, apphttp.Options{
		Logger:         logger,
		Checkers:       checkers,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// Configure server timeouts and limits. A refresh request holds the
	// connection for a whole run.
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.RunTimeout + 10*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err.Error())
		}
	})

	logger.Info("Starting adstats server",
		"port", cfg.Port,
		applog.FieldBackend, cfg.DataBackend,
		"fetch_concurrency", cfg.FetchConcurrency)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
