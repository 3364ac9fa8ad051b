package main

import (
	"fmt"
	"time"

	"adstats/internal/amqp"
	"adstats/internal/cli"
	"adstats/internal/core"

	"github.com/spf13/cobra"
)

// summaryCmd represents the summary command
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Fetch and print the earnings summary",
	Long: `Run one aggregation: resolve the first account, fetch this month, last
month and each of the last seven days, and print the summary. The command
exits non-zero when the run fails.`,
	Example: `  adstats summary
  adstats summary -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := cli.NewApp(ctx, cfg, nil, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		res, err := app.Runner.Refresh(ctx)
		if err != nil {
			return err
		}
		if err := cli.RenderResult(cmd.OutOrStdout(), res, outputFormat, time.Now()); err != nil {
			return err
		}
		if res.Status == core.StatusError {
			return fmt.Errorf("aggregation failed: %s", res.ErrorKind)
		}
		return nil
	},
}

// requestRefreshCmd represents the request-refresh command
var requestRefreshCmd = &cobra.Command{
	Use:   "request-refresh",
	Short: "Queue a refresh for the workers",
	Long:  `Publish a refresh request to AMQP. A running adstats-worker performs the run and publishes the summary event.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if cfg.AMQPURL == "" {
			return fmt.Errorf("AMQP_URL is required to queue a refresh")
		}

		client, err := amqp.NewClient(ctx, amqp.Config{
			URL:               cfg.AMQPURL,
			Exchange:          cfg.AMQPExchange,
			Queue:             cfg.AMQPQueue,
			SummaryRoutingKey: cfg.AMQPSummaryRoutingKey,
		}, logger)
		if err != nil {
			return err
		}
		defer client.Close()

		id, err := client.PublishRefreshRequest(ctx, amqp.SourceCLI)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Queued refresh request %s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd, requestRefreshCmd)
}
