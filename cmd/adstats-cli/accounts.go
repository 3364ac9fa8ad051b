package main

import (
	"fmt"
	"time"

	"adstats/internal/cli"
	"adstats/internal/core"

	"github.com/spf13/cobra"
)

var windowsDate string

// accountsCmd represents the accounts command
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List the AdSense accounts visible to you",
	Long:  `List every account the signed-in identity can see. Summaries always use the first one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := cli.NewApp(ctx, cfg, nil, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		cred, err := app.Identity.Token(ctx)
		if err != nil {
			return err
		}
		accounts, err := app.Backend.ListAccounts(ctx, cred)
		if err != nil {
			return err
		}
		return cli.RenderAccounts(cmd.OutOrStdout(), accounts, outputFormat)
	},
}

// windowsCmd represents the windows command
var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "Print the report windows a run would request",
	Example: `  adstats windows
  adstats windows --date 2024-03-01 -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		if windowsDate != "" {
			d, err := core.ParseDate(windowsDate)
			if err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
			now = d.Time
		}
		return cli.RenderWindows(cmd.OutOrStdout(), core.ComputeWindows(now), outputFormat)
	},
}

func init() {
	windowsCmd.Flags().StringVar(&windowsDate, "date", "", "Compute windows as of this date (YYYY-MM-DD)")
	rootCmd.AddCommand(accountsCmd, windowsCmd)
}
