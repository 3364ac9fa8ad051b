package main

import (
	"context"
	"fmt"
	"os"

	"adstats/internal/cli"
	"adstats/internal/config"
	applog "adstats/internal/log"

	"github.com/spf13/cobra"
)

var (
	outputFormat string
	verbose      bool

	cfg    *config.Config
	logger *applog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "adstats",
	Short: "Summarize AdSense earnings from the command line",
	Long: `adstats signs in to Google, resolves the first AdSense account visible to
you and reports month-to-date earnings, last month's earnings, the change
between them and the last seven days.

Configuration is read from the environment (and a .env file when present),
the same variables the server and worker use.`,
	Example: `  # Sign in once; the token is stored for later runs
  adstats signin

  # Print the summary as a table or JSON
  adstats summary
  adstats summary -o json

  # Ask the workers to refresh instead of fetching locally
  adstats request-refresh`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cli.LoadEnvFile()

		level := "warn"
		if verbose {
			level = "debug"
		}
		logger = applog.New(applog.Config{
			Level:     applog.ParseLevel(level),
			Format:    "text",
			Component: applog.ComponentCLI,
			Output:    os.Stderr,
		})
		applog.SetDefault(logger)

		cfg = config.Load()
		return cfg.Validate()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", cli.FormatTable, "Output format (table, json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
}
