package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"medtriage/internal/config"
	"medtriage/internal/observability"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "medtriage",
	Short: "AI-assisted symptom triage service",
	Long: `medtriage runs the triage HTTP API: intake validation, the follow-up
conversation, risk analysis, history and PDF reports.

Available subcommands:
  serve   - Run the HTTP server
  migrate - Apply or roll back database migrations
  report  - Render a saved history record to PDF`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "medtriage.yaml", "path to the YAML config file")
	rootCmd.AddCommand(serveCmd, migrateCmd, reportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the config and builds the process logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
