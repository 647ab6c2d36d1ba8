package main

import (
	"github.com/spf13/cobra"

	"medtriage/migrations"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back database migrations",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if args[0] == "down" {
			err = migrations.Down(cfg.Storage.DatabaseURL)
		} else {
			err = migrations.Up(cfg.Storage.DatabaseURL)
		}
		if err != nil {
			return err
		}
		logger.Info("migrations finished")
		return nil
	},
}
