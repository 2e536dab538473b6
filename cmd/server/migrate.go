package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		db, err := database.Open(cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := database.Migrate(db); err != nil {
			return err
		}
		slog.Info("migration complete", "driver", cfg.DBDriver)
		return nil
	},
}
