package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/config"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/logging"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "assignment-tracker",
	Short: "Assignment tracker API server",
	Long: `assignment-tracker serves the assignment tracking API: custom assignments,
Canvas and Google Classroom sync, urgency buckets, calendar views and plan limits.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

func loadConfig() *config.Config {
	cfg := config.LoadFrom(envFile)
	logging.Setup(cfg.LogLevel)
	return cfg
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.AddCommand(serveCmd, migrateCmd, plansCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
