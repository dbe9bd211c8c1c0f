// Package cli wires the hourcal commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped at build time.
var Version = "0.1.0-dev"

var rootCmd = &cobra.Command{
	Use:   "hourcal",
	Short: "Time tracking from calendar events",
	Long: `hourcal turns calendar events titled "Project#activity description" into
per-project and per-activity hour totals.

It syncs ICS subscriptions and Google Calendar into a local SQLite database,
serves a small dashboard with a JSON API, and prints reports in the terminal.`,
	SilenceUsage: true,
	Version:      Version,
}

// Persistent flags
var (
	configPath string
	logLevel   string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./hourcal.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
