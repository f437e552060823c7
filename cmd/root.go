package cmd

import (
	"fmt"
	"os"

	"table-sync/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// configFile is an explicit config file set with --config.
var configFile string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "table-sync",
	Short: "Table Sync Service",
	Long: `Table Sync mirrors rows between Coda tables and Google Sheets worksheets.
Pipelines run from the command line or through the HTTP API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format and debug level give readable ISO8601 timestamps on the terminal
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			// Absolute fallback if logger creation fails (rare)
			fmt.Println(err)
		}
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ./config.yaml)")
}
