package cmd

import (
	"fmt"
	"os"

	"treesync/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "treesync",
	Short: "Two-way tree sync client",
	Long: `treesync keeps a local directory and an S3-compatible bucket mirrored.
It maintains a persisted tree per side and reconciles each one against
its side through full and incremental passes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var sideFlag string

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format with debug level gives ISO8601 timestamps for CLI output.
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&sideFlag, "side", "both", "Engine side to run (local, remote or both)")
}
