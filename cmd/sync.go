package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"treesync/core/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fullPass bool

// syncCmd runs a single pass and exits.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one reconciliation pass",
	Long: `Runs one pass on each selected side and persists the result.

Examples:
  # Incremental pass over flagged nodes
  treesync sync

  # Full enumeration of the remote side only
  treesync sync --full --side remote`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := bootstrap(ctx, sideFlag)
		if err != nil {
			return err
		}
		defer rt.Close()

		mode := reconcile.PassDirty
		if fullPass {
			mode = reconcile.PassFull
		}
		return rt.runPasses(ctx, mode)
	},
}

// watchCmd runs passes until interrupted.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reconcile continuously without the HTTP server",
	Long:  `Runs periodic passes and follows the change feeds of the selected sides until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := bootstrap(ctx, sideFlag)
		if err != nil {
			return err
		}
		defer rt.Close()

		rt.logger.Info("Watching", zap.String("side", sideFlag))
		return rt.serve(ctx)
	},
}

func init() {
	syncCmd.Flags().BoolVar(&fullPass, "full", false, "Enumerate every sync root instead of flagged nodes only")
	RootCmd.AddCommand(syncCmd)
	RootCmd.AddCommand(watchCmd)
}
