package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"treesync/core/config"
	"treesync/core/database"
	"treesync/core/logger"
	"treesync/core/storage"
	"treesync/feature/integrity"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	doctorFix  bool
	doctorJSON bool
)

// doctorCmd checks the resources treesync depends on.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the tree store, the bucket and the synced directory",
	Long: `Checks that the tree store tables are complete, that the mirrored bucket
exists and that the synced directory exists. With --fix, failing checks are
repaired by migrating the tables, creating the bucket or creating the directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		l, err := logger.New(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer l.Sync()

		svc := integrity.NewService(doctorOptions(cfg, l), l)
		report := svc.CheckAll(cmd.Context(), doctorFix)

		if doctorJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		} else {
			logReport(l, report)
		}
		if !report.Healthy {
			return fmt.Errorf("integrity checks failed")
		}
		return nil
	},
}

// doctorOptions opens what can be opened; a failed connection leaves the
// resource nil and its check reports it.
func doctorOptions(cfg *config.Config, l *zap.Logger) integrity.Options {
	opts := integrity.Options{
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		Prefix:    cfg.Remote.Prefix,
		Fs:        afero.NewOsFs(),
		LocalPath: cfg.Local.Path,
	}
	if db, err := database.Connect(cfg.Database); err != nil {
		l.Warn("Database connection failed", zap.Error(err))
	} else {
		opts.DB = db
	}
	if client, err := storage.NewClient(cfg.Storage); err != nil {
		l.Warn("Storage client creation failed", zap.Error(err))
	} else {
		opts.Client = client
	}
	return opts
}

func logReport(l *zap.Logger, r *integrity.Report) {
	if r.Store != nil {
		for table, tbl := range r.Store.Tables {
			l.Info("Store table", zap.String("table", table), zap.String("status", tbl.Status),
				zap.Strings("missing_columns", tbl.MissingColumns))
		}
	}
	if r.Bucket != nil {
		l.Info("Bucket", zap.String("bucket", r.Bucket.Bucket), zap.Bool("exists", r.Bucket.Exists),
			zap.Int("roots", r.Bucket.Roots))
	}
	if r.Local != nil {
		l.Info("Local directory", zap.String("path", r.Local.Path), zap.Bool("exists", r.Local.Exists),
			zap.Int("roots", r.Local.Roots))
	}
	for check, msg := range r.Errors {
		l.Error("Check failed", zap.String("check", check), zap.String("error", msg))
	}
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Repair failing checks")
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Output the report as JSON")
	RootCmd.AddCommand(doctorCmd)
}
