package checks

import (
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// LocalReport is the result of a local directory check.
type LocalReport struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
	// Roots counts the directories directly under Path.
	Roots int `json:"roots"`
}

// CheckLocal reports whether the synced directory exists and how many sync
// roots it holds.
func CheckLocal(fsys afero.Fs, path string) (*LocalReport, error) {
	report := &LocalReport{Path: path}
	ok, err := afero.DirExists(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !ok {
		return report, nil
	}
	report.Exists = true

	entries, err := afero.ReadDir(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			report.Roots++
		}
	}
	return report, nil
}

// FixLocal creates the synced directory.
func FixLocal(fsys afero.Fs, path string, logger *zap.Logger) error {
	if err := fsys.MkdirAll(path, 0o755); err != nil {
		logger.Error("Failed to create directory", zap.String("path", path), zap.Error(err))
		return err
	}
	logger.Info("Created missing directory", zap.String("path", path))
	return nil
}
