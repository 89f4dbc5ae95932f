package checks

import (
	"context"
	"fmt"
	"sync"

	"treesync/core/database"
	"treesync/core/tree"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// StoreReport strictly types the result of a tree store check.
type StoreReport struct {
	Matched bool                   `json:"matched"`
	Tables  map[string]TableReport `json:"tables"`
	Errors  []string               `json:"errors"`
}

type TableReport struct {
	MissingColumns []string `json:"missing_columns"`
	Status         string   `json:"status"` // "ok", "error"
}

// storeModels are the GORM models whose tables the tree store relies on.
var storeModels = []any{&tree.NodeRecord{}, &tree.StateRecord{}}

// CheckStore verifies the tree store schema using its GORM models as the source of truth.
func CheckStore(db *gorm.DB) (*StoreReport, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	report := &StoreReport{
		Matched: true,
		Tables:  make(map[string]TableReport),
		Errors:  []string{},
	}

	cache := &sync.Map{}
	for _, model := range storeModels {
		s, err := schema.Parse(model, cache, db.NamingStrategy)
		if err != nil {
			return nil, fmt.Errorf("failed to parse model %T: %w", model, err)
		}

		missing, err := database.MissingColumns(db, s.Table, s.DBNames)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("Failed to inspect table %s: %v", s.Table, err))
			report.Matched = false
			continue
		}

		tbl := TableReport{MissingColumns: []string{}, Status: "ok"}
		if len(missing) > 0 {
			tbl.MissingColumns = missing
			tbl.Status = "error"
			report.Matched = false
		}
		report.Tables[s.Table] = tbl
	}

	return report, nil
}

// FixStore creates or updates the tree store tables.
func FixStore(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	if err := db.WithContext(ctx).AutoMigrate(storeModels...); err != nil {
		return fmt.Errorf("failed to migrate tree tables: %w", err)
	}
	return nil
}
