package checks

import (
	"context"
	"testing"

	"treesync/core/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckStore(t *testing.T) {
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)

	t.Run("Missing Tables", func(t *testing.T) {
		report, err := CheckStore(db)
		require.NoError(t, err)
		assert.False(t, report.Matched)
		assert.Equal(t, "error", report.Tables["tree_nodes"].Status)
		assert.Contains(t, report.Tables["tree_nodes"].MissingColumns, "alt_id")
		assert.Contains(t, report.Tables["tree_states"].MissingColumns, "next_id")
	})

	t.Run("Missing Column", func(t *testing.T) {
		require.NoError(t, db.Exec("CREATE TABLE tree_states (scope TEXT PRIMARY KEY)").Error)
		report, err := CheckStore(db)
		require.NoError(t, err)
		assert.Equal(t, []string{"next_id"}, report.Tables["tree_states"].MissingColumns)
	})

	t.Run("Fixed", func(t *testing.T) {
		require.NoError(t, FixStore(context.Background(), db))
		report, err := CheckStore(db)
		require.NoError(t, err)
		assert.True(t, report.Matched)
		assert.Empty(t, report.Tables["tree_nodes"].MissingColumns)
		assert.Equal(t, "ok", report.Tables["tree_states"].Status)
	})
}

func TestCheckStore_NilDB(t *testing.T) {
	_, err := CheckStore(nil)
	assert.Error(t, err)
	assert.Error(t, FixStore(context.Background(), nil))
}
