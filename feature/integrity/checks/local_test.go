package checks

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCheckLocal(t *testing.T) {
	fsys := afero.NewMemMapFs()

	report, err := CheckLocal(fsys, "/sync")
	require.NoError(t, err)
	assert.False(t, report.Exists)

	require.NoError(t, FixLocal(fsys, "/sync", zap.NewNop()))
	require.NoError(t, fsys.MkdirAll("/sync/Docs", 0o755))
	require.NoError(t, afero.WriteFile(fsys, "/sync/stray.txt", []byte("x"), 0o644))

	report, err = CheckLocal(fsys, "/sync")
	require.NoError(t, err)
	assert.True(t, report.Exists)
	assert.Equal(t, 1, report.Roots)
}

func TestCheckLocal_NotADirectory(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/sync", []byte("x"), 0o644))

	report, err := CheckLocal(fsys, "/sync")
	require.NoError(t, err)
	assert.False(t, report.Exists)
}
