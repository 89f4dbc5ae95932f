package local

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"treesync/core/reconcile"
	"treesync/core/tree"
)

func newMemSource(t *testing.T) (*Source, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/base/Docs/sub", 0o755))
	require.NoError(t, fsys.MkdirAll("/base/Photos", 0o755))
	require.NoError(t, afero.WriteFile(fsys, "/base/Docs/a.txt", []byte("hello"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/base/Docs/sub/b.txt", []byte("b"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/base/stray.txt", []byte("x"), 0o644))
	return NewSource(fsys, Config{Path: "/base", VolumeID: 5}, zap.NewNop()), fsys
}

func collect(t *testing.T, seq func(func(reconcile.Observation[uint64], error) bool)) ([]reconcile.Observation[uint64], error) {
	t.Helper()
	var out []reconcile.Observation[uint64]
	for obs, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, obs)
	}
	return out, nil
}

func names(obs []reconcile.Observation[uint64]) []string {
	var out []string
	for _, o := range obs {
		out = append(out, o.Name)
	}
	return out
}

func TestSource_Roots(t *testing.T) {
	src, _ := newMemSource(t)
	roots, err := collect(t, src.Roots(context.Background()))
	require.NoError(t, err)
	assert.Equal(t, []string{"Docs", "Photos"}, names(roots))
	for _, r := range roots {
		assert.Equal(t, tree.Directory, r.Type)
		assert.Equal(t, tree.VolumeID(5), r.AltID.VolumeID)
		assert.True(t, r.AltID.HasID())
	}
}

func TestSource_RootsMissingBase(t *testing.T) {
	src := NewSource(afero.NewMemMapFs(), Config{Path: "/nowhere", VolumeID: 5}, zap.NewNop())
	_, err := collect(t, src.Roots(context.Background()))
	assert.Error(t, err)
}

func TestSource_List(t *testing.T) {
	src, _ := newMemSource(t)
	docs, _, err := src.Resolve("Docs")
	require.NoError(t, err)

	entries, err := collect(t, src.List(context.Background(), reconcile.NodeRef[uint64]{AltID: docs, Path: "Docs", Type: tree.Directory}))
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt", "sub"}, names(entries))

	assert.Equal(t, tree.File, entries[0].Type)
	assert.Equal(t, int64(5), entries[0].Attributes.Size)
	assert.False(t, entries[0].Attributes.LastWriteTime.IsZero())
	assert.Equal(t, tree.Directory, entries[1].Type)
	assert.Zero(t, entries[1].Attributes.Size)
}

func TestSource_ListFailures(t *testing.T) {
	src, _ := newMemSource(t)
	ctx := context.Background()

	t.Run("missing directory", func(t *testing.T) {
		_, err := collect(t, src.List(ctx, reconcile.NodeRef[uint64]{Path: "Gone", Type: tree.Directory}))
		code, _, ok := reconcile.Classify[uint64](err)
		require.True(t, ok)
		assert.Equal(t, reconcile.CodeDirectoryNotFound, code)
	})

	t.Run("identity mismatch", func(t *testing.T) {
		wrong := AltID{VolumeID: 5, ID: 42}
		_, err := collect(t, src.List(ctx, reconcile.NodeRef[uint64]{AltID: wrong, Path: "Docs", Type: tree.Directory}))
		code, alt, ok := reconcile.Classify[uint64](err)
		require.True(t, ok)
		assert.Equal(t, reconcile.CodeIdentityMismatch, code)
		assert.Equal(t, wrong, alt)
	})
}

func TestSource_Fetch(t *testing.T) {
	src, _ := newMemSource(t)
	ctx := context.Background()
	file, _, err := src.Resolve("Docs/sub/b.txt")
	require.NoError(t, err)
	sub, _, err := src.Resolve("Docs/sub")
	require.NoError(t, err)

	obs, err := src.Fetch(ctx, reconcile.NodeRef[uint64]{AltID: file, Path: "Docs/sub/b.txt", Type: tree.File})
	require.NoError(t, err)
	assert.Equal(t, "b.txt", obs.Name)
	assert.Equal(t, sub, obs.ParentAltID)

	_, err = src.Fetch(ctx, reconcile.NodeRef[uint64]{AltID: file, Path: "Docs/sub/missing.txt", Type: tree.File})
	code, _, _ := reconcile.Classify[uint64](err)
	assert.Equal(t, reconcile.CodePathNotFound, code)

	_, err = src.Fetch(ctx, reconcile.NodeRef[uint64]{AltID: file, Path: "Docs/sub", Type: tree.File})
	code, _, _ = reconcile.Classify[uint64](err)
	assert.Equal(t, reconcile.CodeIdentityMismatch, code)
}

func TestSource_DrivesEngine(t *testing.T) {
	src, fsys := newMemSource(t)
	e := reconcile.New(tree.New[tree.NodeID, uint64](), reconcile.Options[tree.NodeID, uint64]{
		Source: src,
		Roots:  src,
		Logger: zap.NewNop(),
	})
	defer e.Close()
	ctx := context.Background()

	res, err := e.RunPass(ctx, reconcile.PassFull)
	require.NoError(t, err)
	// Docs, Photos, a.txt, sub, b.txt
	assert.Equal(t, 5, res.Created)

	require.NoError(t, fsys.Remove("/base/Docs/a.txt"))
	require.NoError(t, afero.WriteFile(fsys, "/base/Docs/sub/b.txt", []byte("longer"), 0o644))
	require.NoError(t, fsys.Chtimes("/base/Docs/sub/b.txt", time.Now(), time.Now().Add(time.Hour)))

	res, err = e.RunPass(ctx, reconcile.PassFull)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)
	assert.Equal(t, 1, res.Updated)

	alt, _, err := src.Resolve("Docs/sub/b.txt")
	require.NoError(t, err)
	m, ok, err := e.NodeByAltID(ctx, alt)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(6), m.Attributes.Size)
}
