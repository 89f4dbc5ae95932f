package local

import (
	"context"
	"errors"
	"hash/fnv"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"treesync/core/reconcile"
	"treesync/core/tree"
)

// AltID is a local identity: the inode within a volume.
type AltID = tree.AltID[uint64]

// Source enumerates a base directory on an afero file system.
type Source struct {
	fs     afero.Fs
	base   string
	volume tree.VolumeID
	logger *zap.Logger
}

// NewSource creates a source over fsys rooted at cfg.Path.
func NewSource(fsys afero.Fs, cfg Config, logger *zap.Logger) *Source {
	s := &Source{
		fs:     fsys,
		base:   filepath.Clean(cfg.Path),
		volume: tree.VolumeID(cfg.VolumeID),
		logger: logger,
	}
	if s.volume == 0 {
		s.volume = s.deviceVolume()
	}
	return s
}

// Volume returns the volume id stamped on every identity.
func (s *Source) Volume() tree.VolumeID {
	return s.volume
}

// Base returns the base directory.
func (s *Source) Base() string {
	return s.base
}

// deviceVolume derives a volume id from the device of the base directory.
// Zero is reserved for unassigned identities, so it maps to 1.
func (s *Source) deviceVolume() tree.VolumeID {
	info, err := s.fs.Stat(s.base)
	if err != nil {
		return 1
	}
	if _, dev, ok := inode(info); ok && uint32(dev) != 0 {
		return tree.VolumeID(dev)
	}
	return 1
}

// Roots yields every directory directly under the base path.
func (s *Source) Roots(ctx context.Context) iter.Seq2[reconcile.Observation[uint64], error] {
	return func(yield func(reconcile.Observation[uint64], error) bool) {
		infos, err := s.readDir(s.base)
		if err != nil {
			yield(reconcile.Observation[uint64]{}, err)
			return
		}
		for _, info := range infos {
			if ctx.Err() != nil {
				return
			}
			if !info.IsDir() {
				continue
			}
			if !yield(s.observe(info.Name(), info), nil) {
				return
			}
		}
	}
}

// List yields the children of dir.
func (s *Source) List(ctx context.Context, dir reconcile.NodeRef[uint64]) iter.Seq2[reconcile.Observation[uint64], error] {
	return func(yield func(reconcile.Observation[uint64], error) bool) {
		full := s.abs(dir.Path)
		info, err := s.fs.Stat(full)
		if err != nil {
			yield(reconcile.Observation[uint64]{}, s.failure(err, reconcile.CodeDirectoryNotFound, dir.AltID))
			return
		}
		if !info.IsDir() {
			yield(reconcile.Observation[uint64]{}, reconcile.NewFailure(reconcile.CodeDirectoryNotFound, dir.AltID, fs.ErrInvalid))
			return
		}
		if got := s.identity(dir.Path, info); dir.AltID.HasID() && got != dir.AltID {
			yield(reconcile.Observation[uint64]{}, reconcile.NewFailure(reconcile.CodeIdentityMismatch, dir.AltID, nil))
			return
		}

		infos, err := s.readDir(full)
		if err != nil {
			yield(reconcile.Observation[uint64]{}, s.failure(err, reconcile.CodeDirectoryNotFound, dir.AltID))
			return
		}
		for _, child := range infos {
			if ctx.Err() != nil {
				return
			}
			if !child.IsDir() && !child.Mode().IsRegular() {
				s.logger.Debug("Skipping special file", zap.String("path", path.Join(dir.Path, child.Name())))
				continue
			}
			if !yield(s.observe(path.Join(dir.Path, child.Name()), child), nil) {
				return
			}
		}
	}
}

// Fetch reads one node by path and verifies its identity.
func (s *Source) Fetch(ctx context.Context, ref reconcile.NodeRef[uint64]) (reconcile.Observation[uint64], error) {
	if err := ctx.Err(); err != nil {
		return reconcile.Observation[uint64]{}, err
	}
	info, err := s.fs.Stat(s.abs(ref.Path))
	if err != nil {
		return reconcile.Observation[uint64]{}, s.failure(err, reconcile.CodePathNotFound, ref.AltID)
	}
	obs := s.observe(ref.Path, info)
	if ref.AltID.HasID() && obs.AltID != ref.AltID {
		return reconcile.Observation[uint64]{}, reconcile.NewFailure(reconcile.CodeIdentityMismatch, ref.AltID, nil)
	}
	if ref.Type.Valid() && obs.Type != ref.Type {
		return reconcile.Observation[uint64]{}, reconcile.NewFailure(reconcile.CodeIdentityMismatch, ref.AltID, nil)
	}

	parent := path.Dir(ref.Path)
	if parent != "." {
		pinfo, err := s.fs.Stat(s.abs(parent))
		if err != nil {
			return reconcile.Observation[uint64]{}, s.failure(err, reconcile.CodePathNotFound, ref.AltID)
		}
		obs.ParentAltID = s.identity(parent, pinfo)
	}
	return obs, nil
}

// Resolve returns the identity of the node at rel, a path relative to the
// base directory.
func (s *Source) Resolve(rel string) (AltID, tree.NodeType, error) {
	info, err := s.fs.Stat(s.abs(rel))
	if err != nil {
		return AltID{}, 0, err
	}
	typ := tree.File
	if info.IsDir() {
		typ = tree.Directory
	}
	return s.identity(rel, info), typ, nil
}

func (s *Source) observe(rel string, info os.FileInfo) reconcile.Observation[uint64] {
	obs := reconcile.Observation[uint64]{
		AltID: s.identity(rel, info),
		Name:  info.Name(),
		Type:  tree.File,
	}
	if info.IsDir() {
		obs.Type = tree.Directory
		return obs
	}
	obs.Attributes = tree.Attributes{
		Size:          info.Size(),
		LastWriteTime: info.ModTime().UTC(),
	}
	return obs
}

func (s *Source) identity(rel string, info os.FileInfo) AltID {
	if ino, _, ok := inode(info); ok {
		return AltID{VolumeID: s.volume, ID: ino}
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(filepath.ToSlash(rel)))
	id := h.Sum64()
	if id == 0 {
		id = 1
	}
	return AltID{VolumeID: s.volume, ID: id}
}

func (s *Source) readDir(dir string) ([]os.FileInfo, error) {
	// Sorted by name.
	return afero.ReadDir(s.fs, dir)
}

func (s *Source) abs(rel string) string {
	if rel == "" || rel == "." {
		return s.base
	}
	return filepath.Join(s.base, filepath.FromSlash(rel))
}

// failure classifies a file-system error. absent is the code used when the
// path does not exist.
func (s *Source) failure(err error, absent reconcile.FailureCode, alt AltID) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return reconcile.NewFailure(absent, alt, err)
	case errors.Is(err, fs.ErrPermission):
		return reconcile.NewFailure(reconcile.CodeSharingViolation, alt, err)
	default:
		return reconcile.NewFailure(reconcile.CodeUnknown, alt, err)
	}
}
