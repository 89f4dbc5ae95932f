package remote

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"treesync/core/reconcile"
	"treesync/core/storage"
	"treesync/core/tree"
)

// AltID is a remote identity: a prefix key or a node id.
type AltID = tree.AltID[string]

// Source enumerates a bucket through a storage client.
type Source struct {
	client storage.Client
	bucket string
	cfg    Config
	logger *zap.Logger
}

// NewSource creates a source over bucket.
func NewSource(client storage.Client, bucket string, cfg Config, logger *zap.Logger) *Source {
	if cfg.Prefix != "" && !strings.HasSuffix(cfg.Prefix, "/") {
		cfg.Prefix += "/"
	}
	if cfg.NodeIDKey == "" {
		cfg.NodeIDKey = "Node-Id"
	}
	if cfg.VolumeID == 0 {
		cfg.VolumeID = 1
	}
	return &Source{client: client, bucket: bucket, cfg: cfg, logger: logger}
}

// Volume returns the volume id stamped on every identity.
func (s *Source) Volume() tree.VolumeID {
	return tree.VolumeID(s.cfg.VolumeID)
}

// Roots yields the top-level prefixes.
func (s *Source) Roots(ctx context.Context) iter.Seq2[reconcile.Observation[string], error] {
	return func(yield func(reconcile.Observation[string], error) bool) {
		objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.cfg.Prefix})
		for info := range objects {
			if info.Err != nil {
				yield(reconcile.Observation[string]{}, fmt.Errorf("failed to list roots: %w", info.Err))
				return
			}
			if !strings.HasSuffix(info.Key, "/") {
				continue
			}
			obs := s.observe(s.cfg.Prefix, info)
			if !validName(obs.Name) {
				s.logger.Warn("Skipping unrepresentable root", zap.String("key", info.Key))
				continue
			}
			if !yield(obs, nil) {
				return
			}
		}
	}
}

// List yields the objects and prefixes directly under dir.
func (s *Source) List(ctx context.Context, dir reconcile.NodeRef[string]) iter.Seq2[reconcile.Observation[string], error] {
	return func(yield func(reconcile.Observation[string], error) bool) {
		prefix := s.dirKey(dir.Path)
		if dir.AltID.HasID() && dir.AltID.ID != prefix {
			yield(reconcile.Observation[string]{}, reconcile.NewFailure(reconcile.CodeIdentityMismatch, dir.AltID, nil))
			return
		}

		objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
			Prefix:       prefix,
			WithMetadata: true,
		})
		for info := range objects {
			if info.Err != nil {
				yield(reconcile.Observation[string]{}, s.failure(info.Err, reconcile.CodeDirectoryNotFound, dir.AltID))
				return
			}
			// Directory marker object.
			if info.Key == prefix {
				continue
			}
			obs := s.observe(prefix, info)
			if !validName(obs.Name) {
				s.logger.Warn("Skipping unrepresentable key", zap.String("key", info.Key))
				continue
			}
			if !yield(obs, nil) {
				return
			}
		}
	}
}

// Fetch reads one node by path and verifies its identity.
func (s *Source) Fetch(ctx context.Context, ref reconcile.NodeRef[string]) (reconcile.Observation[string], error) {
	parent := AltID{VolumeID: s.Volume(), ID: s.dirKey(path.Dir(ref.Path))}
	if path.Dir(ref.Path) == "." {
		parent = AltID{}
	}

	if ref.Type == tree.Directory {
		key := s.dirKey(ref.Path)
		found, err := s.exists(ctx, key)
		if err != nil {
			return reconcile.Observation[string]{}, s.failure(err, reconcile.CodePathNotFound, ref.AltID)
		}
		if !found {
			return reconcile.Observation[string]{}, reconcile.NewFailure(reconcile.CodePathNotFound, ref.AltID, nil)
		}
		return reconcile.Observation[string]{
			AltID:       AltID{VolumeID: s.Volume(), ID: key},
			Name:        path.Base(ref.Path),
			Type:        tree.Directory,
			ParentAltID: parent,
		}, nil
	}

	key := s.cfg.Prefix + ref.Path
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return reconcile.Observation[string]{}, s.failure(err, reconcile.CodePathNotFound, ref.AltID)
	}
	obs := s.observe(s.dirKey(path.Dir(ref.Path)), info)
	if ref.AltID.HasID() && obs.AltID != ref.AltID {
		return reconcile.Observation[string]{}, reconcile.NewFailure(reconcile.CodeIdentityMismatch, ref.AltID, nil)
	}
	obs.ParentAltID = parent
	return obs, nil
}

// exists reports whether any object lives under prefix.
func (s *Source) exists(ctx context.Context, prefix string) (bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, MaxKeys: 1}) {
		if info.Err != nil {
			return false, info.Err
		}
		return true, nil
	}
	return false, nil
}

// observe converts an object or common prefix listed under prefix.
func (s *Source) observe(prefix string, info minio.ObjectInfo) reconcile.Observation[string] {
	name := strings.TrimSuffix(strings.TrimPrefix(info.Key, prefix), "/")
	if strings.HasSuffix(info.Key, "/") {
		return reconcile.Observation[string]{
			AltID: AltID{VolumeID: s.Volume(), ID: info.Key},
			Name:  name,
			Type:  tree.Directory,
		}
	}
	return reconcile.Observation[string]{
		AltID: AltID{VolumeID: s.Volume(), ID: s.fileID(info.Key, info.UserMetadata)},
		Name:  name,
		Type:  tree.File,
		Attributes: tree.Attributes{
			Size:          info.Size,
			LastWriteTime: info.LastModified.UTC(),
			ContentHash:   strings.Trim(info.ETag, `"`),
		},
	}
}

// fileID returns the node id from metadata, or the key. Listings report
// metadata with the x-amz-meta- prefix, stat without.
func (s *Source) fileID(key string, meta map[string]string) string {
	for k, v := range meta {
		k = strings.TrimPrefix(strings.ToLower(k), "x-amz-meta-")
		if v != "" && strings.EqualFold(k, s.cfg.NodeIDKey) {
			return v
		}
	}
	return key
}

// validName reports whether a key segment can name a node. Keys may hold
// empty segments ("a//b") that no tree path can represent.
func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.Contains(name, "/")
}

// validPath reports whether every segment of a relative key is a valid name.
func validPath(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if !validName(seg) {
			return false
		}
	}
	return true
}

// dirKey returns the prefix key of a directory path.
func (s *Source) dirKey(p string) string {
	if p == "" || p == "." {
		return s.cfg.Prefix
	}
	return s.cfg.Prefix + strings.TrimSuffix(p, "/") + "/"
}

func (s *Source) failure(err error, absent reconcile.FailureCode, alt AltID) error {
	if storage.IsNotFound(err) {
		return reconcile.NewFailure(absent, alt, err)
	}
	var resp minio.ErrorResponse
	if errors.As(err, &resp) && resp.StatusCode == http.StatusServiceUnavailable {
		return reconcile.NewFailure(reconcile.CodeTimeout, alt, err)
	}
	return reconcile.NewFailure(reconcile.CodeUnknown, alt, err)
}
