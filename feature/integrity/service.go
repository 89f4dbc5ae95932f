package integrity

import (
	"context"
	"fmt"

	"treesync/core/storage"
	"treesync/feature/integrity/checks"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options wires the service to the resources it checks. Nil resources are
// reported as errors by the corresponding check.
type Options struct {
	DB        *gorm.DB
	Client    storage.Client
	Bucket    string
	Region    string
	Prefix    string
	Fs        afero.Fs
	LocalPath string
}

// Service handles integrity checks.
type Service struct {
	opts   Options
	logger *zap.Logger
}

// NewService creates a new integrity service.
func NewService(opts Options, logger *zap.Logger) *Service {
	return &Service{opts: opts, logger: logger}
}

// CheckStore compares the tree store tables with their models.
func (s *Service) CheckStore() (*checks.StoreReport, error) {
	return checks.CheckStore(s.opts.DB)
}

// FixStore migrates the tree store tables.
func (s *Service) FixStore(ctx context.Context) error {
	return checks.FixStore(ctx, s.opts.DB)
}

// CheckBucket reports on the mirrored bucket.
func (s *Service) CheckBucket(ctx context.Context) (*checks.BucketReport, error) {
	if s.opts.Client == nil {
		return nil, errNotConfigured("storage")
	}
	return checks.CheckBucket(ctx, s.opts.Client, s.opts.Bucket, s.opts.Prefix)
}

// FixBucket creates the mirrored bucket.
func (s *Service) FixBucket(ctx context.Context) error {
	if s.opts.Client == nil {
		return errNotConfigured("storage")
	}
	return checks.FixBucket(ctx, s.opts.Client, s.opts.Bucket, s.opts.Region, s.logger)
}

// CheckLocal reports on the synced directory.
func (s *Service) CheckLocal() (*checks.LocalReport, error) {
	if s.opts.Fs == nil {
		return nil, errNotConfigured("local")
	}
	return checks.CheckLocal(s.opts.Fs, s.opts.LocalPath)
}

// FixLocal creates the synced directory.
func (s *Service) FixLocal() error {
	if s.opts.Fs == nil {
		return errNotConfigured("local")
	}
	return checks.FixLocal(s.opts.Fs, s.opts.LocalPath, s.logger)
}

// Report is the combined result of every check. A failed check carries its
// error message instead of a report.
type Report struct {
	Healthy bool                 `json:"healthy"`
	Store   *checks.StoreReport  `json:"store,omitempty"`
	Bucket  *checks.BucketReport `json:"bucket,omitempty"`
	Local   *checks.LocalReport  `json:"local,omitempty"`
	Errors  map[string]string    `json:"errors,omitempty"`
}

// CheckAll runs every check. With fix, each failing check is repaired and
// run again.
func (s *Service) CheckAll(ctx context.Context, fix bool) *Report {
	r := &Report{Errors: make(map[string]string)}

	store, err := s.CheckStore()
	if err == nil && !store.Matched && fix {
		if err = s.FixStore(ctx); err == nil {
			store, err = s.CheckStore()
		}
	}
	if err != nil {
		r.Errors["store"] = err.Error()
	}
	r.Store = store

	bucket, err := s.CheckBucket(ctx)
	if err == nil && !bucket.Exists && fix {
		if err = s.FixBucket(ctx); err == nil {
			bucket, err = s.CheckBucket(ctx)
		}
	}
	if err != nil {
		r.Errors["bucket"] = err.Error()
	}
	r.Bucket = bucket

	local, err := s.CheckLocal()
	if err == nil && !local.Exists && fix {
		if err = s.FixLocal(); err == nil {
			local, err = s.CheckLocal()
		}
	}
	if err != nil {
		r.Errors["local"] = err.Error()
	}
	r.Local = local

	r.Healthy = len(r.Errors) == 0 &&
		r.Store != nil && r.Store.Matched &&
		r.Bucket != nil && r.Bucket.Exists &&
		r.Local != nil && r.Local.Exists
	if len(r.Errors) == 0 {
		r.Errors = nil
	}
	return r
}

func errNotConfigured(what string) error {
	return fmt.Errorf("%s is not configured", what)
}
