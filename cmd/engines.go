package cmd

import (
	"context"
	"errors"
	"fmt"

	"treesync/core/config"
	"treesync/core/database"
	"treesync/core/logger"
	"treesync/core/reconcile"
	"treesync/core/storage"
	"treesync/core/tree"
	"treesync/feature/local"
	"treesync/feature/remote"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	sideLocal  = "local"
	sideRemote = "remote"
)

type (
	localEngine  = reconcile.Engine[tree.NodeID, uint64]
	remoteEngine = reconcile.Engine[tree.NodeID, string]
)

// runtime holds everything a command needs to drive both sides.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	storage storage.Client

	local         *localEngine
	localSource   *local.Source
	localChanges  reconcile.ChangeSource[uint64]
	remote        *remoteEngine
	remoteSource  *remote.Source
	remoteChanges reconcile.ChangeSource[string]
}

// bootstrap loads configuration and opens the engines selected by side
// ("local", "remote" or "both").
func bootstrap(ctx context.Context, side string) (*runtime, error) {
	switch side {
	case sideLocal, sideRemote, "both":
	default:
		return nil, fmt.Errorf("unknown side %q (want local, remote or both)", side)
	}

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	zap.ReplaceGlobals(l)

	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	rt := &runtime{cfg: cfg, logger: l, db: db}

	if side == sideLocal || side == "both" {
		ll := logger.Named(l, sideLocal)
		rt.localSource = local.NewSource(afero.NewOsFs(), cfg.Local, ll)
		rt.local, err = openEngine[uint64](ctx, db, sideLocal, tree.Uint64Codec{}, rt.localSource, cfg.Engine, ll)
		if err != nil {
			rt.Close()
			return nil, err
		}
		if cfg.Local.Watch {
			rt.localChanges = local.NewWatcher(rt.localSource, cfg.Local, ll)
		}
	}

	if side == sideRemote || side == "both" {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to connect to storage: %w", err)
		}
		rt.storage = client

		rl := logger.Named(l, sideRemote)
		rt.remoteSource = remote.NewSource(client, cfg.Storage.Bucket, cfg.Remote, rl)
		rt.remote, err = openEngine[string](ctx, db, sideRemote, tree.StringCodec{}, rt.remoteSource, cfg.Engine, rl)
		if err != nil {
			rt.Close()
			return nil, err
		}
		if cfg.Remote.Notifications {
			rt.remoteChanges = remote.NewNotifications(rt.remoteSource, rl)
		}
	}

	return rt, nil
}

// openEngine restores the persisted tree of scope and wraps it in an engine.
func openEngine[A comparable, S interface {
	reconcile.Source[A]
	reconcile.RootSource[A]
}](ctx context.Context, db *gorm.DB, scope string, codec tree.AltCodec[A], src S, cfg reconcile.Config, l *zap.Logger) (*reconcile.Engine[tree.NodeID, A], error) {
	store := tree.NewStore[tree.NodeID, A](db, scope, codec)
	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}
	t, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	l.Info("Tree loaded", zap.Int("nodes", t.Len()))

	return reconcile.New(t, reconcile.Options[tree.NodeID, A]{
		Source: src,
		Roots:  src,
		Store:  store,
		Logger: l,
		Config: cfg,
	}), nil
}

// Close stops the engines and flushes the logger.
func (rt *runtime) Close() {
	if rt.local != nil {
		rt.local.Close()
	}
	if rt.remote != nil {
		rt.remote.Close()
	}
	if sqlDB, err := rt.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = rt.logger.Sync()
}

// serve runs the periodic passes and change feeds of every open side until
// ctx is done.
func (rt *runtime) serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if rt.local != nil {
		g.Go(func() error { return rt.local.Run(ctx) })
		if rt.localChanges != nil {
			g.Go(func() error { return rt.local.Watch(ctx, rt.localChanges) })
		}
	}
	if rt.remote != nil {
		g.Go(func() error { return rt.remote.Run(ctx) })
		if rt.remoteChanges != nil {
			g.Go(func() error { return rt.remote.Watch(ctx, rt.remoteChanges) })
		}
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runPasses runs one pass on every open side.
func (rt *runtime) runPasses(ctx context.Context, mode reconcile.PassMode) error {
	if rt.local != nil {
		if _, err := rt.local.RunPass(ctx, mode); err != nil {
			return fmt.Errorf("local pass failed: %w", err)
		}
	}
	if rt.remote != nil {
		if _, err := rt.remote.RunPass(ctx, mode); err != nil {
			return fmt.Errorf("remote pass failed: %w", err)
		}
	}
	return nil
}
