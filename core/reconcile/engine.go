package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"treesync/core/tree"
)

// Options configures an Engine.
type Options[I tree.ID, A comparable] struct {
	// Source lists and fetches nodes. Required.
	Source Source[A]
	// Roots yields the live sync roots. When nil, root enumeration is skipped
	// and the existing roots are kept as they are.
	Roots RootSource[A]
	// Store persists committed operations. When nil, commits are in-memory only.
	Store Persister[I, A]
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
	Config Config
}

// Stats reports engine activity.
type Stats struct {
	Passes     int        `json:"passes"`
	Nodes      int        `json:"nodes"`
	Pending    int        `json:"pending"`
	LastResult PassResult `json:"last_result"`
	LastError  string     `json:"last_error,omitempty"`
}

// Engine reconciles one adapter tree against one side.
type Engine[I tree.ID, A comparable] struct {
	tree   *tree.Tree[I, A]
	source Source[A]
	roots  RootSource[A]
	store  Persister[I, A]
	logger *zap.Logger
	cfg    Config

	sched    *Scheduler
	sem      *semaphore.Weighted
	listings singleflight.Group

	// passMu is held exclusively for the duration of a pass so readers only
	// ever observe committed state.
	passMu sync.RWMutex

	statsMu sync.Mutex
	stats   Stats
}

// New creates an engine over t. The tree must not be mutated by anything else
// afterwards.
func New[I tree.ID, A comparable](t *tree.Tree[I, A], opts Options[I, A]) *Engine[I, A] {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine[I, A]{
		tree:   t,
		source: opts.Source,
		roots:  opts.Roots,
		store:  opts.Store,
		logger: logger,
		cfg:    opts.Config,
		sched:  NewScheduler(),
		sem:    semaphore.NewWeighted(opts.Config.concurrency()),
	}
}

// Close stops the scheduler.
func (e *Engine[I, A]) Close() {
	e.sched.Close()
}

// RunPass runs one reconciliation pass and commits its operations.
func (e *Engine[I, A]) RunPass(ctx context.Context, mode PassMode) (PassResult, error) {
	return e.run(ctx, mode, nil)
}

// Watch applies change batches from src, running a dirty pass after each,
// until ctx is done or the feed closes.
func (e *Engine[I, A]) Watch(ctx context.Context, src ChangeSource[A]) error {
	batches := src.Changes(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			if _, err := e.run(ctx, PassDirty, batch); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				e.logger.Error("Change batch pass failed", zap.Int("events", len(batch)), zap.Error(err))
			}
		}
	}
}

// Run performs periodic passes until ctx is done. The first pass and every
// FullPassEvery-th pass after it are full passes.
func (e *Engine[I, A]) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.passInterval())
	defer ticker.Stop()

	for n := 0; ; n++ {
		mode := PassDirty
		if n%e.cfg.fullPassEvery() == 0 {
			mode = PassFull
		}
		if _, err := e.RunPass(ctx, mode); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.Error("Pass failed", zap.Stringer("mode", mode), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// CreatePlaceholder records a node that the sync-decision stage is about to
// create on this side. Detection adopts it once the real node is observed,
// and the failure step removes it if the node turns out to be absent.
func (e *Engine[I, A]) CreatePlaceholder(ctx context.Context, parent I, name string, typ tree.NodeType, attrs tree.Attributes) (tree.Model[I, A], error) {
	e.passMu.Lock()
	defer e.passMu.Unlock()

	var created tree.Model[I, A]
	err := e.sched.Do(ctx, func() error {
		m, err := e.tree.Create(tree.Model[I, A]{
			ParentID:   parent,
			Name:       name,
			Type:       typ,
			Status:     tree.DirtyPlaceholder,
			Attributes: attrs,
		})
		created = m
		return err
	})
	if err != nil {
		return created, err
	}
	_, err = e.commit(ctx)
	return created, err
}

// MigrateRoot moves a sync root and every descendant still labelled with the
// root's old volume to the identity newAlt, without structural changes.
func (e *Engine[I, A]) MigrateRoot(ctx context.Context, root I, newAlt tree.AltID[A]) error {
	e.passMu.Lock()
	defer e.passMu.Unlock()

	if err := e.sched.Do(ctx, func() error { return e.migrate(root, newAlt) }); err != nil {
		return err
	}
	_, err := e.commit(ctx)
	return err
}

// Node returns the committed node with id.
func (e *Engine[I, A]) Node(ctx context.Context, id I) (tree.Model[I, A], bool, error) {
	var (
		m  tree.Model[I, A]
		ok bool
	)
	err := e.read(ctx, func() {
		m, ok = e.tree.Node(id)
	})
	return m, ok, err
}

// NodeByAltID returns the committed node holding alt.
func (e *Engine[I, A]) NodeByAltID(ctx context.Context, alt tree.AltID[A]) (tree.Model[I, A], bool, error) {
	var (
		m  tree.Model[I, A]
		ok bool
	)
	err := e.read(ctx, func() {
		m, ok = e.tree.NodeByAltID(alt)
	})
	return m, ok, err
}

// Children returns the committed children of id.
func (e *Engine[I, A]) Children(ctx context.Context, id I) ([]tree.Model[I, A], error) {
	var out []tree.Model[I, A]
	err := e.read(ctx, func() {
		out = e.tree.Children(id)
	})
	return out, err
}

// Path returns the slash-separated path of id.
func (e *Engine[I, A]) Path(ctx context.Context, id I) (string, error) {
	var (
		p   string
		err error
	)
	if rerr := e.read(ctx, func() {
		p, err = e.tree.Path(id)
	}); rerr != nil {
		return "", rerr
	}
	return p, err
}

// Drain returns and clears the committed operations.
func (e *Engine[I, A]) Drain(ctx context.Context) ([]tree.Operation[I, A], error) {
	var ops []tree.Operation[I, A]
	err := e.read(ctx, func() {
		ops = e.tree.Log().Drain()
	})
	return ops, err
}

// Stats returns a snapshot of engine activity.
func (e *Engine[I, A]) Stats(ctx context.Context) (Stats, error) {
	var nodes, pending int
	if err := e.read(ctx, func() {
		nodes = e.tree.Len()
		pending = len(e.tree.Log().Pending())
	}); err != nil {
		return Stats{}, err
	}

	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	s := e.stats
	s.Nodes = nodes
	s.Pending = pending
	return s, nil
}

func (e *Engine[I, A]) read(ctx context.Context, fn func()) error {
	e.passMu.RLock()
	defer e.passMu.RUnlock()
	return e.sched.Do(ctx, func() error {
		fn()
		return nil
	})
}

// commit persists the pending operations and moves them to the committed
// list. Pending operations survive a failed persist and are retried by the
// next commit.
func (e *Engine[I, A]) commit(ctx context.Context) ([]tree.Operation[I, A], error) {
	var (
		ops    []tree.Operation[I, A]
		nextID I
	)
	if err := e.sched.Do(ctx, func() error {
		ops = e.tree.Log().Pending()
		nextID = e.tree.NextID()
		return nil
	}); err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, nil
	}

	if e.store != nil {
		// Persist even if the pass context was cancelled after completion.
		if err := e.store.Apply(context.WithoutCancel(ctx), ops, nextID); err != nil {
			return nil, fmt.Errorf("failed to persist %d operations: %w", len(ops), err)
		}
	}

	err := e.sched.Do(context.WithoutCancel(ctx), func() error {
		e.tree.Log().Commit()
		return nil
	})
	return ops, err
}

func (e *Engine[I, A]) recordPass(result PassResult, err error) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	e.stats.Passes++
	e.stats.LastResult = result
	e.stats.LastError = ""
	if err != nil && !errors.Is(err, context.Canceled) {
		e.stats.LastError = err.Error()
	}
}

// ReportFailure runs the failure step for an I/O failure observed outside the
// engine, such as a download or upload issued by the sync-decision stage for
// node id.
func (e *Engine[I, A]) ReportFailure(ctx context.Context, id I, op FailureOp, failure error) error {
	e.passMu.Lock()
	defer e.passMu.Unlock()

	p := newPass[I, A](PassDirty)
	if err := e.sched.Do(ctx, func() error {
		snapshot, ok := e.tree.Node(id)
		if !ok {
			return nil
		}
		return e.fail(p, op, failure, &snapshot)
	}); err != nil {
		return err
	}
	_, err := e.commit(ctx)
	return err
}
