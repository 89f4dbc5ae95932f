package reconcile

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"treesync/core/tree"
)

// pass is the state of one reconciliation pass. It is only touched on the
// scheduler.
type pass[I tree.ID, A comparable] struct {
	mode     PassMode
	seen     map[I]struct{}
	suspects map[I]struct{}
	// listed holds the branch flags each listed directory gave up.
	listed map[I]tree.Status
	result PassResult
}

func newPass[I tree.ID, A comparable](mode PassMode) *pass[I, A] {
	return &pass[I, A]{
		mode:     mode,
		seen:     make(map[I]struct{}),
		suspects: make(map[I]struct{}),
		listed:   make(map[I]tree.Status),
		result:   PassResult{Mode: mode, Started: time.Now()},
	}
}

func (p *pass[I, A]) visit(id I) {
	p.seen[id] = struct{}{}
}

func (p *pass[I, A]) visited(id I) bool {
	_, ok := p.seen[id]
	return ok
}

// listing is one directory scheduled for enumeration.
type listing[I tree.ID] struct {
	id I
	// recursive makes the listing descend into every child directory.
	recursive bool
}

// entry is one item of a directory listing.
type entry[A comparable] struct {
	obs Observation[A]
	err error
}

// run executes a pass. events, when given, are applied before the dirty set
// is collected.
func (e *Engine[I, A]) run(ctx context.Context, mode PassMode, events []ChangeEvent[A]) (PassResult, error) {
	e.passMu.Lock()
	defer e.passMu.Unlock()

	p := newPass[I, A](mode)
	err := e.runLocked(ctx, p, events)
	p.result.Duration = time.Since(p.result.Started)
	e.recordPass(p.result, err)
	if err != nil {
		e.abandon(ctx, p)
		return p.result, err
	}

	e.logger.Info("Pass committed",
		zap.Stringer("mode", mode),
		zap.Int("created", p.result.Created),
		zap.Int("updated", p.result.Updated),
		zap.Int("deleted", p.result.Deleted),
		zap.Int("failures", p.result.Failures),
		zap.Duration("duration", p.result.Duration))
	return p.result, nil
}

func (e *Engine[I, A]) runLocked(ctx context.Context, p *pass[I, A], events []ChangeEvent[A]) error {
	if len(events) > 0 {
		if err := e.sched.Do(ctx, func() error { return e.applyEvents(events) }); err != nil {
			return err
		}
	}

	if e.roots != nil {
		if err := e.enumerateRoots(ctx, p); err != nil {
			return err
		}
	}

	var dirs []listing[I]
	if err := e.sched.Do(ctx, func() error {
		dirs = e.collectListings(p.mode)
		return nil
	}); err != nil {
		return err
	}
	if err := e.enumerate(ctx, p, dirs); err != nil {
		return err
	}
	if err := e.fetchDirty(ctx, p); err != nil {
		return err
	}

	if err := e.sched.Do(ctx, func() error { return e.complete(p) }); err != nil {
		return err
	}

	ops, err := e.commit(ctx)
	if err != nil {
		return err
	}
	for _, op := range ops {
		switch op.Type {
		case tree.OpCreate:
			p.result.Created++
		case tree.OpUpdate:
			p.result.Updated++
		case tree.OpDelete:
			p.result.Deleted++
		}
	}
	return nil
}

// collectListings returns the directories a pass starts from: every sync
// root for a full pass, the flagged directories for a dirty pass. A
// DirtyDescendants directory is listed recursively and covers its subtree.
func (e *Engine[I, A]) collectListings(mode PassMode) []listing[I] {
	var out []listing[I]
	root := e.tree.Root().ID
	for _, r := range e.tree.Children(root) {
		if !r.IsDirectory() || !r.AltID.HasID() {
			continue
		}
		if mode == PassFull {
			out = append(out, listing[I]{id: r.ID, recursive: true})
			continue
		}
		e.tree.Walk(r.ID, func(m tree.Model[I, A]) bool {
			if !m.IsDirectory() || !m.AltID.HasID() {
				return false
			}
			switch {
			case m.Status.Has(tree.DirtyDescendants):
				out = append(out, listing[I]{id: m.ID, recursive: true})
				return false
			case m.Status.Has(tree.DirtyChildren):
				out = append(out, listing[I]{id: m.ID})
			}
			return true
		})
	}
	return out
}

// enumerate lists dirs concurrently, descending as each branch asks for it.
// Listings run outside the scheduler; their results are applied on it.
func (e *Engine[I, A]) enumerate(ctx context.Context, p *pass[I, A], dirs []listing[I]) error {
	g, gctx := errgroup.WithContext(ctx)

	var spawn func(l listing[I])
	spawn = func(l listing[I]) {
		g.Go(func() error {
			next, err := e.enumerateBranch(gctx, p, l)
			if err != nil {
				return err
			}
			for _, n := range next {
				spawn(n)
			}
			return nil
		})
	}
	for _, d := range dirs {
		spawn(d)
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (e *Engine[I, A]) enumerateBranch(ctx context.Context, p *pass[I, A], l listing[I]) ([]listing[I], error) {
	var (
		snapshot tree.Model[I, A]
		ref      NodeRef[A]
		found    bool
	)
	if err := e.sched.Do(ctx, func() error {
		snapshot, found = e.tree.Node(l.id)
		if !found {
			return nil
		}
		path, err := e.tree.Path(l.id)
		if err != nil {
			return err
		}
		ref = NodeRef[A]{AltID: snapshot.AltID, Path: path, Type: snapshot.Type}
		return nil
	}); err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	entries, listErr := e.list(ctx, l.id, ref)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var next []listing[I]
	err := e.sched.Do(ctx, func() error {
		p.result.Listings++
		if listErr != nil {
			return e.fail(p, OpList, listErr, &snapshot)
		}
		cur, ok := e.tree.Node(l.id)
		if !ok {
			return nil
		}
		if cur.AltID != snapshot.AltID || cur.ParentID != snapshot.ParentID || cur.Name != snapshot.Name {
			// The directory changed while it was listed.
			return e.mark(cur.ID, tree.DirtyChildren)
		}

		var err error
		next, err = e.applyListing(p, cur, l.recursive, entries)
		return err
	})
	return next, err
}

// applyListing feeds a successful listing of dir to detection and runs
// branch completion.
func (e *Engine[I, A]) applyListing(p *pass[I, A], dir tree.Model[I, A], recursive bool, entries []entry[A]) ([]listing[I], error) {
	observed := make(map[I]struct{}, len(entries))
	for _, ent := range entries {
		if ent.err != nil {
			var snapshot *tree.Model[I, A]
			if m, ok := e.entryNode(dir.ID, ent.obs); ok {
				observed[m.ID] = struct{}{}
				p.visit(m.ID)
				snapshot = &m
			}
			if err := e.fail(p, OpList, ent.err, snapshot); err != nil {
				return nil, err
			}
			continue
		}
		id, err := e.detect(p, dir.ID, ent.obs)
		if err != nil {
			return nil, err
		}
		observed[id] = struct{}{}
		p.visit(id)
	}

	for _, c := range e.tree.Children(dir.ID) {
		if _, ok := observed[c.ID]; ok || c.IsPlaceholder() {
			continue
		}
		p.suspects[c.ID] = struct{}{}
	}

	// Descendants of a DirtyDescendants directory inherit the flag so an
	// interrupted pass resumes where it stopped.
	inherit := dir.Status.Has(tree.DirtyDescendants)
	p.listed[dir.ID] |= dir.Status & (tree.DirtyChildren | tree.DirtyDescendants)
	if err := e.unmark(dir.ID, tree.DirtyChildren|tree.DirtyDescendants); err != nil {
		return nil, err
	}

	var next []listing[I]
	for _, c := range e.tree.Children(dir.ID) {
		if _, ok := observed[c.ID]; !ok || !c.IsDirectory() || !c.AltID.HasID() {
			continue
		}
		switch {
		case recursive:
			if inherit {
				if err := e.mark(c.ID, tree.DirtyDescendants); err != nil {
					return nil, err
				}
			}
			next = append(next, listing[I]{id: c.ID, recursive: true})
		case c.Status.Has(tree.DirtyDescendants):
			next = append(next, listing[I]{id: c.ID, recursive: true})
		case c.Status.Has(tree.DirtyChildren):
			next = append(next, listing[I]{id: c.ID})
		}
	}
	return next, nil
}

// entryNode resolves the node a failed listing entry refers to.
func (e *Engine[I, A]) entryNode(dir I, obs Observation[A]) (tree.Model[I, A], bool) {
	if m, ok := e.tree.NodeByAltID(obs.AltID); ok {
		return m, true
	}
	if obs.Name == "" {
		return tree.Model[I, A]{}, false
	}
	return e.tree.NodeByName(dir, obs.Name)
}

// list runs one listing, bounded by the semaphore. Concurrent requests for
// the same directory share one listing.
func (e *Engine[I, A]) list(ctx context.Context, id I, ref NodeRef[A]) ([]entry[A], error) {
	v, err, _ := e.listings.Do(fmt.Sprint(id), func() (any, error) {
		if err := e.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer e.sem.Release(1)

		var out []entry[A]
		for obs, err := range e.source.List(ctx, ref) {
			if err != nil {
				if obs.Name == "" && obs.AltID.IsZero() {
					return nil, err
				}
				out = append(out, entry[A]{obs: obs, err: err})
				continue
			}
			out = append(out, entry[A]{obs: obs})
		}
		return out, ctx.Err()
	})
	if err != nil {
		return nil, err
	}
	return v.([]entry[A]), nil
}

// fetchDirty re-reads nodes flagged DirtyAttributes or DirtyDeleted that no
// listing covered during this pass.
func (e *Engine[I, A]) fetchDirty(ctx context.Context, p *pass[I, A]) error {
	type target struct {
		snapshot tree.Model[I, A]
		ref      NodeRef[A]
	}
	var targets []target
	if err := e.sched.Do(ctx, func() error {
		root := e.tree.Root().ID
		for _, r := range e.tree.Children(root) {
			e.tree.Walk(r.ID, func(m tree.Model[I, A]) bool {
				if m.ParentID == root || p.visited(m.ID) || m.IsPlaceholder() || !m.AltID.HasID() {
					return true
				}
				if !m.Status.Any(tree.DirtyAttributes | tree.DirtyDeleted) {
					return true
				}
				path, err := e.tree.Path(m.ID)
				if err != nil {
					return true
				}
				targets = append(targets, target{
					snapshot: m,
					ref:      NodeRef[A]{AltID: m.AltID, Path: path, Type: m.Type},
				})
				return true
			})
		}
		return nil
	}); err != nil {
		return err
	}
	if len(targets) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		g.Go(func() error {
			if err := e.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			obs, ferr := e.source.Fetch(gctx, t.ref)
			e.sem.Release(1)
			if gctx.Err() != nil {
				return gctx.Err()
			}
			return e.sched.Do(gctx, func() error {
				p.result.Fetches++
				return e.applyFetch(p, t.snapshot, obs, ferr)
			})
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (e *Engine[I, A]) applyFetch(p *pass[I, A], snapshot tree.Model[I, A], obs Observation[A], ferr error) error {
	cur, ok := e.tree.Node(snapshot.ID)
	if !ok || p.visited(cur.ID) {
		return nil
	}
	if ferr != nil {
		code, _, classified := Classify[A](ferr)
		if classified && cur.Status.Has(tree.DirtyDeleted) && cur.SameContent(snapshot) &&
			(code == CodeObjectNotFound || code == CodePathNotFound) {
			return e.remove(cur.ID, "deletion confirmed")
		}
		return e.fail(p, OpFetch, ferr, &snapshot)
	}

	parent := cur.ParentID
	if !obs.ParentAltID.IsZero() {
		np, found := e.tree.NodeByAltIDAndType(obs.ParentAltID, tree.Directory)
		if !found {
			// Moved somewhere not yet known; the old parent's listing settles it.
			return e.mark(cur.ParentID, tree.DirtyChildren)
		}
		parent = np.ID
	}
	if obs.Name == "" {
		obs.Name = cur.Name
	}
	id, err := e.detect(p, parent, obs)
	if err != nil {
		return err
	}
	p.visit(id)
	return nil
}

// complete deletes suspects that no listing of this pass observed.
func (e *Engine[I, A]) complete(p *pass[I, A]) error {
	ids := slices.Sorted(maps.Keys(p.suspects))
	for _, id := range ids {
		if p.visited(id) {
			continue
		}
		if _, ok := e.tree.Node(id); !ok {
			continue
		}
		if err := e.remove(id, "not observed"); err != nil {
			return err
		}
	}
	return nil
}

// abandon leaves the tree at least as dirty as before an interrupted pass.
// Listed directories get their branch flags back and the parent of every
// unresolved suspect is re-flagged, so the next dirty pass lists them again.
// The work runs detached from ctx, which is usually already cancelled.
func (e *Engine[I, A]) abandon(ctx context.Context, p *pass[I, A]) {
	err := e.sched.Do(context.WithoutCancel(ctx), func() error {
		for _, id := range slices.Sorted(maps.Keys(p.listed)) {
			if p.listed[id] == tree.Clean {
				continue
			}
			if err := e.mark(id, p.listed[id]); err != nil {
				return err
			}
		}
		for _, id := range slices.Sorted(maps.Keys(p.suspects)) {
			if p.visited(id) {
				continue
			}
			m, ok := e.tree.Node(id)
			if !ok {
				continue
			}
			if err := e.mark(m.ParentID, tree.DirtyChildren); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrSchedulerClosed) {
		e.logger.Warn("Failed to restore flags after interrupted pass", zap.Error(err))
	}
}
