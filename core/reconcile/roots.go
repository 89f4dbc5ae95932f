package reconcile

import (
	"context"
	"errors"
	"maps"
	"slices"

	"go.uber.org/zap"

	"treesync/core/tree"
)

const newRootStatus = tree.DirtyChildren | tree.DirtyDescendants

// enumerateRoots matches the live sync roots against the direct children of
// the tree root. Roots that were not reported are deleted once the stream
// ends cleanly.
func (e *Engine[I, A]) enumerateRoots(ctx context.Context, p *pass[I, A]) error {
	unprocessed := make(map[I]struct{})
	if err := e.sched.Do(ctx, func() error {
		for _, r := range e.tree.Children(e.tree.Root().ID) {
			unprocessed[r.ID] = struct{}{}
		}
		return nil
	}); err != nil {
		return err
	}

	names := make(map[string]struct{})
	alts := make(map[tree.AltID[A]]struct{})
	complete := true

	for obs, err := range e.roots.Roots(ctx) {
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.Warn("Root enumeration failed, keeping existing roots", zap.Error(err))
			complete = false
			break
		}
		if err := validateRoot(obs); err != nil {
			return err
		}
		if _, dup := names[obs.Name]; dup {
			return contractError("duplicate root name %q", obs.Name)
		}
		if _, dup := alts[obs.AltID]; dup {
			return contractError("duplicate root identity %s", obs.AltID)
		}
		names[obs.Name] = struct{}{}
		alts[obs.AltID] = struct{}{}

		if err := e.sched.Do(ctx, func() error {
			id, err := e.applyRoot(obs)
			if err != nil {
				return err
			}
			delete(unprocessed, id)
			p.visit(id)
			return nil
		}); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !complete {
		return nil
	}

	return e.sched.Do(ctx, func() error {
		for _, id := range slices.Sorted(maps.Keys(unprocessed)) {
			m, ok := e.tree.Node(id)
			if !ok || !e.tree.IsRoot(m.ParentID) {
				continue
			}
			e.logger.Info("Sync root gone", zap.String("name", m.Name), zap.Stringer("alt_id", m.AltID))
			if err := e.remove(id, "root not reported"); err != nil {
				return err
			}
		}
		return nil
	})
}

// applyRoot reconciles one live root and returns the id now representing it.
func (e *Engine[I, A]) applyRoot(obs Observation[A]) (I, error) {
	var zero I
	root := e.tree.Root().ID

	if m, ok := e.tree.NodeByAltIDAndType(obs.AltID, tree.Directory); ok {
		if m.ParentID == root {
			if occupant, taken := e.tree.NodeByName(root, obs.Name); taken && occupant.ID != m.ID {
				if err := e.remove(occupant.ID, "root name taken"); err != nil {
					return zero, err
				}
			}
			desired := m
			desired.Name = obs.Name
			desired.Status = m.Status.Without(detectClears)
			if !m.Attributes.Equal(obs.Attributes) {
				desired.Attributes = obs.Attributes
			}
			updated, err := e.tree.Update(desired)
			if err != nil {
				return zero, err
			}
			return updated.ID, nil
		}
		// A non-root holding a root's identity is stale.
		if err := e.remove(m.ID, "identity now a sync root"); err != nil {
			return zero, err
		}
	}

	if m, ok := e.tree.NodeByName(root, obs.Name); ok {
		if m.IsDirectory() && m.AltID.VolumeID == 0 && (!m.AltID.HasID() || m.AltID.ID == obs.AltID.ID) {
			err := e.migrate(m.ID, obs.AltID)
			if err == nil {
				e.logger.Info("Sync root migrated", zap.String("name", obs.Name), zap.Stringer("alt_id", obs.AltID))
				return m.ID, e.refreshRoot(m.ID, obs)
			}
			if !errors.Is(err, ErrMigrationConflict) {
				return zero, err
			}
			e.logger.Warn("Sync root migration conflict, recreating", zap.String("name", obs.Name), zap.Error(err))
		}
		if err := e.remove(m.ID, "root identity changed"); err != nil {
			return zero, err
		}
	}

	created, err := e.tree.Create(tree.Model[I, A]{
		ParentID:   root,
		Name:       obs.Name,
		Type:       tree.Directory,
		AltID:      obs.AltID,
		Status:     newRootStatus,
		Attributes: obs.Attributes,
	})
	if err != nil {
		return zero, err
	}
	e.logger.Info("Sync root added", zap.String("name", obs.Name), zap.Stringer("alt_id", obs.AltID))
	return created.ID, nil
}

func (e *Engine[I, A]) refreshRoot(id I, obs Observation[A]) error {
	m, ok := e.tree.Node(id)
	if !ok {
		return nil
	}
	desired := m
	desired.Status = m.Status.Without(detectClears)
	if !m.Attributes.Equal(obs.Attributes) {
		desired.Attributes = obs.Attributes
	}
	_, err := e.tree.Update(desired)
	return err
}

func validateRoot[A comparable](obs Observation[A]) error {
	if err := validateObservation(obs); err != nil {
		return err
	}
	if obs.Type != tree.Directory {
		return contractError("root %q is not a directory", obs.Name)
	}
	if !obs.AltID.HasID() {
		return contractError("root %q has no identity", obs.Name)
	}
	return nil
}
