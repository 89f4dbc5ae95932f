package reconcile

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"treesync/core/tree"
)

// detectClears are the flags an observation settles.
const detectClears = tree.DirtyAttributes | tree.DirtyDeleted | tree.DirtyPlaceholder

// detect reconciles one observation made under parent and returns the id of
// the node now representing it. It runs on the scheduler.
func (e *Engine[I, A]) detect(p *pass[I, A], parent I, obs Observation[A]) (I, error) {
	var zero I
	if err := validateObservation(obs); err != nil {
		return zero, err
	}

	// The same identity with the other type is a replaced node.
	if stale, ok := e.tree.NodeByAltIDAndType(obs.AltID, otherType(obs.Type)); ok {
		if err := e.remove(stale.ID, "type changed"); err != nil {
			return zero, err
		}
	}

	target, hasTarget := e.tree.NodeByName(parent, obs.Name)
	cand, hasCand := e.tree.NodeByAltIDAndType(obs.AltID, obs.Type)

	switch {
	case hasCand && hasTarget && cand.ID == target.ID:
		return e.refresh(cand, parent, obs)
	case hasCand && p.visited(cand.ID):
		return e.duplicate(cand, target, hasTarget, parent, obs)
	case hasCand:
		return e.move(cand, target, hasTarget, parent, obs)
	}

	if hasTarget {
		switch {
		case target.Type == obs.Type && obs.AltID.IsZero():
			return e.refresh(target, parent, obs)
		case target.Type == obs.Type && (target.IsPlaceholder() || target.AltID.IsZero()):
			e.logger.Debug("Adopting node",
				zap.String("name", obs.Name),
				zap.Stringer("alt_id", obs.AltID),
				zap.Bool("placeholder", target.IsPlaceholder()))
			return e.refresh(target, parent, obs)
		}
		if err := e.remove(target.ID, "replaced"); err != nil {
			return zero, err
		}
	}
	return e.create(parent, obs)
}

// refresh brings an existing node in line with the observation.
func (e *Engine[I, A]) refresh(cur tree.Model[I, A], parent I, obs Observation[A]) (I, error) {
	desired := cur
	desired.ParentID = parent
	desired.Name = obs.Name
	if !obs.AltID.IsZero() {
		desired.AltID = obs.AltID
	}
	if !cur.Attributes.Equal(obs.Attributes) {
		desired.Attributes = obs.Attributes
	}
	desired.Status = cur.Status.Without(detectClears)

	identityChanged := desired.AltID != cur.AltID
	if identityChanged && desired.IsDirectory() {
		desired.Status = desired.Status.With(tree.DirtyChildren)
	}

	updated, err := e.tree.Update(desired)
	if err != nil {
		return cur.ID, fmt.Errorf("failed to update %q: %w", obs.Name, err)
	}
	if updated.ParentID != cur.ParentID || updated.Name != cur.Name {
		e.logger.Debug("Node moved",
			zap.Stringer("alt_id", updated.AltID),
			zap.String("from", cur.Name),
			zap.String("to", updated.Name))
	}
	if identityChanged && updated.IsDirectory() {
		if err := e.markChildDirectories(updated.ID, tree.DirtyDescendants); err != nil {
			return updated.ID, err
		}
	}
	return updated.ID, nil
}

// move relocates cand to (parent, name), evicting whatever occupied the
// destination. A destination inside cand's own subtree cannot be reached by
// an update: cand gives up its identity, stays in place until its parent is
// listed again, and the observation becomes a new node.
func (e *Engine[I, A]) move(cand, target tree.Model[I, A], hasTarget bool, parent I, obs Observation[A]) (I, error) {
	var zero I
	if hasTarget {
		if err := e.remove(target.ID, "move destination occupied"); err != nil {
			return zero, err
		}
	}
	if _, ok := e.tree.Node(cand.ID); !ok {
		// cand lived under the evicted node.
		return e.create(parent, obs)
	}
	if e.tree.IsAncestor(cand.ID, parent) {
		released := cand
		released.AltID = tree.AltID[A]{}
		if _, err := e.tree.Update(released); err != nil {
			return zero, fmt.Errorf("failed to release %q: %w", cand.Name, err)
		}
		if err := e.mark(cand.ParentID, tree.DirtyChildren); err != nil {
			return zero, err
		}
		return e.create(parent, obs)
	}
	return e.refresh(cand, parent, obs)
}

// duplicate handles an identity already seen elsewhere during this pass, as
// happens with hard links. The second occurrence is kept as a copy without an
// identity.
func (e *Engine[I, A]) duplicate(cand, target tree.Model[I, A], hasTarget bool, parent I, obs Observation[A]) (I, error) {
	var zero I
	if hasTarget && target.Type == obs.Type && (target.AltID.IsZero() || target.IsPlaceholder()) {
		desired := target
		desired.Status = target.Status.Without(detectClears)
		if !target.Attributes.Equal(obs.Attributes) {
			desired.Attributes = obs.Attributes
		}
		updated, err := e.tree.Update(desired)
		if err != nil {
			return zero, fmt.Errorf("failed to update duplicate %q: %w", obs.Name, err)
		}
		return updated.ID, nil
	}
	if hasTarget {
		if err := e.remove(target.ID, "replaced by duplicate"); err != nil {
			return zero, err
		}
	}
	if _, ok := e.tree.Node(cand.ID); !ok {
		anon := obs
		anon.AltID = tree.AltID[A]{}
		return e.create(parent, anon)
	}

	e.logger.Info("Duplicate identity, keeping a copy",
		zap.Stringer("alt_id", obs.AltID),
		zap.String("name", obs.Name))

	cp, err := e.tree.Copy(cand.ID, parent, obs.Name, tree.AltID[A]{}, cand.IsDirectory())
	if err != nil {
		return zero, fmt.Errorf("failed to copy duplicate %q: %w", obs.Name, err)
	}
	desired := cp
	desired.Status = tree.Clean
	desired.Attributes = obs.Attributes
	updated, err := e.tree.Update(desired)
	if err != nil {
		return zero, fmt.Errorf("failed to update duplicate %q: %w", obs.Name, err)
	}
	return updated.ID, nil
}

func (e *Engine[I, A]) create(parent I, obs Observation[A]) (I, error) {
	status := tree.Clean
	if obs.Type == tree.Directory {
		status = tree.DirtyChildren
	}
	m, err := e.tree.Create(tree.Model[I, A]{
		ParentID:   parent,
		Name:       obs.Name,
		Type:       obs.Type,
		AltID:      obs.AltID,
		Status:     status,
		Attributes: obs.Attributes,
	})
	if err != nil {
		var zero I
		return zero, fmt.Errorf("failed to create %q: %w", obs.Name, err)
	}
	return m.ID, nil
}

func (e *Engine[I, A]) remove(id I, reason string) error {
	if m, ok := e.tree.Node(id); ok {
		e.logger.Debug("Removing node",
			zap.String("name", m.Name),
			zap.Stringer("alt_id", m.AltID),
			zap.String("reason", reason))
	}
	if err := e.tree.Delete(id); err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	return nil
}

// mark adds flags to a node. The tree root never carries flags.
func (e *Engine[I, A]) mark(id I, flags tree.Status) error {
	if e.tree.IsRoot(id) {
		return nil
	}
	m, ok := e.tree.Node(id)
	if !ok {
		return nil
	}
	if m.Status.Has(flags) {
		return nil
	}
	_, err := e.tree.SetStatus(id, m.Status.With(flags))
	return err
}

// unmark removes flags from a node.
func (e *Engine[I, A]) unmark(id I, flags tree.Status) error {
	m, ok := e.tree.Node(id)
	if !ok || !m.Status.Any(flags) {
		return nil
	}
	_, err := e.tree.SetStatus(id, m.Status.Without(flags))
	return err
}

func (e *Engine[I, A]) markChildDirectories(id I, flags tree.Status) error {
	for _, c := range e.tree.Children(id) {
		if !c.IsDirectory() {
			continue
		}
		if err := e.mark(c.ID, flags); err != nil {
			return err
		}
	}
	return nil
}

func validateObservation[A comparable](obs Observation[A]) error {
	if obs.Name == "" || obs.Name == "." || obs.Name == ".." {
		return contractError("invalid name %q", obs.Name)
	}
	if strings.ContainsRune(obs.Name, '/') {
		return contractError("invalid name %q", obs.Name)
	}
	if !obs.Type.Valid() {
		return contractError("invalid type %d for %q", obs.Type, obs.Name)
	}
	return nil
}

func otherType(t tree.NodeType) tree.NodeType {
	if t == tree.Directory {
		return tree.File
	}
	return tree.Directory
}
