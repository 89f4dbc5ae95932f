package reconcile

import (
	"fmt"

	"treesync/core/tree"
)

// migrate relabels the sync root id with newAlt and moves every descendant
// still on the root's old volume to the new volume. Nothing is relabelled
// when any new identity is already held.
func (e *Engine[I, A]) migrate(id I, newAlt tree.AltID[A]) error {
	root, ok := e.tree.Node(id)
	if !ok {
		return fmt.Errorf("migrate %v: %w", id, tree.ErrNodeNotFound)
	}
	if !e.tree.IsRoot(root.ParentID) {
		return fmt.Errorf("migrate %v: not a sync root", id)
	}
	oldVolume := root.AltID.VolumeID

	var plan []tree.Model[I, A]
	e.tree.Walk(id, func(m tree.Model[I, A]) bool {
		switch {
		case m.ID == id:
			m.AltID = newAlt
		case m.AltID.HasID() && m.AltID.VolumeID == oldVolume:
			m.AltID.VolumeID = newAlt.VolumeID
		default:
			return true
		}
		plan = append(plan, m)
		return true
	})

	for _, m := range plan {
		if holder, taken := e.tree.NodeByAltIDAndType(m.AltID, m.Type); taken && holder.ID != m.ID {
			return fmt.Errorf("%w: %s held by %q", ErrMigrationConflict, m.AltID, holder.Name)
		}
	}
	for _, m := range plan {
		if _, err := e.tree.Update(m); err != nil {
			return fmt.Errorf("migrate %v: %w", m.ID, err)
		}
	}
	return nil
}
