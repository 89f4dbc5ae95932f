package reconcile

import (
	"go.uber.org/zap"

	"treesync/core/tree"
)

// applyEvents translates a batch of change events into dirty flags for the
// dirty pass that follows.
func (e *Engine[I, A]) applyEvents(events []ChangeEvent[A]) error {
	for _, ev := range events {
		if err := e.applyEvent(ev); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine[I, A]) applyEvent(ev ChangeEvent[A]) error {
	node, known := e.tree.NodeByAltID(ev.AltID)

	switch ev.Type {
	case Changed:
		if known {
			if node.IsDirectory() {
				return e.mark(node.ID, tree.DirtyChildren)
			}
			return e.mark(node.ID, tree.DirtyAttributes)
		}
		return e.markParentOf(ev)

	case ChangedOrMoved:
		if known {
			if err := e.mark(node.ID, tree.DirtyAttributes); err != nil {
				return err
			}
			if err := e.mark(node.ParentID, tree.DirtyChildren); err != nil {
				return err
			}
		}
		return e.markParentOf(ev)

	case Skipped, Error:
		e.logger.Warn("Change feed gap",
			zap.Stringer("type", ev.Type),
			zap.Stringer("alt_id", ev.AltID),
			zap.Error(ev.Err))
		if known {
			if node.IsDirectory() {
				return e.mark(node.ID, tree.DirtyDescendants)
			}
			return e.mark(node.ParentID, tree.DirtyChildren)
		}
		for _, r := range e.tree.Children(e.tree.Root().ID) {
			if err := e.mark(r.ID, tree.DirtyDescendants); err != nil {
				return err
			}
		}
		return nil

	default:
		e.logger.Debug("Ignoring change event", zap.Stringer("type", ev.Type))
		return nil
	}
}

// markParentOf flags the directory the event names as new parent.
func (e *Engine[I, A]) markParentOf(ev ChangeEvent[A]) error {
	parent, ok := e.tree.NodeByAltIDAndType(ev.ParentAltID, tree.Directory)
	if !ok {
		return nil
	}
	return e.mark(parent.ID, tree.DirtyChildren)
}
