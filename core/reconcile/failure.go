package reconcile

import (
	"go.uber.org/zap"

	"treesync/core/tree"
)

// fail turns a classified adapter failure into dirty flags. snapshot is the
// node the request was issued for, nil when the failure came from a listing
// entry the tree does not know. Failures that no longer apply are dropped.
func (e *Engine[I, A]) fail(p *pass[I, A], op FailureOp, err error, snapshot *tree.Model[I, A]) error {
	code, alt, ok := Classify[A](err)
	if !ok {
		return nil
	}
	p.result.Failures++

	node, found := e.resolveFailure(alt, snapshot)
	log := e.logger.With(
		zap.Stringer("op", op),
		zap.String("code", string(code)),
		zap.Stringer("alt_id", alt),
		zap.Error(err))
	if !found {
		log.Debug("Ignoring failure for unknown node")
		return nil
	}
	log = log.With(zap.String("name", node.Name))

	if node.IsPlaceholder() && code.Absent() {
		log.Debug("Placeholder absent, removing")
		return e.remove(node.ID, "placeholder absent")
	}

	if e.staleFailure(node, snapshot) {
		log.Debug("Ignoring stale failure")
		return nil
	}

	if e.tree.IsSyncRoot(node.ID) {
		log.Warn("Failure on sync root")
		return nil
	}

	log.Info("Handling failure")
	switch code {
	case CodeDirectoryNotFound:
		parent, ok := e.tree.Node(node.ParentID)
		if !ok {
			return nil
		}
		if e.tree.IsRoot(parent.ParentID) {
			// The sync root is the nearest ancestor that carries flags.
			return e.mark(parent.ID, tree.DirtyChildren)
		}
		return e.mark(parent.ParentID, tree.DirtyChildren)
	case CodePathNotFound, CodeIdentityMismatch:
		return e.mark(node.ParentID, tree.DirtyChildren)
	case CodeMetadataMismatch:
		return e.mark(node.ID, tree.DirtyAttributes)
	case CodeObjectNotFound:
		if err := e.mark(node.ID, tree.DirtyDeleted); err != nil {
			return err
		}
		return e.mark(node.ParentID, tree.DirtyAttributes)
	default:
		if op == OpList && node.IsDirectory() {
			return e.mark(node.ID, tree.DirtyChildren)
		}
		return e.mark(node.ID, tree.DirtyAttributes)
	}
}

// resolveFailure finds the node a failure concerns: by the identity it
// carries, else by the snapshot's id.
func (e *Engine[I, A]) resolveFailure(alt tree.AltID[A], snapshot *tree.Model[I, A]) (tree.Model[I, A], bool) {
	if m, ok := e.tree.NodeByAltID(alt); ok {
		return m, true
	}
	if snapshot == nil {
		return tree.Model[I, A]{}, false
	}
	return e.tree.Node(snapshot.ID)
}

// staleFailure reports whether the tree moved on since the request was made:
// the node is pending deletion, sits in a branch queued for a full rescan, or
// no longer matches the snapshot.
func (e *Engine[I, A]) staleFailure(node tree.Model[I, A], snapshot *tree.Model[I, A]) bool {
	if node.Status.Has(tree.DirtyDeleted) {
		return true
	}
	if snapshot != nil && (snapshot.ID != node.ID || !node.SameContent(*snapshot)) {
		return true
	}
	for id := node.ID; !e.tree.IsRoot(id); {
		m, ok := e.tree.Node(id)
		if !ok {
			return true
		}
		if m.Status.Has(tree.DirtyDescendants) {
			return true
		}
		id = m.ParentID
	}
	return false
}
