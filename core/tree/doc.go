// Package tree implements the adapter tree: an in-memory replica of one side's
// file-system structure, keyed by a stable internal identity and by the
// external (VolumeID, AltID) pair the adapter reports.
//
// # Mutation
//
// The tree is only ever changed through the validated Create, Update, Delete and
// Copy operations. Each successful mutation is appended, in order, to the tree's
// OperationLog with before/after model snapshots, which makes every change
// auditable and replayable by the sync-decision stage downstream.
//
// # Invariants
//
//   - every non-root node has exactly one existing parent
//   - internal ids are assigned monotonically and never reused
//   - (VolumeID, AltID, Type) identifies at most one live node
//   - sibling names are unique
//   - deleting a node deletes its whole subtree
//
// # Persistence
//
// Store persists the tree with GORM so a replica survives restarts. Operations
// are written in one transaction per commit.
//
// # Usage
//
//	t := tree.New[tree.NodeID, string]()
//	dir, err := t.Create(tree.Model[tree.NodeID, string]{
//	    ParentID: t.Root().ID,
//	    Name:     "Documents",
//	    Type:     tree.Directory,
//	    AltID:    tree.AltID[string]{VolumeID: 1, ID: "a1"},
//	})
//	t.Log().Commit()
//	ops := t.Log().Drain()
package tree
