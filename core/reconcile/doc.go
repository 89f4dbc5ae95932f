// Package reconcile keeps an adapter tree converged with the live state of one
// side of a two-way sync, emitting a minimal stream of Create/Update/Delete
// operations for the sync-decision stage.
//
// Two engines run per client process: one over the local file system and one
// over the remote object store. Both are the same generic Engine instantiated
// with a different external identity type.
//
// # Architecture
//
// The engine consists of five steps, all executed on a single-writer Scheduler:
//
// 1. Root enumeration: matches the live sync roots against the tree, migrating
// or recreating roots whose external identity moved, and deleting roots that
// disappeared.
//
// 2. Branch enumeration: lists directories (concurrently, outside the
// scheduler) and feeds every entry to Node Update Detection.
//
// 3. Node Update Detection: the reconciliation kernel deciding whether an
// observation is a no-op, an update, a move, a duplicate or a create.
//
// 4. Failure step: maps classified I/O failures onto dirty flags so the next
// pass can self-heal instead of aborting.
//
// 5. Completion: deletes everything a pass visited the parent of but did not
// observe, then persists and commits the operations log.
//
// # Passes
//
// PassFull walks every sync root. PassDirty only revisits nodes carrying dirty
// flags, which is what the incremental change-event mode relies on.
//
// # Usage
//
//	eng := reconcile.New(t, reconcile.Options[tree.NodeID, string]{
//	    Source: src,
//	    Roots:  src,
//	    Store:  store,
//	    Logger: logger,
//	    Config: cfg.Engine,
//	})
//	defer eng.Close()
//
//	result, err := eng.RunPass(ctx, reconcile.PassFull)
//	ops, err := eng.Drain(ctx)
package reconcile
