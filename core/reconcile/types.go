package reconcile

import (
	"context"
	"iter"
	"time"

	"treesync/core/tree"
)

// Observation is one live entry reported by an adapter.
type Observation[A comparable] struct {
	// AltID is the external identity. It may be zero when the adapter cannot
	// provide one, in which case only name matching applies.
	AltID tree.AltID[A]
	// Name is the entry name, unique among its siblings.
	Name string
	// Type is the entry kind.
	Type tree.NodeType
	// Attributes is the metadata compared against the tree.
	Attributes tree.Attributes
	// ParentAltID identifies the parent. Only Fetch results need to carry it.
	ParentAltID tree.AltID[A]
}

// NodeRef addresses a node in an adapter. Adapters may resolve by path, by
// identity or both; a path resolving to a different identity is an
// IdentityMismatch failure.
type NodeRef[A comparable] struct {
	AltID tree.AltID[A]
	// Path is the slash-separated path from the sync root name down to the node.
	Path string
	Type tree.NodeType
}

// Source enumerates and fetches nodes of one side.
type Source[A comparable] interface {
	// List lazily yields the children of dir. A failure for a single entry is
	// yielded with the entry's Name and AltID set; a failure for the whole
	// directory is yielded with a zero Observation and ends the sequence.
	List(ctx context.Context, dir NodeRef[A]) iter.Seq2[Observation[A], error]

	// Fetch returns the current state of one node, including ParentAltID.
	Fetch(ctx context.Context, node NodeRef[A]) (Observation[A], error)
}

// RootSource yields the live sync roots in order.
type RootSource[A comparable] interface {
	Roots(ctx context.Context) iter.Seq2[Observation[A], error]
}

// ChangeType classifies a change event.
type ChangeType int

const (
	// Changed means content, metadata or (for directories) the child list changed.
	Changed ChangeType = iota
	// ChangedOrMoved means the node may also have been renamed or moved.
	ChangedOrMoved
	// Skipped means events were lost and the scope must be rescanned.
	Skipped
	// Error means the event feed failed for the scope.
	Error
)

// String returns a human-readable change type.
func (c ChangeType) String() string {
	switch c {
	case Changed:
		return "changed"
	case ChangedOrMoved:
		return "changed_or_moved"
	case Skipped:
		return "skipped"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// ChangeEvent is one entry of an incremental change feed.
type ChangeEvent[A comparable] struct {
	AltID tree.AltID[A]
	Type  ChangeType
	// Name is the new name, when known.
	Name string
	// ParentAltID is the new parent, when known.
	ParentAltID tree.AltID[A]
	Err         error
}

// ChangeSource delivers batches of change events until ctx is done or the
// channel is closed.
type ChangeSource[A comparable] interface {
	Changes(ctx context.Context) <-chan []ChangeEvent[A]
}

// Persister stores committed operations. *tree.Store implements it.
type Persister[I tree.ID, A comparable] interface {
	Apply(ctx context.Context, ops []tree.Operation[I, A], nextID I) error
}

// PassMode selects what a pass revisits.
type PassMode int

const (
	// PassFull enumerates every sync root recursively.
	PassFull PassMode = iota
	// PassDirty only revisits flagged nodes.
	PassDirty
)

// String returns a human-readable pass mode.
func (m PassMode) String() string {
	if m == PassFull {
		return "full"
	}
	return "dirty"
}

// PassResult summarizes one committed pass.
type PassResult struct {
	Mode     PassMode      `json:"mode"`
	Created  int           `json:"created"`
	Updated  int           `json:"updated"`
	Deleted  int           `json:"deleted"`
	Failures int           `json:"failures"`
	Listings int           `json:"listings"`
	Fetches  int           `json:"fetches"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
}
