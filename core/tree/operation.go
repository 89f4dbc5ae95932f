package tree

// OpType is the kind of a tree mutation.
type OpType int

const (
	// OpCreate adds a node.
	OpCreate OpType = iota
	// OpUpdate changes an existing node.
	OpUpdate
	// OpDelete removes a node.
	OpDelete
)

// String returns a human-readable string for the operation type.
func (o OpType) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Change is a bitmask of the model fields an Update touched.
type Change uint8

const (
	ChangeName Change = 1 << iota
	ChangeParent
	ChangeAltID
	ChangeAttributes
	ChangeStatus
)

// Structural covers the changes that alter identity or location.
const Structural = ChangeName | ChangeParent | ChangeAltID

// Operation is one applied tree mutation. Before is nil for creates and After
// is nil for deletes.
type Operation[I ID, A comparable] struct {
	Type   OpType       `json:"type"`
	Before *Model[I, A] `json:"before,omitempty"`
	After  *Model[I, A] `json:"after,omitempty"`
}

// NodeID returns the id of the node the operation applies to.
func (o Operation[I, A]) NodeID() I {
	if o.After != nil {
		return o.After.ID
	}
	return o.Before.ID
}

// Changes reports which fields differ between Before and After.
// Creates and deletes report every field.
func (o Operation[I, A]) Changes() Change {
	if o.Before == nil || o.After == nil {
		return ChangeName | ChangeParent | ChangeAltID | ChangeAttributes | ChangeStatus
	}
	return diff(*o.Before, *o.After)
}

func diff[I ID, A comparable](before, after Model[I, A]) Change {
	var c Change
	if before.Name != after.Name {
		c |= ChangeName
	}
	if before.ParentID != after.ParentID {
		c |= ChangeParent
	}
	if before.AltID != after.AltID {
		c |= ChangeAltID
	}
	if !before.Attributes.Equal(after.Attributes) {
		c |= ChangeAttributes
	}
	if before.Status != after.Status {
		c |= ChangeStatus
	}
	return c
}

// OperationLog records tree mutations in application order. Entries are
// appended as pending and only become drainable after Commit.
type OperationLog[I ID, A comparable] struct {
	pending   []Operation[I, A]
	committed []Operation[I, A]
}

func (l *OperationLog[I, A]) append(op Operation[I, A]) {
	l.pending = append(l.pending, op)
}

// Pending returns a copy of the operations recorded since the last commit.
func (l *OperationLog[I, A]) Pending() []Operation[I, A] {
	out := make([]Operation[I, A], len(l.pending))
	copy(out, l.pending)
	return out
}

// Commit makes every pending operation visible to Drain.
// It returns the number of operations committed.
func (l *OperationLog[I, A]) Commit() int {
	n := len(l.pending)
	l.committed = append(l.committed, l.pending...)
	l.pending = nil
	return n
}

// Drain returns the committed operations in order and forgets them.
func (l *OperationLog[I, A]) Drain() []Operation[I, A] {
	out := l.committed
	l.committed = nil
	return out
}

// Len returns the number of committed, not yet drained, operations.
func (l *OperationLog[I, A]) Len() int {
	return len(l.committed)
}
