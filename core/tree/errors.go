package tree

import "errors"

var (
	// ErrNodeNotFound is returned when the targeted node does not exist.
	ErrNodeNotFound = errors.New("node not found")
	// ErrParentNotFound is returned when the parent of a node does not exist.
	ErrParentNotFound = errors.New("parent not found")
	// ErrParentNotDirectory is returned when a node is placed under a file.
	ErrParentNotDirectory = errors.New("parent is not a directory")
	// ErrNameConflict is returned when a sibling already uses the name.
	ErrNameConflict = errors.New("name already used by a sibling")
	// ErrAltIDConflict is returned when another live node holds the same (AltID, Type).
	ErrAltIDConflict = errors.New("alt id already used by another node")
	// ErrInvalidName is returned for empty names or names containing a separator.
	ErrInvalidName = errors.New("invalid node name")
	// ErrInvalidType is returned for an unknown node type.
	ErrInvalidType = errors.New("invalid node type")
	// ErrCycle is returned when a node would be moved into its own subtree.
	ErrCycle = errors.New("node cannot be moved into its own subtree")
	// ErrRootImmutable is returned when the tree root is the target of a mutation.
	ErrRootImmutable = errors.New("tree root cannot be modified")
	// ErrTypeChange is returned when an update changes the node type.
	ErrTypeChange = errors.New("node type cannot change")
)
