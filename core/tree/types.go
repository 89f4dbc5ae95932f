package tree

import (
	"fmt"
	"time"
)

// ID constrains the internal node identity type.
type ID interface {
	~int64 | ~uint64
}

// NodeID is the internal identity used by the engines shipped with this module.
type NodeID int64

// VolumeID disambiguates external ids across volumes or shares.
type VolumeID uint32

// AltID is the external identity of a node. The same ID may repeat across
// different volumes. The zero value is the default (unassigned) AltID.
type AltID[A comparable] struct {
	VolumeID VolumeID `json:"volume_id"`
	ID       A        `json:"id"`
}

// IsZero reports whether the AltID is the default value.
func (a AltID[A]) IsZero() bool {
	var zero AltID[A]
	return a == zero
}

// HasID reports whether the external id part is assigned, regardless of volume.
func (a AltID[A]) HasID() bool {
	var zero A
	return a.ID != zero
}

// String returns "volume:id".
func (a AltID[A]) String() string {
	return fmt.Sprintf("%d:%v", a.VolumeID, a.ID)
}

// NodeType is the kind of a node.
type NodeType uint8

const (
	// File is a leaf node.
	File NodeType = iota + 1
	// Directory can hold children.
	Directory
)

// String returns a human-readable node type.
func (t NodeType) String() string {
	switch t {
	case File:
		return "file"
	case Directory:
		return "directory"
	default:
		return "unknown"
	}
}

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	return t == File || t == Directory
}

// Attributes holds the metadata compared to detect divergence.
type Attributes struct {
	// Size is the content size in bytes. Always zero for directories.
	Size int64 `json:"size"`
	// LastWriteTime is the last content modification time.
	LastWriteTime time.Time `json:"last_write_time"`
	// CreationTime is the creation time when the adapter reports one.
	CreationTime time.Time `json:"creation_time"`
	// ContentHash is an adapter-specific content fingerprint (e.g. an ETag).
	ContentHash string `json:"content_hash,omitempty"`
}

// Equal compares attributes, using time.Equal for timestamps.
func (a Attributes) Equal(b Attributes) bool {
	return a.Size == b.Size &&
		a.LastWriteTime.Equal(b.LastWriteTime) &&
		a.CreationTime.Equal(b.CreationTime) &&
		a.ContentHash == b.ContentHash
}

// Model is a value snapshot of a node.
type Model[I ID, A comparable] struct {
	ID         I          `json:"id"`
	ParentID   I          `json:"parent_id"`
	Name       string     `json:"name"`
	Type       NodeType   `json:"type"`
	AltID      AltID[A]   `json:"alt_id"`
	Status     Status     `json:"status"`
	Attributes Attributes `json:"attributes"`
}

// IsDirectory reports whether the model is a directory.
func (m Model[I, A]) IsDirectory() bool {
	return m.Type == Directory
}

// IsPlaceholder reports whether the node is an unconfirmed placeholder.
func (m Model[I, A]) IsPlaceholder() bool {
	return m.Status.Has(DirtyPlaceholder)
}

// SameContent reports whether two snapshots agree on everything an
// observation can tell: location, identity and attributes.
func (m Model[I, A]) SameContent(o Model[I, A]) bool {
	return m.Name == o.Name &&
		m.ParentID == o.ParentID &&
		m.Type == o.Type &&
		m.AltID == o.AltID &&
		m.Attributes.Equal(o.Attributes)
}
