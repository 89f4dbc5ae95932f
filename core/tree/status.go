package tree

import "strings"

// Status is a bitmask of dirty flags. Clean (no flags) means the node is trustworthy.
type Status uint16

const (
	// DirtyChildren means the child list must be re-enumerated.
	DirtyChildren Status = 1 << iota
	// DirtyAttributes means the node metadata must be re-fetched.
	DirtyAttributes
	// DirtyDeleted means the node is suspected deleted and must be confirmed.
	DirtyDeleted
	// DirtyDescendants means the entire subtree must be re-walked.
	DirtyDescendants
	// DirtyPlaceholder means the node was created speculatively and is not yet confirmed.
	DirtyPlaceholder
)

// Clean is the empty status.
const Clean Status = 0

var statusNames = []struct {
	flag Status
	name string
}{
	{DirtyChildren, "children"},
	{DirtyAttributes, "attributes"},
	{DirtyDeleted, "deleted"},
	{DirtyDescendants, "descendants"},
	{DirtyPlaceholder, "placeholder"},
}

// Has reports whether every bit of flags is set.
func (s Status) Has(flags Status) bool {
	return flags != 0 && s&flags == flags
}

// Any reports whether at least one bit of flags is set.
func (s Status) Any(flags Status) bool {
	return s&flags != 0
}

// With returns s with flags set.
func (s Status) With(flags Status) Status {
	return s | flags
}

// Without returns s with flags cleared.
func (s Status) Without(flags Status) Status {
	return s &^ flags
}

// IsClean reports whether no flag is set.
func (s Status) IsClean() bool {
	return s == Clean
}

// String lists the set flags, e.g. "children|deleted".
func (s Status) String() string {
	if s == Clean {
		return "clean"
	}
	var parts []string
	for _, n := range statusNames {
		if s&n.flag != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}
