package tree

import "fmt"

// Copy creates a copy of src named name under parent, with fresh internal
// ids. The top copy receives alt and the source attributes; when recursive is
// set the source subtree is copied too, with zero AltIDs since the external
// identities still belong to the originals. One Create is recorded per copied
// node, parents before children.
func (t *Tree[I, A]) Copy(src, parent I, name string, alt AltID[A], recursive bool) (Model[I, A], error) {
	orig, ok := t.Node(src)
	if !ok {
		return Model[I, A]{}, fmt.Errorf("copy %v: %w", src, ErrNodeNotFound)
	}
	if src == t.root {
		return Model[I, A]{}, ErrRootImmutable
	}
	if recursive && orig.IsDirectory() && t.IsAncestor(src, parent) {
		return Model[I, A]{}, fmt.Errorf("copy %v: %w", src, ErrCycle)
	}

	// Snapshot the subtree before creating anything so a copy placed inside
	// the source is not copied again.
	var children []Model[I, A]
	if recursive {
		children = t.Children(src)
	}

	top, err := t.Create(Model[I, A]{
		ParentID:   parent,
		Name:       name,
		Type:       orig.Type,
		AltID:      alt,
		Status:     orig.Status.Without(DirtyDeleted),
		Attributes: orig.Attributes,
	})
	if err != nil {
		return Model[I, A]{}, fmt.Errorf("copy %v: %w", src, err)
	}
	for _, c := range children {
		if _, err := t.Copy(c.ID, top.ID, c.Name, AltID[A]{}, true); err != nil {
			return top, err
		}
	}
	return top, nil
}
