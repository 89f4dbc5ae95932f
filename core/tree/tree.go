package tree

import (
	"fmt"
	"slices"
	"strings"
)

type altKey[A comparable] struct {
	alt AltID[A]
	typ NodeType
}

type node[I ID, A comparable] struct {
	model    Model[I, A]
	children map[string]I
}

// Tree is the adapter tree. It is not safe for concurrent use; the
// reconciliation engine serializes all access through its scheduler.
type Tree[I ID, A comparable] struct {
	root   I
	nextID I
	nodes  map[I]*node[I, A]
	byAlt  map[altKey[A]]I
	log    OperationLog[I, A]
}

// New creates a tree holding only its root directory. The root uses the zero
// internal id; the first created node gets id 1.
func New[I ID, A comparable]() *Tree[I, A] {
	t := &Tree[I, A]{
		nodes: make(map[I]*node[I, A]),
		byAlt: make(map[altKey[A]]I),
	}
	t.reset()
	return t
}

func (t *Tree[I, A]) reset() {
	var zero I
	t.root = zero
	t.nextID = zero + 1
	clear(t.nodes)
	clear(t.byAlt)
	t.nodes[t.root] = &node[I, A]{
		model:    Model[I, A]{ID: t.root, ParentID: t.root, Type: Directory},
		children: make(map[string]I),
	}
}

// Log returns the tree's operations log.
func (t *Tree[I, A]) Log() *OperationLog[I, A] {
	return &t.log
}

// NextID returns the id the next created node will receive.
func (t *Tree[I, A]) NextID() I {
	return t.nextID
}

// Root returns the root model.
func (t *Tree[I, A]) Root() Model[I, A] {
	return t.nodes[t.root].model
}

// Len returns the number of nodes, excluding the root.
func (t *Tree[I, A]) Len() int {
	return len(t.nodes) - 1
}

// Node returns the node with the given internal id.
func (t *Tree[I, A]) Node(id I) (Model[I, A], bool) {
	n, ok := t.nodes[id]
	if !ok {
		return Model[I, A]{}, false
	}
	return n.model, true
}

// NodeByAltIDAndType returns the live node holding (alt, typ).
func (t *Tree[I, A]) NodeByAltIDAndType(alt AltID[A], typ NodeType) (Model[I, A], bool) {
	if alt.IsZero() {
		return Model[I, A]{}, false
	}
	id, ok := t.byAlt[altKey[A]{alt: alt, typ: typ}]
	if !ok {
		return Model[I, A]{}, false
	}
	return t.nodes[id].model, true
}

// NodeByAltID returns the live node holding alt, directories first.
func (t *Tree[I, A]) NodeByAltID(alt AltID[A]) (Model[I, A], bool) {
	if m, ok := t.NodeByAltIDAndType(alt, Directory); ok {
		return m, true
	}
	return t.NodeByAltIDAndType(alt, File)
}

// NodeByName returns the child of parent with the given name.
func (t *Tree[I, A]) NodeByName(parent I, name string) (Model[I, A], bool) {
	p, ok := t.nodes[parent]
	if !ok {
		return Model[I, A]{}, false
	}
	id, ok := p.children[name]
	if !ok {
		return Model[I, A]{}, false
	}
	return t.nodes[id].model, true
}

// Children returns the children of id sorted by name.
func (t *Tree[I, A]) Children(id I) []Model[I, A] {
	p, ok := t.nodes[id]
	if !ok {
		return nil
	}
	out := make([]Model[I, A], 0, len(p.children))
	for _, cid := range p.children {
		out = append(out, t.nodes[cid].model)
	}
	slices.SortFunc(out, func(a, b Model[I, A]) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// IsRoot reports whether id is the tree root.
func (t *Tree[I, A]) IsRoot(id I) bool {
	return id == t.root
}

// IsSyncRoot reports whether id is a direct child of the tree root with a
// non-default AltID.
func (t *Tree[I, A]) IsSyncRoot(id I) bool {
	n, ok := t.nodes[id]
	if !ok || id == t.root {
		return false
	}
	return n.model.ParentID == t.root && !n.model.AltID.IsZero()
}

// SyncRootOf returns the sync root that contains id.
func (t *Tree[I, A]) SyncRootOf(id I) (Model[I, A], bool) {
	n, ok := t.nodes[id]
	if !ok || id == t.root {
		return Model[I, A]{}, false
	}
	for n.model.ParentID != t.root {
		n = t.nodes[n.model.ParentID]
	}
	return n.model, true
}

// Path returns the names from the sync root down to id joined by "/".
func (t *Tree[I, A]) Path(id I) (string, error) {
	var names []string
	for id != t.root {
		n, ok := t.nodes[id]
		if !ok {
			return "", fmt.Errorf("path of %v: %w", id, ErrNodeNotFound)
		}
		names = append(names, n.model.Name)
		id = n.model.ParentID
	}
	slices.Reverse(names)
	return strings.Join(names, "/"), nil
}

// IsAncestor reports whether ancestor is id itself or one of its ancestors.
func (t *Tree[I, A]) IsAncestor(ancestor, id I) bool {
	for {
		if id == ancestor {
			return true
		}
		if id == t.root {
			return false
		}
		n, ok := t.nodes[id]
		if !ok {
			return false
		}
		id = n.model.ParentID
	}
}

// Walk visits id and its descendants in pre-order, children in name order.
// Returning false from fn skips the node's subtree.
func (t *Tree[I, A]) Walk(id I, fn func(Model[I, A]) bool) {
	n, ok := t.nodes[id]
	if !ok {
		return
	}
	if !fn(n.model) {
		return
	}
	for _, c := range t.Children(id) {
		t.Walk(c.ID, fn)
	}
}

// Create validates and adds a node. The model's ID is ignored; the assigned
// snapshot is returned.
func (t *Tree[I, A]) Create(m Model[I, A]) (Model[I, A], error) {
	if err := validateName(m.Name); err != nil {
		return Model[I, A]{}, err
	}
	if !m.Type.Valid() {
		return Model[I, A]{}, fmt.Errorf("create %q: %w", m.Name, ErrInvalidType)
	}
	parent, err := t.parentFor(m.ParentID)
	if err != nil {
		return Model[I, A]{}, fmt.Errorf("create %q: %w", m.Name, err)
	}
	if _, taken := parent.children[m.Name]; taken {
		return Model[I, A]{}, fmt.Errorf("create %q: %w", m.Name, ErrNameConflict)
	}
	if _, taken := t.NodeByAltIDAndType(m.AltID, m.Type); taken {
		return Model[I, A]{}, fmt.Errorf("create %q (%s): %w", m.Name, m.AltID, ErrAltIDConflict)
	}

	m.ID = t.nextID
	t.nextID++
	t.insert(m)

	after := m
	t.log.append(Operation[I, A]{Type: OpCreate, After: &after})
	return m, nil
}

// Update validates and replaces the node with the same ID. An update that
// changes nothing is not recorded.
func (t *Tree[I, A]) Update(m Model[I, A]) (Model[I, A], error) {
	if m.ID == t.root {
		return Model[I, A]{}, ErrRootImmutable
	}
	n, ok := t.nodes[m.ID]
	if !ok {
		return Model[I, A]{}, fmt.Errorf("update %v: %w", m.ID, ErrNodeNotFound)
	}
	before := n.model
	if before == m {
		return before, nil
	}
	if m.Type != before.Type {
		return Model[I, A]{}, fmt.Errorf("update %v: %w", m.ID, ErrTypeChange)
	}
	if err := validateName(m.Name); err != nil {
		return Model[I, A]{}, err
	}
	parent, err := t.parentFor(m.ParentID)
	if err != nil {
		return Model[I, A]{}, fmt.Errorf("update %v: %w", m.ID, err)
	}
	if m.ParentID != before.ParentID && t.IsAncestor(m.ID, m.ParentID) {
		return Model[I, A]{}, fmt.Errorf("update %v: %w", m.ID, ErrCycle)
	}
	if other, taken := parent.children[m.Name]; taken && other != m.ID {
		return Model[I, A]{}, fmt.Errorf("update %v to %q: %w", m.ID, m.Name, ErrNameConflict)
	}
	if holder, taken := t.NodeByAltIDAndType(m.AltID, m.Type); taken && holder.ID != m.ID {
		return Model[I, A]{}, fmt.Errorf("update %v (%s): %w", m.ID, m.AltID, ErrAltIDConflict)
	}

	t.detach(before)
	n.model = m
	t.attach(m)

	after := m
	t.log.append(Operation[I, A]{Type: OpUpdate, Before: &before, After: &after})
	return m, nil
}

// SetStatus replaces the dirty flags of a node. It is a convenience over Update.
func (t *Tree[I, A]) SetStatus(id I, status Status) (Model[I, A], error) {
	m, ok := t.Node(id)
	if !ok {
		return Model[I, A]{}, fmt.Errorf("set status of %v: %w", id, ErrNodeNotFound)
	}
	m.Status = status
	return t.Update(m)
}

// Delete removes a node and its whole subtree, recording one Delete per node,
// descendants before their parent.
func (t *Tree[I, A]) Delete(id I) error {
	if id == t.root {
		return ErrRootImmutable
	}
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("delete %v: %w", id, ErrNodeNotFound)
	}
	for _, cid := range t.childIDs(n) {
		if err := t.Delete(cid); err != nil {
			return err
		}
	}
	before := n.model
	t.detach(before)
	delete(t.nodes, id)
	t.log.append(Operation[I, A]{Type: OpDelete, Before: &before})
	return nil
}

// Restore replaces the whole content of the tree with the given models without
// recording operations. Parents must precede their children.
func (t *Tree[I, A]) Restore(models []Model[I, A], nextID I) error {
	t.reset()
	for _, m := range models {
		if m.ID == t.root {
			continue
		}
		if _, dup := t.nodes[m.ID]; dup {
			return fmt.Errorf("restore %v: duplicate id", m.ID)
		}
		parent, err := t.parentFor(m.ParentID)
		if err != nil {
			return fmt.Errorf("restore %v: %w", m.ID, err)
		}
		if _, taken := parent.children[m.Name]; taken {
			return fmt.Errorf("restore %v: %w", m.ID, ErrNameConflict)
		}
		if _, taken := t.NodeByAltIDAndType(m.AltID, m.Type); taken {
			return fmt.Errorf("restore %v: %w", m.ID, ErrAltIDConflict)
		}
		t.insert(m)
		if m.ID >= nextID {
			nextID = m.ID + 1
		}
	}
	t.nextID = nextID
	return nil
}

func (t *Tree[I, A]) parentFor(id I) (*node[I, A], error) {
	p, ok := t.nodes[id]
	if !ok {
		return nil, ErrParentNotFound
	}
	if p.model.Type != Directory {
		return nil, ErrParentNotDirectory
	}
	return p, nil
}

func (t *Tree[I, A]) insert(m Model[I, A]) {
	n := &node[I, A]{model: m}
	if m.Type == Directory {
		n.children = make(map[string]I)
	}
	t.nodes[m.ID] = n
	t.attach(m)
}

func (t *Tree[I, A]) attach(m Model[I, A]) {
	t.nodes[m.ParentID].children[m.Name] = m.ID
	if !m.AltID.IsZero() {
		t.byAlt[altKey[A]{alt: m.AltID, typ: m.Type}] = m.ID
	}
}

func (t *Tree[I, A]) detach(m Model[I, A]) {
	if p, ok := t.nodes[m.ParentID]; ok {
		delete(p.children, m.Name)
	}
	if !m.AltID.IsZero() {
		delete(t.byAlt, altKey[A]{alt: m.AltID, typ: m.Type})
	}
}

func (t *Tree[I, A]) childIDs(n *node[I, A]) []I {
	ids := make([]I, 0, len(n.children))
	for _, id := range n.children {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, '/') {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}
