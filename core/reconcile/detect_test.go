package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treesync/core/tree"
)

func detectOn(t *testing.T, e *testEngine, p *pass[tree.NodeID, string], parent tree.NodeID, obs Observation[string]) tree.NodeID {
	t.Helper()
	var id tree.NodeID
	require.NoError(t, e.sched.Do(context.Background(), func() error {
		var err error
		id, err = e.detect(p, parent, obs)
		return err
	}))
	return id
}

func TestDetect(t *testing.T) {
	newEngine := func(t *testing.T) (*testEngine, tree.Model[tree.NodeID, string]) {
		e := newTestEngine(t, newFakeSource())
		r, err := e.tree.Create(tree.Model[tree.NodeID, string]{
			ParentID: e.tree.Root().ID, Name: "R", Type: tree.Directory, AltID: alt("r"),
		})
		require.NoError(t, err)
		return e, r
	}
	file := func(name, id string, size int64) Observation[string] {
		return Observation[string]{Name: name, AltID: alt(id), Type: tree.File, Attributes: attrs(size)}
	}

	t.Run("creates new directory dirty", func(t *testing.T) {
		e, r := newEngine(t)
		id := detectOn(t, e, newPass[tree.NodeID, string](PassFull), r.ID,
			Observation[string]{Name: "D", AltID: alt("d"), Type: tree.Directory})
		m, _ := e.tree.Node(id)
		assert.Equal(t, tree.DirtyChildren, m.Status)
	})

	t.Run("unchanged observation records nothing", func(t *testing.T) {
		e, r := newEngine(t)
		p := newPass[tree.NodeID, string](PassFull)
		detectOn(t, e, p, r.ID, file("a", "a", 1))
		e.tree.Log().Commit()
		detectOn(t, e, p, r.ID, file("a", "a", 1))
		assert.Empty(t, e.tree.Log().Pending())
	})

	t.Run("attribute change clears flags", func(t *testing.T) {
		e, r := newEngine(t)
		p := newPass[tree.NodeID, string](PassFull)
		id := detectOn(t, e, p, r.ID, file("a", "a", 1))
		_, err := e.tree.SetStatus(id, tree.DirtyAttributes)
		require.NoError(t, err)

		detectOn(t, e, p, r.ID, file("a", "a", 2))
		m, _ := e.tree.Node(id)
		assert.Equal(t, int64(2), m.Attributes.Size)
		assert.True(t, m.Status.IsClean())
	})

	t.Run("anonymous observation keeps identity", func(t *testing.T) {
		e, r := newEngine(t)
		p := newPass[tree.NodeID, string](PassFull)
		id := detectOn(t, e, p, r.ID, file("a", "a", 1))
		obs := file("a", "", 5)
		obs.AltID = tree.AltID[string]{}
		got := detectOn(t, e, p, r.ID, obs)
		assert.Equal(t, id, got)
		m, _ := e.tree.Node(id)
		assert.Equal(t, alt("a"), m.AltID)
		assert.Equal(t, int64(5), m.Attributes.Size)
	})

	t.Run("occupied name is replaced", func(t *testing.T) {
		e, r := newEngine(t)
		p := newPass[tree.NodeID, string](PassFull)
		old := detectOn(t, e, p, r.ID, file("a", "a", 1))
		got := detectOn(t, e, p, r.ID, file("a", "other", 1))
		assert.NotEqual(t, old, got)
		_, ok := e.tree.Node(old)
		assert.False(t, ok)
	})

	t.Run("move evicts destination occupant", func(t *testing.T) {
		e, r := newEngine(t)
		setup := newPass[tree.NodeID, string](PassFull)
		d := detectOn(t, e, setup, r.ID, Observation[string]{Name: "D", AltID: alt("d"), Type: tree.Directory})
		moved := detectOn(t, e, setup, d, file("x", "x", 1))
		occupant := detectOn(t, e, setup, r.ID, file("y", "y", 1))

		got := detectOn(t, e, newPass[tree.NodeID, string](PassFull), r.ID, file("y", "x", 1))
		assert.Equal(t, moved, got)
		_, ok := e.tree.Node(occupant)
		assert.False(t, ok)
		m, _ := e.tree.Node(moved)
		assert.Equal(t, r.ID, m.ParentID)
		assert.Equal(t, "y", m.Name)
	})

	t.Run("move into own subtree releases identity", func(t *testing.T) {
		e, r := newEngine(t)
		setup := newPass[tree.NodeID, string](PassFull)
		a := detectOn(t, e, setup, r.ID, Observation[string]{Name: "A", AltID: alt("a"), Type: tree.Directory})
		b := detectOn(t, e, setup, a, Observation[string]{Name: "B", AltID: alt("b"), Type: tree.Directory})

		got := detectOn(t, e, newPass[tree.NodeID, string](PassFull), b,
			Observation[string]{Name: "A", AltID: alt("a"), Type: tree.Directory})
		assert.NotEqual(t, a, got)

		old, ok := e.tree.Node(a)
		require.True(t, ok)
		assert.True(t, old.AltID.IsZero())
		holder, ok := e.tree.NodeByAltID(alt("a"))
		require.True(t, ok)
		assert.Equal(t, got, holder.ID)
		assert.Equal(t, b, holder.ParentID)
	})

	t.Run("identity change dirties directory subtree", func(t *testing.T) {
		e, r := newEngine(t)
		setup := newPass[tree.NodeID, string](PassFull)
		ph, err := e.tree.Create(tree.Model[tree.NodeID, string]{
			ParentID: r.ID, Name: "D", Type: tree.Directory, Status: tree.DirtyPlaceholder,
		})
		require.NoError(t, err)
		sub := detectOn(t, e, setup, ph.ID, Observation[string]{Name: "S", AltID: alt("s"), Type: tree.Directory})
		_, err = e.tree.SetStatus(sub, tree.Clean)
		require.NoError(t, err)

		got := detectOn(t, e, setup, r.ID, Observation[string]{Name: "D", AltID: alt("d"), Type: tree.Directory})
		assert.Equal(t, ph.ID, got)
		m, _ := e.tree.Node(got)
		assert.Equal(t, tree.DirtyChildren, m.Status)
		s, _ := e.tree.Node(sub)
		assert.Equal(t, tree.DirtyDescendants, s.Status)
	})

	t.Run("rejects malformed observation", func(t *testing.T) {
		e, r := newEngine(t)
		err := e.sched.Do(context.Background(), func() error {
			_, err := e.detect(newPass[tree.NodeID, string](PassFull), r.ID, file("a/b", "a", 1))
			return err
		})
		assert.ErrorIs(t, err, ErrContractViolation)
	})
}

func TestApplyEvent(t *testing.T) {
	setup := func(t *testing.T) (*testEngine, map[string]tree.Model[tree.NodeID, string]) {
		e := newTestEngine(t, newFakeSource())
		nodes := map[string]tree.Model[tree.NodeID, string]{}
		create := func(key string, parent tree.NodeID, typ tree.NodeType) {
			m, err := e.tree.Create(tree.Model[tree.NodeID, string]{
				ParentID: parent, Name: key, Type: typ, AltID: alt(key),
			})
			require.NoError(t, err)
			nodes[key] = m
		}
		create("r", e.tree.Root().ID, tree.Directory)
		create("s", e.tree.Root().ID, tree.Directory)
		create("d", nodes["r"].ID, tree.Directory)
		create("e", nodes["r"].ID, tree.Directory)
		create("f", nodes["d"].ID, tree.File)
		return e, nodes
	}
	status := func(t *testing.T, e *testEngine, m tree.Model[tree.NodeID, string]) tree.Status {
		cur, ok := e.tree.Node(m.ID)
		require.True(t, ok)
		return cur.Status
	}
	apply := func(t *testing.T, e *testEngine, ev ChangeEvent[string]) {
		require.NoError(t, e.sched.Do(context.Background(), func() error {
			return e.applyEvents([]ChangeEvent[string]{ev})
		}))
	}

	t.Run("changed file", func(t *testing.T) {
		e, n := setup(t)
		apply(t, e, ChangeEvent[string]{AltID: alt("f"), Type: Changed})
		assert.Equal(t, tree.DirtyAttributes, status(t, e, n["f"]))
		assert.True(t, status(t, e, n["d"]).IsClean())
	})

	t.Run("changed directory", func(t *testing.T) {
		e, n := setup(t)
		apply(t, e, ChangeEvent[string]{AltID: alt("d"), Type: Changed})
		assert.Equal(t, tree.DirtyChildren, status(t, e, n["d"]))
	})

	t.Run("unknown node marks new parent", func(t *testing.T) {
		e, n := setup(t)
		apply(t, e, ChangeEvent[string]{AltID: alt("new"), Type: Changed, ParentAltID: alt("e")})
		assert.Equal(t, tree.DirtyChildren, status(t, e, n["e"]))
	})

	t.Run("moved marks both parents", func(t *testing.T) {
		e, n := setup(t)
		apply(t, e, ChangeEvent[string]{AltID: alt("f"), Type: ChangedOrMoved, ParentAltID: alt("e")})
		assert.Equal(t, tree.DirtyAttributes, status(t, e, n["f"]))
		assert.Equal(t, tree.DirtyChildren, status(t, e, n["d"]))
		assert.Equal(t, tree.DirtyChildren, status(t, e, n["e"]))
	})

	t.Run("skipped directory rescans subtree", func(t *testing.T) {
		e, n := setup(t)
		apply(t, e, ChangeEvent[string]{AltID: alt("d"), Type: Skipped})
		assert.Equal(t, tree.DirtyDescendants, status(t, e, n["d"]))
	})

	t.Run("error without identity rescans all roots", func(t *testing.T) {
		e, n := setup(t)
		apply(t, e, ChangeEvent[string]{Type: Error})
		assert.Equal(t, tree.DirtyDescendants, status(t, e, n["r"]))
		assert.Equal(t, tree.DirtyDescendants, status(t, e, n["s"]))
		assert.True(t, status(t, e, n["d"]).IsClean())
	})
}
