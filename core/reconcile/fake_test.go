package reconcile

import (
	"context"
	"io/fs"
	"iter"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"treesync/core/tree"
)

const testVolume = 1

func alt(id string) tree.AltID[string] {
	return tree.AltID[string]{VolumeID: testVolume, ID: id}
}

func attrs(size int64) tree.Attributes {
	return tree.Attributes{Size: size, LastWriteTime: time.Unix(1700000000, 0).UTC()}
}

// fakeSource is an in-memory side keyed by slash paths.
type fakeSource struct {
	mu       sync.Mutex
	roots    []string
	entries  map[string]Observation[string]
	children map[string][]string
	listErr  map[string]error
	fetchErr map[string]error
	listed   map[string]int
	fetched  map[string]int
	// hook, when set, runs at the start of every List and Fetch.
	hook func(path string)
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		entries:  make(map[string]Observation[string]),
		children: make(map[string][]string),
		listErr:  make(map[string]error),
		fetchErr: make(map[string]error),
		listed:   make(map[string]int),
		fetched:  make(map[string]int),
	}
}

func (f *fakeSource) root(name, id string) *fakeSource {
	return f.rootAlt(name, alt(id))
}

func (f *fakeSource) rootAlt(name string, a tree.AltID[string]) *fakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roots = append(f.roots, name)
	f.entries[name] = Observation[string]{AltID: a, Name: name, Type: tree.Directory}
	return f
}

func (f *fakeSource) dropRoot(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.roots[:0]
	for _, r := range f.roots {
		if r != name {
			kept = append(kept, r)
		}
	}
	f.roots = kept
}

func (f *fakeSource) add(p string, a tree.AltID[string], typ tree.NodeType, size int64) *fakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	dir, name := path.Split(p)
	dir = path.Clean(dir)
	f.entries[p] = Observation[string]{AltID: a, Name: name, Type: typ, Attributes: attrs(size)}
	f.children[dir] = append(f.children[dir], p)
	return f
}

func (f *fakeSource) dir(p, id string) *fakeSource {
	return f.add(p, alt(id), tree.Directory, 0)
}

func (f *fakeSource) file(p, id string, size int64) *fakeSource {
	return f.add(p, alt(id), tree.File, size)
}

func (f *fakeSource) remove(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dir := path.Dir(p)
	delete(f.entries, p)
	kids := f.children[dir][:0]
	for _, c := range f.children[dir] {
		if c != p {
			kids = append(kids, c)
		}
	}
	f.children[dir] = kids
}

func (f *fakeSource) move(from, to string) {
	f.mu.Lock()
	obs := f.entries[from]
	f.mu.Unlock()
	f.remove(from)
	f.add(to, obs.AltID, obs.Type, obs.Attributes.Size)
}

func (f *fakeSource) onRequest(hook func(path string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hook = hook
}

func (f *fakeSource) listCount(p string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listed[p]
}

func (f *fakeSource) Roots(ctx context.Context) iter.Seq2[Observation[string], error] {
	return func(yield func(Observation[string], error) bool) {
		f.mu.Lock()
		var out []Observation[string]
		for _, r := range f.roots {
			out = append(out, f.entries[r])
		}
		f.mu.Unlock()
		for _, obs := range out {
			if !yield(obs, nil) {
				return
			}
		}
	}
}

func (f *fakeSource) List(ctx context.Context, dir NodeRef[string]) iter.Seq2[Observation[string], error] {
	return func(yield func(Observation[string], error) bool) {
		f.mu.Lock()
		if f.hook != nil {
			f.hook(dir.Path)
		}
		f.listed[dir.Path]++
		if err := f.listErr[dir.Path]; err != nil {
			f.mu.Unlock()
			yield(Observation[string]{}, err)
			return
		}
		var out []Observation[string]
		for _, c := range f.children[dir.Path] {
			out = append(out, f.entries[c])
		}
		f.mu.Unlock()
		for _, obs := range out {
			if !yield(obs, nil) {
				return
			}
		}
	}
}

func (f *fakeSource) Fetch(ctx context.Context, ref NodeRef[string]) (Observation[string], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hook != nil {
		f.hook(ref.Path)
	}
	f.fetched[ref.Path]++
	if err := f.fetchErr[ref.Path]; err != nil {
		return Observation[string]{}, err
	}
	for p, obs := range f.entries {
		if obs.AltID != ref.AltID || obs.Type != ref.Type {
			continue
		}
		obs.ParentAltID = f.entries[path.Dir(p)].AltID
		return obs, nil
	}
	return Observation[string]{}, NewFailure(CodeObjectNotFound, ref.AltID, fs.ErrNotExist)
}

// chanSource is a ChangeSource fed by a test.
type chanSource struct {
	ch chan []ChangeEvent[string]
}

func (c *chanSource) Changes(ctx context.Context) <-chan []ChangeEvent[string] {
	return c.ch
}

type testEngine = Engine[tree.NodeID, string]

func newTestEngine(t *testing.T, src *fakeSource) *testEngine {
	t.Helper()
	e := New(tree.New[tree.NodeID, string](), Options[tree.NodeID, string]{
		Source: src,
		Roots:  src,
		Config: Config{Concurrency: 2},
	})
	t.Cleanup(e.Close)
	return e
}

// nodeAt resolves a slash path in the engine's tree.
func nodeAt(t *testing.T, e *testEngine, p string) (tree.Model[tree.NodeID, string], bool) {
	t.Helper()
	var (
		m  tree.Model[tree.NodeID, string]
		ok = true
	)
	require.NoError(t, e.sched.Do(context.Background(), func() error {
		id := e.tree.Root().ID
		for _, name := range strings.Split(p, "/") {
			var child tree.Model[tree.NodeID, string]
			child, ok = e.tree.NodeByName(id, name)
			if !ok {
				return nil
			}
			m, id = child, child.ID
		}
		return nil
	}))
	return m, ok
}

func mustNode(t *testing.T, e *testEngine, p string) tree.Model[tree.NodeID, string] {
	t.Helper()
	m, ok := nodeAt(t, e, p)
	require.True(t, ok, "node %s not found", p)
	return m
}

func countOps(ops []tree.Operation[tree.NodeID, string]) (created, updated, deleted int) {
	for _, op := range ops {
		switch op.Type {
		case tree.OpCreate:
			created++
		case tree.OpUpdate:
			updated++
		case tree.OpDelete:
			deleted++
		}
	}
	return
}
