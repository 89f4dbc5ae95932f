package local

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"treesync/core/reconcile"
	"treesync/core/tree"
)

// Watcher turns fsnotify events under the base path into change batches.
type Watcher struct {
	source   *Source
	debounce time.Duration
	logger   *zap.Logger
}

// NewWatcher creates a watcher for the source's base path.
func NewWatcher(source *Source, cfg Config, logger *zap.Logger) *Watcher {
	debounce := time.Duration(cfg.DebounceMillis) * time.Millisecond
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	return &Watcher{source: source, debounce: debounce, logger: logger}
}

// Changes starts watching and delivers batches until ctx is done. When the
// watch cannot be set up a single Error batch is delivered so the engine
// falls back to a rescan.
func (w *Watcher) Changes(ctx context.Context) <-chan []reconcile.ChangeEvent[uint64] {
	out := make(chan []reconcile.ChangeEvent[uint64], 1)

	fw, err := fsnotify.NewWatcher()
	if err == nil {
		err = w.addTree(fw, w.source.base)
	}
	if err != nil {
		w.logger.Error("Failed to watch local tree", zap.String("path", w.source.base), zap.Error(err))
		if fw != nil {
			_ = fw.Close()
		}
		out <- []reconcile.ChangeEvent[uint64]{{Type: reconcile.Error, Err: err}}
		close(out)
		return out
	}

	go w.loop(ctx, fw, out)
	return out
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, out chan<- []reconcile.ChangeEvent[uint64]) {
	defer close(out)
	defer fw.Close()

	var (
		batch []reconcile.ChangeEvent[uint64]
		timer *time.Timer
		fire  <-chan time.Time
	)
	flush := func() bool {
		if len(batch) == 0 {
			return true
		}
		select {
		case out <- batch:
			batch = nil
			return true
		case <-ctx.Done():
			return false
		}
	}
	arm := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			fire = timer.C
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			batch = append(batch, w.translate(fw, ev)...)
			arm()
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Local watch error", zap.Error(err))
			typ := reconcile.Error
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				typ = reconcile.Skipped
			}
			batch = append(batch, reconcile.ChangeEvent[uint64]{Type: typ, Err: err})
			arm()
		case <-fire:
			timer, fire = nil, nil
			if !flush() {
				return
			}
		}
	}
}

// translate maps one fsnotify event onto change events. A path that no longer
// exists carries no identity, so its parent is reported instead.
func (w *Watcher) translate(fw *fsnotify.Watcher, ev fsnotify.Event) []reconcile.ChangeEvent[uint64] {
	rel, err := filepath.Rel(w.source.base, ev.Name)
	if err != nil || rel == "." {
		return nil
	}
	rel = filepath.ToSlash(rel)

	var events []reconcile.ChangeEvent[uint64]
	parent, _, perr := w.source.Resolve(filepath.ToSlash(filepath.Dir(rel)))
	alt, typ, err := w.source.Resolve(rel)
	switch {
	case err == nil:
		change := reconcile.Changed
		if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
			change = reconcile.ChangedOrMoved
		}
		events = append(events, reconcile.ChangeEvent[uint64]{
			AltID:       alt,
			Type:        change,
			Name:        filepath.Base(rel),
			ParentAltID: parent,
		})
		if ev.Has(fsnotify.Create) && typ == tree.Directory {
			if err := w.addTree(fw, ev.Name); err != nil {
				w.logger.Warn("Failed to watch new directory", zap.String("path", rel), zap.Error(err))
			}
		}
	case errors.Is(err, fs.ErrNotExist) && perr == nil:
		events = append(events, reconcile.ChangeEvent[uint64]{AltID: parent, Type: reconcile.Changed})
	default:
		events = append(events, reconcile.ChangeEvent[uint64]{Type: reconcile.Skipped, Err: err})
	}
	return events
}

// addTree watches dir and every directory below it; fsnotify is not recursive.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	if _, ok := w.source.fs.(*afero.OsFs); !ok {
		return errors.New("change notifications need the OS file system")
	}
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return fw.Add(p)
	})
}
