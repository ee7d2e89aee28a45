package sapling

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads graphics when the image files they were loaded from change
// on disk. File events arrive on a background goroutine and are queued; the
// reloads themselves happen in [Watcher.Poll], which must be called from the
// frame loop like every other graphic operation.
type Watcher struct {
	dir     string
	fsw     *fsnotify.Watcher
	watched map[string]bool // directories added to fsw
	tracked map[string][]*Graphic
	done    chan struct{}

	mu      sync.Mutex
	changed map[string]bool
}

// NewWatcher watches image files under dir, which should be the directory a
// [ResourceCache] was created over with [NewResourceDir].
func NewWatcher(dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("sapling: watch %s: %w", dir, err)
	}
	w := &Watcher{
		dir:     dir,
		fsw:     fsw,
		watched: make(map[string]bool),
		tracked: make(map[string][]*Graphic),
		done:    make(chan struct{}),
		changed: make(map[string]bool),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			rel, err := filepath.Rel(w.dir, ev.Name)
			if err != nil {
				continue
			}
			w.notify(filepath.ToSlash(rel))
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			Logger().Warn("watcher error", "dir", w.dir, "err", err)
		}
	}
}

// notify queues a resource name as changed.
func (w *Watcher) notify(name string) {
	w.mu.Lock()
	w.changed[name] = true
	w.mu.Unlock()
}

// Track reloads g whenever its image file changes. g must have been created
// with [NewGraphicFromResource].
func (w *Watcher) Track(g *Graphic) error {
	if g.res == nil {
		return errors.New("sapling: watch: graphic was not loaded from a resource")
	}
	dir := filepath.Dir(filepath.Join(w.dir, filepath.FromSlash(g.resName)))
	if !w.watched[dir] {
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("sapling: watch %s: %w", dir, err)
		}
		w.watched[dir] = true
	}
	for _, t := range w.tracked[g.resName] {
		if t == g {
			return nil
		}
	}
	w.tracked[g.resName] = append(w.tracked[g.resName], g)
	return nil
}

// Untrack stops reloading g.
func (w *Watcher) Untrack(g *Graphic) {
	gs := w.tracked[g.resName]
	for i, t := range gs {
		if t == g {
			w.tracked[g.resName] = append(gs[:i:i], gs[i+1:]...)
			break
		}
	}
	if len(w.tracked[g.resName]) == 0 {
		delete(w.tracked, g.resName)
	}
}

// Poll reloads every tracked graphic whose file changed since the last poll
// and returns how many were reloaded. Failed reloads are logged and the
// graphic keeps its previous image.
func (w *Watcher) Poll() int {
	w.mu.Lock()
	changed := w.changed
	w.changed = make(map[string]bool)
	w.mu.Unlock()

	n := 0
	for name := range changed {
		for _, g := range w.tracked[name] {
			if err := g.Reload(); err != nil {
				Logger().Warn("hot reload failed", "name", name, "err", err)
				continue
			}
			Logger().Debug("hot reloaded", "name", name, "graphic", g.ID)
			n++
		}
	}
	return n
}

// Close stops watching.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
