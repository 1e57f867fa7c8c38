// Package watcher reports source changes so a function can be repackaged
// while it is being edited.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/fnzip/pkg/fnzip/logging"
)

// DefaultDebounce is the quiet period after the last event before a batch
// of changes is reported.
const DefaultDebounce = 300 * time.Millisecond

// DefaultSkipDirs are never watched.
var DefaultSkipDirs = []string{"node_modules", ".git"}

// Options configures a Watcher.
type Options struct {
	// SkipDirs are directory names not descended into. Nil selects
	// DefaultSkipDirs.
	SkipDirs []string

	// Ignore reports paths whose events are dropped, such as the archive
	// being written.
	Ignore func(path string) bool

	// Debounce is the quiet period before reporting. Zero selects
	// DefaultDebounce.
	Debounce time.Duration
}

// Watcher watches directory trees and reports batches of changed paths.
type Watcher struct {
	watcher  *fsnotify.Watcher
	paths    map[string]bool
	roots    map[string]bool
	skipDirs map[string]bool
	ignore   func(string) bool
	debounce time.Duration
	mu       sync.RWMutex
	closed   bool
	logger   *logging.Logger
}

// New creates a new Watcher.
func New(opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	skip := opts.SkipDirs
	if skip == nil {
		skip = DefaultSkipDirs
	}
	skipDirs := make(map[string]bool, len(skip))
	for _, d := range skip {
		skipDirs[d] = true
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		watcher:  fsw,
		paths:    make(map[string]bool),
		roots:    make(map[string]bool),
		skipDirs: skipDirs,
		ignore:   opts.Ignore,
		debounce: debounce,
		logger:   logging.Get("watcher"),
	}, nil
}

// Watch starts watching a path. Directories are watched recursively,
// skipping SkipDirs; for a file its parent directory is watched.
// Symlinks are not followed to avoid loops.
func (w *Watcher) Watch(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	info, err := os.Lstat(absRoot)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		absRoot = filepath.Dir(absRoot)
		w.addRoot(absRoot)
		return w.addWatch(absRoot)
	}

	w.addRoot(absRoot)
	return w.addTree(absRoot)
}

func (w *Watcher) addRoot(root string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.roots[root] = true
}

// rootOf returns the deepest watched root containing path, or "".
func (w *Watcher) rootOf(path string) string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	best := ""
	for r := range w.roots {
		if (path == r || isSubPath(path, r)) && len(r) > len(best) {
			best = r
		}
	}
	return best
}

// addTree watches dir and every directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // Skip entries with errors
		}
		if d.Type()&fs.ModeSymlink != 0 || !d.IsDir() {
			return nil
		}
		if path != dir && w.skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		return w.addWatch(path)
	})
}

// addWatch adds a single directory to the watch list.
func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[path] {
		return nil
	}

	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("failed to add watch", "path", path, "error", err)
		return err
	}

	w.paths[path] = true
	return nil
}

// Watched returns the watched directories, sorted.
func (w *Watcher) Watched() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	paths := make([]string, 0, len(w.paths))
	for p := range w.paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Run starts the event loop. It blocks until the context is cancelled or
// the watcher is closed. onChange receives the sorted, deduplicated paths
// that changed once no event has arrived for the debounce period. Calls to
// onChange never overlap.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, paths []string)) {
	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.handleEvent(event) {
				continue
			}
			pending[event.Name] = true
			timer.Reset(w.debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = make(map[string]bool)

			w.logger.Debug("changes detected", "paths", len(paths))
			if onChange != nil {
				onChange(ctx, paths)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// handleEvent updates watches for an event and reports whether it should
// be delivered.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	if w.ignore != nil && w.ignore(event.Name) {
		return false
	}
	if event.Op == fsnotify.Chmod {
		return false
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		info, err := os.Lstat(event.Name)
		if err == nil && info.IsDir() {
			if w.skipDirs[filepath.Base(event.Name)] {
				return false
			}
			_ = w.addTree(event.Name)
		}
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.removeTree(event.Name)
	}

	return !w.inSkippedDir(event.Name)
}

// inSkippedDir reports whether path lies inside a skipped directory below
// its watched root. Directories above the root never count, so a project
// checked out under a node_modules directory is still watched.
func (w *Watcher) inSkippedDir(path string) bool {
	root := w.rootOf(path)
	for dir := filepath.Dir(path); dir != root; dir = filepath.Dir(dir) {
		if w.skipDirs[filepath.Base(dir)] {
			return true
		}
		if parent := filepath.Dir(dir); parent == dir {
			return false
		}
	}
	return false
}

// removeTree drops the watches for path and everything below it.
func (w *Watcher) removeTree(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for p := range w.paths {
		if p == path || isSubPath(p, path) {
			_ = w.watcher.Remove(p)
			delete(w.paths, p)
		}
	}
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	w.paths = make(map[string]bool)
	w.roots = make(map[string]bool)
	return w.watcher.Close()
}

// isSubPath checks if path is under parent directory.
func isSubPath(path, parent string) bool {
	return len(path) > len(parent) && path[:len(parent)+1] == parent+string(filepath.Separator)
}
