package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newWatcher(t *testing.T, opts Options) *Watcher {
	t.Helper()
	if opts.Debounce == 0 {
		opts.Debounce = 50 * time.Millisecond
	}
	w, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

// run starts the event loop and returns a channel of reported batches.
func run(t *testing.T, w *Watcher) <-chan []string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	batches := make(chan []string, 16)
	go w.Run(ctx, func(_ context.Context, paths []string) {
		batches <- paths
	})
	return batches
}

func waitBatch(t *testing.T, batches <-chan []string) []string {
	t.Helper()
	select {
	case b := <-batches:
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change batch")
		return nil
	}
}

func TestWatchSkipsDirs(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"lib", "node_modules/pkg", ".git/objects"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	w := newWatcher(t, Options{})
	if err := w.Watch(root); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	got := w.Watched()
	want := []string{root, filepath.Join(root, "lib")}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Watched() = %v, want %v", got, want)
	}
}

func TestWatchFileWatchesParent(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "index.js")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	w := newWatcher(t, Options{})
	if err := w.Watch(file); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if got := w.Watched(); len(got) != 1 || got[0] != root {
		t.Errorf("Watched() = %v, want [%s]", got, root)
	}
}

func TestRunDebouncesChanges(t *testing.T) {
	root := t.TempDir()
	w := newWatcher(t, Options{Debounce: 200 * time.Millisecond})
	if err := w.Watch(root); err != nil {
		t.Fatal(err)
	}
	batches := run(t, w)

	for _, name := range []string{"a.js", "b.js"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	batch := waitBatch(t, batches)
	seen := map[string]bool{}
	for _, p := range batch {
		seen[filepath.Base(p)] = true
	}
	if !seen["a.js"] || !seen["b.js"] {
		t.Errorf("batch = %v, want both a.js and b.js", batch)
	}
}

func TestRunIgnoresPaths(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "fn.zip")

	w := newWatcher(t, Options{Ignore: func(p string) bool { return p == dest }})
	if err := w.Watch(root); err != nil {
		t.Fatal(err)
	}
	batches := run(t, w)

	if err := os.WriteFile(dest, []byte("zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "index.js"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, p := range waitBatch(t, batches) {
		if p == dest {
			t.Errorf("ignored path %s was reported", p)
		}
	}
}

func TestRunWatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	w := newWatcher(t, Options{})
	if err := w.Watch(root); err != nil {
		t.Fatal(err)
	}
	batches := run(t, w)

	sub := filepath.Join(root, "lib")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	waitBatch(t, batches)

	if err := os.WriteFile(filepath.Join(sub, "util.js"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case batch := <-batches:
			for _, p := range batch {
				if filepath.Base(p) == "util.js" {
					return
				}
			}
		case <-deadline:
			t.Fatal("change in new directory not reported")
		}
	}
}

func TestRunSkipsModulesChanges(t *testing.T) {
	root := t.TempDir()
	w := newWatcher(t, Options{})
	if err := w.Watch(root); err != nil {
		t.Fatal(err)
	}
	batches := run(t, w)

	if err := os.MkdirAll(filepath.Join(root, "node_modules", "pkg"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "index.js"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, p := range waitBatch(t, batches) {
		if strings.Contains(p, "node_modules") {
			t.Errorf("reported change in skipped dir: %s", p)
		}
	}
	for _, p := range w.Watched() {
		if strings.Contains(p, "node_modules") {
			t.Errorf("watching skipped dir: %s", p)
		}
	}
}

func TestRunReportsProjectUnderSkippedName(t *testing.T) {
	project := filepath.Join(t.TempDir(), "node_modules", "my-fn")
	if err := os.MkdirAll(filepath.Join(project, "lib"), 0o755); err != nil {
		t.Fatal(err)
	}

	w := newWatcher(t, Options{})
	if err := w.Watch(project); err != nil {
		t.Fatal(err)
	}
	batches := run(t, w)

	target := filepath.Join(project, "lib", "util.js")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := waitBatch(t, batches)
	if len(got) == 0 || got[0] != target {
		t.Errorf("batch = %v, want %s", got, target)
	}
}

func TestInSkippedDirStopsAtRoot(t *testing.T) {
	w := newWatcher(t, Options{})
	root := filepath.Join(t.TempDir(), ".git", "worktrees", "fn")
	w.addRoot(root)

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, "index.js"), false},
		{filepath.Join(root, "lib", "util.js"), false},
		{filepath.Join(root, "node_modules", "pkg", "index.js"), true},
		{filepath.Join(root, "lib", ".git", "HEAD"), true},
	}
	for _, tt := range tests {
		if got := w.inSkippedDir(tt.path); got != tt.want {
			t.Errorf("inSkippedDir(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	w, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if err := w.Watch(t.TempDir()); err != nil {
		t.Fatalf("Watch() after Close error = %v", err)
	}
}

func TestIsSubPath(t *testing.T) {
	sep := string(filepath.Separator)
	if !isSubPath("a"+sep+"b", "a") {
		t.Error("a/b should be under a")
	}
	if isSubPath("ab", "a") {
		t.Error("ab should not be under a")
	}
	if isSubPath("a", "a") {
		t.Error("a should not be under itself")
	}
}
