package cache

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/fnzip/pkg/fnzip/types"
)

// countingResolver returns files and counts how often it was called.
type countingResolver struct {
	files []string
	calls atomic.Int32
}

func (c *countingResolver) Resolve(context.Context, string, string) ([]string, error) {
	c.calls.Add(1)
	return c.files, nil
}

func setup(t *testing.T) (root, handler, dep string) {
	t.Helper()
	root = t.TempDir()
	handler = filepath.Join(root, "index.js")
	dep = filepath.Join(root, "lib.js")
	require.NoError(t, os.WriteFile(filepath.Join(root, ManifestName), []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(handler, []byte("require('./lib')"), 0o644))
	require.NoError(t, os.WriteFile(dep, []byte("module.exports = 1"), 0o644))
	return root, handler, dep
}

func openResolver(t *testing.T, next types.DependencyResolver) *Resolver {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "cache"), next)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestResolverCachesResult(t *testing.T) {
	root, handler, dep := setup(t)
	next := &countingResolver{files: []string{handler, dep}}
	r := openResolver(t, next)

	for i := 0; i < 3; i++ {
		files, err := r.Resolve(context.Background(), handler, root)
		require.NoError(t, err)
		assert.Equal(t, []string{handler, dep}, files)
	}

	assert.Equal(t, int32(1), next.calls.Load())
	hits, misses := r.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}

func TestResolverInvalidatesOnChange(t *testing.T) {
	root, handler, dep := setup(t)
	next := &countingResolver{files: []string{handler, dep}}
	r := openResolver(t, next)

	_, err := r.Resolve(context.Background(), handler, root)
	require.NoError(t, err)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(dep, later, later))

	_, err = r.Resolve(context.Background(), handler, root)
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestResolverInvalidatesOnManifestChange(t *testing.T) {
	root, handler, dep := setup(t)
	next := &countingResolver{files: []string{handler, dep}}
	r := openResolver(t, next)

	_, err := r.Resolve(context.Background(), handler, root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, ManifestName), []byte(`{"name":"changed"}`), 0o644))

	_, err = r.Resolve(context.Background(), handler, root)
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestResolverInvalidatesOnDelete(t *testing.T) {
	root, handler, dep := setup(t)
	next := &countingResolver{files: []string{handler, dep}}
	r := openResolver(t, next)

	_, err := r.Resolve(context.Background(), handler, root)
	require.NoError(t, err)
	require.NoError(t, os.Remove(dep))

	_, err = r.Resolve(context.Background(), handler, root)
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestResolverDoesNotCacheErrors(t *testing.T) {
	root, handler, _ := setup(t)
	calls := 0
	r := openResolver(t, types.DependencyResolverFunc(func(context.Context, string, string) ([]string, error) {
		calls++
		return nil, assert.AnError
	}))

	for i := 0; i < 2; i++ {
		_, err := r.Resolve(context.Background(), handler, root)
		assert.ErrorIs(t, err, assert.AnError)
	}
	assert.Equal(t, 2, calls)

	count, err := r.Store().Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStoreDeletePrefixAndClear(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	defer store.Close()

	entry := &CachedResolution{Version: CacheVersion, Files: []string{"/a/index.js"}}
	require.NoError(t, store.Put("/a", "/a/index.js", entry))
	require.NoError(t, store.Put("/a", "/a/other.js", entry))
	require.NoError(t, store.Put("/b", "/b/index.js", entry))

	got, err := store.Get("/a", "/a/index.js")
	require.NoError(t, err)
	assert.Equal(t, entry.Files, got.Files)

	require.NoError(t, store.DeletePrefix("/a"))
	_, err = store.Get("/a", "/a/index.js")
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, store.Delete("/b", "/b/index.js"))
	require.NoError(t, store.Put("/c", "/c/index.js", entry))
	require.NoError(t, store.Clear())
	count, err = store.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestKeys(t *testing.T) {
	key := MakeKey("/app", "/app/index.js")
	root, handler := ParseKey(key)
	assert.Equal(t, "/app", root)
	assert.Equal(t, "/app/index.js", handler)

	root, handler = ParseKey([]byte("/app"))
	assert.Equal(t, "/app", root)
	assert.Empty(t, handler)

	assert.Equal(t, []byte("/app\x00"), MakeKeyPrefix("/app"))
}

func TestCachedResolutionVersion(t *testing.T) {
	entry := &CachedResolution{Version: CacheVersion - 1}
	assert.False(t, entry.Valid())

	entry.Version = CacheVersion
	assert.True(t, entry.Valid())

	data, err := entry.Encode()
	require.NoError(t, err)
	var decoded CachedResolution
	require.NoError(t, decoded.Decode(data))
	assert.Equal(t, CacheVersion, decoded.Version)
}

func TestResolverInvalidatesOnNewCandidate(t *testing.T) {
	root, handler, dep := setup(t)
	next := &countingResolver{files: []string{handler, dep}}
	r := openResolver(t, next)

	_, err := r.Resolve(context.Background(), handler, root)
	require.NoError(t, err)

	// lib/ is a new lookup candidate next to the handler.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "lib"), 0o755))

	_, err = r.Resolve(context.Background(), handler, root)
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestResolverInvalidatesOnFirstInstall(t *testing.T) {
	root, handler, dep := setup(t)
	next := &countingResolver{files: []string{handler, dep}}
	r := openResolver(t, next)

	_, err := r.Resolve(context.Background(), handler, root)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "optional-dep"), 0o755))

	_, err = r.Resolve(context.Background(), handler, root)
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestResolverInvalidatesOnInstallIntoNodeModules(t *testing.T) {
	root, handler, dep := setup(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "left-pad"), 0o755))
	next := &countingResolver{files: []string{handler, dep}}
	r := openResolver(t, next)

	_, err := r.Resolve(context.Background(), handler, root)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "optional-dep"), 0o755))

	_, err = r.Resolve(context.Background(), handler, root)
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestResolverIgnoresArchivesBesideSources(t *testing.T) {
	root, handler, dep := setup(t)
	next := &countingResolver{files: []string{handler, dep}}
	r := openResolver(t, next)

	_, err := r.Resolve(context.Background(), handler, root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "index.zip"), []byte("PK"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".index.zip.123.tmp"), nil, 0o644))

	_, err = r.Resolve(context.Background(), handler, root)
	require.NoError(t, err)
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestStampDir(t *testing.T) {
	dir := t.TempDir()

	missing, err := StampDir(filepath.Join(dir, "node_modules"))
	require.NoError(t, err)
	assert.False(t, missing.Exists)
	assert.True(t, missing.Valid())

	before, err := StampDir(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))
	assert.True(t, before.Valid(), "files module lookup never picks leave the stamp intact")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "util.cjs"), nil, 0o644))
	assert.False(t, before.Valid())
}
