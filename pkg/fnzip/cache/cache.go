// Package cache remembers dependency resolutions between packaging runs.
//
// Resolving a handler's import graph reads every reachable source file.
// The cache stores the result in a Badger database keyed by package root
// and handler file, together with the size and modification time of each
// file involved and the lookup candidates of the directories they live in.
// A cached resolution is reused only while none of those changed.
package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/jamesainslie/fnzip/pkg/fnzip/logging"
	"github.com/jamesainslie/fnzip/pkg/fnzip/resolver"
	"github.com/jamesainslie/fnzip/pkg/fnzip/types"
)

// ManifestName is stamped alongside the resolved files so dependency
// declaration changes invalidate the entry.
const ManifestName = "package.json"

// Resolver is a types.DependencyResolver that consults a Store before
// delegating to the wrapped resolver.
type Resolver struct {
	store *Store
	next  types.DependencyResolver

	hits   atomic.Int64
	misses atomic.Int64

	logger *logging.Logger
}

// NewResolver wraps next with a cache backed by store.
func NewResolver(store *Store, next types.DependencyResolver) *Resolver {
	return &Resolver{
		store:  store,
		next:   next,
		logger: logging.Get("cache"),
	}
}

// Open opens the store at path and wraps next with it.
func Open(path string, next types.DependencyResolver) (*Resolver, error) {
	store, err := OpenStore(path)
	if err != nil {
		return nil, fmt.Errorf("opening cache at %s: %w", path, err)
	}
	return NewResolver(store, next), nil
}

// Close closes the underlying store.
func (r *Resolver) Close() error {
	return r.store.Close()
}

// Store returns the underlying store.
func (r *Resolver) Store() *Store {
	return r.store
}

// Stats returns the hit and miss counts since creation.
func (r *Resolver) Stats() (hits, misses int64) {
	return r.hits.Load(), r.misses.Load()
}

// Resolve implements types.DependencyResolver.
func (r *Resolver) Resolve(ctx context.Context, handlerFile, packageRoot string) ([]string, error) {
	entry, err := r.store.Get(packageRoot, handlerFile)
	switch {
	case err == nil && entry.Valid():
		r.hits.Add(1)
		r.logger.Debug("cache hit", "handler", handlerFile, "files", len(entry.Files))
		return entry.Files, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		r.logger.Warn("cache read failed", "handler", handlerFile, "error", err)
	}

	r.misses.Add(1)
	files, err := r.next.Resolve(ctx, handlerFile, packageRoot)
	if err != nil {
		return nil, err
	}

	if err := r.store.Put(packageRoot, handlerFile, newEntry(files, packageRoot)); err != nil {
		r.logger.Warn("cache write failed", "handler", handlerFile, "error", err)
	}
	return files, nil
}

// newEntry stamps files, the package manifest and the directories module
// lookup consulted. Paths that cannot be stamped are left out and the entry
// stays usable.
func newEntry(files []string, packageRoot string) *CachedResolution {
	entry := &CachedResolution{
		Version: CacheVersion,
		Files:   files,
		Stamps:  make([]FileStamp, 0, len(files)+1),
	}
	for _, f := range append([]string{filepath.Join(packageRoot, ManifestName)}, files...) {
		if s, err := Stamp(f); err == nil {
			entry.Stamps = append(entry.Stamps, s)
		}
	}

	dirs := []string{packageRoot, filepath.Join(packageRoot, resolver.ModulesDir)}
	seen := map[string]bool{}
	for _, f := range files {
		dirs = append(dirs, filepath.Dir(f))
	}
	for _, dir := range dirs {
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if s, err := StampDir(dir); err == nil {
			entry.Dirs = append(entry.Dirs, s)
		}
	}
	return entry
}

var _ types.DependencyResolver = (*Resolver)(nil)
