// Package selector decides which files belong in a function archive.
//
// The selection is the union of the function's source tree and the files
// its handler depends on. The tree is walked with fastwalk while the
// dependency resolver runs; both feed a FileSet keyed by canonical path so a
// file reached both ways is archived once.
package selector

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/fnzip/pkg/fnzip/logging"
	"github.com/jamesainslie/fnzip/pkg/fnzip/types"
)

// DefaultExcludeDirs are pruned from the source tree wherever they appear.
// Installed packages reach the archive through dependency resolution only.
var DefaultExcludeDirs = []string{"node_modules"}

// Options configures a Selector.
type Options struct {
	// ExcludeDirs are directory names pruned from the tree walk.
	// Nil selects DefaultExcludeDirs.
	ExcludeDirs []string

	// Exclude are glob patterns matched against slash-separated paths
	// relative to the source directory, e.g. "**/*.test.js".
	Exclude []string

	// Workers bounds fastwalk's parallelism. Zero lets fastwalk decide.
	Workers int
}

// Selector builds the file set of a function.
type Selector struct {
	resolver    types.DependencyResolver
	excludeDirs map[string]bool
	excludes    []glob.Glob
	workers     int
	logger      *logging.Logger
}

// New creates a Selector that asks resolver for handler dependencies.
func New(resolver types.DependencyResolver, opts Options) (*Selector, error) {
	if resolver == nil {
		return nil, fmt.Errorf("selector: resolver is required")
	}

	dirs := opts.ExcludeDirs
	if dirs == nil {
		dirs = DefaultExcludeDirs
	}
	excludeDirs := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		excludeDirs[d] = true
	}

	excludes := make([]glob.Glob, 0, len(opts.Exclude))
	for _, pattern := range opts.Exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		excludes = append(excludes, g)
	}

	return &Selector{
		resolver:    resolver,
		excludeDirs: excludeDirs,
		excludes:    excludes,
		workers:     opts.Workers,
		logger:      logging.Get("selector"),
	}, nil
}

// Select returns the deduplicated set of files to archive for d. The tree
// walk and dependency resolution run concurrently; the first failure
// cancels the other and is returned.
func (s *Selector) Select(ctx context.Context, d *types.FunctionDescriptor, handlerFile, packageRoot string) (*types.FileSet, error) {
	g, gctx := errgroup.WithContext(ctx)

	var tree, deps []string
	g.Go(func() error {
		var err error
		tree, err = s.Tree(gctx, d)
		return err
	})
	g.Go(func() error {
		var err error
		deps, err = s.resolver.Resolve(gctx, handlerFile, packageRoot)
		if err != nil {
			return types.DependencyError("resolve", handlerFile, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := types.NewFileSet()
	for _, group := range [][]string{tree, deps} {
		for _, p := range group {
			if _, err := set.Add(p); err != nil {
				return nil, types.FileSystemError("canonicalize", p, err)
			}
		}
	}

	s.logger.Debug("selected files",
		"source", d.SourcePath,
		"tree", len(tree),
		"dependencies", len(deps),
		"unique", set.Len(),
	)
	return set, nil
}

// Tree lists the source tree contribution of d: the file itself, or every
// non-directory entry below the directory with excluded directories pruned.
func (s *Selector) Tree(ctx context.Context, d *types.FunctionDescriptor) ([]string, error) {
	if !d.IsDir() {
		return []string{d.SourcePath}, nil
	}

	root := d.SourcePath
	var (
		mu    sync.Mutex
		files []string
	)

	conf := fastwalk.Config{
		Follow:     false,
		NumWorkers: s.workers,
	}
	err := fastwalk.Walk(&conf, root, func(path string, de fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			return types.FileSystemError("walk", path, walkErr)
		}

		if de.IsDir() {
			if path != root && s.excludeDirs[de.Name()] {
				return fastwalk.SkipDir
			}
			return nil
		}

		if s.isExcluded(root, path) {
			return nil
		}

		mu.Lock()
		files = append(files, path)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, types.FileSystemError("walk", root, err)
	}
	return files, nil
}

// isExcluded reports whether path matches an exclude pattern.
func (s *Selector) isExcluded(root, path string) bool {
	if len(s.excludes) == 0 {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, g := range s.excludes {
		if g.Match(rel) {
			return true
		}
	}
	return false
}
