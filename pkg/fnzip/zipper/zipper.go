// Package zipper packages a single serverless function into a ZIP archive.
//
// Zip locates the package root, selects the source tree and the handler's
// dependencies, re-roots every file under the "src" directory relative to
// the files' common prefix, and writes an entry module at the archive root
// that forwards to the relocated handler.
package zipper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/fnzip/pkg/fnzip/archive"
	"github.com/jamesainslie/fnzip/pkg/fnzip/entry"
	"github.com/jamesainslie/fnzip/pkg/fnzip/logging"
	"github.com/jamesainslie/fnzip/pkg/fnzip/pathnorm"
	"github.com/jamesainslie/fnzip/pkg/fnzip/resolver"
	"github.com/jamesainslie/fnzip/pkg/fnzip/selector"
	"github.com/jamesainslie/fnzip/pkg/fnzip/types"
)

// Options configures a Zipper. Zero values select the defaults noted.
type Options struct {
	// PackageRoot locates the package root. Default resolver.PackageRoot.
	PackageRoot types.PackageRootFunc

	// Resolver finds handler dependencies. Default is a resolver.Node
	// excluding resolver.DefaultExcludedModules.
	Resolver types.DependencyResolver

	// Open opens the archive writer. Default archive.Opener with Archive.
	Open archive.OpenFunc

	// Archive configures the default archive writer.
	Archive archive.Options

	// Selector configures the file selector.
	Selector selector.Options

	// Workers bounds concurrent stat and add operations. Zero means 8.
	Workers int
}

// DefaultWorkers is used when Options.Workers is zero.
const DefaultWorkers = 8

// Zipper packages functions. A Zipper is safe for concurrent use as long as
// concurrent calls target different destinations.
type Zipper struct {
	packageRoot types.PackageRootFunc
	open        archive.OpenFunc
	selector    *selector.Selector
	workers     int
	logger      *logging.Logger
}

// New creates a Zipper.
func New(opts Options) (*Zipper, error) {
	if opts.PackageRoot == nil {
		opts.PackageRoot = resolver.PackageRoot
	}
	if opts.Resolver == nil {
		opts.Resolver = resolver.NewNode(resolver.Options{ExcludedModules: resolver.DefaultExcludedModules})
	}
	if opts.Open == nil {
		opts.Open = archive.Opener(opts.Archive)
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}

	sel, err := selector.New(opts.Resolver, opts.Selector)
	if err != nil {
		return nil, fmt.Errorf("creating selector: %w", err)
	}

	return &Zipper{
		packageRoot: opts.PackageRoot,
		open:        opts.Open,
		selector:    sel,
		workers:     opts.Workers,
		logger:      logging.Get("zipper"),
	}, nil
}

// Zip writes the archive for d to d.DestPath. On failure no file is left at
// d.DestPath and the error identifies the failing phase through its kind.
func (z *Zipper) Zip(ctx context.Context, d *types.FunctionDescriptor) (*types.Result, error) {
	start := time.Now()

	if d.Stat == nil {
		info, err := os.Stat(d.SourcePath)
		if err != nil {
			return nil, types.FileSystemError("stat", d.SourcePath, err)
		}
		copied := *d
		copied.Stat = info
		d = &copied
	}

	sourceDir := d.SourceDir
	if sourceDir == "" {
		sourceDir = d.SourcePath
		if !d.IsDir() {
			sourceDir = filepath.Dir(d.SourcePath)
		}
	}

	packageRoot, err := z.packageRoot(sourceDir)
	if err != nil {
		return nil, types.DependencyError("package root", sourceDir, err)
	}

	handlerFile, err := resolver.HandlerFile(d.Handler, d)
	if err != nil {
		return nil, err
	}

	files, err := z.selector.Select(ctx, d, handlerFile, packageRoot)
	if err != nil {
		return nil, err
	}

	prefix := pathnorm.CommonPrefix(files.Dirs())
	entryModule := entry.Build(handlerFile, prefix, entryName(d, handlerFile))

	z.logger.Debug("packaging function",
		"source", d.SourcePath,
		"dest", d.DestPath,
		"package_root", packageRoot,
		"handler", handlerFile,
		"prefix", prefix,
		"files", files.Len(),
	)

	w, err := z.open(d.DestPath)
	if err != nil {
		return nil, types.ArchiveError("open", d.DestPath, err)
	}

	entries, err := z.write(ctx, w, entryModule, files.Paths(), prefix)
	if err != nil {
		if abortErr := w.Abort(); abortErr != nil {
			z.logger.Warn("failed to discard partial archive", "dest", d.DestPath, "error", abortErr)
		}
		return nil, err
	}

	if err := w.Close(); err != nil {
		_ = w.Abort()
		return nil, types.ArchiveError("close", d.DestPath, err)
	}

	result := &types.Result{
		Function:     *d,
		PackageRoot:  packageRoot,
		HandlerFile:  handlerFile,
		CommonPrefix: prefix,
		Entry:        entryModule,
		Files:        entries,
		Elapsed:      time.Since(start),
	}
	if info, err := os.Stat(d.DestPath); err == nil {
		result.ArchiveSize = info.Size()
	}

	z.logger.Info("packaged function",
		"dest", d.DestPath,
		"files", len(entries),
		"size", result.ArchiveSize,
		"elapsed", result.Elapsed,
	)
	return result, nil
}

// write adds the entry module, then every file concurrently. It returns the
// file-backed entries sorted by archive name.
func (z *Zipper) write(ctx context.Context, w archive.Writer, entryModule types.ZipEntry, paths []string, prefix string) ([]types.ZipEntry, error) {
	if err := w.AddContent(entryModule.Content, entryModule.Name); err != nil {
		return nil, types.ArchiveError("add", entryModule.Name, err)
	}

	var (
		mu      sync.Mutex
		entries = make([]types.ZipEntry, 0, len(paths))
		names   = map[string]string{entryModule.Name: "(entry module)"}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(z.workers)

	for _, p := range paths {
		g.Go(func() error {
			info, err := os.Lstat(p)
			if err != nil {
				return types.FileSystemError("lstat", p, err)
			}

			e := types.ZipEntry{
				Name:   pathnorm.ToArchivePath(p, prefix),
				Source: p,
				Info:   info,
			}

			mu.Lock()
			if other, ok := names[e.Name]; ok {
				mu.Unlock()
				return types.ArchiveError("add", e.Name, fmt.Errorf("%w: %s and %s", ErrDuplicateName, other, p))
			}
			names[e.Name] = p
			mu.Unlock()

			if err := w.AddFile(gctx, p, e.Name, info); err != nil {
				if errors.Is(err, types.ErrFileSystem) {
					return err
				}
				return types.ArchiveError("add", e.Name, err)
			}

			mu.Lock()
			entries = append(entries, e)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// ErrDuplicateName is returned when two files normalize to the same archive
// member name.
var ErrDuplicateName = errors.New("duplicate archive member")

// entryName returns the entry module name: the descriptor's Filename, or
// the handler file's base name without extension.
func entryName(d *types.FunctionDescriptor, handlerFile string) string {
	if d.Filename != "" {
		return d.Filename
	}
	base := filepath.Base(handlerFile)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
