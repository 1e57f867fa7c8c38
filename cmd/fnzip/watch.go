package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jamesainslie/fnzip/pkg/fnzip/archive"
	"github.com/jamesainslie/fnzip/pkg/fnzip/manifest"
	"github.com/jamesainslie/fnzip/pkg/fnzip/output"
	"github.com/jamesainslie/fnzip/pkg/fnzip/types"
	"github.com/jamesainslie/fnzip/pkg/fnzip/watcher"
	"github.com/jamesainslie/fnzip/pkg/fnzip/zipper"
)

// watchFunction repackages d whenever its files change until ctx is
// cancelled. last is the result of the initial pass, or nil if it failed.
func watchFunction(ctx context.Context, z *zipper.Zipper, d *types.FunctionDescriptor, m *manifest.Manifest, formatter output.Formatter, debounce time.Duration, last *types.Result) error {
	w, err := watcher.New(watcher.Options{
		Debounce: debounce,
		Ignore:   archiveIgnore(d.DestPath),
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	root := watchRoot(d, last)
	if err := w.Watch(root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}

	printInfo("Watching %s for changes (Ctrl+C to stop)...", root)

	w.Run(ctx, func(ctx context.Context, paths []string) {
		printVerbose("%d paths changed", len(paths))
		if _, err := packageFunction(ctx, z, d, m, formatter, os.Stdout); err != nil {
			if ctx.Err() != nil {
				return
			}
			printError("%v", err)
		}
	})
	return nil
}

// watchRoot covers every selected file when the last pass pulled in
// dependencies from outside the source directory.
func watchRoot(d *types.FunctionDescriptor, last *types.Result) string {
	if last == nil || last.CommonPrefix == "" {
		return d.SourcePath
	}
	rel, err := filepath.Rel(last.CommonPrefix, d.SourceDir)
	if err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return last.CommonPrefix
	}
	return d.SourcePath
}

// archiveIgnore filters events for the archive and its temporary files.
func archiveIgnore(dest string) func(string) bool {
	return func(path string) bool {
		return path == dest || archive.IsTemp(dest, path)
	}
}
