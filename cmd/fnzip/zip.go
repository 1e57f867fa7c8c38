package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gobwas/glob"
	"github.com/jamesainslie/fnzip/pkg/fnzip/archive"
	"github.com/jamesainslie/fnzip/pkg/fnzip/cache"
	"github.com/jamesainslie/fnzip/pkg/fnzip/config"
	"github.com/jamesainslie/fnzip/pkg/fnzip/manifest"
	"github.com/jamesainslie/fnzip/pkg/fnzip/output"
	"github.com/jamesainslie/fnzip/pkg/fnzip/resolver"
	"github.com/jamesainslie/fnzip/pkg/fnzip/selector"
	"github.com/jamesainslie/fnzip/pkg/fnzip/tuner"
	"github.com/jamesainslie/fnzip/pkg/fnzip/types"
	"github.com/jamesainslie/fnzip/pkg/fnzip/zipper"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var zipCmd = &cobra.Command{
	Use:   "zip <source>",
	Short: "Package a function into a ZIP archive",
	Long: `Package a function's source file or directory plus the dependencies its
handler requires.

The handler may be a file path or a module.export identifier resolved
relative to the source directory ("index.handler" selects index.js).
A single-file source defaults to itself as the handler.

Files land under src/ in the archive, relative to the deepest directory
shared by every selected file. An entry module named after --name (or the
handler file) sits at the archive root and re-exports the handler.`,
	Args: cobra.ExactArgs(1),
	RunE: runZip,
}

var (
	zipDest    string
	zipName    string
	zipHandler string
	zipWatch   bool
)

func init() {
	zipCmd.Flags().StringVarP(&zipDest, "dest", "d", "", "archive path (default: <source>.zip beside the source)")
	zipCmd.Flags().StringVarP(&zipName, "name", "n", "", "entry module filename (default: handler file name)")
	zipCmd.Flags().StringVarP(&zipHandler, "handler", "H", "", "handler file or module.export identifier")
	zipCmd.Flags().BoolVar(&zipWatch, "watch", false, "repackage whenever the source changes")
	zipCmd.Flags().StringP("output", "o", "", "output format: pretty, plain, json, jsonl, yaml, paths, sources, template")
	zipCmd.Flags().String("template", "", "Go template used with -o template (defaults to a member and source listing)")
	zipCmd.Flags().StringSliceP("exclude", "e", nil, "glob patterns to leave out (can be specified multiple times)")
	zipCmd.Flags().IntP("level", "l", config.DefaultCompressionLevel, "deflate level (1-9, -2 Huffman only, -1 default)")

	_ = viper.BindPFlag("output", zipCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("template", zipCmd.Flags().Lookup("template"))
	_ = viper.BindPFlag("exclude", zipCmd.Flags().Lookup("exclude"))
	_ = viper.BindPFlag("compression_level", zipCmd.Flags().Lookup("level"))

	rootCmd.AddCommand(zipCmd)
}

// runZip is the zip command handler.
func runZip(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	d, err := buildDescriptor(args[0], zipDest, zipName, zipHandler)
	if err != nil {
		return err
	}

	formatter, err := getFormatter(cfg.Output, viper.GetString("template"))
	if err != nil {
		return err
	}

	z, closeZipper, err := buildZipper(cfg, d, viper.GetBool("no_cache"))
	if err != nil {
		return err
	}
	defer closeZipper()

	var m *manifest.Manifest
	if cfg.Manifest.Enabled {
		m, err = manifest.New(cfg.Manifest.Path)
		if err != nil {
			return fmt.Errorf("failed to initialize manifest: %w", err)
		}
	}

	// Setup context with cancellation for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := packageFunction(ctx, z, d, m, formatter, os.Stdout)
	if !zipWatch {
		return err
	}
	if err != nil {
		printError("%v", err)
	}

	return watchFunction(ctx, z, d, m, formatter, cfg.Watch.Debounce, res)
}

// buildDescriptor turns command arguments into a FunctionDescriptor with
// absolute paths.
func buildDescriptor(source, dest, name, handler string) (*types.FunctionDescriptor, error) {
	expanded, err := config.ExpandPath(source)
	if err != nil {
		return nil, fmt.Errorf("failed to expand path: %w", err)
	}

	absSource, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absSource)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("source does not exist: %s", absSource)
		}
		return nil, fmt.Errorf("cannot access source: %w", err)
	}

	if dest == "" {
		dest = defaultDest(absSource)
	}
	if dest, err = config.ExpandPath(dest); err != nil {
		return nil, fmt.Errorf("failed to expand path: %w", err)
	}
	absDest, err := filepath.Abs(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	if handler != "" && filepath.IsAbs(handler) {
		handler = filepath.Clean(handler)
	}

	sourceDir := absSource
	if !info.IsDir() {
		sourceDir = filepath.Dir(absSource)
	}

	return &types.FunctionDescriptor{
		SourcePath: absSource,
		SourceDir:  sourceDir,
		DestPath:   absDest,
		Filename:   name,
		Handler:    handler,
		Stat:       info,
	}, nil
}

// defaultDest places the archive beside the source, never inside a source
// directory: ./functions/api becomes ./functions/api.zip.
func defaultDest(source string) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(source), base+".zip")
}

// destExclusions returns glob patterns keeping the archive out of its own
// source tree when dest lies inside a source directory.
func destExclusions(d *types.FunctionDescriptor) []string {
	if !d.IsDir() {
		return nil
	}
	rel, err := filepath.Rel(d.SourcePath, d.DestPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	rel = filepath.ToSlash(rel)
	dir, base := "", rel
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		dir, base = rel[:i+1], rel[i+1:]
	}
	return []string{
		glob.QuoteMeta(rel),
		glob.QuoteMeta(dir+"."+base+".") + "*.tmp",
	}
}

// buildZipper wires the resolver, cache and tuned worker counts into a
// Zipper. The returned func releases the cache.
func buildZipper(cfg *config.Config, d *types.FunctionDescriptor, noCache bool) (*zipper.Zipper, func(), error) {
	tuned := tuner.Auto(cfg.Workers)
	printVerbose("Config: %d walk workers, %d archive workers", tuned.WalkWorkers, tuned.ArchiveWorkers)

	var res types.DependencyResolver = resolver.NewNode(resolver.Options{
		ExcludedModules: cfg.ExcludedModules,
	})

	closeFn := func() {}
	if cfg.Cache.Enabled && !noCache {
		cached, err := cache.Open(cfg.Cache.Path, res)
		if err != nil {
			// Another fnzip may hold the cache; resolve directly.
			printVerbose("Resolution cache unavailable: %v", err)
		} else {
			res = cached
			closeFn = func() {
				hits, misses := cached.Stats()
				printVerbose("Resolution cache: %d hits, %d misses", hits, misses)
				_ = cached.Close()
			}
		}
	}

	exclude := append(append([]string{}, cfg.Exclude...), destExclusions(d)...)

	z, err := zipper.New(zipper.Options{
		Resolver: res,
		Archive:  archive.Options{Level: cfg.CompressionLevel},
		Selector: selector.Options{
			ExcludeDirs: cfg.ExcludeDirs,
			Exclude:     exclude,
			Workers:     tuned.WalkWorkers,
		},
		Workers: tuned.ArchiveWorkers,
	})
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("failed to configure packager: %w", err)
	}
	return z, closeFn, nil
}

// getFormatter returns the formatter for format, defaulting to pretty.
func getFormatter(format, tmpl string) (output.Formatter, error) {
	if format == "" {
		format = config.DefaultOutput
	}
	if format == "template" && tmpl != "" {
		return output.NewTemplateFormatter(tmpl), nil
	}

	formatter, err := output.Get(format)
	if err != nil {
		return nil, fmt.Errorf("unknown output format %q: available formats are %v", format, output.Available())
	}
	return formatter, nil
}

// packageFunction runs one packaging pass, records it in the manifest when
// m is non-nil and writes the formatted result to w.
func packageFunction(ctx context.Context, z *zipper.Zipper, d *types.FunctionDescriptor, m *manifest.Manifest, formatter output.Formatter, w io.Writer) (*types.Result, error) {
	res, err := z.Zip(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("packaging failed: %w", err)
	}

	out := output.FromResult(res)
	if m != nil {
		entry, err := m.LogZip(res)
		if err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("history not recorded: %v", err))
		} else {
			out.ManifestID = entry.ID
		}
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, out); err != nil {
		return res, fmt.Errorf("failed to format output: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return res, fmt.Errorf("failed to write output: %w", err)
	}
	return res, nil
}
