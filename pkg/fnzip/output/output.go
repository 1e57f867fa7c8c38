// Package output provides formatters for displaying packaging results
// in various output formats (pretty, plain, json, yaml, etc.).
//
// The package uses a registry pattern to allow registration of multiple
// formatter implementations that can be selected at runtime.
//
// Basic usage:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, output.FromResult(result)); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"io/fs"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/fnzip/pkg/fnzip/types"
)

// FileInfo describes one archive member for output formatting.
type FileInfo struct {
	// Name is the archive member name.
	Name string `json:"name" yaml:"name"`

	// Source is the file the member was copied from. Empty for the
	// synthesized entry module.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Size is the uncompressed size in bytes.
	Size int64 `json:"size" yaml:"size"`

	// SizeHuman is the human-readable size (e.g., "1.5 KiB").
	SizeHuman string `json:"size_human" yaml:"size_human"`

	// Perms is the permission string (e.g., "-rw-r--r--").
	Perms string `json:"perms,omitempty" yaml:"perms,omitempty"`

	// Link indicates the member is stored as a symbolic link.
	Link bool `json:"link,omitempty" yaml:"link,omitempty"`

	// Entry indicates the synthesized entry module.
	Entry bool `json:"entry,omitempty" yaml:"entry,omitempty"`
}

// Result contains the complete output data for formatting.
type Result struct {
	// Archive is the path of the written archive.
	Archive string `json:"archive" yaml:"archive"`

	// Source is the packaged source file or directory.
	Source string `json:"source" yaml:"source"`

	// Handler is the handler identifier as given.
	Handler string `json:"handler,omitempty" yaml:"handler,omitempty"`

	// HandlerFile is the file the handler resolved to.
	HandlerFile string `json:"handler_file" yaml:"handler_file"`

	// PackageRoot is the resolved package root.
	PackageRoot string `json:"package_root" yaml:"package_root"`

	// CommonPrefix is the directory re-rooted as "src".
	CommonPrefix string `json:"common_prefix" yaml:"common_prefix"`

	// Files lists every archive member, the entry module first.
	Files []FileInfo `json:"files" yaml:"files"`

	// ArchiveSize is the compressed archive size in bytes.
	ArchiveSize int64 `json:"archive_size" yaml:"archive_size"`

	// Elapsed is the time taken to package the function.
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`

	// ManifestID is the history entry recorded for this run, if any.
	ManifestID string `json:"manifest_id,omitempty" yaml:"manifest_id,omitempty"`

	// Warnings contains any warning messages generated during packaging.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// FromResult converts a packaging result for display.
func FromResult(r *types.Result) *Result {
	files := make([]FileInfo, 0, len(r.Files)+1)
	files = append(files, FileInfo{
		Name:      r.Entry.Name,
		Size:      r.Entry.Size(),
		SizeHuman: types.FormatSize(r.Entry.Size()),
		Perms:     fs.FileMode(0o644).String(),
		Entry:     true,
	})
	for _, f := range r.Files {
		fi := FileInfo{
			Name:      f.Name,
			Source:    f.Source,
			Size:      f.Size(),
			SizeHuman: types.FormatSize(f.Size()),
		}
		if f.Info != nil {
			fi.Perms = f.Info.Mode().String()
			fi.Link = f.Info.Mode()&fs.ModeSymlink != 0
		}
		files = append(files, fi)
	}

	return &Result{
		Archive:      r.Function.DestPath,
		Source:       r.Function.SourcePath,
		Handler:      r.Function.Handler,
		HandlerFile:  r.HandlerFile,
		PackageRoot:  r.PackageRoot,
		CommonPrefix: r.CommonPrefix,
		Files:        files,
		ArchiveSize:  r.ArchiveSize,
		Elapsed:      r.Elapsed,
	}
}

// TotalSize returns the sum of all member sizes in the result.
func (r *Result) TotalSize() int64 {
	var total int64
	for _, f := range r.Files {
		total += f.Size
	}
	return total
}

// Ratio returns the archive size as a fraction of the uncompressed size.
func (r *Result) Ratio() float64 {
	total := r.TotalSize()
	if total == 0 {
		return 0
	}
	return float64(r.ArchiveSize) / float64(total)
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	// It returns an error if formatting fails.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
// It returns an error if the formatter is not found.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

// formatDurationString formats a duration for structured output.
func formatDurationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}
