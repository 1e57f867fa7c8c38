// Package types provides core data types for the fnzip function packager.
// It includes the function descriptor handed to the packaging pipeline, the
// deduplicated file set, archive entries and the packaging result, along with
// the error kinds surfaced by each phase.
package types

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
)

// FunctionDescriptor describes a single function to package.
// It is immutable input to the packaging pipeline.
type FunctionDescriptor struct {
	// SourcePath is the absolute path to the function source file or directory.
	SourcePath string `json:"source_path"`

	// SourceDir is the directory used to discover the package root.
	SourceDir string `json:"source_dir"`

	// DestPath is the absolute path where the archive is written.
	DestPath string `json:"dest_path"`

	// Filename is the base name of the synthesized entry module.
	Filename string `json:"filename"`

	// Handler identifies the function entry. It is either the path of the
	// handler file or a "module.export" identifier such as "index.handler".
	Handler string `json:"handler"`

	// Stat is the pre-computed stat result for SourcePath.
	Stat fs.FileInfo `json:"-"`
}

// IsDir reports whether the source is a directory.
func (d *FunctionDescriptor) IsDir() bool {
	return d.Stat != nil && d.Stat.IsDir()
}

// DependencyResolver returns the absolute paths of the files a handler
// depends on. The returned paths may lie outside the function source.
type DependencyResolver interface {
	Resolve(ctx context.Context, handlerFile, packageRoot string) ([]string, error)
}

// DependencyResolverFunc adapts a function to the DependencyResolver interface.
type DependencyResolverFunc func(ctx context.Context, handlerFile, packageRoot string) ([]string, error)

// Resolve calls f.
func (f DependencyResolverFunc) Resolve(ctx context.Context, handlerFile, packageRoot string) ([]string, error) {
	return f(ctx, handlerFile, packageRoot)
}

// PackageRootFunc locates the package root for a source directory.
type PackageRootFunc func(dir string) (string, error)

// FileSet is a set of canonical absolute file paths.
// The zero value is not usable; create one with NewFileSet.
type FileSet struct {
	paths map[string]struct{}
}

// NewFileSet creates an empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{paths: make(map[string]struct{})}
}

// Canonical returns the canonical absolute form of path used as the set key.
// Relative paths are resolved against the working directory.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// Add canonicalizes path and inserts it. It reports whether the path was new.
func (s *FileSet) Add(path string) (bool, error) {
	canonical, err := Canonical(path)
	if err != nil {
		return false, err
	}
	if _, ok := s.paths[canonical]; ok {
		return false, nil
	}
	s.paths[canonical] = struct{}{}
	return true, nil
}

// Contains reports whether the canonical form of path is in the set.
func (s *FileSet) Contains(path string) bool {
	canonical, err := Canonical(path)
	if err != nil {
		return false
	}
	_, ok := s.paths[canonical]
	return ok
}

// Len returns the number of paths in the set.
func (s *FileSet) Len() int {
	return len(s.paths)
}

// Paths returns the paths sorted lexically so archive output is stable.
func (s *FileSet) Paths() []string {
	out := make([]string, 0, len(s.paths))
	for p := range s.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Dirs returns the parent directory of every path, in Paths order.
func (s *FileSet) Dirs() []string {
	paths := s.Paths()
	dirs := make([]string, len(paths))
	for i, p := range paths {
		dirs[i] = filepath.Dir(p)
	}
	return dirs
}

// ZipEntry is a single archive member.
// File-backed entries set Source and Info; content-backed entries set Content.
type ZipEntry struct {
	// Name is the forward-slash archive path.
	Name string `json:"name"`

	// Source is the absolute path of the file copied into the archive.
	Source string `json:"source,omitempty"`

	// Info is the lstat result for Source.
	Info fs.FileInfo `json:"-"`

	// Content is the inline content of a synthesized entry.
	Content []byte `json:"-"`
}

// IsContent reports whether the entry is content-backed.
func (e ZipEntry) IsContent() bool {
	return e.Source == ""
}

// Size returns the uncompressed size of the entry.
func (e ZipEntry) Size() int64 {
	if e.IsContent() {
		return int64(len(e.Content))
	}
	if e.Info == nil {
		return 0
	}
	return e.Info.Size()
}

// Result summarizes a completed packaging operation.
type Result struct {
	// Function is the descriptor that was packaged.
	Function FunctionDescriptor `json:"function"`

	// PackageRoot is the resolved package root.
	PackageRoot string `json:"package_root"`

	// HandlerFile is the resolved handler file.
	HandlerFile string `json:"handler_file"`

	// CommonPrefix is the anchor replaced by the archive root directory.
	CommonPrefix string `json:"common_prefix"`

	// Entry is the synthesized entry module.
	Entry ZipEntry `json:"entry"`

	// Files contains the file-backed entries sorted by archive path.
	Files []ZipEntry `json:"files"`

	// ArchiveSize is the size of the finalized archive in bytes.
	ArchiveSize int64 `json:"archive_size"`

	// Elapsed is the total time taken by the packaging call.
	Elapsed time.Duration `json:"elapsed"`
}

// TotalSize returns the uncompressed size of every entry in the archive.
func (r *Result) TotalSize() int64 {
	total := r.Entry.Size()
	for _, f := range r.Files {
		total += f.Size()
	}
	return total
}

// FormatSize converts a size in bytes to a human-readable string
// using binary (IEC) units.
func FormatSize(bytes int64) string {
	return humanize.IBytes(uint64(bytes))
}
