// Package resolver locates a function's package root and the files its
// handler depends on. Dependencies are discovered by following the
// require/import statements of Node.js modules from the handler file.
package resolver

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/fnzip/pkg/fnzip/types"
)

// ManifestName is the dependency manifest that marks a package root.
const ManifestName = "package.json"

// ModulesDir is the directory holding installed packages.
const ModulesDir = "node_modules"

// Extensions are tried, in order, when a module path has no file of its own.
var Extensions = []string{".js", ".json", ".mjs", ".cjs", ".node"}

// ErrNotFound is returned when a module cannot be resolved.
var ErrNotFound = errors.New("module not found")

// packageManifest is the subset of package.json fnzip reads.
type packageManifest struct {
	Name                 string            `json:"name"`
	Main                 string            `json:"main"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
}

func readManifest(dir string) (*packageManifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, err
	}
	var m packageManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Join(dir, ManifestName), err)
	}
	return &m, nil
}

// PackageRoot returns the nearest ancestor of dir (dir included) that holds
// a package.json. When none exists the cleaned absolute dir is returned.
func PackageRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", types.DependencyError("package root", dir, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", types.DependencyError("package root", abs, err)
	}
	if !info.IsDir() {
		return "", types.DependencyError("package root", abs, fmt.Errorf("not a directory"))
	}

	for current := abs; ; {
		if _, err := os.Stat(filepath.Join(current, ManifestName)); err == nil {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return abs, nil
		}
		current = parent
	}
}

// ResolveFile resolves name the way Node resolves a file or directory
// module: the exact file, then name plus each of Extensions, then a
// directory's package.json "main" or its index file.
func ResolveFile(name string) (string, error) {
	if info, err := os.Stat(name); err == nil {
		if !info.IsDir() {
			return name, nil
		}
		return resolveDirectory(name)
	}

	for _, ext := range Extensions {
		candidate := name + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrNotFound, name)
}

func resolveDirectory(dir string) (string, error) {
	m, err := readManifest(dir)
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}
	if m != nil && m.Main != "" {
		if main, err := ResolveFile(filepath.Join(dir, m.Main)); err == nil {
			return main, nil
		}
	}

	for _, ext := range Extensions {
		index := filepath.Join(dir, "index"+ext)
		if info, err := os.Stat(index); err == nil && !info.IsDir() {
			return index, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrNotFound, dir)
}

// HandlerFile resolves a handler identifier to the file that implements it.
//
// Absolute identifiers name the file directly. Otherwise the identifier is a
// module path, optionally followed by ".export" (e.g. "lib/api.handler"),
// resolved relative to the source directory. A single-file source is its own
// handler when the identifier does not resolve.
func HandlerFile(handler string, d *types.FunctionDescriptor) (string, error) {
	if handler == "" {
		if !d.IsDir() {
			return d.SourcePath, nil
		}
		return "", types.DependencyError("handler", d.SourcePath, errors.New("no handler given for directory source"))
	}

	if filepath.IsAbs(handler) {
		file, err := ResolveFile(handler)
		if err != nil {
			return "", types.DependencyError("handler", handler, err)
		}
		return file, nil
	}

	base := d.SourcePath
	if !d.IsDir() {
		base = filepath.Dir(d.SourcePath)
	}

	for _, module := range handlerModules(handler) {
		if file, err := ResolveFile(filepath.Join(base, filepath.FromSlash(module))); err == nil {
			return file, nil
		}
	}

	if !d.IsDir() {
		return d.SourcePath, nil
	}
	return "", types.DependencyError("handler", handler, fmt.Errorf("%w in %s", ErrNotFound, base))
}

// handlerModules returns the module paths a handler identifier may name,
// most specific first.
func handlerModules(handler string) []string {
	modules := []string{handler}
	ext := filepath.Ext(handler)
	if ext != "" && !isKnownExtension(ext) {
		modules = append(modules, strings.TrimSuffix(handler, ext))
	}
	return modules
}

func isKnownExtension(ext string) bool {
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}
