package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jamesainslie/fnzip/pkg/fnzip/logging"
	"github.com/jamesainslie/fnzip/pkg/fnzip/types"
)

// DefaultExcludedModules are provided by the function runtime and never bundled.
var DefaultExcludedModules = []string{"aws-sdk"}

// importPatterns capture the specifier of static require/import forms.
var importPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\brequire\s*\(\s*['"]([^'"]+)['"]\s*\)`),
	regexp.MustCompile(`\bimport\s*\(\s*['"]([^'"]+)['"]\s*\)`),
	regexp.MustCompile(`(?m)^\s*import\s+(?:[\w*{}\s,$]+\s+from\s+)?['"]([^'"]+)['"]`),
	regexp.MustCompile(`(?m)^\s*export\s+(?:[\w*{}\s,$]+\s+)?from\s+['"]([^'"]+)['"]`),
}

// builtins lists the Node.js core modules.
var builtins = map[string]bool{
	"assert": true, "async_hooks": true, "buffer": true, "child_process": true,
	"cluster": true, "console": true, "constants": true, "crypto": true,
	"dgram": true, "diagnostics_channel": true, "dns": true, "domain": true,
	"events": true, "fs": true, "http": true, "http2": true, "https": true,
	"inspector": true, "module": true, "net": true, "os": true, "path": true,
	"perf_hooks": true, "process": true, "punycode": true, "querystring": true,
	"readline": true, "repl": true, "stream": true, "string_decoder": true,
	"sys": true, "timers": true, "tls": true, "trace_events": true, "tty": true,
	"url": true, "util": true, "v8": true, "vm": true, "wasi": true,
	"worker_threads": true, "zlib": true,
}

// sourceExtensions are the files scanned for further imports.
var sourceExtensions = map[string]bool{".js": true, ".mjs": true, ".cjs": true, ".jsx": true}

// Options configures the Node resolver.
type Options struct {
	// ExcludedModules are package names never followed or bundled.
	ExcludedModules []string
}

// Node resolves the static dependency graph of a Node.js handler.
// It is safe for concurrent use; each Resolve call keeps its own state.
type Node struct {
	excluded map[string]bool
	logger   *logging.Logger
}

// NewNode creates a Node resolver.
func NewNode(opts Options) *Node {
	excluded := make(map[string]bool, len(opts.ExcludedModules))
	for _, m := range opts.ExcludedModules {
		excluded[m] = true
	}
	return &Node{
		excluded: excluded,
		logger:   logging.Get("resolver"),
	}
}

// Resolve returns every file reachable from handlerFile through static
// require/import statements, the handler included. Package manifests of
// the installed packages involved are returned as well so the runtime can
// honor their "main" fields. Missing modules fail the resolution unless the
// package root lists them as optional or peer dependencies.
func (n *Node) Resolve(ctx context.Context, handlerFile, packageRoot string) ([]string, error) {
	optional := map[string]bool{}
	if m, err := readManifest(packageRoot); err == nil {
		for name := range m.OptionalDependencies {
			optional[name] = true
		}
		for name := range m.PeerDependencies {
			optional[name] = true
		}
	}

	start, err := filepath.Abs(handlerFile)
	if err != nil {
		return nil, types.DependencyError("resolve", handlerFile, err)
	}

	visited := map[string]bool{start: true}
	queue := []string{start}
	files := []string{start}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		file := queue[0]
		queue = queue[1:]

		if !sourceExtensions[filepath.Ext(file)] {
			continue
		}

		specifiers, err := scanImports(file)
		if err != nil {
			return nil, types.DependencyError("read", file, err)
		}

		for _, spec := range specifiers {
			name := packageName(spec)
			if isBuiltin(spec) || n.excluded[name] {
				continue
			}

			resolved, manifest, err := n.resolveSpecifier(filepath.Dir(file), spec)
			if err != nil {
				if !isRelative(spec) && optional[name] {
					n.logger.Debug("skipping missing optional module", "module", spec, "from", file)
					continue
				}
				return nil, types.DependencyError("resolve", spec, fmt.Errorf("required from %s: %w", file, err))
			}

			for _, p := range []string{manifest, resolved} {
				if p == "" || visited[p] {
					continue
				}
				visited[p] = true
				files = append(files, p)
				queue = append(queue, p)
			}
		}
	}

	sort.Strings(files[1:])
	n.logger.Debug("resolved dependencies", "handler", start, "files", len(files))
	return files, nil
}

// resolveSpecifier resolves spec as required from dir. For packages found
// under node_modules the package's manifest path is returned too.
func (n *Node) resolveSpecifier(dir, spec string) (file, manifest string, err error) {
	if isRelative(spec) || filepath.IsAbs(spec) {
		name := spec
		if !filepath.IsAbs(name) {
			name = filepath.Join(dir, filepath.FromSlash(spec))
		}
		file, err = ResolveFile(name)
		return file, "", err
	}

	pkg := packageName(spec)
	for current := dir; ; {
		if filepath.Base(current) != ModulesDir {
			pkgDir := filepath.Join(current, ModulesDir, filepath.FromSlash(pkg))
			if info, statErr := os.Stat(pkgDir); statErr == nil && info.IsDir() {
				file, err = ResolveFile(filepath.Join(current, ModulesDir, filepath.FromSlash(spec)))
				if err != nil {
					return "", "", err
				}
				if _, statErr := os.Stat(filepath.Join(pkgDir, ManifestName)); statErr == nil {
					manifest = filepath.Join(pkgDir, ManifestName)
				}
				return file, manifest, nil
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", "", fmt.Errorf("%w: %q", ErrNotFound, spec)
		}
		current = parent
	}
}

// scanImports returns the module specifiers referenced by a source file.
// Imports inside comments and string literals do not count.
func scanImports(file string) ([]string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	masked := maskSource(data)
	seen := map[string]bool{}
	var specs []string
	for _, re := range importPatterns {
		for _, m := range re.FindAllSubmatchIndex(masked, -1) {
			spec := string(data[m[2]:m[3]])
			if !seen[spec] {
				seen[spec] = true
				specs = append(specs, spec)
			}
		}
	}
	return specs, nil
}

func isRelative(spec string) bool {
	return spec == "." || spec == ".." || strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
}

func isBuiltin(spec string) bool {
	if strings.HasPrefix(spec, "node:") {
		return true
	}
	root, _, _ := strings.Cut(spec, "/")
	return builtins[root]
}

// packageName returns the installed package a bare specifier belongs to:
// "lodash/fp" -> "lodash", "@scope/pkg/x" -> "@scope/pkg".
func packageName(spec string) string {
	if isRelative(spec) || strings.HasPrefix(spec, "/") {
		return ""
	}
	parts := strings.SplitN(spec, "/", 3)
	if strings.HasPrefix(spec, "@") && len(parts) >= 2 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}
