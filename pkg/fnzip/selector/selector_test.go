package selector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/fnzip/pkg/fnzip/types"
)

func writeTree(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
	}
}

func descriptor(t *testing.T, source string) *types.FunctionDescriptor {
	t.Helper()
	info, err := os.Stat(source)
	require.NoError(t, err)
	return &types.FunctionDescriptor{SourcePath: source, SourceDir: source, Stat: info}
}

func fixed(paths ...string) types.DependencyResolver {
	return types.DependencyResolverFunc(func(context.Context, string, string) ([]string, error) {
		return paths, nil
	})
}

func relAll(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, len(paths))
	for i, p := range paths {
		r, err := filepath.Rel(root, p)
		require.NoError(t, err)
		out[i] = filepath.ToSlash(r)
	}
	return out
}

func TestSelectDirectoryDeduplicatesAndPrunesModules(t *testing.T) {
	root := t.TempDir()
	fn := filepath.Join(root, "fn")
	writeTree(t, fn, "index.js", "lib/util.js", "node_modules/pkg/a.js", "lib/node_modules/x/b.js")

	s, err := New(fixed(filepath.Join(fn, "lib", "util.js")), Options{})
	require.NoError(t, err)

	set, err := s.Select(context.Background(), descriptor(t, fn), filepath.Join(fn, "index.js"), fn)
	require.NoError(t, err)

	assert.Equal(t, []string{"index.js", "lib/util.js"}, relAll(t, fn, set.Paths()))
}

func TestSelectSingleFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "fn/index.js", "fn/other.js")
	source := filepath.Join(root, "fn", "index.js")

	s, err := New(fixed(source), Options{})
	require.NoError(t, err)

	set, err := s.Select(context.Background(), descriptor(t, source), source, root)
	require.NoError(t, err)
	assert.Equal(t, []string{source}, set.Paths())
}

func TestSelectIncludesDependenciesOutsideSource(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "fn/index.js", "shared/helper.js", "node_modules/dep/index.js")
	fn := filepath.Join(root, "fn")

	s, err := New(fixed(
		filepath.Join(root, "shared", "helper.js"),
		filepath.Join(root, "node_modules", "dep", "index.js"),
	), Options{})
	require.NoError(t, err)

	set, err := s.Select(context.Background(), descriptor(t, fn), filepath.Join(fn, "index.js"), root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"fn/index.js",
		"node_modules/dep/index.js",
		"shared/helper.js",
	}, relAll(t, root, set.Paths()))
}

func TestSelectCanonicalizesResolverPaths(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "index.js", "lib/util.js")

	s, err := New(fixed(filepath.Join(root, "lib", "..", "lib", "util.js")), Options{})
	require.NoError(t, err)

	set, err := s.Select(context.Background(), descriptor(t, root), filepath.Join(root, "index.js"), root)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
}

func TestSelectExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "index.js", "index.test.js", "lib/util.js", "lib/util.test.js", "fixtures/data.json")

	s, err := New(fixed(), Options{Exclude: []string{"*.test.js", "**/*.test.js", "fixtures/**"}})
	require.NoError(t, err)

	set, err := s.Select(context.Background(), descriptor(t, root), filepath.Join(root, "index.js"), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"index.js", "lib/util.js"}, relAll(t, root, set.Paths()))
}

func TestSelectCustomExcludeDirs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "index.js", "node_modules/a.js", "vendor/b.js")

	s, err := New(fixed(), Options{ExcludeDirs: []string{"vendor"}})
	require.NoError(t, err)

	set, err := s.Select(context.Background(), descriptor(t, root), filepath.Join(root, "index.js"), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"index.js", "node_modules/a.js"}, relAll(t, root, set.Paths()))
}

func TestSelectResolverFailure(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "index.js")

	boom := errors.New("boom")
	s, err := New(types.DependencyResolverFunc(func(context.Context, string, string) ([]string, error) {
		return nil, boom
	}), Options{})
	require.NoError(t, err)

	_, err = s.Select(context.Background(), descriptor(t, root), filepath.Join(root, "index.js"), root)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, types.ErrDependencyResolution)
}

func TestSelectWalkFailure(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "index.js")
	d := descriptor(t, root)
	require.NoError(t, os.RemoveAll(root))

	s, err := New(fixed(), Options{})
	require.NoError(t, err)

	_, err = s.Select(context.Background(), d, filepath.Join(root, "index.js"), root)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrFileSystem)
}

func TestNewRequiresResolver(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)
}
