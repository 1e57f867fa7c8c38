package pathnorm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommonPrefix(t *testing.T) {
	tests := []struct {
		name  string
		style Style
		dirs  []string
		want  string
	}{
		{name: "empty", style: Posix, dirs: nil, want: ""},
		{name: "single directory", style: Posix, dirs: []string{"/app/fn"}, want: "/app/fn"},
		{name: "nested directories", style: Posix, dirs: []string{"/app/fn", "/app/fn/lib"}, want: "/app/fn"},
		{name: "siblings", style: Posix, dirs: []string{"/app/fn", "/app/shared"}, want: "/app"},
		{name: "whole segments only", style: Posix, dirs: []string{"/app/fn", "/app/fnx"}, want: "/app"},
		{name: "only the root in common", style: Posix, dirs: []string{"/a", "/b"}, want: "/"},
		{name: "dot segments resolved", style: Posix, dirs: []string{"/app/fn/lib/..", "/app/fn"}, want: "/app/fn"},
		{name: "windows single", style: Windows, dirs: []string{`C:\proj\fn`}, want: `C:\proj\fn`},
		{name: "windows siblings", style: Windows, dirs: []string{`C:\proj\fn`, `C:\proj\shared`}, want: `C:\proj`},
		{name: "windows drive root", style: Windows, dirs: []string{`C:\a`, `C:\b`}, want: `C:\`},
		{name: "windows different drives", style: Windows, dirs: []string{`C:\a`, `D:\b`}, want: ""},
		{name: "windows mixed separators", style: Windows, dirs: []string{`C:/proj/fn`, `C:\proj\fn\lib`}, want: `C:\proj\fn`},
		{name: "windows drive case", style: Windows, dirs: []string{`C:\proj\fn`, `c:\proj\lib`}, want: `C:\proj`},
		{name: "windows segment case", style: Windows, dirs: []string{`C:\Proj\fn`, `C:\proj\lib`}, want: `C:\Proj`},
		{name: "posix is case-sensitive", style: Posix, dirs: []string{"/App/fn", "/app/fn"}, want: "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.style.CommonPrefix(tt.dirs))
		})
	}
}

func TestToArchivePath(t *testing.T) {
	tests := []struct {
		name   string
		style  Style
		path   string
		prefix string
		want   string
	}{
		{name: "file at prefix", style: Posix, path: "/app/fn/index.js", prefix: "/app/fn", want: "src/index.js"},
		{name: "nested file", style: Posix, path: "/app/fn/lib/util.js", prefix: "/app/fn", want: "src/lib/util.js"},
		{name: "prefix with trailing separator", style: Posix, path: "/app/fn/index.js", prefix: "/app/fn/", want: "src/index.js"},
		{name: "shared ancestor", style: Posix, path: "/app/shared/helper.js", prefix: "/app", want: "src/shared/helper.js"},
		{name: "root prefix", style: Posix, path: "/a/x.js", prefix: "/", want: "src/a/x.js"},
		{name: "unclean input", style: Posix, path: "/app/fn/lib/../index.js", prefix: "/app/fn", want: "src/index.js"},
		{name: "outside prefix", style: Posix, path: "/other/x.js", prefix: "/app/fn", want: "other/x.js"},
		{name: "partial segment is not a prefix", style: Posix, path: "/app/fnx/a.js", prefix: "/app/fn", want: "app/fnx/a.js"},
		{name: "windows drive", style: Windows, path: `C:\proj\fn\index.js`, prefix: `C:\proj\fn`, want: "src/index.js"},
		{name: "windows nested", style: Windows, path: `C:\proj\fn\lib\util.js`, prefix: `C:\proj\fn`, want: "src/lib/util.js"},
		{name: "windows drive root prefix", style: Windows, path: `C:\a\x.js`, prefix: `C:\`, want: "src/a/x.js"},
		{name: "windows other drive", style: Windows, path: `D:\b\x.js`, prefix: "", want: "D/b/x.js"},
		{name: "windows prefix differs in case", style: Windows, path: `c:\proj\fn\index.js`, prefix: `C:\Proj\fn`, want: "src/index.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.style.ToArchivePath(tt.path, tt.prefix))
		})
	}
}

func TestToArchivePathNeverContainsColonOrBackslash(t *testing.T) {
	paths := []string{
		`C:\proj\fn\index.js`,
		`C:\proj\fn\lib\deep\util.js`,
		`C:\proj\shared\helper.js`,
		`C:\proj\fn\node_modules\pkg\a.js`,
	}
	dirs := make([]string, len(paths))
	for i, p := range paths {
		dirs[i] = p[:strings.LastIndexByte(p, '\\')]
	}

	prefix := Windows.CommonPrefix(dirs)
	for _, p := range paths {
		got := Windows.ToArchivePath(p, prefix)
		assert.NotContains(t, got, ":", "path %s", p)
		assert.NotContains(t, got, `\`, "path %s", p)
		assert.True(t, strings.HasPrefix(got, RootDir+"/"), "path %s normalized to %s", p, got)
	}
}

func TestToArchivePathAcrossDrives(t *testing.T) {
	paths := []string{`C:\proj\fn\index.js`, `D:\proj\fn\index.js`}
	prefix := Windows.CommonPrefix([]string{`C:\proj\fn`, `D:\proj\fn`})
	assert.Equal(t, "", prefix)

	first := Windows.ToArchivePath(paths[0], prefix)
	second := Windows.ToArchivePath(paths[1], prefix)
	assert.Equal(t, "C/proj/fn/index.js", first)
	assert.Equal(t, "D/proj/fn/index.js", second)
	assert.NotEqual(t, first, second)
	for _, name := range []string{first, second} {
		assert.False(t, strings.HasPrefix(name, "/"), "member %s is absolute", name)
		assert.NotContains(t, name, ":")
	}
}

func TestStripDrive(t *testing.T) {
	assert.Equal(t, "/proj/a.js", StripDrive("C:/proj/a.js"))
	assert.Equal(t, "/proj/a.js", StripDrive("ab:/proj/a.js"))
	assert.Equal(t, "src/a.js", StripDrive("src/a.js"))
	assert.Equal(t, "src/c:d.js", StripDrive("src/c:d.js"))
}

func TestNativeHelpersMatchNativeStyle(t *testing.T) {
	dirs := []string{"/app/fn", "/app/fn/lib"}
	assert.Equal(t, Native.CommonPrefix(dirs), CommonPrefix(dirs))
	assert.Equal(t, Native.ToArchivePath("/app/fn/a.js", "/app/fn"), ToArchivePath("/app/fn/a.js", "/app/fn"))
}
