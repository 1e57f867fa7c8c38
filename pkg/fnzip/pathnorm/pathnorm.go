// Package pathnorm converts native absolute paths into archive member names.
//
// Archive members are rooted under RootDir, use forward slashes only and
// never carry a Windows drive token, so the same function source produces
// the same member names on every host. Windows paths compare
// case-insensitively, as the file system does:
//
//	prefix := pathnorm.CommonPrefix([]string{"/app/fn", "/app/fn/lib"})
//	name := pathnorm.ToArchivePath("/app/fn/lib/util.js", prefix)
//	// name == "src/lib/util.js"
package pathnorm

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// RootDir is the archive directory that replaces the common prefix.
const RootDir = "src"

// drivePattern matches a leading drive token such as "C:".
var drivePattern = regexp.MustCompile(`^([a-zA-Z]+):`)

// Style describes the path conventions of a host platform.
type Style struct {
	// Sep is the native path separator.
	Sep byte
}

var (
	// Posix uses '/' as its only separator.
	Posix = Style{Sep: '/'}

	// Windows uses '\' and also accepts '/' in input paths.
	Windows = Style{Sep: '\\'}

	// Native follows the host platform.
	Native = Style{Sep: filepath.Separator}
)

// Canonical cleans p for the style: separators are unified and "." and ".."
// segments resolved.
func (s Style) Canonical(p string) string {
	if p == "" {
		return ""
	}
	slashed := p
	if s.Sep != '/' {
		slashed = strings.ReplaceAll(p, string(s.Sep), "/")
	}
	cleaned := path.Clean(slashed)
	if s.Sep != '/' {
		cleaned = strings.ReplaceAll(cleaned, "/", string(s.Sep))
	}
	return cleaned
}

// ToSlash converts the style's separators to forward slashes.
func (s Style) ToSlash(p string) string {
	if s.Sep == '/' {
		return p
	}
	return strings.ReplaceAll(p, string(s.Sep), "/")
}

// ToArchivePath rewrites the absolute path p into an archive member name.
// The prefix anchor is replaced with RootDir, separators become '/', and a
// leading drive token is removed. A path outside prefix keeps its original
// directories as a relative name; its drive letter stays as the first
// segment without the colon, so files on different drives never collide.
func (s Style) ToArchivePath(p, prefix string) string {
	canonical := s.Canonical(p)

	if rel, ok := s.trimPrefix(canonical, prefix); ok {
		return StripDrive(s.ToSlash(RootDir + string(s.Sep) + rel))
	}

	outside := drivePattern.ReplaceAllString(s.ToSlash(canonical), "${1}")
	return strings.TrimLeft(outside, "/")
}

// trimPrefix returns p relative to prefix, matching whole segments only.
func (s Style) trimPrefix(p, prefix string) (string, bool) {
	if prefix == "" {
		return "", false
	}
	anchor := s.Canonical(prefix)
	if anchor[len(anchor)-1] != s.Sep {
		anchor += string(s.Sep)
	}
	if len(p) < len(anchor) || !s.equal(p[:len(anchor)], anchor) {
		return "", false
	}
	return p[len(anchor):], true
}

// equal compares two path fragments the way the style's file system does.
func (s Style) equal(a, b string) bool {
	if s.Sep == '\\' {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// CommonPrefix returns the deepest directory shared by every entry of dirs.
// A single directory is its own prefix; an empty input yields "".
func (s Style) CommonPrefix(dirs []string) string {
	if len(dirs) == 0 {
		return ""
	}

	common := strings.Split(s.Canonical(dirs[0]), string(s.Sep))
	for _, dir := range dirs[1:] {
		segments := strings.Split(s.Canonical(dir), string(s.Sep))
		n := 0
		for n < len(common) && n < len(segments) && s.equal(common[n], segments[n]) {
			n++
		}
		common = common[:n]
	}

	prefix := strings.Join(common, string(s.Sep))
	if prefix == "" && len(common) > 0 {
		// Every directory shared only the leading empty segment: the root.
		return string(s.Sep)
	}
	if strings.HasSuffix(prefix, ":") {
		// A bare drive such as "C:" names the drive root.
		return prefix + string(s.Sep)
	}
	return prefix
}

// StripDrive removes a leading drive token ("C:") from a slash path.
func StripDrive(p string) string {
	return drivePattern.ReplaceAllString(p, "")
}

// ToArchivePath rewrites p with the host path conventions.
func ToArchivePath(p, prefix string) string {
	return Native.ToArchivePath(p, prefix)
}

// CommonPrefix computes the shared directory with the host path conventions.
func CommonPrefix(dirs []string) string {
	return Native.CommonPrefix(dirs)
}
