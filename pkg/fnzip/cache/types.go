package cache

import (
	"bytes"
	"encoding/gob"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/jamesainslie/fnzip/pkg/fnzip/resolver"
)

// CacheVersion is incremented when the cache format changes.
const CacheVersion = 2

// KeySeparator separates the package root from the handler in cache keys.
const KeySeparator = '\x00'

// FileStamp records the state of a file when a resolution was cached.
type FileStamp struct {
	Path  string
	Size  int64
	Mtime int64 // UnixNano
}

// Stamp returns the current stamp of path.
func Stamp(path string) (FileStamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileStamp{}, err
	}
	return FileStamp{Path: path, Size: info.Size(), Mtime: info.ModTime().UnixNano()}, nil
}

// Valid reports whether the file still matches the stamp.
func (s FileStamp) Valid() bool {
	current, err := Stamp(s.Path)
	if err != nil {
		return false
	}
	return current == s
}

// DirStamp records which resolution candidates a directory held when a
// resolution was cached. Only subdirectories and files that module lookup
// can pick (known extensions, package.json) count, so archives and
// temporary files written next to sources leave the stamp intact.
type DirStamp struct {
	Path   string
	Exists bool
	Digest uint64
}

// StampDir returns the current stamp of dir. A missing directory is
// stamped too: creating it later (a first node_modules install) must
// invalidate the entry.
func StampDir(dir string) (DirStamp, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return DirStamp{Path: dir}, nil
	}
	if err != nil {
		return DirStamp{}, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if candidate(e) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	d := xxhash.New()
	for _, name := range names {
		_, _ = d.WriteString(name)
		_, _ = d.Write([]byte{0})
	}
	return DirStamp{Path: dir, Exists: true, Digest: d.Sum64()}, nil
}

// candidate reports whether e can take part in module lookup.
func candidate(e fs.DirEntry) bool {
	name := e.Name()
	if strings.HasPrefix(name, ".") {
		return false
	}
	if e.IsDir() || name == resolver.ManifestName {
		return true
	}
	ext := filepath.Ext(name)
	for _, known := range resolver.Extensions {
		if ext == known {
			return true
		}
	}
	return false
}

// Valid reports whether the directory still holds the same candidates.
func (s DirStamp) Valid() bool {
	current, err := StampDir(s.Path)
	if err != nil {
		return false
	}
	return current == s
}

// CachedResolution is a cached resolver result.
type CachedResolution struct {
	Version int
	Files   []string
	// Stamps cover every resolved file plus the package manifest, if any.
	Stamps []FileStamp
	// Dirs cover the directories holding resolved files, the package root
	// and its node_modules. A new file that would now win resolution, or a
	// newly installed optional package, changes one of them.
	Dirs []DirStamp
}

// Valid reports whether the entry has the current version and no stamped
// file or directory has changed.
func (e *CachedResolution) Valid() bool {
	if e.Version != CacheVersion {
		return false
	}
	for _, s := range e.Stamps {
		if !s.Valid() {
			return false
		}
	}
	for _, d := range e.Dirs {
		if !d.Valid() {
			return false
		}
	}
	return true
}

// Encode serializes the entry to bytes using gob.
func (e *CachedResolution) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes bytes into the entry using gob.
func (e *CachedResolution) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(e)
}

// MakeKey creates a cache key from the package root and handler file.
// Format: <packageRoot>\x00<handlerFile>
func MakeKey(packageRoot, handlerFile string) []byte {
	return []byte(packageRoot + string(KeySeparator) + handlerFile)
}

// ParseKey extracts the package root and handler file from a cache key.
func ParseKey(key []byte) (packageRoot, handlerFile string) {
	idx := bytes.IndexByte(key, KeySeparator)
	if idx == -1 {
		return string(key), ""
	}
	return string(key[:idx]), string(key[idx+1:])
}

// MakeKeyPrefix returns the prefix for all keys under a package root.
func MakeKeyPrefix(packageRoot string) []byte {
	return []byte(packageRoot + string(KeySeparator))
}
