// Package archive writes function archives.
//
// A Writer is created with Open, receives entries through AddFile and
// AddContent, and is finished with exactly one of Close or Abort. The archive
// is assembled in a temporary file next to its destination and only renamed
// into place by a successful Close, so a failed packaging run never leaves a
// file at the destination path.
package archive

import (
	"context"
	"errors"
	"io/fs"
)

// ErrClosed is returned when an entry is added to a finished archive.
var ErrClosed = errors.New("archive is closed")

// State is the lifecycle state of a Writer.
type State int

const (
	// StateOpen accepts entries.
	StateOpen State = iota
	// StateFinalizing is writing the central directory.
	StateFinalizing
	// StateClosed is terminal, after either Close or Abort.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateFinalizing:
		return "finalizing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Writer accepts archive entries. Implementations are safe for concurrent use.
type Writer interface {
	// AddFile copies the file at src into the archive under name. info is the
	// Lstat result for src; symbolic links are stored as links.
	AddFile(ctx context.Context, src, name string, info fs.FileInfo) error

	// AddContent stores content under name.
	AddContent(content []byte, name string) error

	// Close finalizes the archive and moves it to its destination.
	Close() error

	// Abort discards the archive. It is a no-op after Close.
	Abort() error
}

// OpenFunc opens a Writer for the archive at dest.
type OpenFunc func(dest string) (Writer, error)

// Opener returns an OpenFunc that opens ZipWriters with opts.
func Opener(opts Options) OpenFunc {
	return func(dest string) (Writer, error) {
		return Open(dest, opts)
	}
}
