package types

import (
	"errors"
	"fmt"
)

// Error kinds identifying which packaging phase failed.
var (
	// ErrFileSystem covers missing files, stat failures and permission
	// errors during traversal or read.
	ErrFileSystem = errors.New("filesystem error")

	// ErrDependencyResolution covers package root lookup and module resolution.
	ErrDependencyResolution = errors.New("dependency resolution error")

	// ErrArchiveWrite covers failures to open, add to or finalize the archive.
	ErrArchiveWrite = errors.New("archive write error")
)

// Error is a packaging failure tagged with its kind.
// errors.Is(err, ErrArchiveWrite) and friends match on Kind.
type Error struct {
	// Kind is one of ErrFileSystem, ErrDependencyResolution or ErrArchiveWrite.
	Kind error

	// Op names the operation that failed (e.g. "walk", "stat", "finalize").
	Op string

	// Path is the file involved, if any.
	Path string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the error kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// FileSystemError wraps err as an ErrFileSystem failure.
func FileSystemError(op, path string, err error) error {
	return wrap(ErrFileSystem, op, path, err)
}

// DependencyError wraps err as an ErrDependencyResolution failure.
func DependencyError(op, path string, err error) error {
	return wrap(ErrDependencyResolution, op, path, err)
}

// ArchiveError wraps err as an ErrArchiveWrite failure.
func ArchiveError(op, path string, err error) error {
	return wrap(ErrArchiveWrite, op, path, err)
}

// wrap builds an Error, leaving errors that already carry a kind untouched.
func wrap(kind error, op, path string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}
