package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/jamesainslie/fnzip/pkg/fnzip/logging"
	"github.com/jamesainslie/fnzip/pkg/fnzip/types"
)

// DefaultLevel is the deflate level used when Options.Level is zero.
const DefaultLevel = flate.DefaultCompression

// contentModTime is stamped on synthesized entries so identical inputs
// produce identical archives.
var contentModTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Options configures a ZipWriter.
type Options struct {
	// Level is the deflate level, from flate.HuffmanOnly (-2) to
	// flate.BestCompression (9). Zero selects DefaultLevel.
	Level int
}

// level returns the configured level, falling back to DefaultLevel.
func (o Options) level() int {
	if o.Level == 0 || o.Level < flate.HuffmanOnly || o.Level > flate.BestCompression {
		return DefaultLevel
	}
	return o.Level
}

// ZipWriter is a Writer producing a deflate-compressed ZIP archive.
type ZipWriter struct {
	dest string
	tmp  *os.File
	zw   *zip.Writer

	mu      sync.Mutex
	state   State
	entries int
	size    int64

	logger *logging.Logger
}

func tempPattern(dest string) string {
	return "." + filepath.Base(dest) + ".*.tmp"
}

// IsTemp reports whether path is a temporary file Open created for dest.
func IsTemp(dest, path string) bool {
	if filepath.Dir(path) != filepath.Dir(dest) {
		return false
	}
	ok, err := filepath.Match(tempPattern(dest), filepath.Base(path))
	return err == nil && ok
}

// Open creates the temporary archive file for dest. The destination
// directory must exist.
func Open(dest string, opts Options) (*ZipWriter, error) {
	abs, err := filepath.Abs(dest)
	if err != nil {
		return nil, types.ArchiveError("open", dest, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(abs), tempPattern(abs))
	if err != nil {
		return nil, types.ArchiveError("open", abs, err)
	}

	zw := zip.NewWriter(tmp)
	level := opts.level()
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	w := &ZipWriter{
		dest:   abs,
		tmp:    tmp,
		zw:     zw,
		state:  StateOpen,
		logger: logging.Get("archive"),
	}
	w.logger.Debug("opened archive", "dest", abs, "tmp", tmp.Name(), "level", level)
	return w, nil
}

// Dest returns the destination path.
func (w *ZipWriter) Dest() string {
	return w.dest
}

// State returns the current lifecycle state.
func (w *ZipWriter) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Entries returns the number of entries written so far.
func (w *ZipWriter) Entries() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entries
}

// Size returns the size in bytes of the finished archive, or zero before Close.
func (w *ZipWriter) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// AddFile implements Writer.
func (w *ZipWriter) AddFile(ctx context.Context, src, name string, info fs.FileInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return types.ArchiveError("header", src, err)
	}
	header.Name = name

	var body io.Reader
	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(src)
		if err != nil {
			return types.FileSystemError("readlink", src, err)
		}
		header.Method = zip.Store
		body = strings.NewReader(target)
	case info.Mode().IsRegular():
		f, err := os.Open(src)
		if err != nil {
			return types.FileSystemError("open", src, err)
		}
		defer f.Close()
		header.Method = zip.Deflate
		body = f
	default:
		return types.ArchiveError("add", src, fmt.Errorf("unsupported file mode %s", info.Mode()))
	}

	return w.write(ctx, header, body)
}

// AddContent implements Writer.
func (w *ZipWriter) AddContent(content []byte, name string) error {
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: contentModTime,
	}
	header.SetMode(0o644)
	return w.write(context.Background(), header, bytes.NewReader(content))
}

func (w *ZipWriter) write(ctx context.Context, header *zip.FileHeader, body io.Reader) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateOpen {
		return types.ArchiveError("add", header.Name, ErrClosed)
	}

	out, err := w.zw.CreateHeader(header)
	if err != nil {
		return types.ArchiveError("add", header.Name, err)
	}
	if _, err := io.Copy(out, contextReader{ctx: ctx, r: body}); err != nil {
		return types.ArchiveError("add", header.Name, err)
	}

	w.entries++
	return nil
}

// Close implements Writer. Closing twice returns ErrClosed.
func (w *ZipWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateOpen {
		return types.ArchiveError("close", w.dest, ErrClosed)
	}
	w.state = StateFinalizing

	if err := w.zw.Close(); err != nil {
		w.discard()
		return types.ArchiveError("finalize", w.dest, err)
	}
	if err := w.tmp.Sync(); err != nil {
		w.discard()
		return types.ArchiveError("sync", w.dest, err)
	}

	info, err := w.tmp.Stat()
	if err != nil {
		w.discard()
		return types.ArchiveError("stat", w.dest, err)
	}

	if err := w.tmp.Close(); err != nil {
		w.discard()
		return types.ArchiveError("close", w.dest, err)
	}
	if err := os.Rename(w.tmp.Name(), w.dest); err != nil {
		w.discard()
		return types.ArchiveError("rename", w.dest, err)
	}

	w.size = info.Size()
	w.state = StateClosed
	w.logger.Debug("closed archive", "dest", w.dest, "entries", w.entries, "size", w.size)
	return nil
}

// Abort implements Writer.
func (w *ZipWriter) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateClosed {
		return nil
	}
	w.logger.Debug("aborting archive", "dest", w.dest, "entries", w.entries)
	return w.discard()
}

// discard closes and removes the temporary file. Caller holds w.mu.
func (w *ZipWriter) discard() error {
	w.state = StateClosed
	_ = w.tmp.Close()
	if err := os.Remove(w.tmp.Name()); err != nil && !os.IsNotExist(err) {
		return types.ArchiveError("remove", w.tmp.Name(), err)
	}
	return nil
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

var _ Writer = (*ZipWriter)(nil)
