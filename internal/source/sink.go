package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Sink is a writable byte target. Close flushes compressors and is
// idempotent.
type Sink struct {
	w        io.Writer
	typ      Type
	path     string
	mem      *bytes.Buffer
	appended bool
	close    []func() error
	closed   bool
}

// NewMemorySink returns a sink collecting output in memory.
func NewMemorySink() *Sink {
	buf := &bytes.Buffer{}
	return &Sink{w: buf, typ: TypeString, mem: buf}
}

// NewSink wraps w, compressing with typ when it is TypeGzip or TypeZstd.
// Closing the sink flushes the compressor but leaves w open.
func NewSink(w io.Writer, typ Type) (*Sink, error) {
	s := &Sink{w: w, typ: TypeFile}
	if err := s.compress(typ); err != nil {
		return nil, err
	}
	return s, nil
}

// CreateOptions configures Create.
type CreateOptions struct {
	// Append writes after existing content instead of truncating.
	Append bool
	// Compression forces a compression type. TypeFile defers to the path
	// extension and, when appending, to the existing file's signature.
	Compression Type
}

// Create opens path for writing. When appending to a non-empty file the
// existing compression signature wins, and Appended reports true.
func Create(path string, opts CreateOptions) (*Sink, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	typ := opts.Compression
	if typ == TypeFile || typ == TypeString {
		typ = TypeForPath(abs)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	appended := false
	if opts.Append {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		if info, err := os.Stat(abs); err == nil {
			if !info.Mode().IsRegular() {
				return nil, fmt.Errorf("%s: %w", abs, ErrNotFile)
			}
			if info.Size() > 0 {
				appended = true
				existing, err := sniffFile(abs)
				if err != nil {
					return nil, err
				}
				if existing != TypeFile {
					typ = existing
				}
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else if info, err := os.Stat(abs); err == nil && !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: %w", abs, ErrNotFile)
	}

	f, err := os.OpenFile(abs, flags, 0o644)
	if err != nil {
		return nil, err
	}
	s := &Sink{w: f, typ: TypeFile, path: abs, appended: appended, close: []func() error{f.Close}}
	if err := s.compress(typ); err != nil {
		f.Close()
		return nil, fmt.Errorf("create %s: %w", abs, err)
	}
	return s, nil
}

func sniffFile(path string) (Type, error) {
	f, err := os.Open(path)
	if err != nil {
		return TypeFile, err
	}
	defer f.Close()
	var head [4]byte
	n, err := io.ReadFull(f, head[:])
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return TypeFile, err
	}
	return Detect(head[:n]), nil
}

// compress stacks a compressor on top of the current writer. Appending a
// new gzip member or zstd frame to an existing stream yields a valid
// concatenated stream.
func (s *Sink) compress(typ Type) error {
	switch typ {
	case TypeGzip:
		zw := gzip.NewWriter(s.w)
		s.w = zw
		s.close = append(s.close, zw.Close)
	case TypeZstd:
		zw, err := zstd.NewWriter(s.w)
		if err != nil {
			return err
		}
		s.w = zw
		s.close = append(s.close, zw.Close)
	default:
		return nil
	}
	s.typ = typ
	return nil
}

// Write writes p to the sink.
func (s *Sink) Write(p []byte) (int, error) {
	if s.closed {
		return 0, os.ErrClosed
	}
	return s.w.Write(p)
}

// WriteString writes str to the sink.
func (s *Sink) WriteString(str string) (int, error) {
	if s.closed {
		return 0, os.ErrClosed
	}
	return io.WriteString(s.w, str)
}

// Type returns the sink type.
func (s *Sink) Type() Type {
	return s.typ
}

// Path returns the resolved file path, or "" for other sinks.
func (s *Sink) Path() string {
	return s.path
}

// Appended reports whether the sink continues a non-empty existing file.
func (s *Sink) Appended() bool {
	return s.appended
}

// Content returns what an in-memory sink has collected. ok is false for
// any other sink.
func (s *Sink) Content() (content string, ok bool) {
	if s.mem == nil {
		return "", false
	}
	return s.mem.String(), true
}

// Close flushes and releases the sink, innermost writer first.
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var errs []error
	for i := len(s.close) - 1; i >= 0; i-- {
		if err := s.close[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
