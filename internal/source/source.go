// Package source provides the byte sources and sinks behind dsv sessions:
// in-memory strings, plain files (optionally memory-mapped), and gzip or
// zstd compressed streams.
package source

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Type identifies what kind of source or sink a session uses.
type Type int

const (
	// TypeString is an in-memory string or buffer.
	TypeString Type = iota
	// TypeFile is a plain file or uncompressed stream.
	TypeFile
	// TypeGzip is a gzip-compressed file or stream.
	TypeGzip
	// TypeZstd is a zstd-compressed file or stream.
	TypeZstd
)

// String returns the string representation of Type.
func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeFile:
		return "file"
	case TypeGzip:
		return "gzip"
	case TypeZstd:
		return "zstd"
	default:
		return fmt.Sprintf("Type(%d)", t)
	}
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

var (
	// ErrNotFile is returned when a path names something other than a regular file.
	ErrNotFile = errors.New("path is not a file")
)

// Detect returns the compression type announced by the leading bytes of a
// stream, or TypeFile when there is none.
func Detect(prefix []byte) Type {
	switch {
	case bytes.HasPrefix(prefix, gzipMagic):
		return TypeGzip
	case bytes.HasPrefix(prefix, zstdMagic):
		return TypeZstd
	default:
		return TypeFile
	}
}

// TypeForPath returns the compression implied by a file name extension,
// or TypeFile.
func TypeForPath(path string) Type {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return TypeGzip
	case ".zst", ".zstd":
		return TypeZstd
	default:
		return TypeFile
	}
}

// Source is a readable byte source. Close is idempotent.
type Source struct {
	r      io.Reader
	typ    Type
	path   string
	close  []func() error
	closed bool
}

// Read reads up to len(p) bytes from the source.
func (s *Source) Read(p []byte) (int, error) {
	if s.closed {
		return 0, os.ErrClosed
	}
	return s.r.Read(p)
}

// Type returns the source type.
func (s *Source) Type() Type {
	return s.typ
}

// Path returns the resolved file path, or "" for in-memory sources.
func (s *Source) Path() string {
	return s.path
}

// Close releases any decompressor, mapping, and file handle, innermost
// first. Calling Close again is a no-op.
func (s *Source) Close() error {
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

// FromString returns a source reading content.
func FromString(content string) *Source {
	return &Source{r: strings.NewReader(content), typ: TypeString}
}

// OpenOptions configures Open.
type OpenOptions struct {
	// Mmap maps uncompressed files into memory instead of reading them
	// through a file handle.
	Mmap bool
}

// Open opens the file at path, decompressing it when its first bytes carry
// a gzip or zstd signature.
func Open(path string, opts OpenOptions) (*Source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: %w", abs, ErrNotFile)
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	var head [4]byte
	n, err := io.ReadFull(f, head[:])
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		f.Close()
		return nil, fmt.Errorf("read %s: %w", abs, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("seek %s: %w", abs, err)
	}

	typ := Detect(head[:n])
	if typ == TypeFile && opts.Mmap {
		f.Close()
		data, unmap, err := mmapFile(abs)
		if err != nil {
			return nil, err
		}
		return &Source{r: bytes.NewReader(data), typ: TypeFile, path: abs, close: []func() error{unmap}}, nil
	}

	s := &Source{r: f, typ: TypeFile, path: abs, close: []func() error{f.Close}}
	if typ != TypeFile {
		if err := s.decompress(typ, bufio.NewReader(f)); err != nil {
			f.Close()
			return nil, fmt.Errorf("open %s: %w", abs, err)
		}
	}
	return s, nil
}

// FromReader wraps an arbitrary stream, sniffing it for a compression
// signature without consuming any bytes. The caller keeps ownership of r.
func FromReader(r io.Reader) (*Source, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	s := &Source{r: br, typ: TypeFile}
	if typ := Detect(head); typ != TypeFile {
		if err := s.decompress(typ, br); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Source) decompress(typ Type, r io.Reader) error {
	switch typ {
	case TypeGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return err
		}
		s.r = zr
		s.close = append(s.close, zr.Close)
	case TypeZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return err
		}
		s.r = zr
		s.close = append(s.close, func() error { zr.Close(); return nil })
	}
	s.typ = typ
	return nil
}
