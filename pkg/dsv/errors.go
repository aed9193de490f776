package dsv

import (
	"errors"
	"fmt"

	"github.com/shapestone/shape-dsv/internal/engine"
	"github.com/shapestone/shape-dsv/internal/source"
)

// Common session errors
var (
	// ErrClosed is returned by any session method called after Close, or
	// after a content error closed the session.
	ErrClosed = errors.New("dsv: session is closed")

	// ErrNotStringWriter is returned by Content on writers with a file or
	// stream target.
	ErrNotStringWriter = errors.New("dsv: content is only available from a string writer")

	// ErrUnknownFormat is wrapped by the OptionsError reported for a format
	// name missing from the registry.
	ErrUnknownFormat = errors.New("unknown format")

	// ErrFieldTooLong indicates a field exceeded MaxFieldLength.
	ErrFieldTooLong = engine.ErrFieldTooLong

	// ErrNotFile indicates a path that exists but is not a regular file.
	ErrNotFile = source.ErrNotFile

	// ErrNotRows indicates WriteBatch was given something other than a slice.
	ErrNotRows = errors.New("rows must be a slice or array")
)

// OptionsError represents an invalid option configuration.
type OptionsError struct {
	Field   string
	Message string
	Err     error
}

func (e *OptionsError) Error() string {
	return "dsv: invalid " + e.Field + ": " + e.Message
}

// Unwrap returns the underlying error, if any.
func (e *OptionsError) Unwrap() error {
	return e.Err
}

// ParseError is a content error raised while reading. It always closes the
// session it came from.
type ParseError struct {
	// Record is the index of the data record being read, -1 for the header.
	Record int
	// Offset is the byte offset in the (decompressed) input.
	Offset int64
	// Err is the underlying error.
	Err error
}

func (e *ParseError) Error() string {
	if e.Record < 0 {
		return fmt.Sprintf("dsv: parse error in header at offset %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("dsv: parse error in record %d at offset %d: %v", e.Record, e.Offset, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// IOError wraps a failure of the underlying file, stream, or compressor.
type IOError struct {
	Op   string
	Path string
	// Offset is the byte position reached, or -1 when unknown.
	Offset int64
	Err    error
}

func (e *IOError) Error() string {
	msg := "dsv: " + e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Offset >= 0 {
		msg += fmt.Sprintf(" at offset %d", e.Offset)
	}
	return msg + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error {
	return e.Err
}

// DecodeError reports a record value that could not be stored in a struct
// field.
type DecodeError struct {
	// Record is the index of the record within the decoded batch.
	Record int
	Column string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("dsv: decode record %d, column %q: %v", e.Record, e.Column, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}
