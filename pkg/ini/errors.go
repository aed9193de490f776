package ini

import (
	"errors"

	"github.com/shapestone/shape-dsv/internal/source"
)

var (
	// ErrUnsupportedValue indicates data Generate cannot represent, such
	// as a function or a top-level scalar.
	ErrUnsupportedValue = errors.New("ini: unsupported value")

	// ErrNotFile indicates a path that exists but is not a regular file.
	ErrNotFile = source.ErrNotFile
)

// OptionsError represents an invalid option configuration.
type OptionsError struct {
	Field   string
	Message string
}

func (e *OptionsError) Error() string {
	return "ini: invalid " + e.Field + ": " + e.Message
}

// IOError wraps a failure reading or writing a file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return "ini: " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error {
	return e.Err
}
