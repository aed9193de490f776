// Package ini reads and writes an extended INI format.
//
// Beyond key = value pairs and [section] headers the format has:
//
//   - dotted keys and sections building nested maps: a.b.c = 1
//   - appending (key[] = v, or an empty key inside a section) and merging
//     (key += {k: v}) onto earlier values
//   - single- and double-quoted values that may span lines; double quotes
//     take C escapes such as \t and \n
//   - list values in [ ] or { }, which may span lines, with items separated
//     by whitespace, commas or semicolons and optionally named (k: v, k=v)
//   - numbers, and the words YES/NO, ON/OFF, TRUE/FALSE, Y/N,
//     NULL/NONE/NOTHING and EMPTYLIST, in any case
//   - # and // line comments and /* */ block comments
//
// Parsed documents are ordered maps. Lists are []any, lists with named
// items are *Map.
//
//	conf, err := ini.Parse("[db]\nhost = localhost\nports = [5432 5433]\n", ini.DefaultParserOptions())
//	if err != nil {
//	    // handle error
//	}
//	db, _ := conf.Get("db")
//	host, _ := db.(*ini.Map).Get("host")
package ini

import (
	"fmt"
	"io"

	"github.com/shapestone/shape-dsv/internal/parser"
	"github.com/shapestone/shape-dsv/internal/source"
)

// Map is an insertion-ordered map from keys to values.
type Map = parser.Map

// NewMap returns an empty Map.
func NewMap() *Map {
	return parser.NewMap()
}

// Parse parses INI content.
func Parse(content string, opts ParserOptions) (*Map, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	p, err := parser.NewParserWithOptions(content, opts.parser())
	if err != nil {
		return nil, fmt.Errorf("ini: %w", err)
	}
	m, err := p.Parse()
	if err != nil {
		return nil, fmt.Errorf("ini: %w", err)
	}
	return m, nil
}

// Read parses the INI file at path. Gzip and zstd files are decompressed
// transparently.
func Read(path string, opts ParserOptions) (*Map, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	src, err := source.Open(path, source.OpenOptions{})
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer src.Close()
	content, err := io.ReadAll(src)
	if err != nil {
		return nil, &IOError{Op: "read", Path: src.Path(), Err: err}
	}
	return Parse(string(content), opts)
}

// Write generates INI text from data and writes it to path, replacing any
// existing file. A .gz or .zst extension selects compression.
func Write(path string, data any, opts GeneratorOptions) error {
	content, err := Generate(data, opts)
	if err != nil {
		return err
	}
	sink, err := source.Create(path, source.CreateOptions{})
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}
	if _, err := sink.WriteString(content); err != nil {
		sink.Close()
		return &IOError{Op: "write", Path: sink.Path(), Err: err}
	}
	if err := sink.Close(); err != nil {
		return &IOError{Op: "close", Path: sink.Path(), Err: err}
	}
	return nil
}
