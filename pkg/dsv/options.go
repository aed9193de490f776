package dsv

import (
	"fmt"
	"strings"

	"github.com/shapestone/shape-dsv/internal/engine"
)

// Options configures readers, writers, and the one-shot helpers.
//
// Pointer fields are tri-state: nil leaves the choice to the preset or to
// inference. Dialect overrides individual fields of the named preset.
type Options struct {
	// Format names the preset in Registry, or FormatAuto. Default: "csv"
	Format string

	// Header reports whether the first record holds column names.
	// Readers default to true; writers default to the value of Associative.
	Header *bool

	// Associative exposes rows as label/value records. Readers default to
	// true; writers infer it from the keys of the first row.
	Associative *bool

	// ColumnNames supplies the column labels. A header row, if any, is still
	// consumed but only widens the column set.
	ColumnNames []string

	// ChunkSize is the number of bytes requested per refill. Default: 131072
	ChunkSize int

	// MaxFieldLength limits one field in bytes; negative disables the
	// check. Default: 131072
	MaxFieldLength int

	// StartRecord, MaxRecords, and SkipRecords select records for Read and
	// Parse. See SkipRecords for the alternating form.
	StartRecord int
	MaxRecords  int
	// SkipRecords alternates read and skip counts, starting with a read
	// unless the first element is 0.
	SkipRecords []int

	// Append makes file writers add to existing content.
	Append bool
	// Gzip and Zstd compress file writer output. Paths ending in .gz,
	// .gzip, .zst, or .zstd imply them.
	Gzip bool
	Zstd bool

	// Mmap memory-maps uncompressed files for reading.
	Mmap bool

	// Registry resolves Format. Default: DefaultRegistry()
	Registry *Registry

	// Dialect holds per-field overrides of the preset.
	Dialect Format
}

// DefaultOptions returns the default configuration: the csv preset with
// the default chunk size and field length limit.
func DefaultOptions() Options {
	return Options{
		Format:         FormatCSV,
		ChunkSize:      engine.DefaultChunkSize,
		MaxFieldLength: engine.DefaultMaxFieldLength,
	}
}

func (o Options) registry() *Registry {
	if o.Registry != nil {
		return o.Registry
	}
	return defaultRegistry
}

func (o Options) formatName() string {
	if o.Format == "" {
		return FormatCSV
	}
	return o.Format
}

func (o Options) chunkSize() int {
	if o.ChunkSize == 0 {
		return engine.DefaultChunkSize
	}
	return o.ChunkSize
}

func (o Options) maxFieldLength() int {
	switch {
	case o.MaxFieldLength == 0:
		return engine.DefaultMaxFieldLength
	case o.MaxFieldLength < 0:
		return 0
	}
	return o.MaxFieldLength
}

// Validate checks the options and the dialect they resolve to.
func (o Options) Validate() error {
	if o.ChunkSize < 0 {
		return &OptionsError{Field: "ChunkSize", Message: "must not be negative"}
	}
	if o.StartRecord < 0 {
		return &OptionsError{Field: "StartRecord", Message: "must not be negative"}
	}
	if o.MaxRecords < 0 {
		return &OptionsError{Field: "MaxRecords", Message: "must not be negative"}
	}
	for _, n := range o.SkipRecords {
		if n < 0 {
			return &OptionsError{Field: "SkipRecords", Message: "counts must not be negative"}
		}
	}
	if o.Gzip && o.Zstd {
		return &OptionsError{Field: "Gzip", Message: "gzip and zstd are mutually exclusive"}
	}
	_, err := o.dialect(FormatCSV)
	return err
}

// dialect resolves the preset named by Format merged with the overrides.
// fallback names the preset standing in for FormatAuto.
func (o Options) dialect(fallback string) (Dialect, error) {
	name := o.formatName()
	if name == FormatAuto {
		name = fallback
	}
	preset, ok := o.registry().Lookup(name)
	if !ok {
		return Dialect{}, &OptionsError{Field: "Format", Message: fmt.Sprintf("%q is not registered", name), Err: ErrUnknownFormat}
	}
	d := preset.Merge(o.Dialect).Resolve()
	if err := d.validate(); err != nil {
		return Dialect{}, err
	}
	return d, nil
}

func (d Dialect) validate() error {
	if !d.QuoteMode.Valid() {
		return &OptionsError{Field: "QuoteMode", Message: fmt.Sprintf("unknown mode %q", d.QuoteMode)}
	}
	if d.Delimiter == d.Newline {
		return &OptionsError{Field: "Delimiter", Message: "delimiter same as newline"}
	}
	if d.Quote != "" && (d.Quote == d.Delimiter || d.Quote == d.Newline) {
		return &OptionsError{Field: "Quote", Message: "quote same as delimiter or newline"}
	}
	if d.QuoteMode != QuoteModeEscape {
		if d.Quote == "" {
			return &OptionsError{Field: "Quote", Message: fmt.Sprintf("quote mode %q requires a quote", d.QuoteMode)}
		}
		if d.EscapedQuote == "" {
			return &OptionsError{Field: "EscapedQuote", Message: "quoting requires an escaped quote"}
		}
		if d.EscapedQuote == d.Quote {
			return &OptionsError{Field: "EscapedQuote", Message: "escaped quote same as quote"}
		}
	}
	for _, e := range d.Escapes {
		if e.Literal == "" || e.Escaped == "" {
			return &OptionsError{Field: "Escapes", Message: "escape pairs must not be empty"}
		}
	}
	if d.QuoteMode == QuoteModeEscape {
		table := d.EscapeTable()
		covered := func(literal string) bool {
			for _, e := range table {
				if e.Literal == literal {
					return true
				}
			}
			return false
		}
		if !covered(d.Newline) && !(d.Newline == "\r\n" && covered("\r") && covered("\n")) {
			return &OptionsError{Field: "EscapedNewline", Message: "escape mode cannot represent the newline"}
		}
		if !covered(d.Delimiter) && !coveredByParts(d.Delimiter, covered) {
			return &OptionsError{Field: "EscapedDelimiter", Message: "escape mode cannot represent the delimiter"}
		}
	}
	return nil
}

// coveredByParts reports whether every byte of s has an escape of its own.
func coveredByParts(s string, covered func(string) bool) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !covered(s[i : i+1]) {
			return false
		}
	}
	return true
}

// String renders the structural choices of the dialect.
func (d Dialect) String() string {
	q := func(s string) string { return fmt.Sprintf("%q", s) }
	parts := []string{
		"delimiter=" + q(d.Delimiter),
		"newline=" + q(d.Newline),
		"quote=" + q(d.Quote),
		"mode=" + string(d.QuoteMode),
	}
	return strings.Join(parts, " ")
}
