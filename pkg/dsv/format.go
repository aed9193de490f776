package dsv

import (
	"strings"

	"github.com/shapestone/shape-dsv/internal/engine"
)

// QuoteMode governs when the writer wraps a field in quotes, and whether
// the escape table is in effect.
type QuoteMode string

const (
	// QuoteModeQuote wraps text containing a newline or delimiter, or
	// starting or ending with the quote.
	QuoteModeQuote QuoteMode = "quote"
	// QuoteModeStrict wraps text containing a newline, delimiter, or quote anywhere.
	QuoteModeStrict QuoteMode = "quote_strict"
	// QuoteModeAll wraps all text.
	QuoteModeAll QuoteMode = "quote_all"
	// QuoteModeEscape never quotes; the escape table keeps text unambiguous.
	QuoteModeEscape QuoteMode = "escape"
	// QuoteModeEscapeAndQuote applies the escape table and wraps all text.
	QuoteModeEscapeAndQuote QuoteMode = "escape_and_quote"
)

// Valid reports whether m is a known mode.
func (m QuoteMode) Valid() bool {
	switch m {
	case QuoteModeQuote, QuoteModeStrict, QuoteModeAll, QuoteModeEscape, QuoteModeEscapeAndQuote:
		return true
	}
	return false
}

// Escapes reports whether the escape table is in effect.
func (m QuoteMode) Escapes() bool {
	return m == QuoteModeEscape || m == QuoteModeEscapeAndQuote
}

// Escape is one literal/escaped substitution pair.
type Escape struct {
	Literal string `json:"literal"`
	Escaped string `json:"escaped"`
}

// Format is a dialect description in which every field is optional: nil
// means "inherit", not "empty". Registered presets and per-call overrides
// are both Formats; the JSON names double as the YAML keys accepted by
// LoadFormats.
type Format struct {
	Newline          *string    `json:"newline,omitempty"`
	Delimiter        *string    `json:"delimiter,omitempty"`
	Quote            *string    `json:"quote,omitempty"`
	EscapedNewline   *string    `json:"escaped_newline,omitempty"`
	EscapedDelimiter *string    `json:"escaped_delimiter,omitempty"`
	EscapedQuote     *string    `json:"escaped_quote,omitempty"`
	QuoteMode        *QuoteMode `json:"quote_mode,omitempty"`
	NullValue        *string    `json:"null_value,omitempty"`
	TrueValue        *string    `json:"true_value,omitempty"`
	FalseValue       *string    `json:"false_value,omitempty"`
	// Escapes is nil to inherit; an empty non-nil slice clears the table.
	Escapes []Escape `json:"escapes,omitempty"`
}

// String returns a pointer to s, for Format and Options fields.
func String(s string) *string {
	return &s
}

// Bool returns a pointer to b, for Options fields.
func Bool(b bool) *bool {
	return &b
}

// Mode returns a pointer to m, for Format fields.
func Mode(m QuoteMode) *QuoteMode {
	return &m
}

// Merge returns f with every non-nil field of over applied on top.
func (f Format) Merge(over Format) Format {
	pick := func(base, o *string) *string {
		if o != nil {
			return o
		}
		return base
	}
	out := Format{
		Newline:          pick(f.Newline, over.Newline),
		Delimiter:        pick(f.Delimiter, over.Delimiter),
		Quote:            pick(f.Quote, over.Quote),
		EscapedNewline:   pick(f.EscapedNewline, over.EscapedNewline),
		EscapedDelimiter: pick(f.EscapedDelimiter, over.EscapedDelimiter),
		EscapedQuote:     pick(f.EscapedQuote, over.EscapedQuote),
		QuoteMode:        f.QuoteMode,
		NullValue:        pick(f.NullValue, over.NullValue),
		TrueValue:        pick(f.TrueValue, over.TrueValue),
		FalseValue:       pick(f.FalseValue, over.FalseValue),
		Escapes:          f.Escapes,
	}
	if over.QuoteMode != nil {
		out.QuoteMode = over.QuoteMode
	}
	if over.Escapes != nil {
		out.Escapes = over.Escapes
	}
	return out
}

func (f Format) clone() Format {
	if f.Escapes != nil {
		f.Escapes = append([]Escape{}, f.Escapes...)
	}
	return f
}

// Dialect is a fully resolved, immutable set of dialect choices.
type Dialect struct {
	Newline          string
	Delimiter        string
	Quote            string
	EscapedNewline   string
	EscapedDelimiter string
	EscapedQuote     string
	QuoteMode        QuoteMode
	NullValue        string
	TrueValue        string
	FalseValue       string
	Escapes          []Escape
}

// Resolve fills every unset field. An empty delimiter becomes "," and an
// empty newline "\n"; an unset quote mode is "quote".
func (f Format) Resolve() Dialect {
	get := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	d := Dialect{
		Newline:          get(f.Newline),
		Delimiter:        get(f.Delimiter),
		Quote:            get(f.Quote),
		EscapedNewline:   get(f.EscapedNewline),
		EscapedDelimiter: get(f.EscapedDelimiter),
		EscapedQuote:     get(f.EscapedQuote),
		QuoteMode:        QuoteModeQuote,
		NullValue:        get(f.NullValue),
		TrueValue:        get(f.TrueValue),
		FalseValue:       get(f.FalseValue),
		Escapes:          append([]Escape(nil), f.Escapes...),
	}
	if f.QuoteMode != nil {
		d.QuoteMode = *f.QuoteMode
	}
	if d.Delimiter == "" {
		d.Delimiter = ","
	}
	if d.Newline == "" {
		d.Newline = "\n"
	}
	return d
}

// Format returns d as a Format with every field set, so that merging it
// over any preset reproduces d.
func (d Dialect) Format() Format {
	return Format{
		Newline:          String(d.Newline),
		Delimiter:        String(d.Delimiter),
		Quote:            String(d.Quote),
		EscapedNewline:   String(d.EscapedNewline),
		EscapedDelimiter: String(d.EscapedDelimiter),
		EscapedQuote:     String(d.EscapedQuote),
		QuoteMode:        Mode(d.QuoteMode),
		NullValue:        String(d.NullValue),
		TrueValue:        String(d.TrueValue),
		FalseValue:       String(d.FalseValue),
		Escapes:          append([]Escape{}, d.Escapes...),
	}
}

// UsesQuotes reports whether the reader has a quoted field state.
func (d Dialect) UsesQuotes() bool {
	return d.Quote != "" && d.QuoteMode != QuoteModeEscape
}

// EscapeTable returns the effective literal/escaped pairs: the configured
// escapes followed by newline and delimiter entries for EscapedNewline and
// EscapedDelimiter, unless a pair for that literal already exists. Outside
// the escape modes the table is empty.
func (d Dialect) EscapeTable() []Escape {
	if !d.QuoteMode.Escapes() {
		return nil
	}
	table := append([]Escape(nil), d.Escapes...)
	has := func(literal string) bool {
		for _, e := range table {
			if e.Literal == literal {
				return true
			}
		}
		return false
	}
	if d.EscapedNewline != "" && !has(d.Newline) {
		table = append(table, Escape{Literal: d.Newline, Escaped: d.EscapedNewline})
	}
	if d.EscapedDelimiter != "" && !has(d.Delimiter) {
		table = append(table, Escape{Literal: d.Delimiter, Escaped: d.EscapedDelimiter})
	}
	return table
}

// escaper returns a single-pass replacer applying the escape table, or nil.
func (d Dialect) escaper() *strings.Replacer {
	table := d.EscapeTable()
	if len(table) == 0 {
		return nil
	}
	pairs := make([]string, 0, 2*len(table))
	for _, e := range table {
		pairs = append(pairs, e.Literal, e.Escaped)
	}
	return strings.NewReplacer(pairs...)
}

// engineConfig translates the dialect into the parser configuration.
func (d Dialect) engineConfig() engine.Config {
	var escapes []engine.Escape
	for _, e := range d.EscapeTable() {
		escapes = append(escapes, engine.Escape{Literal: e.Literal, Escaped: e.Escaped})
	}
	return engine.Config{
		Delimiter:      d.Delimiter,
		Newline:        d.Newline,
		Quote:          d.Quote,
		EscapedQuote:   d.EscapedQuote,
		UseQuotes:      d.UsesQuotes(),
		Escapes:        escapes,
		EscapeInQuotes: d.QuoteMode == QuoteModeEscapeAndQuote,
		Null:           d.NullValue,
		True:           d.TrueValue,
		False:          d.FalseValue,
	}
}

// Built-in preset names.
const (
	FormatCSV    = "csv"
	FormatCSVRFC = "csv_rfc"
	FormatTSV    = "tsv"
	// FormatAuto sniffs the delimiter and line ending from the input.
	FormatAuto = "auto"
)

func presets() map[string]Format {
	csv := Format{
		Newline:          String("\n"),
		Delimiter:        String(","),
		Quote:            String(`"`),
		EscapedNewline:   String(`\n`),
		EscapedDelimiter: String(`\t`),
		EscapedQuote:     String(`""`),
		QuoteMode:        Mode(QuoteModeQuote),
		NullValue:        String(""),
		TrueValue:        String("Y"),
		FalseValue:       String("N"),
		Escapes:          []Escape{},
	}
	rfc := csv.clone()
	rfc.Newline = String("\r\n")
	rfc.QuoteMode = Mode(QuoteModeStrict)

	tsv := Format{
		Newline:          String("\n"),
		Delimiter:        String("\t"),
		Quote:            String(""),
		EscapedNewline:   String(`\n`),
		EscapedDelimiter: String(`\t`),
		EscapedQuote:     String(""),
		QuoteMode:        Mode(QuoteModeEscape),
		NullValue:        String(`\N`),
		TrueValue:        String("Y"),
		FalseValue:       String("N"),
		Escapes: []Escape{
			{Literal: `\`, Escaped: `\\`},
			{Literal: "\n", Escaped: `\n`},
			{Literal: "\r", Escaped: `\r`},
			{Literal: "\b", Escaped: `\b`},
			{Literal: "\t", Escaped: `\t`},
			{Literal: "\x00", Escaped: `\0`},
		},
	}
	return map[string]Format{
		FormatCSV:    csv,
		FormatCSVRFC: rfc,
		FormatTSV:    tsv,
	}
}
