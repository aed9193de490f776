package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const (
	// DefaultChunkSize is the number of bytes requested from the source per refill.
	DefaultChunkSize = 131072
	// DefaultMaxFieldLength is the default limit on one field's length in bytes.
	DefaultMaxFieldLength = 131072
)

// maxEmptyReads is how many consecutive (0, nil) reads are tolerated before
// the source is reported as stuck.
const maxEmptyReads = 100

// ErrFieldTooLong is returned when a field grows past Config.MaxFieldLength
// before a terminator is found.
var ErrFieldTooLong = errors.New("field exceeds maximum length")

// Mode selects what a Read call materializes.
type Mode uint8

const (
	// ModeNormal returns parsed rows.
	ModeNormal Mode = iota
	// ModeSkip advances past records and only counts them.
	ModeSkip
	// ModeRaw returns the original bytes spanning the consumed records.
	ModeRaw
)

// String returns the string representation of Mode.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeSkip:
		return "skip"
	case ModeRaw:
		return "raw"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

// Error carries the input position at which reading failed.
type Error struct {
	Op     string
	Offset int64
	Record int
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at offset %d (record %d): %v", e.Op, e.Offset, e.Record, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Config is the fully resolved dialect and session setup of one parser.
type Config struct {
	Delimiter    string
	Newline      string
	Quote        string
	EscapedQuote string
	// UseQuotes enables the quoted field state.
	UseQuotes bool
	// Escapes are the literal/escaped pairs undone while scanning.
	Escapes []Escape
	// EscapeInQuotes also undoes Escapes inside quoted fields.
	EscapeInQuotes bool

	Null  string
	True  string
	False string

	Header      bool
	Associative bool
	ColumnNames []string

	ChunkSize int
	// MaxFieldLength limits a field's length in bytes; 0 or less disables it.
	MaxFieldLength int
}

// Batch is the result of one Read call.
type Batch struct {
	Rows  [][]any
	Raw   []byte
	Count int
}

// Parser is a resumable reader over one byte source. It is not safe for
// concurrent use.
type Parser struct {
	r     io.Reader
	table *Table
	cfg   Config
	chunk int

	buf     []byte
	pos     int
	base    int64 // input offset of buf[0]
	srcDone bool
	empty   int

	state       state
	mode        Mode
	accumulate  bool
	quotedField bool
	reopened    bool // the last token opened a quote for the next record

	field    []byte
	fieldLen int
	replaced bool
	record   []any
	nfields  int

	columns     []string
	recordIndex int

	batch    *Batch
	rawStart int
	err      error
}

// NewParser returns a parser reading from r with the rules compiled in t.
func NewParser(r io.Reader, t *Table, cfg Config) *Parser {
	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	p := &Parser{
		r:     r,
		table: t,
		cfg:   cfg,
		chunk: chunk,
		buf:   getBuffer(chunk + t.maxTokenLen),
		state: stateStart,
	}
	if len(cfg.ColumnNames) > 0 {
		p.columns = append([]string(nil), cfg.ColumnNames...)
	}
	if cfg.Header {
		p.recordIndex = -1
	}
	return p
}

// Columns returns the known column labels. The slice only grows.
func (p *Parser) Columns() []string {
	return p.columns
}

// RecordIndex returns -1 while the header is pending, else the number of
// data records consumed.
func (p *Parser) RecordIndex() int {
	return p.recordIndex
}

// Complete reports whether all input has been consumed.
func (p *Parser) Complete() bool {
	return p.state == stateDone
}

// Offset returns the input offset of the next unconsumed byte.
func (p *Parser) Offset() int64 {
	return p.base + int64(p.pos)
}

// Close releases the read buffer. The parser reports Complete afterwards.
func (p *Parser) Close() {
	putBuffer(p.buf)
	p.buf = nil
	p.pos = 0
	p.state = stateDone
}

// Read consumes up to n data records (all remaining input when n <= 0).
// The header record, when expected, is always parsed in full and never
// counted or included in raw output. Batches end on record boundaries.
func (p *Parser) Read(n int, mode Mode) (Batch, error) {
	var b Batch
	if p.err != nil {
		return b, p.err
	}
	p.batch = &b
	p.mode = mode
	p.accumulate = mode == ModeNormal || p.recordIndex < 0
	p.rawStart = p.pos
	defer func() { p.batch = nil }()

	for p.state != stateDone && (n <= 0 || b.Count < n) {
		if err := p.step(); err != nil {
			p.err = err
			return b, err
		}
	}

	// A batch that stopped right after "newline + quote" hands the opening
	// quote back so the next call starts on a clean record boundary.
	if p.reopened && p.state == stateQuoted {
		p.pos -= len(p.table.quote)
		p.state = stateStart
		p.quotedField = false
		p.reopened = false
	}
	if mode == ModeRaw && p.recordIndex >= 0 && p.buf != nil {
		b.Raw = append(b.Raw, p.buf[p.rawStart:p.pos]...)
	}
	if p.srcDone && p.pos >= len(p.buf) && p.nfields == 0 && p.fieldLen == 0 &&
		(p.state == stateUnquoted || p.state == stateStart) {
		p.state = stateDone
	}
	return b, nil
}

func (p *Parser) step() error {
	switch p.state {
	case stateStart:
		if err := p.fill(len(p.table.quote)); err != nil {
			return err
		}
		if p.table.UsesQuotes() && bytes.HasPrefix(p.buf[p.pos:], p.table.quote) {
			p.pos += len(p.table.quote)
			p.state = stateQuoted
			p.quotedField = true
		} else {
			p.state = stateUnquoted
			p.quotedField = false
		}
		return nil
	case stateUnquoted, stateQuoted:
		return p.scan()
	case stateEOF:
		if p.fieldLen == 0 && p.nfields == 0 {
			// trailing blank line
			p.state = stateDone
			return nil
		}
		if err := p.endField(); err != nil {
			return err
		}
		p.endRecord(0)
		p.state = stateDone
		return nil
	case stateEOFInQuote:
		// Unterminated quote at end of input: drop a trailing closing quote
		// the missing newline kept from being recognized.
		if p.accumulate && bytes.HasSuffix(p.field, p.table.quote) {
			p.field = p.field[:len(p.field)-len(p.table.quote)]
		}
		if err := p.endField(); err != nil {
			return err
		}
		p.endRecord(0)
		p.state = stateDone
		return nil
	}
	return nil
}

// scan runs the active field state until a field boundary or end of input.
func (p *Parser) scan() error {
	st := p.table.state(p.state)
	maxTok := p.table.maxTokenLen
	for {
		if !p.srcDone && len(p.buf)-p.pos < maxTok {
			if err := p.refill(); err != nil {
				return err
			}
			continue
		}
		if p.pos >= len(p.buf) {
			if p.state == stateQuoted {
				p.state = stateEOFInQuote
			} else {
				p.state = stateEOF
			}
			return nil
		}

		// Triggers closer than maxTok to the end are only tested once the
		// source is exhausted, so no token is split across a refill.
		limit := len(p.buf)
		if !p.srcDone {
			limit -= maxTok - 1
		}
		i := st.leads.index(p.buf[p.pos:limit])
		if i < 0 {
			if err := p.appendField(p.buf[p.pos:limit]); err != nil {
				return err
			}
			p.pos = limit
			continue
		}
		at := p.pos + i
		if i > 0 {
			if err := p.appendField(p.buf[p.pos:at]); err != nil {
				return err
			}
			p.pos = at
		}

		tok := p.match(st, at)
		if tok == nil {
			if err := p.appendField(p.buf[at : at+1]); err != nil {
				return err
			}
			p.pos++
			continue
		}
		p.pos += len(tok.Text)
		p.reopened = false

		switch tok.Action {
		case ActionReplace:
			p.replaced = true
			if err := p.appendField(tok.Replacement); err != nil {
				return err
			}
			continue
		case ActionDelimiter:
			if err := p.endField(); err != nil {
				return err
			}
			p.state, p.quotedField = stateUnquoted, false
		case ActionDelimiterQuote:
			if err := p.endField(); err != nil {
				return err
			}
			p.state, p.quotedField = stateQuoted, true
		case ActionNewline:
			if err := p.endField(); err != nil {
				return err
			}
			p.endRecord(0)
			p.state, p.quotedField = stateUnquoted, false
		case ActionNewlineQuote:
			if err := p.endField(); err != nil {
				return err
			}
			p.endRecord(len(p.table.quote))
			p.state, p.quotedField = stateQuoted, true
			p.reopened = true
		}
		return nil
	}
}

func (p *Parser) match(st *stateTable, at int) *Token {
	rest := p.buf[at:]
	cands := st.tokens[p.buf[at]]
	for i := range cands {
		if bytes.HasPrefix(rest, cands[i].Text) {
			return &cands[i]
		}
	}
	return nil
}

// fill refills until n bytes are buffered past pos or the source is done.
func (p *Parser) fill(n int) error {
	for !p.srcDone && len(p.buf)-p.pos < n {
		if err := p.refill(); err != nil {
			return err
		}
	}
	return nil
}

// refill drops the consumed prefix and appends up to one chunk from the
// source. The retained bytes are always a suffix of the remaining input.
func (p *Parser) refill() error {
	if p.mode == ModeRaw && p.recordIndex >= 0 && p.batch != nil {
		p.batch.Raw = append(p.batch.Raw, p.buf[p.rawStart:p.pos]...)
	}
	n := copy(p.buf, p.buf[p.pos:])
	p.base += int64(p.pos)
	p.buf = p.buf[:n]
	p.pos = 0
	p.rawStart = 0

	if cap(p.buf)-n < p.chunk {
		grown := make([]byte, n, n+p.chunk+p.table.maxTokenLen)
		copy(grown, p.buf)
		putBuffer(p.buf)
		p.buf = grown
	}
	m, err := p.r.Read(p.buf[n : n+p.chunk])
	p.buf = p.buf[:n+m]
	switch {
	case err == io.EOF:
		p.srcDone = true
	case err != nil:
		return &Error{Op: "read", Offset: p.base + int64(len(p.buf)), Record: p.recordIndex, Err: err}
	case m == 0:
		p.empty++
		if p.empty >= maxEmptyReads {
			return &Error{Op: "read", Offset: p.base + int64(len(p.buf)), Record: p.recordIndex, Err: io.ErrNoProgress}
		}
	default:
		p.empty = 0
	}
	return nil
}

func (p *Parser) appendField(data []byte) error {
	p.fieldLen += len(data)
	if p.cfg.MaxFieldLength > 0 && p.fieldLen > p.cfg.MaxFieldLength {
		return &Error{Op: "read", Offset: p.Offset(), Record: p.recordIndex, Err: ErrFieldTooLong}
	}
	if p.accumulate {
		p.field = append(p.field, data...)
	}
	return nil
}

func (p *Parser) endField() error {
	p.nfields++
	if p.accumulate {
		p.record = append(p.record, p.value())
	}
	p.field = p.field[:0]
	p.fieldLen = 0
	p.replaced = false
	return nil
}

// value converts the accumulated field. Sentinels apply only to unquoted
// fields in which no escape sequence was undone; header fields stay text.
// An empty boolean sentinel is disabled.
func (p *Parser) value() any {
	if p.recordIndex < 0 || p.quotedField || p.replaced {
		return string(p.field)
	}
	s := unsafeString(p.field)
	switch {
	case s == p.cfg.Null:
		return nil
	case s == p.cfg.True && s != "":
		return true
	case s == p.cfg.False && s != "":
		return false
	}
	return string(p.field)
}

// endRecord closes the record in progress. reopen is the length of a quote
// already consumed on behalf of the next record.
func (p *Parser) endRecord(reopen int) {
	if p.recordIndex < 0 {
		p.captureHeader()
		p.recordIndex = 0
		p.accumulate = p.mode == ModeNormal
		p.rawStart = p.pos - reopen
	} else {
		for len(p.columns) < p.nfields {
			p.columns = append(p.columns, p.label(len(p.columns)))
		}
		if p.accumulate {
			row := p.record
			for len(row) < len(p.columns) {
				row = append(row, nil)
			}
			p.batch.Rows = append(p.batch.Rows, row)
		}
		p.recordIndex++
		p.batch.Count++
	}
	p.record = nil
	if p.accumulate {
		p.record = make([]any, 0, len(p.columns))
	}
	p.nfields = 0
}

func (p *Parser) captureHeader() {
	header := make([]string, len(p.record))
	for i, v := range p.record {
		header[i], _ = v.(string)
	}
	if len(p.cfg.ColumnNames) == 0 {
		p.columns = header
		return
	}
	for len(p.columns) < len(header) {
		p.columns = append(p.columns, p.label(len(p.columns)))
	}
}

// label synthesizes the name of column i for rows wider than the header.
func (p *Parser) label(i int) string {
	if p.cfg.Associative {
		return "col_" + strconv.Itoa(i+1)
	}
	return strconv.Itoa(i)
}
