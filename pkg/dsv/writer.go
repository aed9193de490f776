package dsv

import (
	"bytes"
	"encoding"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/shapestone/shape-dsv/internal/source"
)

// Writer is a streaming write session to a string, file, or stream.
// A Writer is not safe for concurrent use.
//
// Example:
//
//	w, _ := dsv.CreateStringWriter(dsv.DefaultOptions())
//	w.WriteBatch([]map[string]any{{"a": 1, "b": 2}})
//	out, _ := w.Content()
//	// out: "a,b\n1,2\n"
type Writer struct {
	dialect     Dialect
	escaper     *strings.Replacer
	sink        *source.Sink
	columns     []string
	header      *bool
	associative *bool
	recordIndex int
	started     bool
	closed      bool
	buf         bytes.Buffer
}

// CreateWriter opens a write session on the file at path, truncating it
// unless opts.Append is set. Appending to a non-empty file never writes a
// header and keeps the file's existing compression.
func CreateWriter(path string, opts Options) (*Writer, error) {
	w, err := newWriter(opts)
	if err != nil {
		return nil, err
	}
	typ := source.TypeFile
	switch {
	case opts.Gzip:
		typ = source.TypeGzip
	case opts.Zstd:
		typ = source.TypeZstd
	}
	sink, err := source.Create(path, source.CreateOptions{Append: opts.Append, Compression: typ})
	if err != nil {
		return nil, &IOError{Op: "create", Path: path, Offset: -1, Err: err}
	}
	w.sink = sink
	if sink.Appended() {
		w.header = Bool(false)
	}
	return w, nil
}

// CreateStringWriter opens a write session collecting output in memory;
// see Content.
func CreateStringWriter(opts Options) (*Writer, error) {
	w, err := newWriter(opts)
	if err != nil {
		return nil, err
	}
	w.sink = source.NewMemorySink()
	return w, nil
}

// NewWriter opens a write session on wr, compressing when opts.Gzip or
// opts.Zstd is set. Closing the Writer flushes but does not close wr.
func NewWriter(wr io.Writer, opts Options) (*Writer, error) {
	w, err := newWriter(opts)
	if err != nil {
		return nil, err
	}
	typ := source.TypeFile
	switch {
	case opts.Gzip:
		typ = source.TypeGzip
	case opts.Zstd:
		typ = source.TypeZstd
	}
	sink, err := source.NewSink(wr, typ)
	if err != nil {
		return nil, &IOError{Op: "create", Offset: -1, Err: err}
	}
	w.sink = sink
	return w, nil
}

func newWriter(opts Options) (*Writer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.formatName() == FormatAuto {
		return nil, &OptionsError{Field: "Format", Message: "auto applies to readers only"}
	}
	d, err := opts.dialect(FormatCSV)
	if err != nil {
		return nil, err
	}
	w := &Writer{
		dialect:     d,
		escaper:     d.escaper(),
		header:      opts.Header,
		associative: opts.Associative,
	}
	if len(opts.ColumnNames) > 0 {
		w.columns = append([]string(nil), opts.ColumnNames...)
	}
	return w, nil
}

// WriteBatch writes rows, which must be a slice or array of rows. A row is
// a Record, []any, []string, map[string]any, map[string]string, an ordered
// map, a struct (columns from `dsv` tags), or any slice or string-keyed map.
//
// The first non-empty batch settles the column names, associativity, and
// header as described on Options, and writes the header if one is due.
func (w *Writer) WriteBatch(rows any) error {
	if w.closed {
		return ErrClosed
	}
	w.buf.Reset()
	err := eachRow(rows, func(r row) error {
		if !w.started {
			w.start(r)
		}
		return w.appendRecord(r)
	})
	// Rows before a failing one are still written.
	if w.buf.Len() > 0 {
		if _, werr := w.sink.Write(w.buf.Bytes()); werr != nil {
			return &IOError{Op: "write", Path: w.sink.Path(), Offset: -1, Err: werr}
		}
	}
	return err
}

// WriteRecord writes a single row.
func (w *Writer) WriteRecord(r any) error {
	return w.WriteBatch([]any{r})
}

// start settles the session layout from the first row and emits the header.
func (w *Writer) start(first row) {
	w.started = true
	if w.columns == nil {
		w.columns = first.columns()
	}
	if w.associative == nil {
		w.associative = Bool(first.associative())
	}
	if w.header == nil {
		w.header = Bool(*w.associative)
	}
	if *w.header {
		for i, col := range w.columns {
			if i > 0 {
				w.buf.WriteString(w.dialect.Delimiter)
			}
			w.appendText(col)
		}
		w.buf.WriteString(w.dialect.Newline)
	}
}

// appendRecord writes one record. On failure the partial record is dropped
// from the buffer.
func (w *Writer) appendRecord(r row) error {
	mark := w.buf.Len()
	for i, col := range w.columns {
		if i > 0 {
			w.buf.WriteString(w.dialect.Delimiter)
		}
		if err := w.appendValue(r.value(i, col, *w.associative)); err != nil {
			w.buf.Truncate(mark)
			return fmt.Errorf("dsv: record %d, column %q: %w", w.recordIndex, col, err)
		}
	}
	w.buf.WriteString(w.dialect.Newline)
	w.recordIndex++
	return nil
}

// appendValue writes v in its dialect representation. Only text goes
// through escaping and quoting.
func (w *Writer) appendValue(v any) error {
	switch x := v.(type) {
	case nil:
		w.buf.WriteString(w.dialect.NullValue)
	case bool:
		if x {
			w.buf.WriteString(w.dialect.TrueValue)
		} else {
			w.buf.WriteString(w.dialect.FalseValue)
		}
	case string:
		w.appendText(x)
	case []byte:
		w.appendText(string(x))
	case int:
		w.buf.WriteString(strconv.Itoa(x))
	case int64:
		w.buf.WriteString(strconv.FormatInt(x, 10))
	case float64:
		w.buf.WriteString(strconv.FormatFloat(x, 'f', -1, 64))
	case encoding.TextMarshaler:
		text, err := x.MarshalText()
		if err != nil {
			return err
		}
		w.appendText(string(text))
	case fmt.Stringer:
		w.appendText(x.String())
	default:
		return w.appendReflect(reflect.ValueOf(v))
	}
	return nil
}

func (w *Writer) appendReflect(rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			w.buf.WriteString(w.dialect.NullValue)
			return nil
		}
		return w.appendValue(rv.Elem().Interface())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		w.buf.WriteString(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		w.buf.WriteString(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32:
		w.buf.WriteString(strconv.FormatFloat(rv.Float(), 'f', -1, 32))
	case reflect.Float64:
		w.buf.WriteString(strconv.FormatFloat(rv.Float(), 'f', -1, 64))
	case reflect.String:
		w.appendText(rv.String())
	case reflect.Bool:
		return w.appendValue(rv.Bool())
	default:
		w.buf.WriteString(w.dialect.NullValue)
	}
	return nil
}

// appendText escapes s when the dialect escapes, then quotes it if needed,
// doubling (escaping) any quote inside.
func (w *Writer) appendText(s string) {
	if w.escaper != nil {
		s = w.escaper.Replace(s)
	}
	if !w.needsQuotes(s) {
		w.buf.WriteString(s)
		return
	}
	d := w.dialect
	w.buf.WriteString(d.Quote)
	w.buf.WriteString(strings.ReplaceAll(s, d.Quote, d.EscapedQuote))
	w.buf.WriteString(d.Quote)
}

func (w *Writer) needsQuotes(s string) bool {
	d := w.dialect
	if d.Quote == "" {
		return false
	}
	structural := func() bool {
		return strings.Contains(s, d.Newline) ||
			strings.Contains(s, d.Delimiter) ||
			(d.Newline == "\n" && strings.Contains(s, "\r"))
	}
	switch d.QuoteMode {
	case QuoteModeEscape:
		return false
	case QuoteModeAll, QuoteModeEscapeAndQuote:
		return true
	case QuoteModeStrict:
		if structural() || strings.Contains(s, d.Quote) {
			return true
		}
	default:
		if structural() || strings.HasPrefix(s, d.Quote) || strings.HasSuffix(s, d.Quote) {
			return true
		}
	}
	// Text spelled like a sentinel would read back as null or boolean.
	return s == d.NullValue || (s != "" && (s == d.TrueValue || s == d.FalseValue))
}

// Content returns everything written so far by a string writer.
func (w *Writer) Content() (string, error) {
	content, ok := w.sink.Content()
	if !ok {
		return "", ErrNotStringWriter
	}
	return content, nil
}

// ColumnNames returns the column labels, settled by the first batch.
func (w *Writer) ColumnNames() []string {
	return append([]string(nil), w.columns...)
}

// RecordIndex returns the number of data records written.
func (w *Writer) RecordIndex() int {
	return w.recordIndex
}

// Path returns the resolved file path, or "".
func (w *Writer) Path() string {
	return w.sink.Path()
}

// SourceType returns the kind of target being written.
func (w *Writer) SourceType() SourceType {
	return w.sink.Type()
}

// Dialect returns the resolved dialect.
func (w *Writer) Dialect() Dialect {
	return w.dialect
}

// Close flushes any compressor and releases the target. Calling Close more
// than once is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.sink.Close(); err != nil {
		return &IOError{Op: "close", Path: w.sink.Path(), Offset: -1, Err: err}
	}
	return nil
}
