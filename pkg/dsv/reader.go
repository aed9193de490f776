package dsv

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/shapestone/shape-dsv/internal/engine"
	"github.com/shapestone/shape-dsv/internal/source"
)

// ReadMode selects what a batch read materializes.
type ReadMode = engine.Mode

const (
	// ReadNormal returns parsed records.
	ReadNormal = engine.ModeNormal
	// ReadSkip advances past records, returning only their count.
	ReadSkip = engine.ModeSkip
	// ReadRaw returns the verbatim bytes of the consumed records.
	ReadRaw = engine.ModeRaw
)

// SourceType identifies the byte source or sink of a session.
type SourceType = source.Type

const (
	SourceString = source.TypeString
	SourceFile   = source.TypeFile
	SourceGzip   = source.TypeGzip
	SourceZstd   = source.TypeZstd
)

// Batch is the result of one batch read.
type Batch struct {
	// Records holds the parsed records in ReadNormal mode.
	Records []Record
	// Raw holds the original bytes of the records in ReadRaw mode. The
	// header is never included.
	Raw []byte
	// Count is the number of data records consumed.
	Count int
	// Complete reports whether the input is exhausted.
	Complete bool
}

// Reader is a streaming read session over a string, file, or stream.
// A Reader is not safe for concurrent use.
//
// Example:
//
//	r, err := dsv.CreateReader("people.csv", dsv.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	for !r.IsComplete() {
//	    records, err := r.ReadBatch(1000)
//	    if err != nil {
//	        return err
//	    }
//	    // process records
//	}
type Reader struct {
	dialect     Dialect
	associative bool
	src         *source.Source
	parser      *engine.Parser
	closed      bool
}

// CreateReader opens a read session on the file at path. Gzip and zstd
// files are detected by their leading bytes.
func CreateReader(path string, opts Options) (*Reader, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	src, err := source.Open(path, source.OpenOptions{Mmap: opts.Mmap})
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Offset: -1, Err: err}
	}
	r, err := newReader(src, opts)
	if err != nil {
		src.Close()
		return nil, err
	}
	return r, nil
}

// CreateStringReader opens a read session on content.
func CreateStringReader(content string, opts Options) (*Reader, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return newReader(source.FromString(content), opts)
}

// NewReader opens a read session on an arbitrary stream. Compressed
// streams are detected by their leading bytes. Closing the Reader does not
// close rd.
func NewReader(rd io.Reader, opts Options) (*Reader, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	src, err := source.FromReader(rd)
	if err != nil {
		return nil, &IOError{Op: "open", Offset: -1, Err: err}
	}
	r, err := newReader(src, opts)
	if err != nil {
		src.Close()
		return nil, err
	}
	return r, nil
}

func newReader(src *source.Source, opts Options) (*Reader, error) {
	var in io.Reader = src
	header := opts.Header
	fallback := FormatCSV

	if opts.formatName() == FormatAuto {
		br := bufio.NewReaderSize(src, sniffSampleSize)
		sample, err := br.Peek(sniffSampleSize)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
			return nil, &IOError{Op: "read", Path: src.Path(), Offset: 0, Err: err}
		}
		text := string(sample)
		if len(sample) == sniffSampleSize {
			// drop the partial last line
			if i := strings.LastIndexByte(text, '\n'); i >= 0 {
				text = text[:i+1]
			}
		}
		sniffed := Sniff(text)
		fallback = sniffed.Format
		if sniffed.Format != FormatTSV && opts.Dialect.Delimiter == nil {
			opts.Dialect.Delimiter = String(sniffed.Delimiter)
		}
		if header == nil {
			header = Bool(sniffed.Header)
		}
		in = br
	}

	d, err := opts.dialect(fallback)
	if err != nil {
		return nil, err
	}
	cfg := d.engineConfig()
	cfg.Header = header == nil || *header
	cfg.Associative = opts.Associative == nil || *opts.Associative
	cfg.ColumnNames = opts.ColumnNames
	cfg.ChunkSize = opts.chunkSize()
	cfg.MaxFieldLength = opts.maxFieldLength()

	return &Reader{
		dialect:     d,
		associative: cfg.Associative,
		src:         src,
		parser:      engine.NewParser(in, engine.NewTable(cfg), cfg),
	}, nil
}

// Batch reads up to n data records in the given mode; n <= 0 drains the
// remaining input. A field longer than MaxFieldLength fails with a
// *ParseError and closes the session.
func (r *Reader) Batch(n int, mode ReadMode) (Batch, error) {
	if r.closed {
		return Batch{Complete: true}, ErrClosed
	}
	eb, err := r.parser.Read(n, mode)
	if err != nil {
		var perr *engine.Error
		if errors.As(err, &perr) && errors.Is(err, engine.ErrFieldTooLong) {
			r.Close()
			return Batch{}, &ParseError{Record: perr.Record, Offset: perr.Offset, Err: ErrFieldTooLong}
		}
		ioErr := &IOError{Op: "read", Path: r.src.Path(), Offset: r.parser.Offset(), Err: err}
		if perr != nil {
			ioErr.Offset = perr.Offset
			ioErr.Err = perr.Err
		}
		return Batch{}, ioErr
	}

	b := Batch{Raw: eb.Raw, Count: eb.Count, Complete: r.parser.Complete()}
	if len(eb.Rows) > 0 {
		// Records share one copy of the labels per batch, detached from
		// the parser's column set.
		var cols []string
		if r.associative {
			cols = append([]string(nil), r.parser.Columns()...)
		}
		b.Records = make([]Record, len(eb.Rows))
		for i, row := range eb.Rows {
			rec := Record{Values: row}
			if r.associative {
				rec.Keys = cols[:len(row):len(row)]
			}
			b.Records[i] = rec
		}
	}
	return b, nil
}

// ReadBatch reads up to n records; n <= 0 reads all remaining records.
func (r *Reader) ReadBatch(n int) ([]Record, error) {
	b, err := r.Batch(n, ReadNormal)
	return b.Records, err
}

// SkipBatch advances past up to n records and returns how many were skipped.
func (r *Reader) SkipBatch(n int) (int, error) {
	b, err := r.Batch(n, ReadSkip)
	return b.Count, err
}

// ReadRaw returns the verbatim bytes of up to n records.
func (r *Reader) ReadRaw(n int) ([]byte, error) {
	b, err := r.Batch(n, ReadRaw)
	return b.Raw, err
}

// ReadRecord reads one record. It returns io.EOF when the input is exhausted.
func (r *Reader) ReadRecord() (Record, error) {
	b, err := r.Batch(1, ReadNormal)
	if err != nil {
		return Record{}, err
	}
	if b.Count == 0 {
		return Record{}, io.EOF
	}
	return b.Records[0], nil
}

// IsComplete reports whether all input has been read.
func (r *Reader) IsComplete() bool {
	return r.closed || r.parser.Complete()
}

// ColumnNames returns the known column labels: supplied, read from the
// header, or synthesized for wider rows.
func (r *Reader) ColumnNames() []string {
	return append([]string(nil), r.parser.Columns()...)
}

// RecordIndex returns -1 while the header is pending, else the number of
// data records consumed.
func (r *Reader) RecordIndex() int {
	return r.parser.RecordIndex()
}

// Path returns the resolved file path, or "" for string and stream sessions.
func (r *Reader) Path() string {
	return r.src.Path()
}

// SourceType returns the kind of source being read.
func (r *Reader) SourceType() SourceType {
	return r.src.Type()
}

// Dialect returns the resolved dialect.
func (r *Reader) Dialect() Dialect {
	return r.dialect
}

// Close releases the source. Calling Close more than once is a no-op.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.parser.Close()
	if err := r.src.Close(); err != nil {
		return &IOError{Op: "close", Path: r.src.Path(), Offset: -1, Err: err}
	}
	return nil
}
