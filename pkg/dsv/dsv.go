// Package dsv reads and writes delimiter-separated text: CSV, TSV, and any
// dialect described by a Format.
//
// A dialect fixes the delimiter, newline, quote and escaped quote, an
// escape table for backslash-style dialects, a quoting policy, and the
// sentinel texts standing for null, true, and false. Three presets are
// built in and more can be registered or loaded from YAML:
//
//   - csv: comma, LF (CRLF also accepted when reading), double quotes
//     escaped by doubling, empty text as null, Y/N as booleans
//   - csv_rfc: as csv with CRLF newlines and strict quoting
//   - tsv: tab, LF, no quotes, backslash escapes, \N as null
//
// # Reading
//
// Readers stream: input is pulled from the source one chunk at a time and
// parsed by a table-driven scanner, so memory stays bounded by the batch
// size. Files and streams starting with a gzip or zstd signature are
// decompressed transparently.
//
//	r, err := dsv.CreateReader("people.csv.gz", dsv.DefaultOptions())
//	if err != nil {
//	    // handle error
//	}
//	defer r.Close()
//	for {
//	    rec, err := r.ReadRecord()
//	    if err == io.EOF {
//	        break
//	    }
//	    name, _ := rec.Text("name")
//	    fmt.Println(name)
//	}
//
// Batch reads come in three modes: ReadNormal returns records, ReadSkip
// only counts them, and ReadRaw returns their verbatim bytes.
//
// Malformed input is tolerated rather than rejected: rows wider than the
// header get synthesized column labels, narrower rows are padded with nil,
// and an unterminated quote at end of input is closed.
//
// # Writing
//
//	out, err := dsv.Generate([][]any{{"a,b", "c"}}, dsv.Options{Header: dsv.Bool(false)})
//	// out: "\"a,b\",c\n"
//
// # Thread Safety
//
// Readers and Writers are not safe for concurrent use. Separate sessions
// share no mutable state and may run on separate goroutines; the format
// registry is safe for concurrent use.
package dsv

// Read reads the records of the file at path selected by StartRecord,
// MaxRecords, and SkipRecords (all records by default).
func Read(path string, opts Options) ([]Record, error) {
	r, err := CreateReader(path, opts)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return readSelected(r, opts)
}

// Parse reads the records of content, honoring the same selection options
// as Read.
//
// Example:
//
//	records, _ := dsv.Parse("a,b\n1,2,3\n4,5\n", dsv.DefaultOptions())
//	// records[0]: a=1 b=2 col_3=3
//	// records[1]: a=4 b=5 col_3=nil
func Parse(content string, opts Options) ([]Record, error) {
	r, err := CreateStringReader(content, opts)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return readSelected(r, opts)
}

// Write writes rows to the file at path, replacing its content.
func Write(path string, rows any, opts Options) error {
	opts.Append = false
	return writeFile(path, rows, opts)
}

// Append adds rows to the file at path. A header is only written when the
// file is new or empty.
func Append(path string, rows any, opts Options) error {
	opts.Append = true
	return writeFile(path, rows, opts)
}

func writeFile(path string, rows any, opts Options) error {
	w, err := CreateWriter(path, opts)
	if err != nil {
		return err
	}
	if err := w.WriteBatch(rows); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// Generate renders rows as a string.
func Generate(rows any, opts Options) (string, error) {
	w, err := CreateStringWriter(opts)
	if err != nil {
		return "", err
	}
	defer w.Close()
	if err := w.WriteBatch(rows); err != nil {
		return "", err
	}
	return w.Content()
}
