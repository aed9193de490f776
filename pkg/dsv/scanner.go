package dsv

// DefaultScanBatch is the number of records a Scanner reads per batch.
const DefaultScanBatch = 256

// Scanner iterates over the records of a Reader one at a time, reading
// them in batches so memory stays bounded.
//
// Example usage:
//
//	r, _ := dsv.CreateReader("data.csv", dsv.DefaultOptions())
//	defer r.Close()
//
//	scanner := dsv.NewScanner(r)
//	for scanner.Scan() {
//	    record := scanner.Record()
//	    name, _ := record.Text("name")
//	    fmt.Println(name)
//	}
//	if err := scanner.Err(); err != nil {
//	    // handle error
//	}
type Scanner struct {
	reader    *Reader
	batchSize int
	records   []Record
	index     int
	err       error
	done      bool
}

// NewScanner creates a Scanner over r.
func NewScanner(r *Reader) *Scanner {
	return &Scanner{
		reader:    r,
		batchSize: DefaultScanBatch,
		index:     -1,
	}
}

// SetBatchSize sets how many records are read per batch. Values below 1
// are ignored. Returns the Scanner for method chaining.
func (s *Scanner) SetBatchSize(n int) *Scanner {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// Scan advances to the next record. It returns false at end of input or
// on error; Err tells them apart.
func (s *Scanner) Scan() bool {
	s.index++
	for s.index >= len(s.records) {
		if s.done || s.err != nil {
			return false
		}
		b, err := s.reader.Batch(s.batchSize, ReadNormal)
		if err != nil {
			s.err = err
			return false
		}
		s.records = b.Records
		s.index = 0
		s.done = b.Complete
		if len(s.records) == 0 && !s.done {
			// a batch that consumed only the header
			continue
		}
	}
	return true
}

// Record returns the current record. It is only valid after Scan returns true.
func (s *Scanner) Record() Record {
	if s.index < 0 || s.index >= len(s.records) {
		return Record{}
	}
	return s.records[s.index]
}

// Err returns the first error encountered, or nil at a clean end of input.
func (s *Scanner) Err() error {
	return s.err
}

// Headers returns the column labels known so far.
func (s *Scanner) Headers() []string {
	return s.reader.ColumnNames()
}
