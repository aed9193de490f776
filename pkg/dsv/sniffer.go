package dsv

import (
	"regexp"
	"strings"
	"unicode"
)

// sniffSampleSize bounds how much input FormatAuto inspects.
const sniffSampleSize = 64 * 1024

// Sniffed is the outcome of sniffing a sample.
type Sniffed struct {
	// Format is the preset the sample fits: tsv, csv_rfc, or csv.
	Format string
	// Delimiter is the detected field delimiter.
	Delimiter string
	// CRLF reports whether the sample's lines end in \r\n.
	CRLF bool
	// Header reports whether the first line looks like column names.
	Header bool
}

// Sniff detects the dialect of a sample. Tab-delimited input maps to the
// tsv preset; otherwise csv, or csv_rfc when lines end in CRLF, with the
// detected delimiter.
func Sniff(sample string) Sniffed {
	s := NewSniffer(sample)
	out := Sniffed{
		Delimiter: string(s.DetectDelimiter()),
		CRLF:      s.CRLF(),
		Header:    s.HasHeader(),
	}
	switch {
	case out.Delimiter == "\t":
		out.Format = FormatTSV
	case out.CRLF:
		out.Format = FormatCSVRFC
	default:
		out.Format = FormatCSV
	}
	return out
}

// Sniffer detects the delimiter and header of delimited text.
type Sniffer struct {
	lines     []string
	crlf      bool
	delimiter rune
	hasHeader bool
	analyzed  bool
}

// NewSniffer creates a new Sniffer with a sample of the data.
// For best results, provide at least 2-3 lines.
func NewSniffer(sample string) *Sniffer {
	s := &Sniffer{}
	if sample == "" {
		return s
	}
	lines := strings.Split(sample, "\n")
	crlf := 0
	for i, line := range lines {
		if strings.HasSuffix(line, "\r") {
			lines[i] = strings.TrimSuffix(line, "\r")
			crlf++
		}
	}
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	s.lines = lines
	s.crlf = crlf > 0 && crlf >= len(lines)-1
	return s
}

func (s *Sniffer) analyze() {
	if s.analyzed {
		return
	}
	s.delimiter = s.detectDelimiter()
	s.hasHeader = s.detectHeader()
	s.analyzed = true
}

// DetectDelimiter returns the detected field delimiter.
// Candidates: comma, tab, semicolon, pipe.
func (s *Sniffer) DetectDelimiter() rune {
	s.analyze()
	return s.delimiter
}

// HasHeader returns true if the first row appears to be a header.
func (s *Sniffer) HasHeader() bool {
	s.analyze()
	return s.hasHeader
}

// CRLF reports whether the sample uses \r\n line endings.
func (s *Sniffer) CRLF() bool {
	return s.crlf
}

var candidateDelimiters = []rune{',', '\t', ';', '|'}

// detectDelimiter scores each candidate by its count on the first line,
// with a bonus when every line agrees.
func (s *Sniffer) detectDelimiter() rune {
	best := ','
	bestScore := 0
	for _, delim := range candidateDelimiters {
		counts := make([]int, 0, len(s.lines))
		for _, line := range s.lines {
			if line == "" {
				continue
			}
			counts = append(counts, countDelimiter(line, delim))
		}
		if len(counts) == 0 || counts[0] == 0 {
			continue
		}
		score := counts[0]
		consistent := true
		for _, c := range counts[1:] {
			if c != counts[0] {
				consistent = false
				break
			}
		}
		if consistent {
			score *= 10
		}
		if score > bestScore {
			best, bestScore = delim, score
		}
	}
	return best
}

// countDelimiter counts occurrences of a delimiter, ignoring quoted sections.
func countDelimiter(line string, delim rune) int {
	count := 0
	inQuotes := false
	for _, ch := range line {
		if ch == '"' {
			inQuotes = !inQuotes
		} else if ch == delim && !inQuotes {
			count++
		}
	}
	return count
}

// detectHeader compares how header-like and how data-like the first
// line's fields are.
func (s *Sniffer) detectHeader() bool {
	if len(s.lines) < 2 {
		return false
	}
	hasData := false
	for _, line := range s.lines[1:] {
		if line != "" {
			hasData = true
			break
		}
	}
	if !hasData {
		return false
	}

	headerScore, dataScore := 0, 0
	for _, field := range splitByDelimiter(s.lines[0], s.delimiter) {
		field = strings.Trim(strings.TrimSpace(field), `"`)
		if isLikelyHeader(field) {
			headerScore++
		}
		if isLikelyData(field) {
			dataScore++
		}
	}
	return headerScore > dataScore
}

var (
	headerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`),       // snake_case or identifier
		regexp.MustCompile(`^[a-zA-Z]+[A-Z][a-zA-Z]*$`),      // camelCase
		regexp.MustCompile(`^[A-Z][a-z]+([ ][A-Z][a-z]+)*$`), // Title Case
	}
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
		regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`),
	}
)

func isLikelyHeader(s string) bool {
	if s == "" || isNumeric(s) {
		return false
	}
	for _, pattern := range headerPatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

func isLikelyData(s string) bool {
	if s == "" {
		return false
	}
	if isNumeric(s) || strings.Contains(s, "@") {
		return true
	}
	for _, pattern := range datePatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

func isNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if s[0] == '-' {
		s = s[1:]
	}
	hasDot := false
	for _, ch := range s {
		if ch == '.' {
			if hasDot {
				return false
			}
			hasDot = true
		} else if !unicode.IsDigit(ch) {
			return false
		}
	}
	return len(s) > 0
}

// splitByDelimiter splits a line by delimiter, respecting quotes.
func splitByDelimiter(line string, delim rune) []string {
	var fields []string
	var current strings.Builder
	inQuotes := false
	for _, ch := range line {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
			current.WriteRune(ch)
		case ch == delim && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	return append(fields, current.String())
}
