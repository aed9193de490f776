package tokenizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dlclark/regexp2"
)

// Delimiters is an open/close token pair enclosing a block that may span
// several lines, such as a block comment or a list value.
type Delimiters struct {
	Open  string
	Close string
}

// Options configures line splitting and classification.
type Options struct {
	// LineSeparators split the input into lines. Longer separators take
	// precedence over their prefixes. Default: "\r\n", "\r", "\n".
	LineSeparators []string
	// PairSeparator separates a key from its value. Default: "="
	PairSeparator string
	// Sections enables [section] lines. When disabled such lines are pairs.
	Sections bool
	// LineComments start a comment running to the end of the line. Only
	// whitespace may precede them.
	LineComments []string
	// BlockComments enclose comments that may span lines. A block comment
	// must open at the start of a line (after optional whitespace).
	BlockComments []Delimiters
}

// DefaultOptions returns the default tokenizer configuration.
func DefaultOptions() Options {
	return Options{
		LineSeparators: []string{"\r\n", "\r", "\n"},
		PairSeparator:  "=",
		Sections:       true,
		LineComments:   []string{"#", "//"},
		BlockComments:  []Delimiters{{Open: "/*", Close: "*/"}},
	}
}

var sectionPattern = regexp2.MustCompile(`^\s*\[\s*([^\]]*?)\s*\]\s*$`, regexp2.None)

// Tokenizer hands out the significant lines of an INI document one at a
// time. The parser may also pull raw continuation lines for values that span
// lines; those are never classified.
type Tokenizer struct {
	lines    []string
	pos      int
	opts     Options
	pair     *regexp2.Regexp
	comments []Block
}

// NewTokenizer splits input into lines and prepares the line patterns.
func NewTokenizer(input string, opts Options) (*Tokenizer, error) {
	if len(opts.LineSeparators) == 0 {
		opts.LineSeparators = DefaultOptions().LineSeparators
	}
	if opts.PairSeparator == "" {
		opts.PairSeparator = "="
	}
	pair, err := regexp2.Compile(
		`^\s*(.*?)\s*(?:`+regexp2.Escape(opts.PairSeparator)+`\s*(.*?)\s*)?$`,
		regexp2.None,
	)
	if err != nil {
		return nil, fmt.Errorf("pair separator %q: %w", opts.PairSeparator, err)
	}
	t := &Tokenizer{
		lines: SplitLines(input, opts.LineSeparators),
		opts:  opts,
		pair:  pair,
	}
	for _, d := range opts.BlockComments {
		b, err := NewBlock(d)
		if err != nil {
			return nil, err
		}
		t.comments = append(t.comments, b)
	}
	return t, nil
}

// SplitLines splits input on any of the separators, preferring the longest
// separator at each position.
func SplitLines(input string, separators []string) []string {
	seps := make([]string, 0, len(separators))
	for _, s := range separators {
		if s != "" {
			seps = append(seps, s)
		}
	}
	sort.SliceStable(seps, func(i, j int) bool { return len(seps[i]) > len(seps[j]) })

	var lines []string
	start := 0
	for i := 0; i < len(input); {
		matched := 0
		for _, s := range seps {
			if strings.HasPrefix(input[i:], s) {
				matched = len(s)
				break
			}
		}
		if matched == 0 {
			i++
			continue
		}
		lines = append(lines, input[start:i])
		i += matched
		start = i
	}
	return append(lines, input[start:])
}

// Next returns the next section or pair line, skipping blank lines and
// comments. At the end of input it returns a TokenEOF token.
func (t *Tokenizer) Next() (Token, error) {
	for {
		line, ok := t.NextLine()
		if !ok {
			return Token{Kind: TokenEOF, Line: t.pos}, nil
		}
		lineNo := t.pos

		skip, err := t.isEmpty(line)
		if err != nil {
			return Token{}, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if skip {
			continue
		}

		if t.opts.Sections {
			m, err := sectionPattern.FindStringMatch(line)
			if err != nil {
				return Token{}, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if m != nil {
				return Token{Kind: TokenSection, Line: lineNo, Name: m.GroupByNumber(1).String()}, nil
			}
		}

		m, err := t.pair.FindStringMatch(line)
		if err != nil {
			return Token{}, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if m == nil {
			continue
		}
		value := m.GroupByNumber(2)
		tok := Token{
			Kind:     TokenPair,
			Line:     lineNo,
			Name:     m.GroupByNumber(1).String(),
			Value:    value.String(),
			HasValue: len(value.Captures) > 0,
		}
		if tok.Name == "" && tok.Value == "" {
			continue
		}
		return tok, nil
	}
}

// NextLine returns the next raw line without classifying it.
func (t *Tokenizer) NextLine() (string, bool) {
	if t.pos >= len(t.lines) {
		return "", false
	}
	line := t.lines[t.pos]
	t.pos++
	return line, true
}

// Line returns the number of lines consumed so far.
func (t *Tokenizer) Line() int {
	return t.pos
}

func (t *Tokenizer) isEmpty(line string) (bool, error) {
	trimmed := strings.TrimLeft(line, " \t\v\f\r\n")
	if trimmed == "" {
		return true, nil
	}
	for _, c := range t.opts.LineComments {
		if c != "" && strings.HasPrefix(trimmed, c) {
			return true, nil
		}
	}
	for _, b := range t.comments {
		_, ok, err := t.ReadBlock(b, line)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// Block recognizes a delimited block that may continue over several lines.
type Block struct {
	open  *regexp2.Regexp
	close *regexp2.Regexp
}

// NewBlock compiles the patterns for a delimiter pair.
func NewBlock(d Delimiters) (Block, error) {
	if d.Open == "" || d.Close == "" {
		return Block{}, fmt.Errorf("block delimiters %q/%q: both must be set", d.Open, d.Close)
	}
	open, err := regexp2.Compile(`^\s*`+regexp2.Escape(d.Open)+`(.*)$`, regexp2.None)
	if err != nil {
		return Block{}, err
	}
	closing, err := regexp2.Compile(`^(.*)`+regexp2.Escape(d.Close)+`\s*$`, regexp2.None)
	if err != nil {
		return Block{}, err
	}
	return Block{open: open, close: closing}, nil
}

// ReadBlock reports whether first opens the block and, if so, returns the
// block content between the delimiters. Lines are consumed until one ends
// with the close delimiter; content lines are joined with "\n". An unclosed
// block runs to the end of input.
func (t *Tokenizer) ReadBlock(b Block, first string) (string, bool, error) {
	m, err := b.open.FindStringMatch(first)
	if err != nil || m == nil {
		return "", false, err
	}
	content := m.GroupByNumber(1).String()
	if m, err = b.close.FindStringMatch(content); err != nil {
		return "", false, err
	} else if m != nil {
		return m.GroupByNumber(1).String(), true, nil
	}

	for {
		line, ok := t.NextLine()
		if !ok {
			return content, true, nil
		}
		m, err := b.close.FindStringMatch(line)
		if err != nil {
			return "", false, err
		}
		if m != nil {
			return content + "\n" + m.GroupByNumber(1).String(), true, nil
		}
		content += "\n" + line
	}
}
