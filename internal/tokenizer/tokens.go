// Package tokenizer splits INI text into lines and classifies them.
package tokenizer

// Token kinds emitted by the tokenizer.
//
// Blank lines and comments are consumed by the tokenizer and never reach the
// parser. A pair line without a separator is still a TokenPair, with
// HasValue false.
const (
	TokenSection = "Section" // [name]
	TokenPair    = "Pair"    // key = value
	TokenEOF     = "EOF"     // end of input
)

// Token is one significant line of INI input.
type Token struct {
	Kind string
	// Line is the 1-based number of the line the token was read from.
	Line int
	// Name is the section name for TokenSection and the key for TokenPair,
	// trimmed of surrounding whitespace.
	Name string
	// Value is the right-hand side of a pair, trimmed.
	Value string
	// HasValue reports whether the pair separator was present.
	HasValue bool
}
