// Package engine implements the table-driven scanner behind the dsv readers.
//
// A Table is compiled once per dialect. For each scanning state it holds a
// 256-entry trigger table and, per trigger byte, the ordered list of
// candidate tokens that may start with that byte. Bytes that are not
// triggers are bulk-copied into the field accumulator; only trigger bytes
// interrupt the scan.
package engine

import "fmt"

// Action is what the scanner does when a token matches.
type Action uint8

const (
	// ActionReplace substitutes the token's replacement into the field.
	ActionReplace Action = iota
	// ActionDelimiter ends the field; the next field is unquoted.
	ActionDelimiter
	// ActionNewline ends the field and the record.
	ActionNewline
	// ActionDelimiterQuote ends the field; the next field is quoted.
	ActionDelimiterQuote
	// ActionNewlineQuote ends the field and the record; the next field is quoted.
	ActionNewlineQuote
)

// String returns the string representation of Action.
func (a Action) String() string {
	switch a {
	case ActionReplace:
		return "replace"
	case ActionDelimiter:
		return "delimiter"
	case ActionNewline:
		return "newline"
	case ActionDelimiterQuote:
		return "delimiter+quote"
	case ActionNewlineQuote:
		return "newline+quote"
	default:
		return fmt.Sprintf("Action(%d)", a)
	}
}

// Token is one candidate match registered under its lead byte.
type Token struct {
	Text        []byte
	Action      Action
	Replacement []byte
}

// Escape is one literal/escaped substitution pair.
type Escape struct {
	Literal string
	Escaped string
}

// state is a scanning state. Skip and raw reads reuse the same states with
// accumulation switched off instead of a mirrored set of special states.
type state uint8

const (
	stateStart state = iota
	stateUnquoted
	stateQuoted
	stateEOF
	stateEOFInQuote
	stateDone
)

// stateTable is the compiled rule set of one field state.
type stateTable struct {
	trigger [256]bool
	tokens  [256][]Token
	leads   leadSet
}

func (s *stateTable) add(text string, action Action, replacement string) {
	if text == "" {
		return
	}
	b := text[0]
	s.trigger[b] = true
	s.tokens[b] = append(s.tokens[b], Token{
		Text:        []byte(text),
		Action:      action,
		Replacement: []byte(replacement),
	})
}

// Table holds the compiled transition tables for one dialect.
type Table struct {
	unquoted    stateTable
	quoted      stateTable
	quote       []byte
	maxTokenLen int
}

// NewTable compiles the rule tables for cfg. Registration order decides
// priority among tokens sharing a lead byte.
func NewTable(cfg Config) *Table {
	t := &Table{}
	useQuotes := cfg.UseQuotes && cfg.Quote != ""
	crlf := cfg.Newline == "\n"

	// unquoted field
	for _, e := range cfg.Escapes {
		t.unquoted.add(e.Escaped, ActionReplace, e.Literal)
	}
	if useQuotes {
		t.unquoted.add(cfg.Delimiter+cfg.Quote, ActionDelimiterQuote, "")
		t.unquoted.add(cfg.Newline+cfg.Quote, ActionNewlineQuote, "")
		if crlf {
			t.unquoted.add("\r\n"+cfg.Quote, ActionNewlineQuote, "")
		}
	}
	t.unquoted.add(cfg.Delimiter, ActionDelimiter, "")
	if crlf {
		t.unquoted.add("\r\n", ActionNewline, "")
	}
	t.unquoted.add(cfg.Newline, ActionNewline, "")

	// quoted field
	if useQuotes {
		t.quote = []byte(cfg.Quote)
		t.quoted.add(cfg.EscapedQuote, ActionReplace, cfg.Quote)
		if cfg.EscapeInQuotes {
			for _, e := range cfg.Escapes {
				t.quoted.add(e.Escaped, ActionReplace, e.Literal)
			}
		}
		q := cfg.Quote
		t.quoted.add(q+cfg.Delimiter+q, ActionDelimiterQuote, "")
		t.quoted.add(q+cfg.Delimiter, ActionDelimiter, "")
		t.quoted.add(q+cfg.Newline+q, ActionNewlineQuote, "")
		if crlf {
			t.quoted.add(q+"\r\n"+q, ActionNewlineQuote, "")
		}
		t.quoted.add(q+cfg.Newline, ActionNewline, "")
		if crlf {
			t.quoted.add(q+"\r\n", ActionNewline, "")
		}
	}

	for _, s := range []*stateTable{&t.unquoted, &t.quoted} {
		s.leads = newLeadSet(&s.trigger)
		for i := range s.tokens {
			for _, tok := range s.tokens[i] {
				if len(tok.Text) > t.maxTokenLen {
					t.maxTokenLen = len(tok.Text)
				}
			}
		}
	}
	if len(t.quote) > t.maxTokenLen {
		t.maxTokenLen = len(t.quote)
	}
	if t.maxTokenLen == 0 {
		t.maxTokenLen = 1
	}
	return t
}

// MaxTokenLen returns the longest registered token. The scanner never tests
// a trigger closer than this to the buffer end unless input is exhausted.
func (t *Table) MaxTokenLen() int {
	return t.maxTokenLen
}

// UsesQuotes reports whether a quoted field state exists.
func (t *Table) UsesQuotes() bool {
	return len(t.quote) > 0
}

func (t *Table) state(s state) *stateTable {
	if s == stateQuoted {
		return &t.quoted
	}
	return &t.unquoted
}

// Tokens returns the tokens registered under lead in the quoted or unquoted
// state, in priority order.
func (t *Table) Tokens(quoted bool, lead byte) []Token {
	if quoted {
		return t.quoted.tokens[lead]
	}
	return t.unquoted.tokens[lead]
}
