// Package parser implements the INI parser: it drives the line tokenizer,
// converts right-hand sides into values and stores them, either flat or
// following the dotted key hierarchy.
package parser

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/dlclark/regexp2"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/shapestone/shape-dsv/internal/tokenizer"
)

// Map is the container for parsed sections and named lists.
type Map = orderedmap.OrderedMap[string, any]

// NewMap returns an empty Map.
func NewMap() *Map {
	return orderedmap.New[string, any]()
}

// Handler receives every parsed pair instead of the built-in storage.
// Returning false stops parsing.
type Handler func(section, key string, value any) bool

// Options configures the parser.
type Options struct {
	// Tokenizer configures line splitting, the pair separator, sections and
	// comments.
	Tokenizer tokenizer.Options
	// TopSection is the section name (compared lower-cased) that maps back
	// to the top level. Default: "general"
	TopSection string
	// Hierarchy splits sections and keys on HierarchySeparator and enables
	// the append (key[]=) and merge (key+=) operators.
	Hierarchy bool
	// HierarchySeparator separates hierarchy levels. Default: "."
	HierarchySeparator string
	// Quotes enables single- and double-quoted values.
	Quotes bool
	// Lists are the delimiters of list values.
	Lists []tokenizer.Delimiters
	// SpecialValues maps upper-case words to the values they stand for.
	SpecialValues map[string]any
	// Handler, when set, receives each pair and nothing is stored.
	Handler Handler
}

// DefaultSpecialValues returns the words recognized as booleans, null and
// the empty list.
func DefaultSpecialValues() map[string]any {
	return map[string]any{
		"TRUE":      true,
		"ON":        true,
		"YES":       true,
		"Y":         true,
		"FALSE":     false,
		"OFF":       false,
		"NO":        false,
		"N":         false,
		"NULL":      nil,
		"NONE":      nil,
		"NOTHING":   nil,
		"EMPTYLIST": []any{},
	}
}

// DefaultOptions returns default parser options.
func DefaultOptions() Options {
	return Options{
		Tokenizer:          tokenizer.DefaultOptions(),
		TopSection:         "general",
		Hierarchy:          true,
		HierarchySeparator: ".",
		Quotes:             true,
		Lists:              []tokenizer.Delimiters{{Open: "[", Close: "]"}, {Open: "{", Close: "}"}},
		SpecialValues:      DefaultSpecialValues(),
	}
}

var (
	closingDouble = regexp2.MustCompile(`(?<!\\)"\s*$`, regexp2.None)
	closingSingle = regexp2.MustCompile(`(?<!\\)'\s*$`, regexp2.None)
	listItem      = regexp2.MustCompile(
		`(?:([\w\.]+)\s*[:=]+\s*)?(?:'((?:\\'|[^'])*)'|"((?:\\"|[^"])*)"|([^,;\s]+))[,;\s]*`,
		regexp2.Multiline,
	)
)

// Parser converts one INI document into values.
type Parser struct {
	tok     *tokenizer.Tokenizer
	opts    Options
	lists   []tokenizer.Block
	store   *store
	section string
}

// NewParser creates a parser with default options.
func NewParser(input string) (*Parser, error) {
	return NewParserWithOptions(input, DefaultOptions())
}

// NewParserWithOptions creates a parser with custom options.
func NewParserWithOptions(input string, opts Options) (*Parser, error) {
	if opts.HierarchySeparator == "" {
		opts.HierarchySeparator = "."
	}
	tok, err := tokenizer.NewTokenizer(input, opts.Tokenizer)
	if err != nil {
		return nil, err
	}
	p := &Parser{tok: tok, opts: opts}
	for _, d := range opts.Lists {
		b, err := tokenizer.NewBlock(d)
		if err != nil {
			return nil, err
		}
		p.lists = append(p.lists, b)
	}
	if opts.Handler == nil {
		p.store = newStore(opts.Hierarchy, opts.HierarchySeparator)
	}
	return p, nil
}

// Parse reads the whole document. With a Handler configured the returned
// map is empty.
func (p *Parser) Parse() (*Map, error) {
	for {
		token, err := p.tok.Next()
		if err != nil {
			return nil, err
		}

		switch token.Kind {
		case tokenizer.TokenEOF:
			if p.store == nil {
				return NewMap(), nil
			}
			return p.store.result(), nil

		case tokenizer.TokenSection:
			p.section = token.Name
			if strings.ToLower(p.section) == p.opts.TopSection {
				p.section = ""
			}

		case tokenizer.TokenPair:
			var value any
			if token.HasValue {
				if value, err = p.parseValue(token.Value); err != nil {
					return nil, fmt.Errorf("line %d: %w", token.Line, err)
				}
			}
			if p.opts.Handler != nil {
				if !p.opts.Handler(p.section, token.Name, value) {
					return NewMap(), nil
				}
				continue
			}
			p.store.add(p.section, token.Name, value)
		}
	}
}

// parseValue converts the right-hand side of a pair, pulling continuation
// lines from the tokenizer for quoted values and lists.
func (p *Parser) parseValue(raw string) (any, error) {
	if raw == "" {
		return nil, nil
	}

	if p.opts.Quotes {
		if raw == `""` || raw == `''` {
			return "", nil
		}
		if raw[0] == '"' || raw[0] == '\'' {
			return p.parseQuoted(raw)
		}
	}

	for _, b := range p.lists {
		content, ok, err := p.tok.ReadBlock(b, raw)
		if err != nil {
			return nil, err
		}
		if ok {
			return p.parseList(content)
		}
	}

	return p.scalar(raw), nil
}

// parseQuoted reads a quoted value up to the first line ending with an
// unescaped copy of the opening quote. An unterminated value keeps
// everything after the opening quote.
func (p *Parser) parseQuoted(raw string) (any, error) {
	quote := raw[0]
	closing := closingSingle
	if quote == '"' {
		closing = closingDouble
	}

	value := raw
	m, err := closing.FindStringMatch(value)
	if err != nil {
		return nil, err
	}
	for m == nil {
		line, ok := p.tok.NextLine()
		if !ok {
			break
		}
		value += "\n" + line
		if m, err = closing.FindStringMatch(line); err != nil {
			return nil, err
		}
	}

	content := value[1:]
	if m != nil {
		// The closing quote is the last non-space byte.
		trimmed := strings.TrimRightFunc(value, unicode.IsSpace)
		content = ""
		if len(trimmed) > 1 {
			content = trimmed[1 : len(trimmed)-1]
		}
	}
	if quote == '"' {
		return unescapeC(content), nil
	}
	return strings.ReplaceAll(content, `\'`, `'`), nil
}

type listEntry struct {
	name  string
	value any
}

// parseList splits list content into items. A list with any named item is
// returned as a *Map, otherwise as []any.
func (p *Parser) parseList(content string) (any, error) {
	var entries []listEntry
	named := false

	m, err := listItem.FindStringMatch(content)
	for ; m != nil && err == nil; m, err = listItem.FindNextMatch(m) {
		var value any
		switch {
		case matched(m, 4):
			value = p.scalar(m.GroupByNumber(4).String())
		case matched(m, 3):
			value = unescapeC(m.GroupByNumber(3).String())
		default:
			value = strings.ReplaceAll(m.GroupByNumber(2).String(), `\'`, `'`)
		}
		name := m.GroupByNumber(1).String()
		named = named || name != ""
		entries = append(entries, listEntry{name: name, value: value})
	}
	if err != nil {
		return nil, err
	}

	if !named {
		list := make([]any, len(entries))
		for i, e := range entries {
			list[i] = e.value
		}
		return list, nil
	}
	out := NewMap()
	next := 0
	for _, e := range entries {
		if e.name == "" {
			next = appendIndexed(out, next, e.value)
			continue
		}
		next = setIndexed(out, next, e.name, e.value)
	}
	return out, nil
}

func matched(m *regexp2.Match, group int) bool {
	return len(m.GroupByNumber(group).Captures) > 0
}
