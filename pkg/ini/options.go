package ini

import (
	"github.com/shapestone/shape-dsv/internal/parser"
	"github.com/shapestone/shape-dsv/internal/tokenizer"
)

// Handler receives each parsed pair in document order in place of the
// built-in storage. Returning false stops parsing.
type Handler func(section, key string, value any) bool

// ParserOptions configures INI parsing.
// Start from DefaultParserOptions: the zero value disables every optional
// feature.
type ParserOptions struct {
	// LineSeparators split the input into lines.
	// Default: "\r\n", "\r", "\n"
	LineSeparators []string

	// PairSeparator separates a key from its value.
	// Default: "="
	PairSeparator string

	// Sections enables [section] lines.
	// Default: true
	Sections bool

	// TopSection is the section name that returns to the top level,
	// compared lower-cased.
	// Default: "general"
	TopSection string

	// Hierarchy splits sections and keys on HierarchySeparator into nested
	// maps and enables the append (key[]=) and merge (key+=) operators.
	// Default: true
	Hierarchy bool

	// HierarchySeparator separates hierarchy levels.
	// Default: "."
	HierarchySeparator string

	// Comments enables line comments starting with any of CommentStart.
	// Default: true, with "#" and "//"
	Comments     bool
	CommentStart []string

	// BlockComments enables comments enclosed by BlockCommentOpen and
	// BlockCommentClose, which may span lines.
	// Default: true, with "/*" and "*/"
	BlockComments     bool
	BlockCommentOpen  string
	BlockCommentClose string

	// Quotes enables single- and double-quoted values.
	// Default: true
	Quotes bool

	// Lists enables list values. ListOpen[i] pairs with ListClose[i].
	// Default: true, with "[" "]" and "{" "}"
	Lists     bool
	ListOpen  []string
	ListClose []string

	// SpecialValues maps upper-case words to the values they stand for.
	// Matching ignores case.
	// Default: TRUE ON YES Y, FALSE OFF NO N, NULL NONE NOTHING, EMPTYLIST
	SpecialValues map[string]any

	// Handler, if set, receives each pair and Parse returns an empty Map.
	Handler Handler
}

// DefaultParserOptions returns the default parser configuration.
func DefaultParserOptions() ParserOptions {
	return ParserOptions{
		LineSeparators:     []string{"\r\n", "\r", "\n"},
		PairSeparator:      "=",
		Sections:           true,
		TopSection:         "general",
		Hierarchy:          true,
		HierarchySeparator: ".",
		Comments:           true,
		CommentStart:       []string{"#", "//"},
		BlockComments:      true,
		BlockCommentOpen:   "/*",
		BlockCommentClose:  "*/",
		Quotes:             true,
		Lists:              true,
		ListOpen:           []string{"[", "{"},
		ListClose:          []string{"]", "}"},
		SpecialValues:      parser.DefaultSpecialValues(),
	}
}

// Validate checks the options for consistency.
func (o ParserOptions) Validate() error {
	if o.PairSeparator == "" {
		return &OptionsError{Field: "PairSeparator", Message: "must not be empty"}
	}
	if o.Hierarchy && o.HierarchySeparator == "" {
		return &OptionsError{Field: "HierarchySeparator", Message: "must not be empty with Hierarchy"}
	}
	if o.BlockComments && (o.BlockCommentOpen == "" || o.BlockCommentClose == "") {
		return &OptionsError{Field: "BlockCommentOpen", Message: "block comment delimiters must not be empty"}
	}
	if o.Lists {
		if len(o.ListOpen) != len(o.ListClose) {
			return &OptionsError{Field: "ListOpen", Message: "ListOpen and ListClose must pair up"}
		}
		for i := range o.ListOpen {
			if o.ListOpen[i] == "" || o.ListClose[i] == "" {
				return &OptionsError{Field: "ListOpen", Message: "list delimiters must not be empty"}
			}
		}
	}
	return nil
}

func (o ParserOptions) parser() parser.Options {
	opts := parser.Options{
		Tokenizer: tokenizer.Options{
			LineSeparators: o.LineSeparators,
			PairSeparator:  o.PairSeparator,
			Sections:       o.Sections,
		},
		TopSection:         o.TopSection,
		Hierarchy:          o.Hierarchy,
		HierarchySeparator: o.HierarchySeparator,
		Quotes:             o.Quotes,
		SpecialValues:      o.SpecialValues,
	}
	if o.Handler != nil {
		opts.Handler = parser.Handler(o.Handler)
	}
	if o.Comments {
		opts.Tokenizer.LineComments = o.CommentStart
	}
	if o.BlockComments {
		opts.Tokenizer.BlockComments = []tokenizer.Delimiters{{Open: o.BlockCommentOpen, Close: o.BlockCommentClose}}
	}
	if o.Lists {
		for i := range o.ListOpen {
			opts.Lists = append(opts.Lists, tokenizer.Delimiters{Open: o.ListOpen[i], Close: o.ListClose[i]})
		}
	}
	return opts
}

// GeneratorOptions configures INI output.
// Start from DefaultGeneratorOptions.
type GeneratorOptions struct {
	// Newline ends every line.
	// Default: "\n"
	Newline string

	// PairSeparator separates a key from its value.
	// Default: "="
	PairSeparator string

	// HierarchySeparator joins the keys of nested maps.
	// Default: "."
	HierarchySeparator string

	// Lists writes lists of scalars as ListOpen item ListSeparator item
	// ... ListClose. Without it lists are written as numbered keys.
	// Default: true, as "[a b c]"
	Lists         bool
	ListSeparator string
	ListOpen      string
	ListClose     string

	// NullValue, TrueValue and FalseValue are written for nil, true and
	// false.
	// Default: "NOTHING", "YES", "NO"
	NullValue  string
	TrueValue  string
	FalseValue string

	// EmptyList is written for empty maps and lists.
	// Default: "[]"
	EmptyList string

	// SpecialValues lists words that must be quoted when they occur as
	// text. Only the keys are used.
	// Default: as DefaultParserOptions
	SpecialValues map[string]any
}

// DefaultGeneratorOptions returns the default generator configuration.
func DefaultGeneratorOptions() GeneratorOptions {
	return GeneratorOptions{
		Newline:            "\n",
		PairSeparator:      "=",
		HierarchySeparator: ".",
		Lists:              true,
		ListSeparator:      " ",
		ListOpen:           "[",
		ListClose:          "]",
		NullValue:          "NOTHING",
		TrueValue:          "YES",
		FalseValue:         "NO",
		EmptyList:          "[]",
		SpecialValues:      parser.DefaultSpecialValues(),
	}
}

// Validate checks the options for consistency.
func (o GeneratorOptions) Validate() error {
	switch {
	case o.Newline == "":
		return &OptionsError{Field: "Newline", Message: "must not be empty"}
	case o.PairSeparator == "":
		return &OptionsError{Field: "PairSeparator", Message: "must not be empty"}
	case o.HierarchySeparator == "":
		return &OptionsError{Field: "HierarchySeparator", Message: "must not be empty"}
	case o.Lists && (o.ListOpen == "" || o.ListClose == "" || o.ListSeparator == ""):
		return &OptionsError{Field: "ListOpen", Message: "list delimiters and separator must not be empty"}
	}
	return nil
}
