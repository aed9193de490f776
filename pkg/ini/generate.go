package ini

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shapestone/shape-dsv/internal/parser"
)

// Generate renders data as INI text. data must be a *Map, a map with string
// keys, or a slice; nested containers are written as dotted keys, lists of
// scalars as list values.
//
// Text is quoted when parsing it back would otherwise change it: when it is
// empty, has surrounding whitespace or a line break, starts with a quote or
// a list opener, reads as a number, or spells a special value. Inside a
// quoted value backslashes and double quotes are escaped.
func Generate(data any, opts GeneratorOptions) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}
	if data == nil {
		return "", nil
	}
	entries, ok := containerEntries(data)
	if !ok {
		return "", fmt.Errorf("%w: top level %T is not a map or list", ErrUnsupportedValue, data)
	}
	g := generator{opts: opts}
	if err := g.entries(entries, ""); err != nil {
		return "", err
	}
	return g.sb.String(), nil
}

type entry struct {
	key   string
	value any
	// list reports that the entry comes from a slice.
	list bool
}

type generator struct {
	sb   strings.Builder
	opts GeneratorOptions
}

func (g *generator) entries(entries []entry, prefix string) error {
	for _, e := range entries {
		key := e.key
		if prefix != "" {
			key = prefix + g.opts.HierarchySeparator + key
		}

		children, isContainer := containerEntries(e.value)
		if !isContainer {
			text, err := g.scalar(e.value, false)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			g.line(key, text)
			continue
		}

		if len(children) == 0 {
			g.line(key, g.opts.EmptyList)
			continue
		}

		if g.opts.Lists && isList(children) {
			items := make([]string, len(children))
			for i, c := range children {
				text, err := g.scalar(c.value, true)
				if err != nil {
					return fmt.Errorf("%s: %w", key, err)
				}
				items[i] = text
			}
			g.line(key, g.opts.ListOpen+strings.Join(items, g.opts.ListSeparator)+g.opts.ListClose)
			continue
		}

		if err := g.entries(children, key); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) line(key, value string) {
	g.sb.WriteString(key)
	g.sb.WriteString(g.opts.PairSeparator)
	g.sb.WriteString(value)
	g.sb.WriteString(g.opts.Newline)
}

// isList reports whether entries are a sequence of scalars, from a slice
// or from a map keyed "0".."n-1".
func isList(entries []entry) bool {
	for i, e := range entries {
		if !e.list && e.key != strconv.Itoa(i) {
			return false
		}
		if _, nested := containerEntries(e.value); nested {
			return false
		}
	}
	return true
}

func (g *generator) scalar(v any, inList bool) (string, error) {
	switch v := v.(type) {
	case nil:
		return g.opts.NullValue, nil
	case bool:
		if v {
			return g.opts.TrueValue, nil
		}
		return g.opts.FalseValue, nil
	case string:
		return g.text(v, inList), nil
	case []byte:
		return g.text(string(v), inList), nil
	case float32:
		return formatFloat(float64(v), 32), nil
	case float64:
		return formatFloat(v, 64), nil
	case fmt.Stringer:
		return g.text(v.String(), inList), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.String:
		return g.text(rv.String(), inList), nil
	case reflect.Bool:
		return g.scalar(rv.Bool(), inList)
	case reflect.Float32, reflect.Float64:
		return formatFloat(rv.Float(), 64), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return g.opts.NullValue, nil
		}
		return g.scalar(rv.Elem().Interface(), inList)
	}
	return "", fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

// formatFloat keeps a decimal point on finite values so they parse back as
// floats.
func formatFloat(f float64, bits int) string {
	s := strconv.FormatFloat(f, 'f', -1, bits)
	if !math.IsInf(f, 0) && !math.IsNaN(f) && !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func (g *generator) text(s string, inList bool) string {
	if s == "" {
		return `""`
	}
	if !g.mustQuote(s, inList) {
		return s
	}
	return quote(s, inList)
}

func (g *generator) mustQuote(s string, inList bool) bool {
	first, _ := utf8.DecodeRuneInString(s)
	last, _ := utf8.DecodeLastRuneInString(s)
	switch {
	case unicode.IsSpace(first) || unicode.IsSpace(last):
		return true
	case strings.ContainsAny(s, "\r\n") || strings.Contains(s, g.opts.Newline):
		return true
	case strings.ContainsRune(`"'[{`, first) || (g.opts.ListOpen != "" && strings.HasPrefix(s, g.opts.ListOpen)):
		return true
	case inList && (strings.IndexFunc(s, unicode.IsSpace) >= 0 || strings.ContainsAny(s, ",;:=]}")):
		return true
	case inList && g.opts.ListClose != "" && strings.Contains(s, g.opts.ListClose):
		return true
	}
	if _, ok := g.opts.SpecialValues[strings.ToUpper(s)]; ok {
		return true
	}
	_, numeric := parser.Number(s)
	return numeric
}

// quote wraps s in double quotes with C escapes where needed. A newline is
// kept literal, except inside lists or when the first line would be blank,
// as the closing quote is found by looking at line ends.
func quote(s string, inList bool) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	blankFirst := strings.Contains(s, "\n") && strings.TrimSpace(s[:strings.IndexByte(s, '\n')]) == ""
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			if i == len(s)-1 {
				// \\ right before the closing quote would escape it.
				b.WriteString(`\134`)
			} else {
				b.WriteString(`\\`)
			}
		case '"':
			b.WriteString(`\"`)
		case '\r':
			b.WriteString(`\r`)
		case '\n':
			if inList || blankFirst {
				b.WriteString(`\n`)
				blankFirst = false
			} else {
				b.WriteByte(c)
			}
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// containerEntries lists the entries of a map or slice value; maps other
// than *Map are ordered by key.
func containerEntries(v any) ([]entry, bool) {
	switch v := v.(type) {
	case *Map:
		if v == nil {
			return nil, false
		}
		out := make([]entry, 0, v.Len())
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			out = append(out, entry{key: pair.Key, value: pair.Value})
		}
		return out, true
	case []any:
		out := make([]entry, len(v))
		for i, item := range v {
			out[i] = entry{key: strconv.Itoa(i), value: item, list: true}
		}
		return out, true
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]entry, len(keys))
		for i, k := range keys {
			out[i] = entry{key: k, value: v[k]}
		}
		return out, true
	case []byte, string, nil:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		out := make([]entry, len(keys))
		for i, k := range keys {
			out[i] = entry{key: k.String(), value: rv.MapIndex(k).Interface()}
		}
		return out, true
	case reflect.Slice, reflect.Array:
		out := make([]entry, rv.Len())
		for i := range out {
			out[i] = entry{key: strconv.Itoa(i), value: rv.Index(i).Interface(), list: true}
		}
		return out, true
	}
	return nil, false
}
