package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/shapestone/shape-dsv/internal/tokenizer"
)

// kv is one entry of an ordered map, so expectations can check order.
type kv struct {
	K string
	V any
}

func obj(pairs ...kv) []kv {
	return append([]kv{}, pairs...)
}

// flatten converts *Map values into ordered []kv, recursively.
func flatten(v any) any {
	switch v := v.(type) {
	case *Map:
		out := []kv{}
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			out = append(out, kv{pair.Key, flatten(pair.Value)})
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = flatten(item)
		}
		return out
	}
	return v
}

func parse(t *testing.T, input string, opts Options) any {
	t.Helper()
	p, err := NewParserWithOptions(input, opts)
	if err != nil {
		t.Fatalf("NewParserWithOptions() error = %v", err)
	}
	got, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return flatten(got)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []kv
	}{
		{
			name:  "empty input",
			input: "",
			want:  obj(),
		},
		{
			name:  "basic",
			input: "\n\ta=b\n",
			want:  obj(kv{"a", "b"}),
		},
		{
			name:  "hierarchy",
			input: "a.a=1\na.b=2\nb=3\n",
			want:  obj(kv{"a", obj(kv{"a", 1}, kv{"b", 2})}, kv{"b", 3}),
		},
		{
			name:  "values",
			input: "a=text\nb=2\nc=3.14\nd=YES\ne=NO\nf=NOTHING\ng=\nh\n",
			want: obj(
				kv{"a", "text"}, kv{"b", 2}, kv{"c", 3.14},
				kv{"d", true}, kv{"e", false}, kv{"f", nil},
				kv{"g", nil}, kv{"h", nil},
			),
		},
		{
			name:  "special values ignore case",
			input: "a=on\nb=Off\nc=y\nd=none\ne=emptylist\n",
			want:  obj(kv{"a", true}, kv{"b", false}, kv{"c", true}, kv{"d", nil}, kv{"e", []any{}}),
		},
		{
			name:  "single-letter special values in lists and appends",
			input: "a=[x y n]\nb[]=w\nb[]=Y\n",
			want:  obj(kv{"a", []any{"x", true, false}}, kv{"b", []any{"w", true}}),
		},
		{
			name:  "quotes",
			input: "a=\" must quote\"\nb=\"must quote \"\nc=\"must\nquote\"\n",
			want:  obj(kv{"a", " must quote"}, kv{"b", "must quote "}, kv{"c", "must\nquote"}),
		},
		{
			name:  "list values",
			input: `a=[one "two two" 3 YES NO NOTHING]`,
			want:  obj(kv{"a", []any{"one", "two two", 3, true, false, nil}}),
		},
		{
			name: "comments",
			input: "a=1\n// b=2\n#c=3\nd=4\ne=// 5\nf=6\n/*\ng=7\nh=8\n*/\ni=9\nj=/*10*/\n\n\n=\n",
			want: obj(
				kv{"a", 1}, kv{"d", 4}, kv{"e", "// 5"},
				kv{"f", 6}, kv{"i", 9}, kv{"j", "/*10*/"},
			),
		},
		{
			name:  "sections",
			input: "[a]\na=1\nb=2\n[a.c]\na=4\n[general]\nb=3\n",
			want: obj(
				kv{"a", obj(kv{"a", 1}, kv{"b", 2}, kv{"c", obj(kv{"a", 4})})},
				kv{"b", 3},
			),
		},
		{
			name:  "top section name ignores case",
			input: "[x]\n[GENERAL]\na=1\n",
			want:  obj(kv{"a", 1}),
		},
		{
			name: "list parsing",
			input: `a=[ one two three ]
b={ one, two ,, three }
c=[ 1 2 3 ]
d=[
	one
	two
	three
]
e=[]
f={ "one one", two, "three three" }
g={ one:1 two=2, three : 3, 4 }
h={one:"1 and 1", two : 2, three="3 and 3" }
i={one:"1 and 1",
	two : 2,
			three="3 and 3" }
`,
			want: obj(
				kv{"a", []any{"one", "two", "three"}},
				kv{"b", []any{"one", "two", "three"}},
				kv{"c", []any{1, 2, 3}},
				kv{"d", []any{"one", "two", "three"}},
				kv{"e", []any{}},
				kv{"f", []any{"one one", "two", "three three"}},
				kv{"g", obj(kv{"one", 1}, kv{"two", 2}, kv{"three", 3}, kv{"0", 4})},
				kv{"h", obj(kv{"one", "1 and 1"}, kv{"two", 2}, kv{"three", "3 and 3"})},
				kv{"i", obj(kv{"one", "1 and 1"}, kv{"two", 2}, kv{"three", "3 and 3"})},
			),
		},
		{
			name:  "list item quoting",
			input: `a=['it\'s' "say \"hi\"" '' x.y=z]`,
			want:  obj(kv{"a", obj(kv{"0", "it's"}, kv{"1", `say "hi"`}, kv{"2", ""}, kv{"x.y", "z"})}),
		},
		{
			name: "quote parsing",
			input: `a=' single quotes '
b="double quotes"
c=''
d=""
e='span
multiple
lines'
f='multiple lines
with 'embedded' quotes'
g="double-quotes, multiple lines
with "embedded" quotes"
h="c-escapes: tab(\t) newline(\n)"
`,
			want: obj(
				kv{"a", " single quotes "},
				kv{"b", "double quotes"},
				kv{"c", ""},
				kv{"d", ""},
				kv{"e", "span\nmultiple\nlines"},
				kv{"f", "multiple lines\nwith 'embedded' quotes"},
				kv{"g", "double-quotes, multiple lines\nwith \"embedded\" quotes"},
				kv{"h", "c-escapes: tab(\t) newline(\n)"},
			),
		},
		{
			name:  "escaped closing quote continues",
			input: "a=\"one\\\"\ntwo\"\n",
			want:  obj(kv{"a", "one\"\ntwo"}),
		},
		{
			name:  "unterminated quote runs to the end",
			input: "a='open\nb=2",
			want:  obj(kv{"a", "open\nb=2"}),
		},
		{
			name:  "lone quote",
			input: "a=\"",
			want:  obj(kv{"a", ""}),
		},
		{
			name:  "unclosed list runs to the end",
			input: "a=[1 2\n3",
			want:  obj(kv{"a", []any{1, 2, 3}}),
		},
		{
			name:  "append values",
			input: "a[]=1\na[]=2\nb=1\nb[]=2\n[c]\n=1\n=2\n",
			want:  obj(kv{"a", []any{1, 2}}, kv{"b", []any{1, 2}}, kv{"c", []any{1, 2}}),
		},
		{
			name:  "append with brackets",
			input: "[d]\n[]=x\n[]=w\n",
			want:  obj(kv{"d", []any{"x", "w"}}),
		},
		{
			name:  "append list values",
			input: "a[]={ a:1, b:2, c:3 }\na[]={ a:4, b:5, c:6 }\n[a]\n={ a:7, b:8, c:9 }\n",
			want: obj(kv{"a", []any{
				obj(kv{"a", 1}, kv{"b", 2}, kv{"c", 3}),
				obj(kv{"a", 4}, kv{"b", 5}, kv{"c", 6}),
				obj(kv{"a", 7}, kv{"b", 8}, kv{"c", 9}),
			}}),
		},
		{
			name:  "merge values",
			input: "a=1\na+=2\na+=3\n[a]\n+=4\n",
			want:  obj(kv{"a", []any{1, 2, 3, 4}}),
		},
		{
			name:  "merge list values",
			input: "a={ a:1, b:2, c:3 }\na+={ b:6, d:1 }\n[a]\n+={ c:9, e: 1 }\n",
			want:  obj(kv{"a", obj(kv{"a", 1}, kv{"b", 6}, kv{"c", 9}, kv{"d", 1}, kv{"e", 1})}),
		},
		{
			name:  "merge lists appends",
			input: "a=[1 2]\na+=[3]\nb+=[x]\nc=0\nc+=[1 2]\n",
			want:  obj(kv{"a", []any{1, 2, 3}}, kv{"b", []any{"x"}}, kv{"c", []any{0, 1, 2}}),
		},
		{
			name:  "scalar promoted by a deeper key",
			input: "a=1\na.b=2\n",
			want:  obj(kv{"a", obj(kv{"0", 1}, kv{"b", 2})}),
		},
		{
			name:  "null is replaced by a deeper key",
			input: "a=\na.b=2\n",
			want:  obj(kv{"a", obj(kv{"b", 2})}),
		},
		{
			name:  "numeric keys form a list",
			input: "a.0=x\na.1=w\nb.1=z\n",
			want:  obj(kv{"a", []any{"x", "w"}}, kv{"b", obj(kv{"1", "z"})}),
		},
		{
			name:  "append after numeric key",
			input: "a.5=x\na[]=w\n",
			want:  obj(kv{"a", obj(kv{"5", "x"}, kv{"6", "w"})}),
		},
		{
			name:  "top level append keeps a map",
			input: "=1\n=2\n",
			want:  obj(kv{"0", 1}, kv{"1", 2}),
		},
		{
			name:  "later value replaces",
			input: "a=1\na=2\n",
			want:  obj(kv{"a", 2}),
		},
		{
			name:  "CRLF and CR endings",
			input: "a=1\r\nb=2\rc=3",
			want:  obj(kv{"a", 1}, kv{"b", 2}, kv{"c", 3}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parse(t, tt.input, DefaultOptions())
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_Flat(t *testing.T) {
	opts := DefaultOptions()
	opts.Hierarchy = false
	input := "a.b=1\nc[]=2\n[s.t]\nx=[1 2]\ny={k:v}\n[general]\nz=3\n"
	want := obj(
		kv{"a.b", 1},
		kv{"c[]", 2},
		kv{"s.t", obj(kv{"x", []any{1, 2}}, kv{"y", obj(kv{"k", "v"})})},
		kv{"z", 3},
	)
	if diff := cmp.Diff(want, parse(t, input, opts)); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_FeaturesDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.Quotes = false
	opts.Lists = nil
	opts.Tokenizer.Sections = false
	input := "a=\"x\"\nb=[1 2]\n[c]\n"
	want := obj(kv{"a", `"x"`}, kv{"b", "[1 2]"}, kv{"[c]", nil})
	if diff := cmp.Diff(want, parse(t, input, opts)); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_CustomSeparators(t *testing.T) {
	opts := DefaultOptions()
	opts.Tokenizer.PairSeparator = ":"
	opts.HierarchySeparator = "/"
	opts.SpecialValues = map[string]any{"JA": true}
	input := "a/b: ja\n[s/t]\nyes: ok\n"
	want := obj(
		kv{"a", obj(kv{"b", true})},
		kv{"s", obj(kv{"t", obj(kv{"yes", "ok"})})},
	)
	if diff := cmp.Diff(want, parse(t, input, opts)); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Handler(t *testing.T) {
	type call struct {
		Section, Key string
		Value        any
	}
	var calls []call
	opts := DefaultOptions()
	opts.Handler = func(section, key string, value any) bool {
		calls = append(calls, call{section, key, flatten(value)})
		return key != "stop"
	}
	input := "a=1\n[s]\nb=[x w]\nstop=\nc=never\n"
	got := parse(t, input, opts)

	if diff := cmp.Diff(obj(), got); diff != "" {
		t.Errorf("Parse() with a handler stored data:\n%s", diff)
	}
	want := []call{
		{"", "a", 1},
		{"s", "b", []any{"x", "w"}},
		{"s", "stop", nil},
	}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("handler calls mismatch (-want +got):\n%s", diff)
	}
}

func TestNewParser_BadOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Lists = append(opts.Lists, tokenizer.Delimiters{Open: "<"})
	if _, err := NewParserWithOptions("", opts); err == nil {
		t.Error("NewParserWithOptions() succeeded with an incomplete list delimiter")
	}
}
