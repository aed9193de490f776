package dsv_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	"github.com/shapestone/shape-dsv/pkg/dsv"
)

const pipeYAML = `
pipe:
  newline: "\n"
  delimiter: "|"
  quote: "'"
  escaped_quote: "''"
  quote_mode: quote_strict
  null_value: "NULL"
  true_value: "true"
  false_value: "false"
`

func TestRegistry_Presets(t *testing.T) {
	reg := dsv.NewRegistry()
	if diff := cmp.Diff([]string{"csv", "csv_rfc", "tsv"}, reg.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	tsv, ok := reg.Lookup(dsv.FormatTSV)
	if !ok {
		t.Fatal("Lookup(tsv) failed")
	}
	d := tsv.Resolve()
	if d.Delimiter != "\t" || d.QuoteMode != dsv.QuoteModeEscape || d.NullValue != `\N` {
		t.Errorf("tsv resolves to %v", d)
	}
	if _, ok := reg.Lookup("nope"); ok {
		t.Error("Lookup(nope) succeeded")
	}

	// Lookup hands out copies.
	tsv.Escapes[0].Escaped = "changed"
	again, _ := reg.Lookup(dsv.FormatTSV)
	if again.Escapes[0].Escaped != `\\` {
		t.Error("mutating a looked-up Format changed the registry")
	}
}

func TestRegistry_Register(t *testing.T) {
	reg := dsv.NewRegistry()
	csv, _ := reg.Lookup(dsv.FormatCSV)
	reg.Register("semi", csv.Merge(dsv.Format{Delimiter: dsv.String(";")}))

	got, err := dsv.Parse("a;b\n1;\"2;3\"\n", dsv.Options{Format: "semi", Registry: reg})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := []dsv.Record{rec([]string{"a", "b"}, "1", "2;3")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	if _, err := dsv.Parse("a\n", dsv.Options{Format: "semi"}); !errors.Is(err, dsv.ErrUnknownFormat) {
		t.Errorf("format registered elsewhere leaked into the default registry: %v", err)
	}
}

func TestLoadFormats(t *testing.T) {
	formats, err := dsv.LoadFormats(strings.NewReader(pipeYAML))
	if err != nil {
		t.Fatalf("LoadFormats() error = %v", err)
	}
	pipe, ok := formats["pipe"]
	if !ok {
		t.Fatalf("LoadFormats() = %v, missing pipe", formats)
	}
	d := pipe.Resolve()
	want := dsv.Dialect{
		Newline:      "\n",
		Delimiter:    "|",
		Quote:        "'",
		EscapedQuote: "''",
		QuoteMode:    dsv.QuoteModeStrict,
		NullValue:    "NULL",
		TrueValue:    "true",
		FalseValue:   "false",
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("resolved dialect mismatch (-want +got):\n%s", diff)
	}

	reg := dsv.NewRegistry()
	if err := reg.Load(strings.NewReader(pipeYAML)); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got, err := dsv.Parse("a|b|c\n'x|y'|NULL|\n", dsv.Options{Format: "pipe", Registry: reg})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	// An empty field is plain text here: null is NULL and the booleans are spelled out.
	wantRecords := []dsv.Record{rec([]string{"a", "b", "c"}, "x|y", nil, "")}
	if diff := cmp.Diff(wantRecords, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFormats_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "pipe:\n  delimeter: \"|\"\n"},
		{"unknown quote mode", "pipe:\n  quote_mode: sometimes\n"},
		{"not a mapping", "- csv\n- tsv\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := dsv.LoadFormats(strings.NewReader(tt.doc)); err == nil {
				t.Error("LoadFormats() succeeded, want error")
			}
		})
	}
}

func TestRegistry_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "formats.json")
	doc := `{"semi": {"delimiter": ";", "newline": "\n", "quote": "\"", "escaped_quote": "\"\"", "null_value": "-"}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	reg := dsv.NewRegistry()
	if err := reg.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	got, err := dsv.Parse("a;b\n-;x\n", dsv.Options{Format: "semi", Registry: reg})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]dsv.Record{rec([]string{"a", "b"}, nil, "x")}, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	var ioErr *dsv.IOError
	if err := reg.LoadFile(filepath.Join(dir, "missing.yaml")); !errors.As(err, &ioErr) {
		t.Errorf("LoadFile(missing) error = %v, want *IOError", err)
	}
}

func TestFormat_Merge(t *testing.T) {
	base := dsv.Format{
		Delimiter: dsv.String(","),
		Escapes:   []dsv.Escape{{Literal: "\n", Escaped: `\n`}},
	}
	got := base.Merge(dsv.Format{Quote: dsv.String("'")})
	if *got.Delimiter != "," || *got.Quote != "'" || len(got.Escapes) != 1 {
		t.Errorf("Merge() kept %v", got)
	}
	cleared := base.Merge(dsv.Format{Escapes: []dsv.Escape{}})
	if cleared.Escapes == nil || len(cleared.Escapes) != 0 {
		t.Errorf("an empty Escapes override must clear the table, got %v", cleared.Escapes)
	}
}

func TestDialect_EscapeTable(t *testing.T) {
	d := dsv.Format{
		Delimiter:        dsv.String("|"),
		EscapedNewline:   dsv.String(`\n`),
		EscapedDelimiter: dsv.String(`\p`),
		QuoteMode:        dsv.Mode(dsv.QuoteModeEscape),
		Escapes:          []dsv.Escape{{Literal: `\`, Escaped: `\\`}, {Literal: "\n", Escaped: `\L`}},
	}.Resolve()
	want := []dsv.Escape{
		{Literal: `\`, Escaped: `\\`},
		{Literal: "\n", Escaped: `\L`},
		{Literal: "|", Escaped: `\p`},
	}
	if diff := cmp.Diff(want, d.EscapeTable()); diff != "" {
		t.Errorf("EscapeTable() mismatch (-want +got):\n%s", diff)
	}

	d.QuoteMode = dsv.QuoteModeQuote
	if got := d.EscapeTable(); got != nil {
		t.Errorf("EscapeTable() outside escape modes = %v, want nil", got)
	}
}

func TestDialect_Format(t *testing.T) {
	tsv, _ := dsv.NewRegistry().Lookup(dsv.FormatTSV)
	want := tsv.Resolve()
	csv, _ := dsv.NewRegistry().Lookup(dsv.FormatCSV)
	got := csv.Merge(want.Format()).Resolve()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Dialect.Format over csv mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	reg := dsv.NewRegistry()
	base, _ := reg.Lookup(dsv.FormatCSV)
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("f%d", i)
		g.Go(func() error {
			reg.Register(name, base)
			_, err := dsv.Parse("a\n1\n", dsv.Options{Format: name, Registry: reg})
			return err
		})
		g.Go(func() error {
			_ = reg.Names()
			_ = reg.Formats()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if got := len(reg.Names()); got != 11 {
		t.Errorf("len(Names()) = %d, want 11", got)
	}
}
