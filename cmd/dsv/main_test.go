package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shapestone/shape-dsv/pkg/dsv"
	"github.com/shapestone/shape-dsv/pkg/ini"
)

const people = "name,age\nAlice,30\nBob,25\nCarol,41\nDan,19\nEve,52\n"

// run executes the root command in process and returns what it wrote to
// standard output.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv(envFormats, "")
	t.Setenv(envChunkSize, "")

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCat(t *testing.T) {
	path := writeFile(t, "people.csv", "name,age\nAlice,30\nBob,25\n")

	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{
			name: "same format",
			args: []string{"cat", path},
			want: "name,age\nAlice,30\nBob,25\n",
		},
		{
			name: "to tsv",
			args: []string{"convert", "--to", "tsv", path},
			want: "name\tage\nAlice\t30\nBob\t25\n",
		},
		{
			name:  "stdin without header",
			stdin: "a,b\nc,d\n",
			args:  []string{"cat", "--no-header", "-"},
			want:  "a,b\nc,d\n",
		},
		{
			name: "two files share one header",
			args: []string{"cat", path, path},
			want: "name,age\nAlice,30\nBob,25\nAlice,30\nBob,25\n",
		},
		{
			name:  "small batches",
			stdin: people,
			args:  []string{"cat", "--batch", "2", "-"},
			want:  people,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, tt.stdin, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCat_CompressedOutput(t *testing.T) {
	in := writeFile(t, "people.csv", people)
	out := filepath.Join(t.TempDir(), "people.csv.zst")

	got, err := run(t, "", "cat", "-o", out, in)
	require.NoError(t, err)
	assert.Empty(t, got)

	want, err := dsv.Parse(people, dsv.DefaultOptions())
	require.NoError(t, err)
	records, err := dsv.Read(out, dsv.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, want, records)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotEqual(t, people, string(raw))
}

func TestCat_Errors(t *testing.T) {
	path := writeFile(t, "people.csv", people)

	_, err := run(t, "", "cat")
	require.Error(t, err)

	_, err = run(t, "", "cat", "--to", "nope", path)
	require.ErrorIs(t, err, dsv.ErrUnknownFormat)

	_, err = run(t, "", "cat", filepath.Join(t.TempDir(), "missing.csv"))
	var ioErr *dsv.IOError
	require.ErrorAs(t, err, &ioErr)
}

func TestCount(t *testing.T) {
	a := writeFile(t, "a.csv", people)
	b := writeFile(t, "b.csv", "x\n1\n2\n")

	got, err := run(t, "", "count", a, b)
	require.NoError(t, err)
	assert.Equal(t, "5\t"+a+"\n2\t"+b+"\n7\ttotal\n", got)

	got, err = run(t, "", "count", "-j", "1", a)
	require.NoError(t, err)
	assert.Equal(t, "5\t"+a+"\n", got)

	got, err = run(t, "a\nb\nc\n", "count", "--no-header", "-")
	require.NoError(t, err)
	assert.Equal(t, "3\t-\n", got)
}

func TestCount_MissingFile(t *testing.T) {
	a := writeFile(t, "a.csv", people)
	missing := filepath.Join(t.TempDir(), "missing.csv")

	_, err := run(t, "", "count", a, missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), missing)
}

func TestSlice(t *testing.T) {
	path := writeFile(t, "people.csv", people)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "range", args: []string{"--start", "1", "--max", "2"}, want: "Bob,25\nCarol,41\n"},
		{name: "rest", args: []string{"--start", "3"}, want: "Dan,19\nEve,52\n"},
		{name: "all", want: "Alice,30\nBob,25\nCarol,41\nDan,19\nEve,52\n"},
		{name: "past the end", args: []string{"--start", "10"}, want: ""},
		{name: "with header", args: []string{"--max", "1", "--with-header"}, want: "name,age\nAlice,30\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, "", append([]string{"slice", path}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := run(t, "", "slice", path, "--max", "-1")
	var optErr *dsv.OptionsError
	require.ErrorAs(t, err, &optErr)
}

func TestSlice_KeepsQuoting(t *testing.T) {
	in := "a,b\n\"x,1\",\"y\"\"\"\nplain,2\n"
	got, err := run(t, in, "slice", "-", "--max", "1")
	require.NoError(t, err)
	assert.Equal(t, "\"x,1\",\"y\"\"\"\n", got)
}

func TestShow(t *testing.T) {
	path := writeFile(t, "people.csv", people)

	got, err := run(t, "", "show", "-n", "2", path)
	require.NoError(t, err)
	assert.Contains(t, got, "name")
	assert.Contains(t, got, "Alice")
	assert.Contains(t, got, "Bob")
	assert.NotContains(t, got, "Carol")

	got, err = run(t, "", "show", "-n", "0", path)
	require.NoError(t, err)
	assert.Contains(t, got, "Eve")
}

func TestDisplayValue(t *testing.T) {
	assert.Equal(t, "NULL", displayValue(nil))
	assert.Equal(t, "true", displayValue(true))
	assert.Equal(t, "text", displayValue("text"))
}

const pipeFormats = `
pipe:
  delimiter: "|"
  quote: "'"
  escaped_quote: "''"
`

func TestFormats(t *testing.T) {
	got, err := run(t, "", "formats")
	require.NoError(t, err)
	for _, name := range []string{dsv.FormatCSV, dsv.FormatCSVRFC, dsv.FormatTSV} {
		assert.Contains(t, got, name)
	}
	assert.NotContains(t, got, "pipe")

	file := writeFile(t, "formats.yaml", pipeFormats)
	got, err = run(t, "", "--formats", file, "formats")
	require.NoError(t, err)
	assert.Contains(t, got, "pipe")
	assert.Contains(t, got, `"|"`)
}

func TestEnvironment(t *testing.T) {
	file := writeFile(t, "formats.yaml", pipeFormats)
	data := writeFile(t, "people.csv", "name,age\nAlice,30\n")

	t.Run("formats file", func(t *testing.T) {
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"cat", "--to", "pipe", data})
		t.Setenv(envFormats, `"`+file+`"`)
		require.NoError(t, cmd.Execute())
		assert.Equal(t, "name|age\nAlice|30\n", out.String())
	})

	t.Run("bad chunk size", func(t *testing.T) {
		cmd := newRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"count", data})
		t.Setenv(envChunkSize, "lots")
		err := cmd.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), envChunkSize)
	})

	t.Run("chunk size", func(t *testing.T) {
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"count", data})
		t.Setenv(envChunkSize, "4")
		require.NoError(t, cmd.Execute())
		assert.Equal(t, "1\t"+data+"\n", out.String())
	})
}

func TestVerboseLogsToStderr(t *testing.T) {
	path := writeFile(t, "people.csv", people)
	t.Setenv(envFormats, "")
	t.Setenv(envChunkSize, "")

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"-v", "count", path})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, stderr.String(), "level=DEBUG")
	assert.Contains(t, stderr.String(), "records=5")
	assert.NotContains(t, stdout.String(), "level=")
}

func TestIni(t *testing.T) {
	path := writeFile(t, "app.ini", "[db]\nhost = localhost\nports = [5432 5433]\n\n[general]\ndebug = yes\nnothing = NULL\n")

	t.Run("table", func(t *testing.T) {
		got, err := run(t, "", "ini", path)
		require.NoError(t, err)
		for _, s := range []string{"KEY", "db.host", "localhost", "db.ports.1", "5433", "debug", "NULL"} {
			assert.Contains(t, got, s)
		}
	})

	t.Run("to csv", func(t *testing.T) {
		got, err := run(t, "", "ini", "--to", "csv", path)
		require.NoError(t, err)
		assert.Equal(t, "key,value\ndb.host,localhost\ndb.ports.0,5432\ndb.ports.1,5433\ndebug,true\nnothing,NULL\n", got)
	})

	t.Run("flat", func(t *testing.T) {
		flat := writeFile(t, "flat.ini", "a.b = 1\n")
		got, err := run(t, "", "ini", "--flat", "--to", "csv", flat)
		require.NoError(t, err)
		assert.Equal(t, "key,value\na.b,1\n", got)
	})

	t.Run("stdin", func(t *testing.T) {
		got, err := run(t, "x = 1\n", "ini", "--to", "csv", "-")
		require.NoError(t, err)
		assert.Equal(t, "key,value\nx,1\n", got)
	})

	t.Run("output", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "app.ini.gz")
		got, err := run(t, "", "ini", "-o", out, path)
		require.NoError(t, err)
		assert.Empty(t, got)

		want, err := ini.Read(path, ini.DefaultParserOptions())
		require.NoError(t, err)
		back, err := ini.Read(out, ini.DefaultParserOptions())
		require.NoError(t, err)
		assert.Equal(t, flattenINI(want, "", nil), flattenINI(back, "", nil))
	})
}

func TestFlattenINI(t *testing.T) {
	doc := ini.NewMap()
	inner := ini.NewMap()
	inner.Set("empty", []any{})
	inner.Set("list", []any{"a", nil})
	doc.Set("top", inner)
	doc.Set("n", 1.5)

	want := []iniPair{
		{key: "top.empty", value: "[]"},
		{key: "top.list.0", value: "a"},
		{key: "top.list.1", value: "NULL"},
		{key: "n", value: "1.5"},
	}
	assert.Equal(t, want, flattenINI(doc, "", nil))
}
