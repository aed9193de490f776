package source

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readBack(t *testing.T, path string) (string, Type) {
	t.Helper()
	src, err := Open(path, OpenOptions{})
	require.NoError(t, err)
	defer src.Close()
	data, err := io.ReadAll(src)
	require.NoError(t, err)
	return string(data), src.Type()
}

func TestMemorySink(t *testing.T) {
	s := NewMemorySink()
	_, err := s.WriteString("a,b\n")
	require.NoError(t, err)
	_, err = s.Write([]byte("1,2\n"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	content, ok := s.Content()
	assert.True(t, ok)
	assert.Equal(t, "a,b\n1,2\n", content)
	assert.Equal(t, TypeString, s.Type())

	_, err = s.WriteString("x")
	assert.ErrorIs(t, err, os.ErrClosed)
	assert.NoError(t, s.Close())
}

func TestNewSink_Compressed(t *testing.T) {
	for _, typ := range []Type{TypeFile, TypeGzip, TypeZstd} {
		t.Run(typ.String(), func(t *testing.T) {
			var buf bytes.Buffer
			s, err := NewSink(&buf, typ)
			require.NoError(t, err)
			_, err = s.WriteString("a\tb\n")
			require.NoError(t, err)
			require.NoError(t, s.Close())
			_, ok := s.Content()
			assert.False(t, ok)

			src, err := FromReader(&buf)
			require.NoError(t, err)
			got, err := io.ReadAll(src)
			require.NoError(t, err)
			assert.Equal(t, "a\tb\n", string(got))
			assert.Equal(t, typ, src.Type())
		})
	}
}

func TestCreate_Extension(t *testing.T) {
	dir := t.TempDir()
	for name, want := range map[string]Type{
		"out.csv":     TypeFile,
		"out.csv.gz":  TypeGzip,
		"out.tsv.zst": TypeZstd,
	} {
		path := filepath.Join(dir, name)
		s, err := Create(path, CreateOptions{})
		require.NoError(t, err)
		assert.Equal(t, want, s.Type(), name)
		assert.False(t, s.Appended())
		_, err = s.WriteString("1,2\n")
		require.NoError(t, err)
		require.NoError(t, s.Close())

		got, typ := readBack(t, path)
		assert.Equal(t, "1,2\n", got, name)
		assert.Equal(t, want, typ, name)
	}
}

func TestCreate_ForcedCompression(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain-name.csv")
	s, err := Create(path, CreateOptions{Compression: TypeGzip})
	require.NoError(t, err)
	_, err = s.WriteString("x\n")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	got, typ := readBack(t, path)
	assert.Equal(t, "x\n", got)
	assert.Equal(t, TypeGzip, typ)
}

func TestCreate_Truncates(t *testing.T) {
	path := writeFile(t, "old.csv", []byte("old content\n"))
	s, err := Create(path, CreateOptions{})
	require.NoError(t, err)
	_, err = s.WriteString("new\n")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	got, _ := readBack(t, path)
	assert.Equal(t, "new\n", got)
}

func TestCreate_Append(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		compression Type
		want        Type
	}{
		{"plain", "data.csv", TypeFile, TypeFile},
		{"existing gzip wins over extension", "data.csv", TypeGzip, TypeGzip},
		{"existing zstd wins over forced gzip", "data.zst", TypeZstd, TypeZstd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)

			first, err := Create(path, CreateOptions{Append: true, Compression: tt.compression})
			require.NoError(t, err)
			assert.False(t, first.Appended(), "a missing file is not appended to")
			_, err = first.WriteString("a\n")
			require.NoError(t, err)
			require.NoError(t, first.Close())

			force := TypeFile
			if tt.want == TypeZstd {
				force = TypeGzip
			}
			second, err := Create(path, CreateOptions{Append: true, Compression: force})
			require.NoError(t, err)
			assert.True(t, second.Appended())
			assert.Equal(t, tt.want, second.Type())
			_, err = second.WriteString("b\n")
			require.NoError(t, err)
			require.NoError(t, second.Close())

			got, typ := readBack(t, path)
			assert.Equal(t, "a\nb\n", got)
			assert.Equal(t, tt.want, typ)
		})
	}
}

func TestCreate_NotAFile(t *testing.T) {
	dir := t.TempDir()
	_, err := Create(dir, CreateOptions{})
	assert.ErrorIs(t, err, ErrNotFile)
	_, err = Create(dir, CreateOptions{Append: true})
	assert.ErrorIs(t, err, ErrNotFile)
}
