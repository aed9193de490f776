package dsv

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// row is a generator input normalized to parallel keys and values. keys is
// nil for positional rows.
type row struct {
	keys   []string
	values []any
}

// value returns the value for column i labelled col. Keyed rows are
// matched by label when the writer is associative, else by position.
func (r row) value(i int, col string, associative bool) any {
	if r.keys != nil && associative {
		for j, k := range r.keys {
			if k == col {
				return r.values[j]
			}
		}
		return nil
	}
	if i < len(r.values) {
		return r.values[i]
	}
	return nil
}

// associative reports whether any key is non-numeric.
func (r row) associative() bool {
	for _, k := range r.keys {
		if _, err := strconv.Atoi(k); err != nil {
			return true
		}
	}
	return false
}

// columns returns the labels a first row implies.
func (r row) columns() []string {
	if r.keys != nil {
		return append([]string(nil), r.keys...)
	}
	cols := make([]string, len(r.values))
	for i := range cols {
		cols[i] = strconv.Itoa(i)
	}
	return cols
}

// toRow normalizes one generator input row.
func toRow(v any) (row, error) {
	switch x := v.(type) {
	case Record:
		return row{keys: x.Keys, values: x.Values}, nil
	case *Record:
		return row{keys: x.Keys, values: x.Values}, nil
	case []any:
		return row{values: x}, nil
	case []string:
		values := make([]any, len(x))
		for i, s := range x {
			values[i] = s
		}
		return row{values: values}, nil
	case map[string]any:
		keys := sortedKeys(x)
		values := make([]any, len(keys))
		for i, k := range keys {
			values[i] = x[k]
		}
		return row{keys: keys, values: values}, nil
	case map[string]string:
		keys := sortedKeys(x)
		values := make([]any, len(keys))
		for i, k := range keys {
			values[i] = x[k]
		}
		return row{keys: keys, values: values}, nil
	case *orderedmap.OrderedMap[string, any]:
		r := row{keys: make([]string, 0, x.Len()), values: make([]any, 0, x.Len())}
		for pair := x.Oldest(); pair != nil; pair = pair.Next() {
			r.keys = append(r.keys, pair.Key)
			r.values = append(r.values, pair.Value)
		}
		return r, nil
	}
	return reflectRow(reflect.ValueOf(v))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func reflectRow(rv reflect.Value) (row, error) {
	if !rv.IsValid() {
		return row{}, nil
	}
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return row{}, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		info := getStructInfo(rv.Type())
		r := row{keys: make([]string, len(info.fields)), values: make([]any, len(info.fields))}
		for i, f := range info.fields {
			r.keys[i] = f.name
			fv := rv.FieldByIndex(f.index)
			if f.omitEmpty && fv.IsZero() {
				continue
			}
			r.values[i] = fv.Interface()
		}
		return r, nil
	case reflect.Slice, reflect.Array:
		r := row{values: make([]any, rv.Len())}
		for i := range r.values {
			r.values[i] = rv.Index(i).Interface()
		}
		return r, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return row{}, fmt.Errorf("dsv: map rows need string keys, got %s", rv.Type())
		}
		r := row{keys: make([]string, 0, rv.Len())}
		for _, k := range rv.MapKeys() {
			r.keys = append(r.keys, k.String())
		}
		sort.Strings(r.keys)
		r.values = make([]any, len(r.keys))
		for i, k := range r.keys {
			r.values[i] = rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface()
		}
		return r, nil
	}
	return row{}, fmt.Errorf("dsv: unsupported row type %s", rv.Type())
}

// fieldInfo describes one exported struct field written as a column.
type fieldInfo struct {
	name      string
	index     []int
	omitEmpty bool
}

// structInfo holds cached column metadata for a struct type.
type structInfo struct {
	fields []fieldInfo
}

var typeCache sync.Map // map[reflect.Type]*structInfo

// getStructInfo retrieves or computes the column layout of a struct type.
func getStructInfo(t reflect.Type) *structInfo {
	if cached, ok := typeCache.Load(t); ok {
		return cached.(*structInfo)
	}
	info := &structInfo{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		name, omitEmpty, skip := parseTag(f)
		if skip {
			continue
		}
		info.fields = append(info.fields, fieldInfo{name: name, index: f.Index, omitEmpty: omitEmpty})
	}
	actual, _ := typeCache.LoadOrStore(t, info)
	return actual.(*structInfo)
}

// parseTag reads a `dsv:"name,omitempty"` tag. An empty name keeps the
// field name; "-" skips the field.
func parseTag(f reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := f.Tag.Get("dsv")
	if tag == "-" {
		return "", false, true
	}
	name = f.Name
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

// eachRow calls fn for every element of rows, which must be a slice or
// array. A single Record or ordered map is not a batch.
func eachRow(rows any, fn func(row) error) error {
	switch x := rows.(type) {
	case []Record:
		for i := range x {
			if err := fn(row{keys: x[i].Keys, values: x[i].Values}); err != nil {
				return err
			}
		}
		return nil
	case [][]any:
		for _, v := range x {
			if err := fn(row{values: v}); err != nil {
				return err
			}
		}
		return nil
	}
	rv := reflect.ValueOf(rows)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("dsv: %w, got %T", ErrNotRows, rows)
	}
	for i := 0; i < rv.Len(); i++ {
		r, err := toRow(rv.Index(i).Interface())
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}
