package dsv

import (
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Record is one row. Values hold nil (the null sentinel or padding), bool
// (the true/false sentinels), or string. Keys holds the column label of
// each value for associative dialects and is nil for ordered ones.
//
// Example:
//
//	rec, _ := r.ReadRecord()
//	name, _ := rec.Lookup("name")
//	first, _ := rec.Get(0)
type Record struct {
	Keys   []string
	Values []any
}

// Len returns the number of values in the record.
func (r Record) Len() int {
	return len(r.Values)
}

// Associative reports whether the record carries column labels.
func (r Record) Associative() bool {
	return r.Keys != nil
}

// Get returns the value at index i (0-based).
func (r Record) Get(i int) (any, bool) {
	if i < 0 || i >= len(r.Values) {
		return nil, false
	}
	return r.Values[i], true
}

// Lookup returns the value labelled key. Ordered records accept the
// decimal column index as key.
func (r Record) Lookup(key string) (any, bool) {
	if r.Keys == nil {
		i, err := strconv.Atoi(key)
		if err != nil {
			return nil, false
		}
		return r.Get(i)
	}
	for i, k := range r.Keys {
		if k == key && i < len(r.Values) {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Text returns the value labelled key when it is a string.
func (r Record) Text(key string) (string, bool) {
	v, ok := r.Lookup(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// key returns the label of column i.
func (r Record) key(i int) string {
	if r.Keys != nil && i < len(r.Keys) {
		return r.Keys[i]
	}
	return strconv.Itoa(i)
}

// Map returns the record as a map. Ordered records are keyed by decimal
// column index.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.Values))
	for i, v := range r.Values {
		m[r.key(i)] = v
	}
	return m
}

// Ordered returns the record as an insertion-ordered map, preserving
// column order.
func (r Record) Ordered() *orderedmap.OrderedMap[string, any] {
	m := orderedmap.New[string, any](len(r.Values))
	for i, v := range r.Values {
		m.Set(r.key(i), v)
	}
	return m
}
