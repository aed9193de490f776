package parser

import (
	"strconv"
	"strings"
)

// store accumulates pairs into nested maps. While parsing every container is
// a *Map; lists are maps keyed "0", "1", ... and are turned into []any once
// parsing is done. next tracks the index the next appended value gets, which
// is one past the largest integer key seen so far.
type store struct {
	root      *Map
	hierarchy bool
	sep       string
	next      map[*Map]int
}

func newStore(hierarchy bool, sep string) *store {
	return &store{
		root:      NewMap(),
		hierarchy: hierarchy,
		sep:       sep,
		next:      make(map[*Map]int),
	}
}

func (s *store) add(section, key string, value any) {
	if !s.hierarchy {
		s.addFlat(section, key, value)
		return
	}
	s.addHierarchy(section, key, value)
}

func (s *store) addFlat(section, key string, value any) {
	if section == "" {
		s.root.Set(key, value)
		return
	}
	target, ok := get(s.root, section).(*Map)
	if !ok {
		target = NewMap()
		s.root.Set(section, target)
	}
	target.Set(key, value)
}

func (s *store) addHierarchy(section, key string, value any) {
	parts := strings.Split(key, s.sep)
	if section != "" {
		parts = append(strings.Split(section, s.sep), parts...)
	}
	target := s.root
	for _, part := range parts[:len(parts)-1] {
		target = s.descend(target, part)
	}
	name := parts[len(parts)-1]
	value = s.adopt(value)

	switch {
	case name == "":
		s.push(target, value)
	case strings.HasSuffix(name, "[]"):
		s.appendTo(target, strings.TrimSuffix(name, "[]"), value)
	case strings.HasSuffix(name, "+"):
		name = strings.TrimSuffix(name, "+")
		if src, ok := value.(*Map); ok {
			s.mergeInto(target, name, src)
		} else {
			s.appendTo(target, name, value)
		}
	default:
		s.set(target, name, value)
	}
}

// descend returns the child map at key, creating it, or wrapping a scalar
// found there as the child's first element.
func (s *store) descend(m *Map, key string) *Map {
	switch cur := get(m, key).(type) {
	case *Map:
		return cur
	case nil:
		child := NewMap()
		s.set(m, key, child)
		return child
	default:
		child := NewMap()
		s.push(child, cur)
		s.set(m, key, child)
		return child
	}
}

func (s *store) appendTo(target *Map, name string, value any) {
	if name == "" {
		s.push(target, value)
		return
	}
	switch cur := get(target, name).(type) {
	case *Map:
		s.push(cur, value)
	case nil:
		list := NewMap()
		s.push(list, value)
		s.set(target, name, list)
	default:
		list := NewMap()
		s.push(list, cur)
		s.push(list, value)
		s.set(target, name, list)
	}
}

func (s *store) mergeInto(target *Map, name string, src *Map) {
	if name == "" {
		s.merge(target, src)
		return
	}
	switch cur := get(target, name).(type) {
	case *Map:
		s.merge(cur, src)
	case nil:
		s.set(target, name, src)
	default:
		list := NewMap()
		s.push(list, cur)
		s.merge(list, src)
		s.set(target, name, list)
	}
}

// merge copies src into dst: named keys overwrite in place, integer keys
// are appended.
func (s *store) merge(dst, src *Map) {
	for pair := src.Oldest(); pair != nil; pair = pair.Next() {
		if _, ok := intKey(pair.Key); ok {
			s.push(dst, pair.Value)
			continue
		}
		s.set(dst, pair.Key, pair.Value)
	}
}

// adopt brings a parsed list value under index tracking.
func (s *store) adopt(value any) any {
	switch v := value.(type) {
	case []any:
		m := NewMap()
		for _, item := range v {
			s.push(m, item)
		}
		return m
	case *Map:
		next := 0
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			if n, ok := intKey(pair.Key); ok && n >= next {
				next = n + 1
			}
		}
		s.next[v] = next
	}
	return value
}

func (s *store) set(m *Map, key string, value any) {
	s.next[m] = setIndexed(m, s.next[m], key, value)
}

func (s *store) push(m *Map, value any) {
	s.next[m] = appendIndexed(m, s.next[m], value)
}

func (s *store) result() *Map {
	if s.hierarchy {
		for pair := s.root.Oldest(); pair != nil; pair = pair.Next() {
			pair.Value = normalize(pair.Value)
		}
	}
	return s.root
}

// normalize turns maps keyed exactly "0".."n-1" into []any, depth first.
func normalize(value any) any {
	m, ok := value.(*Map)
	if !ok {
		return value
	}
	list := make([]any, 0, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value = normalize(pair.Value)
		if list != nil && pair.Key == strconv.Itoa(len(list)) {
			list = append(list, pair.Value)
		} else {
			list = nil
		}
	}
	if list == nil {
		return m
	}
	return list
}

func get(m *Map, key string) any {
	v, _ := m.Get(key)
	return v
}

func appendIndexed(m *Map, next int, value any) int {
	m.Set(strconv.Itoa(next), value)
	return next + 1
}

func setIndexed(m *Map, next int, key string, value any) int {
	m.Set(key, value)
	if n, ok := intKey(key); ok && n >= next {
		return n + 1
	}
	return next
}

// intKey reports whether key is the canonical decimal form of an integer.
func intKey(key string) (int, bool) {
	n, err := strconv.Atoi(key)
	if err != nil || strconv.Itoa(n) != key {
		return 0, false
	}
	return n, true
}
