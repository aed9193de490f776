package dsv

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// ErrNotStruct indicates a decode target that is not a pointer to a struct
// or to a slice of structs.
var ErrNotStruct = errors.New("dsv: decode target must be a pointer to a struct or a slice of structs")

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

// setter stores one record value into a struct field.
type setter func(field reflect.Value, v any) error

// decodePlan maps the columns of a record layout onto the fields of a
// struct type.
type decodePlan struct {
	// fields maps column index to the struct field index
	fields map[int][]int
	// setters maps column index to a setter for the field type
	setters map[int]setter
}

type planKey struct {
	typ     reflect.Type
	columns string
}

var planCache sync.Map // map[planKey]*decodePlan

// getDecodePlan retrieves or computes the plan for a struct type and a
// column layout. A nil columns slice maps values to fields by position.
func getDecodePlan(t reflect.Type, columns []string) *decodePlan {
	key := planKey{typ: t, columns: strings.Join(columns, "\x00")}
	if columns == nil {
		key.columns = "\x00positional"
	}
	if cached, ok := planCache.Load(key); ok {
		return cached.(*decodePlan)
	}

	info := getStructInfo(t)
	plan := &decodePlan{fields: make(map[int][]int), setters: make(map[int]setter)}
	if columns == nil {
		for i, f := range info.fields {
			plan.fields[i] = f.index
			plan.setters[i] = newSetter(t.FieldByIndex(f.index).Type)
		}
	} else {
		// Column names match tags case-insensitively.
		byName := make(map[string]fieldInfo, len(info.fields))
		for _, f := range info.fields {
			byName[strings.ToLower(f.name)] = f
		}
		for i, col := range columns {
			f, ok := byName[strings.ToLower(col)]
			if !ok {
				continue
			}
			plan.fields[i] = f.index
			plan.setters[i] = newSetter(t.FieldByIndex(f.index).Type)
		}
	}

	actual, _ := planCache.LoadOrStore(key, plan)
	return actual.(*decodePlan)
}

// Decode stores the record in the struct dst points to. Associative
// records fill the fields whose `dsv` tag or name matches a column label,
// ignoring case; ordered records fill fields in declaration order.
//
// nil leaves a field at its zero value. Text is converted to the field
// type; booleans fill bool fields and the text "true" / "false" fields.
// Fields implementing encoding.TextUnmarshaler decode themselves.
func (r Record) Decode(dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w, got %T", ErrNotStruct, dst)
	}
	return r.decode(rv.Elem(), 0)
}

func (r Record) decode(sv reflect.Value, index int) error {
	plan := getDecodePlan(sv.Type(), r.Keys)
	for i, v := range r.Values {
		fieldIdx, ok := plan.fields[i]
		if !ok {
			continue
		}
		if err := plan.setters[i](sv.FieldByIndex(fieldIdx), v); err != nil {
			return &DecodeError{Record: index, Column: r.key(i), Err: err}
		}
	}
	return nil
}

// Unmarshal decodes records into the slice v points to. The slice element
// must be a struct or a pointer to a struct; see Record.Decode.
//
//	records, _ := dsv.Read("people.csv", dsv.DefaultOptions())
//	var people []Person
//	err := dsv.Unmarshal(records, &people)
func Unmarshal(records []Record, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("%w, got %T", ErrNotStruct, v)
	}
	slice := rv.Elem()
	elemType := slice.Type().Elem()
	structType := elemType
	if elemType.Kind() == reflect.Ptr {
		structType = elemType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return fmt.Errorf("%w, got %T", ErrNotStruct, v)
	}

	out := reflect.MakeSlice(slice.Type(), 0, len(records))
	for i, rec := range records {
		sv := reflect.New(structType)
		if err := rec.decode(sv.Elem(), i); err != nil {
			return err
		}
		if elemType.Kind() == reflect.Ptr {
			out = reflect.Append(out, sv)
		} else {
			out = reflect.Append(out, sv.Elem())
		}
	}
	slice.Set(out)
	return nil
}

// newSetter returns a setter for the given field type, chosen once per
// plan rather than per value.
func newSetter(t reflect.Type) setter {
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return func(field reflect.Value, v any) error {
			var text string
			switch x := v.(type) {
			case nil:
				field.Set(reflect.Zero(t))
				return nil
			case bool:
				text = strconv.FormatBool(x)
			case string:
				text = x
			}
			return field.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(text))
		}
	}

	switch t.Kind() {
	case reflect.Ptr:
		elem := newSetter(t.Elem())
		return func(field reflect.Value, v any) error {
			if v == nil {
				field.Set(reflect.Zero(t))
				return nil
			}
			p := reflect.New(t.Elem())
			if err := elem(p.Elem(), v); err != nil {
				return err
			}
			field.Set(p)
			return nil
		}

	case reflect.Interface:
		return func(field reflect.Value, v any) error {
			if v == nil {
				field.Set(reflect.Zero(t))
				return nil
			}
			rv := reflect.ValueOf(v)
			if !rv.Type().AssignableTo(t) {
				return fmt.Errorf("cannot assign %T to %s", v, t)
			}
			field.Set(rv)
			return nil
		}

	case reflect.String:
		return func(field reflect.Value, v any) error {
			switch x := v.(type) {
			case nil:
				field.SetString("")
			case bool:
				field.SetString(strconv.FormatBool(x))
			case string:
				field.SetString(x)
			}
			return nil
		}

	case reflect.Bool:
		return func(field reflect.Value, v any) error {
			switch x := v.(type) {
			case nil:
				field.SetBool(false)
			case bool:
				field.SetBool(x)
			case string:
				if x == "" {
					field.SetBool(false)
					return nil
				}
				b, err := parseBool(x)
				if err != nil {
					return err
				}
				field.SetBool(b)
			}
			return nil
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(field reflect.Value, v any) error {
			s, err := textOf(v)
			if err != nil {
				return err
			}
			if s == "" {
				field.SetInt(0)
				return nil
			}
			i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if err != nil {
				return err
			}
			if field.OverflowInt(i) {
				return fmt.Errorf("value %d overflows %s", i, field.Type())
			}
			field.SetInt(i)
			return nil
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return func(field reflect.Value, v any) error {
			s, err := textOf(v)
			if err != nil {
				return err
			}
			if s == "" {
				field.SetUint(0)
				return nil
			}
			u, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
			if err != nil {
				return err
			}
			if field.OverflowUint(u) {
				return fmt.Errorf("value %d overflows %s", u, field.Type())
			}
			field.SetUint(u)
			return nil
		}

	case reflect.Float32, reflect.Float64:
		return func(field reflect.Value, v any) error {
			s, err := textOf(v)
			if err != nil {
				return err
			}
			if s == "" {
				field.SetFloat(0)
				return nil
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return err
			}
			if field.OverflowFloat(f) {
				return fmt.Errorf("value %v overflows %s", f, field.Type())
			}
			field.SetFloat(f)
			return nil
		}
	}

	return func(field reflect.Value, v any) error {
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
}

// textOf returns the text of a string or nil value for numeric fields.
func textOf(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	}
	return "", fmt.Errorf("cannot convert %T to a number", v)
}

// parseBool accepts true/false, 1/0, and t/f in any case.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "t":
		return true, nil
	case "false", "0", "f":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean value: %q", s)
}
