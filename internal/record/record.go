// Package record holds the loosely-shaped JSON records that accumulate on a
// slide as it moves through the pipeline, and the merge rule applied to every
// partial update.
package record

import (
	"encoding/json"
	"fmt"
	"math"
)

// Value is one node of a record tree: a Map, a List, or a Scalar.
type Value interface {
	isValue()
}

// Map is a string-keyed record.
type Map map[string]Value

// List is an ordered sequence of values. Lists are replaced wholesale on merge.
type List []Value

// Scalar wraps a JSON leaf: nil, string, float64 or bool.
type Scalar struct {
	v any
}

func (Map) isValue()    {}
func (List) isValue()   {}
func (Scalar) isValue() {}

// String returns a string scalar.
func String(s string) Scalar { return Scalar{v: s} }

// Number returns a numeric scalar.
func Number(f float64) Scalar { return Scalar{v: f} }

// Int returns a numeric scalar holding i.
func Int(i int) Scalar { return Scalar{v: float64(i)} }

// Bool returns a boolean scalar.
func Bool(b bool) Scalar { return Scalar{v: b} }

// Null returns the explicit null scalar.
func Null() Scalar { return Scalar{} }

// Interface returns the underlying Go value.
func (s Scalar) Interface() any { return s.v }

// IsNull reports whether s is an explicit null.
func (s Scalar) IsNull() bool { return s.v == nil }

// MarshalJSON encodes the wrapped leaf.
func (s Scalar) MarshalJSON() ([]byte, error) { return json.Marshal(s.v) }

// Truthy follows JavaScript truthiness, which is how stage evidence has always
// been judged: null, "", false, 0 and NaN are false; every Map and List is true.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case nil:
		return false
	case Map, List:
		return true
	case Scalar:
		switch x := t.v.(type) {
		case nil:
			return false
		case string:
			return x != ""
		case bool:
			return x
		case float64:
			return x != 0 && !math.IsNaN(x)
		}
		return true
	}
	return false
}

// Clone returns a deep copy of v.
func Clone(v Value) Value {
	switch t := v.(type) {
	case Map:
		return t.Clone()
	case List:
		return t.Clone()
	case nil:
		return Null()
	}
	return v
}

// Clone returns a deep copy of m. A nil map clones to nil.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = Clone(v)
	}
	return out
}

// Clone returns a deep copy of l.
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	for i, v := range l {
		out[i] = Clone(v)
	}
	return out
}

// Without returns a shallow copy of m with keys removed.
func (m Map) Without(keys ...string) Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Only returns a shallow copy of m restricted to keys that are present.
func (m Map) Only(keys ...string) Map {
	out := make(Map, len(keys))
	for _, k := range keys {
		if v, ok := m[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Present reports whether key holds a truthy value.
func (m Map) Present(key string) bool {
	return Truthy(m[key])
}

// Lookup walks a path of nested map keys.
func (m Map) Lookup(path ...string) (Value, bool) {
	var cur Value = m
	for _, key := range path {
		mm, ok := cur.(Map)
		if !ok {
			return nil, false
		}
		cur, ok = mm[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the string at path, or "" when absent or not a string.
func (m Map) String(path ...string) string {
	v, ok := m.Lookup(path...)
	if !ok {
		return ""
	}
	if s, ok := v.(Scalar); ok {
		if str, ok := s.v.(string); ok {
			return str
		}
	}
	return ""
}

// Float returns the number at path.
func (m Map) Float(path ...string) (float64, bool) {
	v, ok := m.Lookup(path...)
	if !ok {
		return 0, false
	}
	if s, ok := v.(Scalar); ok {
		if f, ok := s.v.(float64); ok {
			return f, true
		}
	}
	return 0, false
}

// Bool returns the boolean at path, false when absent.
func (m Map) Bool(path ...string) bool {
	v, _ := m.Lookup(path...)
	if s, ok := v.(Scalar); ok {
		b, _ := s.v.(bool)
		return b
	}
	return false
}

// Map returns the nested map at path, or nil.
func (m Map) Map(path ...string) Map {
	v, _ := m.Lookup(path...)
	mm, _ := v.(Map)
	return mm
}

// List returns the list at path and whether one was found.
func (m Map) List(path ...string) (List, bool) {
	v, _ := m.Lookup(path...)
	l, ok := v.(List)
	return l, ok
}

// MarshalJSON encodes the map with sorted keys.
func (m Map) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	return json.Marshal(ToAny(m))
}

// UnmarshalJSON decodes a JSON object. JSON null decodes to a nil map.
func (m *Map) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*m = nil
		return nil
	}
	*m = FromAny(raw).(Map)
	return nil
}

// MarshalJSON encodes the list.
func (l List) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("null"), nil
	}
	return json.Marshal(ToAny(l))
}

// UnmarshalJSON decodes a JSON array.
func (l *List) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*l = nil
		return nil
	}
	*l = FromAny(raw).(List)
	return nil
}

// FromAny converts decoded JSON or YAML data into a Value tree. Integer types
// become float64 so that records round-trip through JSON unchanged.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case Value:
		return Clone(t)
	case map[string]any:
		out := make(Map, len(t))
		for k, child := range t {
			out[k] = FromAny(child)
		}
		return out
	case []any:
		out := make(List, len(t))
		for i, child := range t {
			out[i] = FromAny(child)
		}
		return out
	case []string:
		out := make(List, len(t))
		for i, s := range t {
			out[i] = String(s)
		}
		return out
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case uint64:
		return Number(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return String(t.String())
		}
		return Number(f)
	}

	// Anything else goes through a JSON round trip.
	data, err := json.Marshal(v)
	if err != nil {
		return String(fmt.Sprint(v))
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return String(fmt.Sprint(v))
	}
	return FromAny(raw)
}

// ToAny converts a Value tree back into plain Go values.
func ToAny(v Value) any {
	switch t := v.(type) {
	case Map:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = ToAny(child)
		}
		return out
	case List:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = ToAny(child)
		}
		return out
	case Scalar:
		return t.v
	}
	return nil
}

// Encode converts any JSON-marshalable value into a Map.
func Encode(v any) (Map, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	return m, nil
}

// EncodeValue converts any JSON-marshalable value into a Value.
func EncodeValue(v any) (Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding value: %w", err)
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("encoding value: %w", err)
	}
	return FromAny(raw), nil
}

// Decode fills out from v using JSON field tags.
func Decode(v Value, out any) error {
	data, err := json.Marshal(ToAny(v))
	if err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}
	return nil
}
