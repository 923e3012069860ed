package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind discriminates the representations a Value can take.
type Kind int

const (
	// KindString marks a plain text value.
	KindString Kind = iota
	// KindNumber marks a numeric value (stored as float64).
	KindNumber
	// KindBool marks a boolean value.
	KindBool
	// KindList marks an ordered list of Values.
	KindList
	// KindMap marks an ordered key/value mapping.
	KindMap
)

// Value is the tagged parameter type carried in Task context maps and the
// shared key/value memory. Restricting parameters to
// string | number | bool | list | map keeps the wire shape of the loosely
// typed maps it replaces while gaining static safety: a consumer can switch
// on Kind instead of type-asserting arbitrary interface values.
//
// The zero Value is the empty string. Values are immutable; constructors
// copy their inputs.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []Value
	obj  Params
}

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// NumberValue wraps a number.
func NumberValue(f float64) Value { return Value{kind: KindNumber, num: f} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// ListValue wraps an ordered list of Values.
func ListValue(items ...Value) Value {
	return Value{kind: KindList, list: append([]Value(nil), items...)}
}

// MapValue wraps an ordered set of key/value pairs.
func MapValue(params ...Param) Value {
	return Value{kind: KindMap, obj: append(Params(nil), params...)}
}

// Kind returns the discriminator for this value.
func (v Value) Kind() Kind { return v.kind }

// AsString returns the string representation and whether the value is a string.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsNumber returns the numeric representation and whether the value is a number.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsBool returns the boolean representation and whether the value is a boolean.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsList returns a copy of the list items and whether the value is a list.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return append([]Value(nil), v.list...), true
}

// AsMap returns a copy of the ordered pairs and whether the value is a map.
func (v Value) AsMap() (Params, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return append(Params(nil), v.obj...), true
}

// Interface returns an untyped view of the value suitable for opaque
// payloads (maps become map[string]any and lose ordering).
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.obj))
		for _, p := range v.obj {
			out[p.Key] = p.Value.Interface()
		}
		return out
	default:
		return nil
	}
}

// String implements fmt.Stringer for logging and error messages.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

// MarshalJSON renders the value in its natural JSON shape. Map values keep
// their insertion order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		return json.Marshal(v.list)
	case KindMap:
		return v.obj.MarshalJSON()
	default:
		return []byte("null"), nil
	}
}

// Param is a single ordered context parameter.
type Param struct {
	Key   string
	Value Value
}

// P is a shorthand constructor for a Param.
func P(key string, value Value) Param { return Param{Key: key, Value: value} }

// Params is an insertion-ordered key/value parameter list. Lookups are
// linear; parameter lists are expected to stay small (a handful of entries
// per task).
type Params []Param

// Get returns the value for key and whether it was present. On duplicate
// keys the first entry wins.
func (p Params) Get(key string) (Value, bool) {
	for _, entry := range p {
		if entry.Key == key {
			return entry.Value, true
		}
	}
	return Value{}, false
}

// Clone returns an independent copy of the parameter list.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	return append(Params(nil), p...)
}

// MarshalJSON renders the parameters as a JSON object preserving insertion
// order.
func (p Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := entry.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
