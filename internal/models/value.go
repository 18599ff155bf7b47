package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies the shape of a Value. Every payload coming off the wire is
// decoded into exactly one of these variants at the boundary; the rest of the
// pipeline switches on Kind instead of inspecting runtime types ad hoc.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	}
	return "unknown"
}

// Field is a single key/value member of an object Value. Objects keep their
// members as an ordered slice so that key insertion order survives decoding,
// normalization and re-encoding.
type Field struct {
	Key   string
	Value Value
}

// Value is an immutable-by-convention JSON tree node. The zero value is null.
type Value struct {
	kind    Kind
	boolVal bool
	numVal  float64
	strVal  string
	fields  []Field
	items   []Value
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, boolVal: b} }

// Number wraps a float64.
func Number(f float64) Value { return Value{kind: KindNumber, numVal: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, strVal: s} }

// Object builds an object Value from ordered fields.
func Object(fields ...Field) Value {
	return Value{kind: KindObject, fields: append([]Field(nil), fields...)}
}

// Array builds an array Value from ordered items.
func Array(items ...Value) Value {
	return Value{kind: KindArray, items: append([]Value(nil), items...)}
}

// Kind reports the variant of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is the null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload; false for any other variant.
func (v Value) AsBool() bool { return v.kind == KindBool && v.boolVal }

// AsFloat returns the numeric payload and whether the value is a number.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.numVal, true
}

// AsString returns the string payload and whether the value is a string.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.strVal, true
}

// Fields returns the ordered members of an object; nil for other variants.
func (v Value) Fields() []Field { return v.fields }

// Items returns the ordered elements of an array; nil for other variants.
func (v Value) Items() []Value { return v.items }

// Len returns the member/element count for objects and arrays, 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindObject:
		return len(v.fields)
	case KindArray:
		return len(v.items)
	}
	return 0
}

// Get looks up an object member by key.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Null(), false
	}
	for _, f := range v.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Null(), false
}

// GetFirst returns the value of the first key present in the object. Upstream
// sources disagree on casing, so lookups check every known spelling.
func (v Value) GetFirst(keys ...string) (Value, bool) {
	for _, k := range keys {
		if val, ok := v.Get(k); ok {
			return val, true
		}
	}
	return Null(), false
}

// GetPath walks nested objects by successive keys.
func (v Value) GetPath(keys ...string) (Value, bool) {
	cur := v
	for _, k := range keys {
		next, ok := cur.Get(k)
		if !ok {
			return Null(), false
		}
		cur = next
	}
	return cur, true
}

// Set replaces the member with the given key, or appends it if absent. The
// original member position is kept on replace.
func (v *Value) Set(key string, val Value) {
	if v.kind != KindObject {
		return
	}
	for i, f := range v.fields {
		if f.Key == key {
			v.fields[i].Value = val
			return
		}
	}
	v.fields = append(v.fields, Field{Key: key, Value: val})
}

// SetDefault appends the member only when the key is absent.
func (v *Value) SetDefault(key string, val Value) {
	if v.kind != KindObject {
		return
	}
	if _, ok := v.Get(key); ok {
		return
	}
	v.fields = append(v.fields, Field{Key: key, Value: val})
}

// Append adds an element to an array value.
func (v *Value) Append(items ...Value) {
	if v.kind != KindArray {
		return
	}
	v.items = append(v.items, items...)
}

// DecodeJSON parses a JSON document into a Value, preserving object key order.
func DecodeJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Null(), err
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Null(), err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := Value{kind: KindObject}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Null(), err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Null(), fmt.Errorf("object key is not a string: %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Null(), err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // closing '}'
				return Null(), err
			}
			return obj, nil
		case '[':
			arr := Value{kind: KindArray}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Null(), err
				}
				arr.items = append(arr.items, item)
			}
			if _, err := dec.Token(); err != nil { // closing ']'
				return Null(), err
			}
			return arr, nil
		}
		return Null(), fmt.Errorf("unexpected delimiter %q", t)
	case string:
		return String(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Null(), err
		}
		return Number(f), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	}
	return Null(), fmt.Errorf("unexpected token %v", tok)
}

// MarshalJSON encodes the value back to JSON, keeping object key order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.boolVal))
	case KindNumber:
		buf.WriteString(FormatNumber(v.numVal))
	case KindString:
		b, err := json.Marshal(v.strVal)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindObject:
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(f.Key)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := f.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindArray:
		buf.WriteByte('[')
		for i, it := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := it.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	}
	return nil
}

// FormatNumber renders a float the way JSON sources wrote it: integral values
// without a decimal point, everything else in shortest form.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Text renders a scalar value for display cells: strings verbatim, numbers
// and booleans in canonical form, null as the empty string.
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.boolVal)
	case KindNumber:
		return FormatNumber(v.numVal)
	case KindString:
		return v.strVal
	}
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// IsScalar reports whether the value renders safely as a single table cell.
// Objects and arrays of any length, including empty ones, do not.
func (v Value) IsScalar() bool {
	switch v.kind {
	case KindNull, KindBool, KindNumber, KindString:
		return true
	}
	return false
}

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	switch v.kind {
	case KindObject:
		fields := make([]Field, len(v.fields))
		for i, f := range v.fields {
			fields[i] = Field{Key: f.Key, Value: f.Value.Clone()}
		}
		return Value{kind: KindObject, fields: fields}
	case KindArray:
		items := make([]Value, len(v.items))
		for i, it := range v.items {
			items[i] = it.Clone()
		}
		return Value{kind: KindArray, items: items}
	}
	return v
}
