// Package flatten decodes JSON documents into an order-preserving value tree
// and turns that tree into "path: value" records.
package flatten

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Kind identifies the JSON type held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Member is one key/value pair of an object, in source order.
type Member struct {
	Key   string
	Value Value
}

// Value is an immutable JSON value. The zero Value is null.
type Value struct {
	kind    Kind
	boolean bool
	text    string // string contents or the number literal
	items   []Value
	members []Member
}

func Null() Value { return Value{kind: KindNull} }

func Bool(b bool) Value { return Value{kind: KindBool, boolean: b} }

func String(s string) Value { return Value{kind: KindString, text: s} }

func Array(items ...Value) Value {
	return Value{kind: KindArray, items: append([]Value(nil), items...)}
}

// Number builds a number from its literal text, e.g. "1", "2.50", "1e3".
func Number(literal string) Value { return Value{kind: KindNumber, text: literal} }

// Object builds an object from members. Duplicate keys keep the position of the
// first occurrence and the value of the last one, matching decoding.
func Object(members ...Member) Value {
	out := make([]Member, 0, len(members))
	seen := make(map[string]int, len(members))
	for _, m := range members {
		if i, ok := seen[m.Key]; ok {
			out[i].Value = m.Value
			continue
		}
		seen[m.Key] = len(out)
		out = append(out, m)
	}
	return Value{kind: KindObject, members: out}
}

func (v Value) Kind() Kind { return v.kind }

// Members returns a copy of the object's members, or nil for other kinds.
func (v Value) Members() []Member {
	if v.kind != KindObject {
		return nil
	}
	return append([]Member(nil), v.members...)
}

// Items returns a copy of the array's elements, or nil for other kinds.
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	return append([]Value(nil), v.items...)
}

// Len reports the number of members or elements of a container.
func (v Value) Len() int {
	switch v.kind {
	case KindObject:
		return len(v.members)
	case KindArray:
		return len(v.items)
	}
	return 0
}

// Lookup returns the member value stored under key.
func (v Value) Lookup(key string) (Value, bool) {
	for _, m := range v.members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Text renders a scalar the way it appears in a flattened record: strings
// raw, numbers as written in the source, true/false and null. Containers
// render as compact JSON.
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		if v.boolean {
			return "true"
		}
		return "false"
	case KindNumber, KindString:
		return v.text
	}
	raw, err := v.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(raw)
}

func (v Value) String() string { return v.Text() }

// MarshalJSON encodes the value with object members in source order.
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
		buf.WriteString(v.Text())
	case KindNumber:
		buf.WriteString(v.text)
	case KindString:
		raw, err := json.Marshal(v.text)
		if err != nil {
			return err
		}
		buf.Write(raw)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(m.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := m.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown value kind %d", int(v.kind))
	}
	return nil
}

// Parse decodes a complete JSON document.
func Parse(data []byte) (Value, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads exactly one JSON document from r. Anything other than
// whitespace after the top-level value is an error.
func Decode(r io.Reader) (Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		if err == io.EOF {
			return Value{}, errors.New("empty JSON document")
		}
		return Value{}, err
	}
	if tok, err := dec.Token(); err != io.EOF {
		if err != nil {
			return Value{}, fmt.Errorf("trailing data after JSON value: %w", err)
		}
		return Value{}, fmt.Errorf("trailing data after JSON value: unexpected %v", tok)
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t.String()), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return Value{}, fmt.Errorf("unexpected delimiter %q", rune(t))
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}

func decodeObject(dec *json.Decoder) (Value, error) {
	var members []Member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, truncated(err)
		}
		key, ok := tok.(string)
		if !ok {
			return Value{}, fmt.Errorf("object key must be a string, got %v", tok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return Value{}, fmt.Errorf("decode %q: %w", key, err)
		}
		members = append(members, Member{Key: key, Value: val})
	}
	if _, err := dec.Token(); err != nil {
		return Value{}, truncated(err)
	}
	return Object(members...), nil
}

func decodeArray(dec *json.Decoder) (Value, error) {
	items := []Value{}
	for dec.More() {
		val, err := decodeValue(dec)
		if err != nil {
			return Value{}, fmt.Errorf("decode [%d]: %w", len(items), err)
		}
		items = append(items, val)
	}
	if _, err := dec.Token(); err != nil {
		return Value{}, truncated(err)
	}
	return Value{kind: KindArray, items: items}, nil
}

func truncated(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// MustParse is Parse for literals known to be valid. It panics otherwise.
func MustParse(s string) Value {
	v, err := Parse([]byte(strings.TrimSpace(s)))
	if err != nil {
		panic(err)
	}
	return v
}
