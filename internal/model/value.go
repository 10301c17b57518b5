package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is a JSON value used as a command argument. The zero Value is null.
// Numbers keep their JSON text, so decoded integers of any size are written
// back unchanged.
type Value struct {
	kind Kind
	str  string
	num  float64
	lit  string // JSON text of a number
	b    bool
	list []Value
	obj  map[string]Value
}

func Null() Value            { return Value{} }
func String(s string) Value  { return Value{kind: KindString, str: s} }
func Number(f float64) Value { return Value{kind: KindNumber, num: f, lit: formatFloat(f)} }
func Int(i int) Value        { return Int64(int64(i)) }
func Int64(i int64) Value {
	return Value{kind: KindNumber, num: float64(i), lit: strconv.FormatInt(i, 10)}
}
func Bool(b bool) Value         { return Value{kind: KindBool, b: b} }
func List(items ...Value) Value { return Value{kind: KindList, list: slices.Clone(items)} }
func Map(m map[string]Value) Value {
	return Value{kind: KindMap, obj: maps.Clone(m)}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) Num() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Int64 returns a number without a fraction as an exact integer.
func (v Value) Int64() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	i, err := strconv.ParseInt(v.lit, 10, 64)
	return i, err == nil
}

// NumberText returns the JSON text of a number.
func (v Value) NumberText() (string, bool) {
	return v.lit, v.kind == KindNumber
}

func (v Value) Boolean() (bool, bool) {
	return v.b, v.kind == KindBool
}

func (v Value) Items() ([]Value, bool) {
	return v.list, v.kind == KindList
}

func (v Value) Fields() (map[string]Value, bool) {
	return v.obj, v.kind == KindMap
}

// Get returns a field of a map value.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	f, ok := v.obj[key]
	return f, ok
}

// With returns a copy of a map value with key set. Non map values are
// treated as an empty map.
func (v Value) With(key string, val Value) Value {
	obj := make(map[string]Value, len(v.obj)+1)
	if v.kind == KindMap {
		maps.Copy(obj, v.obj)
	}
	obj[key] = val
	return Value{kind: KindMap, obj: obj}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return marshalNoEscape(v.str)
	case KindNumber:
		if v.lit != "" {
			return []byte(v.lit), nil
		}
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return marshalNoEscape(v.list)
	case KindMap:
		if v.obj == nil {
			return []byte("{}"), nil
		}
		return marshalNoEscape(v.obj)
	default:
		return nil, fmt.Errorf("marshal value: unknown kind %s", v.kind)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ValueOf converts plain Go data, as produced by encoding/json or yaml.v3
// decoders, into a Value.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("number %s: %w", t, err)
		}
		return Value{kind: KindNumber, num: f, lit: t.String()}, nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Int(t), nil
	case int64:
		return Int64(t), nil
	case uint64:
		return Value{kind: KindNumber, num: float64(t), lit: strconv.FormatUint(t, 10)}, nil
	case []any:
		items := make([]Value, 0, len(t))
		for i, e := range t {
			item, err := ValueOf(e)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items = append(items, item)
		}
		return Value{kind: KindList, list: items}, nil
	case []Value:
		return List(t...), nil
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, e := range t {
			item, err := ValueOf(e)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			obj[k] = item
		}
		return Value{kind: KindMap, obj: obj}, nil
	case map[string]Value:
		return Map(t), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", x)
	}
}

// formatFloat returns the text encoding/json produces for f, empty for
// values JSON can not represent.
func formatFloat(f float64) string {
	b, err := json.Marshal(f)
	if err != nil {
		return ""
	}
	return string(b)
}

func marshalNoEscape(x any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(x); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
