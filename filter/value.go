package filter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Kind discriminates the scalar forms a Value can carry.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindJSON
	KindTime
	KindBytes
	KindList
)

var kindNames = [...]string{
	KindNull:   "Null",
	KindBool:   "Bool",
	KindInt:    "Int",
	KindFloat:  "Float",
	KindString: "String",
	KindJSON:   "JSON",
	KindTime:   "Time",
	KindBytes:  "Bytes",
	KindList:   "List",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a tagged scalar bound into a SQL statement. The zero Value is
// Null. Values are immutable once constructed.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	by   []byte
	t    time.Time
	list []Value
}

// Null returns the SQL NULL value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns a 64-bit integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a 64-bit float value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a text value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// JSON returns a raw JSON document value.
func JSON(raw json.RawMessage) Value { return Value{kind: KindJSON, by: raw} }

// Time returns a timestamp value.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// Bytes returns a binary value.
func Bytes(p []byte) Value { return Value{kind: KindBytes, by: p} }

// List returns a list value wrapping the given elements.
func List(vs ...Value) Value { return Value{kind: KindList, list: vs} }

// ValueOf coerces a Go value into a Value. Unknown types are formatted with
// fmt.Sprint and stored as text.
func ValueOf(v any) Value {
	switch v := v.(type) {
	case nil:
		return Null()
	case Value:
		return v
	case bool:
		return Bool(v)
	case int:
		return Int(int64(v))
	case int8:
		return Int(int64(v))
	case int16:
		return Int(int64(v))
	case int32:
		return Int(int64(v))
	case int64:
		return Int(v)
	case uint:
		return Int(int64(v))
	case uint8:
		return Int(int64(v))
	case uint16:
		return Int(int64(v))
	case uint32:
		return Int(int64(v))
	case uint64:
		return Int(int64(v))
	case float32:
		return Float(float64(v))
	case float64:
		return Float(v)
	case string:
		return String(v)
	case json.RawMessage:
		return JSON(v)
	case []byte:
		return Bytes(v)
	case time.Time:
		return Time(v)
	case []Value:
		return List(v...)
	case []any:
		vs := make([]Value, len(v))
		for i, e := range v {
			vs[i] = ValueOf(e)
		}
		return List(vs...)
	default:
		return String(fmt.Sprint(v))
	}
}

// ValuesOf coerces a list of Go values.
func ValuesOf(vs ...any) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = ValueOf(v)
	}
	return out
}

// Kind returns the value's kind tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is NULL.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Arg returns the value in a form a database/sql driver accepts.
func (v Value) Arg() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindJSON:
		return string(v.by)
	case KindTime:
		return v.t
	case KindBytes:
		return v.by
	case KindList:
		args := make([]any, len(v.list))
		for i, e := range v.list {
			args[i] = e.Arg()
		}
		return args
	default:
		return nil
	}
}

// Elems returns the elements of a list value, or nil for scalars.
func (v Value) Elems() []Value { return v.list }

// text renders the value for LIKE pattern composition.
func (v Value) text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindJSON, KindBytes:
		return string(v.by)
	default:
		return fmt.Sprint(v.Arg())
	}
}

// String renders the value for diagnostics, e.g. Int(30) or Null.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "Null"
	case KindBool:
		return "Bool(" + strconv.FormatBool(v.b) + ")"
	case KindInt:
		return "Int(" + strconv.FormatInt(v.i, 10) + ")"
	case KindFloat:
		return "Float(" + strconv.FormatFloat(v.f, 'g', -1, 64) + ")"
	case KindString:
		return "String(" + strconv.Quote(v.s) + ")"
	case KindJSON:
		return "JSON(" + string(v.by) + ")"
	case KindTime:
		return "Time(" + v.t.Format(time.RFC3339Nano) + ")"
	case KindBytes:
		return "Bytes(" + strconv.Itoa(len(v.by)) + " bytes)"
	case KindList:
		s := "List("
		for i, e := range v.list {
			if i > 0 {
				s += ", "
			}
			s += e.String()
		}
		return s + ")"
	default:
		return v.kind.String()
	}
}
