package field

import (
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"
)

// Kind enumerates the closed set of value shapes a tracked field can hold.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
)

// Value is a field value: a string, a number, a bool, or null. The zero
// Value is null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

func Null() Value            { return Value{} }
func String(s string) Value  { return Value{kind: KindString, str: s} }
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }

// FromAny converts a decoded JSON value into a Value. Integer kinds are
// widened to float64. Anything outside the closed set reports ok=false.
func FromAny(v any) (Value, bool) {
	switch t := v.(type) {
	case nil:
		return Null(), true
	case Value:
		return t, true
	case string:
		return String(t), true
	case bool:
		return Bool(t), true
	case float64:
		return Number(t), true
	case float32:
		return Number(float64(t)), true
	case int:
		return Number(float64(t)), true
	case int32:
		return Number(float64(t)), true
	case int64:
		return Number(float64(t)), true
	case sonicNumber:
		n, err := t.Float64()
		if err != nil {
			return Null(), false
		}
		return Number(n), true
	default:
		return Null(), false
	}
}

// sonicNumber matches encoding/json.Number and sonic's alias of it.
type sonicNumber interface {
	Float64() (float64, error)
	String() string
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// Equal reports strict equality: kinds must match and the payloads must be
// equal. Null equals only null.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}

// Text renders the value for prompts and user-facing messages.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Interface returns the value as plain Go data for serialization.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return err
	}
	val, ok := FromAny(raw)
	if !ok {
		return fmt.Errorf("field: unsupported value type %T", raw)
	}
	*v = val
	return nil
}
