package plan

import (
	"fmt"
	"strconv"
)

type valueKind int

const (
	valueString valueKind = iota
	valueInt
	valueFloat
)

// Value is a scalar operand of a ColFilter: a string or a number.
// Floats are allowed, unlike in the rest of the canonical encoding, because
// filter thresholds are routinely fractional.
type Value struct {
	kind valueKind
	s    string
	i    int64
	f    float64
}

// StringValue wraps a string operand.
func StringValue(s string) Value { return Value{kind: valueString, s: s} }

// IntValue wraps an integer operand.
func IntValue(i int64) Value { return Value{kind: valueInt, i: i} }

// FloatValue wraps a fractional operand.
func FloatValue(f float64) Value { return Value{kind: valueFloat, f: f} }

// NewValue coerces a Go scalar into a Value. Accepted types are string,
// int, int32, int64, float32/float64, and an existing Value.
func NewValue(v any) (Value, error) {
	switch val := v.(type) {
	case Value:
		return val, nil
	case string:
		return StringValue(val), nil
	case int:
		return IntValue(int64(val)), nil
	case int32:
		return IntValue(int64(val)), nil
	case int64:
		return IntValue(val), nil
	case float32:
		return FloatValue(float64(val)), nil
	case float64:
		return FloatValue(val), nil
	default:
		return Value{}, fmt.Errorf("unsupported filter value type %T (want string or number)", v)
	}
}

// IsNumeric reports whether the value is a number.
func (v Value) IsNumeric() bool { return v.kind != valueString }

// IsString reports whether the value is a string.
func (v Value) IsString() bool { return v.kind == valueString }

// Str returns the string payload. Only meaningful when IsString.
func (v Value) Str() string { return v.s }

// Literal renders the value as it appears in generated programs: numbers
// bare, in their shortest round-trip form.
func (v Value) Literal() string {
	switch v.kind {
	case valueInt:
		return strconv.FormatInt(v.i, 10)
	case valueFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return v.s
	}
}

// canonical returns the representation fed to the canonical encoder.
func (v Value) canonical() any {
	switch v.kind {
	case valueInt:
		return v.i
	case valueFloat:
		return v.f
	default:
		return v.s
	}
}
