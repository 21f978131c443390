package model

import (
	"encoding/json"
	"strconv"
)

// ValueKind tags the literal union.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueString
	ValueNumber
	ValueBool
	ValueArray
)

// Value is a JSON literal carried by an evaluation field (a comparison's
// right side, a condition operand, a conditional branch).
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	Arr  []Value
}

func StringValue(s string) Value  { return Value{Kind: ValueString, Str: s} }
func NumberValue(n float64) Value { return Value{Kind: ValueNumber, Num: n} }
func BoolValue(b bool) Value      { return Value{Kind: ValueBool, Bool: b} }
func ArrayValue(vs ...Value) Value {
	return Value{Kind: ValueArray, Arr: vs}
}

// IsString reports whether the literal is a string; reference markers and
// relative-time expressions only ever appear in string literals.
func (v Value) IsString() bool { return v.Kind == ValueString }

// Equal compares literals structurally.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ValueString:
		return v.Str == o.Str
	case ValueNumber:
		return v.Num == o.Num
	case ValueBool:
		return v.Bool == o.Bool
	case ValueArray:
		if len(v.Arr) != len(o.Arr) {
			return false
		}
		for i := range v.Arr {
			if !v.Arr[i].Equal(o.Arr[i]) {
				return false
			}
		}
		return true
	}
	return true // both null
}

// MarshalJSON renders the literal in its canonical JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueString:
		return json.Marshal(v.Str)
	case ValueNumber:
		// strconv keeps integral values free of a trailing ".0" so the
		// canonical form round-trips byte-identically.
		return []byte(strconv.FormatFloat(v.Num, 'f', -1, 64)), nil
	case ValueBool:
		return json.Marshal(v.Bool)
	case ValueArray:
		if v.Arr == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.Arr)
	}
	return []byte("null"), nil
}

func (v Value) String() string {
	b, _ := v.MarshalJSON()
	return string(b)
}
