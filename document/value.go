package document

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindInvalid is the zero Kind.
	KindInvalid Kind = iota
	// KindString represents a string value.
	KindString
	// KindInt represents an integer value.
	KindInt
	// KindFloat represents a float value.
	KindFloat
	// KindBool represents a boolean value.
	KindBool
	// KindList represents a list of scalar values.
	KindList
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	default:
		return "invalid"
	}
}

var (
	// ErrNestedList is returned when a list contains another list.
	ErrNestedList = errors.New("lists may only contain scalar values")
	// ErrInvalidKind is returned for values with an unknown kind.
	ErrInvalidKind = errors.New("invalid value kind")
	// ErrNonFinite is returned for NaN or infinite floats.
	ErrNonFinite = errors.New("float value must be finite")
	// ErrInvalidUTF8 is returned for strings that are not valid UTF-8.
	ErrInvalidUTF8 = errors.New("string value must be valid UTF-8")
)

// Value is a scalar or a flat list of scalars.
//
// NOTE: The field layout is the persisted pristine format; keep it stable.
type Value struct {
	Kind Kind    `json:"k" yaml:"k"`
	S    string  `json:"s,omitempty" yaml:"s,omitempty"`
	I64  int64   `json:"i,omitempty" yaml:"i,omitempty"`
	F64  float64 `json:"f,omitempty" yaml:"f,omitempty"`
	B    bool    `json:"b,omitempty" yaml:"b,omitempty"`
	A    []Value `json:"a,omitempty" yaml:"a,omitempty"`
}

// String returns a string Value.
func String(v string) Value { return Value{Kind: KindString, S: v} }

// Int returns an integer Value.
func Int(v int64) Value { return Value{Kind: KindInt, I64: v} }

// Float returns a float Value.
func Float(v float64) Value { return Value{Kind: KindFloat, F64: v} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{Kind: KindBool, B: v} }

// List returns a list Value.
func List(v ...Value) Value { return Value{Kind: KindList, A: v} }

// Strings returns a list Value of strings.
func Strings(v ...string) Value {
	arr := make([]Value, len(v))
	for i := range v {
		arr[i] = String(v[i])
	}
	return List(arr...)
}

// Ints returns a list Value of integers.
func Ints(v ...int64) Value {
	arr := make([]Value, len(v))
	for i := range v {
		arr[i] = Int(v[i])
	}
	return List(arr...)
}

// IsScalar reports whether v holds a single scalar.
func (v Value) IsScalar() bool {
	return v.Kind == KindString || v.Kind == KindInt || v.Kind == KindFloat || v.Kind == KindBool
}

// AsString returns the string value if Kind is KindString.
func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.S, true
}

// AsInt64 returns the integer value if Kind is KindInt.
func (v Value) AsInt64() (int64, bool) {
	if v.Kind != KindInt {
		return 0, false
	}
	return v.I64, true
}

// AsFloat64 returns the float value if Kind is KindFloat.
func (v Value) AsFloat64() (float64, bool) {
	if v.Kind != KindFloat {
		return 0, false
	}
	return v.F64, true
}

// AsBool returns the boolean value if Kind is KindBool.
func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.B, true
}

// AsList returns the elements if Kind is KindList.
func (v Value) AsList() ([]Value, bool) {
	if v.Kind != KindList {
		return nil, false
	}
	return v.A, true
}

// Validate checks that v is a well formed scalar or a flat list of scalars.
func (v Value) Validate() error {
	switch v.Kind {
	case KindString:
		if !utf8.ValidString(v.S) {
			return ErrInvalidUTF8
		}
		return nil
	case KindInt, KindBool:
		return nil
	case KindFloat:
		if math.IsNaN(v.F64) || math.IsInf(v.F64, 0) {
			return ErrNonFinite
		}
		return nil
	case KindList:
		for i := range v.A {
			if v.A[i].Kind == KindList {
				return ErrNestedList
			}
			if err := v.A[i].Validate(); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidKind, v.Kind)
	}
}

// Term returns the canonical index term for v.
//
// Lists are rendered as their element terms joined by a single space.
// The mapping must remain stable: exact-match lookups compare against it.
func (v Value) Term() string {
	switch v.Kind {
	case KindString:
		return v.S
	case KindInt:
		return strconv.FormatInt(v.I64, 10)
	case KindFloat:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.B)
	case KindList:
		parts := make([]string, 0, len(v.A))
		for i := range v.A {
			if v.A[i].IsScalar() {
				parts = append(parts, v.A[i].Term())
			}
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

// Equal reports whether v and o hold the same kind and value.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.S == o.S
	case KindInt:
		return v.I64 == o.I64
	case KindFloat:
		return v.F64 == o.F64
	case KindBool:
		return v.B == o.B
	case KindList:
		if len(v.A) != len(o.A) {
			return false
		}
		for i := range v.A {
			if !v.A[i].Equal(o.A[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Interface returns the plain Go representation of v.
func (v Value) Interface() any {
	switch v.Kind {
	case KindString:
		return v.S
	case KindInt:
		return v.I64
	case KindFloat:
		return v.F64
	case KindBool:
		return v.B
	case KindList:
		out := make([]any, len(v.A))
		for i := range v.A {
			out[i] = v.A[i].Interface()
		}
		return out
	default:
		return nil
	}
}

func (v Value) clone() Value {
	if v.Kind != KindList || len(v.A) == 0 {
		return v
	}
	arr := make([]Value, len(v.A))
	copy(arr, v.A)
	return Value{Kind: KindList, A: arr}
}
