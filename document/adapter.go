package document

import (
	"encoding/json"
	"fmt"
	"math"
)

// FromAny converts a Go value into a typed Value.
//
// This exists as an adapter layer for user input (decoded JSON/YAML, CLI
// flags). Nested lists are rejected.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		return x, x.Validate()
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", x.String(), err)
		}
		return finite(f)
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return fromUint(uint64(x))
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		return fromUint(x)
	case []Value:
		val := List(x...)
		return val, val.Validate()
	case []any:
		arr := make([]Value, len(x))
		for i := range x {
			vv, err := FromAny(x[i])
			if err != nil {
				return Value{}, err
			}
			if vv.Kind == KindList {
				return Value{}, ErrNestedList
			}
			arr[i] = vv
		}
		return List(arr...), nil
	case []string:
		return Strings(x...), nil
	case []int:
		arr := make([]Value, len(x))
		for i := range x {
			arr[i] = Int(int64(x[i]))
		}
		return List(arr...), nil
	case []int64:
		return Ints(x...), nil
	case []float64:
		arr := make([]Value, len(x))
		for i := range x {
			f, err := finite(x[i])
			if err != nil {
				return Value{}, err
			}
			arr[i] = f
		}
		return List(arr...), nil
	case []bool:
		arr := make([]Value, len(x))
		for i := range x {
			arr[i] = Bool(x[i])
		}
		return List(arr...), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", v)
	}
}

// FromMap converts a generic map to a typed Document.
func FromMap(m map[string]any) (Document, error) {
	d := make(Document, len(m))
	for k, v := range m {
		vv, err := FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		d[k] = vv
	}
	return d, nil
}

func finite(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, ErrNonFinite
	}
	return Float(f), nil
}

func fromUint(x uint64) (Value, error) {
	if x > math.MaxInt64 {
		// Avoid silently wrapping large values.
		return Value{}, fmt.Errorf("uint64 out of range: %d", x)
	}
	return Int(int64(x)), nil
}
