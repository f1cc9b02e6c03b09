package model

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/estkit/pkg/errors"
)

// Params maps a hyperparameter name to a scalar or tuple value. Values are
// int, float64, string, bool or []int.
type Params map[string]interface{}

// Copy returns a shallow copy. Tuple values are copied too.
func (p Params) Copy() Params {
	out := make(Params, len(p))
	for k, v := range p {
		if ints, ok := v.([]int); ok {
			v = append([]int(nil), ints...)
		}
		out[k] = v
	}
	return out
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge returns defaults overlaid with custom. Custom wins on collision and
// default-only keys are preserved. Neither input is modified.
func Merge(defaults, custom Params) Params {
	out := defaults.Copy()
	for k, v := range custom.Copy() {
		out[k] = v
	}
	return out
}

// Int returns the value of key as an int. Integral floats are accepted.
func (p Params) Int(key string) (int, error) {
	v, ok := p[key]
	if !ok {
		return 0, errors.NewValidationError(key, "missing parameter", nil)
	}
	return ToInt(key, v)
}

// Float returns the value of key as a float64. Ints are accepted.
func (p Params) Float(key string) (float64, error) {
	v, ok := p[key]
	if !ok {
		return 0, errors.NewValidationError(key, "missing parameter", nil)
	}
	return ToFloat(key, v)
}

// String returns the value of key as a string.
func (p Params) String(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", errors.NewValidationError(key, "missing parameter", nil)
	}
	return ToString(key, v)
}

// Ints returns the value of key as an int tuple. A single int becomes a
// one-element tuple.
func (p Params) Ints(key string) ([]int, error) {
	v, ok := p[key]
	if !ok {
		return nil, errors.NewValidationError(key, "missing parameter", nil)
	}
	return ToInts(key, v)
}

// ToInt converts v to int. Floats must be integral.
func ToInt(name string, v interface{}) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case int32:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, errors.NewValidationError(name, "expected an integer", v)
		}
		return int(x), nil
	default:
		return 0, errors.NewValidationError(name, fmt.Sprintf("expected an integer, got %T", v), v)
	}
}

// ToFloat converts v to float64.
func ToFloat(name string, v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	default:
		return 0, errors.NewValidationError(name, fmt.Sprintf("expected a number, got %T", v), v)
	}
}

// ToString converts v to string.
func ToString(name string, v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.NewValidationError(name, fmt.Sprintf("expected a string, got %T", v), v)
	}
	return s, nil
}

// ToBool converts v to bool.
func ToBool(name string, v interface{}) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, errors.NewValidationError(name, fmt.Sprintf("expected a bool, got %T", v), v)
	}
	return b, nil
}

// ToInts converts v to an int tuple. []interface{} (as decoded from YAML)
// and []float64 with integral entries are accepted.
func ToInts(name string, v interface{}) ([]int, error) {
	switch x := v.(type) {
	case []int:
		return append([]int(nil), x...), nil
	case []float64:
		out := make([]int, len(x))
		for i, f := range x {
			n, err := ToInt(name, f)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case []interface{}:
		out := make([]int, len(x))
		for i, e := range x {
			n, err := ToInt(name, e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		n, err := ToInt(name, v)
		if err != nil {
			return nil, errors.NewValidationError(name, fmt.Sprintf("expected an int tuple, got %T", v), v)
		}
		return []int{n}, nil
	}
}
