package model

import (
	"sort"

	"github.com/YuminosukeSato/estkit/pkg/errors"
)

// Setter assigns one hyperparameter value, converting it to the field's type.
type Setter func(value interface{}) error

// Setters maps hyperparameter names to their setters. It is the explicit
// replacement for assigning attributes by name at runtime.
type Setters map[string]Setter

// Tunable is implemented by anything a tuner can update in place.
type Tunable interface {
	Setters() Setters
}

// Apply sets name to value. Unknown names are an error.
func (s Setters) Apply(name string, value interface{}) error {
	set, ok := s[name]
	if !ok {
		return errors.NewValidationError(name, "unknown hyperparameter", value)
	}
	return set(value)
}

// Names returns the registered names in sorted order.
func (s Setters) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// IntSetter writes into dst. Integral floats are accepted.
func IntSetter(name string, dst *int) Setter {
	return func(value interface{}) error {
		v, err := ToInt(name, value)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

// FloatSetter writes into dst. Ints are accepted, so a float parameter whose
// sampled value happened to be integral still applies.
func FloatSetter(name string, dst *float64) Setter {
	return func(value interface{}) error {
		v, err := ToFloat(name, value)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

// StringSetter writes into dst.
func StringSetter(name string, dst *string) Setter {
	return func(value interface{}) error {
		v, err := ToString(name, value)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

// IntsSetter writes a tuple into dst.
func IntsSetter(name string, dst *[]int) Setter {
	return func(value interface{}) error {
		v, err := ToInts(name, value)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}
