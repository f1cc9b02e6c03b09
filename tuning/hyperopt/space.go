// Package hyperopt tunes hyperparameters by sequential model-based search.
// A Space maps parameter names to distributions; FMin asks an Algorithm
// (random search or TPE) for candidates, evaluates them and records every
// result in Trials. Tuner builds on FMin to tune a model in place with
// cross-validation averaging.
package hyperopt

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/YuminosukeSato/estkit/pkg/errors"
)

// Distribution is a prior over one hyperparameter.
type Distribution interface {
	// Label is the parameter name the distribution was declared with.
	Label() string
	// Sample draws one value.
	Sample(rng *rand.Rand) interface{}
}

// Uniform is a continuous uniform distribution on [Low, High].
type Uniform struct {
	Name      string
	Low, High float64
}

func (u Uniform) Label() string { return u.Name }

func (u Uniform) Sample(rng *rand.Rand) interface{} {
	return u.Low + rng.Float64()*(u.High-u.Low)
}

func (u Uniform) String() string {
	return fmt.Sprintf("uniform(%s, %g, %g)", u.Name, u.Low, u.High)
}

// UniformInt draws integers on [Low, High]. Values are float64 with an
// integral value, the way hyperopt's uniformint reports them; Tuner casts
// them back to int before applying.
type UniformInt struct {
	Name      string
	Low, High int
}

func (u UniformInt) Label() string { return u.Name }

func (u UniformInt) Sample(rng *rand.Rand) interface{} {
	return float64(u.Low + rng.Intn(u.High-u.Low+1))
}

func (u UniformInt) String() string {
	return fmt.Sprintf("uniformint(%s, %d, %d)", u.Name, u.Low, u.High)
}

// clamp rounds x into the support.
func (u UniformInt) clamp(x float64) float64 {
	return math.Max(float64(u.Low), math.Min(float64(u.High), math.Round(x)))
}

// Choice picks one of Options uniformly.
type Choice struct {
	Name    string
	Options []interface{}
}

func (c Choice) Label() string { return c.Name }

func (c Choice) Sample(rng *rand.Rand) interface{} {
	return c.Options[rng.Intn(len(c.Options))]
}

func (c Choice) String() string {
	return fmt.Sprintf("choice(%s, %v)", c.Name, c.Options)
}

// index returns the position of v in Options, or -1.
func (c Choice) index(v interface{}) int {
	for i, o := range c.Options {
		if fmt.Sprint(o) == fmt.Sprint(v) {
			return i
		}
	}
	return -1
}

// Space maps parameter names to distributions.
type Space map[string]Distribution

// Names returns the parameter names in sorted order.
func (s Space) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Copy returns a shallow copy.
func (s Space) Copy() Space {
	out := make(Space, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Validate rejects empty ranges and empty choices.
func (s Space) Validate() error {
	if len(s) == 0 {
		return errors.NewValidationError("space", "no parameters to search", nil)
	}
	for name, d := range s {
		switch v := d.(type) {
		case Uniform:
			if !(v.Low <= v.High) {
				return errors.NewValidationError(name, "low must not exceed high", [2]float64{v.Low, v.High})
			}
		case UniformInt:
			if v.Low > v.High {
				return errors.NewValidationError(name, "low must not exceed high", [2]int{v.Low, v.High})
			}
		case Choice:
			if len(v.Options) == 0 {
				return errors.NewValidationError(name, "choice needs at least one option", nil)
			}
		case nil:
			return errors.NewValidationError(name, "missing distribution", nil)
		}
	}
	return nil
}

// MakeUniformParameter declares a continuous parameter.
func MakeUniformParameter(code string, min, max float64) Distribution {
	return Uniform{Name: code, Low: min, High: max}
}

// MakeUniformIntParameter declares an integer parameter.
func MakeUniformIntParameter(code string, min, max int) Distribution {
	return UniformInt{Name: code, Low: min, High: max}
}

// MakeChoiceParameter declares a categorical parameter.
func MakeChoiceParameter(code string, options ...interface{}) Distribution {
	return Choice{Name: code, Options: options}
}

// CastValueToExpected turns numbers with an integral value into int and
// leaves everything else alone. Some learners reject 3.0 where 3 is meant.
func CastValueToExpected(v interface{}) interface{} {
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) && math.Abs(x) < 1<<53 {
			return int(x)
		}
	case float32:
		f := float64(x)
		if f == math.Trunc(f) && !math.IsInf(f, 0) {
			return int(f)
		}
	}
	return v
}
