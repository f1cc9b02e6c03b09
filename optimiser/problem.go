// Package optimiser packages an objective function and per-variable bounds
// into a Problem and hands it to a metaheuristic solver picked by name from
// a static registry.
//
// Every solver searches the unit cube; Problem.Decode maps a point of the
// cube onto the bounds and rounds it for integer variables, so solvers never
// see the user's coordinates.
package optimiser

import (
	"math"

	"github.com/YuminosukeSato/estkit/pkg/errors"
)

// Objective directions.
const (
	Minimise = "min"
	Maximise = "max"
)

// VarType selects how decoded solutions are represented.
type VarType int

const (
	// FloatVar keeps solutions continuous.
	FloatVar VarType = iota
	// IntegerVar rounds every variable to the nearest integer.
	IntegerVar
)

func (v VarType) String() string {
	if v == IntegerVar {
		return "integer"
	}
	return "float"
}

// ParseVarType converts "float" or "integer" to a VarType.
func ParseVarType(s string) (VarType, error) {
	switch s {
	case "float", "":
		return FloatVar, nil
	case "integer", "int":
		return IntegerVar, nil
	default:
		return FloatVar, errors.NewValidationError("var_type", "must be float or integer", s)
	}
}

// Bounds holds one lower and upper bound per variable.
type Bounds struct {
	Lower   []float64
	Upper   []float64
	VarType VarType
}

// Dim is the number of variables.
func (b Bounds) Dim() int { return len(b.Upper) }

// Validate checks that the bounds are non-empty, paired, finite and
// ordered.
func (b Bounds) Validate() error {
	if len(b.Upper) == 0 {
		return errors.NewValidationError("bounds", "at least one variable is required", nil)
	}
	if len(b.Lower) != len(b.Upper) {
		return errors.NewDimensionError("optimiser.Bounds", len(b.Upper), len(b.Lower), 0)
	}
	for i := range b.Upper {
		lo, hi := b.Lower[i], b.Upper[i]
		if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
			return errors.NewValidationError("bounds", "bounds must be finite", [2]float64{lo, hi})
		}
		if lo > hi {
			return errors.NewValidationError("bounds", "lower bound exceeds upper bound", [2]float64{lo, hi})
		}
		if b.VarType == IntegerVar && math.Ceil(lo) > math.Floor(hi) {
			return errors.NewValidationError("bounds", "no integer between the bounds", [2]float64{lo, hi})
		}
	}
	return nil
}

// Problem is everything a solver needs.
type Problem struct {
	// ObjFunc scores one decoded solution.
	ObjFunc func(solution []float64) float64
	Bounds  Bounds
	MinMax  string
	// LogTo names a file receiving per-epoch progress as JSON lines.
	// Empty means progress goes to the package logger at debug level.
	LogTo string
	// Extra holds solver-specific settings that have no field of their own.
	Extra map[string]interface{}
}

// Validate checks the problem before it reaches a solver.
func (p Problem) Validate() error {
	if p.ObjFunc == nil {
		return errors.NewValidationError("obj_func", "objective function is required", nil)
	}
	if p.MinMax != Minimise && p.MinMax != Maximise {
		return errors.NewValidationError("minmax", "must be min or max", p.MinMax)
	}
	return p.Bounds.Validate()
}

// Decode maps u from the unit cube onto the bounds. Coordinates outside
// [0, 1] are clamped first.
func (p Problem) Decode(u []float64) []float64 {
	out := make([]float64, len(u))
	for i, x := range u {
		x = math.Max(0, math.Min(1, x))
		lo, hi := p.Bounds.Lower[i], p.Bounds.Upper[i]
		v := lo + x*(hi-lo)
		if p.Bounds.VarType == IntegerVar {
			v = math.Max(math.Ceil(lo), math.Min(math.Floor(hi), math.Round(v)))
		}
		out[i] = v
	}
	return out
}

// better reports whether a improves on b in the problem's direction.
func (p Problem) better(a, b float64) bool {
	if p.MinMax == Maximise {
		return a > b
	}
	return a < b
}

// Definition is the user side of an optimisation: a score and upper bounds,
// one per variable.
type Definition interface {
	Score(solution []float64) float64
	UpperBounds() []float64
	// Len is the number of variables.
	Len() int
}

// LowerBounder is implemented by definitions whose lower bounds are not all
// zero.
type LowerBounder interface {
	LowerBounds() []float64
}
