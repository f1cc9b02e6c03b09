package xgboost

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Objective supplies per-sample gradients and hessians of a loss.
type Objective interface {
	Gradient(pred, label float64) float64
	Hessian(pred, label float64) float64
	Loss(pred, label float64) float64
	// BaseScore is the constant starting prediction.
	BaseScore(labels []float64) float64
	Name() string
}

type squaredError struct{}

func (squaredError) Gradient(p, y float64) float64 { return p - y }
func (squaredError) Hessian(float64, float64) float64 { return 1 }
func (squaredError) Loss(p, y float64) float64 {
	d := p - y
	return 0.5 * d * d
}
func (squaredError) BaseScore(labels []float64) float64 { return stat.Mean(labels, nil) }
func (squaredError) Name() string                        { return "reg:squarederror" }

type absoluteError struct{}

func (absoluteError) Gradient(p, y float64) float64 {
	switch {
	case p > y:
		return 1
	case p < y:
		return -1
	}
	return 0
}
func (absoluteError) Hessian(float64, float64) float64 { return 1 }
func (absoluteError) Loss(p, y float64) float64       { return math.Abs(p - y) }
func (absoluteError) BaseScore(labels []float64) float64 {
	s := append([]float64(nil), labels...)
	sort.Float64s(s)
	return stat.Quantile(0.5, stat.Empirical, s, nil)
}
func (absoluteError) Name() string { return "reg:absoluteerror" }

// pseudoHuberError is smooth around zero and linear in the tails. Slope is
// the transition point.
type pseudoHuberError struct {
	slope float64
}

func (o pseudoHuberError) scaled(p, y float64) (z, s float64) {
	z = p - y
	s = math.Sqrt(1 + (z/o.slope)*(z/o.slope))
	return z, s
}

func (o pseudoHuberError) Gradient(p, y float64) float64 {
	z, s := o.scaled(p, y)
	return z / s
}

func (o pseudoHuberError) Hessian(p, y float64) float64 {
	_, s := o.scaled(p, y)
	return 1 / (s * s * s)
}

func (o pseudoHuberError) Loss(p, y float64) float64 {
	_, s := o.scaled(p, y)
	return o.slope * o.slope * (s - 1)
}

func (pseudoHuberError) BaseScore(labels []float64) float64 { return stat.Mean(labels, nil) }
func (pseudoHuberError) Name() string                        { return "reg:pseudohubererror" }

// ObjectiveNames lists the supported objective names.
var ObjectiveNames = []string{"reg:squarederror", "reg:absoluteerror", "reg:pseudohubererror"}

func newObjective(name string, huberSlope float64) (Objective, bool) {
	switch name {
	case "reg:squarederror", "reg:linear":
		return squaredError{}, true
	case "reg:absoluteerror":
		return absoluteError{}, true
	case "reg:pseudohubererror":
		return pseudoHuberError{slope: huberSlope}, true
	}
	return nil, false
}
