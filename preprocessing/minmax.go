package preprocessing

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/estkit/core/model"
	"github.com/YuminosukeSato/estkit/pkg/errors"
)

// MinMaxScaler maps every feature linearly onto FeatureRange using the
// minimum and maximum seen by Fit. It can replace the default scaler of an
// estimator through estimator.WithScaler.
type MinMaxScaler struct {
	model.BaseEstimator

	DataMin []float64
	DataMax []float64

	// Scale is DataMax - DataMin, or 1 for constant features.
	Scale []float64

	NFeatures    int
	FeatureRange [2]float64
}

// NewMinMaxScaler creates a scaler onto [lo, hi]. lo must be below hi.
func NewMinMaxScaler(lo, hi float64) (*MinMaxScaler, error) {
	if !(lo < hi) {
		return nil, errors.NewValidationError("featureRange", "minimum must be below maximum", [2]float64{lo, hi})
	}
	return &MinMaxScaler{FeatureRange: [2]float64{lo, hi}}, nil
}

// NewMinMaxScalerDefault scales onto [0, 1].
func NewMinMaxScalerDefault() *MinMaxScaler {
	return &MinMaxScaler{FeatureRange: [2]float64{0, 1}}
}

// Fit records the per-feature minimum and maximum.
func (m *MinMaxScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("MinMaxScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	m.NFeatures = c
	m.DataMin = make([]float64, c)
	m.DataMax = make([]float64, c)
	m.Scale = make([]float64, c)

	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		lo, hi := floats.Min(col), floats.Max(col)
		m.DataMin[j], m.DataMax[j] = lo, hi
		m.Scale[j] = 1
		if hi-lo > 1e-8 {
			m.Scale[j] = hi - lo
		}
	}

	m.SetFitted()
	return nil
}

// Transform scales X with the fitted bounds. Values outside the fitted
// range land outside FeatureRange; they are not clipped.
func (m *MinMaxScaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	if err := m.check(X, "Transform"); err != nil {
		return nil, err
	}
	lo, width := m.FeatureRange[0], m.FeatureRange[1]-m.FeatureRange[0]

	r, c := X.Dims()
	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v-m.DataMin[j])/m.Scale[j]*width + lo
	}, X)
	return result, nil
}

// FitTransform fits on X and transforms X.
func (m *MinMaxScaler) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

// InverseTransform maps scaled data back to the original range.
func (m *MinMaxScaler) InverseTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := m.check(X, "InverseTransform"); err != nil {
		return nil, err
	}
	lo, width := m.FeatureRange[0], m.FeatureRange[1]-m.FeatureRange[0]

	r, c := X.Dims()
	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v-lo)/width*m.Scale[j] + m.DataMin[j]
	}, X)
	return result, nil
}

func (m *MinMaxScaler) check(X mat.Matrix, method string) error {
	if !m.IsFitted() {
		return errors.NewNotFittedError("MinMaxScaler", method)
	}
	if _, c := X.Dims(); c != m.NFeatures {
		return errors.NewDimensionError("MinMaxScaler."+method, m.NFeatures, c, 1)
	}
	return nil
}

// GetParams returns the target range.
func (m *MinMaxScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{"feature_range": m.FeatureRange}
}

func (m *MinMaxScaler) String() string {
	return fmt.Sprintf("MinMaxScaler(feature_range=(%g, %g))", m.FeatureRange[0], m.FeatureRange[1])
}
