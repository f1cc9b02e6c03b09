package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/estkit/core/model"
	"github.com/YuminosukeSato/estkit/pkg/errors"
)

// Norm names accepted by Normalizer.
const (
	NormL2  = "l2"
	NormL1  = "l1"
	NormMax = "max"
)

// Normalizer rescales every row to unit norm. It is stateless: Fit only
// records the feature count so Transform can check shapes.
type Normalizer struct {
	model.BaseEstimator

	Norm      string
	NFeatures int
}

// NewNormalizer creates a Normalizer using norm ("l2", "l1" or "max").
func NewNormalizer(norm string) (*Normalizer, error) {
	switch norm {
	case NormL2, NormL1, NormMax:
	default:
		return nil, errors.NewValidationError("norm", "must be one of l2, l1, max", norm)
	}
	return &Normalizer{Norm: norm}, nil
}

// NewNormalizerDefault uses the l2 norm.
func NewNormalizerDefault() *Normalizer {
	return &Normalizer{Norm: NormL2}
}

// Fit records the number of features.
func (n *Normalizer) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("Normalizer.Fit", "empty data", errors.ErrEmptyData)
	}
	n.NFeatures = c
	n.SetFitted()
	return nil
}

// Transform divides each row by its norm. All-zero rows are left as is.
func (n *Normalizer) Transform(X mat.Matrix) (*mat.Dense, error) {
	if !n.IsFitted() {
		return nil, errors.NewNotFittedError("Normalizer", "Transform")
	}
	r, c := X.Dims()
	if c != n.NFeatures {
		return nil, errors.NewDimensionError("Normalizer.Transform", n.NFeatures, c, 1)
	}

	result := mat.DenseCopyOf(X)
	for i := 0; i < r; i++ {
		row := result.RawRowView(i)
		var norm float64
		switch n.Norm {
		case NormL1:
			norm = floats.Norm(row, 1)
		case NormMax:
			norm = floats.Norm(row, math.Inf(1))
		default:
			norm = floats.Norm(row, 2)
		}
		if norm == 0 {
			continue
		}
		floats.Scale(1/norm, row)
	}
	return result, nil
}

// FitTransform fits on X and transforms X.
func (n *Normalizer) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := n.Fit(X); err != nil {
		return nil, err
	}
	return n.Transform(X)
}

// GetParams returns the norm.
func (n *Normalizer) GetParams() map[string]interface{} {
	return map[string]interface{}{"norm": n.Norm}
}

func (n *Normalizer) String() string {
	return fmt.Sprintf("Normalizer(norm=%s)", n.Norm)
}
