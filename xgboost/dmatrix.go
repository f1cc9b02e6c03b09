// Package xgboost is a pure Go booster following the XGBoost training API:
// a DMatrix holds features and labels, Train runs a number of boosting rounds
// and returns a Booster. The gbtree and dart boosters are supported for
// regression objectives.
package xgboost

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/estkit/pkg/errors"
)

// DMatrix is a dense feature matrix with optional labels.
type DMatrix struct {
	data  *mat.Dense
	label []float64
}

// NewDMatrix copies X and, when label is non-nil, the labels.
func NewDMatrix(X mat.Matrix, label *mat.VecDense) (*DMatrix, error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "xgboost: DMatrix")
	}
	d := &DMatrix{data: mat.DenseCopyOf(X)}
	if label != nil {
		if label.Len() != r {
			return nil, errors.NewDimensionError("xgboost.NewDMatrix", r, label.Len(), 0)
		}
		d.label = make([]float64, r)
		for i := range d.label {
			d.label[i] = label.AtVec(i)
		}
	}
	return d, nil
}

// NumRow returns the number of samples.
func (d *DMatrix) NumRow() int {
	r, _ := d.data.Dims()
	return r
}

// NumCol returns the number of features.
func (d *DMatrix) NumCol() int {
	_, c := d.data.Dims()
	return c
}

// Label returns the labels, or nil when the matrix has none.
func (d *DMatrix) Label() []float64 {
	return d.label
}
