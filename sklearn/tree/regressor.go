package tree

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/estkit/core/model"
	"github.com/YuminosukeSato/estkit/pkg/errors"
)

// DecisionTreeRegressor is a CART regression tree with squared error.
type DecisionTreeRegressor struct {
	model.BaseEstimator

	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int

	tree      *Tree
	nFeatures int
}

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

// WithMaxDepth limits the depth; <= 0 means unlimited.
func WithMaxDepth(d int) Option {
	return func(t *DecisionTreeRegressor) { t.MaxDepth = d }
}

// WithMinSamplesSplit sets the smallest node that may be split.
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the smallest allowed leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesLeaf = n }
}

// NewDecisionTreeRegressor creates a regressor with sklearn defaults
// (unlimited depth, min_samples_split 2, min_samples_leaf 1).
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	t := &DecisionTreeRegressor{MinSamplesSplit: 2, MinSamplesLeaf: 1}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Fit grows the tree. With a zero starting prediction the gradient of the
// squared loss is -y and the hessian is 1, so leaves hold the mean target.
func (t *DecisionTreeRegressor) Fit(X mat.Matrix, y *mat.VecDense) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("DecisionTreeRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != r {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", r, y.Len(), 0)
	}

	grad := make([]float64, r)
	hess := make([]float64, r)
	for i := 0; i < r; i++ {
		grad[i] = -y.AtVec(i)
		hess[i] = 1
	}
	b := &Builder{
		Params: BuilderParams{
			MaxDepth:        t.MaxDepth,
			MinSamplesSplit: t.MinSamplesSplit,
			MinSamplesLeaf:  t.MinSamplesLeaf,
		},
		X:    mat.DenseCopyOf(X),
		Grad: grad,
		Hess: hess,
	}
	t.tree = b.Build(nil)
	t.nFeatures = c
	t.SetFitted()
	return nil
}

// Predict returns the leaf value for each row of X.
func (t *DecisionTreeRegressor) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if !t.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeRegressor", "Predict")
	}
	r, c := X.Dims()
	if c != t.nFeatures {
		return nil, errors.NewDimensionError("DecisionTreeRegressor.Predict", t.nFeatures, c, 1)
	}
	return mat.NewVecDense(r, t.tree.Predict(X)), nil
}

// Tree returns the fitted tree.
func (t *DecisionTreeRegressor) Tree() *Tree {
	return t.tree
}

// GetParams returns the hyperparameters.
func (t *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"max_depth":         t.MaxDepth,
		"min_samples_split": t.MinSamplesSplit,
		"min_samples_leaf":  t.MinSamplesLeaf,
	}
}

// SetParams sets hyperparameters by name.
func (t *DecisionTreeRegressor) SetParams(params map[string]interface{}) error {
	setters := model.Setters{
		"max_depth":         model.IntSetter("max_depth", &t.MaxDepth),
		"min_samples_split": model.IntSetter("min_samples_split", &t.MinSamplesSplit),
		"min_samples_leaf":  model.IntSetter("min_samples_leaf", &t.MinSamplesLeaf),
	}
	for k, v := range params {
		if err := setters.Apply(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (t *DecisionTreeRegressor) String() string {
	return fmt.Sprintf("DecisionTreeRegressor(max_depth=%d, min_samples_split=%d, min_samples_leaf=%d)",
		t.MaxDepth, t.MinSamplesSplit, t.MinSamplesLeaf)
}
