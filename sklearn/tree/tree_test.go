package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/estkit/core/model"
	"github.com/YuminosukeSato/estkit/pkg/errors"
)

var (
	_ model.Regressor       = (*DecisionTreeRegressor)(nil)
	_ model.ParameterGetter = (*DecisionTreeRegressor)(nil)
	_ model.ParameterSetter = (*DecisionTreeRegressor)(nil)
)

func stepData() (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(8, 1, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	y := mat.NewVecDense(8, []float64{1, 1, 1, 1, 5, 5, 5, 5})
	return X, y
}

func TestDecisionTreeRegressor(t *testing.T) {
	t.Run("learns a step function", func(t *testing.T) {
		X, y := stepData()
		reg := NewDecisionTreeRegressor()
		require.NoError(t, reg.Fit(X, y))
		assert.True(t, reg.IsFitted())

		pred, err := reg.Predict(X)
		require.NoError(t, err)
		for i := 0; i < 8; i++ {
			assert.InDelta(t, y.AtVec(i), pred.AtVec(i), 1e-12)
		}
		root := reg.Tree().Nodes[0]
		assert.Equal(t, 0, root.Feature)
		assert.InDelta(t, 4.5, root.Threshold, 1e-12)
		assert.Equal(t, 2, reg.Tree().NumLeaves())
	})

	t.Run("max depth zero keeps growing", func(t *testing.T) {
		X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
		y := mat.NewVecDense(4, []float64{1, 2, 3, 4})
		reg := NewDecisionTreeRegressor()
		require.NoError(t, reg.Fit(X, y))
		assert.Equal(t, 4, reg.Tree().NumLeaves())
	})

	t.Run("max depth one is a stump", func(t *testing.T) {
		X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
		y := mat.NewVecDense(4, []float64{1, 2, 3, 4})
		reg := NewDecisionTreeRegressor(WithMaxDepth(1))
		require.NoError(t, reg.Fit(X, y))
		assert.Equal(t, 1, reg.Tree().Depth())

		pred, err := reg.Predict(mat.NewDense(1, 1, []float64{0}))
		require.NoError(t, err)
		assert.InDelta(t, 1.5, pred.AtVec(0), 1e-12)
	})

	t.Run("min samples leaf", func(t *testing.T) {
		X, y := stepData()
		reg := NewDecisionTreeRegressor(WithMinSamplesLeaf(5))
		require.NoError(t, reg.Fit(X, y))
		assert.Equal(t, 1, reg.Tree().NumLeaves())
	})

	t.Run("predict before fit", func(t *testing.T) {
		_, err := NewDecisionTreeRegressor().Predict(mat.NewDense(1, 1, nil))
		var nf *errors.NotFittedError
		assert.True(t, errors.As(err, &nf))
	})

	t.Run("feature mismatch", func(t *testing.T) {
		X, y := stepData()
		reg := NewDecisionTreeRegressor()
		require.NoError(t, reg.Fit(X, y))
		_, err := reg.Predict(mat.NewDense(1, 2, nil))
		assert.Error(t, err)
	})
}

func TestDecisionTreeParams(t *testing.T) {
	reg := NewDecisionTreeRegressor()
	require.NoError(t, reg.SetParams(map[string]interface{}{"max_depth": 3.0, "min_samples_leaf": 2}))
	assert.Equal(t, 3, reg.GetParams()["max_depth"])
	assert.Equal(t, 2, reg.MinSamplesLeaf)

	assert.Error(t, reg.SetParams(map[string]interface{}{"criterion": "gini"}))
	assert.Contains(t, reg.String(), "max_depth=3")
}

func TestBuilderRegularisation(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	grad := []float64{-1, -1, 1, 1}
	hess := []float64{1, 1, 1, 1}

	t.Run("lambda shrinks leaves", func(t *testing.T) {
		b := &Builder{Params: BuilderParams{MaxDepth: 1, Lambda: 2}, X: X, Grad: grad, Hess: hess}
		tr := b.Build(nil)
		require.Equal(t, 3, len(tr.Nodes))
		// G = -2, H = 2 on the left leaf: -G / (H + lambda) = 0.5
		assert.InDelta(t, 0.5, tr.PredictRow([]float64{1}), 1e-12)
		assert.InDelta(t, -0.5, tr.PredictRow([]float64{4}), 1e-12)
	})

	t.Run("gamma prunes weak splits", func(t *testing.T) {
		b := &Builder{Params: BuilderParams{MaxDepth: 1, Gamma: 100}, X: X, Grad: grad, Hess: hess}
		tr := b.Build(nil)
		assert.Equal(t, 1, tr.NumLeaves())
	})

	t.Run("min child weight", func(t *testing.T) {
		b := &Builder{Params: BuilderParams{MinChildWeight: 3}, X: X, Grad: grad, Hess: hess}
		tr := b.Build(nil)
		assert.Equal(t, 1, tr.NumLeaves())
	})

	t.Run("row subset and scaling", func(t *testing.T) {
		b := &Builder{X: X, Grad: grad, Hess: hess}
		tr := b.Build([]int{0, 1})
		assert.Equal(t, 1, tr.NumLeaves())
		assert.InDelta(t, 1.0, tr.PredictRow([]float64{3}), 1e-12)
		tr.Scale(0.1)
		assert.InDelta(t, 0.1, tr.PredictRow([]float64{3}), 1e-12)
	})
}
