package neural_network

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/estkit/core/model"
	"github.com/YuminosukeSato/estkit/pkg/errors"
)

var (
	_ model.Regressor       = (*MLPRegressor)(nil)
	_ model.ParameterGetter = (*MLPRegressor)(nil)
	_ model.ParameterSetter = (*MLPRegressor)(nil)
)

func planeData(n int) (*mat.Dense, *mat.VecDense) {
	rng := rand.New(rand.NewSource(1))
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		a, b := rng.Float64(), rng.Float64()
		X.Set(i, 0, a)
		X.Set(i, 1, b)
		y.SetVec(i, 2*a-b+0.5)
	}
	return X, y
}

func TestGradientMatchesFiniteDifferences(t *testing.T) {
	for _, act := range []string{"tanh", "logistic", "identity"} {
		t.Run(act, func(t *testing.T) {
			m := NewMLPRegressor(WithActivation(act), WithAlpha(0.1))
			m.layers = []int{2, 3, 1}
			theta := m.initCoefs(rand.New(rand.NewSource(3)))

			X, yv := planeData(5)
			y := mat.NewDense(5, 1, yv.RawVector().Data)
			grad := make([]float64, len(theta))
			m.lossGrad(theta, grad, X, y)

			const h = 1e-6
			scratch := make([]float64, len(theta))
			for i := range theta {
				orig := theta[i]
				theta[i] = orig + h
				up := m.lossGrad(theta, scratch, X, y)
				theta[i] = orig - h
				down := m.lossGrad(theta, scratch, X, y)
				theta[i] = orig
				assert.InDelta(t, (up-down)/(2*h), grad[i], 1e-6, "coef %d", i)
			}
		})
	}
}

func TestMLPRegressorSolvers(t *testing.T) {
	X, y := planeData(80)
	// maxMSE 0 means the solver only has to make progress: full-batch sgd
	// at a step small enough to be stable is still far from the optimum
	// after 1000 epochs.
	tests := []struct {
		solver  string
		maxIter int
		lr      float64
		maxMSE  float64
	}{
		{SolverLBFGS, 500, 0.01, 0.05},
		{SolverAdam, 1000, 0.001, 0.05},
		{SolverSGD, 1000, 0.001, 0},
	}
	for _, tt := range tests {
		t.Run(tt.solver, func(t *testing.T) {
			errors.SetWarningHandler(func(error) {})
			m := NewMLPRegressor(
				WithSolver(tt.solver),
				WithHiddenLayerSizes(8),
				WithActivation("tanh"),
				WithTol(1e-8),
				WithMaxIter(tt.maxIter),
				WithLearningRateInit(tt.lr),
				WithRandomState(1),
			)
			require.NoError(t, m.Fit(X, y))
			require.NotEmpty(t, m.LossCurve)

			pred, err := m.Predict(X)
			require.NoError(t, err)
			if tt.maxMSE == 0 {
				curve := m.LossCurve
				require.Greater(t, len(curve), 1)
				assert.Less(t, curve[len(curve)-1], curve[0])
				return
			}
			var mse float64
			for i := 0; i < 80; i++ {
				d := pred.AtVec(i) - y.AtVec(i)
				mse += d * d
			}
			assert.Less(t, mse/80, tt.maxMSE)
		})
	}
}

func TestMLPRegressorConvergenceWarning(t *testing.T) {
	var warned []error
	errors.SetWarningHandler(func(w error) { warned = append(warned, w) })
	defer errors.SetWarningHandler(func(error) {})

	X, y := planeData(20)
	m := NewMLPRegressor(WithMaxIter(1), WithRandomState(0), WithTol(0))
	require.NoError(t, m.Fit(X, y))
	require.Len(t, warned, 1)
	var cw *errors.ConvergenceWarning
	require.True(t, errors.As(warned[0], &cw))
	assert.Equal(t, 1, cw.Iterations)
}

func TestMLPRegressorReproducible(t *testing.T) {
	errors.SetWarningHandler(func(error) {})
	X, y := planeData(30)
	a := NewMLPRegressor(WithHiddenLayerSizes(4), WithMaxIter(20), WithRandomState(9))
	b := NewMLPRegressor(WithHiddenLayerSizes(4), WithMaxIter(20), WithRandomState(9))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))
	assert.Equal(t, a.LossCurve, b.LossCurve)
}

func TestMLPRegressorErrors(t *testing.T) {
	X, y := planeData(10)

	_, err := NewMLPRegressor().Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	for _, opt := range []Option{
		WithSolver("newton"),
		WithActivation("softplus"),
		WithHiddenLayerSizes(4, 0),
		WithAlpha(-1),
		WithMaxIter(0),
	} {
		err := NewMLPRegressor(opt).Fit(X, y)
		var vErr *errors.ValidationError
		assert.True(t, errors.As(err, &vErr))
	}

	assert.Error(t, NewMLPRegressor().Fit(X, mat.NewVecDense(3, nil)))
}

func TestMLPRegressorParams(t *testing.T) {
	m := NewMLPRegressor()
	require.NoError(t, m.SetParams(map[string]interface{}{
		"hidden_layer_sizes": []interface{}{50, 50.0},
		"max_iter":           300.0,
		"solver":             "lbfgs",
		"alpha":              0.01,
		"random_state":       1,
	}))
	assert.Equal(t, []int{50, 50}, m.HiddenLayerSizes)
	assert.Equal(t, 300, m.MaxIter)
	assert.Equal(t, SolverLBFGS, m.Solver)
	assert.Equal(t, int64(1), m.RandomState)

	params := m.GetParams()
	assert.Equal(t, 0.01, params["alpha"])
	assert.False(t, math.IsNaN(params["tol"].(float64)))

	assert.Error(t, m.SetParams(map[string]interface{}{"warm_start": true}))
}
