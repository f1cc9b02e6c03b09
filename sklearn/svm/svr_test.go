package svm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/estkit/core/model"
	"github.com/YuminosukeSato/estkit/pkg/errors"
)

var (
	_ model.Regressor       = (*SVR)(nil)
	_ model.ParameterGetter = (*SVR)(nil)
	_ model.ParameterSetter = (*SVR)(nil)
)

func TestSVRLinear(t *testing.T) {
	n := 40
	X := mat.NewDense(n, 1, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n)
		X.Set(i, 0, x)
		y.SetVec(i, 2*x+1)
	}

	s := NewSVR(WithKernel(KernelLinear), WithC(100), WithEpsilon(0.01))
	require.NoError(t, s.Fit(X, y))
	pred, err := s.Predict(X)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		assert.InDelta(t, y.AtVec(i), pred.AtVec(i), 0.1)
	}
	assert.Positive(t, s.NIter())
}

func TestSVRRBF(t *testing.T) {
	n := 60
	X := mat.NewDense(n, 1, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n) * 2 * math.Pi
		X.Set(i, 0, x)
		y.SetVec(i, math.Sin(x))
	}

	errors.SetWarningHandler(func(error) {})
	s := NewSVR(WithC(10), WithEpsilon(0.05), WithGamma(1), WithRandomState(2))
	require.NoError(t, s.Fit(X, y))
	pred, err := s.Predict(X)
	require.NoError(t, err)

	var mse float64
	for i := 0; i < n; i++ {
		d := pred.AtVec(i) - y.AtVec(i)
		mse += d * d
	}
	assert.Less(t, mse/float64(n), 0.05)
}

func TestSVRTube(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewVecDense(4, []float64{1, -1, 2, -2})

	t.Run("points inside the tube", func(t *testing.T) {
		s := NewSVR(WithKernel(KernelLinear), WithEpsilon(10))
		require.NoError(t, s.Fit(X, y))
		pred, err := s.Predict(X)
		require.NoError(t, err)
		for i := 0; i < 4; i++ {
			assert.Equal(t, 0.0, pred.AtVec(i))
		}
		assert.Equal(t, 1, s.NIter())
	})

	t.Run("zero C", func(t *testing.T) {
		s := NewSVR(WithKernel(KernelLinear), WithC(0))
		require.NoError(t, s.Fit(X, y))
		pred, err := s.Predict(X)
		require.NoError(t, err)
		assert.Equal(t, 0.0, pred.AtVec(0))
	})
}

func TestSVRGamma(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{0, 0, 2, 2})
	s := NewSVR()
	// population variance of {0, 0, 2, 2} is 1
	assert.InDelta(t, 0.5, s.resolveGamma(X), 1e-12)

	s.GammaMode = "auto"
	assert.InDelta(t, 0.5, s.resolveGamma(mat.NewDense(1, 2, []float64{5, 9})), 1e-12)

	s.Gamma = 3
	assert.Equal(t, 3.0, s.resolveGamma(X))
}

func TestSVRParamsAndErrors(t *testing.T) {
	s := NewSVR()
	require.NoError(t, s.SetParams(map[string]interface{}{"C": 5, "epsilon": 0.2, "gamma": 0.7}))
	assert.Equal(t, 5.0, s.C)
	assert.Equal(t, 0.7, s.GetParams()["gamma"])

	require.NoError(t, s.SetParams(map[string]interface{}{"gamma": "auto"}))
	assert.Equal(t, "auto", s.GetParams()["gamma"])
	assert.Error(t, s.SetParams(map[string]interface{}{"degree": 3}))

	_, err := NewSVR().Predict(mat.NewDense(1, 1, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	for _, opt := range []Option{WithKernel("poly"), WithC(-1), WithEpsilon(-0.1), WithMaxIter(0)} {
		err := NewSVR(opt).Fit(mat.NewDense(2, 1, []float64{1, 2}), mat.NewVecDense(2, nil))
		var vErr *errors.ValidationError
		assert.True(t, errors.As(err, &vErr))
	}
}
