package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestRegressionMetrics(t *testing.T) {
	tests := []struct {
		name     string
		yTrue    []float64
		yPred    []float64
		wantMSE  float64
		wantMAE  float64
		wantR2   float64
		tolerance float64
	}{
		{
			name:      "perfect prediction",
			yTrue:     []float64{1, 2, 3, 4, 5},
			yPred:     []float64{1, 2, 3, 4, 5},
			wantMSE:   0,
			wantMAE:   0,
			wantR2:    1,
			tolerance: 1e-12,
		},
		{
			name:      "simple case",
			yTrue:     []float64{1, 2, 3, 4},
			yPred:     []float64{1.5, 2.5, 2.5, 3.5},
			wantMSE:   0.25,
			wantMAE:   0.5,
			wantR2:    1 - 1.0/5.0, // RSS 1, TSS 5
			tolerance: 1e-12,
		},
		{
			name:      "larger errors",
			yTrue:     []float64{10, 20, 30},
			yPred:     []float64{12, 18, 33},
			wantMSE:   17.0 / 3.0,
			wantMAE:   7.0 / 3.0,
			wantR2:    1 - 17.0/200.0,
			tolerance: 1e-12,
		},
		{
			name:      "mean predictor",
			yTrue:     []float64{1, 2, 3},
			yPred:     []float64{2, 2, 2},
			wantMSE:   2.0 / 3.0,
			wantMAE:   2.0 / 3.0,
			wantR2:    0,
			tolerance: 1e-12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yTrue := mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			yPred := mat.NewVecDense(len(tt.yPred), tt.yPred)

			mse, err := MSE(yTrue, yPred)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantMSE, mse, tt.tolerance)

			rmse, err := RMSE(yTrue, yPred)
			require.NoError(t, err)
			assert.InDelta(t, math.Sqrt(tt.wantMSE), rmse, tt.tolerance)

			mae, err := MAE(yTrue, yPred)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantMAE, mae, tt.tolerance)

			r2, err := R2Score(yTrue, yPred)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantR2, r2, tt.tolerance)
		})
	}
}

func TestR2ScoreZeroVariance(t *testing.T) {
	yTrue := mat.NewVecDense(3, []float64{2, 2, 2})

	r2, err := R2Score(yTrue, mat.NewVecDense(3, []float64{2, 2, 2}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, r2)

	r2, err = R2Score(yTrue, mat.NewVecDense(3, []float64{2, 3, 2}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, r2)
}

func TestMetricErrors(t *testing.T) {
	a := mat.NewVecDense(3, []float64{1, 2, 3})
	b := mat.NewVecDense(2, []float64{1, 2})

	_, err := MSE(a, b)
	assert.Error(t, err)
	_, err = MAE(&mat.VecDense{}, &mat.VecDense{})
	assert.Error(t, err)
	_, err = R2Score(a, nil)
	assert.Error(t, err)
	_, err = Evaluate(a, b)
	assert.Error(t, err)
}

func TestEvaluateReport(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{1, 2, 3, 4})
	yPred := mat.NewVecDense(4, []float64{1.5, 2.5, 2.5, 3.5})

	report, err := Evaluate(yTrue, yPred)
	require.NoError(t, err)

	m := report.Map()
	assert.Len(t, m, 3)
	assert.InDelta(t, 0.8, m[KeyR2], 1e-12)
	assert.InDelta(t, 0.5, m[KeyRMSE], 1e-12)
	assert.InDelta(t, 0.5, m[KeyMAE], 1e-12)

	v, err := report.Get("rmse")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v, 1e-12)

	_, err = report.Get("mape")
	assert.Error(t, err)
}
