// Package metrics implements the regression scores reported by estimators.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/estkit/pkg/errors"
)

// Report keys.
const (
	KeyR2   = "r2"
	KeyRMSE = "rmse"
	KeyMAE  = "mae"
)

// Report is the result of scoring one set of predictions.
type Report struct {
	R2   float64
	RMSE float64
	MAE  float64
}

// Map returns the report keyed by "r2", "rmse" and "mae".
func (r Report) Map() map[string]float64 {
	return map[string]float64{
		KeyR2:   r.R2,
		KeyRMSE: r.RMSE,
		KeyMAE:  r.MAE,
	}
}

// Get returns the metric stored under key.
func (r Report) Get(key string) (float64, error) {
	v, ok := r.Map()[key]
	if !ok {
		return 0, errors.NewValidationError("metric", "must be one of r2, rmse, mae", key)
	}
	return v, nil
}

// Evaluate computes R², RMSE and MAE in one pass over the inputs.
func Evaluate(yTrue, yPred *mat.VecDense) (Report, error) {
	r2, err := R2Score(yTrue, yPred)
	if err != nil {
		return Report{}, err
	}
	rmse, err := RMSE(yTrue, yPred)
	if err != nil {
		return Report{}, err
	}
	mae, err := MAE(yTrue, yPred)
	if err != nil {
		return Report{}, err
	}
	return Report{R2: r2, RMSE: rmse, MAE: mae}, nil
}

func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.IsEmpty() {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred.IsEmpty() || yPred.Len() != n {
		got := 0
		if !yPred.IsEmpty() {
			got = yPred.Len()
		}
		return 0, errors.NewDimensionError(op, n, got, 0)
	}
	return n, nil
}

// MSE は平均二乗誤差を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// RMSE is the square root of MSE.
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// R2Score は決定係数（R²）を計算する
//
// When yTrue has no variance the score is 1 for a perfect prediction and 0
// otherwise, so callers always get a finite value.
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	truth := mat.Col(nil, 0, yTrue)
	pred := mat.Col(nil, 0, yPred)
	mean := stat.Mean(truth, nil)

	var tss, rss float64
	for i := 0; i < n; i++ {
		tss += (truth[i] - mean) * (truth[i] - mean)
		rss += (truth[i] - pred[i]) * (truth[i] - pred[i])
	}

	if tss == 0 {
		if floats.Equal(truth, pred) {
			return 1, nil
		}
		return 0, nil
	}
	return 1 - rss/tss, nil
}
