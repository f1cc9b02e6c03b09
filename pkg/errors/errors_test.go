package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidationError(t *testing.T) {
	tests := []struct {
		name    string
		param   string
		reason  string
		value   interface{}
		wantMsg string
	}{
		{
			name:    "split ratio",
			param:   "splitRatio",
			reason:  "must be in (0, 1]",
			value:   1.5,
			wantMsg: "estkit: validation failed for parameter 'splitRatio': must be in (0, 1] (got: 1.5)",
		},
		{
			name:    "empty target",
			param:   "target",
			reason:  "column not found",
			value:   "price",
			wantMsg: "estkit: validation failed for parameter 'target': column not found (got: price)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.param, tt.reason, tt.value)
			assert.Equal(t, tt.wantMsg, err.Error())

			var vErr *ValidationError
			require.True(t, As(err, &vErr))
			assert.Equal(t, tt.param, vErr.ParamName)

			// cockroachdb/errors attaches a stack trace
			assert.Contains(t, fmt.Sprintf("%+v", err), "errors_test.go")
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 10, 7, 1)
	assert.Equal(t, "estkit: Predict: dimension mismatch on axis 1 (features). Expected 10, got 7", err.Error())

	var dimErr *DimensionError
	assert.True(t, As(err, &dimErr))

	rows := NewDimensionError("Fit", 5, 4, 0)
	assert.Contains(t, rows.Error(), "(rows)")
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("GBDT", "Predict")
	assert.Equal(t, "estkit: GBDT: this model is not fitted yet. Call Train() or Fit() before using Predict()", err.Error())

	var nfErr *NotFittedError
	require.True(t, As(err, &nfErr))
	assert.Equal(t, "GBDT", nfErr.ModelName)
}

func TestNewNotImplementedError(t *testing.T) {
	err := NewNotImplementedError("BoxPacking", "UpperBounds")
	assert.Equal(t, "estkit: BoxPacking doesn't implement UpperBounds", err.Error())

	var niErr *NotImplementedError
	assert.True(t, As(err, &niErr))
}

func TestModelErrorUnwrap(t *testing.T) {
	base := fmt.Errorf("base error")
	wrapped := Wrap(base, "wrapped once")
	err := NewModelError("Train", "fit failed", wrapped)

	assert.Contains(t, err.Error(), "base error")
	assert.Contains(t, err.Error(), "wrapped once")
	assert.True(t, Is(err, base))
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "Predict", 10, 5)
	assert.True(t, Is(wrapped, ErrEmptyData))
	assert.Contains(t, wrapped.Error(), "in Predict: expected 10, got 5")
}

func TestConvergenceWarning(t *testing.T) {
	w := NewConvergenceWarning("MLPRegressor", 200, "")
	assert.True(t, strings.HasPrefix(w.Error(), "MLPRegressor failed to converge after 200 iterations"))

	w = NewConvergenceWarning("MLPRegressor", 200, "loss did not decrease")
	assert.Equal(t, "MLPRegressor failed to converge after 200 iterations: loss did not decrease", w.Error())
}

func TestWarnRouting(t *testing.T) {
	var fallback, structured []error

	SetWarningHandler(func(w error) { fallback = append(fallback, w) })
	defer SetWarningHandler(nil)

	Warn(NewUnknownParameterWarning("xgboost", "colsample_bytree"))
	require.Len(t, fallback, 1)
	assert.Equal(t, "xgboost: parameter 'colsample_bytree' is not used", fallback[0].Error())

	SetZerologWarnFunc(func(w error) { structured = append(structured, w) })
	defer SetZerologWarnFunc(nil)

	Warn(NewConvergenceWarning("KMeans", 50, ""))
	assert.Len(t, fallback, 1)
	assert.Len(t, structured, 1)
}

func TestNumericalHelpers(t *testing.T) {
	assert.NoError(t, CheckNumericalStability("loss", []float64{1, 2, 3}, 0))

	err := CheckNumericalStability("loss", []float64{1, math.NaN(), math.Inf(1)}, 7)
	require.Error(t, err)
	var nErr *NumericalInstabilityError
	require.True(t, As(err, &nErr))
	assert.Equal(t, 7, nErr.Iteration)
	assert.Len(t, nErr.Values, 2)

	assert.Error(t, CheckScalar("grad", math.Inf(-1), 1))
}
