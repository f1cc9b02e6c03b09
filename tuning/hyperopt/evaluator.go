package hyperopt

import (
	"context"

	"github.com/YuminosukeSato/estkit/estimator"
	"github.com/YuminosukeSato/estkit/metrics"
	"github.com/YuminosukeSato/estkit/pkg/errors"
)

// EstimatorEvaluator scores an estimator by retraining it and reading one
// metric from Test. R² is negated so that every metric is minimised.
type EstimatorEvaluator struct {
	est    *estimator.Estimator
	metric string
}

// NewEstimatorEvaluator returns an evaluator for est using metric, one of
// "r2", "rmse" or "mae".
func NewEstimatorEvaluator(est *estimator.Estimator, metric string) (*EstimatorEvaluator, error) {
	if est == nil {
		return nil, errors.NewValidationError("estimator", "estimator is required", nil)
	}
	switch metric {
	case metrics.KeyR2, metrics.KeyRMSE, metrics.KeyMAE:
	default:
		return nil, errors.NewValidationError("metric", "must be one of r2, rmse, mae", metric)
	}
	return &EstimatorEvaluator{est: est, metric: metric}, nil
}

// Evaluate retrains on the current partition and returns the test metric.
func (e *EstimatorEvaluator) Evaluate(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := e.est.Train(); err != nil {
		return 0, err
	}
	report, err := e.est.Test()
	if err != nil {
		return 0, err
	}
	v, err := report.Get(e.metric)
	if err != nil {
		return 0, err
	}
	if e.metric == metrics.KeyR2 {
		return -v, nil
	}
	return v, nil
}

// IntermediaryModelChanges reshuffles the dataset so the next round sees a
// fresh split.
func (e *EstimatorEvaluator) IntermediaryModelChanges() error {
	e.est.ShuffleData()
	return nil
}
