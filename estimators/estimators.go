// Package estimators provides the concrete regressors built on
// estimator.Estimator: GBDT, MLP, SVR and XGBoost. Each one owns its
// hyperparameters as exported fields, exposes them to tuners through
// Setters, and declares a default hyperopt search space.
//
//	gbdt, err := estimators.QuickLoadGBDT("prices.csv", "price",
//	    estimator.WithSplitRatio(0.8))
//	if err != nil {
//	    return err
//	}
//	report, err := gbdt.Test()
package estimators

import (
	"sort"

	"github.com/YuminosukeSato/estkit/core/model"
	"github.com/YuminosukeSato/estkit/dataset"
	"github.com/YuminosukeSato/estkit/estimator"
	"github.com/YuminosukeSato/estkit/pkg/errors"
	"github.com/YuminosukeSato/estkit/tuning/hyperopt"
)

// Model names accepted by New.
const (
	KindGBDT    = "gbdt"
	KindMLP     = "mlp"
	KindSVR     = "svr"
	KindXGBoost = "xgboost"
)

// Wrapper is implemented by every concrete estimator.
type Wrapper interface {
	model.Tunable

	// SearchSpace returns the default hyperopt space, keyed like Setters.
	SearchSpace() hyperopt.Space

	// Base returns the shared train/test surface.
	Base() *estimator.Estimator
}

type constructor func(*dataset.Dataset, string, ...estimator.Option) (Wrapper, error)

var constructors = map[string]constructor{
	KindGBDT: func(d *dataset.Dataset, target string, opts ...estimator.Option) (Wrapper, error) {
		return NewGBDT(d, target, opts...)
	},
	KindMLP: func(d *dataset.Dataset, target string, opts ...estimator.Option) (Wrapper, error) {
		return NewMLP(d, target, opts...)
	},
	KindSVR: func(d *dataset.Dataset, target string, opts ...estimator.Option) (Wrapper, error) {
		return NewSVR(d, target, opts...)
	},
	KindXGBoost: func(d *dataset.Dataset, target string, opts ...estimator.Option) (Wrapper, error) {
		return NewXGBoost(d, target, opts...)
	},
}

// Names lists the model names accepted by New.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for k := range constructors {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// New builds the estimator registered under kind.
func New(kind string, data *dataset.Dataset, target string, opts ...estimator.Option) (Wrapper, error) {
	c, ok := constructors[kind]
	if !ok {
		return nil, errors.NewValidationError("model", "must be one of gbdt, mlp, svr, xgboost", kind)
	}
	return c(data, target, opts...)
}

// QuickLoad reads a CSV file and builds the estimator registered under kind.
func QuickLoad(kind, path, target string, opts ...estimator.Option) (Wrapper, error) {
	d, err := dataset.LoadCSV(path)
	if err != nil {
		return nil, err
	}
	return New(kind, d, target, opts...)
}

// Configure applies params to w's hyperparameter fields in key order.
// Names are the Setters keys (camelCase), not the learner's own keys.
func Configure(w Wrapper, params model.Params) error {
	setters := w.Setters()
	for _, k := range params.Keys() {
		if err := setters.Apply(k, params[k]); err != nil {
			return err
		}
	}
	return nil
}
