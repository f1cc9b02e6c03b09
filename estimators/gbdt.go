package estimators

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/estkit/core/model"
	"github.com/YuminosukeSato/estkit/dataset"
	"github.com/YuminosukeSato/estkit/estimator"
	"github.com/YuminosukeSato/estkit/sklearn/ensemble"
	"github.com/YuminosukeSato/estkit/tuning/hyperopt"
)

// GBDT wraps ensemble.GradientBoostingRegressor.
type GBDT struct {
	*estimator.Estimator

	NEstimators     int
	LearningRate    float64
	MinSamplesSplit int
	MinSamplesLeaf  int
}

// NewGBDT creates a GBDT estimator with 100 trees, learning rate 0.1 and
// minimum split / leaf sizes of 30 and 24.
func NewGBDT(data *dataset.Dataset, target string, opts ...estimator.Option) (*GBDT, error) {
	g := &GBDT{
		NEstimators:     100,
		LearningRate:    0.1,
		MinSamplesSplit: 30,
		MinSamplesLeaf:  24,
	}
	est, err := estimator.New(data, target, g, opts...)
	if err != nil {
		return nil, err
	}
	g.Estimator = est
	return g, nil
}

// QuickLoadGBDT reads a CSV file and creates a GBDT estimator on it.
func QuickLoadGBDT(path, target string, opts ...estimator.Option) (*GBDT, error) {
	d, err := dataset.LoadCSV(path)
	if err != nil {
		return nil, err
	}
	return NewGBDT(d, target, opts...)
}

// Name returns "GBDT".
func (g *GBDT) Name() string { return "GBDT" }

// Params returns the current field values under the regressor's names.
func (g *GBDT) Params() model.Params {
	return model.Params{
		"learning_rate":     g.LearningRate,
		"n_estimators":      g.NEstimators,
		"min_samples_split": g.MinSamplesSplit,
		"min_samples_leaf":  g.MinSamplesLeaf,
	}
}

// Fit trains a GradientBoostingRegressor on X and y with params.
func (g *GBDT) Fit(X mat.Matrix, y *mat.VecDense, params model.Params) (model.Predictor, error) {
	reg := ensemble.NewGradientBoostingRegressor()
	if err := reg.SetParams(params); err != nil {
		return nil, err
	}
	if err := reg.Fit(X, y); err != nil {
		return nil, err
	}
	return reg, nil
}

// Setters maps tunable names to the fields they update.
func (g *GBDT) Setters() model.Setters {
	return model.Setters{
		"nEstimators":     model.IntSetter("nEstimators", &g.NEstimators),
		"learningRate":    model.FloatSetter("learningRate", &g.LearningRate),
		"minSamplesSplit": model.IntSetter("minSamplesSplit", &g.MinSamplesSplit),
		"minSamplesLeaf":  model.IntSetter("minSamplesLeaf", &g.MinSamplesLeaf),
	}
}

// SearchSpace returns the default tuning space, keyed by Setters names.
func (g *GBDT) SearchSpace() hyperopt.Space {
	return hyperopt.Space{
		"nEstimators":     hyperopt.MakeUniformIntParameter("nEstimators", 500, 2000),
		"learningRate":    hyperopt.MakeUniformParameter("learningRate", 0.01, 0.3),
		"minSamplesSplit": hyperopt.MakeUniformIntParameter("minSamplesSplit", 5, 40),
		"minSamplesLeaf":  hyperopt.MakeUniformIntParameter("minSamplesLeaf", 5, 40),
	}
}

// Base returns the shared Estimator.
func (g *GBDT) Base() *estimator.Estimator { return g.Estimator }
