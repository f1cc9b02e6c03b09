package estimators

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/estkit/core/model"
	"github.com/YuminosukeSato/estkit/dataset"
	"github.com/YuminosukeSato/estkit/estimator"
	"github.com/YuminosukeSato/estkit/tuning/hyperopt"
	"github.com/YuminosukeSato/estkit/xgboost"
)

// XGBoost trains an xgboost.Booster. The round count is not part of the
// parameter map; it is passed to xgboost.Train separately and reported as
// an extra parameter.
type XGBoost struct {
	*estimator.Estimator

	Booster       string
	MaxDepth      int
	LearningRate  float64
	Objective     string
	SampleType    string
	NormaliseType string
	RateDrop      float64
	SkipDrop      float64
	NRounds       int
	Gamma         float64
}

// NewXGBoost creates a DART booster estimator with 100 rounds.
func NewXGBoost(data *dataset.Dataset, target string, opts ...estimator.Option) (*XGBoost, error) {
	x := &XGBoost{
		Booster:       xgboost.BoosterDart,
		MaxDepth:      6,
		LearningRate:  0.1,
		Objective:     "reg:squarederror",
		SampleType:    "uniform",
		NormaliseType: "tree",
		RateDrop:      0.1,
		SkipDrop:      0.5,
		NRounds:       100,
	}
	est, err := estimator.New(data, target, x, opts...)
	if err != nil {
		return nil, err
	}
	x.Estimator = est
	return x, nil
}

// QuickLoadXGBoost reads a CSV file and creates an XGBoost estimator on it.
func QuickLoadXGBoost(path, target string, opts ...estimator.Option) (*XGBoost, error) {
	d, err := dataset.LoadCSV(path)
	if err != nil {
		return nil, err
	}
	return NewXGBoost(d, target, opts...)
}

// Name returns "XGBoost".
func (x *XGBoost) Name() string { return "XGBoost" }

// Params returns the current field values under the regressor's names.
func (x *XGBoost) Params() model.Params {
	return model.Params{
		"booster":        x.Booster,
		"max_depth":      x.MaxDepth,
		"learning_rate":  x.LearningRate,
		"objective":      x.Objective,
		"sample_type":    x.SampleType,
		"normalize_type": x.NormaliseType,
		"rate_drop":      x.RateDrop,
		"skip_drop":      x.SkipDrop,
		"gamma":          x.Gamma,
	}
}

// ExtraParams reports the number of boosting rounds.
func (x *XGBoost) ExtraParams() model.Params {
	return model.Params{"nRounds": x.NRounds}
}

// Fit trains a booster on X and y with params.
func (x *XGBoost) Fit(X mat.Matrix, y *mat.VecDense, params model.Params) (model.Predictor, error) {
	dtrain, err := xgboost.NewDMatrix(X, y)
	if err != nil {
		return nil, err
	}
	b, err := xgboost.Train(params, dtrain, x.NRounds)
	if err != nil {
		return nil, err
	}
	return boosterModel{b}, nil
}

// boosterModel converts inputs to a DMatrix before predicting.
type boosterModel struct {
	*xgboost.Booster
}

// Predict returns one prediction per row of X.
func (m boosterModel) Predict(X mat.Matrix) (*mat.VecDense, error) {
	d, err := xgboost.NewDMatrix(X, nil)
	if err != nil {
		return nil, err
	}
	return m.Booster.Predict(d)
}

// Setters maps tunable names to the fields they update.
func (x *XGBoost) Setters() model.Setters {
	return model.Setters{
		"booster":       model.StringSetter("booster", &x.Booster),
		"maxDepth":      model.IntSetter("maxDepth", &x.MaxDepth),
		"learningRate":  model.FloatSetter("learningRate", &x.LearningRate),
		"objective":     model.StringSetter("objective", &x.Objective),
		"sampleType":    model.StringSetter("sampleType", &x.SampleType),
		"normaliseType": model.StringSetter("normaliseType", &x.NormaliseType),
		"rateDrop":      model.FloatSetter("rateDrop", &x.RateDrop),
		"skipDrop":      model.FloatSetter("skipDrop", &x.SkipDrop),
		"nRounds":       model.IntSetter("nRounds", &x.NRounds),
		"gamma":         model.FloatSetter("gamma", &x.Gamma),
	}
}

// SearchSpace returns the default tuning space, keyed by Setters names.
func (x *XGBoost) SearchSpace() hyperopt.Space {
	return hyperopt.Space{
		"learningRate": hyperopt.MakeUniformParameter("learningRate", 0.03, 0.3),
		"rateDrop":     hyperopt.MakeUniformParameter("rateDrop", 0.01, 0.2),
		"skipDrop":     hyperopt.MakeUniformParameter("skipDrop", 0.3, 0.7),
		"maxDepth":     hyperopt.MakeUniformIntParameter("maxDepth", 2, 10),
		"nRounds":      hyperopt.MakeUniformIntParameter("nRounds", 700, 1200),
	}
}

// Base returns the shared Estimator.
func (x *XGBoost) Base() *estimator.Estimator { return x.Estimator }
