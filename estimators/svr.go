package estimators

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/estkit/core/model"
	"github.com/YuminosukeSato/estkit/dataset"
	"github.com/YuminosukeSato/estkit/estimator"
	"github.com/YuminosukeSato/estkit/sklearn/svm"
	"github.com/YuminosukeSato/estkit/tuning/hyperopt"
)

// SVR wraps svm.SVR. Scaling and normalising are on by default.
type SVR struct {
	*estimator.Estimator

	C       float64
	Epsilon float64
}

// NewSVR creates an SVR estimator with C = 1 and epsilon = 0.1.
func NewSVR(data *dataset.Dataset, target string, opts ...estimator.Option) (*SVR, error) {
	s := &SVR{C: 1, Epsilon: 0.1}
	opts = append([]estimator.Option{estimator.WithScaling(true), estimator.WithNormalising(true)}, opts...)
	est, err := estimator.New(data, target, s, opts...)
	if err != nil {
		return nil, err
	}
	s.Estimator = est
	return s, nil
}

// QuickLoadSVR reads a CSV file and creates an SVR estimator on it.
func QuickLoadSVR(path, target string, opts ...estimator.Option) (*SVR, error) {
	d, err := dataset.LoadCSV(path)
	if err != nil {
		return nil, err
	}
	return NewSVR(d, target, opts...)
}

// Name returns "SVR".
func (s *SVR) Name() string { return "SVR" }

// Params returns the current field values under the regressor's names.
func (s *SVR) Params() model.Params {
	return model.Params{"C": s.C, "epsilon": s.Epsilon}
}

// Fit trains an SVR on X and y with params.
func (s *SVR) Fit(X mat.Matrix, y *mat.VecDense, params model.Params) (model.Predictor, error) {
	reg := svm.NewSVR()
	if err := reg.SetParams(params); err != nil {
		return nil, err
	}
	if err := reg.Fit(X, y); err != nil {
		return nil, err
	}
	return reg, nil
}

// Setters maps tunable names to the fields they update.
func (s *SVR) Setters() model.Setters {
	return model.Setters{
		"C":       model.FloatSetter("C", &s.C),
		"epsilon": model.FloatSetter("epsilon", &s.Epsilon),
	}
}

// SearchSpace returns the default tuning space, keyed by Setters names.
func (s *SVR) SearchSpace() hyperopt.Space {
	return hyperopt.Space{
		"C":       hyperopt.MakeUniformParameter("C", 0, 50),
		"epsilon": hyperopt.MakeUniformParameter("epsilon", 0.001, 0.5),
	}
}

// Base returns the shared Estimator.
func (s *SVR) Base() *estimator.Estimator { return s.Estimator }
