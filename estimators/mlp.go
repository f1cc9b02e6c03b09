package estimators

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/estkit/core/model"
	"github.com/YuminosukeSato/estkit/dataset"
	"github.com/YuminosukeSato/estkit/estimator"
	"github.com/YuminosukeSato/estkit/sklearn/neural_network"
	"github.com/YuminosukeSato/estkit/tuning/hyperopt"
)

// MLP wraps neural_network.MLPRegressor. Scaling and normalising are on by
// default.
type MLP struct {
	*estimator.Estimator

	MaxIterations int
	RandomState   int
	Solver        string
	Alpha         float64
	// Layers holds one size per hidden layer.
	Layers []int
}

// NewMLP creates an MLP estimator. Unless overridden, it has one hidden
// layer with 2·c − 2 units, where c is the number of columns in data
// including the target.
func NewMLP(data *dataset.Dataset, target string, opts ...estimator.Option) (*MLP, error) {
	m := &MLP{
		MaxIterations: 1000,
		RandomState:   1,
		Solver:        "adam",
		Alpha:         0.005,
	}
	if data != nil {
		if width := 2*len(data.Columns()) - 2; width > 0 {
			m.Layers = []int{width}
		}
	}
	if len(m.Layers) == 0 {
		m.Layers = []int{100}
	}

	opts = append([]estimator.Option{estimator.WithScaling(true), estimator.WithNormalising(true)}, opts...)
	est, err := estimator.New(data, target, m, opts...)
	if err != nil {
		return nil, err
	}
	m.Estimator = est
	return m, nil
}

// QuickLoadMLP reads a CSV file and creates an MLP estimator on it.
func QuickLoadMLP(path, target string, opts ...estimator.Option) (*MLP, error) {
	d, err := dataset.LoadCSV(path)
	if err != nil {
		return nil, err
	}
	return NewMLP(d, target, opts...)
}

// Name returns "MLP".
func (m *MLP) Name() string { return "MLP" }

// Params returns the current field values under the regressor's names.
func (m *MLP) Params() model.Params {
	return model.Params{
		"hidden_layer_sizes": append([]int(nil), m.Layers...),
		"max_iter":           m.MaxIterations,
		"solver":             m.Solver,
		"alpha":              m.Alpha,
		"random_state":       m.RandomState,
	}
}

// Fit trains an MLPRegressor on X and y with params.
func (m *MLP) Fit(X mat.Matrix, y *mat.VecDense, params model.Params) (model.Predictor, error) {
	reg := neural_network.NewMLPRegressor()
	if err := reg.SetParams(params); err != nil {
		return nil, err
	}
	if err := reg.Fit(X, y); err != nil {
		return nil, err
	}
	return reg, nil
}

// Setters maps tunable names to the fields they update.
func (m *MLP) Setters() model.Setters {
	return model.Setters{
		"maxIterations": model.IntSetter("maxIterations", &m.MaxIterations),
		"randomState":   model.IntSetter("randomState", &m.RandomState),
		"solver":        model.StringSetter("solver", &m.Solver),
		"alpha":         model.FloatSetter("alpha", &m.Alpha),
		"layers":        model.IntsSetter("layers", &m.Layers),
	}
}

// SearchSpace returns the default tuning space, keyed by Setters names.
func (m *MLP) SearchSpace() hyperopt.Space {
	return hyperopt.Space{
		"maxIterations": hyperopt.MakeUniformIntParameter("maxIterations", 500, 2000),
		"alpha":         hyperopt.MakeUniformParameter("alpha", 0.01, 0.3),
		"solver":        hyperopt.MakeChoiceParameter("solver", "adam", "lbfgs", "sgd"),
		"layers":        hyperopt.MakeChoiceParameter("layers", []int{64}, []int{100, 64}, []int{50, 50, 100}),
	}
}

// Base returns the shared Estimator.
func (m *MLP) Base() *estimator.Estimator { return m.Estimator }
