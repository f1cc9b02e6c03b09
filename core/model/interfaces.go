// Package model defines the shared estimator contracts, the parameter map and
// the explicit hyperparameter setter registry.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Predictor is a fitted model handle.
type Predictor interface {
	// Predict returns one prediction per row of X.
	Predict(X mat.Matrix) (*mat.VecDense, error)
}

// Regressor is a learner that fits itself in place.
type Regressor interface {
	Fit(X mat.Matrix, y *mat.VecDense) error
	Predictor
}

// Transformer はデータ変換のインターフェース
type Transformer interface {
	// Fit learns the parameters of the transformation.
	Fit(X mat.Matrix) error

	// Transform applies the learned transformation.
	Transform(X mat.Matrix) (*mat.Dense, error)

	// FitTransform runs Fit then Transform.
	FitTransform(X mat.Matrix) (*mat.Dense, error)
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	SetParams(params map[string]interface{}) error
}
