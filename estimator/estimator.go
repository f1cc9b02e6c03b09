// Package estimator implements the shared train / test / predict surface for
// supervised regressors. A concrete estimator supplies a Learner: its default
// parameters and one call into an external fitting routine. Everything else,
// from the deterministic train/test partition to preprocessing and scoring,
// lives here.
package estimator

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/estkit/core/model"
	"github.com/YuminosukeSato/estkit/dataset"
	"github.com/YuminosukeSato/estkit/metrics"
	"github.com/YuminosukeSato/estkit/pkg/errors"
	"github.com/YuminosukeSato/estkit/pkg/log"
	"github.com/YuminosukeSato/estkit/preprocessing"
)

// DefaultSplitRatio is the fraction of leading rows used for training.
const DefaultSplitRatio = 0.5

// Learner is the model-specific part of an estimator.
type Learner interface {
	// Name identifies the model family in logs and errors.
	Name() string

	// Params returns the model's default parameters.
	Params() model.Params

	// Fit trains a new model on X and y with the merged parameters and
	// returns it as an opaque handle.
	Fit(X mat.Matrix, y *mat.VecDense, params model.Params) (model.Predictor, error)
}

// ExtraParamser is implemented by learners with settings that are not part
// of the parameter map but belong in a summary (e.g. boosting rounds).
type ExtraParamser interface {
	ExtraParams() model.Params
}

// Estimator holds a dataset, a target column and a fitted model handle.
//
// The train/test partition is recomputed from the current data and split
// ratio on every access. Callers that need stable partitions must not change
// either between reads.
type Estimator struct {
	id         uuid.UUID
	data       *dataset.Dataset
	target     string
	splitRatio float64

	customParams model.Params

	scaler          model.Transformer
	normaliser      model.Transformer
	applyScaler     bool
	applyNormaliser bool

	explicitTraining bool
	rng              *rand.Rand

	learner Learner
	model   model.Predictor

	logger log.Logger
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithSplitRatio sets the training fraction r, 0 < r <= 1.
func WithSplitRatio(r float64) Option {
	return func(e *Estimator) {
		e.splitRatio = r
	}
}

// WithCustomParams sets parameters that override the learner defaults.
func WithCustomParams(p model.Params) Option {
	return func(e *Estimator) {
		e.customParams = p.Copy()
	}
}

// WithScaler replaces the scaler. It is only applied when scaling is enabled.
func WithScaler(t model.Transformer) Option {
	return func(e *Estimator) {
		e.scaler = t
	}
}

// WithNormaliser replaces the normaliser. It is only applied when
// normalising is enabled.
func WithNormaliser(t model.Transformer) Option {
	return func(e *Estimator) {
		e.normaliser = t
	}
}

// WithScaling toggles the scaler.
func WithScaling(on bool) Option {
	return func(e *Estimator) {
		e.applyScaler = on
	}
}

// WithNormalising toggles the normaliser.
func WithNormalising(on bool) Option {
	return func(e *Estimator) {
		e.applyNormaliser = on
	}
}

// WithExplicitTraining makes Test fail with a NotFittedError instead of
// training on demand.
func WithExplicitTraining() Option {
	return func(e *Estimator) {
		e.explicitTraining = true
	}
}

// WithRandomSource sets the source used by ShuffleData.
func WithRandomSource(src rand.Source) Option {
	return func(e *Estimator) {
		e.rng = rand.New(src)
	}
}

// New creates an Estimator for learner on data, predicting target.
func New(data *dataset.Dataset, target string, learner Learner, opts ...Option) (*Estimator, error) {
	if learner == nil {
		return nil, errors.NewNotImplementedError("Estimator", "Learner")
	}
	if data == nil {
		return nil, errors.NewValidationError("data", "dataset is required", nil)
	}
	if !data.HasColumn(target) {
		return nil, errors.NewValidationError("target", "column not found", target)
	}

	e := &Estimator{
		id:           uuid.New(),
		data:         data,
		target:       target,
		splitRatio:   DefaultSplitRatio,
		customParams: model.Params{},
		scaler:       preprocessing.NewStandardScalerDefault(),
		normaliser:   preprocessing.NewNormalizerDefault(),
		learner:      learner,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}

	if !(e.splitRatio > 0 && e.splitRatio <= 1) {
		return nil, errors.NewValidationError("splitRatio", "must be in (0, 1]", e.splitRatio)
	}

	e.logger = log.GetLoggerWithName("estimator").With(
		log.ModelNameKey, learner.Name(),
		log.EstimatorIDKey, e.id.String(),
	)
	return e, nil
}

// ID returns the instance identifier used in logs.
func (e *Estimator) ID() string { return e.id.String() }

// Name returns the learner name.
func (e *Estimator) Name() string { return e.learner.Name() }

// Target returns the target column name.
func (e *Estimator) Target() string { return e.target }

// Data returns the current dataset.
func (e *Estimator) Data() *dataset.Dataset { return e.data }

// SetData replaces the dataset. The fitted model, if any, is kept.
func (e *Estimator) SetData(d *dataset.Dataset) error {
	if d == nil || !d.HasColumn(e.target) {
		return errors.NewValidationError("target", "column not found", e.target)
	}
	e.data = d
	return nil
}

// SplitRatio returns the training fraction.
func (e *Estimator) SplitRatio() float64 { return e.splitRatio }

// SetSplitRatio changes the training fraction.
func (e *Estimator) SetSplitRatio(r float64) error {
	if !(r > 0 && r <= 1) {
		return errors.NewValidationError("splitRatio", "must be in (0, 1]", r)
	}
	e.splitRatio = r
	return nil
}

// EnableScaler toggles the scaler.
func (e *Estimator) EnableScaler(on bool) { e.applyScaler = on }

// EnableNormaliser toggles the normaliser.
func (e *Estimator) EnableNormaliser(on bool) { e.applyNormaliser = on }

// Learner returns the model-specific part.
func (e *Estimator) Learner() Learner { return e.learner }

// Model returns the fitted handle, or nil while unset.
func (e *Estimator) Model() model.Predictor { return e.model }

// IsTrained reports whether a model handle is set.
func (e *Estimator) IsTrained() bool { return e.model != nil }

// Logger returns the instance logger.
func (e *Estimator) Logger() log.Logger { return e.logger }

func (e *Estimator) splitIndex() int {
	return int(math.Floor(float64(e.data.Len()) * e.splitRatio))
}

// ShuffleData replaces the dataset with a row-permuted copy.
func (e *Estimator) ShuffleData() {
	e.data = e.data.Shuffle(e.rng)
}

// TrainingData returns rows [0, floor(N·r)) including the target.
func (e *Estimator) TrainingData() *dataset.Dataset {
	return e.data.Slice(0, e.splitIndex())
}

// TestData returns rows [floor(N·r), N) including the target.
func (e *Estimator) TestData() *dataset.Dataset {
	return e.data.Slice(e.splitIndex(), e.data.Len())
}

// TrainingFeatures returns the training rows without the target column.
func (e *Estimator) TrainingFeatures() (*dataset.Dataset, error) {
	return e.TrainingData().Drop(e.target)
}

// TestFeatures returns the test rows without the target column.
func (e *Estimator) TestFeatures() (*dataset.Dataset, error) {
	return e.TestData().Drop(e.target)
}

// TrainingTargets returns the target column over the training rows.
func (e *Estimator) TrainingTargets() (*mat.VecDense, error) {
	return e.TrainingData().Vector(e.target)
}

// TestTargets returns the target column over the test rows.
func (e *Estimator) TestTargets() (*mat.VecDense, error) {
	return e.TestData().Vector(e.target)
}

// TrainingInputs returns the training features as a matrix, preprocessed.
func (e *Estimator) TrainingInputs() (*mat.Dense, error) {
	features, err := e.TrainingFeatures()
	if err != nil {
		return nil, err
	}
	X, err := features.Matrix()
	if err != nil {
		return nil, errors.Wrap(err, "training inputs")
	}
	return e.PreprocessInputs(X)
}

// TestInputs returns the test features as a matrix. Unlike TrainingInputs
// it is not preprocessed; Test applies PreprocessInputs itself.
func (e *Estimator) TestInputs() (*mat.Dense, error) {
	features, err := e.TestFeatures()
	if err != nil {
		return nil, err
	}
	X, err := features.Matrix()
	if err != nil {
		return nil, errors.Wrap(err, "test inputs")
	}
	return X, nil
}

// PreprocessInputs applies the enabled scaler and then the enabled
// normaliser. Each transform is fit on X itself, so two calls on different
// data use different statistics.
func (e *Estimator) PreprocessInputs(X mat.Matrix) (*mat.Dense, error) {
	out := mat.DenseCopyOf(X)
	if e.applyScaler && e.scaler != nil {
		e.logger.Debug("Fitting scaler on the data being transformed", log.PhaseKey, log.PhasePreprocessing)
		scaled, err := e.scaler.FitTransform(out)
		if err != nil {
			return nil, errors.Wrap(err, "scale inputs")
		}
		out = scaled
	}
	if e.applyNormaliser && e.normaliser != nil {
		e.logger.Debug("Fitting normaliser on the data being transformed", log.PhaseKey, log.PhasePreprocessing)
		normalised, err := e.normaliser.FitTransform(out)
		if err != nil {
			return nil, errors.Wrap(err, "normalise inputs")
		}
		out = normalised
	}
	return out, nil
}

// Params returns the learner defaults.
func (e *Estimator) Params() model.Params {
	return e.learner.Params()
}

// CustomParams returns a copy of the caller overrides.
func (e *Estimator) CustomParams() model.Params {
	return e.customParams.Copy()
}

// SetCustomParams replaces the caller overrides.
func (e *Estimator) SetCustomParams(p model.Params) {
	e.customParams = p.Copy()
}

// AllParams merges the custom parameters over the defaults.
func (e *Estimator) AllParams() model.Params {
	return model.Merge(e.learner.Params(), e.customParams)
}

// Summary returns AllParams plus any learner extras.
func (e *Estimator) Summary() model.Params {
	summary := e.AllParams()
	if extra, ok := e.learner.(ExtraParamser); ok {
		for k, v := range extra.ExtraParams() {
			summary[k] = v
		}
	}
	return summary
}

// Train fits a new model on the training partition and overwrites the handle.
func (e *Estimator) Train() error {
	start := time.Now()

	X, err := e.TrainingInputs()
	if err != nil {
		return err
	}
	y, err := e.TrainingTargets()
	if err != nil {
		return err
	}
	params := e.AllParams()

	rows, cols := X.Dims()
	e.logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.HyperParamsKey, params,
	)

	fitted, err := e.learner.Fit(X, y, params)
	if err != nil {
		return errors.NewModelError(e.learner.Name()+".Train", "fit failed", err)
	}
	e.model = fitted

	e.logger.Info("Training finished",
		log.OperationKey, log.OperationFit,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Predict returns predictions for X using the fitted model. X is passed to
// the model as is.
func (e *Estimator) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if e.model == nil {
		return nil, errors.NewNotFittedError(e.learner.Name(), "Predict")
	}
	return e.model.Predict(X)
}

// Test scores the model on the test partition. An unset model is trained
// first unless WithExplicitTraining was given.
func (e *Estimator) Test() (metrics.Report, error) {
	if e.model == nil {
		if e.explicitTraining {
			return metrics.Report{}, errors.NewNotFittedError(e.learner.Name(), "Test")
		}
		e.logger.Info("Model is not trained, training implicitly before test", log.PhaseKey, log.PhaseTesting)
		if err := e.Train(); err != nil {
			return metrics.Report{}, err
		}
	}

	raw, err := e.TestInputs()
	if err != nil {
		return metrics.Report{}, err
	}
	X, err := e.PreprocessInputs(raw)
	if err != nil {
		return metrics.Report{}, err
	}
	y, err := e.TestTargets()
	if err != nil {
		return metrics.Report{}, err
	}
	pred, err := e.Predict(X)
	if err != nil {
		return metrics.Report{}, err
	}

	report, err := metrics.Evaluate(y, pred)
	if err != nil {
		return metrics.Report{}, err
	}
	e.logger.Info("Test finished",
		log.OperationKey, log.OperationScore,
		log.R2ScoreKey, report.R2,
		log.RMSEKey, report.RMSE,
		log.MAEKey, report.MAE,
	)
	return report, nil
}

// R2 scores predictions for X against targets.
func (e *Estimator) R2(X mat.Matrix, targets *mat.VecDense) (float64, error) {
	pred, err := e.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(targets, pred)
}

// RMSE scores predictions for X against targets.
func (e *Estimator) RMSE(X mat.Matrix, targets *mat.VecDense) (float64, error) {
	pred, err := e.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.RMSE(targets, pred)
}

// MAE scores predictions for X against targets.
func (e *Estimator) MAE(X mat.Matrix, targets *mat.VecDense) (float64, error) {
	pred, err := e.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.MAE(targets, pred)
}
