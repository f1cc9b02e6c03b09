// Package ensemble provides tree ensembles.
package ensemble

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/estkit/core/model"
	"github.com/YuminosukeSato/estkit/pkg/errors"
	"github.com/YuminosukeSato/estkit/pkg/log"
	"github.com/YuminosukeSato/estkit/sklearn/tree"
)

// GradientBoostingRegressor fits an additive model of regression trees to the
// squared loss, one stage at a time.
type GradientBoostingRegressor struct {
	model.BaseEstimator

	NEstimators     int
	LearningRate    float64
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Subsample       float64
	// RandomState seeds row subsampling; negative means time-seeded.
	RandomState int64

	init      float64
	trees     []*tree.Tree
	nFeatures int

	// TrainScore holds the in-sample mean squared error after each stage.
	TrainScore []float64
}

// Option configures a GradientBoostingRegressor.
type Option func(*GradientBoostingRegressor)

// WithNEstimators sets the number of boosting stages.
func WithNEstimators(n int) Option {
	return func(g *GradientBoostingRegressor) { g.NEstimators = n }
}

// WithLearningRate sets the shrinkage applied to every tree.
func WithLearningRate(lr float64) Option {
	return func(g *GradientBoostingRegressor) { g.LearningRate = lr }
}

// WithMaxDepth sets the depth of the individual trees.
func WithMaxDepth(d int) Option {
	return func(g *GradientBoostingRegressor) { g.MaxDepth = d }
}

// WithMinSamplesSplit sets the smallest node that may be split.
func WithMinSamplesSplit(n int) Option {
	return func(g *GradientBoostingRegressor) { g.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the smallest allowed leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(g *GradientBoostingRegressor) { g.MinSamplesLeaf = n }
}

// WithSubsample sets the fraction of rows drawn for each stage.
func WithSubsample(f float64) Option {
	return func(g *GradientBoostingRegressor) { g.Subsample = f }
}

// WithRandomState seeds the row sampler.
func WithRandomState(seed int64) Option {
	return func(g *GradientBoostingRegressor) { g.RandomState = seed }
}

// NewGradientBoostingRegressor creates a regressor with the scikit-learn
// defaults: 100 stages, learning rate 0.1, depth 3, no subsampling.
func NewGradientBoostingRegressor(opts ...Option) *GradientBoostingRegressor {
	g := &GradientBoostingRegressor{
		NEstimators:     100,
		LearningRate:    0.1,
		MaxDepth:        3,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Subsample:       1.0,
		RandomState:     -1,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GradientBoostingRegressor) validate() error {
	switch {
	case g.NEstimators < 1:
		return errors.NewValidationError("n_estimators", "must be >= 1", g.NEstimators)
	case g.LearningRate <= 0:
		return errors.NewValidationError("learning_rate", "must be > 0", g.LearningRate)
	case g.MinSamplesSplit < 2:
		return errors.NewValidationError("min_samples_split", "must be >= 2", g.MinSamplesSplit)
	case g.MinSamplesLeaf < 1:
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", g.MinSamplesLeaf)
	case g.Subsample <= 0 || g.Subsample > 1:
		return errors.NewValidationError("subsample", "must be in (0, 1]", g.Subsample)
	}
	return nil
}

// Fit trains the ensemble.
func (g *GradientBoostingRegressor) Fit(X mat.Matrix, y *mat.VecDense) error {
	if err := g.validate(); err != nil {
		return err
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("GradientBoostingRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != rows {
		return errors.NewDimensionError("GradientBoostingRegressor.Fit", rows, y.Len(), 0)
	}

	logger := log.GetLoggerWithName("ensemble.gradient_boosting")
	logger.Debug("Training GradientBoostingRegressor",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"n_estimators", g.NEstimators)

	Xd := mat.DenseCopyOf(X)
	target := y.RawVector().Data
	if y.RawVector().Inc != 1 {
		target = mat.Col(nil, 0, y)
	}

	var rng *rand.Rand
	if g.RandomState >= 0 {
		rng = rand.New(rand.NewSource(g.RandomState))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	g.init = stat.Mean(target, nil)
	pred := make([]float64, rows)
	for i := range pred {
		pred[i] = g.init
	}

	grad := make([]float64, rows)
	hess := make([]float64, rows)
	for i := range hess {
		hess[i] = 1
	}
	builder := &tree.Builder{
		Params: tree.BuilderParams{
			MaxDepth:        g.MaxDepth,
			MinSamplesSplit: g.MinSamplesSplit,
			MinSamplesLeaf:  g.MinSamplesLeaf,
		},
		X:    Xd,
		Grad: grad,
		Hess: hess,
	}

	nSub := int(g.Subsample * float64(rows))
	if nSub < 1 {
		nSub = 1
	}

	g.trees = make([]*tree.Tree, 0, g.NEstimators)
	g.TrainScore = make([]float64, 0, g.NEstimators)
	for stage := 0; stage < g.NEstimators; stage++ {
		for i := range grad {
			grad[i] = pred[i] - target[i]
		}

		var sample []int
		if nSub < rows {
			sample = rng.Perm(rows)[:nSub]
		}
		t := builder.Build(sample)
		t.Scale(g.LearningRate)
		g.trees = append(g.trees, t)

		var loss float64
		for i := 0; i < rows; i++ {
			pred[i] += t.PredictRow(Xd.RawRowView(i))
			d := target[i] - pred[i]
			loss += d * d
		}
		g.TrainScore = append(g.TrainScore, loss/float64(rows))
	}

	g.nFeatures = cols
	g.SetFitted()
	logger.Debug("Training completed", log.LossKey, g.TrainScore[len(g.TrainScore)-1])
	return nil
}

// Predict sums the initial estimate and every stage.
func (g *GradientBoostingRegressor) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if !g.IsFitted() {
		return nil, errors.NewNotFittedError("GradientBoostingRegressor", "Predict")
	}
	rows, cols := X.Dims()
	if cols != g.nFeatures {
		return nil, errors.NewDimensionError("GradientBoostingRegressor.Predict", g.nFeatures, cols, 1)
	}
	out := mat.NewVecDense(rows, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		v := g.init
		for _, t := range g.trees {
			v += t.PredictRow(row)
		}
		out.SetVec(i, v)
	}
	return out, nil
}

// NumTrees returns the number of fitted stages.
func (g *GradientBoostingRegressor) NumTrees() int {
	return len(g.trees)
}

// GetParams returns the hyperparameters under their scikit-learn names.
func (g *GradientBoostingRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      g.NEstimators,
		"learning_rate":     g.LearningRate,
		"max_depth":         g.MaxDepth,
		"min_samples_split": g.MinSamplesSplit,
		"min_samples_leaf":  g.MinSamplesLeaf,
		"subsample":         g.Subsample,
		"random_state":      g.RandomState,
	}
}

// SetParams sets hyperparameters by name. Unknown names are an error.
func (g *GradientBoostingRegressor) SetParams(params map[string]interface{}) error {
	var seed int
	setters := model.Setters{
		"n_estimators":      model.IntSetter("n_estimators", &g.NEstimators),
		"learning_rate":     model.FloatSetter("learning_rate", &g.LearningRate),
		"max_depth":         model.IntSetter("max_depth", &g.MaxDepth),
		"min_samples_split": model.IntSetter("min_samples_split", &g.MinSamplesSplit),
		"min_samples_leaf":  model.IntSetter("min_samples_leaf", &g.MinSamplesLeaf),
		"subsample":         model.FloatSetter("subsample", &g.Subsample),
		"random_state": func(v interface{}) error {
			if err := model.IntSetter("random_state", &seed)(v); err != nil {
				return err
			}
			g.RandomState = int64(seed)
			return nil
		},
	}
	for _, k := range model.Params(params).Keys() {
		if err := setters.Apply(k, params[k]); err != nil {
			return err
		}
	}
	return nil
}

func (g *GradientBoostingRegressor) String() string {
	return fmt.Sprintf("GradientBoostingRegressor(n_estimators=%d, learning_rate=%g, max_depth=%d)",
		g.NEstimators, g.LearningRate, g.MaxDepth)
}
