package hyperopt

import (
	"context"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/estkit/core/model"
	"github.com/YuminosukeSato/estkit/pkg/errors"
	"github.com/YuminosukeSato/estkit/pkg/log"
)

// Evaluator returns the fitness of the target in its current configuration.
// Lower is better.
type Evaluator interface {
	Evaluate(ctx context.Context) (float64, error)
}

// IntermediaryChanger runs between cross-validation rounds, for example to
// reshuffle the data before the next split.
type IntermediaryChanger interface {
	IntermediaryModelChanges() error
}

// HyperparameterUpdater applies one named hyperparameter in place.
type HyperparameterUpdater interface {
	UpdateHyperparameter(name string, value interface{}) error
}

type tunableUpdater struct {
	setters model.Setters
}

func (t tunableUpdater) UpdateHyperparameter(name string, value interface{}) error {
	return t.setters.Apply(name, value)
}

// FromTunable adapts a model.Tunable to a HyperparameterUpdater.
func FromTunable(t model.Tunable) HyperparameterUpdater {
	return tunableUpdater{setters: t.Setters()}
}

// Tuner searches a Space for the assignment minimising an Evaluator's
// cross-validated fitness.
type Tuner struct {
	target    HyperparameterUpdater
	evaluator Evaluator
	changer   IntermediaryChanger

	iterations int
	cvSteps    int
	space      Space
	algorithm  Algorithm
	trials     *Trials
	rng        *rand.Rand
	logger     log.Logger

	// Best is the winning assignment after Tune, with values cast the way
	// they were applied.
	Best     map[string]interface{}
	BestLoss float64
}

// Option configures a Tuner.
type Option func(*Tuner)

// WithIterations sets the number of candidates evaluated.
func WithIterations(n int) Option {
	return func(t *Tuner) { t.iterations = n }
}

// WithCVSteps sets the number of evaluation rounds averaged per candidate.
func WithCVSteps(n int) Option {
	return func(t *Tuner) { t.cvSteps = n }
}

// WithSpace sets the initial search space.
func WithSpace(s Space) Option {
	return func(t *Tuner) { t.space = s.Copy() }
}

// WithAlgorithm replaces the default TPE.
func WithAlgorithm(a Algorithm) Option {
	return func(t *Tuner) { t.algorithm = a }
}

// WithTrials records history into trials.
func WithTrials(trials *Trials) Option {
	return func(t *Tuner) { t.trials = trials }
}

// WithIntermediaryChanger sets the hook run between cross-validation
// rounds. Evaluators implementing IntermediaryChanger are used by default.
func WithIntermediaryChanger(c IntermediaryChanger) Option {
	return func(t *Tuner) { t.changer = c }
}

// WithRandomSource seeds candidate generation.
func WithRandomSource(src rand.Source) Option {
	return func(t *Tuner) { t.rng = rand.New(src) }
}

// New creates a Tuner. Both target and evaluator are required.
func New(target HyperparameterUpdater, evaluator Evaluator, opts ...Option) (*Tuner, error) {
	if target == nil {
		return nil, errors.NewNotImplementedError("Tuner", "HyperparameterUpdater")
	}
	if evaluator == nil {
		return nil, errors.NewNotImplementedError("Tuner", "Evaluate")
	}
	t := &Tuner{
		target:     target,
		evaluator:  evaluator,
		iterations: 20,
		cvSteps:    1,
		space:      Space{},
		algorithm:  NewTPE(),
		trials:     NewTrials(),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:     log.GetLoggerWithName("tuner"),
	}
	if c, ok := evaluator.(IntermediaryChanger); ok {
		t.changer = c
	}
	for _, opt := range opts {
		opt(t)
	}
	switch {
	case t.iterations < 1:
		return nil, errors.NewValidationError("iterations", "must be >= 1", t.iterations)
	case t.cvSteps < 1:
		return nil, errors.NewValidationError("cvSteps", "must be >= 1", t.cvSteps)
	}
	return t, nil
}

// AddParameter adds or replaces a distribution.
func (t *Tuner) AddParameter(code string, d Distribution) {
	t.space[code] = d
}

// AddUniformParameter adds a continuous parameter.
func (t *Tuner) AddUniformParameter(code string, min, max float64) {
	t.space[code] = MakeUniformParameter(code, min, max)
}

// AddUniformIntParameter adds an integer parameter.
func (t *Tuner) AddUniformIntParameter(code string, min, max int) {
	t.space[code] = MakeUniformIntParameter(code, min, max)
}

// AddChoiceParameter adds a categorical parameter.
func (t *Tuner) AddChoiceParameter(code string, options ...interface{}) {
	t.space[code] = MakeChoiceParameter(code, options...)
}

// Space returns a copy of the search space.
func (t *Tuner) Space() Space { return t.space.Copy() }

// Trials returns the evaluation history.
func (t *Tuner) Trials() *Trials { return t.trials }

// Score applies params to the target and returns the mean fitness over the
// configured cross-validation rounds. The intermediary hook runs before
// every round but the first.
func (t *Tuner) Score(ctx context.Context, params map[string]interface{}) (float64, error) {
	for _, name := range model.Params(params).Keys() {
		if err := t.target.UpdateHyperparameter(name, CastValueToExpected(params[name])); err != nil {
			return 0, errors.Wrapf(err, "apply hyperparameter %s", name)
		}
	}

	results := make([]float64, 0, t.cvSteps)
	for i := 0; i < t.cvSteps; i++ {
		if i > 0 && t.changer != nil {
			if err := t.changer.IntermediaryModelChanges(); err != nil {
				return 0, errors.Wrap(err, "intermediary model changes")
			}
		}
		v, err := t.evaluator.Evaluate(ctx)
		if err != nil {
			return 0, err
		}
		results = append(results, v)
		t.logger.Debug("Cross-validation step", log.CVStepKey, i, log.FitnessKey, v)
	}
	return stat.Mean(results, nil), nil
}

// Tune runs the search and stores the best assignment in Best.
func (t *Tuner) Tune(ctx context.Context) error {
	t.logger.Info("Tuning started",
		log.OperationKey, log.OperationTune,
		"iterations", t.iterations,
		"cv_steps", t.cvSteps,
		"parameters", t.space.Names())

	best, err := FMin(ctx, t.Score, t.space, t.algorithm, t.iterations, t.trials, t.rng)
	if err != nil {
		return err
	}

	t.Best = make(map[string]interface{}, len(best))
	for k, v := range best {
		t.Best[k] = CastValueToExpected(v)
	}
	bestTrial, _ := t.trials.Best()
	t.BestLoss = bestTrial.Loss

	t.logger.Info("Tuning finished",
		log.OperationKey, log.OperationTune,
		log.HyperParamsKey, t.Best,
		log.LossKey, t.BestLoss)
	return nil
}

// ApplyBest writes Best back onto the target, since the last candidate
// evaluated is what the target holds after Tune.
func (t *Tuner) ApplyBest() error {
	if t.Best == nil {
		return errors.NewNotFittedError("Tuner", "ApplyBest")
	}
	for _, name := range model.Params(t.Best).Keys() {
		if err := t.target.UpdateHyperparameter(name, t.Best[name]); err != nil {
			return err
		}
	}
	return nil
}
