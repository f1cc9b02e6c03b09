package hyperopt

import (
	"context"
	"math"
	"time"

	"github.com/YuminosukeSato/estkit/optimiser"
	"github.com/YuminosukeSato/estkit/pkg/errors"
	"github.com/YuminosukeSato/estkit/pkg/log"
)

// SpaceDefinition exposes a Tuner's search space as an optimiser.Definition,
// so that a metaheuristic solver can drive the tuner. Every parameter is one
// variable: Uniform keeps its range, UniformInt is rounded, and a Choice
// variable holds the option index.
type SpaceDefinition struct {
	ctx   context.Context
	tuner *Tuner
	names []string
	lower []float64
	upper []float64
}

// Definition builds a SpaceDefinition over the tuner's current space. Every
// Score call is recorded in the tuner's Trials. ctx is handed to the
// evaluator.
func (t *Tuner) Definition(ctx context.Context) (*SpaceDefinition, error) {
	if err := t.space.Validate(); err != nil {
		return nil, err
	}
	d := &SpaceDefinition{ctx: ctx, tuner: t, names: t.space.Names()}
	for _, name := range d.names {
		var lo, hi float64
		switch v := t.space[name].(type) {
		case Uniform:
			lo, hi = v.Low, v.High
		case UniformInt:
			lo, hi = float64(v.Low), float64(v.High)
		case Choice:
			lo, hi = 0, float64(len(v.Options)-1)
		default:
			return nil, errors.NewValidationError(name, "distribution cannot be searched by a solver", v)
		}
		d.lower = append(d.lower, lo)
		d.upper = append(d.upper, hi)
	}
	return d, nil
}

func (d *SpaceDefinition) Len() int               { return len(d.names) }
func (d *SpaceDefinition) LowerBounds() []float64 { return append([]float64(nil), d.lower...) }
func (d *SpaceDefinition) UpperBounds() []float64 { return append([]float64(nil), d.upper...) }

// Assignment maps a solution back to parameter values.
func (d *SpaceDefinition) Assignment(x []float64) map[string]interface{} {
	out := make(map[string]interface{}, len(d.names))
	for i, name := range d.names {
		v := math.Max(d.lower[i], math.Min(d.upper[i], x[i]))
		switch dist := d.tuner.space[name].(type) {
		case UniformInt:
			out[name] = dist.clamp(v)
		case Choice:
			out[name] = dist.Options[int(math.Round(v))]
		default:
			out[name] = v
		}
	}
	return out
}

// Score runs the tuner on the decoded assignment. A failed evaluation
// scores NaN, which solvers treat as the worst possible value.
func (d *SpaceDefinition) Score(x []float64) float64 {
	params := d.Assignment(x)
	start := time.Now()
	loss, err := d.tuner.Score(d.ctx, params)
	trial := Trial{Assignment: params, Loss: loss, Status: StatusOK, Duration: time.Since(start)}
	if err != nil {
		trial.Status = StatusFail
		trial.Err = err
		trial.Loss = math.NaN()
		d.tuner.logger.Warn("Trial failed", err, log.TrialKey, d.tuner.trials.Len(), log.HyperParamsKey, params)
	}
	d.tuner.trials.Add(trial)
	return trial.Loss
}

// TuneWithSolver searches the space with a registered optimiser solver
// instead of FMin. Best and BestLoss are set as by Tune. opts may set the
// budget and seed; the direction is always minimisation over float
// variables.
func (t *Tuner) TuneWithSolver(ctx context.Context, algorithm string, opts ...optimiser.Option) error {
	def, err := t.Definition(ctx)
	if err != nil {
		return err
	}
	opts = append(opts,
		optimiser.WithAlgorithm(algorithm),
		optimiser.WithMinMax(optimiser.Minimise),
		optimiser.WithVarType(optimiser.FloatVar),
	)
	o, err := optimiser.New(def, opts...)
	if err != nil {
		return err
	}

	t.logger.Info("Tuning started",
		log.OperationKey, log.OperationTune,
		log.SolverKey, algorithm,
		"epochs", o.Epochs,
		"population", o.Population,
		"cv_steps", t.cvSteps,
		"parameters", def.names)

	if err := o.Solve(ctx); err != nil {
		return err
	}
	t.Best = make(map[string]interface{}, def.Len())
	for k, v := range def.Assignment(o.LastResult.Solution) {
		t.Best[k] = CastValueToExpected(v)
	}
	t.BestLoss = o.LastResult.Objectives[0]

	t.logger.Info("Tuning finished",
		log.OperationKey, log.OperationTune,
		log.SolverKey, algorithm,
		log.HyperParamsKey, t.Best,
		log.LossKey, t.BestLoss)
	return nil
}
