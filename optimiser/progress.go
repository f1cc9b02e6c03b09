package optimiser

import (
	"context"
	"math"
	"os"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/estkit/pkg/errors"
	"github.com/YuminosukeSato/estkit/pkg/log"
)

// tracker sits between a solver and the user's objective. It decodes
// candidates, flips the sign for maximisation, keeps the best decoded
// solution and logs progress once per epoch, where an epoch is one
// population's worth of evaluations.
type tracker struct {
	ctx      context.Context
	problem  Problem
	perEpoch int
	logger   log.Logger
	closer   func() error

	evals    int
	best     float64
	bestX    []float64
	history  []float64
	canceled bool
	// failure holds a panic raised by the objective. Gonum solvers call eval
	// on their own goroutines, so it has to be caught here.
	failure error
}

func newTracker(ctx context.Context, p Problem, solver string, population int) (*tracker, error) {
	t := &tracker{
		ctx:      ctx,
		problem:  p,
		perEpoch: population,
		best:     math.NaN(),
		closer:   func() error { return nil },
	}
	if t.perEpoch < 1 {
		t.perEpoch = 1
	}

	if p.LogTo == "" {
		t.logger = log.GetLoggerWithName("optimiser").With(log.SolverKey, solver)
		return t, nil
	}
	f, err := os.OpenFile(p.LogTo, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open optimiser log %s", p.LogTo)
	}
	zl := zerolog.New(f).With().Timestamp().Str(log.SolverKey, solver).Logger()
	t.logger = log.NewZerologLogger(zl)
	t.closer = f.Close
	return t, nil
}

// eval is the function solvers minimise. u is a point of the unit cube.
// Once the objective has panicked every later call returns +Inf without
// evaluating.
func (t *tracker) eval(u []float64) float64 {
	if t.ctx.Err() != nil {
		t.canceled = true
		return math.Inf(1)
	}
	if t.failure != nil {
		return math.Inf(1)
	}
	x := t.problem.Decode(u)
	v, ok := t.objective(x)
	if !ok {
		return math.Inf(1)
	}

	if !math.IsNaN(v) && (t.bestX == nil || t.problem.better(v, t.best)) {
		t.best = v
		t.bestX = x
	}
	t.evals++
	if t.evals%t.perEpoch == 0 {
		t.history = append(t.history, t.best)
		if t.problem.LogTo != "" {
			t.logger.Info("Epoch finished", log.EpochKey, t.evals/t.perEpoch, log.FitnessKey, t.best)
		} else {
			t.logger.Debug("Epoch finished", log.EpochKey, t.evals/t.perEpoch, log.FitnessKey, t.best)
		}
	}

	if math.IsNaN(v) {
		return math.Inf(1)
	}
	if t.problem.MinMax == Maximise {
		return -v
	}
	return v
}

// objective calls ObjFunc, turning a panic into t.failure.
func (t *tracker) objective(x []float64) (v float64, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			t.failure = errors.NewPanicError("optimiser objective", r)
			t.logger.Debug("Objective panicked", log.EpochKey, t.evals/t.perEpoch, "panic", r)
			v, ok = math.Inf(1), false
		}
	}()
	return t.problem.ObjFunc(x), true
}

// result builds the Result from what the tracker saw.
func (t *tracker) result() (Result, error) {
	if t.failure != nil {
		return Result{}, errors.Wrap(t.failure, "optimiser: objective failed")
	}
	if t.canceled {
		return Result{}, errors.Wrap(t.ctx.Err(), "optimiser: solve interrupted")
	}
	if t.bestX == nil {
		return Result{}, errors.Wrap(errors.ErrNoSolution, "optimiser: every evaluation was NaN")
	}
	return Result{
		Solution:    append([]float64(nil), t.bestX...),
		Objectives:  []float64{t.best},
		History:     append([]float64(nil), t.history...),
		Evaluations: t.evals,
	}, nil
}

func (t *tracker) close() error { return t.closer() }
