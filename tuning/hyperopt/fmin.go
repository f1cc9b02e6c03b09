package hyperopt

import (
	"context"
	"math/rand"
	"time"

	"github.com/YuminosukeSato/estkit/pkg/errors"
	"github.com/YuminosukeSato/estkit/pkg/log"
)

// Objective scores one candidate. Lower is better.
type Objective func(ctx context.Context, params map[string]interface{}) (float64, error)

// FMin evaluates maxEvals candidates proposed by algo and returns the best
// assignment. The evaluation budget is the only stopping rule; ctx is
// checked between candidates. An objective error is recorded as a failed
// trial and returned.
func FMin(ctx context.Context, objective Objective, space Space, algo Algorithm, maxEvals int, trials *Trials, rng *rand.Rand) (map[string]interface{}, error) {
	if err := space.Validate(); err != nil {
		return nil, err
	}
	if maxEvals < 1 {
		return nil, errors.NewValidationError("maxEvals", "must be >= 1", maxEvals)
	}
	if algo == nil {
		algo = NewTPE()
	}
	if trials == nil {
		trials = NewTrials()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	logger := log.GetLoggerWithName("hyperopt")
	for i := 0; i < maxEvals; i++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "hyperopt: search interrupted")
		}

		params := algo.Suggest(space, trials, rng)
		start := time.Now()
		loss, err := objective(ctx, params)
		trial := Trial{Assignment: params, Loss: loss, Status: StatusOK, Duration: time.Since(start)}
		if err != nil {
			trial.Status = StatusFail
			trial.Err = err
			trials.Add(trial)
			return nil, errors.Wrapf(err, "hyperopt: trial %d", trials.Len()-1)
		}
		trials.Add(trial)

		logger.Debug("Trial finished",
			log.TrialKey, trials.Len()-1,
			log.LossKey, loss,
			log.HyperParamsKey, params,
			log.DurationMsKey, trial.Duration.Milliseconds())
	}

	best, ok := trials.Best()
	if !ok {
		return nil, errors.Wrap(errors.ErrNoSolution, "hyperopt: no successful trial")
	}
	return best.Assignment, nil
}
