package hyperopt

import (
	"math"
	"sort"
	"time"
)

// Trial statuses.
const (
	StatusOK   = "ok"
	StatusFail = "fail"
)

// Trial is one evaluated candidate.
type Trial struct {
	ID         int
	Assignment map[string]interface{}
	Loss       float64
	Status     string
	Err        error
	Duration   time.Duration
}

// Trials is the evaluation history shared between FMin and the algorithm.
type Trials struct {
	trials []Trial
}

// NewTrials returns an empty history.
func NewTrials() *Trials {
	return &Trials{}
}

// Add appends t, assigning its ID.
func (t *Trials) Add(trial Trial) {
	trial.ID = len(t.trials)
	t.trials = append(t.trials, trial)
}

// Len is the number of recorded trials.
func (t *Trials) Len() int {
	return len(t.trials)
}

// All returns a copy of the history.
func (t *Trials) All() []Trial {
	return append([]Trial(nil), t.trials...)
}

// OK returns the successful trials in insertion order.
func (t *Trials) OK() []Trial {
	var out []Trial
	for _, tr := range t.trials {
		if tr.Status == StatusOK {
			out = append(out, tr)
		}
	}
	return out
}

// Losses returns the loss of every successful trial in insertion order.
func (t *Trials) Losses() []float64 {
	var out []float64
	for _, tr := range t.OK() {
		out = append(out, tr.Loss)
	}
	return out
}

// Best returns the successful trial with the lowest loss. Ties go to the
// earlier trial.
func (t *Trials) Best() (Trial, bool) {
	ok := t.OK()
	if len(ok) == 0 {
		return Trial{}, false
	}
	best := ok[0]
	for _, tr := range ok[1:] {
		if tr.Loss < best.Loss {
			best = tr
		}
	}
	return best, true
}

// sortedByLoss returns successful trials ordered by ascending loss; NaN
// losses sort last.
func (t *Trials) sortedByLoss() []Trial {
	ok := t.OK()
	sort.SliceStable(ok, func(i, j int) bool {
		a, b := ok[i].Loss, ok[j].Loss
		if math.IsNaN(a) {
			return false
		}
		if math.IsNaN(b) {
			return true
		}
		return a < b
	})
	return ok
}
