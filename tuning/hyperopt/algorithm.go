package hyperopt

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// Algorithm proposes the next candidate given the history so far.
type Algorithm interface {
	Suggest(space Space, trials *Trials, rng *rand.Rand) map[string]interface{}
}

// RandomSearch samples every parameter from its prior.
type RandomSearch struct{}

// Suggest draws one independent sample per parameter.
func (RandomSearch) Suggest(space Space, _ *Trials, rng *rand.Rand) map[string]interface{} {
	out := make(map[string]interface{}, len(space))
	for _, name := range space.Names() {
		out[name] = space[name].Sample(rng)
	}
	return out
}

// TPE is the Tree-structured Parzen Estimator. After NStartup random
// trials it splits the history into the best Gamma·sqrt(n) trials and the
// rest, fits a density to each per parameter, and picks among NCandidates
// draws from the "good" density the one maximising good/bad.
type TPE struct {
	NStartup    int
	Gamma       float64
	NCandidates int
}

// NewTPE returns TPE with hyperopt's defaults.
func NewTPE() *TPE {
	return &TPE{NStartup: 20, Gamma: 0.25, NCandidates: 24}
}

// Suggest proposes one candidate.
func (t *TPE) Suggest(space Space, trials *Trials, rng *rand.Rand) map[string]interface{} {
	history := trials.sortedByLoss()
	if len(history) < t.NStartup || len(history) < 2 {
		return RandomSearch{}.Suggest(space, trials, rng)
	}

	nBelow := int(math.Ceil(t.Gamma * math.Sqrt(float64(len(history)))))
	if nBelow < 1 {
		nBelow = 1
	}
	if nBelow >= len(history) {
		nBelow = len(history) - 1
	}
	below, above := history[:nBelow], history[nBelow:]

	out := make(map[string]interface{}, len(space))
	for _, name := range space.Names() {
		switch d := space[name].(type) {
		case Uniform:
			out[name] = t.suggestNumeric(d.Low, d.High, values(below, name), values(above, name), rng, nil)
		case UniformInt:
			out[name] = t.suggestNumeric(float64(d.Low), float64(d.High), values(below, name), values(above, name), rng, d.clamp)
		case Choice:
			out[name] = t.suggestChoice(name, d, below, above, rng)
		default:
			out[name] = d.Sample(rng)
		}
	}
	return out
}

func values(trials []Trial, name string) []float64 {
	var out []float64
	for _, tr := range trials {
		switch v := tr.Assignment[name].(type) {
		case float64:
			out = append(out, v)
		case int:
			out = append(out, float64(v))
		}
	}
	return out
}

// parzen is a mixture of normals truncated to [low, high]. The first
// component is the prior: centred on the range, as wide as the range.
type parzen struct {
	low, high float64
	mus       []float64
	sigmas    []float64
}

func newParzen(low, high float64, obs []float64) parzen {
	priorMu := (low + high) / 2
	priorSigma := high - low
	if priorSigma <= 0 {
		priorSigma = 1
	}

	mus := append([]float64{priorMu}, obs...)
	sort.Float64s(mus)

	// bandwidth: distance to the farther neighbour, clipped
	minSigma := priorSigma / math.Min(100, 1+float64(len(mus)))
	sigmas := make([]float64, len(mus))
	for i := range mus {
		var left, right float64
		if i > 0 {
			left = mus[i] - mus[i-1]
		} else {
			left = mus[i] - low
		}
		if i < len(mus)-1 {
			right = mus[i+1] - mus[i]
		} else {
			right = high - mus[i]
		}
		s := math.Max(left, right)
		sigmas[i] = math.Max(minSigma, math.Min(priorSigma, s))
	}
	for i, m := range mus {
		if m == priorMu {
			sigmas[i] = priorSigma
			break
		}
	}
	return parzen{low: low, high: high, mus: mus, sigmas: sigmas}
}

func (p parzen) logPDF(x float64) float64 {
	var sum float64
	w := 1 / float64(len(p.mus))
	for i, mu := range p.mus {
		n := distuv.Normal{Mu: mu, Sigma: p.sigmas[i]}
		z := n.CDF(p.high) - n.CDF(p.low)
		if z <= 0 {
			continue
		}
		sum += w * n.Prob(x) / z
	}
	if sum <= 0 {
		return math.Inf(-1)
	}
	return math.Log(sum)
}

func (p parzen) sample(rng *rand.Rand) float64 {
	k := rng.Intn(len(p.mus))
	for attempt := 0; attempt < 100; attempt++ {
		x := p.mus[k] + rng.NormFloat64()*p.sigmas[k]
		if x >= p.low && x <= p.high {
			return x
		}
	}
	return math.Max(p.low, math.Min(p.high, p.mus[k]))
}

func (t *TPE) suggestNumeric(low, high float64, below, above []float64, rng *rand.Rand, round func(float64) float64) float64 {
	good := newParzen(low, high, below)
	bad := newParzen(low, high, above)

	best, bestScore := 0.0, math.Inf(-1)
	for i := 0; i < max(1, t.NCandidates); i++ {
		x := good.sample(rng)
		if round != nil {
			x = round(x)
		}
		score := good.logPDF(x) - bad.logPDF(x)
		if i == 0 || score > bestScore {
			best, bestScore = x, score
		}
	}
	return best
}

func (t *TPE) suggestChoice(name string, c Choice, below, above []Trial, rng *rand.Rand) interface{} {
	weights := func(trials []Trial) []float64 {
		w := make([]float64, len(c.Options))
		for i := range w {
			w[i] = 1
		}
		for _, tr := range trials {
			if idx := c.index(tr.Assignment[name]); idx >= 0 {
				w[idx]++
			}
		}
		var total float64
		for _, v := range w {
			total += v
		}
		for i := range w {
			w[i] /= total
		}
		return w
	}
	good, bad := weights(below), weights(above)

	best, bestScore := 0, math.Inf(-1)
	for i := 0; i < max(1, t.NCandidates); i++ {
		// draw from the good categorical
		r := rng.Float64()
		idx := len(good) - 1
		var cum float64
		for j, p := range good {
			cum += p
			if r < cum {
				idx = j
				break
			}
		}
		score := math.Log(good[idx]) - math.Log(bad[idx])
		if score > bestScore {
			best, bestScore = idx, score
		}
	}
	return c.Options[best]
}
