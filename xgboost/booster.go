package xgboost

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/estkit/pkg/errors"
	"github.com/YuminosukeSato/estkit/pkg/log"
	"github.com/YuminosukeSato/estkit/sklearn/tree"
)

// Booster is a trained model. Prediction is the base score plus the weighted
// sum of every tree; gbtree weights are all 1.
type Booster struct {
	kind      string
	objective string
	baseScore float64
	nFeatures int

	trees   []*tree.Tree
	weights []float64

	// EvalHistory holds the mean training loss after each round.
	EvalHistory []float64
}

// NumTrees returns the number of boosted trees.
func (b *Booster) NumTrees() int {
	return len(b.trees)
}

// Weights returns a copy of the per-tree weights.
func (b *Booster) Weights() []float64 {
	return append([]float64(nil), b.weights...)
}

// BaseScore returns the constant starting prediction.
func (b *Booster) BaseScore() float64 {
	return b.baseScore
}

// Predict returns one prediction per row of d. Dropout only happens while
// training; every tree contributes here.
func (b *Booster) Predict(d *DMatrix) (*mat.VecDense, error) {
	if d.NumCol() != b.nFeatures {
		return nil, errors.NewDimensionError("xgboost.Booster.Predict", b.nFeatures, d.NumCol(), 1)
	}
	n := d.NumRow()
	out := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		row := d.data.RawRowView(i)
		v := b.baseScore
		for k, t := range b.trees {
			v += b.weights[k] * t.PredictRow(row)
		}
		out.SetVec(i, v)
	}
	return out, nil
}

// Train runs nRounds boosting rounds over dtrain.
func Train(params map[string]interface{}, dtrain *DMatrix, nRounds int) (*Booster, error) {
	if dtrain == nil || dtrain.label == nil {
		return nil, errors.NewValueError("xgboost.Train", "training matrix has no labels")
	}
	if nRounds < 1 {
		return nil, errors.NewValidationError("nRounds", "must be >= 1", nRounds)
	}
	cfg, err := parseParams(params)
	if err != nil {
		return nil, err
	}
	obj, _ := newObjective(cfg.objective, cfg.huberSlope)

	n := dtrain.NumRow()
	labels := dtrain.label
	b := &Booster{
		kind:      cfg.booster,
		objective: obj.Name(),
		nFeatures: dtrain.NumCol(),
	}
	if cfg.baseScore != nil {
		b.baseScore = *cfg.baseScore
	} else {
		b.baseScore = obj.BaseScore(labels)
	}

	logger := log.GetLoggerWithName("xgboost")
	logger.Debug("Training booster",
		"booster", cfg.booster,
		"objective", obj.Name(),
		log.SamplesKey, n,
		log.FeaturesKey, b.nFeatures,
		"n_rounds", nRounds)

	rng := rand.New(rand.NewSource(cfg.seed))
	grad := make([]float64, n)
	hess := make([]float64, n)
	builder := &tree.Builder{
		Params: tree.BuilderParams{
			MaxDepth:       cfg.maxDepth,
			MinChildWeight: cfg.minChildWeight,
			Lambda:         cfg.lambda,
			Gamma:          cfg.gamma,
		},
		X:    dtrain.data,
		Grad: grad,
		Hess: hess,
	}

	// contrib[k][i] is tree k's unweighted output on row i.
	var contrib [][]float64
	pred := make([]float64, n)
	nSub := int(cfg.subsample * float64(n))
	if nSub < 1 {
		nSub = 1
	}

	for round := 0; round < nRounds; round++ {
		var dropped []int
		if cfg.booster == BoosterDart {
			dropped = b.selectDropped(cfg, rng)
		}

		b.margin(pred, contrib, dropped)
		for i := 0; i < n; i++ {
			grad[i] = obj.Gradient(pred[i], labels[i])
			hess[i] = obj.Hessian(pred[i], labels[i])
		}

		var sample []int
		if nSub < n {
			sample = rng.Perm(n)[:nSub]
		}
		t := builder.Build(sample)
		t.Scale(cfg.eta)

		out := make([]float64, n)
		for i := 0; i < n; i++ {
			out[i] = t.PredictRow(dtrain.data.RawRowView(i))
		}

		b.trees = append(b.trees, t)
		contrib = append(contrib, out)
		b.weights = append(b.weights, b.normalise(cfg, dropped))

		b.margin(pred, contrib, nil)
		var loss float64
		for i := 0; i < n; i++ {
			loss += obj.Loss(pred[i], labels[i])
		}
		b.EvalHistory = append(b.EvalHistory, loss/float64(n))
		logger.Debug("Boosting round",
			log.IterationKey, round,
			log.LossKey, b.EvalHistory[round],
			"dropped", len(dropped))
	}
	return b, nil
}

// margin writes base + weighted contributions into pred, leaving out the
// trees listed in skip.
func (b *Booster) margin(pred []float64, contrib [][]float64, skip []int) {
	skipped := make(map[int]bool, len(skip))
	for _, k := range skip {
		skipped[k] = true
	}
	for i := range pred {
		pred[i] = b.baseScore
	}
	for k, c := range contrib {
		if skipped[k] {
			continue
		}
		w := b.weights[k]
		for i := range pred {
			pred[i] += w * c[i]
		}
	}
}

// selectDropped picks the trees to drop for one dart round.
func (b *Booster) selectDropped(cfg config, rng *rand.Rand) []int {
	nTrees := len(b.trees)
	if nTrees == 0 || rng.Float64() < cfg.skipDrop {
		return nil
	}

	var dropped []int
	switch cfg.sampleType {
	case "weighted":
		var sum float64
		for _, w := range b.weights {
			sum += w
		}
		for k, w := range b.weights {
			p := cfg.rateDrop * float64(nTrees) * w / sum
			if rng.Float64() < p {
				dropped = append(dropped, k)
			}
		}
	default:
		for k := 0; k < nTrees; k++ {
			if rng.Float64() < cfg.rateDrop {
				dropped = append(dropped, k)
			}
		}
	}
	if cfg.oneDrop && len(dropped) == 0 {
		dropped = append(dropped, rng.Intn(nTrees))
	}
	return dropped
}

// normalise rescales the dropped trees and returns the weight of the new one.
// With k dropped trees and learning rate eta, "tree" gives the new tree
// 1/(k+eta) and scales dropped ones by k/(k+eta); "forest" uses 1/(1+eta)
// for both.
func (b *Booster) normalise(cfg config, dropped []int) float64 {
	k := float64(len(dropped))
	if k == 0 {
		return 1
	}
	var newWeight, factor float64
	if cfg.normalizeType == "forest" {
		factor = 1 / (1 + cfg.eta)
		newWeight = factor
	} else {
		factor = k / (k + cfg.eta)
		newWeight = 1 / (k + cfg.eta)
	}
	for _, idx := range dropped {
		b.weights[idx] *= factor
	}
	return newWeight
}
