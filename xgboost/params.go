package xgboost

import (
	"github.com/YuminosukeSato/estkit/core/model"
	"github.com/YuminosukeSato/estkit/pkg/errors"
)

// Booster kinds.
const (
	BoosterGBTree = "gbtree"
	BoosterDart   = "dart"
)

// config is the parsed form of the parameter map handed to Train.
type config struct {
	booster        string
	eta            float64
	maxDepth       int
	gamma          float64
	lambda         float64
	minChildWeight float64
	subsample      float64
	objective      string
	huberSlope     float64
	baseScore      *float64
	seed           int64

	sampleType    string
	normalizeType string
	rateDrop      float64
	skipDrop      float64
	oneDrop       bool
}

func defaultConfig() config {
	return config{
		booster:        BoosterGBTree,
		eta:            0.3,
		maxDepth:       6,
		lambda:         1,
		minChildWeight: 1,
		subsample:      1,
		objective:      "reg:squarederror",
		huberSlope:     1,
		sampleType:     "uniform",
		normalizeType:  "tree",
	}
}

// parseParams reads the recognised keys. Keys nobody reads are reported
// through errors.Warn and otherwise ignored, which is what XGBoost does.
func parseParams(params map[string]interface{}) (config, error) {
	c := defaultConfig()

	var seed, maxDepth int
	var baseScore float64
	maxDepth = c.maxDepth
	setters := model.Setters{
		"booster":          model.StringSetter("booster", &c.booster),
		"eta":              model.FloatSetter("eta", &c.eta),
		"learning_rate":    model.FloatSetter("learning_rate", &c.eta),
		"max_depth":        model.IntSetter("max_depth", &maxDepth),
		"gamma":            model.FloatSetter("gamma", &c.gamma),
		"min_split_loss":   model.FloatSetter("min_split_loss", &c.gamma),
		"lambda":           model.FloatSetter("lambda", &c.lambda),
		"reg_lambda":       model.FloatSetter("reg_lambda", &c.lambda),
		"min_child_weight": model.FloatSetter("min_child_weight", &c.minChildWeight),
		"subsample":        model.FloatSetter("subsample", &c.subsample),
		"objective":        model.StringSetter("objective", &c.objective),
		"huber_slope":      model.FloatSetter("huber_slope", &c.huberSlope),
		"sample_type":      model.StringSetter("sample_type", &c.sampleType),
		"normalize_type":   model.StringSetter("normalize_type", &c.normalizeType),
		"rate_drop":        model.FloatSetter("rate_drop", &c.rateDrop),
		"skip_drop":        model.FloatSetter("skip_drop", &c.skipDrop),
		"seed":             model.IntSetter("seed", &seed),
		"random_state":     model.IntSetter("random_state", &seed),
		"base_score": func(v interface{}) error {
			f, err := model.ToFloat("base_score", v)
			if err != nil {
				return err
			}
			baseScore = f
			c.baseScore = &baseScore
			return nil
		},
		"one_drop": func(v interface{}) error {
			if b, err := model.ToBool("one_drop", v); err == nil {
				c.oneDrop = b
				return nil
			}
			n, err := model.ToInt("one_drop", v)
			c.oneDrop = n != 0
			return err
		},
	}

	for _, k := range model.Params(params).Keys() {
		if _, ok := setters[k]; !ok {
			errors.Warn(errors.NewUnknownParameterWarning("xgboost", k))
			continue
		}
		if err := setters.Apply(k, params[k]); err != nil {
			return c, err
		}
	}
	c.maxDepth = maxDepth
	c.seed = int64(seed)
	return c, c.validate()
}

func (c config) validate() error {
	switch {
	case c.booster != BoosterGBTree && c.booster != BoosterDart:
		return errors.NewValidationError("booster", "must be gbtree or dart", c.booster)
	case c.eta <= 0:
		return errors.NewValidationError("learning_rate", "must be > 0", c.eta)
	case c.maxDepth < 0:
		return errors.NewValidationError("max_depth", "must be >= 0", c.maxDepth)
	case c.gamma < 0:
		return errors.NewValidationError("gamma", "must be >= 0", c.gamma)
	case c.lambda < 0:
		return errors.NewValidationError("lambda", "must be >= 0", c.lambda)
	case c.subsample <= 0 || c.subsample > 1:
		return errors.NewValidationError("subsample", "must be in (0, 1]", c.subsample)
	case c.huberSlope <= 0:
		return errors.NewValidationError("huber_slope", "must be > 0", c.huberSlope)
	case c.sampleType != "uniform" && c.sampleType != "weighted":
		return errors.NewValidationError("sample_type", "must be uniform or weighted", c.sampleType)
	case c.normalizeType != "tree" && c.normalizeType != "forest":
		return errors.NewValidationError("normalize_type", "must be tree or forest", c.normalizeType)
	case c.rateDrop < 0 || c.rateDrop > 1:
		return errors.NewValidationError("rate_drop", "must be in [0, 1]", c.rateDrop)
	case c.skipDrop < 0 || c.skipDrop > 1:
		return errors.NewValidationError("skip_drop", "must be in [0, 1]", c.skipDrop)
	}
	if _, ok := newObjective(c.objective, c.huberSlope); !ok {
		return errors.NewValidationError("objective", "unsupported objective", c.objective)
	}
	return nil
}
