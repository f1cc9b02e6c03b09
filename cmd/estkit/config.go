package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/estkit/core/model"
	"github.com/YuminosukeSato/estkit/estimator"
	"github.com/YuminosukeSato/estkit/estimators"
	"github.com/YuminosukeSato/estkit/pkg/errors"
)

// Config is the --config file layout. Command-line flags override it.
type Config struct {
	Data       string                 `yaml:"data"`
	Target     string                 `yaml:"target"`
	Model      string                 `yaml:"model"`
	SplitRatio float64                `yaml:"split_ratio"`
	Seed       int64                  `yaml:"seed"`
	Scaler     string                 `yaml:"scaler"`
	Params     map[string]interface{} `yaml:"params"`
	Plot       string                 `yaml:"plot"`

	Tune    TuneConfig    `yaml:"tune"`
	Solver  SolverConfig  `yaml:"solver"`
	Cluster ClusterConfig `yaml:"cluster"`
}

// TuneConfig drives the tune command and the objective of solve and barrage.
type TuneConfig struct {
	Iterations int    `yaml:"iterations"`
	CVSteps    int    `yaml:"cv_steps"`
	Metric     string `yaml:"metric"`
	Algorithm  string `yaml:"algorithm"`
}

// SolverConfig drives solve and barrage.
type SolverConfig struct {
	Algorithm  string   `yaml:"algorithm"`
	Algorithms []string `yaml:"algorithms"`
	Epochs     int      `yaml:"epochs"`
	Population int      `yaml:"population"`
	LogTo      string   `yaml:"log_to"`
}

// ClusterConfig drives the cluster command.
type ClusterConfig struct {
	Labels        []string `yaml:"labels"`
	NClusters     int      `yaml:"n_clusters"`
	MaxIterations int      `yaml:"max_iterations"`
	NInit         int      `yaml:"n_init"`
	Output        string   `yaml:"output"`
}

func defaultConfig() Config {
	return Config{
		Model:      estimators.KindGBDT,
		SplitRatio: estimator.DefaultSplitRatio,
		Seed:       1,
		Scaler:     "standard",
		Params:     map[string]interface{}{},
		Tune: TuneConfig{
			Iterations: 20,
			CVSteps:    1,
			Metric:     "rmse",
			Algorithm:  "tpe",
		},
		Solver: SolverConfig{
			Algorithm:  "OriginalMayfly",
			Epochs:     20,
			Population: 20,
		},
		Cluster: ClusterConfig{
			NClusters:     4,
			MaxIterations: 50,
		},
	}
}

// loadConfig reads path over the defaults. An empty path returns the
// defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	if cfg.Params == nil {
		cfg.Params = map[string]interface{}{}
	}
	return cfg, nil
}

// parseParams turns name=value pairs into typed values. Values are read as
// YAML, so 3 is an int, 0.5 a float and [64, 32] a list.
func parseParams(pairs []string) (model.Params, error) {
	out := model.Params{}
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, errors.NewValidationError("param", "expected name=value", pair)
		}
		var v interface{}
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, errors.Wrapf(err, "parse param %s", name)
		}
		out[name] = v
	}
	return out, nil
}

// applyFlags copies every flag the user set onto cfg. Flags a command does
// not define are skipped.
func (c *Config) applyFlags(cmd *cobra.Command) error {
	fs := cmd.Flags()
	var err error
	set := func(name string, apply func() error) {
		if err == nil && fs.Lookup(name) != nil && fs.Changed(name) {
			err = apply()
		}
	}

	set("data", func() (e error) { c.Data, e = fs.GetString("data"); return })
	set("target", func() (e error) { c.Target, e = fs.GetString("target"); return })
	set("model", func() (e error) { c.Model, e = fs.GetString("model"); return })
	set("split-ratio", func() (e error) { c.SplitRatio, e = fs.GetFloat64("split-ratio"); return })
	set("seed", func() (e error) { c.Seed, e = fs.GetInt64("seed"); return })
	set("scaler", func() (e error) { c.Scaler, e = fs.GetString("scaler"); return })
	set("plot", func() (e error) { c.Plot, e = fs.GetString("plot"); return })
	set("param", func() error {
		pairs, e := fs.GetStringArray("param")
		if e != nil {
			return e
		}
		params, e := parseParams(pairs)
		if e != nil {
			return e
		}
		for k, v := range params {
			c.Params[k] = v
		}
		return nil
	})

	set("iterations", func() (e error) { c.Tune.Iterations, e = fs.GetInt("iterations"); return })
	set("cv-steps", func() (e error) { c.Tune.CVSteps, e = fs.GetInt("cv-steps"); return })
	set("metric", func() (e error) { c.Tune.Metric, e = fs.GetString("metric"); return })
	set("search", func() (e error) { c.Tune.Algorithm, e = fs.GetString("search"); return })

	set("algorithm", func() (e error) { c.Solver.Algorithm, e = fs.GetString("algorithm"); return })
	set("algorithms", func() (e error) { c.Solver.Algorithms, e = fs.GetStringSlice("algorithms"); return })
	set("epochs", func() (e error) { c.Solver.Epochs, e = fs.GetInt("epochs"); return })
	set("population", func() (e error) { c.Solver.Population, e = fs.GetInt("population"); return })
	set("log-to", func() (e error) { c.Solver.LogTo, e = fs.GetString("log-to"); return })

	set("labels", func() (e error) { c.Cluster.Labels, e = fs.GetStringSlice("labels"); return })
	set("n-clusters", func() (e error) { c.Cluster.NClusters, e = fs.GetInt("n-clusters"); return })
	set("max-iterations", func() (e error) { c.Cluster.MaxIterations, e = fs.GetInt("max-iterations"); return })
	set("n-init", func() (e error) { c.Cluster.NInit, e = fs.GetInt("n-init"); return })
	set("output", func() (e error) { c.Cluster.Output, e = fs.GetString("output"); return })
	return err
}

// requireData checks the settings every estimator command needs.
func (c *Config) requireData() error {
	if c.Data == "" {
		return errors.NewValidationError("data", "a CSV file is required (--data or config)", nil)
	}
	if c.Target == "" {
		return errors.NewValidationError("target", "a target column is required (--target or config)", nil)
	}
	return nil
}
