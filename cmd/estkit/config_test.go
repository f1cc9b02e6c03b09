package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
data: prices.csv
target: price
model: svr
split_ratio: 0.75
params:
  C: 2.5
  layers: [64, 32]
tune:
  iterations: 8
  metric: mae
solver:
  algorithm: NelderMead
  algorithms: [RandomSearch, CmaEsChol]
cluster:
  labels: [a, b]
  n_clusters: 3
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig(writeFile(t, "estkit.yaml", sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "prices.csv", cfg.Data)
	assert.Equal(t, "svr", cfg.Model)
	assert.Equal(t, 0.75, cfg.SplitRatio)
	assert.Equal(t, 2.5, cfg.Params["C"])
	assert.Equal(t, []interface{}{64, 32}, cfg.Params["layers"])
	assert.Equal(t, 8, cfg.Tune.Iterations)
	assert.Equal(t, "mae", cfg.Tune.Metric)
	assert.Equal(t, []string{"RandomSearch", "CmaEsChol"}, cfg.Solver.Algorithms)
	assert.Equal(t, []string{"a", "b"}, cfg.Cluster.Labels)

	// untouched keys keep their defaults
	assert.Equal(t, 1, cfg.Tune.CVSteps)
	assert.Equal(t, "tpe", cfg.Tune.Algorithm)
	assert.Equal(t, 20, cfg.Solver.Epochs)
	assert.Equal(t, int64(1), cfg.Seed)
	assert.Equal(t, "standard", cfg.Scaler)
	assert.Equal(t, 50, cfg.Cluster.MaxIterations)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = loadConfig(writeFile(t, "bad.yaml", "tune: [1, 2"))
	assert.Error(t, err)

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestParseParams(t *testing.T) {
	p, err := parseParams([]string{"nEstimators=600", "learningRate=0.05", "solver=adam", "layers=[64, 32]"})
	require.NoError(t, err)
	assert.Equal(t, 600, p["nEstimators"])
	assert.Equal(t, 0.05, p["learningRate"])
	assert.Equal(t, "adam", p["solver"])
	assert.Equal(t, []interface{}{64, 32}, p["layers"])

	_, err = parseParams([]string{"noequals"})
	assert.Error(t, err)
	_, err = parseParams([]string{"=3"})
	assert.Error(t, err)
}

func TestFlagsOverrideConfig(t *testing.T) {
	cfg, err := loadConfig(writeFile(t, "estkit.yaml", sampleConfig))
	require.NoError(t, err)

	cmd := &cobra.Command{Use: "solve"}
	addEstimatorFlags(cmd)
	addObjectiveFlags(cmd)
	addSolverFlags(cmd)
	cmd.Flags().String("algorithm", "OriginalMayfly", "")
	require.NoError(t, cmd.ParseFlags([]string{
		"--model", "gbdt",
		"--param", "C=4",
		"--param", "nEstimators=700",
		"--epochs", "5",
		"--scaler", "minmax",
		"--algorithm", "RandomSearch",
	}))
	require.NoError(t, cfg.applyFlags(cmd))

	assert.Equal(t, "gbdt", cfg.Model)
	assert.Equal(t, 4, cfg.Params["C"])
	assert.Equal(t, 700, cfg.Params["nEstimators"])
	assert.Equal(t, []interface{}{64, 32}, cfg.Params["layers"])
	assert.Equal(t, 5, cfg.Solver.Epochs)
	assert.Equal(t, "minmax", cfg.Scaler)
	assert.Equal(t, "RandomSearch", cfg.Solver.Algorithm)

	// flags left at their defaults do not clobber the file
	assert.Equal(t, "prices.csv", cfg.Data)
	assert.Equal(t, 0.75, cfg.SplitRatio)
	assert.Equal(t, "mae", cfg.Tune.Metric)
	assert.Equal(t, 20, cfg.Solver.Population)
}

func TestRequireData(t *testing.T) {
	cfg := defaultConfig()
	assert.Error(t, cfg.requireData())
	cfg.Data = "x.csv"
	assert.Error(t, cfg.requireData())
	cfg.Target = "y"
	assert.NoError(t, cfg.requireData())
}
