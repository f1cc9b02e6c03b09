package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	defaults := Params{"n_estimators": 100, "learning_rate": 0.1, "min_samples_leaf": 24}
	custom := Params{"learning_rate": 0.05, "subsample": 0.8}

	merged := Merge(defaults, custom)

	assert.Equal(t, 0.05, merged["learning_rate"], "custom wins on collision")
	assert.Equal(t, 100, merged["n_estimators"], "default-only keys are kept")
	assert.Equal(t, 0.8, merged["subsample"])
	assert.Equal(t, []string{"learning_rate", "min_samples_leaf", "n_estimators", "subsample"}, merged.Keys())

	// inputs untouched
	assert.Equal(t, 0.1, defaults["learning_rate"])
	assert.NotContains(t, defaults, "subsample")
}

func TestMergeCopiesTuples(t *testing.T) {
	defaults := Params{"hidden_layer_sizes": []int{10}}
	merged := Merge(defaults, nil)
	merged["hidden_layer_sizes"].([]int)[0] = 99
	assert.Equal(t, []int{10}, defaults["hidden_layer_sizes"])
}

func TestTypedGetters(t *testing.T) {
	p := Params{
		"max_iter": 1000.0,
		"alpha":    1,
		"solver":   "adam",
		"layers":   []interface{}{50, 50.0},
		"frac":     2.5,
	}

	n, err := p.Int("max_iter")
	require.NoError(t, err)
	assert.Equal(t, 1000, n)

	f, err := p.Float("alpha")
	require.NoError(t, err)
	assert.Equal(t, 1.0, f)

	s, err := p.String("solver")
	require.NoError(t, err)
	assert.Equal(t, "adam", s)

	layers, err := p.Ints("layers")
	require.NoError(t, err)
	assert.Equal(t, []int{50, 50}, layers)

	_, err = p.Int("frac")
	assert.Error(t, err)
	_, err = p.String("alpha")
	assert.Error(t, err)
	_, err = p.Float("missing")
	assert.Error(t, err)
}

func TestSetters(t *testing.T) {
	var (
		nEstimators int
		lr          float64
		solver      string
		layers      []int
	)
	s := Setters{
		"n_estimators":       IntSetter("n_estimators", &nEstimators),
		"learning_rate":      FloatSetter("learning_rate", &lr),
		"solver":             StringSetter("solver", &solver),
		"hidden_layer_sizes": IntsSetter("hidden_layer_sizes", &layers),
	}

	require.NoError(t, s.Apply("n_estimators", 3.0))
	require.NoError(t, s.Apply("learning_rate", 2))
	require.NoError(t, s.Apply("solver", "sgd"))
	require.NoError(t, s.Apply("hidden_layer_sizes", 64))

	assert.Equal(t, 3, nEstimators)
	assert.Equal(t, 2.0, lr)
	assert.Equal(t, "sgd", solver)
	assert.Equal(t, []int{64}, layers)

	assert.Error(t, s.Apply("n_estimators", 2.5))
	assert.Error(t, s.Apply("unknown", 1))
	assert.Equal(t, []string{"hidden_layer_sizes", "learning_rate", "n_estimators", "solver"}, s.Names())
}

func TestBaseEstimator(t *testing.T) {
	var b BaseEstimator
	assert.False(t, b.IsFitted())
	assert.Equal(t, "not_fitted", b.State().String())
	b.SetFitted()
	assert.True(t, b.IsFitted())
	b.Reset()
	assert.Equal(t, NotFitted, b.State())
}
