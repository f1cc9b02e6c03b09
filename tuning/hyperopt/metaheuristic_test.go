package hyperopt

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/estkit/optimiser"
)

// bowlEvaluator is minimised at depth 6, rate 0.2.
type bowlEvaluator struct{ m *depthModel }

func (b bowlEvaluator) Evaluate(context.Context) (float64, error) {
	dd := float64(b.m.Depth - 6)
	dr := b.m.Rate - 0.2
	return dd*dd + dr*dr, nil
}

type opaqueDistribution struct{}

func (opaqueDistribution) Label() string                 { return "opaque" }
func (opaqueDistribution) Sample(*rand.Rand) interface{} { return 0 }

func TestSpaceDefinition(t *testing.T) {
	tuner, err := New(&recordingTarget{}, &sequenceEvaluator{values: []float64{1}}, WithSpace(mixedSpace()))
	require.NoError(t, err)

	def, err := tuner.Definition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, def.Len())
	// names are sorted: depth, rate, solver
	assert.Equal(t, []float64{2, 0.01, 0}, def.LowerBounds())
	assert.Equal(t, []float64{10, 0.3, 2}, def.UpperBounds())

	a := def.Assignment([]float64{4.6, 0.5, 1.4})
	assert.Equal(t, 5.0, a["depth"])
	assert.Equal(t, 0.3, a["rate"])
	assert.Equal(t, "sgd", a["solver"])

	assert.Equal(t, 1.0, def.Score([]float64{3, 0.1, 0}))
	assert.Equal(t, 1, tuner.Trials().Len())

	tuner.AddParameter("opaque", opaqueDistribution{})
	_, err = tuner.Definition(context.Background())
	assert.Error(t, err)
}

func TestTuneWithSolver(t *testing.T) {
	m := &depthModel{}
	tuner, err := New(FromTunable(m), bowlEvaluator{m: m})
	require.NoError(t, err)
	tuner.AddUniformIntParameter("depth", 2, 10)
	tuner.AddUniformParameter("rate", 0, 1)

	err = tuner.TuneWithSolver(context.Background(), "RandomSearch",
		optimiser.WithEpochs(20), optimiser.WithPopulation(10), optimiser.WithSeed(1))
	require.NoError(t, err)

	assert.Equal(t, 200, tuner.Trials().Len())
	assert.Equal(t, 6, tuner.Best["depth"])
	assert.Less(t, tuner.BestLoss, 0.5)

	require.NoError(t, tuner.ApplyBest())
	assert.Equal(t, 6, m.Depth)
}

func TestTuneWithSolverUnknownAlgorithm(t *testing.T) {
	m := &depthModel{}
	tuner, err := New(FromTunable(m), bowlEvaluator{m: m})
	require.NoError(t, err)
	tuner.AddUniformIntParameter("depth", 2, 10)

	assert.Error(t, tuner.TuneWithSolver(context.Background(), "QTable"))
	assert.Nil(t, tuner.Best)
}
