package optimiser

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/estkit/core/model"
	"github.com/YuminosukeSato/estkit/pkg/errors"
	"github.com/YuminosukeSato/estkit/pkg/log"
)

// bowl is minimised at (3, 3) inside [0, 10]².
type bowl struct{ calls int }

func (b *bowl) Score(x []float64) float64 {
	b.calls++
	return (x[0]-3)*(x[0]-3) + (x[1]-3)*(x[1]-3)
}
func (b *bowl) UpperBounds() []float64 { return []float64{10, 10} }
func (b *bowl) Len() int               { return 2 }

// hill is maximised at (2, -1) inside [-5, 5]².
type hill struct{}

func (hill) Score(x []float64) float64 { return -((x[0]-2)*(x[0]-2) + (x[1]+1)*(x[1]+1)) }
func (hill) UpperBounds() []float64    { return []float64{5, 5} }
func (hill) LowerBounds() []float64    { return []float64{-5, -5} }
func (hill) Len() int                  { return 2 }

type exploding struct{ bowl }

// plateau scores every point the same.
type plateau struct{ bowl }

func (plateau) Score([]float64) float64 { return 1 }

func (exploding) Score([]float64) float64 { panic("objective blew up") }

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"CmaEsChol", "GuessAndCheck", "NelderMead", "OriginalMayfly", "RandomSearch"}, Names())
	for _, name := range Names() {
		f, err := Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, name, f().Name())
	}
	_, err := Lookup("QTable")
	assert.Error(t, err)

	_, err = New(&bowl{}, WithAlgorithm("QTable"))
	assert.Error(t, err)
}

func TestBoundsAndProblem(t *testing.T) {
	o, err := New(&bowl{})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, o.LowerBounds())

	h, err := New(hill{})
	require.NoError(t, err)
	assert.Equal(t, []float64{-5, -5}, h.LowerBounds())

	o.CustomParams = model.Params{"minmax": "max", "log_to": "/tmp/x.log", "obj_weights": []int{1, 2}}
	p, err := o.CompleteProblem()
	require.NoError(t, err)
	assert.Equal(t, Maximise, p.MinMax)
	assert.Equal(t, "/tmp/x.log", p.LogTo)
	assert.Equal(t, []int{1, 2}, p.Extra["obj_weights"])
	assert.Equal(t, IntegerVar, p.Bounds.VarType)

	o.CustomParams = model.Params{"minmax": 3}
	_, err = o.CompleteProblem()
	assert.Error(t, err)
}

func TestProblemValidate(t *testing.T) {
	obj := func([]float64) float64 { return 0 }
	tests := []struct {
		name string
		p    Problem
	}{
		{"no objective", Problem{MinMax: Minimise, Bounds: Bounds{Lower: []float64{0}, Upper: []float64{1}}}},
		{"bad direction", Problem{ObjFunc: obj, MinMax: "sideways", Bounds: Bounds{Lower: []float64{0}, Upper: []float64{1}}}},
		{"empty bounds", Problem{ObjFunc: obj, MinMax: Minimise}},
		{"unpaired", Problem{ObjFunc: obj, MinMax: Minimise, Bounds: Bounds{Lower: []float64{0}, Upper: []float64{1, 2}}}},
		{"reversed", Problem{ObjFunc: obj, MinMax: Minimise, Bounds: Bounds{Lower: []float64{2}, Upper: []float64{1}}}},
		{"no integer", Problem{ObjFunc: obj, MinMax: Minimise, Bounds: Bounds{Lower: []float64{0.2}, Upper: []float64{0.8}, VarType: IntegerVar}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.p.Validate())
		})
	}
}

func TestDecode(t *testing.T) {
	p := Problem{Bounds: Bounds{Lower: []float64{-1, 0}, Upper: []float64{1, 10}, VarType: IntegerVar}}
	assert.Equal(t, []float64{-1, 10}, p.Decode([]float64{-0.5, 1.5}))
	assert.Equal(t, []float64{0, 5}, p.Decode([]float64{0.5, 0.52}))

	p.Bounds.VarType = FloatVar
	assert.InDeltaSlice(t, []float64{0, 5.2}, p.Decode([]float64{0.5, 0.52}), 1e-12)
}

func TestSolveRequiresAlgorithm(t *testing.T) {
	o, err := New(&bowl{})
	require.NoError(t, err)
	err = o.Solve(context.Background())
	var niErr *errors.NotImplementedError
	assert.True(t, errors.As(err, &niErr))
}

func TestRandomSearchFindsIntegerOptimum(t *testing.T) {
	b := &bowl{}
	o, err := New(b, WithAlgorithm("RandomSearch"), WithEpochs(40), WithPopulation(50), WithSeed(1))
	require.NoError(t, err)
	require.NoError(t, o.Solve(context.Background()))

	res := o.LastResult
	require.NotNil(t, res)
	assert.Equal(t, 0.0, res.Objectives[0])
	assert.Equal(t, []float64{3, 3}, res.Solution)
	assert.Equal(t, 2000, res.Evaluations)
	assert.Equal(t, 2000, b.calls)
	assert.Len(t, res.History, 40)
	for i := 1; i < len(res.History); i++ {
		assert.LessOrEqual(t, res.History[i], res.History[i-1])
	}
}

func TestMaximise(t *testing.T) {
	o, err := New(hill{}, WithAlgorithm("RandomSearch"), WithMinMax(Maximise),
		WithVarType(FloatVar), WithEpochs(50), WithPopulation(50), WithSeed(2))
	require.NoError(t, err)
	require.NoError(t, o.Solve(context.Background()))

	v := o.LastResult.Objectives[0]
	assert.LessOrEqual(t, v, 0.0)
	assert.Greater(t, v, -0.1)
	assert.InDelta(t, 2, o.LastResult.Solution[0], 0.35)
	assert.InDelta(t, -1, o.LastResult.Solution[1], 0.35)
}

func TestGonumSolvers(t *testing.T) {
	for _, name := range []string{"NelderMead", "CmaEsChol", "GuessAndCheck"} {
		t.Run(name, func(t *testing.T) {
			o, err := New(&bowl{}, WithAlgorithm(name), WithVarType(FloatVar),
				WithEpochs(100), WithPopulation(20), WithSeed(3))
			require.NoError(t, err)
			require.NoError(t, o.Solve(context.Background()))

			res := o.LastResult
			assert.Less(t, res.Objectives[0], 0.5)
			for i, x := range res.Solution {
				assert.True(t, x >= 0 && x <= 10, "x[%d] = %v", i, x)
			}
			assert.LessOrEqual(t, res.Evaluations, 100*20+20)
		})
	}
}

func TestMayfly(t *testing.T) {
	o, err := New(&bowl{}, WithAlgorithm("OriginalMayfly"), WithVarType(FloatVar),
		WithEpochs(30), WithPopulation(5), WithSeed(4))
	require.NoError(t, err)
	require.NoError(t, o.Solve(context.Background()))

	res := o.LastResult
	assert.Less(t, res.Objectives[0], 1.0)
	for _, x := range res.Solution {
		assert.True(t, x >= 0 && x <= 10)
	}
}

func TestSolveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o, err := New(&bowl{}, WithAlgorithm("RandomSearch"))
	require.NoError(t, err)
	err = o.Solve(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Nil(t, o.LastResult)
}

func TestLogTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.jsonl")
	o, err := New(&bowl{}, WithAlgorithm("RandomSearch"), WithEpochs(3), WithPopulation(5),
		WithSeed(5), WithLogPath(path))
	require.NoError(t, err)
	require.NoError(t, o.Solve(context.Background()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var epochs []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		assert.Equal(t, "RandomSearch", entry[log.SolverKey])
		assert.Contains(t, entry, log.FitnessKey)
		epochs = append(epochs, entry[log.EpochKey].(float64))
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []float64{1, 2, 3}, epochs)
}

func TestBarrage(t *testing.T) {
	var out bytes.Buffer
	o, err := New(&bowl{}, WithVarType(FloatVar), WithEpochs(20), WithPopulation(20),
		WithSeed(6), WithOutput(&out))
	require.NoError(t, err)

	best, err := o.Barrage(context.Background(), "QTable", "RandomSearch", "NelderMead")
	require.NoError(t, err)
	assert.Contains(t, []string{"RandomSearch", "NelderMead"}, best)
	assert.Equal(t, best, o.Algorithm())
	assert.Contains(t, out.String(), "QTable")
	assert.Contains(t, out.String(), "No solution")
	assert.False(t, math.IsNaN(o.LastResult.Objectives[0]))
}

func TestBarrageSurvivesPanics(t *testing.T) {
	var out bytes.Buffer
	o, err := New(&exploding{}, WithEpochs(2), WithPopulation(2), WithOutput(&out))
	require.NoError(t, err)

	_, err = o.Barrage(context.Background(), "RandomSearch", "NelderMead")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNoSolution))
	assert.Equal(t, 2, bytes.Count(out.Bytes(), []byte("No solution")))
}

func TestBarrageSurvivesPanicsInGonumSolvers(t *testing.T) {
	gonumSolvers := []string{"CmaEsChol", "NelderMead", "GuessAndCheck"}
	var out bytes.Buffer
	o, err := New(&exploding{}, WithVarType(FloatVar), WithEpochs(3), WithPopulation(6), WithOutput(&out))
	require.NoError(t, err)

	_, err = o.Barrage(context.Background(), gonumSolvers...)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNoSolution))
	assert.Equal(t, len(gonumSolvers), bytes.Count(out.Bytes(), []byte("No solution")))
}

func TestSolveReturnsObjectivePanic(t *testing.T) {
	for _, name := range []string{"NelderMead", "RandomSearch"} {
		t.Run(name, func(t *testing.T) {
			o, err := New(&exploding{}, WithVarType(FloatVar), WithAlgorithm(name), WithEpochs(2), WithPopulation(4))
			require.NoError(t, err)

			err = o.Solve(context.Background())
			require.Error(t, err)
			var pe *errors.PanicError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, "objective blew up", pe.PanicValue)
			assert.Nil(t, o.LastResult)
		})
	}
}

func TestBarrageTieGoesToLaterSolver(t *testing.T) {
	for _, names := range [][]string{
		{"RandomSearch", "GuessAndCheck"},
		{"GuessAndCheck", "RandomSearch"},
	} {
		var out bytes.Buffer
		o, err := New(&plateau{}, WithVarType(FloatVar), WithEpochs(2), WithPopulation(3), WithOutput(&out))
		require.NoError(t, err)

		best, err := o.Barrage(context.Background(), names...)
		require.NoError(t, err)
		assert.Equal(t, names[1], best)
		assert.Equal(t, names[1], o.Algorithm())
		assert.Equal(t, 1.0, o.LastResult.Objectives[0])
	}
}
