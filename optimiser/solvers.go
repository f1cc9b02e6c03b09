package optimiser

import (
	"context"
	"math/rand"
	"sort"

	"github.com/cwbudde/mayfly"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/YuminosukeSato/estkit/pkg/errors"
)

// Result is what a solver returns. Objectives[0] is the best objective
// value in the problem's own sign; Solution is the decoded point that
// produced it.
type Result struct {
	Solution    []float64
	Objectives  []float64
	History     []float64
	Evaluations int
}

// SolverConfig is passed to every Factory.
type SolverConfig struct {
	Epochs     int
	Population int
	Seed       int64
}

// Solver minimises the tracker's view of a Problem.
type Solver interface {
	Name() string
	Solve(ctx context.Context, p Problem, cfg SolverConfig) (Result, error)
}

// Factory builds a solver.
type Factory func() Solver

// registry is the static list of available solvers.
var registry = map[string]Factory{
	"OriginalMayfly": func() Solver { return mayflySolver{} },
	"CmaEsChol":      func() Solver { return gonumSolver{name: "CmaEsChol"} },
	"NelderMead":     func() Solver { return gonumSolver{name: "NelderMead"} },
	"GuessAndCheck":  func() Solver { return gonumSolver{name: "GuessAndCheck"} },
	"RandomSearch":   func() Solver { return randomSolver{} },
}

// Names lists the registered solvers in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, error) {
	f, ok := registry[name]
	if !ok {
		return nil, errors.NewValidationError("algorithm", "unknown solver", name)
	}
	return f, nil
}

// run wraps a solver body with tracking and log-file handling.
func run(ctx context.Context, p Problem, cfg SolverConfig, name string, body func(t *tracker) error) (res Result, err error) {
	if err := ctx.Err(); err != nil {
		return Result{}, errors.Wrap(err, "optimiser: solve interrupted")
	}
	t, err := newTracker(ctx, p, name, cfg.Population)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if cerr := t.close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close optimiser log")
		}
	}()

	if err := body(t); err != nil && t.failure == nil {
		return Result{}, errors.NewModelError("optimiser."+name, "solver failed", err)
	}
	return t.result()
}

// mayflySolver runs the Mayfly algorithm on the unit cube.
type mayflySolver struct{}

// the library refuses smaller populations
const mayflyMinPopulation = 20

func (mayflySolver) Name() string { return "OriginalMayfly" }

func (s mayflySolver) Solve(ctx context.Context, p Problem, cfg SolverConfig) (Result, error) {
	return run(ctx, p, cfg, s.Name(), func(t *tracker) error {
		config := mayfly.NewDefaultConfig()
		config.ObjectiveFunc = t.eval
		config.ProblemSize = p.Bounds.Dim()
		config.MaxIterations = cfg.Epochs
		config.NPop = max(cfg.Population, mayflyMinPopulation)
		config.LowerBound = 0
		config.UpperBound = 1
		config.Rand = rand.New(rand.NewSource(cfg.Seed))

		_, err := mayfly.Optimize(config)
		return err
	})
}

// gonumSolver adapts a gonum/optimize method. The search starts from the
// centre of the cube.
type gonumSolver struct {
	name string
}

func (s gonumSolver) Name() string { return s.name }

func (s gonumSolver) method(dim, population int) optimize.Method {
	switch s.name {
	case "CmaEsChol":
		return &optimize.CmaEsChol{InitStepSize: 0.3, Population: population}
	case "GuessAndCheck":
		cube := make([]r1.Interval, dim)
		for i := range cube {
			cube[i] = r1.Interval{Min: 0, Max: 1}
		}
		return &optimize.GuessAndCheck{Rander: distmv.NewUniform(cube, nil)}
	default:
		return &optimize.NelderMead{}
	}
}

func (s gonumSolver) Solve(ctx context.Context, p Problem, cfg SolverConfig) (Result, error) {
	return run(ctx, p, cfg, s.name, func(t *tracker) error {
		dim := p.Bounds.Dim()
		x0 := make([]float64, dim)
		for i := range x0 {
			x0[i] = 0.5
		}
		settings := &optimize.Settings{
			FuncEvaluations: cfg.Epochs * max(cfg.Population, 1),
			Concurrent:      1,
		}
		problem := optimize.Problem{Func: t.eval}

		_, err := optimize.Minimize(problem, x0, settings, s.method(dim, cfg.Population))
		return err
	})
}

// randomSolver samples the cube uniformly, epochs × population times.
type randomSolver struct{}

func (randomSolver) Name() string { return "RandomSearch" }

func (s randomSolver) Solve(ctx context.Context, p Problem, cfg SolverConfig) (Result, error) {
	return run(ctx, p, cfg, s.Name(), func(t *tracker) error {
		rng := rand.New(rand.NewSource(cfg.Seed))
		u := make([]float64, p.Bounds.Dim())
		for i := 0; i < cfg.Epochs*max(cfg.Population, 1) && !t.canceled; i++ {
			for j := range u {
				u[j] = rng.Float64()
			}
			t.eval(u)
		}
		return nil
	})
}
