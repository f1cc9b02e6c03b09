package optimiser

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/YuminosukeSato/estkit/core/model"
	"github.com/YuminosukeSato/estkit/pkg/errors"
	"github.com/YuminosukeSato/estkit/pkg/log"
)

// Optimiser assembles a Problem from a Definition and runs a registered
// solver on it.
type Optimiser struct {
	def Definition

	Epochs     int
	Population int
	MinMax     string
	VarType    VarType
	LogPath    string
	Seed       int64
	// CustomParams are merged over the default problem by CompleteProblem.
	CustomParams model.Params

	algorithm string
	factory   Factory
	out       io.Writer

	// LastResult is set by a successful Solve.
	LastResult *Result

	logger log.Logger
}

// Option configures an Optimiser.
type Option func(*Optimiser)

// WithEpochs sets the epoch budget.
func WithEpochs(n int) Option {
	return func(o *Optimiser) { o.Epochs = n }
}

// WithPopulation sets the population size.
func WithPopulation(n int) Option {
	return func(o *Optimiser) { o.Population = n }
}

// WithMinMax sets "min" or "max".
func WithMinMax(m string) Option {
	return func(o *Optimiser) { o.MinMax = m }
}

// WithVarType sets the variable type.
func WithVarType(v VarType) Option {
	return func(o *Optimiser) { o.VarType = v }
}

// WithLogPath writes per-epoch progress to path.
func WithLogPath(path string) Option {
	return func(o *Optimiser) { o.LogPath = path }
}

// WithSeed seeds the stochastic solvers.
func WithSeed(seed int64) Option {
	return func(o *Optimiser) { o.Seed = seed }
}

// WithCustomParams sets problem overrides.
func WithCustomParams(p model.Params) Option {
	return func(o *Optimiser) { o.CustomParams = p.Copy() }
}

// WithAlgorithm picks a registered solver by name.
func WithAlgorithm(name string) Option {
	return func(o *Optimiser) { o.algorithm = name }
}

// WithSolver uses a solver that is not in the registry.
func WithSolver(f Factory) Option {
	return func(o *Optimiser) {
		o.algorithm = ""
		o.factory = f
	}
}

// WithOutput redirects Barrage's console lines.
func WithOutput(w io.Writer) Option {
	return func(o *Optimiser) { o.out = w }
}

// New creates an Optimiser for def: 100 epochs, population 50, minimising
// over integer variables.
func New(def Definition, opts ...Option) (*Optimiser, error) {
	if def == nil {
		return nil, errors.NewNotImplementedError("Optimiser", "Definition")
	}
	o := &Optimiser{
		def:          def,
		Epochs:       100,
		Population:   50,
		MinMax:       Minimise,
		VarType:      IntegerVar,
		Seed:         time.Now().UnixNano(),
		CustomParams: model.Params{},
		out:          os.Stdout,
		logger:       log.GetLoggerWithName("optimiser"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.algorithm != "" {
		if err := o.SetAlgorithm(o.algorithm); err != nil {
			return nil, err
		}
	}
	switch {
	case o.Epochs < 1:
		return nil, errors.NewValidationError("epochs", "must be >= 1", o.Epochs)
	case o.Population < 1:
		return nil, errors.NewValidationError("population", "must be >= 1", o.Population)
	}
	return o, nil
}

// SetAlgorithm picks a registered solver by name.
func (o *Optimiser) SetAlgorithm(name string) error {
	f, err := Lookup(name)
	if err != nil {
		return err
	}
	o.algorithm = name
	o.factory = f
	return nil
}

// Algorithm returns the selected solver name, empty for an unregistered
// solver or none.
func (o *Optimiser) Algorithm() string { return o.algorithm }

// LowerBounds returns the definition's lower bounds, or zeros.
func (o *Optimiser) LowerBounds() []float64 {
	if lb, ok := o.def.(LowerBounder); ok {
		return lb.LowerBounds()
	}
	return make([]float64, o.def.Len())
}

// Problem returns the default problem built from the definition and the
// optimiser's fields.
func (o *Optimiser) Problem() Problem {
	return Problem{
		ObjFunc: o.def.Score,
		Bounds: Bounds{
			Lower:   o.LowerBounds(),
			Upper:   o.def.UpperBounds(),
			VarType: o.VarType,
		},
		MinMax: o.MinMax,
		LogTo:  o.LogPath,
		Extra:  map[string]interface{}{},
	}
}

// CompleteProblem merges CustomParams over Problem. "minmax" and "log_to"
// replace the matching fields; any other key lands in Extra.
func (o *Optimiser) CompleteProblem() (Problem, error) {
	p := o.Problem()
	for _, k := range o.CustomParams.Keys() {
		v := o.CustomParams[k]
		switch k {
		case "minmax":
			s, err := model.ToString(k, v)
			if err != nil {
				return Problem{}, err
			}
			p.MinMax = s
		case "log_to":
			s, err := model.ToString(k, v)
			if err != nil {
				return Problem{}, err
			}
			p.LogTo = s
		default:
			p.Extra[k] = v
		}
	}
	return p, nil
}

// Solve runs the selected solver and stores LastResult.
func (o *Optimiser) Solve(ctx context.Context) error {
	if o.factory == nil {
		return errors.NewNotImplementedError("Optimiser", "algorithm")
	}
	p, err := o.CompleteProblem()
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	solver := o.factory()
	start := time.Now()
	o.logger.Info("Solve started",
		log.OperationKey, log.OperationSolve,
		log.SolverKey, solver.Name(),
		"epochs", o.Epochs,
		"population", o.Population,
		"dimensions", p.Bounds.Dim(),
	)

	res, err := solver.Solve(ctx, p, SolverConfig{Epochs: o.Epochs, Population: o.Population, Seed: o.Seed})
	if err != nil {
		return err
	}
	o.LastResult = &res

	o.logger.Info("Solve finished",
		log.OperationKey, log.OperationSolve,
		log.SolverKey, solver.Name(),
		log.FitnessKey, res.Objectives[0],
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Barrage runs every named solver in turn (all registered ones when names
// is empty) and prints one line each: green for a new best, yellow for a
// tie, plain otherwise. Failures and panics print "No solution" and the
// loop moves on. It is a demo, not a benchmark. The best solver is left
// selected and its name returned; on a tie the later solver wins.
func (o *Optimiser) Barrage(ctx context.Context, names ...string) (string, error) {
	if len(names) == 0 {
		names = Names()
	}
	direction, err := o.CompleteProblem()
	if err != nil {
		return "", err
	}
	fmt.Fprintln(o.out, "WARNING! Barrage prints results for effect and changes nothing but the selected solver.")

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	var (
		bestName   string
		bestResult *Result
	)
	for _, name := range names {
		if ctx.Err() != nil {
			return "", errors.Wrap(ctx.Err(), "barrage interrupted")
		}
		label := fmt.Sprintf("%-18s", name)

		err := errors.SafeExecute("optimiser.Barrage."+name, func() error {
			if err := o.SetAlgorithm(name); err != nil {
				return err
			}
			return o.Solve(ctx)
		})
		if err != nil {
			o.logger.Debug("Barrage candidate failed", log.SolverKey, name, "error", err)
			fmt.Fprintf(o.out, "%s: No solution\n", label)
			continue
		}

		res := o.LastResult
		v := res.Objectives[0]
		switch {
		case bestResult == nil || direction.better(v, bestResult.Objectives[0]):
			green.Fprintf(o.out, "%s: %v\n", label, v)
			bestName, bestResult = name, res
		case v == bestResult.Objectives[0]:
			yellow.Fprintf(o.out, "%s: %v\n", label, v)
			bestName, bestResult = name, res
		default:
			fmt.Fprintf(o.out, "%s: %v\n", label, v)
		}
	}

	if bestResult == nil {
		return "", errors.Wrap(errors.ErrNoSolution, "barrage: every solver failed")
	}
	o.LastResult = bestResult
	if err := o.SetAlgorithm(bestName); err != nil {
		return "", err
	}
	return bestName, nil
}
