package main

import (
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/estkit/core/model"
	"github.com/YuminosukeSato/estkit/estimator"
	"github.com/YuminosukeSato/estkit/estimators"
	"github.com/YuminosukeSato/estkit/pkg/errors"
	"github.com/YuminosukeSato/estkit/pkg/log"
	"github.com/YuminosukeSato/estkit/preprocessing"
	"github.com/YuminosukeSato/estkit/tuning/hyperopt"
)

// app holds the state shared by every command of one invocation.
type app struct {
	configPath string
	logLevel   string
	cfg        Config
	logger     log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "estkit",
		Short: "Train, test and tune regressors on CSV data",
		Long: `estkit wraps GBDT, MLP, SVR and XGBoost regressors behind one
train/test surface, tunes their hyperparameters with TPE or a metaheuristic
solver, and clusters CSV data with KMeans.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := log.SetupLogger(a.logLevel, cmd.ErrOrStderr()); err != nil {
				return err
			}
			a.logger = log.GetLoggerWithName("estkit")

			cfg, err := loadConfig(a.configPath)
			if err != nil {
				return err
			}
			if err := cfg.applyFlags(cmd); err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file; flags override its values")

	root.AddCommand(
		a.newTestCmd(),
		a.newTuneCmd(),
		a.newSolveCmd(),
		a.newBarrageCmd(),
		a.newClusterCmd(),
		newVersionCmd(),
	)
	return root
}

// addEstimatorFlags registers the flags that select data and model.
func addEstimatorFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.String("data", "", "CSV file with a header row")
	fs.String("target", "", "Target column")
	fs.String("model", estimators.KindGBDT, "Model: gbdt, mlp, svr, xgboost")
	fs.Float64("split-ratio", estimator.DefaultSplitRatio, "Fraction of leading rows used for training")
	fs.Int64("seed", 1, "Random seed")
	fs.String("scaler", "standard", "Scaler for models that scale inputs: standard, minmax")
	fs.StringArray("param", nil, "Hyperparameter override name=value (repeatable)")
	fs.String("plot", "", "Write a chart to this file (png, svg, pdf)")
}

// addObjectiveFlags registers the flags of the cross-validated objective.
func addObjectiveFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Int("cv-steps", 1, "Cross-validation rounds per candidate")
	fs.String("metric", "rmse", "Metric to minimise: r2, rmse, mae")
}

// addSolverFlags registers the budget flags of the optimiser commands.
func addSolverFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Int("epochs", 20, "Solver epochs")
	fs.Int("population", 20, "Solver population")
}

// loadEstimator builds the configured model and applies the configured
// hyperparameters.
func (a *app) loadEstimator() (estimators.Wrapper, error) {
	if err := a.cfg.requireData(); err != nil {
		return nil, err
	}
	var scaler model.Transformer
	switch a.cfg.Scaler {
	case "standard", "":
		scaler = preprocessing.NewStandardScalerDefault()
	case "minmax":
		scaler = preprocessing.NewMinMaxScalerDefault()
	default:
		return nil, errors.NewValidationError("scaler", "must be standard or minmax", a.cfg.Scaler)
	}
	w, err := estimators.QuickLoad(a.cfg.Model, a.cfg.Data, a.cfg.Target,
		estimator.WithSplitRatio(a.cfg.SplitRatio),
		estimator.WithRandomSource(rand.NewSource(a.cfg.Seed)),
		estimator.WithScaler(scaler),
	)
	if err != nil {
		return nil, err
	}
	if err := estimators.Configure(w, a.cfg.Params); err != nil {
		return nil, err
	}
	return w, nil
}

// newTuner builds a tuner over w's default search space. Configured
// parameters are left out of the space.
func (a *app) newTuner(w estimators.Wrapper, opts ...hyperopt.Option) (*hyperopt.Tuner, error) {
	eval, err := hyperopt.NewEstimatorEvaluator(w.Base(), a.cfg.Tune.Metric)
	if err != nil {
		return nil, err
	}
	space := w.SearchSpace()
	for name := range a.cfg.Params {
		delete(space, name)
	}
	opts = append([]hyperopt.Option{
		hyperopt.WithSpace(space),
		hyperopt.WithCVSteps(a.cfg.Tune.CVSteps),
		hyperopt.WithIterations(a.cfg.Tune.Iterations),
		hyperopt.WithRandomSource(rand.NewSource(a.cfg.Seed)),
	}, opts...)
	return hyperopt.New(hyperopt.FromTunable(w), eval, opts...)
}
