package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/estkit/optimiser"
	"github.com/YuminosukeSato/estkit/pkg/errors"
	"github.com/YuminosukeSato/estkit/report"
	"github.com/YuminosukeSato/estkit/tuning/hyperopt"
)

func (a *app) newTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Train a model on the leading rows and score it on the rest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.loadEstimator()
			if err != nil {
				return err
			}
			est := w.Base()
			if err := est.Train(); err != nil {
				return err
			}
			r, err := est.Test()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s on %s (%d rows, target %s)\n", est.Name(), a.cfg.Data, est.Data().Len(), a.cfg.Target)
			renderParams(out, est.Summary())
			renderReport(out, r)

			if a.cfg.Plot == "" {
				return nil
			}
			raw, err := est.TestInputs()
			if err != nil {
				return err
			}
			X, err := est.PreprocessInputs(raw)
			if err != nil {
				return err
			}
			pred, err := est.Predict(X)
			if err != nil {
				return err
			}
			actual, err := est.TestTargets()
			if err != nil {
				return err
			}
			return report.PredictionScatter(a.cfg.Plot, actual, pred, report.WithTitle(est.Name()+": predicted vs actual"))
		},
	}
	addEstimatorFlags(cmd)
	return cmd
}

func (a *app) newTuneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "Search the model's hyperparameters with TPE or random search",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.loadEstimator()
			if err != nil {
				return err
			}
			var algo hyperopt.Algorithm
			switch a.cfg.Tune.Algorithm {
			case "tpe":
				algo = hyperopt.NewTPE()
			case "random":
				algo = hyperopt.RandomSearch{}
			default:
				return errors.NewValidationError("search", "must be tpe or random", a.cfg.Tune.Algorithm)
			}
			tuner, err := a.newTuner(w, hyperopt.WithAlgorithm(algo))
			if err != nil {
				return err
			}
			if err := tuner.Tune(cmd.Context()); err != nil {
				return err
			}
			return a.finishTuning(cmd, w.Base().Name(), tuner)
		},
	}
	addEstimatorFlags(cmd)
	addObjectiveFlags(cmd)
	cmd.Flags().Int("iterations", 20, "Candidates to evaluate")
	cmd.Flags().String("search", "tpe", "Search algorithm: tpe, random")
	return cmd
}

func (a *app) newSolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Search the model's hyperparameters with a metaheuristic solver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.loadEstimator()
			if err != nil {
				return err
			}
			tuner, err := a.newTuner(w)
			if err != nil {
				return err
			}
			err = tuner.TuneWithSolver(cmd.Context(), a.cfg.Solver.Algorithm,
				optimiser.WithEpochs(a.cfg.Solver.Epochs),
				optimiser.WithPopulation(a.cfg.Solver.Population),
				optimiser.WithSeed(a.cfg.Seed),
				optimiser.WithLogPath(a.cfg.Solver.LogTo),
			)
			if err != nil {
				return err
			}
			return a.finishTuning(cmd, w.Base().Name(), tuner)
		},
	}
	addEstimatorFlags(cmd)
	addObjectiveFlags(cmd)
	addSolverFlags(cmd)
	cmd.Flags().String("algorithm", "OriginalMayfly", "Solver name")
	cmd.Flags().String("log-to", "", "Write per-epoch progress as JSON lines to this file")
	return cmd
}

// finishTuning prints the winning assignment and optionally plots the loss
// trace.
func (a *app) finishTuning(cmd *cobra.Command, name string, tuner *hyperopt.Tuner) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: best loss %s after %d trials\n", name, formatFloat(tuner.BestLoss), tuner.Trials().Len())
	renderParams(out, tuner.Best)
	if a.cfg.Plot == "" {
		return nil
	}
	return report.LossTrace(a.cfg.Plot, tuner.Trials().Losses(), report.WithTitle(name+": "+a.cfg.Tune.Metric+" per trial"))
}

func (a *app) newBarrageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "barrage",
		Short: "Run every solver on the tuning problem and report the best",
		Long: `barrage runs each named solver (all registered ones by default) on the
model's hyperparameter search and prints one line per solver. It is a demo:
a solver that fails prints "No solution" and the run goes on.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.loadEstimator()
			if err != nil {
				return err
			}
			tuner, err := a.newTuner(w)
			if err != nil {
				return err
			}
			def, err := tuner.Definition(cmd.Context())
			if err != nil {
				return err
			}
			o, err := optimiser.New(def,
				optimiser.WithVarType(optimiser.FloatVar),
				optimiser.WithEpochs(a.cfg.Solver.Epochs),
				optimiser.WithPopulation(a.cfg.Solver.Population),
				optimiser.WithSeed(a.cfg.Seed),
				optimiser.WithOutput(cmd.OutOrStdout()),
			)
			if err != nil {
				return err
			}
			best, err := o.Barrage(cmd.Context(), a.cfg.Solver.Algorithms...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "best solver: %s (loss %s)\n", best, formatFloat(o.LastResult.Objectives[0]))
			renderParams(out, def.Assignment(o.LastResult.Solution))
			return nil
		},
	}
	addEstimatorFlags(cmd)
	addObjectiveFlags(cmd)
	addSolverFlags(cmd)
	cmd.Flags().StringSlice("algorithms", nil, "Solvers to try (default: all)")
	return cmd
}
