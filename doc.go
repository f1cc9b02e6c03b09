// Package estkit gives supervised regressors one train / test / predict
// surface and tunes them.
//
// A dataset is split deterministically: the leading rows train, the rest
// test. Concrete estimators (GBDT, MLP, SVR, XGBoost) only supply default
// parameters and one call into their fitting routine; everything else lives
// in package estimator.
//
// # Quick Start
//
//	svr, err := estimators.QuickLoadSVR("prices.csv", "price",
//	    estimator.WithSplitRatio(0.8))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report, err := svr.Test() // trains first if needed
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(report.Map()) // map[mae:... r2:... rmse:...]
//
// # Packages
//
//   - dataset: named float64 columns on dataframe-go, CSV in and out
//   - estimator: the shared Estimator and the Learner contract
//   - estimators: GBDT, MLP, SVR and XGBoost wrappers with search spaces
//   - sklearn/..., xgboost: the fitting routines the wrappers call
//   - tuning/hyperopt: search spaces, TPE, random search and the Tuner
//   - optimiser: metaheuristic problems and the solver registry
//   - clustering: the KMeans clustering wrapper
//   - metrics, preprocessing, report: scoring, scaling and charts
//   - core/model, core/parallel, pkg/errors, pkg/log: shared plumbing
//
// The estkit command (cmd/estkit) drives all of it from CSV files.
package estkit
