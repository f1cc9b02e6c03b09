// Standard attribute keys. Using them everywhere keeps log analysis uniform
// across estimators, tuners and solvers.

package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator or learner type, e.g. "GBDT".
	ModelNameKey = "model.name"

	// EstimatorIDKey is the per-instance identifier (a UUID string).
	EstimatorIDKey = "estimator.id"

	// OperationKey is the operation being performed: fit, predict, score...
	OperationKey = "ml.operation"

	// ComponentKey identifies the package doing the work.
	ComponentKey = "ml.component"

	// PhaseKey indicates the lifecycle phase.
	PhaseKey = "ml.phase"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	PathKey     = "data.path"
)

// Metrics and progress.
const (
	DurationMsKey = "perf.duration_ms"
	LossKey       = "metrics.loss"
	R2ScoreKey    = "metrics.r2_score"
	RMSEKey       = "metrics.rmse"
	MAEKey        = "metrics.mae"
	IterationKey  = "training.iteration"
	EpochKey      = "training.epoch"
)

// Tuning and optimisation.
const (
	// HyperParamsKey holds the parameter assignment being evaluated.
	HyperParamsKey = "model.hyperparams"

	// TrialKey is the index of a tuning trial.
	TrialKey = "tuning.trial"

	// CVStepKey is the cross-validation round inside one trial.
	CVStepKey = "tuning.cv_step"

	// SolverKey names a registered metaheuristic.
	SolverKey = "optimiser.solver"

	// FitnessKey is the best objective value seen so far.
	FitnessKey = "optimiser.fitness"

	RandomSeedKey = "config.random_seed"
)

// Error context.
const (
	ErrorTypeKey  = "error.type"
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"
	OperationTune      = "tune"
	OperationSolve     = "solve"

	PhaseTraining      = "training"
	PhaseTesting       = "testing"
	PhasePreprocessing = "preprocessing"
)
