// Package neural_network provides a multi-layer perceptron regressor.
package neural_network

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/YuminosukeSato/estkit/core/model"
	"github.com/YuminosukeSato/estkit/pkg/errors"
	"github.com/YuminosukeSato/estkit/pkg/log"
)

// Solver names.
const (
	SolverAdam  = "adam"
	SolverSGD   = "sgd"
	SolverLBFGS = "lbfgs"
)

// MLPRegressor trains a feed-forward network on the squared loss with an L2
// penalty. Hidden layers use Activation; the output layer is linear.
type MLPRegressor struct {
	model.BaseEstimator

	HiddenLayerSizes []int
	Activation       string
	Solver           string
	Alpha            float64
	// BatchSize <= 0 means min(200, n_samples).
	BatchSize        int
	LearningRateInit float64
	MaxIter          int
	MaxFun           int
	Tol              float64
	NIterNoChange    int
	Momentum         float64
	Beta1            float64
	Beta2            float64
	Epsilon          float64
	Shuffle          bool
	// RandomState seeds weight initialisation and batch shuffling; negative
	// means time-seeded.
	RandomState int64

	layers []int
	coefs  []float64

	// LossCurve holds the training loss per epoch (adam, sgd) or per
	// iteration (lbfgs).
	LossCurve []float64
	NIter     int
}

// Option configures an MLPRegressor.
type Option func(*MLPRegressor)

// WithHiddenLayerSizes sets the width of each hidden layer.
func WithHiddenLayerSizes(sizes ...int) Option {
	return func(m *MLPRegressor) { m.HiddenLayerSizes = append([]int(nil), sizes...) }
}

// WithActivation sets the hidden activation: relu, tanh, logistic or identity.
func WithActivation(a string) Option {
	return func(m *MLPRegressor) { m.Activation = a }
}

// WithSolver selects adam, sgd or lbfgs.
func WithSolver(s string) Option {
	return func(m *MLPRegressor) { m.Solver = s }
}

// WithAlpha sets the L2 penalty.
func WithAlpha(a float64) Option {
	return func(m *MLPRegressor) { m.Alpha = a }
}

// WithMaxIter sets the epoch (or lbfgs iteration) budget.
func WithMaxIter(n int) Option {
	return func(m *MLPRegressor) { m.MaxIter = n }
}

// WithLearningRateInit sets the step size for adam and sgd.
func WithLearningRateInit(lr float64) Option {
	return func(m *MLPRegressor) { m.LearningRateInit = lr }
}

// WithBatchSize sets the minibatch size.
func WithBatchSize(n int) Option {
	return func(m *MLPRegressor) { m.BatchSize = n }
}

// WithTol sets the improvement threshold for early stopping.
func WithTol(tol float64) Option {
	return func(m *MLPRegressor) { m.Tol = tol }
}

// WithRandomState seeds the regressor.
func WithRandomState(seed int64) Option {
	return func(m *MLPRegressor) { m.RandomState = seed }
}

// NewMLPRegressor creates a regressor with the scikit-learn defaults.
func NewMLPRegressor(opts ...Option) *MLPRegressor {
	m := &MLPRegressor{
		HiddenLayerSizes: []int{100},
		Activation:       "relu",
		Solver:           SolverAdam,
		Alpha:            1e-4,
		LearningRateInit: 1e-3,
		MaxIter:          200,
		MaxFun:           15000,
		Tol:              1e-4,
		NIterNoChange:    10,
		Momentum:         0.9,
		Beta1:            0.9,
		Beta2:            0.999,
		Epsilon:          1e-8,
		Shuffle:          true,
		RandomState:      -1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MLPRegressor) validate() error {
	for _, h := range m.HiddenLayerSizes {
		if h < 1 {
			return errors.NewValidationError("hidden_layer_sizes", "every layer needs at least one unit", m.HiddenLayerSizes)
		}
	}
	switch m.Activation {
	case "relu", "tanh", "logistic", "identity":
	default:
		return errors.NewValidationError("activation", "must be relu, tanh, logistic or identity", m.Activation)
	}
	switch m.Solver {
	case SolverAdam, SolverSGD, SolverLBFGS:
	default:
		return errors.NewValidationError("solver", "must be adam, sgd or lbfgs", m.Solver)
	}
	switch {
	case m.Alpha < 0:
		return errors.NewValidationError("alpha", "must be >= 0", m.Alpha)
	case m.MaxIter < 1:
		return errors.NewValidationError("max_iter", "must be >= 1", m.MaxIter)
	case m.LearningRateInit <= 0:
		return errors.NewValidationError("learning_rate_init", "must be > 0", m.LearningRateInit)
	}
	return nil
}

// Fit trains the network on X and y.
func (m *MLPRegressor) Fit(X mat.Matrix, y *mat.VecDense) error {
	if err := m.validate(); err != nil {
		return err
	}
	n, nIn := X.Dims()
	if n == 0 || nIn == 0 {
		return errors.NewModelError("MLPRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != n {
		return errors.NewDimensionError("MLPRegressor.Fit", n, y.Len(), 0)
	}

	seed := m.RandomState
	if seed < 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed))

	m.layers = append(append([]int{nIn}, m.HiddenLayerSizes...), 1)
	m.coefs = m.initCoefs(rng)
	m.LossCurve = nil
	m.NIter = 0

	Xd := mat.DenseCopyOf(X)
	target := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		target.Set(i, 0, y.AtVec(i))
	}

	logger := log.GetLoggerWithName("neural_network.mlp")
	logger.Debug("Training MLPRegressor",
		log.SamplesKey, n,
		log.FeaturesKey, nIn,
		log.SolverKey, m.Solver,
		"hidden_layer_sizes", m.HiddenLayerSizes)

	var err error
	if m.Solver == SolverLBFGS {
		err = m.fitLBFGS(Xd, target)
	} else {
		err = m.fitStochastic(Xd, target, rng)
	}
	if err != nil {
		return err
	}
	m.SetFitted()
	return nil
}

// Glorot uniform initialisation, as scikit-learn does it.
func (m *MLPRegressor) initCoefs(rng *rand.Rand) []float64 {
	size := 0
	for l := 0; l < len(m.layers)-1; l++ {
		size += m.layers[l]*m.layers[l+1] + m.layers[l+1]
	}
	coefs := make([]float64, size)
	off := 0
	for l := 0; l < len(m.layers)-1; l++ {
		fanIn, fanOut := m.layers[l], m.layers[l+1]
		factor := 6.0
		if m.Activation == "logistic" {
			factor = 2.0
		}
		bound := math.Sqrt(factor / float64(fanIn+fanOut))
		n := fanIn*fanOut + fanOut
		for i := off; i < off+n; i++ {
			coefs[i] = (2*rng.Float64() - 1) * bound
		}
		off += n
	}
	return coefs
}

// unpack returns views of the weight matrices and bias vectors stored in theta.
func (m *MLPRegressor) unpack(theta []float64) ([]*mat.Dense, [][]float64) {
	nl := len(m.layers) - 1
	weights := make([]*mat.Dense, nl)
	biases := make([][]float64, nl)
	off := 0
	for l := 0; l < nl; l++ {
		fanIn, fanOut := m.layers[l], m.layers[l+1]
		weights[l] = mat.NewDense(fanIn, fanOut, theta[off:off+fanIn*fanOut])
		off += fanIn * fanOut
		biases[l] = theta[off : off+fanOut]
		off += fanOut
	}
	return weights, biases
}

func (m *MLPRegressor) activate(a *mat.Dense) {
	a.Apply(func(_, _ int, v float64) float64 {
		switch m.Activation {
		case "relu":
			return math.Max(0, v)
		case "tanh":
			return math.Tanh(v)
		case "logistic":
			return 1 / (1 + math.Exp(-v))
		}
		return v
	}, a)
}

// derivative of the activation expressed in terms of its output.
func (m *MLPRegressor) derivative(a float64) float64 {
	switch m.Activation {
	case "relu":
		if a > 0 {
			return 1
		}
		return 0
	case "tanh":
		return 1 - a*a
	case "logistic":
		return a * (1 - a)
	}
	return 1
}

func (m *MLPRegressor) forward(theta []float64, X mat.Matrix) []*mat.Dense {
	weights, biases := m.unpack(theta)
	n, _ := X.Dims()
	acts := make([]*mat.Dense, len(weights)+1)
	acts[0] = mat.DenseCopyOf(X)
	for l, W := range weights {
		_, fanOut := W.Dims()
		z := mat.NewDense(n, fanOut, nil)
		z.Mul(acts[l], W)
		b := biases[l]
		z.Apply(func(_, j int, v float64) float64 { return v + b[j] }, z)
		if l < len(weights)-1 {
			m.activate(z)
		}
		acts[l+1] = z
	}
	return acts
}

// lossGrad returns the penalised squared loss on (X, y) and writes its
// gradient with respect to theta into grad.
func (m *MLPRegressor) lossGrad(theta, grad []float64, X, y *mat.Dense) float64 {
	n, _ := X.Dims()
	nf := float64(n)
	acts := m.forward(theta, X)
	weights, _ := m.unpack(theta)
	gradW, gradB := m.unpack(grad)

	out := acts[len(acts)-1]
	delta := mat.NewDense(n, 1, nil)
	delta.Sub(out, y)
	loss := 0.5 * mat.Dot(delta.ColView(0), delta.ColView(0)) / nf

	var penalty float64
	for _, W := range weights {
		penalty += mat.Sum(mulElem(W, W))
	}
	loss += 0.5 * m.Alpha * penalty / nf

	delta.Scale(1/nf, delta)
	for l := len(weights) - 1; l >= 0; l-- {
		gradW[l].Mul(acts[l].T(), delta)
		gradW[l].Add(gradW[l], scaled(m.Alpha/nf, weights[l]))
		for j := range gradB[l] {
			gradB[l][j] = floats.Sum(mat.Col(nil, j, delta))
		}
		if l == 0 {
			break
		}
		r, _ := acts[l].Dims()
		next := mat.NewDense(r, m.layers[l], nil)
		next.Mul(delta, weights[l].T())
		a := acts[l]
		next.Apply(func(i, j int, v float64) float64 { return v * m.derivative(a.At(i, j)) }, next)
		delta = next
	}
	return loss
}

func mulElem(a, b *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.MulElem(a, b)
	return &out
}

func scaled(f float64, a *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Scale(f, a)
	return &out
}

func (m *MLPRegressor) fitLBFGS(X, y *mat.Dense) error {
	problem := optimize.Problem{
		Func: func(theta []float64) float64 {
			grad := make([]float64, len(theta))
			return m.lossGrad(theta, grad, X, y)
		},
		Grad: func(grad, theta []float64) {
			m.lossGrad(theta, grad, X, y)
		},
	}
	settings := &optimize.Settings{
		MajorIterations:   m.MaxIter,
		FuncEvaluations:   m.MaxFun,
		GradientThreshold: m.Tol,
	}
	result, err := optimize.Minimize(problem, m.coefs, settings, &optimize.LBFGS{})
	if result == nil || result.X == nil {
		return errors.NewModelError("MLPRegressor.Fit", "lbfgs", err)
	}
	if err := errors.CheckScalar("MLPRegressor.lbfgs", result.F, result.MajorIterations); err != nil {
		return err
	}
	m.coefs = result.X
	m.NIter = result.MajorIterations
	m.LossCurve = append(m.LossCurve, result.F)
	if result.Status == optimize.IterationLimit || result.Status == optimize.FunctionEvaluationLimit || err != nil {
		errors.Warn(errors.NewConvergenceWarning("MLPRegressor(lbfgs)", m.NIter, "optimizer stopped at its iteration budget"))
	}
	return nil
}

func (m *MLPRegressor) fitStochastic(X, y *mat.Dense, rng *rand.Rand) error {
	n, nIn := X.Dims()
	batch := m.BatchSize
	if batch <= 0 {
		batch = 200
	}
	if batch > n {
		batch = n
	}

	grad := make([]float64, len(m.coefs))
	velocity := make([]float64, len(m.coefs))
	moment1 := make([]float64, len(m.coefs))
	moment2 := make([]float64, len(m.coefs))
	step := 0

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	bestLoss := math.Inf(1)
	noImprovement := 0
	logger := log.GetLoggerWithName("neural_network.mlp")

	for epoch := 0; epoch < m.MaxIter; epoch++ {
		if m.Shuffle {
			rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		var epochLoss float64
		for start := 0; start < n; start += batch {
			end := start + batch
			if end > n {
				end = n
			}
			size := end - start
			Xb := mat.NewDense(size, nIn, nil)
			yb := mat.NewDense(size, 1, nil)
			for k := 0; k < size; k++ {
				Xb.SetRow(k, X.RawRowView(order[start+k]))
				yb.Set(k, 0, y.At(order[start+k], 0))
			}
			loss := m.lossGrad(m.coefs, grad, Xb, yb)
			epochLoss += loss * float64(size)

			step++
			if m.Solver == SolverAdam {
				m.adamUpdate(grad, moment1, moment2, step)
			} else {
				m.sgdUpdate(grad, velocity)
			}
		}
		epochLoss /= float64(n)
		if err := errors.CheckScalar("MLPRegressor."+m.Solver, epochLoss, epoch); err != nil {
			return err
		}
		m.LossCurve = append(m.LossCurve, epochLoss)
		m.NIter = epoch + 1
		logger.Debug("Epoch finished", log.EpochKey, epoch, log.LossKey, epochLoss)

		if epochLoss > bestLoss-m.Tol {
			noImprovement++
		} else {
			noImprovement = 0
		}
		if epochLoss < bestLoss {
			bestLoss = epochLoss
		}
		if noImprovement > m.NIterNoChange {
			logger.Debug("Training loss did not improve, stopping", log.EpochKey, epoch)
			return nil
		}
	}
	errors.Warn(errors.NewConvergenceWarning("MLPRegressor("+m.Solver+")", m.MaxIter, "maximum iterations reached and the optimization hasn't converged yet"))
	return nil
}

func (m *MLPRegressor) adamUpdate(grad, m1, m2 []float64, step int) {
	t := float64(step)
	lr := m.LearningRateInit * math.Sqrt(1-math.Pow(m.Beta2, t)) / (1 - math.Pow(m.Beta1, t))
	for i, g := range grad {
		m1[i] = m.Beta1*m1[i] + (1-m.Beta1)*g
		m2[i] = m.Beta2*m2[i] + (1-m.Beta2)*g*g
		m.coefs[i] -= lr * m1[i] / (math.Sqrt(m2[i]) + m.Epsilon)
	}
}

// Nesterov momentum.
func (m *MLPRegressor) sgdUpdate(grad, velocity []float64) {
	for i, g := range grad {
		velocity[i] = m.Momentum*velocity[i] - m.LearningRateInit*g
		m.coefs[i] += m.Momentum*velocity[i] - m.LearningRateInit*g
	}
}

// Predict runs the network forward.
func (m *MLPRegressor) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("MLPRegressor", "Predict")
	}
	n, c := X.Dims()
	if c != m.layers[0] {
		return nil, errors.NewDimensionError("MLPRegressor.Predict", m.layers[0], c, 1)
	}
	acts := m.forward(m.coefs, X)
	out := mat.NewVecDense(n, nil)
	out.CopyVec(acts[len(acts)-1].ColView(0))
	return out, nil
}

// Loss returns the penalised training loss of the current weights on (X, y).
func (m *MLPRegressor) Loss(X mat.Matrix, y *mat.VecDense) (float64, error) {
	if !m.IsFitted() {
		return 0, errors.NewNotFittedError("MLPRegressor", "Loss")
	}
	n, _ := X.Dims()
	target := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		target.Set(i, 0, y.AtVec(i))
	}
	grad := make([]float64, len(m.coefs))
	return m.lossGrad(m.coefs, grad, mat.DenseCopyOf(X), target), nil
}

// GetParams returns the hyperparameters under their scikit-learn names.
func (m *MLPRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"hidden_layer_sizes": append([]int(nil), m.HiddenLayerSizes...),
		"activation":         m.Activation,
		"solver":             m.Solver,
		"alpha":              m.Alpha,
		"batch_size":         m.BatchSize,
		"learning_rate_init": m.LearningRateInit,
		"max_iter":           m.MaxIter,
		"tol":                m.Tol,
		"random_state":       m.RandomState,
	}
}

// SetParams sets hyperparameters by name. Unknown names are an error.
func (m *MLPRegressor) SetParams(params map[string]interface{}) error {
	var seed int
	setters := model.Setters{
		"hidden_layer_sizes": model.IntsSetter("hidden_layer_sizes", &m.HiddenLayerSizes),
		"activation":         model.StringSetter("activation", &m.Activation),
		"solver":             model.StringSetter("solver", &m.Solver),
		"alpha":              model.FloatSetter("alpha", &m.Alpha),
		"batch_size":         model.IntSetter("batch_size", &m.BatchSize),
		"learning_rate_init": model.FloatSetter("learning_rate_init", &m.LearningRateInit),
		"max_iter":           model.IntSetter("max_iter", &m.MaxIter),
		"max_fun":            model.IntSetter("max_fun", &m.MaxFun),
		"tol":                model.FloatSetter("tol", &m.Tol),
		"n_iter_no_change":   model.IntSetter("n_iter_no_change", &m.NIterNoChange),
		"momentum":           model.FloatSetter("momentum", &m.Momentum),
		"random_state": func(v interface{}) error {
			if err := model.IntSetter("random_state", &seed)(v); err != nil {
				return err
			}
			m.RandomState = int64(seed)
			return nil
		},
	}
	for _, k := range model.Params(params).Keys() {
		if err := setters.Apply(k, params[k]); err != nil {
			return err
		}
	}
	return nil
}

func (m *MLPRegressor) String() string {
	return fmt.Sprintf("MLPRegressor(hidden_layer_sizes=%v, solver=%s, alpha=%g, max_iter=%d)",
		m.HiddenLayerSizes, m.Solver, m.Alpha, m.MaxIter)
}
