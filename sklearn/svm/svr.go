// Package svm provides epsilon-insensitive support vector regression.
package svm

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/estkit/core/model"
	"github.com/YuminosukeSato/estkit/pkg/errors"
	"github.com/YuminosukeSato/estkit/pkg/log"
)

// Kernel names.
const (
	KernelLinear = "linear"
	KernelRBF    = "rbf"
)

// SVR fits f(x) = w·phi(x) + b by dual coordinate descent on the
// epsilon-insensitive loss. phi is the identity for the linear kernel and a
// random Fourier feature map approximating exp(-gamma·|x-x'|²) for rbf.
// The intercept is learned as the weight of a constant feature, so it is
// regularised along with w.
type SVR struct {
	model.BaseEstimator

	Kernel  string
	C       float64
	Epsilon float64
	// Gamma is the rbf width; 0 means "scale", 1 / (n_features · Var(X)).
	Gamma float64
	// GammaMode is "scale" or "auto" and applies while Gamma is 0.
	GammaMode   string
	Tol         float64
	MaxIter     int
	NComponents int
	RandomState int64

	weights []float64
	proj    *mat.Dense
	offset  []float64
	gamma   float64
	nIn     int
	nIter   int
}

// Option configures an SVR.
type Option func(*SVR)

// WithKernel selects linear or rbf.
func WithKernel(k string) Option {
	return func(s *SVR) { s.Kernel = k }
}

// WithC sets the penalty on points outside the tube.
func WithC(c float64) Option {
	return func(s *SVR) { s.C = c }
}

// WithEpsilon sets the tube half-width.
func WithEpsilon(eps float64) Option {
	return func(s *SVR) { s.Epsilon = eps }
}

// WithGamma sets an explicit rbf width.
func WithGamma(g float64) Option {
	return func(s *SVR) { s.Gamma = g }
}

// WithMaxIter sets the number of coordinate descent sweeps.
func WithMaxIter(n int) Option {
	return func(s *SVR) { s.MaxIter = n }
}

// WithNComponents sets the number of random Fourier features.
func WithNComponents(n int) Option {
	return func(s *SVR) { s.NComponents = n }
}

// WithRandomState seeds the feature map and the sweep order.
func WithRandomState(seed int64) Option {
	return func(s *SVR) { s.RandomState = seed }
}

// NewSVR creates an SVR with C 1, epsilon 0.1 and an rbf kernel.
func NewSVR(opts ...Option) *SVR {
	s := &SVR{
		Kernel:      KernelRBF,
		C:           1,
		Epsilon:     0.1,
		GammaMode:   "scale",
		Tol:         1e-3,
		MaxIter:     1000,
		NComponents: 300,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SVR) validate() error {
	switch {
	case s.Kernel != KernelLinear && s.Kernel != KernelRBF:
		return errors.NewValidationError("kernel", "must be linear or rbf", s.Kernel)
	case s.C < 0:
		return errors.NewValidationError("C", "must be >= 0", s.C)
	case s.Epsilon < 0:
		return errors.NewValidationError("epsilon", "must be >= 0", s.Epsilon)
	case s.Gamma < 0:
		return errors.NewValidationError("gamma", "must be >= 0", s.Gamma)
	case s.GammaMode != "scale" && s.GammaMode != "auto":
		return errors.NewValidationError("gamma", "must be scale, auto or a positive number", s.GammaMode)
	case s.MaxIter < 1:
		return errors.NewValidationError("max_iter", "must be >= 1", s.MaxIter)
	case s.Kernel == KernelRBF && s.NComponents < 1:
		return errors.NewValidationError("n_components", "must be >= 1", s.NComponents)
	}
	return nil
}

func (s *SVR) resolveGamma(X *mat.Dense) float64 {
	if s.Gamma > 0 {
		return s.Gamma
	}
	_, c := X.Dims()
	if s.GammaMode == "auto" {
		return 1 / float64(c)
	}
	all := X.RawMatrix().Data
	mean := stat.Mean(all, nil)
	var v float64
	for _, x := range all {
		v += (x - mean) * (x - mean)
	}
	v /= float64(len(all))
	if v == 0 {
		return 1 / float64(c)
	}
	return 1 / (float64(c) * v)
}

// features maps one input row to phi(x) with a trailing constant 1.
func (s *SVR) features(dst, row []float64) {
	if s.Kernel == KernelLinear {
		copy(dst, row)
		dst[len(dst)-1] = 1
		return
	}
	d := len(s.offset)
	scale := math.Sqrt(2 / float64(d))
	for k := 0; k < d; k++ {
		dst[k] = scale * math.Cos(floats.Dot(row, s.proj.RawRowView(k))+s.offset[k])
	}
	dst[d] = 1
}

func (s *SVR) featureDim() int {
	if s.Kernel == KernelLinear {
		return s.nIn + 1
	}
	return len(s.offset) + 1
}

// Fit solves the dual problem
//
//	min 0.5 βᵀQβ - yᵀβ + ε|β|₁  subject to -C <= β_i <= C
//
// one coordinate at a time, keeping w = Σ β_i phi(x_i) in sync.
func (s *SVR) Fit(X mat.Matrix, y *mat.VecDense) error {
	if err := s.validate(); err != nil {
		return err
	}
	n, c := X.Dims()
	if n == 0 || c == 0 {
		return errors.NewModelError("SVR.Fit", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != n {
		return errors.NewDimensionError("SVR.Fit", n, y.Len(), 0)
	}

	rng := rand.New(rand.NewSource(s.RandomState))
	Xd := mat.DenseCopyOf(X)
	s.nIn = c

	if s.Kernel == KernelRBF {
		s.gamma = s.resolveGamma(Xd)
		std := math.Sqrt(2 * s.gamma)
		s.proj = mat.NewDense(s.NComponents, c, nil)
		s.offset = make([]float64, s.NComponents)
		for k := 0; k < s.NComponents; k++ {
			for j := 0; j < c; j++ {
				s.proj.Set(k, j, rng.NormFloat64()*std)
			}
			s.offset[k] = rng.Float64() * 2 * math.Pi
		}
	}

	dim := s.featureDim()
	phi := mat.NewDense(n, dim, nil)
	diag := make([]float64, n)
	for i := 0; i < n; i++ {
		s.features(phi.RawRowView(i), Xd.RawRowView(i))
		diag[i] = floats.Dot(phi.RawRowView(i), phi.RawRowView(i))
	}

	w := make([]float64, dim)
	beta := make([]float64, n)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	converged := false
	for iter := 0; iter < s.MaxIter; iter++ {
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		maxChange := 0.0
		for _, i := range order {
			h := diag[i]
			if h == 0 {
				continue
			}
			xi := phi.RawRowView(i)
			g := floats.Dot(w, xi) - y.AtVec(i)
			gp, gn := g+s.Epsilon, g-s.Epsilon

			var z float64
			switch {
			case gp < h*beta[i]:
				z = -gp / h
			case gn > h*beta[i]:
				z = -gn / h
			default:
				z = -beta[i]
			}
			next := math.Min(math.Max(beta[i]+z, -s.C), s.C)
			delta := next - beta[i]
			if delta == 0 {
				continue
			}
			beta[i] = next
			floats.AddScaled(w, delta, xi)
			if change := math.Abs(delta) * math.Sqrt(h); change > maxChange {
				maxChange = change
			}
		}
		s.nIter = iter + 1
		if maxChange < s.Tol {
			converged = true
			break
		}
	}
	if !converged {
		errors.Warn(errors.NewConvergenceWarning("SVR", s.MaxIter, "coordinate descent did not reach tol"))
	}
	if err := errors.CheckNumericalStability("SVR.Fit", w, s.nIter); err != nil {
		return err
	}

	support := 0
	for _, b := range beta {
		if b != 0 {
			support++
		}
	}
	log.GetLoggerWithName("svm.svr").Debug("SVR fitted",
		log.SamplesKey, n,
		log.IterationKey, s.nIter,
		"support_vectors", support)

	s.weights = w
	s.SetFitted()
	return nil
}

// Predict evaluates the fitted function for each row of X.
func (s *SVR) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("SVR", "Predict")
	}
	n, c := X.Dims()
	if c != s.nIn {
		return nil, errors.NewDimensionError("SVR.Predict", s.nIn, c, 1)
	}
	out := mat.NewVecDense(n, nil)
	row := make([]float64, c)
	feat := make([]float64, s.featureDim())
	for i := 0; i < n; i++ {
		mat.Row(row, i, X)
		s.features(feat, row)
		out.SetVec(i, floats.Dot(s.weights, feat))
	}
	return out, nil
}

// NIter returns the number of sweeps used by the last Fit.
func (s *SVR) NIter() int {
	return s.nIter
}

// GetParams returns the hyperparameters under their scikit-learn names.
func (s *SVR) GetParams() map[string]interface{} {
	var gamma interface{} = s.GammaMode
	if s.Gamma > 0 {
		gamma = s.Gamma
	}
	return map[string]interface{}{
		"kernel":   s.Kernel,
		"C":        s.C,
		"epsilon":  s.Epsilon,
		"gamma":    gamma,
		"tol":      s.Tol,
		"max_iter": s.MaxIter,
	}
}

// SetParams sets hyperparameters by name. Unknown names are an error.
func (s *SVR) SetParams(params map[string]interface{}) error {
	setters := model.Setters{
		"kernel":       model.StringSetter("kernel", &s.Kernel),
		"C":            model.FloatSetter("C", &s.C),
		"epsilon":      model.FloatSetter("epsilon", &s.Epsilon),
		"tol":          model.FloatSetter("tol", &s.Tol),
		"max_iter":     model.IntSetter("max_iter", &s.MaxIter),
		"n_components": model.IntSetter("n_components", &s.NComponents),
		"gamma": func(v interface{}) error {
			if mode, ok := v.(string); ok {
				s.GammaMode = mode
				s.Gamma = 0
				return nil
			}
			return model.FloatSetter("gamma", &s.Gamma)(v)
		},
	}
	for _, k := range model.Params(params).Keys() {
		if err := setters.Apply(k, params[k]); err != nil {
			return err
		}
	}
	return nil
}

func (s *SVR) String() string {
	return fmt.Sprintf("SVR(kernel=%s, C=%g, epsilon=%g)", s.Kernel, s.C, s.Epsilon)
}
