// Package cluster provides k-means clustering compatible with scikit-learn's
// KMeans parameters.
package cluster

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/estkit/core/model"
	"github.com/YuminosukeSato/estkit/core/parallel"
	"github.com/YuminosukeSato/estkit/pkg/errors"
	"github.com/YuminosukeSato/estkit/pkg/log"
)

// Init methods.
const (
	InitKMeansPlusPlus = "k-means++"
	InitRandom         = "random"
)

// NInitAuto picks the number of restarts from the init method: one for
// k-means++ and ten for random.
const NInitAuto = 0

// rows above which label assignment is split across goroutines
const assignThreshold = 2048

// KMeans is Lloyd's k-means. "elkan" is accepted as an algorithm name and
// produces the same clustering.
type KMeans struct {
	model.BaseEstimator

	NClusters   int
	Init        string
	NInit       int
	MaxIter     int
	Tol         float64
	Algorithm   string
	RandomState int64

	centers   [][]float64
	labels    []int
	inertia   float64
	nIter     int
	nFeatures int
}

// Option configures KMeans.
type Option func(*KMeans)

// WithNClusters sets k.
func WithNClusters(n int) Option {
	return func(k *KMeans) { k.NClusters = n }
}

// WithInit selects k-means++ or random seeding.
func WithInit(init string) Option {
	return func(k *KMeans) { k.Init = init }
}

// WithNInit sets the number of restarts; NInitAuto picks it from Init.
func WithNInit(n int) Option {
	return func(k *KMeans) { k.NInit = n }
}

// WithMaxIter caps Lloyd iterations per restart.
func WithMaxIter(n int) Option {
	return func(k *KMeans) { k.MaxIter = n }
}

// WithTol sets the relative center-shift tolerance.
func WithTol(tol float64) Option {
	return func(k *KMeans) { k.Tol = tol }
}

// WithAlgorithm sets lloyd or elkan.
func WithAlgorithm(a string) Option {
	return func(k *KMeans) { k.Algorithm = a }
}

// WithRandomState seeds center initialisation.
func WithRandomState(seed int64) Option {
	return func(k *KMeans) { k.RandomState = seed }
}

// NewKMeans creates KMeans with the scikit-learn defaults.
func NewKMeans(opts ...Option) *KMeans {
	k := &KMeans{
		NClusters: 8,
		Init:      InitKMeansPlusPlus,
		NInit:     NInitAuto,
		MaxIter:   300,
		Tol:       1e-4,
		Algorithm: "lloyd",
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func (k *KMeans) validate(rows int) error {
	switch {
	case k.NClusters < 1:
		return errors.NewValidationError("n_clusters", "must be >= 1", k.NClusters)
	case rows < k.NClusters:
		return errors.NewValidationError("n_clusters", fmt.Sprintf("n_samples=%d should be >= n_clusters", rows), k.NClusters)
	case k.Init != InitKMeansPlusPlus && k.Init != InitRandom:
		return errors.NewValidationError("init", "must be k-means++ or random", k.Init)
	case k.NInit < 0:
		return errors.NewValidationError("n_init", "must be >= 1 or auto", k.NInit)
	case k.MaxIter < 1:
		return errors.NewValidationError("max_iter", "must be >= 1", k.MaxIter)
	case k.Tol < 0:
		return errors.NewValidationError("tol", "must be >= 0", k.Tol)
	case k.Algorithm != "lloyd" && k.Algorithm != "elkan":
		return errors.NewValidationError("algorithm", "must be lloyd or elkan", k.Algorithm)
	}
	return nil
}

// EffectiveNInit resolves NInitAuto.
func (k *KMeans) EffectiveNInit() int {
	if k.NInit != NInitAuto {
		return k.NInit
	}
	if k.Init == InitRandom {
		return 10
	}
	return 1
}

type run struct {
	centers [][]float64
	labels  []int
	inertia float64
	nIter   int
}

// Fit clusters the rows of X. Restarts run concurrently, each with its own
// seed derived from RandomState, and the lowest inertia wins.
func (k *KMeans) Fit(X mat.Matrix) error {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("KMeans.Fit", "empty data", errors.ErrEmptyData)
	}
	if err := k.validate(rows); err != nil {
		return err
	}
	Xd := mat.DenseCopyOf(X)

	// tol is relative to the mean feature variance, as in scikit-learn
	var meanVar float64
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, Xd)
		m := floats.Sum(col) / float64(rows)
		var v float64
		for _, x := range col {
			v += (x - m) * (x - m)
		}
		meanVar += v / float64(rows)
	}
	tol := k.Tol * meanVar / float64(cols)

	nInit := k.EffectiveNInit()
	runs := make([]run, nInit)
	parallel.ForEach(nInit, func(i int) {
		rng := rand.New(rand.NewSource(k.RandomState + int64(i)))
		runs[i] = k.lloyd(Xd, k.initCenters(Xd, rng), tol)
	})

	best := 0
	for i := range runs {
		if runs[i].inertia < runs[best].inertia {
			best = i
		}
	}
	k.centers = runs[best].centers
	k.labels = runs[best].labels
	k.inertia = runs[best].inertia
	k.nIter = runs[best].nIter
	k.nFeatures = cols

	log.GetLoggerWithName("cluster.kmeans").Debug("KMeans fitted",
		log.SamplesKey, rows,
		"n_clusters", k.NClusters,
		"n_init", nInit,
		log.IterationKey, k.nIter,
		"inertia", k.inertia)

	k.SetFitted()
	return nil
}

func (k *KMeans) lloyd(X *mat.Dense, centers [][]float64, tol float64) run {
	rows, cols := X.Dims()
	labels := make([]int, rows)
	dists := make([]float64, rows)

	var iter int
	for iter = 1; iter <= k.MaxIter; iter++ {
		assign(X, centers, labels, dists)

		next := make([][]float64, len(centers))
		counts := make([]int, len(centers))
		for c := range next {
			next[c] = make([]float64, cols)
		}
		for i := 0; i < rows; i++ {
			floats.Add(next[labels[i]], X.RawRowView(i))
			counts[labels[i]]++
		}
		for c := range next {
			if counts[c] == 0 {
				// 空クラスタは最も遠い点へ移す
				far := floats.MaxIdx(dists)
				copy(next[c], X.RawRowView(far))
				dists[far] = 0
				continue
			}
			floats.Scale(1/float64(counts[c]), next[c])
		}

		var shift float64
		for c := range centers {
			d := floats.Distance(centers[c], next[c], 2)
			shift += d * d
		}
		centers = next
		if shift <= tol {
			break
		}
	}
	if iter > k.MaxIter {
		iter = k.MaxIter
	}

	assign(X, centers, labels, dists)
	return run{centers: centers, labels: labels, inertia: floats.Sum(dists), nIter: iter}
}

// assign writes the nearest center and squared distance for every row.
func assign(X *mat.Dense, centers [][]float64, labels []int, dists []float64) {
	rows, _ := X.Dims()
	parallel.ParallelizeWithThreshold(rows, assignThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			labels[i], dists[i] = nearest(X.RawRowView(i), centers)
		}
	})
}

func nearest(sample []float64, centers [][]float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for c, center := range centers {
		var d float64
		for j, v := range sample {
			diff := v - center[j]
			d += diff * diff
		}
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

func (k *KMeans) initCenters(X *mat.Dense, rng *rand.Rand) [][]float64 {
	rows, _ := X.Dims()
	centers := make([][]float64, 0, k.NClusters)
	pick := func(i int) {
		centers = append(centers, append([]float64(nil), X.RawRowView(i)...))
	}

	if k.Init == InitRandom {
		for _, i := range rng.Perm(rows)[:k.NClusters] {
			pick(i)
		}
		return centers
	}

	// k-means++: each new center is drawn with probability proportional to
	// the squared distance to the closest existing center.
	pick(rng.Intn(rows))
	dists := make([]float64, rows)
	for i := range dists {
		_, dists[i] = nearest(X.RawRowView(i), centers)
	}
	for len(centers) < k.NClusters {
		total := floats.Sum(dists)
		idx := 0
		if total > 0 {
			target := rng.Float64() * total
			var cum float64
			for i, d := range dists {
				cum += d
				if cum >= target {
					idx = i
					break
				}
			}
		} else {
			idx = rng.Intn(rows)
		}
		pick(idx)
		last := centers[len(centers)-1]
		for i := range dists {
			_, d := nearest(X.RawRowView(i), [][]float64{last})
			if d < dists[i] {
				dists[i] = d
			}
		}
	}
	return centers
}

// Predict returns the nearest fitted center for each row.
func (k *KMeans) Predict(X mat.Matrix) ([]int, error) {
	if !k.IsFitted() {
		return nil, errors.NewNotFittedError("KMeans", "Predict")
	}
	rows, cols := X.Dims()
	if cols != k.nFeatures {
		return nil, errors.NewDimensionError("KMeans.Predict", k.nFeatures, cols, 1)
	}
	Xd := mat.DenseCopyOf(X)
	labels := make([]int, rows)
	assign(Xd, k.centers, labels, make([]float64, rows))
	return labels, nil
}

// FitPredict fits and returns the training labels.
func (k *KMeans) FitPredict(X mat.Matrix) ([]int, error) {
	if err := k.Fit(X); err != nil {
		return nil, err
	}
	return k.Labels(), nil
}

// Transform returns the Euclidean distance from every row to every center.
func (k *KMeans) Transform(X mat.Matrix) (*mat.Dense, error) {
	if !k.IsFitted() {
		return nil, errors.NewNotFittedError("KMeans", "Transform")
	}
	rows, cols := X.Dims()
	if cols != k.nFeatures {
		return nil, errors.NewDimensionError("KMeans.Transform", k.nFeatures, cols, 1)
	}
	out := mat.NewDense(rows, len(k.centers), nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		for c, center := range k.centers {
			out.Set(i, c, floats.Distance(row, center, 2))
		}
	}
	return out, nil
}

// ClusterCenters returns a copy of the centers.
func (k *KMeans) ClusterCenters() [][]float64 {
	out := make([][]float64, len(k.centers))
	for i, c := range k.centers {
		out[i] = append([]float64(nil), c...)
	}
	return out
}

// Labels returns a copy of the training labels.
func (k *KMeans) Labels() []int {
	return append([]int(nil), k.labels...)
}

// Inertia is the sum of squared distances to the closest center.
func (k *KMeans) Inertia() float64 { return k.inertia }

// NIter is the iteration count of the winning restart.
func (k *KMeans) NIter() int { return k.nIter }

// GetParams returns the hyperparameters under their scikit-learn names.
func (k *KMeans) GetParams() map[string]interface{} {
	var nInit interface{} = k.NInit
	if k.NInit == NInitAuto {
		nInit = "auto"
	}
	return map[string]interface{}{
		"n_clusters":   k.NClusters,
		"init":         k.Init,
		"n_init":       nInit,
		"max_iter":     k.MaxIter,
		"tol":          k.Tol,
		"algorithm":    k.Algorithm,
		"random_state": k.RandomState,
	}
}

// SetParams sets hyperparameters by name. n_init accepts "auto".
func (k *KMeans) SetParams(params map[string]interface{}) error {
	var seed int
	setters := model.Setters{
		"n_clusters": model.IntSetter("n_clusters", &k.NClusters),
		"init":       model.StringSetter("init", &k.Init),
		"max_iter":   model.IntSetter("max_iter", &k.MaxIter),
		"tol":        model.FloatSetter("tol", &k.Tol),
		"algorithm":  model.StringSetter("algorithm", &k.Algorithm),
		"n_init": func(v interface{}) error {
			if s, ok := v.(string); ok {
				if s != "auto" {
					return errors.NewValidationError("n_init", "must be an integer or auto", v)
				}
				k.NInit = NInitAuto
				return nil
			}
			return model.IntSetter("n_init", &k.NInit)(v)
		},
		"random_state": func(v interface{}) error {
			if err := model.IntSetter("random_state", &seed)(v); err != nil {
				return err
			}
			k.RandomState = int64(seed)
			return nil
		},
	}
	for _, name := range model.Params(params).Keys() {
		if err := setters.Apply(name, params[name]); err != nil {
			return err
		}
	}
	return nil
}
