// Package clustering is a convenience wrapper around cluster.KMeans for
// tabular data. It sits outside the estimator hierarchy: there is no target
// and no train/test split.
package clustering

import (
	"github.com/YuminosukeSato/estkit/dataset"
	"github.com/YuminosukeSato/estkit/pkg/errors"
	"github.com/YuminosukeSato/estkit/pkg/log"
	"github.com/YuminosukeSato/estkit/sklearn/cluster"
)

// ClusterIDColumn is the column Label appends.
const ClusterIDColumn = "cluster_id"

// KMeansClusterer clusters rows of a dataset on a chosen set of columns.
type KMeansClusterer struct {
	data   *dataset.Dataset
	labels []string

	NClusters     int
	RandomState   int64
	MaxIterations int
	// NInit is the number of restarts; cluster.NInitAuto picks it from the
	// init method.
	NInit     int
	Algorithm string

	kmeans  *cluster.KMeans
	columns []string
	logger  log.Logger
}

// Option configures a KMeansClusterer.
type Option func(*KMeansClusterer)

// WithNClusters sets the number of clusters.
func WithNClusters(n int) Option {
	return func(c *KMeansClusterer) { c.NClusters = n }
}

// WithRandomState seeds the initialisation.
func WithRandomState(seed int64) Option {
	return func(c *KMeansClusterer) { c.RandomState = seed }
}

// WithMaxIterations caps iterations per restart.
func WithMaxIterations(n int) Option {
	return func(c *KMeansClusterer) { c.MaxIterations = n }
}

// WithNInit sets the number of restarts.
func WithNInit(n int) Option {
	return func(c *KMeansClusterer) { c.NInit = n }
}

// WithAlgorithm sets lloyd or elkan.
func WithAlgorithm(a string) Option {
	return func(c *KMeansClusterer) { c.Algorithm = a }
}

// New creates a clusterer over the labels columns of data. An empty labels
// list means every column.
func New(data *dataset.Dataset, labels []string, opts ...Option) (*KMeansClusterer, error) {
	if data == nil {
		return nil, errors.NewValidationError("data", "dataset is required", nil)
	}
	for _, l := range labels {
		if !data.HasColumn(l) {
			return nil, errors.NewValidationError("labels", "column not found", l)
		}
	}
	c := &KMeansClusterer{
		data:          data,
		labels:        append([]string(nil), labels...),
		NClusters:     4,
		RandomState:   1,
		MaxIterations: 50,
		NInit:         cluster.NInitAuto,
		Algorithm:     "lloyd",
		logger:        log.GetLoggerWithName("clustering"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// QuickLoad reads a CSV file and creates a clusterer on it. A missing file
// is an error wrapping os.ErrNotExist.
func QuickLoad(path string, labels []string, opts ...Option) (*KMeansClusterer, error) {
	d, err := dataset.LoadCSV(path)
	if err != nil {
		return nil, err
	}
	return New(d, labels, opts...)
}

// Data returns the dataset being clustered.
func (c *KMeansClusterer) Data() *dataset.Dataset { return c.data }

// Labels returns the clustered column names.
func (c *KMeansClusterer) Labels() []string {
	if len(c.labels) == 0 {
		return c.data.Columns()
	}
	return append([]string(nil), c.labels...)
}

// Model returns the fitted KMeans, or nil before Cluster.
func (c *KMeansClusterer) Model() *cluster.KMeans { return c.kmeans }

func (c *KMeansClusterer) features(d *dataset.Dataset) (*dataset.Dataset, error) {
	if len(c.labels) == 0 {
		return d, nil
	}
	return d.Select(c.labels...)
}

// Cluster fits a new KMeans on the dataset, replacing any previous fit.
func (c *KMeansClusterer) Cluster() error {
	features, err := c.features(c.data)
	if err != nil {
		return err
	}
	X, err := features.Matrix()
	if err != nil {
		return err
	}

	km := cluster.NewKMeans(
		cluster.WithNClusters(c.NClusters),
		cluster.WithNInit(c.NInit),
		cluster.WithAlgorithm(c.Algorithm),
		cluster.WithMaxIter(c.MaxIterations),
		cluster.WithRandomState(c.RandomState),
	)
	if err := km.Fit(X); err != nil {
		return err
	}
	c.kmeans = km
	c.columns = features.Columns()

	c.logger.Info("Clustering finished",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, c.data.Len(),
		"n_clusters", c.NClusters,
		"inertia", km.Inertia(),
		log.IterationKey, km.NIter(),
	)
	return nil
}

// Predict returns the cluster ID of every row of data.
func (c *KMeansClusterer) Predict(data *dataset.Dataset) ([]int, error) {
	if c.kmeans == nil {
		return nil, errors.NewNotFittedError("KMeansClusterer", "Predict")
	}
	// same columns, same order as the fit
	features, err := data.Select(c.columns...)
	if err != nil {
		return nil, err
	}
	X, err := features.Matrix()
	if err != nil {
		return nil, err
	}
	return c.kmeans.Predict(X)
}

// Label returns a copy of data with a cluster_id column appended.
func (c *KMeansClusterer) Label(data *dataset.Dataset) (*dataset.Dataset, error) {
	ids, err := c.Predict(data)
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(ids))
	for i, id := range ids {
		values[i] = float64(id)
	}
	return data.WithColumn(ClusterIDColumn, values)
}
