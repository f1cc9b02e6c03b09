package cluster

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/estkit/pkg/errors"
)

// three tight blobs around (0,0), (10,10) and (0,10)
func blobs(perBlob int) *mat.Dense {
	rng := rand.New(rand.NewSource(4))
	centers := [][2]float64{{0, 0}, {10, 10}, {0, 10}}
	X := mat.NewDense(perBlob*3, 2, nil)
	for b, c := range centers {
		for i := 0; i < perBlob; i++ {
			X.Set(b*perBlob+i, 0, c[0]+rng.NormFloat64()*0.3)
			X.Set(b*perBlob+i, 1, c[1]+rng.NormFloat64()*0.3)
		}
	}
	return X
}

func TestKMeansFindsBlobs(t *testing.T) {
	X := blobs(20)
	for _, init := range []string{InitKMeansPlusPlus, InitRandom} {
		t.Run(init, func(t *testing.T) {
			k := NewKMeans(WithNClusters(3), WithInit(init), WithRandomState(1))
			require.NoError(t, k.Fit(X))

			labels := k.Labels()
			require.Len(t, labels, 60)
			for b := 0; b < 3; b++ {
				first := labels[b*20]
				for i := 1; i < 20; i++ {
					assert.Equal(t, first, labels[b*20+i], "blob %d", b)
				}
			}
			assert.NotEqual(t, labels[0], labels[20])
			assert.NotEqual(t, labels[20], labels[40])
			assert.NotEqual(t, labels[0], labels[40])
			assert.Less(t, k.Inertia(), 60*2*0.3*0.3*3)

			pred, err := k.Predict(mat.NewDense(1, 2, []float64{9.8, 10.1}))
			require.NoError(t, err)
			assert.Equal(t, labels[20], pred[0])
		})
	}
}

func TestKMeansDeterministic(t *testing.T) {
	X := blobs(15)
	a := NewKMeans(WithNClusters(3), WithNInit(4), WithRandomState(7))
	b := NewKMeans(WithNClusters(3), WithNInit(4), WithRandomState(7))
	require.NoError(t, a.Fit(X))
	require.NoError(t, b.Fit(X))
	assert.Equal(t, a.Labels(), b.Labels())
	assert.Equal(t, a.Inertia(), b.Inertia())
}

func TestKMeansNInitAuto(t *testing.T) {
	assert.Equal(t, 1, NewKMeans().EffectiveNInit())
	assert.Equal(t, 10, NewKMeans(WithInit(InitRandom)).EffectiveNInit())
	assert.Equal(t, 3, NewKMeans(WithNInit(3)).EffectiveNInit())
}

func TestKMeansAlgorithmsAgree(t *testing.T) {
	X := blobs(10)
	lloyd := NewKMeans(WithNClusters(3), WithAlgorithm("lloyd"), WithRandomState(2))
	elkan := NewKMeans(WithNClusters(3), WithAlgorithm("elkan"), WithRandomState(2))
	require.NoError(t, lloyd.Fit(X))
	require.NoError(t, elkan.Fit(X))
	assert.Equal(t, lloyd.Labels(), elkan.Labels())
}

func TestKMeansTransform(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{0, 4})
	k := NewKMeans(WithNClusters(2), WithRandomState(0))
	require.NoError(t, k.Fit(X))

	D, err := k.Transform(mat.NewDense(1, 1, []float64{1}))
	require.NoError(t, err)
	got := []float64{D.At(0, 0), D.At(0, 1)}
	assert.ElementsMatch(t, []float64{1, 3}, got)
	assert.Equal(t, 0.0, k.Inertia())
}

func TestKMeansErrors(t *testing.T) {
	_, err := NewKMeans().Predict(mat.NewDense(1, 2, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	X := blobs(2)
	for _, k := range []*KMeans{
		NewKMeans(WithNClusters(7)),
		NewKMeans(WithInit("spectral")),
		NewKMeans(WithAlgorithm("full")),
		NewKMeans(WithMaxIter(0)),
	} {
		err := k.Fit(X)
		var vErr *errors.ValidationError
		assert.True(t, errors.As(err, &vErr))
	}

	k := NewKMeans(WithNClusters(2))
	require.NoError(t, k.Fit(X))
	_, err = k.Predict(mat.NewDense(1, 3, nil))
	assert.Error(t, err)
}

func TestKMeansParams(t *testing.T) {
	k := NewKMeans()
	assert.Equal(t, "auto", k.GetParams()["n_init"])

	require.NoError(t, k.SetParams(map[string]interface{}{
		"n_clusters":   4.0,
		"n_init":       5,
		"random_state": 1,
	}))
	assert.Equal(t, 4, k.NClusters)
	assert.Equal(t, 5, k.GetParams()["n_init"])

	require.NoError(t, k.SetParams(map[string]interface{}{"n_init": "auto"}))
	assert.Equal(t, NInitAuto, k.NInit)
	assert.Error(t, k.SetParams(map[string]interface{}{"n_init": "warm"}))
	assert.Error(t, k.SetParams(map[string]interface{}{"copy_x": true}))
}
