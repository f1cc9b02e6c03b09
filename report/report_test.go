package report

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/estkit/pkg/errors"
)

var pngMagic = []byte("\x89PNG")

func assertPNG(t *testing.T, path string) {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, pngMagic), "%s is not a PNG", path)
}

func TestPredictionScatter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scatter.png")
	actual := mat.NewVecDense(4, []float64{1, 2, 3, 4})
	predicted := mat.NewVecDense(4, []float64{1.1, 1.8, 3.2, 3.9})

	require.NoError(t, PredictionScatter(path, actual, predicted, WithTitle("SVR"), WithSize(3, 3)))
	assertPNG(t, path)
}

func TestPredictionScatterRejectsBadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scatter.png")

	err := PredictionScatter(path, mat.NewVecDense(2, nil), mat.NewVecDense(3, nil))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))

	err = PredictionScatter(path, nil, nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestLossTrace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loss.png")
	require.NoError(t, LossTrace(path, []float64{3, 2.5, math.NaN(), 2.7, 1.2}))
	assertPNG(t, path)
}

func TestLossTraceNeedsFiniteLoss(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loss.png")
	err := LossTrace(path, []float64{math.NaN(), math.Inf(1)})
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}
