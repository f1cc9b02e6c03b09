package dataset

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/estkit/pkg/errors"
)

func sample(t *testing.T) *Dataset {
	t.Helper()
	d, err := FromRows([]string{"a", "b", "y"}, [][]float64{
		{1, 10, 100},
		{2, 20, 200},
		{3, 30, 300},
		{4, 40, 400},
		{5, 50, 500},
	})
	require.NoError(t, err)
	return d
}

func TestNewValidation(t *testing.T) {
	_, err := New([]string{"a", "a"}, [][]float64{{1}, {2}})
	assert.Error(t, err)

	_, err = New([]string{"a", "b"}, [][]float64{{1, 2}, {3}})
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))

	_, err = FromRows([]string{"a"}, [][]float64{{1, 2}})
	assert.Error(t, err)
}

func TestSliceDropMatrix(t *testing.T) {
	d := sample(t)
	assert.Equal(t, 5, d.Len())
	assert.Equal(t, []string{"a", "b", "y"}, d.Columns())

	head := d.Slice(0, 3)
	tail := d.Slice(3, 5)
	assert.Equal(t, 3, head.Len())
	assert.Equal(t, 2, tail.Len())

	y, err := tail.Column("y")
	require.NoError(t, err)
	assert.Equal(t, []float64{400, 500}, y)

	empty := d.Slice(5, 5)
	assert.Equal(t, 0, empty.Len())
	_, err = empty.Matrix()
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	// clamped
	assert.Equal(t, 5, d.Slice(-3, 99).Len())

	features, err := head.Drop("y")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, features.Columns())
	assert.True(t, d.HasColumn("y"), "source keeps its columns")

	m, err := features.Matrix()
	require.NoError(t, err)
	r, c := m.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 20.0, m.At(1, 1))

	_, err = d.Drop("missing")
	assert.Error(t, err)
}

func TestShuffleKeepsRowsTogether(t *testing.T) {
	d := sample(t)
	shuffled := d.Shuffle(rand.New(rand.NewSource(3)))

	assert.Equal(t, d.Len(), shuffled.Len())
	for i := 0; i < shuffled.Len(); i++ {
		row := shuffled.Row(i)
		assert.Equal(t, row[0]*10, row[1])
		assert.Equal(t, row[0]*100, row[2])
	}

	a, _ := d.Column("a")
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, a, "source order untouched")
}

func TestWithColumn(t *testing.T) {
	d := sample(t)

	labelled, err := d.WithColumn("cluster_id", []float64{0, 1, 0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "y", "cluster_id"}, labelled.Columns())
	assert.False(t, d.HasColumn("cluster_id"))

	replaced, err := labelled.WithColumn("a", []float64{9, 9, 9, 9, 9})
	require.NoError(t, err)
	a, _ := replaced.Column("a")
	assert.Equal(t, []float64{9, 9, 9, 9, 9}, a)

	_, err = d.WithColumn("short", []float64{1})
	assert.Error(t, err)
}

func TestReadCSV(t *testing.T) {
	d, err := ReadCSV(strings.NewReader("x1, x2,target\n1.5,2,3\n-0.25,1e2,4\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"x1", "x2", "target"}, d.Columns())
	x2, _ := d.Column("x2")
	assert.Equal(t, []float64{2, 100}, x2)

	headerOnly, err := ReadCSV(strings.NewReader("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, headerOnly.Len())

	_, err = ReadCSV(strings.NewReader(""))
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestReadCSVRejectsBadCells(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"non numeric", "a,b\n1,foo\n", "row 1, column 'b'"},
		{"empty cell", "a,b\n1,2\n,3\n", "row 2, column 'a'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadAndWriteCSV(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	d := sample(t)
	var buf bytes.Buffer
	require.NoError(t, d.WriteCSV(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "a,b,y\n1,10,100\n"))

	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	loaded, err := LoadCSV(path)
	require.NoError(t, err)
	m1, _ := d.Matrix()
	m2, _ := loaded.Matrix()
	assert.Equal(t, m1.RawMatrix().Data, m2.RawMatrix().Data)
}
