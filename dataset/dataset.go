// Package dataset holds tabular data as named float64 columns backed by a
// dataframe-go DataFrame.
package dataset

import (
	"math/rand"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/estkit/pkg/errors"
)

// Dataset is an ordered table of named float64 columns. Every operation that
// derives a new table copies the values; a Dataset is never mutated in place.
type Dataset struct {
	df    *dataframe.DataFrame
	nRows int
}

// New builds a Dataset from column names and column values. All columns must
// have the same length and names must be unique.
func New(names []string, columns [][]float64) (*Dataset, error) {
	if len(names) != len(columns) {
		return nil, errors.NewDimensionError("dataset.New", len(names), len(columns), 1)
	}
	seen := make(map[string]struct{}, len(names))
	series := make([]dataframe.Series, len(names))
	nRows := -1
	for i, name := range names {
		if _, dup := seen[name]; dup {
			return nil, errors.NewValidationError("names", "duplicate column name", name)
		}
		seen[name] = struct{}{}
		if nRows >= 0 && len(columns[i]) != nRows {
			return nil, errors.NewDimensionError("dataset.New", nRows, len(columns[i]), 0)
		}
		nRows = len(columns[i])
		series[i] = newSeries(name, columns[i])
	}
	if nRows < 0 {
		nRows = 0
	}
	return &Dataset{df: dataframe.NewDataFrame(series...), nRows: nRows}, nil
}

// FromRows builds a Dataset from row-major values.
func FromRows(names []string, rows [][]float64) (*Dataset, error) {
	columns := make([][]float64, len(names))
	for j := range columns {
		columns[j] = make([]float64, len(rows))
	}
	for i, row := range rows {
		if len(row) != len(names) {
			return nil, errors.NewDimensionError("dataset.FromRows", len(names), len(row), 1)
		}
		for j, v := range row {
			columns[j][i] = v
		}
	}
	return New(names, columns)
}

// FromMatrix builds a Dataset from a matrix and its column names.
func FromMatrix(names []string, m mat.Matrix) (*Dataset, error) {
	_, c := m.Dims()
	if c != len(names) {
		return nil, errors.NewDimensionError("dataset.FromMatrix", len(names), c, 1)
	}
	columns := make([][]float64, c)
	for j := range columns {
		columns[j] = mat.Col(nil, j, m)
	}
	return New(names, columns)
}

func newSeries(name string, values []float64) *dataframe.SeriesFloat64 {
	s := dataframe.NewSeriesFloat64(name, nil)
	s.Values = append([]float64{}, values...)
	return s
}

func (d *Dataset) series(name string) (*dataframe.SeriesFloat64, bool) {
	for _, s := range d.df.Series {
		if s.Name() == name {
			sf, ok := s.(*dataframe.SeriesFloat64)
			return sf, ok
		}
	}
	return nil, false
}

// DataFrame exposes the underlying frame. Callers must not mutate it.
func (d *Dataset) DataFrame() *dataframe.DataFrame {
	return d.df
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return d.nRows
}

// Columns returns the column names in order.
func (d *Dataset) Columns() []string {
	names := make([]string, len(d.df.Series))
	for i, s := range d.df.Series {
		names[i] = s.Name()
	}
	return names
}

// HasColumn reports whether name is a column.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.series(name)
	return ok
}

// Column returns a copy of the named column.
func (d *Dataset) Column(name string) ([]float64, error) {
	s, ok := d.series(name)
	if !ok {
		return nil, errors.NewValidationError("column", "column not found", name)
	}
	return append([]float64{}, s.Values...), nil
}

// Vector returns the named column as a vector. An empty column yields an
// empty VecDense.
func (d *Dataset) Vector(name string) (*mat.VecDense, error) {
	col, err := d.Column(name)
	if err != nil {
		return nil, err
	}
	if len(col) == 0 {
		return &mat.VecDense{}, nil
	}
	return mat.NewVecDense(len(col), col), nil
}

// Slice returns rows [start, end). Bounds are clamped to [0, Len()].
func (d *Dataset) Slice(start, end int) *Dataset {
	start = clamp(start, 0, d.nRows)
	end = clamp(end, start, d.nRows)

	series := make([]dataframe.Series, len(d.df.Series))
	for i, s := range d.df.Series {
		series[i] = newSeries(s.Name(), s.(*dataframe.SeriesFloat64).Values[start:end])
	}
	return &Dataset{df: dataframe.NewDataFrame(series...), nRows: end - start}
}

// Drop returns a copy without the named column.
func (d *Dataset) Drop(name string) (*Dataset, error) {
	if !d.HasColumn(name) {
		return nil, errors.NewValidationError("column", "column not found", name)
	}
	var names []string
	for _, n := range d.Columns() {
		if n != name {
			names = append(names, n)
		}
	}
	return d.Select(names...)
}

// Select returns a copy holding only the named columns, in the given order.
func (d *Dataset) Select(names ...string) (*Dataset, error) {
	columns := make([][]float64, len(names))
	for i, name := range names {
		col, err := d.Column(name)
		if err != nil {
			return nil, err
		}
		columns[i] = col
	}
	out, err := New(names, columns)
	if err != nil {
		return nil, err
	}
	out.nRows = d.nRows
	return out, nil
}

// WithColumn returns a copy with the named column added, or replaced when it
// already exists.
func (d *Dataset) WithColumn(name string, values []float64) (*Dataset, error) {
	if len(values) != d.nRows && len(d.df.Series) > 0 {
		return nil, errors.NewDimensionError("dataset.WithColumn", d.nRows, len(values), 0)
	}
	names := d.Columns()
	columns := make([][]float64, 0, len(names)+1)
	replaced := false
	for _, n := range names {
		if n == name {
			columns = append(columns, values)
			replaced = true
			continue
		}
		col, _ := d.Column(n)
		columns = append(columns, col)
	}
	if !replaced {
		names = append(names, name)
		columns = append(columns, values)
	}
	return New(names, columns)
}

// Matrix returns the table as a rows × columns matrix.
func (d *Dataset) Matrix() (*mat.Dense, error) {
	c := len(d.df.Series)
	if d.nRows == 0 || c == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "dataset has %d rows and %d columns", d.nRows, c)
	}
	m := mat.NewDense(d.nRows, c, nil)
	for j, s := range d.df.Series {
		m.SetCol(j, s.(*dataframe.SeriesFloat64).Values)
	}
	return m, nil
}

// Shuffle returns a copy with rows permuted by rng.
func (d *Dataset) Shuffle(rng *rand.Rand) *Dataset {
	perm := rng.Perm(d.nRows)
	series := make([]dataframe.Series, len(d.df.Series))
	for i, s := range d.df.Series {
		src := s.(*dataframe.SeriesFloat64).Values
		dst := make([]float64, len(src))
		for to, from := range perm {
			dst[to] = src[from]
		}
		series[i] = newSeries(s.Name(), dst)
	}
	return &Dataset{df: dataframe.NewDataFrame(series...), nRows: d.nRows}
}

// Row returns a copy of row i.
func (d *Dataset) Row(i int) []float64 {
	row := make([]float64, len(d.df.Series))
	for j, s := range d.df.Series {
		row[j] = s.(*dataframe.SeriesFloat64).Values[i]
	}
	return row
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
