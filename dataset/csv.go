package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/YuminosukeSato/estkit/pkg/errors"
)

// LoadCSV reads a CSV file whose first row names the columns. A missing file
// yields an error wrapping os.ErrNotExist.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open dataset %s", path)
	}
	defer f.Close()

	d, err := ReadCSV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read dataset %s", path)
	}
	return d, nil
}

// ReadCSV parses CSV with a header row. Every cell must be a decimal number;
// empty or unparsable cells are an error naming the row and column.
func ReadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.Wrap(errors.ErrEmptyData, "csv has no header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}

	columns := make([][]float64, len(names))
	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read csv row %d", row)
		}
		for j, cell := range record {
			v, err := parseCell(cell)
			if err != nil {
				return nil, errors.NewValueError("dataset.ReadCSV",
					"row "+strconv.Itoa(row)+", column '"+names[j]+"': "+err.Error())
			}
			columns[j] = append(columns[j], v)
		}
	}
	for j := range columns {
		if columns[j] == nil {
			columns[j] = []float64{}
		}
	}
	return New(names, columns)
}

func parseCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, errors.New("empty cell")
	}
	d, err := decimal.NewFromString(cell)
	if err != nil {
		return 0, errors.Newf("not a number: %q", cell)
	}
	v, _ := d.Float64()
	return v, nil
}

func formatCell(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return decimal.NewFromFloat(v).String()
}

// WriteCSV writes the header row and every row with the shortest decimal
// representation of each value.
func (d *Dataset) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(d.Columns()); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	record := make([]string, len(d.df.Series))
	for i := 0; i < d.nRows; i++ {
		for j, v := range d.Row(i) {
			record[j] = formatCell(v)
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrapf(err, "write csv row %d", i+1)
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "flush csv")
}
