package gpbench

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Dataset is a numeric regression table split into inputs and targets.
type Dataset struct {
	// X holds one row per observation and Dim columns.
	X *mat.Dense

	// Y holds one target per row of X.
	Y *mat.VecDense
}

// Dim returns the number of input columns.
func (d *Dataset) Dim() int {
	_, c := d.X.Dims()

	return c
}

// Len returns the number of observations.
func (d *Dataset) Len() int {
	return d.Y.Len()
}

// LoadDataset reads a comma separated file whose first row is a header.
//
// Parameters:
// - path: CSV file to read
// - dim: Number of input columns
//
// Returns:
// - *Dataset: Columns [0, dim) as X and column dim as Y
// - error: Wrapping ErrDataset if the file is missing, a row has fewer
//   than dim+1 columns, a cell is not numeric, or there are no data rows
//
// Important notes:
// - Columns after dim are ignored
// - Leading spaces in cells are trimmed.
func LoadDataset(path string, dim int) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataset, err)
	}
	defer file.Close()

	ds, err := ReadDataset(bufio.NewReader(file), dim)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return ds, nil
}

// ReadDataset is LoadDataset over an arbitrary reader.
func ReadDataset(r io.Reader, dim int) (*Dataset, error) {
	if dim < 1 {
		return nil, fmt.Errorf("%w: dim must be positive, got %d", ErrDataset, dim)
	}

	reader := csv.NewReader(r)
	reader.ReuseRecord = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrDataset)
		}

		return nil, fmt.Errorf("%w: header: %v", ErrDataset, err)
	}

	var (
		xs   []float64
		ys   []float64
		line = 1
	)

	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		line++

		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrDataset, line, err)
		}

		if len(rec) < dim+1 {
			return nil, fmt.Errorf("%w: line %d has %d columns, need at least %d", ErrDataset, line, len(rec), dim+1)
		}

		for i := 0; i <= dim; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %d: %v", ErrDataset, line, i+1, err)
			}

			if i < dim {
				xs = append(xs, v)
			} else {
				ys = append(ys, v)
			}
		}
	}

	if len(ys) == 0 {
		return nil, fmt.Errorf("%w: no data rows", ErrDataset)
	}

	return &Dataset{
		X: mat.NewDense(len(ys), dim, xs),
		Y: mat.NewVecDense(len(ys), ys),
	}, nil
}
