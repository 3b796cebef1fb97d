package transport

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/exascience/stencil"
	"github.com/exascience/stencil/parallel"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

/*
WriteCSV writes the snapshots of r as a comma-separated table with one row
per spatial point and one column per snapshot, after a header line
x,t_0,t_1,... Values are formatted like %f.
*/
func WriteCSV(w io.Writer, r *Result) error {
	rows, cols := r.Snapshots.Dims()
	cw := csv.NewWriter(w)
	record := make([]string, rows+1)
	record[0] = "x"
	for s := 0; s < rows; s++ {
		record[s+1] = "t_" + strconv.Itoa(s)
	}
	if err := cw.Write(record); err != nil {
		return err
	}
	for m := 0; m < cols; m++ {
		record[0] = formatFloat(r.X(m))
		for s := 0; s < rows; s++ {
			record[s+1] = formatFloat(r.Snapshots.At(s, m))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the snapshots of r to the file at path, see WriteCSV.
// Failures wrap stencil.ErrIO.
func SaveCSV(path string, r *Result) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", stencil.ErrIO, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("%w: %w", stencil.ErrIO, cerr)
		}
	}()
	w := bufio.NewWriter(f)
	if err = WriteCSV(w, r); err == nil {
		err = w.Flush()
	}
	if err != nil {
		return fmt.Errorf("%w: writing %v: %w", stencil.ErrIO, path, err)
	}
	return nil
}

// MaxAbsDiff returns the largest absolute difference between corresponding
// elements of m1 and m2, computing the rows in parallel. It panics if the
// dimensions differ.
func MaxAbsDiff(m1, m2 *mat.Dense) float64 {
	rows, cols := m1.Dims()
	if r2, c2 := m2.Dims(); r2 != rows || c2 != cols {
		panic(mat.ErrShape)
	}
	return parallel.Float64RangeReduce(
		0, rows, 0,
		func(low, high int) (result float64) {
			for row := low; row < high; row++ {
				r1 := m1.RawRowView(row)
				r2 := m2.RawRowView(row)
				result = math.Max(result, floats.Distance(r1, r2, math.Inf(1)))
			}
			return
		},
		math.Max,
	)
}

// Compare returns the largest absolute difference between the snapshots
// of r and the corresponding layers of the full history ref, as returned
// by Reference.
func (r *Result) Compare(ref *mat.Dense) float64 {
	_, cols := r.Snapshots.Dims()
	layers := mat.NewDense(len(r.Layers), cols, nil)
	for i, k := range r.Layers {
		layers.SetRow(i, ref.RawRowView(k))
	}
	return MaxAbsDiff(r.Snapshots, layers)
}
