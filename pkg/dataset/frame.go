package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/samber/lo"
)

// Frame is a numeric table with named columns stored row-major.
type Frame struct {
	Columns []string
	Rows    [][]float64
}

func (f *Frame) Len() int {
	return len(f.Rows)
}

func (f *Frame) index(name string) (int, error) {
	_, idx, found := lo.FindIndexOf(f.Columns, func(c string) bool { return c == name })
	if !found {
		return -1, fmt.Errorf("column %q not found in %v", name, f.Columns)
	}

	return idx, nil
}

// Select returns the named columns as a row-major matrix.
func (f *Frame) Select(names []string) ([][]float64, error) {
	if len(names) == 0 {
		return nil, errors.New("no columns selected")
	}

	indices := make([]int, len(names))
	for i, name := range names {
		idx, err := f.index(name)
		if err != nil {
			return nil, err
		}

		indices[i] = idx
	}

	out := make([][]float64, len(f.Rows))
	for r, row := range f.Rows {
		out[r] = make([]float64, len(indices))
		for c, idx := range indices {
			out[r][c] = row[idx]
		}
	}

	return out, nil
}

// Vector returns the named column as a flat slice.
func (f *Frame) Vector(name string) ([]float64, error) {
	idx, err := f.index(name)
	if err != nil {
		return nil, err
	}

	return lo.Map(f.Rows, func(row []float64, _ int) float64 { return row[idx] }), nil
}

// Take returns a frame holding the rows at the given positions, in order.
func (f *Frame) Take(positions []int) *Frame {
	return &Frame{
		Columns: append([]string(nil), f.Columns...),
		Rows:    lo.Map(positions, func(p int, _ int) []float64 { return append([]float64(nil), f.Rows[p]...) }),
	}
}

// ReadCSV loads a CSV file with a header row and numeric cells.
func ReadCSV(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer file.Close()

	frame, err := DecodeCSV(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}

	return frame, nil
}

func DecodeCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	frame := &Frame{Columns: header}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return frame, nil
		}

		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := make([]float64, len(record))
		for i, cell := range record {
			row[i], err = strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %q: %w", line, header[i], err)
			}
		}

		frame.Rows = append(frame.Rows, row)
	}
}

// WriteCSV writes the frame with a header row.
func (f *Frame) WriteCSV(path string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return f.EncodeCSV(file)
}

func (f *Frame) EncodeCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(f.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(f.Columns))
	for _, row := range f.Rows {
		for i, v := range row {
			record[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}

		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()

	return writer.Error()
}
