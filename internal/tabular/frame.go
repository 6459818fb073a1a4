// Package tabular holds the in-memory table passed between the ETL stages and
// the two object encodings it is stored in: row-oriented CSV and columnar
// Parquet.
package tabular

import "fmt"

// Frame is a column-named table. A nil cell is a null value.
type Frame struct {
	Columns []string
	Rows    [][]any
}

// NewFrame creates an empty frame with the given columns.
func NewFrame(columns ...string) *Frame {
	return &Frame{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows. A nil frame has zero rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Empty reports whether the frame has no rows.
func (f *Frame) Empty() bool {
	return f.Len() == 0
}

// ColumnIndex returns the position of the named column, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// AddRow appends a row. Missing trailing cells are null; extra cells are an
// error.
func (f *Frame) AddRow(cells ...any) error {
	if len(cells) > len(f.Columns) {
		return fmt.Errorf("row has %d cells, frame has %d columns", len(cells), len(f.Columns))
	}
	row := make([]any, len(f.Columns))
	copy(row, cells)
	f.Rows = append(f.Rows, row)
	return nil
}

// Project returns a new frame holding only the given columns, in the given
// order. Rows share no storage with f.
func (f *Frame) Project(columns []string) (*Frame, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = f.ColumnIndex(c)
		if idx[i] < 0 {
			return nil, fmt.Errorf("column %q not found", c)
		}
	}

	out := &Frame{
		Columns: append([]string(nil), columns...),
		Rows:    make([][]any, 0, len(f.Rows)),
	}
	for _, row := range f.Rows {
		projected := make([]any, len(idx))
		for i, j := range idx {
			if j < len(row) {
				projected[i] = row[j]
			}
		}
		out.Rows = append(out.Rows, projected)
	}
	return out, nil
}

// Append concatenates other's rows onto f. Columns only present in other are
// added to f, with null cells for rows already in f; columns only present in
// f are null for the appended rows.
func (f *Frame) Append(other *Frame) {
	if other == nil {
		return
	}

	mapping := make([]int, len(other.Columns))
	for i, c := range other.Columns {
		j := f.ColumnIndex(c)
		if j < 0 {
			f.Columns = append(f.Columns, c)
			j = len(f.Columns) - 1
		}
		mapping[i] = j
	}

	width := len(f.Columns)
	for i, row := range f.Rows {
		if len(row) < width {
			padded := make([]any, width)
			copy(padded, row)
			f.Rows[i] = padded
		}
	}

	for _, row := range other.Rows {
		out := make([]any, width)
		for i, cell := range row {
			if i < len(mapping) {
				out[mapping[i]] = cell
			}
		}
		f.Rows = append(f.Rows, out)
	}
}
