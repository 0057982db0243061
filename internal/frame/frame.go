/*
Package frame holds the record table the preprocessing stages pass around: one
row per (patient, time step) observation, numeric columns only, with a
designated entity-identifier column. Target columns, when present, are always
the last columns of the table.
*/
package frame

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrMissingColumn is returned when a named column is not in the table.
	ErrMissingColumn = errors.New("missing column")

	// ErrNaN is returned when a table that must be fully imputed still
	// contains missing values.
	ErrNaN = errors.New("NaN values remain")
)

// Span is a contiguous run of rows belonging to one entity.
type Span struct {

	// Entity identifier shared by all rows in the run
	ID float64

	// First row of the run
	Start int

	// One past the last row of the run
	End int
}

// Len returns the number of rows in the span.
func (s Span) Len() int { return s.End - s.Start }

// Frame is a column-major table of float64 values.
type Frame struct {
	idCol string
	names []string
	cols  map[string][]float64
	nrows int
}

// New builds a frame from named columns. The order of names fixes the column
// order. All columns must have equal length and idCol must be present.
func New(idCol string, names []string, cols map[string][]float64) (*Frame, error) {
	if len(names) == 0 {
		return nil, errors.New("frame: no columns")
	}
	nrows := -1
	for _, na := range names {
		c, ok := cols[na]
		if !ok {
			return nil, fmt.Errorf("frame: %w: %q", ErrMissingColumn, na)
		}
		if nrows == -1 {
			nrows = len(c)
		} else if len(c) != nrows {
			return nil, fmt.Errorf("frame: column %q has %d rows, want %d", na, len(c), nrows)
		}
	}
	if _, ok := cols[idCol]; !ok {
		return nil, fmt.Errorf("frame: %w: id column %q", ErrMissingColumn, idCol)
	}
	f := &Frame{idCol: idCol, names: append([]string(nil), names...), cols: make(map[string][]float64, len(names)), nrows: nrows}
	for _, na := range names {
		f.cols[na] = cols[na]
	}
	return f, nil
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int { return f.nrows }

// NumCols returns the number of columns.
func (f *Frame) NumCols() int { return len(f.names) }

// IDCol returns the name of the entity-identifier column.
func (f *Frame) IDCol() string { return f.idCol }

// Names returns the column names in table order.
func (f *Frame) Names() []string {
	return append([]string(nil), f.names...)
}

// HasCol reports whether the named column exists.
func (f *Frame) HasCol(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Col returns the named column. The returned slice is the backing storage,
// not a copy.
func (f *Frame) Col(name string) ([]float64, error) {
	c, ok := f.cols[name]
	if !ok {
		return nil, fmt.Errorf("frame: %w: %q", ErrMissingColumn, name)
	}
	return c, nil
}

// IDs returns the entity-identifier column.
func (f *Frame) IDs() []float64 {
	return f.cols[f.idCol]
}

// AppendCol adds a column at the end of the table.
func (f *Frame) AppendCol(name string, vals []float64) error {
	if _, ok := f.cols[name]; ok {
		return fmt.Errorf("frame: column %q already exists", name)
	}
	if len(vals) != f.nrows {
		return fmt.Errorf("frame: column %q has %d rows, want %d", name, len(vals), f.nrows)
	}
	f.names = append(f.names, name)
	f.cols[name] = vals
	return nil
}

// DropCols removes the named columns, tolerating names that are absent.
// The id column cannot be dropped.
func (f *Frame) DropCols(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, na := range names {
		if na != f.idCol {
			drop[na] = true
		}
	}
	kept := f.names[:0]
	for _, na := range f.names {
		if drop[na] {
			delete(f.cols, na)
		} else {
			kept = append(kept, na)
		}
	}
	f.names = kept
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	g := &Frame{idCol: f.idCol, names: append([]string(nil), f.names...), cols: make(map[string][]float64, len(f.names)), nrows: f.nrows}
	for na, c := range f.cols {
		g.cols[na] = append([]float64(nil), c...)
	}
	return g
}

// SelectRows returns a new frame holding the given rows, in the given order.
func (f *Frame) SelectRows(idx []int) *Frame {
	g := &Frame{idCol: f.idCol, names: append([]string(nil), f.names...), cols: make(map[string][]float64, len(f.names)), nrows: len(idx)}
	for _, na := range f.names {
		src := f.cols[na]
		dst := make([]float64, len(idx))
		for i, j := range idx {
			dst[i] = src[j]
		}
		g.cols[na] = dst
	}
	return g
}

// AppendRows concatenates the rows of other below f. Column sets and order
// must match exactly.
func (f *Frame) AppendRows(other *Frame) error {
	if len(other.names) != len(f.names) {
		return fmt.Errorf("frame: append: %d columns, want %d", len(other.names), len(f.names))
	}
	for i, na := range f.names {
		if other.names[i] != na {
			return fmt.Errorf("frame: append: column %d is %q, want %q", i, other.names[i], na)
		}
	}
	for _, na := range f.names {
		f.cols[na] = append(f.cols[na], other.cols[na]...)
	}
	f.nrows += other.nrows
	return nil
}

// Spans returns the contiguous runs of equal entity identifier, in row order.
// An entity whose rows were appended as a separate block (oversampling) forms
// its own run.
func (f *Frame) Spans() []Span {
	ids := f.IDs()
	var spans []Span
	for i := 0; i < len(ids); {
		j := i + 1
		for j < len(ids) && ids[j] == ids[i] {
			j++
		}
		spans = append(spans, Span{ID: ids[i], Start: i, End: j})
		i = j
	}
	return spans
}

// UniqueIDs returns the distinct entity identifiers in ascending order.
func (f *Frame) UniqueIDs() []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, id := range f.IDs() {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Float64s(out)
	return out
}

// FilterEntities returns a new frame keeping only rows whose entity
// identifier is in keep. Row order is preserved.
func (f *Frame) FilterEntities(keep map[float64]bool) *Frame {
	ids := f.IDs()
	idx := make([]int, 0, len(ids))
	for i, id := range ids {
		if keep[id] {
			idx = append(idx, i)
		}
	}
	return f.SelectRows(idx)
}

// CheckNoNaN returns ErrNaN naming the first column that still contains a
// missing value.
func (f *Frame) CheckNoNaN() error {
	for _, na := range f.names {
		for _, v := range f.cols[na] {
			if math.IsNaN(v) {
				return fmt.Errorf("frame: %w in column %q", ErrNaN, na)
			}
		}
	}
	return nil
}
