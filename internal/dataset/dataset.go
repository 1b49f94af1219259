package dataset

import (
	"time"

	"github.com/google/uuid"
)

// LoadStats reports what normalization did to the raw source.
type LoadStats struct {
	// TotalRows counts data rows read from the source, header excluded.
	TotalRows int
	// LoadedRows counts rows kept in the Dataset.
	LoadedRows int
	// DroppedRows counts rows removed for an invalid primary timestamp.
	DroppedRows int
	// CoercedCells counts numeric cells replaced by 0.
	CoercedCells int
	// NullTimestamps counts secondary timestamp cells that did not parse.
	NullTimestamps int
	// IgnoredColumns lists source columns the schema does not declare.
	IgnoredColumns []string
	Duration       time.Duration
}

// column holds the values of one schema column. Exactly one of the
// slices is populated, according to the column type.
type column struct {
	strs  []string
	nums  []float64
	times []time.Time
	valid []bool
}

// Dataset is a normalized, schema-conformant, immutable table.
// Every numeric column holds float64 values and every timestamp column
// holds parsed times plus a validity mask; raw strings do not survive
// loading.
type Dataset struct {
	ID       uuid.UUID
	SourceID string
	Stats    LoadStats

	schema Schema
	cols   []column
	n      int
}

// Schema returns the dataset's column layout.
func (d *Dataset) Schema() Schema { return d.schema }

// Len returns the row count.
func (d *Dataset) Len() int { return d.n }

// View returns a view over every row of the dataset.
func (d *Dataset) View() *View {
	rows := make([]int, d.n)
	for i := range rows {
		rows[i] = i
	}
	return &View{ds: d, rows: rows}
}

// Strings returns the accessor of a categorical column.
func (d *Dataset) Strings(name string) (StringColumn, error) {
	i, err := d.lookup(name, Categorical)
	if err != nil {
		return StringColumn{}, err
	}
	return StringColumn{vals: d.cols[i].strs}, nil
}

// Numbers returns the accessor of a numeric column.
func (d *Dataset) Numbers(name string) (NumberColumn, error) {
	i, err := d.lookup(name, Numeric)
	if err != nil {
		return NumberColumn{}, err
	}
	return NumberColumn{vals: d.cols[i].nums}, nil
}

// Times returns the accessor of a timestamp column.
func (d *Dataset) Times(name string) (TimeColumn, error) {
	i, err := d.lookup(name, Timestamp)
	if err != nil {
		return TimeColumn{}, err
	}
	return TimeColumn{vals: d.cols[i].times, valid: d.cols[i].valid}, nil
}

func (d *Dataset) lookup(name string, want ColumnType) (int, error) {
	if err := d.schema.Require(name, want); err != nil {
		return -1, err
	}
	return d.schema.Index(name), nil
}

// StringColumn reads a categorical column by base row index.
type StringColumn struct{ vals []string }

func (c StringColumn) At(row int) string { return c.vals[row] }

// NumberColumn reads a numeric column by base row index.
type NumberColumn struct{ vals []float64 }

func (c NumberColumn) At(row int) float64 { return c.vals[row] }

// TimeColumn reads a timestamp column by base row index. The boolean is
// false for a cell that did not parse.
type TimeColumn struct {
	vals  []time.Time
	valid []bool
}

func (c TimeColumn) At(row int) (time.Time, bool) { return c.vals[row], c.valid[row] }

// View is an ordered selection of rows of a Dataset. Views never change
// after construction; narrowing a view produces a new one.
type View struct {
	ds   *Dataset
	rows []int
}

// Dataset returns the base dataset the view selects from.
func (v *View) Dataset() *Dataset { return v.ds }

// Schema returns the base dataset's schema.
func (v *View) Schema() Schema { return v.ds.schema }

// Len returns the number of selected rows.
func (v *View) Len() int { return len(v.rows) }

// Row returns the base row index of the i-th selected row.
func (v *View) Row(i int) int { return v.rows[i] }

// Rows returns a copy of the selected base row indices, in order.
func (v *View) Rows() []int {
	out := make([]int, len(v.rows))
	copy(out, v.rows)
	return out
}

// Where returns a new view keeping the rows for which keep returns true.
// keep receives base row indices; relative order is preserved.
func (v *View) Where(keep func(row int) bool) *View {
	rows := make([]int, 0, len(v.rows))
	for _, r := range v.rows {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	return &View{ds: v.ds, rows: rows}
}
