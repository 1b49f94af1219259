package dataset

import (
	"fmt"
	"slices"
)

// ColumnType is the declared type of a column after normalization.
type ColumnType int

const (
	Categorical ColumnType = iota
	Numeric
	Timestamp
)

func (t ColumnType) String() string {
	switch t {
	case Categorical:
		return "categorical"
	case Numeric:
		return "numeric"
	case Timestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

// Column declares one column of a Schema.
type Column struct {
	Name string
	Type ColumnType
	// Primary marks the timestamp used for time-range filtering. Rows whose
	// primary timestamp cannot be parsed are dropped at load time.
	Primary bool
	// SumOf lists the numeric source columns of a derived column. A column
	// with a non-empty SumOf is computed at load time and is not read from
	// the source.
	SumOf []string
}

// Derived reports whether the column is computed rather than read.
func (c Column) Derived() bool { return len(c.SumOf) > 0 }

// Schema is the fixed, ordered column layout of one dataset kind.
// The zero value has no columns. Schemas are immutable once built.
type Schema struct {
	name  string
	cols  []Column
	index map[string]int
}

// NewSchema validates the column declarations and builds a Schema.
func NewSchema(name string, cols ...Column) (Schema, error) {
	s := Schema{name: name, index: make(map[string]int, len(cols))}
	primaries := 0
	for i, c := range cols {
		if c.Name == "" {
			return Schema{}, fmt.Errorf("schema %s: column %d has no name", name, i)
		}
		if _, dup := s.index[c.Name]; dup {
			return Schema{}, fmt.Errorf("schema %s: duplicate column %q", name, c.Name)
		}
		if c.Primary {
			if c.Type != Timestamp {
				return Schema{}, fmt.Errorf("schema %s: primary column %q must be a timestamp", name, c.Name)
			}
			primaries++
		}
		if c.Derived() {
			if c.Type != Numeric {
				return Schema{}, fmt.Errorf("schema %s: derived column %q must be numeric", name, c.Name)
			}
			for _, src := range c.SumOf {
				j, ok := s.index[src]
				if !ok {
					return Schema{}, fmt.Errorf("schema %s: derived column %q references unknown or later column %q", name, c.Name, src)
				}
				if cols[j].Type != Numeric || cols[j].Derived() {
					return Schema{}, fmt.Errorf("schema %s: derived column %q source %q must be a plain numeric column", name, c.Name, src)
				}
			}
		}
		c.SumOf = slices.Clone(c.SumOf)
		s.cols = append(s.cols, c)
		s.index[c.Name] = i
	}
	if primaries > 1 {
		return Schema{}, fmt.Errorf("schema %s: at most one primary timestamp allowed, got %d", name, primaries)
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on an invalid declaration.
func MustSchema(name string, cols ...Column) Schema {
	s, err := NewSchema(name, cols...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name identifies the dataset kind, e.g. "population".
func (s Schema) Name() string { return s.name }

// Len returns the number of columns, derived columns included.
func (s Schema) Len() int { return len(s.cols) }

// Columns returns a copy of the column declarations in schema order.
func (s Schema) Columns() []Column {
	out := make([]Column, len(s.cols))
	for i, c := range s.cols {
		c.SumOf = slices.Clone(c.SumOf)
		out[i] = c
	}
	return out
}

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	out := make([]string, len(s.cols))
	for i, c := range s.cols {
		out[i] = c.Name
	}
	return out
}

// Column looks up a column declaration by name.
func (s Schema) Column(name string) (Column, bool) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, false
	}
	c := s.cols[i]
	c.SumOf = slices.Clone(c.SumOf)
	return c, true
}

// Index returns the position of a column, or -1.
func (s Schema) Index(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Primary returns the primary timestamp column, if the schema has one.
func (s Schema) Primary() (Column, bool) {
	for _, c := range s.cols {
		if c.Primary {
			return c, true
		}
	}
	return Column{}, false
}

// Require checks that name exists and has one of the wanted types.
func (s Schema) Require(name string, want ...ColumnType) error {
	c, ok := s.Column(name)
	if !ok {
		return &ColumnError{Column: name, Err: ErrUnknownColumn}
	}
	if len(want) > 0 && !slices.Contains(want, c.Type) {
		return &ColumnError{Column: name, Err: fmt.Errorf("%w: %s, want %s", ErrColumnType, c.Type, want[0])}
	}
	return nil
}
