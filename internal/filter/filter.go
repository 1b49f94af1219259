// Package filter narrows a dataset view by categorical membership and an
// optional date range.
package filter

import (
	"errors"
	"fmt"
	"time"

	"github.com/hussaintmg/Population-Weather-App/internal/dataset"
)

// ErrNilView is returned when Apply receives no view.
var ErrNilView = errors.New("filter: nil view")

// Membership keeps rows whose Column value is one of Allowed. An empty
// Allowed set matches no rows.
type Membership struct {
	Column  string
	Allowed []string
}

// DateRange keeps rows whose Column timestamp, truncated to its calendar
// date, lies within [Min, Max]. Both ends are inclusive and are compared by
// date only.
type DateRange struct {
	Column string
	Min    time.Time
	Max    time.Time
}

// Spec is a conjunction of memberships and an optional date range.
// Columns without a membership are unconstrained.
type Spec struct {
	Memberships []Membership
	Range       *DateRange
}

// In returns a copy of s with an added membership on column.
func (s Spec) In(column string, values ...string) Spec {
	out := s.clone()
	out.Memberships = append(out.Memberships, Membership{Column: column, Allowed: append([]string{}, values...)})
	return out
}

// Between returns a copy of s with its date range replaced.
func (s Spec) Between(column string, from, to time.Time) Spec {
	out := s.clone()
	out.Range = &DateRange{Column: column, Min: from, Max: to}
	return out
}

func (s Spec) clone() Spec {
	out := Spec{Memberships: make([]Membership, len(s.Memberships))}
	copy(out.Memberships, s.Memberships)
	if s.Range != nil {
		r := *s.Range
		out.Range = &r
	}
	return out
}

// Validate checks that every constrained column exists in schema with the
// right type. Errors wrap dataset.ErrUnknownColumn or dataset.ErrColumnType.
func (s Spec) Validate(schema dataset.Schema) error {
	for _, m := range s.Memberships {
		if err := schema.Require(m.Column, dataset.Categorical); err != nil {
			return fmt.Errorf("membership: %w", err)
		}
	}
	if s.Range != nil {
		if err := schema.Require(s.Range.Column, dataset.Timestamp); err != nil {
			return fmt.Errorf("date range: %w", err)
		}
	}
	return nil
}

// Empty reports whether the spec can match no row regardless of data: a
// membership with an empty allowed set, or an inverted range.
func (s Spec) Empty() bool {
	for _, m := range s.Memberships {
		if len(m.Allowed) == 0 {
			return true
		}
	}
	return s.Range != nil && civilDate(s.Range.Min) > civilDate(s.Range.Max)
}

// Apply returns the rows of v that satisfy every constraint of s, in the
// order of v. It never modifies v. An unsatisfiable spec or an empty view
// yields an empty view, not an error; unknown or mistyped columns are
// errors.
func Apply(v *dataset.View, s Spec) (*dataset.View, error) {
	if v == nil {
		return nil, ErrNilView
	}
	if err := s.Validate(v.Schema()); err != nil {
		return nil, err
	}
	if s.Empty() {
		return v.Where(func(int) bool { return false }), nil
	}

	ds := v.Dataset()
	type check struct {
		col     dataset.StringColumn
		allowed map[string]struct{}
	}
	checks := make([]check, 0, len(s.Memberships))
	for _, m := range s.Memberships {
		col, err := ds.Strings(m.Column)
		if err != nil {
			return nil, err
		}
		set := make(map[string]struct{}, len(m.Allowed))
		for _, a := range m.Allowed {
			set[a] = struct{}{}
		}
		checks = append(checks, check{col: col, allowed: set})
	}

	var (
		times    dataset.TimeColumn
		lo, hi   int
		hasRange = s.Range != nil
	)
	if hasRange {
		var err error
		if times, err = ds.Times(s.Range.Column); err != nil {
			return nil, err
		}
		lo, hi = civilDate(s.Range.Min), civilDate(s.Range.Max)
	}

	return v.Where(func(row int) bool {
		for _, c := range checks {
			if _, ok := c.allowed[c.col.At(row)]; !ok {
				return false
			}
		}
		if hasRange {
			t, ok := times.At(row)
			if !ok {
				return false
			}
			d := civilDate(t)
			if d < lo || d > hi {
				return false
			}
		}
		return true
	}), nil
}

// civilDate encodes the calendar date of t in its own location as
// yyyymmdd, which orders the same way dates do.
func civilDate(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
