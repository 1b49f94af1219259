package aggregate

import (
	"time"

	"github.com/hussaintmg/Population-Weather-App/internal/dataset"
)

// Sum adds column over the rows of v.
func Sum(v *dataset.View, column string) (float64, error) {
	if v == nil {
		return 0, ErrNilView
	}
	col, err := v.Dataset().Numbers(column)
	if err != nil {
		return 0, err
	}
	var s float64
	for i := 0; i < v.Len(); i++ {
		s += col.At(v.Row(i))
	}
	return s, nil
}

// Mean averages column over the rows of v. An empty view has mean 0.
func Mean(v *dataset.View, column string) (float64, error) {
	s, err := Sum(v, column)
	if err != nil || v.Len() == 0 {
		return 0, err
	}
	return s / float64(v.Len()), nil
}

// Count returns the number of rows in v.
func Count(v *dataset.View) int {
	if v == nil {
		return 0
	}
	return v.Len()
}

// Distinct returns the values of a categorical column present in v, in order
// of first occurrence.
func Distinct(v *dataset.View, column string) ([]string, error) {
	if v == nil {
		return nil, ErrNilView
	}
	col, err := v.Dataset().Strings(column)
	if err != nil {
		return nil, err
	}
	out := []string{}
	seen := make(map[string]struct{})
	for i := 0; i < v.Len(); i++ {
		s := col.At(v.Row(i))
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

// DistinctCount returns the number of distinct values of column in v.
func DistinctCount(v *dataset.View, column string) (int, error) {
	d, err := Distinct(v, column)
	return len(d), err
}

// DateBounds returns the earliest and latest non-null timestamp of column in
// v. ok is false when there is none.
func DateBounds(v *dataset.View, column string) (lo, hi time.Time, ok bool, err error) {
	if v == nil {
		return lo, hi, false, ErrNilView
	}
	col, err := v.Dataset().Times(column)
	if err != nil {
		return lo, hi, false, err
	}
	for i := 0; i < v.Len(); i++ {
		t, valid := col.At(v.Row(i))
		if !valid {
			continue
		}
		if !ok || t.Before(lo) {
			lo = t
		}
		if !ok || t.After(hi) {
			hi = t
		}
		ok = true
	}
	return lo, hi, ok, nil
}
