// Package aggregate computes totals, group sums, rankings, time series and
// correlations over a dataset view. Every function is pure and total: an
// empty view yields zeros, never NaN or an error.
package aggregate

import (
	"errors"
	"sort"
	"time"

	"github.com/hussaintmg/Population-Weather-App/internal/dataset"
)

// ErrNilView is returned when a function receives no view.
var ErrNilView = errors.New("aggregate: nil view")

// Group is one partition of a GroupResult.
type Group struct {
	Key   string    `json:"key"`
	Count int       `json:"count"`
	Sums  []float64 `json:"sums"`
}

// Mean returns Sums[i]/Count, or 0 for an empty group.
func (g Group) Mean(i int) float64 {
	if g.Count == 0 {
		return 0
	}
	return g.Sums[i] / float64(g.Count)
}

// GroupResult holds per-group sums of Values, grouped by Column. Groups are
// in order of first occurrence in the view.
type GroupResult struct {
	Column string   `json:"column"`
	Values []string `json:"values"`
	Groups []Group  `json:"groups"`
}

// Lookup returns the group with the given key.
func (r *GroupResult) Lookup(key string) (Group, bool) {
	for _, g := range r.Groups {
		if g.Key == key {
			return g, true
		}
	}
	return Group{}, false
}

// SortedByKey returns a copy of r with groups ordered by key.
func (r *GroupResult) SortedByKey() *GroupResult {
	out := &GroupResult{
		Column: r.Column,
		Values: append([]string{}, r.Values...),
		Groups: append([]Group{}, r.Groups...),
	}
	sort.SliceStable(out.Groups, func(i, j int) bool { return out.Groups[i].Key < out.Groups[j].Key })
	return out
}

// Means returns the per-group mean of every value column, indexed like Groups.
func (r *GroupResult) Means() [][]float64 {
	out := make([][]float64, len(r.Groups))
	for gi, g := range r.Groups {
		out[gi] = make([]float64, len(g.Sums))
		for i := range g.Sums {
			out[gi][i] = g.Mean(i)
		}
	}
	return out
}

// GroupSum partitions v by the categorical column group and sums each of the
// numeric values columns per partition.
func GroupSum(v *dataset.View, group string, values ...string) (*GroupResult, error) {
	if v == nil {
		return nil, ErrNilView
	}
	ds := v.Dataset()
	keys, err := ds.Strings(group)
	if err != nil {
		return nil, err
	}
	nums := make([]dataset.NumberColumn, len(values))
	for i, name := range values {
		if nums[i], err = ds.Numbers(name); err != nil {
			return nil, err
		}
	}

	res := &GroupResult{Column: group, Values: append([]string{}, values...), Groups: []Group{}}
	index := make(map[string]int)
	for i := 0; i < v.Len(); i++ {
		row := v.Row(i)
		k := keys.At(row)
		gi, ok := index[k]
		if !ok {
			gi = len(res.Groups)
			index[k] = gi
			res.Groups = append(res.Groups, Group{Key: k, Sums: make([]float64, len(values))})
		}
		g := &res.Groups[gi]
		g.Count++
		for j, col := range nums {
			g.Sums[j] += col.At(row)
		}
	}
	return res, nil
}

// Ranked is one entry of a TopN ranking.
type Ranked struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// TopN ranks the groups of column group by the sum of value, descending,
// and keeps the first n. Ties go to the group that appears first in the
// base dataset, whatever rows the view keeps. n <= 0 yields an empty ranking.
func TopN(v *dataset.View, group, value string, n int) ([]Ranked, error) {
	res, err := GroupSum(v, group, value)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []Ranked{}, nil
	}
	first, err := firstBaseRows(v.Dataset(), group, res.Groups)
	if err != nil {
		return nil, err
	}
	out := make([]Ranked, len(res.Groups))
	for i, g := range res.Groups {
		out[i] = Ranked{Key: g.Key, Value: g.Sums[0]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return first[out[i].Key] < first[out[j].Key]
	})
	if n < len(out) {
		out = out[:n]
	}
	return out, nil
}

// firstBaseRows maps each group key to the index of its first row in ds.
func firstBaseRows(ds *dataset.Dataset, group string, groups []Group) (map[string]int, error) {
	keys, err := ds.Strings(group)
	if err != nil {
		return nil, err
	}
	first := make(map[string]int, len(groups))
	for _, g := range groups {
		first[g.Key] = -1
	}
	found := 0
	for row := 0; row < ds.Len() && found < len(groups); row++ {
		k := keys.At(row)
		if at, ok := first[k]; ok && at < 0 {
			first[k] = row
			found++
		}
	}
	return first, nil
}

// Point is one observation of a Series.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// SeriesSet is the time series of one group.
type SeriesSet struct {
	Key    string  `json:"key"`
	Points []Point `json:"points"`
}

// Series splits v by group and returns, per group, the (timeColumn,
// valueColumn) pairs in view order. Rows with a null timestamp are skipped.
func Series(v *dataset.View, group, timeColumn, valueColumn string) ([]SeriesSet, error) {
	if v == nil {
		return nil, ErrNilView
	}
	ds := v.Dataset()
	keys, err := ds.Strings(group)
	if err != nil {
		return nil, err
	}
	times, err := ds.Times(timeColumn)
	if err != nil {
		return nil, err
	}
	vals, err := ds.Numbers(valueColumn)
	if err != nil {
		return nil, err
	}

	out := []SeriesSet{}
	index := make(map[string]int)
	for i := 0; i < v.Len(); i++ {
		row := v.Row(i)
		t, ok := times.At(row)
		if !ok {
			continue
		}
		k := keys.At(row)
		si, seen := index[k]
		if !seen {
			si = len(out)
			index[k] = si
			out = append(out, SeriesSet{Key: k})
		}
		out[si].Points = append(out[si].Points, Point{Time: t, Value: vals.At(row)})
	}
	return out, nil
}
