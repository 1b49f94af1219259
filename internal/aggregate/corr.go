package aggregate

import (
	"math"

	"github.com/hussaintmg/Population-Weather-App/internal/dataset"
)

// CorrMatrix holds a symmetric Pearson correlation matrix.
type CorrMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"` // row-major, Values[i][j]
	// Defined[i] is false when column i has zero variance over the view;
	// its row and column are then all 0.
	Defined []bool `json:"defined"`
}

// At returns r for the named pair, or 0 if either is absent.
func (m *CorrMatrix) At(a, b string) float64 {
	ia, ib := -1, -1
	for i, c := range m.Columns {
		if c == a {
			ia = i
		}
		if c == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return 0
	}
	return m.Values[ia][ib]
}

// Correlation computes Pearson r between every pair of the numeric columns
// over the rows of v. A column with zero variance (constant, fewer than two
// rows, or an empty view) correlates 0 with everything, itself included.
func Correlation(v *dataset.View, columns ...string) (*CorrMatrix, error) {
	if v == nil {
		return nil, ErrNilView
	}
	ds := v.Dataset()
	n := v.Len()
	data := make([][]float64, len(columns))
	for i, name := range columns {
		col, err := ds.Numbers(name)
		if err != nil {
			return nil, err
		}
		xs := make([]float64, n)
		for r := 0; r < n; r++ {
			xs[r] = col.At(v.Row(r))
		}
		data[i] = xs
	}

	k := len(columns)
	m := &CorrMatrix{
		Columns: append([]string{}, columns...),
		Values:  make([][]float64, k),
		Defined: make([]bool, k),
	}
	dev := make([][]float64, k)
	ss := make([]float64, k)
	for i, xs := range data {
		m.Values[i] = make([]float64, k)
		if n < 2 || constant(xs) {
			continue
		}
		var mean float64
		for _, x := range xs {
			mean += x
		}
		mean /= float64(n)
		d := make([]float64, n)
		for r, x := range xs {
			d[r] = x - mean
			ss[i] += d[r] * d[r]
		}
		if ss[i] == 0 {
			continue
		}
		dev[i] = d
		m.Defined[i] = true
	}

	for a := 0; a < k; a++ {
		if !m.Defined[a] {
			continue
		}
		m.Values[a][a] = 1
		for b := a + 1; b < k; b++ {
			if !m.Defined[b] {
				continue
			}
			var sxy float64
			for r := 0; r < n; r++ {
				sxy += dev[a][r] * dev[b][r]
			}
			r := clamp(sxy / math.Sqrt(ss[a]*ss[b]))
			m.Values[a][b] = r
			m.Values[b][a] = r
		}
	}
	return m, nil
}

func constant(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}

func clamp(r float64) float64 {
	switch {
	case math.IsNaN(r) || math.IsInf(r, 0):
		return 0
	case r > 1:
		return 1
	case r < -1:
		return -1
	}
	return r
}
