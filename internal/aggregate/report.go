package aggregate

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Metric is a labelled headline number.
type Metric struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Report is a text-friendly summary of an aggregated view.
type Report struct {
	Name     string
	Rows     int
	Total    int
	Metrics  []Metric
	Groups   *GroupResult
	Top      []Ranked
	TopLabel string
	Corr     *CorrMatrix
	Notes    []string
}

// Markdown renders a compact report for terminals or standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		fmt.Fprintf(&b, "Dataset: %s\n", r.Name)
	}
	if r.Total > 0 && r.Rows < r.Total {
		fmt.Fprintf(&b, "Rows: %d (of %d)\n", r.Rows, r.Total)
	} else {
		fmt.Fprintf(&b, "Rows: %d\n", r.Rows)
	}

	if len(r.Metrics) > 0 {
		b.WriteString("\n[METRICS]\n")
		for _, m := range r.Metrics {
			fmt.Fprintf(&b, "- %s: %s\n", m.Label, formatNumber(m.Value))
		}
	}

	if r.Groups != nil && len(r.Groups.Groups) > 0 {
		fmt.Fprintf(&b, "\n[GROUP-BY SUMMARY] %s\n", r.Groups.Column)
		shown := min(len(r.Groups.Groups), reportGroups)
		for _, g := range r.Groups.Groups[:shown] {
			parts := make([]string, len(r.Groups.Values))
			for i, name := range r.Groups.Values {
				parts[i] = name + " " + formatNumber(g.Sums[i])
			}
			fmt.Fprintf(&b, "- %s (n=%d): %s\n", oneLine(g.Key), g.Count, strings.Join(parts, ", "))
		}
		if rest := len(r.Groups.Groups) - shown; rest > 0 {
			fmt.Fprintf(&b, "- ... %d more\n", rest)
		}
	}

	if len(r.Top) > 0 {
		label := r.TopLabel
		if label == "" {
			label = "TOP"
		}
		fmt.Fprintf(&b, "\n[%s]\n", label)
		for i, t := range r.Top {
			fmt.Fprintf(&b, "%d. %s: %s\n", i+1, oneLine(t.Key), formatNumber(t.Value))
		}
	}

	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		pairs := r.Corr.strongest()
		for _, p := range pairs[:min(len(pairs), reportPairs)] {
			fmt.Fprintf(&b, "- %s ~ %s: r=%.3f\n", p.a, p.b, p.r)
		}
		if len(pairs) == 0 {
			b.WriteString("- none: every column is constant in this selection\n")
		}
	}

	if len(r.Notes) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, n := range r.Notes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}
	return b.String()
}

func formatNumber(x float64) string {
	if x == math.Trunc(x) && math.Abs(x) < 1e15 {
		return fmt.Sprintf("%.0f", x)
	}
	return fmt.Sprintf("%.4g", x)
}

// oneLine keeps a category value on a single report line.
func oneLine(s string) string { return strings.ReplaceAll(s, "\n", " ") }

// Lines shown per section.
const (
	reportGroups = 10
	reportPairs  = 10
)

type corrPair struct {
	a, b string
	r    float64
}

// strongest lists the pairs of defined columns, strongest |r| first.
func (m *CorrMatrix) strongest() []corrPair {
	var out []corrPair
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			if m.Defined[i] && m.Defined[j] {
				out = append(out, corrPair{a: m.Columns[i], b: m.Columns[j], r: m.Values[i][j]})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return math.Abs(out[i].r) > math.Abs(out[j].r) })
	return out
}
