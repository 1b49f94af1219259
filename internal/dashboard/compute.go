package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/hussaintmg/Population-Weather-App/internal/aggregate"
	"github.com/hussaintmg/Population-Weather-App/internal/dataset"
	"github.com/hussaintmg/Population-Weather-App/internal/filter"
	"github.com/hussaintmg/Population-Weather-App/internal/metrics"
)

// Metric labels as shown on the summary cards.
const (
	LabelTotalPopulation   = "Total Population"
	LabelAveragePopulation = "Average Population"
	LabelDistricts         = "Districts Selected"
	LabelAvgTemp           = "Avg Temp (°C)"
	LabelAvgHumidity       = "Avg Humidity (%)"
	LabelTotalPrecip       = "Total Precipitation (mm)"
	LabelAvgWind           = "Avg Wind Speed (m/s)"
	LabelAvgSolar          = "Avg Solar Radiation"
)

// Result is everything a board shows for one filter state.
type Result struct {
	Kind      Kind   `json:"kind"`
	DatasetID string `json:"dataset_id"`
	RowCount  int    `json:"row_count"`
	TotalRows int    `json:"total_rows"`
	Empty     bool   `json:"empty"`

	Metrics []aggregate.Metric `json:"metrics"`

	// Population charts.
	Breakdown *aggregate.GroupResult `json:"breakdown,omitempty"`
	Top       []aggregate.Ranked     `json:"top,omitempty"`

	// Weather charts.
	Trends      map[string][]aggregate.SeriesSet `json:"trends,omitempty"`
	Correlation *aggregate.CorrMatrix            `json:"correlation,omitempty"`

	Notes []string `json:"notes,omitempty"`
}

// Metric returns the value of the metric with the given label.
func (r *Result) Metric(label string) (float64, bool) {
	for _, m := range r.Metrics {
		if m.Label == label {
			return m.Value, true
		}
	}
	return 0, false
}

// Report renders r for the terminal.
func (r *Result) Report() *aggregate.Report {
	rep := &aggregate.Report{
		Name:    string(r.Kind),
		Rows:    r.RowCount,
		Total:   r.TotalRows,
		Metrics: r.Metrics,
		Groups:  r.Breakdown,
		Top:     r.Top,
		Corr:    r.Correlation,
		Notes:   append([]string{}, r.Notes...),
	}
	if len(r.Top) > 0 {
		rep.TopLabel = fmt.Sprintf("TOP %d DISTRICTS", len(r.Top))
	}
	for _, key := range []string{dataset.ColTemp, dataset.ColPrecip} {
		if sets := r.Trends[key]; len(sets) > 0 {
			n := 0
			for _, s := range sets {
				n += len(s.Points)
			}
			rep.Notes = append(rep.Notes, fmt.Sprintf("%s trend: %d series, %d points", key, len(sets), n))
		}
	}
	if r.Empty {
		rep.Notes = append(rep.Notes, "no rows match the current filters")
	}
	return rep
}

// Compute runs the board's pipeline over the rows selected by spec, with the
// board's default ranking length.
func (b *Board) Compute(ctx context.Context, spec filter.Spec) (*Result, error) {
	return b.ComputeTop(ctx, spec, b.topN)
}

// ComputeTop is Compute with an explicit ranking length.
func (b *Board) ComputeTop(ctx context.Context, spec filter.Spec, topN int) (*Result, error) {
	start := time.Now()
	ds, err := b.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	v, err := filter.Apply(ds.View(), spec)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Kind:      b.kind,
		DatasetID: ds.ID.String(),
		RowCount:  v.Len(),
		TotalRows: ds.Len(),
		Empty:     v.Len() == 0,
		Notes:     loadNotes(ds.Stats),
	}
	switch b.kind {
	case Population:
		err = computePopulation(v, topN, res)
	case Weather:
		err = computeWeather(v, res)
	}
	if err != nil {
		return nil, fmt.Errorf("compute %s: %w", b.kind, err)
	}
	elapsed := time.Since(start)
	metrics.ComputeDuration.WithLabelValues(string(b.kind)).Observe(elapsed.Seconds())
	b.logger.Debug("dashboard computed",
		slog.Int("rows", res.RowCount),
		slog.Int("total_rows", res.TotalRows),
		slog.Duration("duration", elapsed))
	return res, nil
}

func computePopulation(v *dataset.View, topN int, res *Result) error {
	total, err := aggregate.Sum(v, dataset.ColTotalPopulation)
	if err != nil {
		return err
	}
	avg, err := aggregate.Mean(v, dataset.ColTotalPopulation)
	if err != nil {
		return err
	}
	districts, err := aggregate.DistinctCount(v, dataset.ColDistrict)
	if err != nil {
		return err
	}
	res.Metrics = []aggregate.Metric{
		{Label: LabelTotalPopulation, Value: total},
		{Label: LabelAveragePopulation, Value: math.Trunc(avg)},
		{Label: LabelDistricts, Value: float64(districts)},
	}
	if res.Breakdown, err = aggregate.GroupSum(v, dataset.ColDistrict, dataset.ColRural, dataset.ColUrban); err != nil {
		return err
	}
	res.Top, err = aggregate.TopN(v, dataset.ColDistrict, dataset.ColTotalPopulation, topN)
	return err
}

func computeWeather(v *dataset.View, res *Result) error {
	cards := []struct {
		label, column string
		sum           bool
	}{
		{LabelAvgTemp, dataset.ColTemp, false},
		{LabelAvgHumidity, dataset.ColHumidity, false},
		{LabelTotalPrecip, dataset.ColPrecip, true},
		{LabelAvgWind, dataset.ColWindSpeed, false},
		{LabelAvgSolar, dataset.ColSolarRad, false},
	}
	res.Metrics = make([]aggregate.Metric, 0, len(cards))
	for _, c := range cards {
		fn := aggregate.Mean
		if c.sum {
			fn = aggregate.Sum
		}
		x, err := fn(v, c.column)
		if err != nil {
			return err
		}
		res.Metrics = append(res.Metrics, aggregate.Metric{Label: c.label, Value: x})
	}

	res.Trends = make(map[string][]aggregate.SeriesSet, 2)
	for _, col := range []string{dataset.ColTemp, dataset.ColPrecip} {
		s, err := aggregate.Series(v, dataset.ColCity, dataset.ColDatetime, col)
		if err != nil {
			return err
		}
		res.Trends[col] = s
	}
	var err error
	res.Correlation, err = aggregate.Correlation(v, CorrelationColumns...)
	return err
}

func loadNotes(st dataset.LoadStats) []string {
	var notes []string
	if st.DroppedRows > 0 {
		notes = append(notes, fmt.Sprintf("%d of %d source rows dropped for an unparsable timestamp", st.DroppedRows, st.TotalRows))
	}
	if st.CoercedCells > 0 {
		notes = append(notes, fmt.Sprintf("%d numeric cells were empty or malformed and read as 0", st.CoercedCells))
	}
	if len(st.IgnoredColumns) > 0 {
		notes = append(notes, "ignored source columns: "+strings.Join(st.IgnoredColumns, ", "))
	}
	return notes
}
