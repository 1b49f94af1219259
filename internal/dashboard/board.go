// Package dashboard wires the loader, filter, aggregator and exporter into
// the population and weather boards.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/hussaintmg/Population-Weather-App/internal/aggregate"
	"github.com/hussaintmg/Population-Weather-App/internal/dataset"
	"github.com/hussaintmg/Population-Weather-App/internal/export"
	"github.com/hussaintmg/Population-Weather-App/internal/filter"
)

// ErrUnknownKind is returned for a board name other than population or weather.
var ErrUnknownKind = errors.New("unknown dashboard kind")

// Kind names a board.
type Kind string

const (
	Population Kind = "population"
	Weather    Kind = "weather"
)

// Kinds lists every board in display order.
func Kinds() []Kind { return []Kind{Population, Weather} }

// ParseKind maps a board name to its Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Population:
		return Population, nil
	case Weather:
		return Weather, nil
	}
	return "", fmt.Errorf("%w: %q (want population or weather)", ErrUnknownKind, s)
}

// DefaultTopN is the length of the top districts ranking.
const DefaultTopN = 10

// CorrelationColumns are the weather parameters of the correlation heatmap.
var CorrelationColumns = []string{
	dataset.ColTemp, "app_temp", "dewpt", dataset.ColHumidity, dataset.ColPrecip,
	dataset.ColWindSpeed, "wind_gust_spd", dataset.ColSolarRad, "slp", "uv",
	"pop", "ozone", "dni", "ghi", "dhi",
}

type profile struct {
	schema     dataset.Schema
	filters    []string
	dateColumn string
}

func profileFor(k Kind) profile {
	if k == Weather {
		return profile{
			schema:     dataset.WeatherSchema(),
			filters:    []string{dataset.ColCity, dataset.ColCountry},
			dateColumn: dataset.ColDatetime,
		}
	}
	return profile{
		schema:  dataset.PopulationSchema(),
		filters: []string{dataset.ColDistrict, dataset.ColProvince},
	}
}

// Board is one dashboard page: a source, its schema and the computations
// shown for it.
type Board struct {
	kind   Kind
	prof   profile
	source string
	cache  *dataset.Cache
	topN   int
	logger *slog.Logger
}

// Option configures a Board.
type Option func(*Board)

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Board) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithTopN sets the default ranking length used by Compute.
func WithTopN(n int) Option { return func(b *Board) { b.topN = n } }

// New builds a board reading source through cache.
func New(kind Kind, source string, cache *dataset.Cache, opts ...Option) (*Board, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("%s board: %w: no source configured", kind, dataset.ErrSourceUnavailable)
	}
	if cache == nil {
		return nil, fmt.Errorf("%s board: nil cache", kind)
	}
	b := &Board{
		kind:   kind,
		prof:   profileFor(kind),
		source: source,
		cache:  cache,
		topN:   DefaultTopN,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(b)
	}
	b.logger = b.logger.With(slog.String("component", "board"), slog.String("kind", string(kind)))
	return b, nil
}

// NewPopulation builds the population board.
func NewPopulation(source string, cache *dataset.Cache, opts ...Option) (*Board, error) {
	return New(Population, source, cache, opts...)
}

// NewWeather builds the weather board.
func NewWeather(source string, cache *dataset.Cache, opts ...Option) (*Board, error) {
	return New(Weather, source, cache, opts...)
}

func (b *Board) Kind() Kind { return b.kind }

func (b *Board) Source() string { return b.source }

func (b *Board) Schema() dataset.Schema { return b.prof.schema }

// FilterColumns lists the multiselect columns of the board.
func (b *Board) FilterColumns() []string { return append([]string{}, b.prof.filters...) }

// DateColumn is the date-range column, or "" for boards without one.
func (b *Board) DateColumn() string { return b.prof.dateColumn }

// Invalidate drops the cached dataset so the next call rereads the source.
func (b *Board) Invalidate() { b.cache.Invalidate(b.source) }

// Filename is the download name of an extract in format f.
func (b *Board) Filename(f export.Format) string {
	return fmt.Sprintf("filtered_%s.%s", b.kind, f)
}

// Dataset returns the cached dataset, loading it on first use.
func (b *Board) Dataset(ctx context.Context) (*dataset.Dataset, error) {
	return b.cache.GetOrLoad(ctx, b.source, b.prof.schema)
}

// Choice is the option list of one multiselect filter.
type Choice struct {
	Column string   `json:"column"`
	Values []string `json:"values"`
}

// Options are the filter widget choices of a board.
type Options struct {
	Kind       Kind       `json:"kind"`
	DatasetID  string     `json:"dataset_id"`
	Filters    []Choice   `json:"filters"`
	DateColumn string     `json:"date_column,omitempty"`
	DateMin    *time.Time `json:"date_min,omitempty"`
	DateMax    *time.Time `json:"date_max,omitempty"`
}

// Options lists the distinct values of every filter column in order of first
// occurrence and, for boards with a date column, the date bounds. An empty
// dataset has empty choices and no bounds.
func (b *Board) Options(ctx context.Context) (*Options, error) {
	ds, err := b.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	all := ds.View()
	out := &Options{Kind: b.kind, DatasetID: ds.ID.String(), Filters: make([]Choice, 0, len(b.prof.filters))}
	for _, col := range b.prof.filters {
		vals, err := aggregate.Distinct(all, col)
		if err != nil {
			return nil, err
		}
		out.Filters = append(out.Filters, Choice{Column: col, Values: vals})
	}
	if b.prof.dateColumn != "" {
		out.DateColumn = b.prof.dateColumn
		lo, hi, ok, err := aggregate.DateBounds(all, b.prof.dateColumn)
		if err != nil {
			return nil, err
		}
		if ok {
			lo, hi = truncateDay(lo), truncateDay(hi)
			out.DateMin, out.DateMax = &lo, &hi
		}
	}
	return out, nil
}

// DefaultSpec selects every option and the full date range.
func (b *Board) DefaultSpec(ctx context.Context) (filter.Spec, error) {
	opts, err := b.Options(ctx)
	if err != nil {
		return filter.Spec{}, err
	}
	var s filter.Spec
	for _, c := range opts.Filters {
		s = s.In(c.Column, c.Values...)
	}
	if opts.DateMin != nil {
		s = s.Between(opts.DateColumn, *opts.DateMin, *opts.DateMax)
	}
	return s, nil
}

// Selection is a filter request in widget terms. A column absent from
// Filters is unconstrained; a present but empty list matches nothing. A
// missing From or To leaves that end of the range open.
type Selection struct {
	Filters map[string][]string
	From    *time.Time
	To      *time.Time
}

var (
	openMin = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	openMax = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)

// BuildSpec converts sel into a filter.Spec and validates it against the
// board's schema. Board filter columns come first, in board order.
func (b *Board) BuildSpec(sel Selection) (filter.Spec, error) {
	var s filter.Spec
	seen := make(map[string]bool, len(sel.Filters))
	for _, col := range b.prof.filters {
		if vals, ok := sel.Filters[col]; ok {
			s = s.In(col, vals...)
			seen[col] = true
		}
	}
	extra := make([]string, 0, len(sel.Filters))
	for col := range sel.Filters {
		if !seen[col] {
			extra = append(extra, col)
		}
	}
	sort.Strings(extra)
	for _, col := range extra {
		s = s.In(col, sel.Filters[col]...)
	}

	if sel.From != nil || sel.To != nil {
		if b.prof.dateColumn == "" {
			return filter.Spec{}, fmt.Errorf("date range: %w", &dataset.ColumnError{Column: "date", Err: dataset.ErrUnknownColumn})
		}
		from, to := openMin, openMax
		if sel.From != nil {
			from = *sel.From
		}
		if sel.To != nil {
			to = *sel.To
		}
		s = s.Between(b.prof.dateColumn, from, to)
	}
	if err := s.Validate(b.prof.schema); err != nil {
		return filter.Spec{}, err
	}
	return s, nil
}

// Apply loads the dataset and narrows it by spec.
func (b *Board) Apply(ctx context.Context, spec filter.Spec) (*dataset.View, error) {
	ds, err := b.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return filter.Apply(ds.View(), spec)
}

// Download is an encoded extract ready to be served or saved.
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
	DatasetID   string
}

// Export encodes the rows selected by spec in format f.
func (b *Board) Export(ctx context.Context, spec filter.Spec, f export.Format) (*Download, error) {
	v, err := b.Apply(ctx, spec)
	if err != nil {
		return nil, err
	}
	data, err := export.Encode(v, f)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", b.kind, err)
	}
	b.logger.Debug("extract encoded", slog.String("format", string(f)), slog.Int("rows", v.Len()), slog.Int("bytes", len(data)))
	return &Download{
		Filename:    b.Filename(f),
		ContentType: f.ContentType(),
		Data:        data,
		Rows:        v.Len(),
		DatasetID:   v.Dataset().ID.String(),
	}, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
