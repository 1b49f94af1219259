package dataset

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LoadOptions controls source parsing.
type LoadOptions struct {
	// Delimiter for delimited text. If 0, chosen from the source extension.
	Delimiter rune
	// Thousands is stripped from numeric cells before parsing when non-zero.
	Thousands rune
	// Sheet selects the XLSX worksheet; empty means the first sheet.
	Sheet string
}

func (o LoadOptions) delimiter() rune {
	if o.Delimiter == 0 {
		return ','
	}
	return o.Delimiter
}

// PrimaryLayout is the only layout accepted for a primary timestamp, after
// the date/hour colon is normalized to a space.
const PrimaryLayout = "2006-01-02 15"

// timeLayouts are tried in order for other timestamps. Values without a zone
// are read as UTC.
var timeLayouts = []string{
	"2006-01-02 15",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Load reads a raw source into a Dataset conforming to schema. It is a
// pure function of its inputs: sourceID only picks the file format and is
// recorded on the result.
//
// Numeric cells that do not parse become 0. Rows whose primary timestamp
// is not a date and hour (PrimaryLayout) are dropped; other timestamps that do not parse become
// null. Derived columns are computed after coercion.
func Load(sourceID string, r io.Reader, schema Schema, opt LoadOptions) (*Dataset, error) {
	start := time.Now()
	if opt.Delimiter == 0 {
		opt.Delimiter = sniffDelimiter(sourceID)
	}
	rr, err := readerFor(sourceID).Open(r, opt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", sourceID, ErrSourceUnavailable, err)
	}
	defer rr.Close()

	header, err := rr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w: empty source, no header", sourceID, ErrSchemaMismatch)
		}
		return nil, fmt.Errorf("%s: read header: %w: %w", sourceID, ErrSourceUnavailable, err)
	}
	positions := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if _, dup := positions[h]; !dup {
			positions[h] = i
		}
	}

	cols := schema.Columns()
	src := make([]int, len(cols))
	var missing []string
	for i, c := range cols {
		src[i] = -1
		if c.Derived() {
			continue
		}
		p, ok := positions[c.Name]
		if !ok {
			missing = append(missing, c.Name)
			continue
		}
		src[i] = p
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: %w: missing columns %s", sourceID, ErrSchemaMismatch, strings.Join(missing, ", "))
	}

	ds := &Dataset{
		ID:       uuid.New(),
		SourceID: sourceID,
		schema:   schema,
		cols:     make([]column, len(cols)),
	}
	for name := range positions {
		if schema.Index(name) < 0 && name != "" {
			ds.Stats.IgnoredColumns = append(ds.Stats.IgnoredColumns, name)
		}
	}
	slices.Sort(ds.Stats.IgnoredColumns)

	primary := -1
	for i, c := range cols {
		if c.Primary {
			primary = i
		}
	}

	for {
		rec, err := rr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%s: read row %d: %w: %w", sourceID, ds.Stats.TotalRows+1, ErrSourceUnavailable, err)
		}
		ds.Stats.TotalRows++
		cell := func(i int) string {
			if src[i] < 0 || src[i] >= len(rec) {
				return ""
			}
			return rec[src[i]]
		}

		var primaryAt time.Time
		if primary >= 0 {
			t, ok := parsePrimary(cell(primary))
			if !ok {
				ds.Stats.DroppedRows++
				continue
			}
			primaryAt = t
		}

		for i, c := range cols {
			if c.Derived() {
				continue
			}
			col := &ds.cols[i]
			switch c.Type {
			case Categorical:
				col.strs = append(col.strs, strings.Clone(cell(i)))
			case Numeric:
				x, ok := parseNumber(cell(i), opt.Thousands)
				if !ok {
					ds.Stats.CoercedCells++
				}
				col.nums = append(col.nums, x)
			case Timestamp:
				t, ok := primaryAt, true
				if i != primary {
					t, ok = parseTimestamp(cell(i))
					if !ok {
						ds.Stats.NullTimestamps++
					}
				}
				col.times = append(col.times, t)
				col.valid = append(col.valid, ok)
			}
		}
		ds.n++
	}

	for i, c := range cols {
		if !c.Derived() {
			continue
		}
		out := make([]float64, ds.n)
		for _, name := range c.SumOf {
			vals := ds.cols[schema.Index(name)].nums
			for r := range out {
				out[r] += vals[r]
			}
		}
		ds.cols[i].nums = out
	}
	ds.ensureAllocated()

	ds.Stats.LoadedRows = ds.n
	ds.Stats.Duration = time.Since(start)
	return ds, nil
}

// ensureAllocated gives every column a non-nil slice so that accessors on
// an empty dataset behave like any other.
func (d *Dataset) ensureAllocated() {
	for i, c := range d.schema.cols {
		col := &d.cols[i]
		switch c.Type {
		case Categorical:
			if col.strs == nil {
				col.strs = []string{}
			}
		case Numeric:
			if col.nums == nil {
				col.nums = []float64{}
			}
		case Timestamp:
			if col.times == nil {
				col.times = []time.Time{}
				col.valid = []bool{}
			}
		}
	}
}

// parseNumber coerces a numeric cell. Empty, malformed and non-finite
// values yield (0, false).
func parseNumber(s string, thousands rune) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, false
	}
	if thousands != 0 {
		raw = strings.ReplaceAll(raw, string(thousands), "")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseTimestamp accepts the layouts in timeLayouts. A date and hour
// joined by a colon ("2020-01-01:05") is normalized to a space first.
func parseTimestamp(s string) (time.Time, bool) {
	s = normalizeHourSeparator(strings.TrimSpace(s))
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range timeLayouts {
		if t, err := time.ParseInLocation(l, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parsePrimary accepts only "YYYY-MM-DD:HH" or "YYYY-MM-DD HH".
func parsePrimary(s string) (time.Time, bool) {
	t, err := time.ParseInLocation(PrimaryLayout, normalizeHourSeparator(strings.TrimSpace(s)), time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func normalizeHourSeparator(s string) string {
	if len(s) > 11 && s[4] == '-' && s[7] == '-' && s[10] == ':' {
		return s[:10] + " " + s[11:]
	}
	return s
}

func sniffDelimiter(sourceID string) rune {
	if strings.HasSuffix(strings.ToLower(sourceID), ".tsv") {
		return '\t'
	}
	return ','
}

// logLoad reports one completed load.
func logLoad(logger *slog.Logger, ds *Dataset) {
	logger.Info("dataset loaded",
		slog.String("source", ds.SourceID),
		slog.String("schema", ds.schema.Name()),
		slog.String("dataset_id", ds.ID.String()),
		slog.Int("rows", ds.Stats.LoadedRows),
		slog.Int("dropped", ds.Stats.DroppedRows),
		slog.Int("coerced", ds.Stats.CoercedCells),
		slog.Duration("duration", ds.Stats.Duration))
	if ds.Stats.DroppedRows > 0 {
		logger.Warn("rows dropped for invalid primary timestamp",
			slog.String("source", ds.SourceID),
			slog.Int("dropped", ds.Stats.DroppedRows),
			slog.Int("total", ds.Stats.TotalRows))
	}
	if len(ds.Stats.IgnoredColumns) > 0 {
		logger.Debug("source columns not in schema",
			slog.String("source", ds.SourceID),
			slog.Any("columns", ds.Stats.IgnoredColumns))
	}
}
