package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hussaintmg/Population-Weather-App/internal/dashboard"
	"github.com/hussaintmg/Population-Weather-App/internal/dataset"
)

const populationCSV = "DISTRICT,PROVINCE,ALL SEXES (RURAL),ALL SEXES (URBAN)\n" +
	"A,Punjab,100,50\n" +
	"B,Sindh,0,0\n" +
	"C,Punjab,30,31\n"

func weatherCSV() string {
	header := append([]string{"city", "country", "datetime", "timestamp_utc", "timestamp_local"}, dataset.WeatherNumericColumns()...)
	lines := []string{strings.Join(header, ",")}
	for i, r := range [][]string{
		{"Lahore", "2020-01-01:05"},
		{"Karachi", "2020-01-02:06"},
		{"Lahore", "2020-01-03:05"},
	} {
		cells := []string{r[0], "Pakistan", r[1], "", ""}
		for j := range dataset.WeatherNumericColumns() {
			cells = append(cells, []string{"1", "3", "8"}[(i+j)%3])
		}
		lines = append(lines, strings.Join(cells, ","))
	}
	return strings.Join(lines, "\n") + "\n"
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestServer(t *testing.T) (http.Handler, string) {
	t.Helper()
	dir := t.TempDir()
	popPath := filepath.Join(dir, "pop.csv")
	require.NoError(t, os.WriteFile(popPath, []byte(populationCSV), 0o644))
	weatherPath := filepath.Join(dir, "weather.csv")
	require.NoError(t, os.WriteFile(weatherPath, []byte(weatherCSV()), 0o644))

	cache := dataset.NewCache(dataset.WithLogger(quietLogger()))
	pop, err := dashboard.NewPopulation(popPath, cache, dashboard.WithLogger(quietLogger()))
	require.NoError(t, err)
	weather, err := dashboard.NewWeather(weatherPath, cache, dashboard.WithLogger(quietLogger()))
	require.NoError(t, err)
	return New([]*dashboard.Board{pop, weather}, WithLogger(quietLogger())).Routes(), popPath
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h, _ := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"population"`)
}

func TestOptionsEndpoint(t *testing.T) {
	h, _ := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/population/options", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Dataset-ID"))

	var opts dashboard.Options
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opts))
	assert.Equal(t, dashboard.Population, opts.Kind)
	require.Len(t, opts.Filters, 2)
	assert.Equal(t, []string{"A", "B", "C"}, opts.Filters[0].Values)

	rec = do(t, h, http.MethodGet, "/api/weather/options", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opts))
	require.NotNil(t, opts.DateMin)
	assert.Equal(t, "2020-01-01", opts.DateMin.Format("2006-01-02"))
}

func TestDashboardEndpoint(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/population/dashboard", `{"filters":{"DISTRICT":["A","B"]},"top_n":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res dashboard.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	total, ok := res.Metric(dashboard.LabelTotalPopulation)
	require.True(t, ok)
	assert.Equal(t, 150.0, total)
	require.Len(t, res.Top, 1)
	assert.Equal(t, "A", res.Top[0].Key)

	rec = do(t, h, http.MethodPost, "/api/population/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 3, res.RowCount)

	rec = do(t, h, http.MethodPost, "/api/population/dashboard", `{"filters":{"PROVINCE":[]}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res = dashboard.Result{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Empty)

	rec = do(t, h, http.MethodPost, "/api/weather/dashboard", `{"filters":{"city":["Lahore"]},"date_from":"2020-01-01","date_to":"2020-01-02"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res = dashboard.Result{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.RowCount)
	require.NotNil(t, res.Correlation)
	assert.Len(t, res.Correlation.Columns, len(dashboard.CorrelationColumns))
}

func TestDashboardErrors(t *testing.T) {
	h, _ := newTestServer(t)
	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown board", "/api/traffic/dashboard", `{}`, http.StatusNotFound, "UNKNOWN_BOARD"},
		{"bad json", "/api/population/dashboard", `{"filters":`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"bad date", "/api/weather/dashboard", `{"date_from":"01/02/2020"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"negative top", "/api/population/dashboard", `{"top_n":-1}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown column", "/api/population/dashboard", `{"filters":{"REGION":["x"]}}`, http.StatusBadRequest, "UNKNOWN_COLUMN"},
		{"numeric column", "/api/population/dashboard", `{"filters":{"ALL SEXES (RURAL)":["1"]}}`, http.StatusBadRequest, "COLUMN_TYPE"},
		{"date on population", "/api/population/dashboard", `{"date_from":"2020-01-01"}`, http.StatusBadRequest, "UNKNOWN_COLUMN"},
		{"bad format", "/api/population/export?format=pdf", `{}`, http.StatusBadRequest, "INVALID_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			var body ErrResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestSourceUnavailable(t *testing.T) {
	cache := dataset.NewCache(dataset.WithLogger(quietLogger()))
	pop, err := dashboard.NewPopulation(filepath.Join(t.TempDir(), "missing.csv"), cache)
	require.NoError(t, err)
	h := New([]*dashboard.Board{pop}, WithLogger(quietLogger())).Routes()

	rec := do(t, h, http.MethodGet, "/api/population/options", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "SOURCE_UNAVAILABLE")

	rec = do(t, h, http.MethodGet, "/api/weather/options", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportEndpoint(t *testing.T) {
	h, _ := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/api/population/export?format=csv", `{"filters":{"PROVINCE":["Punjab"]}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "filtered_population.csv")
	assert.Equal(t, "DISTRICT,PROVINCE,ALL SEXES (RURAL),ALL SEXES (URBAN),TOTAL_POPULATION\n"+
		"A,Punjab,100,50,150\n"+
		"C,Punjab,30,31,61\n", rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/weather/export?format=xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "filtered_weather.xlsx")
	ds, err := dataset.Load("w.xlsx", bytes.NewReader(rec.Body.Bytes()), dataset.WeatherSchema(), dataset.LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())
}

func TestInvalidateEndpoint(t *testing.T) {
	h, popPath := newTestServer(t)
	first := do(t, h, http.MethodGet, "/api/population/options", "").Header().Get("X-Dataset-ID")

	require.NoError(t, os.WriteFile(popPath, []byte(populationCSV+"D,KPK,1,1\n"), 0o644))
	assert.Equal(t, first, do(t, h, http.MethodGet, "/api/population/options", "").Header().Get("X-Dataset-ID"))

	rec := do(t, h, http.MethodPost, "/api/population/invalidate", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/population/options", "")
	assert.NotEqual(t, first, rec.Header().Get("X-Dataset-ID"))
	assert.Contains(t, rec.Body.String(), `"D"`)
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestServer(t)
	do(t, h, http.MethodGet, "/api/population/options", "")
	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dashboard_http_requests_total")
	assert.Contains(t, rec.Body.String(), "dashboard_dataset_cache_misses_total")
}
