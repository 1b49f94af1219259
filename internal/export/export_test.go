package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hussaintmg/Population-Weather-App/internal/dataset"
	"github.com/hussaintmg/Population-Weather-App/internal/filter"
)

const popCSV = "DISTRICT,PROVINCE,ALL SEXES (RURAL),ALL SEXES (URBAN)\n" +
	"A,Punjab,100,50.5\n" +
	"\"B, North\",Sindh,0,0\n" +
	"C,Punjab,7,3\n"

func load(t *testing.T, sourceID, src string, schema dataset.Schema) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Load(sourceID, strings.NewReader(src), schema, dataset.LoadOptions{})
	if err != nil {
		t.Fatalf("load %s: %v", sourceID, err)
	}
	return ds
}

func weatherCSV() string {
	header := append([]string{"city", "country", "datetime", "timestamp_utc", "timestamp_local"}, dataset.WeatherNumericColumns()...)
	rows := []string{strings.Join(header, ",")}
	for i, dt := range []string{"2020-01-01:05", "2020-01-02:23"} {
		cells := []string{"Lahore", "Pakistan", dt, "2020-01-01T00:00:00", ""}
		for j := range dataset.WeatherNumericColumns() {
			cells = append(cells, []string{"1.25", "-3", "0"}[(i+j)%3])
		}
		rows = append(rows, strings.Join(cells, ","))
	}
	return strings.Join(rows, "\n") + "\n"
}

func TestCSVHeaderAndRows(t *testing.T) {
	ds := load(t, "pop.csv", popCSV, dataset.PopulationSchema())
	v, err := filter.Apply(ds.View(), filter.Spec{}.In(dataset.ColProvince, "Punjab"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	out, err := CSV(v)
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	want := "DISTRICT,PROVINCE,ALL SEXES (RURAL),ALL SEXES (URBAN),TOTAL_POPULATION\n" +
		"A,Punjab,100,50.5,150.5\n" +
		"C,Punjab,7,3,10\n"
	if string(out) != want {
		t.Fatalf("CSV =\n%s\nwant\n%s", out, want)
	}
}

func TestCSVEmptyViewWritesHeader(t *testing.T) {
	ds := load(t, "pop.csv", popCSV, dataset.PopulationSchema())
	v, _ := filter.Apply(ds.View(), filter.Spec{}.In(dataset.ColDistrict))
	out, err := CSV(v)
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	if string(out) != "DISTRICT,PROVINCE,ALL SEXES (RURAL),ALL SEXES (URBAN),TOTAL_POPULATION\n" {
		t.Fatalf("CSV = %q", out)
	}
}

func TestCSVIsDeterministic(t *testing.T) {
	ds := load(t, "pop.csv", popCSV, dataset.PopulationSchema())
	a, _ := CSV(ds.View())
	b, _ := CSV(ds.View())
	if !bytes.Equal(a, b) {
		t.Fatalf("CSV output differs between calls")
	}
}

func TestCSVRoundTripPopulation(t *testing.T) {
	ds := load(t, "pop.csv", popCSV, dataset.PopulationSchema())
	out, err := CSV(ds.View())
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	back := load(t, "again.csv", string(out), dataset.PopulationSchema())
	if back.Len() != ds.Len() {
		t.Fatalf("rows = %d, want %d", back.Len(), ds.Len())
	}
	if len(back.Stats.IgnoredColumns) != 0 {
		t.Fatalf("derived column should be recognized, ignored = %v", back.Stats.IgnoredColumns)
	}
	assertSameValues(t, ds, back)
}

func TestCSVRoundTripWeather(t *testing.T) {
	ds := load(t, "w.csv", weatherCSV(), dataset.WeatherSchema())
	out, err := CSV(ds.View())
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	if !strings.Contains(string(out), ",2020-01-01:05,2020-01-01 00:00:00,") {
		t.Fatalf("timestamps not in export layout:\n%s", out)
	}
	back := load(t, "w2.csv", string(out), dataset.WeatherSchema())
	if back.Stats.DroppedRows != 0 || back.Len() != ds.Len() {
		t.Fatalf("reload stats = %+v", back.Stats)
	}
	assertSameValues(t, ds, back)
}

func TestXLSXRoundTrip(t *testing.T) {
	ds := load(t, "pop.csv", popCSV, dataset.PopulationSchema())
	out, err := XLSX(ds.View())
	if err != nil {
		t.Fatalf("XLSX: %v", err)
	}
	back, err := dataset.Load("pop.xlsx", bytes.NewReader(out), dataset.PopulationSchema(), dataset.LoadOptions{})
	if err != nil {
		t.Fatalf("reload xlsx: %v", err)
	}
	if back.Len() != ds.Len() {
		t.Fatalf("rows = %d, want %d", back.Len(), ds.Len())
	}
	assertSameValues(t, ds, back)
}

func TestEncodeAndFormats(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want Format
		ok   bool
	}{
		{"", FormatCSV, true},
		{"CSV", FormatCSV, true},
		{"xlsx", FormatXLSX, true},
		{"pdf", "", false},
	} {
		got, err := ParseFormat(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Fatalf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
	if f, _ := FormatFromPath("out/filtered.XLSX"); f != FormatXLSX {
		t.Fatalf("FormatFromPath = %q", f)
	}
	if !strings.HasPrefix(FormatCSV.ContentType(), "text/csv") {
		t.Fatalf("csv content type = %q", FormatCSV.ContentType())
	}
	ds := load(t, "pop.csv", popCSV, dataset.PopulationSchema())
	if _, err := Encode(ds.View(), Format("pdf")); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "filtered_population.csv")
	if err := WriteFile(path, []byte("x\n")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "x\n" {
		t.Fatalf("read back %q, %v", b, err)
	}
}

func assertSameValues(t *testing.T, a, b *dataset.Dataset) {
	t.Helper()
	for _, c := range a.Schema().Columns() {
		for row := 0; row < a.Len(); row++ {
			switch c.Type {
			case dataset.Categorical:
				x, _ := a.Strings(c.Name)
				y, _ := b.Strings(c.Name)
				if x.At(row) != y.At(row) {
					t.Fatalf("%s[%d] = %q, want %q", c.Name, row, y.At(row), x.At(row))
				}
			case dataset.Numeric:
				x, _ := a.Numbers(c.Name)
				y, _ := b.Numbers(c.Name)
				if x.At(row) != y.At(row) {
					t.Fatalf("%s[%d] = %v, want %v", c.Name, row, y.At(row), x.At(row))
				}
			case dataset.Timestamp:
				x, _ := a.Times(c.Name)
				y, _ := b.Times(c.Name)
				xt, xok := x.At(row)
				yt, yok := y.At(row)
				if xok != yok || !xt.Equal(yt) {
					t.Fatalf("%s[%d] = %v/%v, want %v/%v", c.Name, row, yt, yok, xt, xok)
				}
			}
		}
	}
}
