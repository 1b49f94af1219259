package filter

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hussaintmg/Population-Weather-App/internal/dataset"
)

const popCSV = "DISTRICT,PROVINCE,ALL SEXES (RURAL),ALL SEXES (URBAN)\n" +
	"A,Punjab,100,50\n" +
	"B,Sindh,0,0\n" +
	"C,Punjab,10,20\n" +
	"D,KPK,5,5\n"

func loadPop(t *testing.T, src string) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Load("pop.csv", strings.NewReader(src), dataset.PopulationSchema(), dataset.LoadOptions{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return ds
}

func loadWeather(t *testing.T, datetimes ...string) *dataset.Dataset {
	t.Helper()
	header := append([]string{"city", "country", "datetime", "timestamp_utc", "timestamp_local"}, dataset.WeatherNumericColumns()...)
	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	b.WriteString("\n")
	for i, dt := range datetimes {
		city := "Lahore"
		if i%2 == 1 {
			city = "Karachi"
		}
		cells := []string{city, "Pakistan", dt, "", ""}
		for range dataset.WeatherNumericColumns() {
			cells = append(cells, "1")
		}
		b.WriteString(strings.Join(cells, ","))
		b.WriteString("\n")
	}
	ds, err := dataset.Load("weather.csv", strings.NewReader(b.String()), dataset.WeatherSchema(), dataset.LoadOptions{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return ds
}

func districts(t *testing.T, v *dataset.View) []string {
	t.Helper()
	col, err := v.Dataset().Strings(dataset.ColDistrict)
	if err != nil {
		t.Fatalf("strings: %v", err)
	}
	out := make([]string, v.Len())
	for i := range out {
		out[i] = col.At(v.Row(i))
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestApplySingleDistrict(t *testing.T) {
	ds := loadPop(t, popCSV)
	v, err := Apply(ds.View(), Spec{}.In(dataset.ColDistrict, "A"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if v.Len() != 1 {
		t.Fatalf("len = %d, want 1", v.Len())
	}
	total, _ := ds.Numbers(dataset.ColTotalPopulation)
	if got := total.At(v.Row(0)); got != 150 {
		t.Fatalf("TOTAL_POPULATION = %v, want 150", got)
	}
}

func TestApplyMembershipsCombineWithAnd(t *testing.T) {
	ds := loadPop(t, popCSV)
	spec := Spec{}.
		In(dataset.ColProvince, "Punjab", "KPK").
		In(dataset.ColDistrict, "C", "D", "B")
	v, err := Apply(ds.View(), spec)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := districts(t, v); !equal(got, []string{"C", "D"}) {
		t.Fatalf("districts = %v, want [C D]", got)
	}
}

func TestApplySubsetAndIdempotence(t *testing.T) {
	ds := loadPop(t, popCSV)
	specs := []Spec{
		{},
		Spec{}.In(dataset.ColProvince, "Punjab"),
		Spec{}.In(dataset.ColDistrict, "D", "A"),
		Spec{}.In(dataset.ColProvince, "Nowhere"),
	}
	for i, s := range specs {
		once, err := Apply(ds.View(), s)
		if err != nil {
			t.Fatalf("spec %d: %v", i, err)
		}
		twice, err := Apply(once, s)
		if err != nil {
			t.Fatalf("spec %d twice: %v", i, err)
		}
		if !equalInts(once.Rows(), twice.Rows()) {
			t.Fatalf("spec %d not idempotent: %v vs %v", i, once.Rows(), twice.Rows())
		}
		prov, _ := ds.Strings(dataset.ColProvince)
		dist, _ := ds.Strings(dataset.ColDistrict)
		prev := -1
		for _, r := range once.Rows() {
			if r <= prev || r >= ds.Len() {
				t.Fatalf("spec %d: rows not an ordered subset: %v", i, once.Rows())
			}
			prev = r
			for _, m := range s.Memberships {
				val := dist.At(r)
				if m.Column == dataset.ColProvince {
					val = prov.At(r)
				}
				if !contains(m.Allowed, val) {
					t.Fatalf("spec %d: row %d violates %s", i, r, m.Column)
				}
			}
		}
	}
}

func TestApplyEmptyAllowedSetMatchesNothing(t *testing.T) {
	ds := loadPop(t, popCSV)
	v, err := Apply(ds.View(), Spec{}.In(dataset.ColDistrict))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if v.Len() != 0 {
		t.Fatalf("len = %d, want 0", v.Len())
	}
	v, err = Apply(ds.View(), Spec{Memberships: []Membership{{Column: dataset.ColProvince}}}.In(dataset.ColDistrict, "A"))
	if err != nil || v.Len() != 0 {
		t.Fatalf("nil allowed set: len=%d err=%v", v.Len(), err)
	}
}

func TestApplyEmptyBase(t *testing.T) {
	ds := loadPop(t, "DISTRICT,PROVINCE,ALL SEXES (RURAL),ALL SEXES (URBAN)\n")
	v, err := Apply(ds.View(), Spec{}.In(dataset.ColDistrict, "A"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if v.Len() != 0 {
		t.Fatalf("len = %d, want 0", v.Len())
	}
}

func TestApplyDateRangeInclusiveByDate(t *testing.T) {
	ds := loadWeather(t,
		"2020-01-01:00",
		"2020-01-01:23",
		"2020-01-02:12",
		"2020-01-03:00",
		"2020-01-04:05",
	)
	from := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC)
	v, err := Apply(ds.View(), Spec{}.Between(dataset.ColDatetime, from, to))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := v.Rows(); !equalInts(got, []int{0, 1, 2, 3}) {
		t.Fatalf("rows = %v, want [0 1 2 3]", got)
	}

	// Times inside the bounds are ignored: only the date matters.
	v, err = Apply(ds.View(), Spec{}.Between(dataset.ColDatetime, to.Add(20*time.Hour), to.Add(time.Hour)))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := v.Rows(); !equalInts(got, []int{3}) {
		t.Fatalf("rows = %v, want [3]", got)
	}
}

func TestApplyInvertedRangeIsEmpty(t *testing.T) {
	ds := loadWeather(t, "2020-01-01:00", "2020-01-02:00")
	from := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	v, err := Apply(ds.View(), Spec{}.Between(dataset.ColDatetime, from, from.AddDate(0, 0, -1)))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if v.Len() != 0 {
		t.Fatalf("len = %d, want 0", v.Len())
	}
}

func TestApplyRangeSkipsNullTimestamps(t *testing.T) {
	ds := loadWeather(t, "2020-01-01:00")
	day := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	v, err := Apply(ds.View(), Spec{}.Between(dataset.ColTimestampUTC, day, day))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if v.Len() != 0 {
		t.Fatalf("null timestamp passed the range")
	}
}

func TestApplyRejectsIntegrationErrors(t *testing.T) {
	pop := loadPop(t, popCSV)
	weather := loadWeather(t, "2020-01-01:00")
	day := time.Now()
	tests := []struct {
		name string
		view *dataset.View
		spec Spec
		want error
	}{
		{"unknown membership column", pop.View(), Spec{}.In("REGION", "x"), dataset.ErrUnknownColumn},
		{"numeric membership column", pop.View(), Spec{}.In(dataset.ColRural, "1"), dataset.ErrColumnType},
		{"range on population", pop.View(), Spec{}.Between(dataset.ColDatetime, day, day), dataset.ErrUnknownColumn},
		{"range on categorical", weather.View(), Spec{}.Between(dataset.ColCity, day, day), dataset.ErrColumnType},
		{"nil view", nil, Spec{}, ErrNilView},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(tt.view, tt.spec)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSpecBuildersDoNotAlias(t *testing.T) {
	base := Spec{}.In(dataset.ColDistrict, "A")
	a := base.In(dataset.ColProvince, "Punjab")
	b := base.In(dataset.ColProvince, "Sindh")
	if len(base.Memberships) != 1 {
		t.Fatalf("base mutated: %+v", base)
	}
	if a.Memberships[1].Allowed[0] != "Punjab" || b.Memberships[1].Allowed[0] != "Sindh" {
		t.Fatalf("builders alias: %+v %+v", a, b)
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
