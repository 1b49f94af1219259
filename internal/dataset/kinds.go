package dataset

import "slices"

// Population dataset columns.
const (
	ColDistrict        = "DISTRICT"
	ColProvince        = "PROVINCE"
	ColRural           = "ALL SEXES (RURAL)"
	ColUrban           = "ALL SEXES (URBAN)"
	ColTotalPopulation = "TOTAL_POPULATION"
)

// Weather dataset columns that the dashboards refer to by name.
const (
	ColCity           = "city"
	ColCountry        = "country"
	ColDatetime       = "datetime"
	ColTimestampUTC   = "timestamp_utc"
	ColTimestampLocal = "timestamp_local"
	ColTemp           = "temp"
	ColHumidity       = "rh"
	ColPrecip         = "precip"
	ColWindSpeed      = "wind_spd"
	ColSolarRad       = "solar_rad"
)

var weatherNumeric = []string{
	"solar_rad", "slp", "ts", "dewpt", "uv", "wind_gust_spd", "ghi", "dhi", "precip",
	"pop", "ozone", "app_temp", "clouds_low", "clouds_mid", "snow_depth", "dni",
	"rh", "pres", "snow", "temp", "clouds", "vis", "clouds_hi", "wind_spd",
}

var (
	populationSchema = MustSchema("population",
		Column{Name: ColDistrict, Type: Categorical},
		Column{Name: ColProvince, Type: Categorical},
		Column{Name: ColRural, Type: Numeric},
		Column{Name: ColUrban, Type: Numeric},
		Column{Name: ColTotalPopulation, Type: Numeric, SumOf: []string{ColRural, ColUrban}},
	)
	weatherSchema = buildWeatherSchema()
)

func buildWeatherSchema() Schema {
	cols := []Column{
		{Name: ColCity, Type: Categorical},
		{Name: ColCountry, Type: Categorical},
		{Name: ColDatetime, Type: Timestamp, Primary: true},
		{Name: ColTimestampUTC, Type: Timestamp},
		{Name: ColTimestampLocal, Type: Timestamp},
	}
	for _, n := range weatherNumeric {
		cols = append(cols, Column{Name: n, Type: Numeric})
	}
	return MustSchema("weather", cols...)
}

// WeatherNumericColumns lists every numeric weather column in source order.
func WeatherNumericColumns() []string { return slices.Clone(weatherNumeric) }

// PopulationSchema returns the district population layout.
func PopulationSchema() Schema { return populationSchema }

// WeatherSchema returns the hourly weather observation layout.
func WeatherSchema() Schema { return weatherSchema }
