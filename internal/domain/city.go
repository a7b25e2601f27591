package domain

import "strings"

// Column names of the dataset file, in the order they are written.
const (
	ColumnCity              = "City"
	ColumnCountry           = "Country"
	ColumnPopulation        = "Population"
	ColumnArea              = "Area_km2"
	ColumnPopulationDensity = "PopulationDensity"
	ColumnAverageTemp       = "Average_Temp_C"
)

// Columns is the enforced column order of the dataset file.
var Columns = []string{
	ColumnCity,
	ColumnCountry,
	ColumnPopulation,
	ColumnArea,
	ColumnPopulationDensity,
	ColumnAverageTemp,
}

// City is one row of the dataset. Nil pointers are absent values.
type City struct {
	Name              string   `json:"city"`
	Country           string   `json:"country"`
	Population        *int64   `json:"population"`
	AreaKm2           *float64 `json:"area_km2"`
	PopulationDensity *float64 `json:"population_density"`
	AverageTempC      *int     `json:"average_temp_c"`
}

// Key identifies a city within the dataset.
func (c City) Key() string {
	return strings.ToLower(strings.TrimSpace(c.Name)) + "|" + strings.ToLower(strings.TrimSpace(c.Country))
}

// Dataset is the ordered table of cities, loaded and saved wholesale.
type Dataset struct {
	Cities []City
}

// Find returns the first city whose name matches case-insensitively.
func (d *Dataset) Find(name string) (City, bool) {
	name = strings.TrimSpace(name)
	for _, c := range d.Cities {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return City{}, false
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
