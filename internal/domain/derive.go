package domain

import (
	"math"
	"strconv"
	"time"
)

// RecomputeDensity sets PopulationDensity on every city from its current
// Population and AreaKm2. Density is cleared when either input is absent or
// the area is not positive. It mutates the slice in place and is idempotent.
func RecomputeDensity(cities []City) {
	for i := range cities {
		cities[i].PopulationDensity = density(cities[i].Population, cities[i].AreaKm2)
	}
}

func density(population *int64, area *float64) *float64 {
	if population == nil || area == nil || *area <= 0 {
		return nil
	}
	return Float64(roundTo(float64(*population) / *area, 2))
}

// DensityConsistent reports whether the stored density matches what
// RecomputeDensity would produce for the same inputs.
func DensityConsistent(c City) bool {
	want := density(c.Population, c.AreaKm2)
	switch {
	case want == nil && c.PopulationDensity == nil:
		return true
	case want == nil || c.PopulationDensity == nil:
		return false
	default:
		return math.Abs(*want-*c.PopulationDensity) < 0.005
	}
}

// MeanTemperature averages the non-null values of a daily series and rounds
// to the nearest integer, ties to even. It returns false when no value is
// present.
func MeanTemperature(series []*float64) (int, bool) {
	var (
		sum float64
		n   int
	)
	for _, v := range series {
		if v == nil {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return int(math.RoundToEven(sum / float64(n))), true
}

// ClimateWindow is the inclusive date range averaged for Average_Temp_C.
type ClimateWindow struct {
	Year  int
	Start time.Time
	End   time.Time
}

// ClimateYear returns the previous calendar year relative to now.
func ClimateYear(now time.Time) ClimateWindow {
	return ClimateWindowFor(now.Year() - 1)
}

// ClimateWindowFor returns the full calendar year window for year.
func ClimateWindowFor(year int) ClimateWindow {
	return ClimateWindow{
		Year:  year,
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
}

// roundTo rounds v to the given number of decimal places. Ties of the exact
// binary value go to the even digit.
func roundTo(v float64, places int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}
