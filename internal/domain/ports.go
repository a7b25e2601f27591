package domain

import (
	"context"
	"time"
)

// GeocodingResult contains the coordinates of the first match returned by a
// geocoding provider. Found is false when the provider had no match.
type GeocodingResult struct {
	Lat   float64
	Lon   float64
	Name  string
	Found bool
}

// Geocoder resolves a city to coordinates.
type Geocoder interface {
	// ForwardGeocode looks up the first match for city in country. An empty
	// result set is not an error.
	ForwardGeocode(ctx context.Context, city, country string) (GeocodingResult, error)
}

// ClimateArchive serves historical daily weather.
type ClimateArchive interface {
	// DailyMeanTemperatures returns the daily mean temperature series between
	// start and end (inclusive) at the coordinate. Nil entries are days
	// without data; a nil slice means the archive returned no series.
	DailyMeanTemperatures(ctx context.Context, lat, lon float64, start, end time.Time) ([]*float64, error)
}

// PopulationRegistry looks up city populations.
type PopulationRegistry interface {
	// LookupPopulation returns the population of the first city whose name
	// starts with namePrefix in the given ISO alpha-2 country, or nil when
	// there is no match or the match carries no population.
	LookupPopulation(ctx context.Context, namePrefix, countryCode string) (*int64, error)
}

// CountryCodes maps country names to ISO 3166-1 alpha-2 codes.
type CountryCodes interface {
	Lookup(country string) (string, bool)
}

// Pacer spaces out calls to rate-limited third-party services.
type Pacer interface {
	// Wait blocks until the next external call may start.
	Wait(ctx context.Context) error
}
