package domain

import (
	"context"
	"log/slog"
)

// PopulationEnricher fills Population from a population registry.
type PopulationEnricher struct {
	registry PopulationRegistry
	codes    CountryCodes
	pacer    Pacer
	policy   Policy
	logger   *slog.Logger
}

// NewPopulationEnricher creates a PopulationEnricher. A nil pacer disables pacing.
func NewPopulationEnricher(registry PopulationRegistry, codes CountryCodes, pacer Pacer, policy Policy, logger *slog.Logger) *PopulationEnricher {
	return &PopulationEnricher{
		registry: registry,
		codes:    codes,
		pacer:    pacer,
		policy:   policy,
		logger:   logger,
	}
}

// Field returns the column this enricher fills.
func (e *PopulationEnricher) Field() string { return ColumnPopulation }

// Enrich looks up the population of c. On any failure or empty response the
// city is returned unchanged.
func (e *PopulationEnricher) Enrich(ctx context.Context, c City) (City, Outcome) {
	out := newOutcome(c, ColumnPopulation)

	if e.policy == PolicyFillMissing && c.Population != nil {
		return c, out.skipped(SkipHasValue)
	}

	code, ok := e.codes.Lookup(c.Country)
	if !ok {
		e.logger.Debug("no country code, skipping", "city", c.Name, "country", c.Country)
		return c, out.skipped(SkipNoCountryCode)
	}

	if err := wait(ctx, e.pacer); err != nil {
		return c, out.failed(err)
	}

	population, err := e.registry.LookupPopulation(ctx, c.Name, code)
	if err != nil {
		e.logger.Warn("population lookup failed",
			"city", c.Name,
			"country", c.Country,
			"country_code", code,
			"error", err,
		)
		return c, out.failed(err)
	}
	if population == nil {
		e.logger.Info("population not found", "city", c.Name, "country_code", code)
		return c, out.skipped(SkipNotFound)
	}

	if c.Population != nil && *c.Population == *population {
		out.Status = StatusUnchanged
		return c, out
	}
	c.Population = Int64(*population)
	out.Status = StatusUpdated
	return c, out
}

// TemperatureEnricher fills Average_Temp_C from a geocoder and a climate archive.
type TemperatureEnricher struct {
	geocoder Geocoder
	archive  ClimateArchive
	pacer    Pacer
	policy   Policy
	year     int
	logger   *slog.Logger
}

// NewTemperatureEnricher creates a TemperatureEnricher. A year of 0 averages
// the calendar year before the current one.
func NewTemperatureEnricher(geocoder Geocoder, archive ClimateArchive, pacer Pacer, policy Policy, year int, logger *slog.Logger) *TemperatureEnricher {
	return &TemperatureEnricher{
		geocoder: geocoder,
		archive:  archive,
		pacer:    pacer,
		policy:   policy,
		year:     year,
		logger:   logger,
	}
}

// Field returns the column this enricher fills.
func (e *TemperatureEnricher) Field() string { return ColumnAverageTemp }

// Window returns the climate window averaged by this enricher.
func (e *TemperatureEnricher) Window() ClimateWindow {
	if e.year > 0 {
		return ClimateWindowFor(e.year)
	}
	return ClimateYear(clock.Now())
}

// Enrich geocodes c and averages its daily mean temperatures over the climate
// window. On any failure or empty response the city is returned unchanged.
func (e *TemperatureEnricher) Enrich(ctx context.Context, c City) (City, Outcome) {
	out := newOutcome(c, ColumnAverageTemp)

	if e.policy == PolicyFillMissing && c.AverageTempC != nil {
		return c, out.skipped(SkipHasValue)
	}

	if err := wait(ctx, e.pacer); err != nil {
		return c, out.failed(err)
	}

	geo, err := e.geocoder.ForwardGeocode(ctx, c.Name, c.Country)
	if err != nil {
		e.logger.Warn("geocoding failed", "city", c.Name, "country", c.Country, "error", err)
		return c, out.failed(err)
	}
	if !geo.Found {
		e.logger.Warn("city not found by geocoder, skipping", "city", c.Name, "country", c.Country)
		return c, out.skipped(SkipNotFound)
	}

	window := e.Window()
	series, err := e.archive.DailyMeanTemperatures(ctx, geo.Lat, geo.Lon, window.Start, window.End)
	if err != nil {
		e.logger.Warn("climate archive lookup failed",
			"city", c.Name,
			"lat", geo.Lat,
			"lon", geo.Lon,
			"year", window.Year,
			"error", err,
		)
		return c, out.failed(err)
	}

	mean, ok := MeanTemperature(series)
	if !ok {
		e.logger.Info("no temperature data", "city", c.Name, "year", window.Year)
		return c, out.skipped(SkipNoData)
	}

	if c.AverageTempC != nil && *c.AverageTempC == mean {
		out.Status = StatusUnchanged
		return c, out
	}
	c.AverageTempC = Int(mean)
	out.Status = StatusUpdated
	return c, out
}

func wait(ctx context.Context, p Pacer) error {
	if p == nil {
		return ctx.Err()
	}
	return p.Wait(ctx)
}
