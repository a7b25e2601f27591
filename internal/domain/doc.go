// Package domain models the city statistics dataset and the rules used to
// refresh it.
//
// # Dataset
//
// The dataset is a single CSV file (data/cities.csv) with one row per city:
//
//	City,Country,Population,Area_km2,PopulationDensity,Average_Temp_C
//
// City is the identity key within a country. Country is a free-form name in
// whatever script the row was entered with ("Deutschland", "مصر", "USA"); it
// is only normalised to an ISO 3166-1 alpha-2 code when talking to the
// population registry. Every numeric column may be empty, which the domain
// represents as a nil pointer.
//
// # Derived Fields
//
// PopulationDensity is never fetched. It is recomputed from Population and
// Area_km2 after every enrichment pass:
//
//	density = round(Population / Area_km2, 2)   when both present and area > 0
//	density = absent                            otherwise
//
// Average_Temp_C is the arithmetic mean of the daily mean temperature series
// for the previous calendar year, null days excluded, rounded to the nearest
// integer (half away from zero). See [MeanTemperature] and [ClimateYear].
//
// # Enrichment
//
// Enrichers fill one column per record from an external source. They never
// return errors: each call yields an [Outcome] describing whether the record
// was updated, skipped (and why) or failed. A failed or empty lookup leaves
// the field exactly as it was.
//
// Refresh policy decides whether records that already carry a value are
// looked up again. The population job defaults to [PolicyFillMissing] and the
// temperature job to [PolicyAlways], matching how the two jobs have been run
// historically (population monthly to backfill gaps, temperature yearly to
// roll the climate window forward).
package domain
