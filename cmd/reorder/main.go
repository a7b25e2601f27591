// Command reorder sorts the dataset by country, keeping the existing order of
// cities within each country, and rewrites it with the canonical columns.
//
// Usage:
//
//	go run ./cmd/reorder -in data/cities.csv
//	go run ./cmd/reorder -in data/cities.csv -out data/sorted.csv
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/couchcryptid/city-stats-service/internal/dataset"
	"github.com/couchcryptid/city-stats-service/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	in := flag.String("in", "data/cities.csv", "dataset to sort")
	out := flag.String("out", "", "output path (default: overwrite -in)")
	flag.Parse()

	if *out == "" {
		*out = *in
	}

	ds, err := dataset.Load(*in)
	if err != nil {
		return err
	}

	dataset.SortByCountry(ds.Cities)
	domain.RecomputeDensity(ds.Cities)

	if err := dataset.Save(*out, ds.Cities); err != nil {
		return err
	}
	fmt.Printf("Wrote %d cities sorted by country to %s\n", len(ds.Cities), *out)
	return nil
}
