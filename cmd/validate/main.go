// Command validate checks the integrity of the city dataset: that it parses
// with the expected columns, that City+Country pairs are unique, that stored
// densities agree with population and area, and that every country maps to an
// ISO code for population lookups.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -dataset data/cities.csv \
//	  -country-codes data/all.csv
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/couchcryptid/city-stats-service/internal/countrycode"
	"github.com/couchcryptid/city-stats-service/internal/dataset"
	"github.com/couchcryptid/city-stats-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	datasetPath := flag.String("dataset", "data/cities.csv", "dataset CSV to check")
	codesPath := flag.String("country-codes", "", "ISO 3166 reference CSV (skips the country phase when empty)")
	overridesPath := flag.String("country-overrides", "", "optional YAML file of extra country name mappings")
	flag.Parse()

	os.Exit(run(*datasetPath, *codesPath, *overridesPath))
}

func run(datasetPath, codesPath, overridesPath string) int {
	fmt.Println("=== City Dataset Integrity Validation ===")
	fmt.Println()

	ds, err := dataset.Load(datasetPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load dataset: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateRows(ds.Cities),
		validateCompleteness(ds.Cities),
	}
	if codesPath != "" {
		codes, err := countrycode.Load(codesPath, overridesPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load country codes: %v\n", err)
			return 1
		}
		phases = append(phases, validateCountries(ds.Cities, codes))
	}

	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d)", len(p.errors))
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d\n", len(ds.Cities))

	allPassed := true
	for _, p := range phases {
		if p.passed() {
			continue
		}
		allPassed = false
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validateRows(cities []domain.City) *phase {
	p := &phase{name: "Phase 1: Row Integrity"}
	for _, problem := range dataset.Validate(cities) {
		p.errorf("%s", problem)
	}
	return p
}

// validateCompleteness flags values that cannot be right for a city.
func validateCompleteness(cities []domain.City) *phase {
	p := &phase{name: "Phase 2: Value Ranges"}
	for i, c := range cities {
		if c.Population != nil && *c.Population < 0 {
			p.errorf("row %d (%s): negative Population %d", i+1, c.Name, *c.Population)
		}
		if c.AreaKm2 != nil && *c.AreaKm2 <= 0 {
			p.errorf("row %d (%s): non-positive Area_km2 %g", i+1, c.Name, *c.AreaKm2)
		}
		if c.AverageTempC != nil && (*c.AverageTempC < -60 || *c.AverageTempC > 60) {
			p.errorf("row %d (%s): implausible Average_Temp_C %d", i+1, c.Name, *c.AverageTempC)
		}
	}
	return p
}

func validateCountries(cities []domain.City, codes domain.CountryCodes) *phase {
	p := &phase{name: "Phase 3: Country Codes"}
	missing := make(map[string]int)
	for _, c := range cities {
		if _, ok := codes.Lookup(c.Country); !ok {
			missing[c.Country]++
		}
	}

	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p.errorf("no ISO code for %q (%d cities)", name, missing[name])
	}
	return p
}
