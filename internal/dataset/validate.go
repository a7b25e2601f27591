package dataset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/couchcryptid/city-stats-service/internal/domain"
)

// SortByCountry orders cities alphabetically by country, keeping the existing
// order of cities within a country.
func SortByCountry(cities []domain.City) {
	sort.SliceStable(cities, func(i, j int) bool {
		return cities[i].Country < cities[j].Country
	})
}

// Problem describes one integrity issue found by Validate.
type Problem struct {
	Row     int // 1-based data row, header excluded
	City    string
	Message string
}

func (p Problem) String() string {
	return fmt.Sprintf("row %d (%s): %s", p.Row, p.City, p.Message)
}

// Validate reports rows with an empty City, duplicate City+Country pairs and
// densities that disagree with their inputs.
func Validate(cities []domain.City) []Problem {
	var problems []Problem
	seen := make(map[string]int, len(cities))

	for i, c := range cities {
		row := i + 1
		if strings.TrimSpace(c.Name) == "" {
			problems = append(problems, Problem{Row: row, Message: "empty City"})
			continue
		}
		if first, ok := seen[c.Key()]; ok {
			problems = append(problems, Problem{Row: row, City: c.Name, Message: fmt.Sprintf("duplicate of row %d", first)})
		} else {
			seen[c.Key()] = row
		}
		if !domain.DensityConsistent(c) {
			problems = append(problems, Problem{Row: row, City: c.Name, Message: "PopulationDensity inconsistent with Population/Area_km2"})
		}
	}
	return problems
}
