// Package dataset reads and writes the cities CSV file.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/city-stats-service/internal/domain"
)

const bom = "\ufeff"

// Load reads the dataset at path.
func Load(path string) (*domain.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	cities, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return &domain.Dataset{Cities: cities}, nil
}

// Read parses dataset rows from r. Columns are matched by header name, so
// their order does not matter; unknown columns are dropped and missing ones
// read as absent.
func Read(r io.Reader) ([]domain.City, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, bom))
		idx[h] = i
	}
	if _, ok := idx[domain.ColumnCity]; !ok {
		return nil, fmt.Errorf("missing %q column", domain.ColumnCity)
	}

	var cities []domain.City
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}

		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		c, err := parseRow(get)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		cities = append(cities, c)
	}
	return cities, nil
}

func parseRow(get func(string) string) (domain.City, error) {
	c := domain.City{
		Name:    get(domain.ColumnCity),
		Country: get(domain.ColumnCountry),
	}

	var err error
	if c.Population, err = parseInt64(get(domain.ColumnPopulation)); err != nil {
		return c, fmt.Errorf("%s: %w", domain.ColumnPopulation, err)
	}
	if c.AreaKm2, err = parseFloat(get(domain.ColumnArea)); err != nil {
		return c, fmt.Errorf("%s: %w", domain.ColumnArea, err)
	}
	if c.PopulationDensity, err = parseFloat(get(domain.ColumnPopulationDensity)); err != nil {
		return c, fmt.Errorf("%s: %w", domain.ColumnPopulationDensity, err)
	}
	temp, err := parseInt64(get(domain.ColumnAverageTemp))
	if err != nil {
		return c, fmt.Errorf("%s: %w", domain.ColumnAverageTemp, err)
	}
	if temp != nil {
		c.AverageTempC = domain.Int(int(*temp))
	}
	return c, nil
}

// parseInt64 accepts integers and integral floats ("1200.0"), which is how
// columns with gaps round-trip through spreadsheet tools.
func parseInt64(s string) (*int64, error) {
	if isAbsent(s) {
		return nil, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	v := int64(math.Round(f))
	return &v, nil
}

func parseFloat(s string) (*float64, error) {
	if isAbsent(s) {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(f) {
		return nil, nil
	}
	return &f, nil
}

func isAbsent(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "null", "none":
		return true
	}
	return false
}

// Save writes cities to path in the canonical column order. The file is
// written next to path and renamed over it.
func Save(path string, cities []domain.City) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp dataset: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if err := Write(tmp, cities); err != nil {
		tmp.Close()
		return fmt.Errorf("write dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp dataset: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace dataset: %w", err)
	}
	return nil
}

// Write encodes cities as CSV with the canonical header.
func Write(w io.Writer, cities []domain.City) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.Columns); err != nil {
		return err
	}
	for _, c := range cities {
		if err := cw.Write(formatRow(c)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatRow(c domain.City) []string {
	row := make([]string, len(domain.Columns))
	row[0] = c.Name
	row[1] = c.Country
	if c.Population != nil {
		row[2] = strconv.FormatInt(*c.Population, 10)
	}
	if c.AreaKm2 != nil {
		row[3] = strconv.FormatFloat(*c.AreaKm2, 'f', -1, 64)
	}
	if c.PopulationDensity != nil {
		row[4] = strconv.FormatFloat(*c.PopulationDensity, 'f', -1, 64)
	}
	if c.AverageTempC != nil {
		row[5] = strconv.Itoa(*c.AverageTempC)
	}
	return row
}
