// Package catalog serves read-only queries over the dataset file and reloads
// it when the file changes on disk.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/couchcryptid/city-stats-service/internal/dataset"
	"github.com/couchcryptid/city-stats-service/internal/domain"
	"github.com/couchcryptid/city-stats-service/internal/observability"
)

// ErrNotFound is returned by Get when no city has the requested name.
var ErrNotFound = errors.New("city not found")

// Warnings shown to dashboard users.
const (
	WarnEmptyQuery = "Please enter a city name."
	warnNoMatch    = "No data found for '%s'."
)

// SearchResult is the answer to a dashboard search.
type SearchResult struct {
	Query   string        `json:"query"`
	Cities  []domain.City `json:"cities"`
	Points  []Point       `json:"points"`
	Warning string        `json:"warning,omitempty"`
}

// Point is one marker of the population versus area scatter plot.
type Point struct {
	City       string  `json:"city"`
	Country    string  `json:"country"`
	Population int64   `json:"population"`
	AreaKm2    float64 `json:"area_km2"`
}

// Catalog holds the dataset in memory.
type Catalog struct {
	path    string
	metrics *observability.Metrics
	logger  *slog.Logger

	mu     sync.RWMutex
	cities []domain.City
	loaded bool
}

// New creates a Catalog for the dataset at path. Call Load before serving.
func New(path string, metrics *observability.Metrics, logger *slog.Logger) *Catalog {
	return &Catalog{path: path, metrics: metrics, logger: logger}
}

// Load reads the dataset file. On failure the previously loaded table stays
// in place.
func (c *Catalog) Load() error {
	ds, err := dataset.Load(c.path)
	if err != nil {
		c.metrics.CatalogReloads.WithLabelValues("error").Inc()
		return err
	}

	c.mu.Lock()
	c.cities = ds.Cities
	c.loaded = true
	c.mu.Unlock()

	c.metrics.CatalogReloads.WithLabelValues("success").Inc()
	c.metrics.CatalogCities.Set(float64(len(ds.Cities)))
	c.logger.Info("catalog loaded", "path", c.path, "cities", len(ds.Cities))
	return nil
}

// CheckReadiness reports an error until the dataset has been loaded once.
func (c *Catalog) CheckReadiness(context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		return fmt.Errorf("dataset %s not loaded", c.path)
	}
	return nil
}

// Len returns the number of cities held.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cities)
}

// Search returns the cities whose name contains q, ignoring case. searched
// tells an explicit empty submission apart from the initial page view. An
// empty query matches nothing and plots nothing.
func (c *Catalog) Search(q string, searched bool) SearchResult {
	q = strings.TrimSpace(q)
	res := SearchResult{Query: q, Cities: []domain.City{}}

	if q == "" {
		if searched {
			res.Warning = WarnEmptyQuery
		}
		res.Points = []Point{}
		return res
	}

	needle := strings.ToLower(q)
	for _, city := range c.snapshot() {
		if strings.Contains(strings.ToLower(city.Name), needle) {
			res.Cities = append(res.Cities, city)
		}
	}
	if len(res.Cities) == 0 {
		res.Warning = fmt.Sprintf(warnNoMatch, q)
	}
	res.Points = Points(res.Cities)
	return res
}

// Get returns the city whose name equals name, ignoring case.
func (c *Catalog) Get(name string) (domain.City, error) {
	ds := domain.Dataset{Cities: c.snapshot()}
	city, ok := ds.Find(name)
	if !ok {
		return domain.City{}, ErrNotFound
	}
	return city, nil
}

func (c *Catalog) snapshot() []domain.City {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cities
}

// Points returns the scatter markers of cities that have both a population
// and an area.
func Points(cities []domain.City) []Point {
	points := []Point{}
	for _, city := range cities {
		if city.Population == nil || city.AreaKm2 == nil {
			continue
		}
		points = append(points, Point{
			City:       city.Name,
			Country:    city.Country,
			Population: *city.Population,
			AreaKm2:    *city.AreaKm2,
		})
	}
	return points
}

// Watch reloads the catalog whenever the dataset file is written or replaced.
// It watches the parent directory so that rename-based saves are seen. A
// failed reload keeps the previous table. Watch runs until ctx is cancelled.
func (c *Catalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(c.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	c.logger.Info("watching dataset for changes", "path", c.path)

	target := filepath.Clean(c.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := c.Load(); err != nil {
				c.logger.Error("catalog reload failed, keeping previous data", "path", c.path, "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Error("dataset watcher error", "error", err)
		}
	}
}
