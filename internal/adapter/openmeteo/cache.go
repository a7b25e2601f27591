package openmeteo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/couchcryptid/city-stats-service/internal/domain"
	"github.com/couchcryptid/city-stats-service/internal/observability"
)

// CachedGeocoder remembers resolved coordinates in a JSON file, so a yearly
// temperature run only geocodes cities it has not seen before.
type CachedGeocoder struct {
	inner   domain.Geocoder
	path    string
	metrics *observability.Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	entries map[string]cachedPlace
	dirty   bool
}

type cachedPlace struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Name string  `json:"name"`
}

// NewCachedGeocoder wraps inner with a cache persisted at path. An empty path
// keeps the cache in memory. A missing file starts empty; an unreadable one
// is logged and ignored, and is overwritten by the next Save.
func NewCachedGeocoder(inner domain.Geocoder, path string, metrics *observability.Metrics, logger *slog.Logger) *CachedGeocoder {
	c := &CachedGeocoder{
		inner:   inner,
		path:    path,
		metrics: metrics,
		logger:  logger,
		entries: make(map[string]cachedPlace),
	}
	if path == "" {
		return c
	}
	if err := c.load(); err != nil {
		logger.Warn("geocode cache unreadable, starting empty", "path", path, "error", err)
		c.entries = make(map[string]cachedPlace)
	}
	return c
}

func cacheKey(city, country string) string {
	return strings.ToLower(strings.TrimSpace(city)) + "|" + strings.ToLower(strings.TrimSpace(country))
}

func (c *CachedGeocoder) ForwardGeocode(ctx context.Context, city, country string) (domain.GeocodingResult, error) {
	key := cacheKey(city, country)

	c.mu.Lock()
	place, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return domain.GeocodingResult{Lat: place.Lat, Lon: place.Lon, Name: place.Name, Found: true}, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	result, err := c.inner.ForwardGeocode(ctx, city, country)
	if err != nil {
		return result, err
	}
	// Misses are not cached so a later run retries them.
	if result.Found {
		c.mu.Lock()
		c.entries[key] = cachedPlace{Lat: result.Lat, Lon: result.Lon, Name: result.Name}
		c.dirty = true
		c.mu.Unlock()
	}
	return result, nil
}

// Len returns the number of cached places.
func (c *CachedGeocoder) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *CachedGeocoder) load() error {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &c.entries)
}

// Save writes new entries back to the cache file. It is a no-op when nothing
// was added or the cache is in memory only.
func (c *CachedGeocoder) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.path == "" || !c.dirty {
		return nil
	}

	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode geocode cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create geocode cache dir: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write geocode cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace geocode cache: %w", err)
	}
	c.dirty = false
	c.logger.Info("geocode cache saved", "path", c.path, "entries", len(c.entries))
	return nil
}
