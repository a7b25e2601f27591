// Package openmeteo implements the geocoder and climate archive ports on top of
// the Open-Meteo geocoding and historical weather APIs.
package openmeteo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"

	"github.com/couchcryptid/city-stats-service/internal/domain"
	"github.com/couchcryptid/city-stats-service/internal/observability"
)

const (
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com"
	DefaultArchiveURL   = "https://archive-api.open-meteo.com"

	serviceGeocoding = "geocoding"
	serviceArchive   = "archive"
)

// Client implements domain.Geocoder and domain.ClimateArchive.
type Client struct {
	httpClient   *http.Client
	geocodingURL string
	archiveURL   string
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// NewClient creates an Open-Meteo client. Empty URLs fall back to the public endpoints.
func NewClient(geocodingURL, archiveURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if geocodingURL == "" {
		geocodingURL = DefaultGeocodingURL
	}
	if archiveURL == "" {
		archiveURL = DefaultArchiveURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		geocodingURL: geocodingURL,
		archiveURL:   archiveURL,
		metrics:      metrics,
		logger:       logger,
	}
}

// ForwardGeocode resolves "city,country" to the coordinates of the first match.
func (c *Client) ForwardGeocode(ctx context.Context, city, country string) (domain.GeocodingResult, error) {
	params := url.Values{
		"name":     {city + "," + country},
		"count":    {"1"},
		"language": {"en"},
		"format":   {"json"},
	}

	var resp geocodingResponse
	if err := c.get(ctx, serviceGeocoding, c.geocodingURL+"/v1/search?"+params.Encode(), &resp); err != nil {
		return domain.GeocodingResult{}, err
	}

	if len(resp.Results) == 0 {
		c.metrics.LookupRequests.WithLabelValues(serviceGeocoding, "empty").Inc()
		return domain.GeocodingResult{}, nil
	}
	c.metrics.LookupRequests.WithLabelValues(serviceGeocoding, "success").Inc()

	r := resp.Results[0]
	return domain.GeocodingResult{
		Lat:   r.Latitude,
		Lon:   r.Longitude,
		Name:  r.Name,
		Found: true,
	}, nil
}

// DailyMeanTemperatures fetches the daily mean 2m temperature series for the
// coordinate between start and end inclusive. Days without data stay nil.
func (c *Client) DailyMeanTemperatures(ctx context.Context, lat, lon float64, start, end time.Time) ([]*float64, error) {
	params := url.Values{
		"latitude":   {fmt.Sprintf("%.4f", lat)},
		"longitude":  {fmt.Sprintf("%.4f", lon)},
		"start_date": {start.Format(time.DateOnly)},
		"end_date":   {end.Format(time.DateOnly)},
		"daily":      {"temperature_2m_mean"},
		"timezone":   {"auto"},
	}

	var resp archiveResponse
	if err := c.get(ctx, serviceArchive, c.archiveURL+"/v1/archive?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	if resp.Daily == nil || len(resp.Daily.TemperatureMean) == 0 {
		c.metrics.LookupRequests.WithLabelValues(serviceArchive, "empty").Inc()
		return nil, nil
	}
	c.metrics.LookupRequests.WithLabelValues(serviceArchive, "success").Inc()
	return resp.Daily.TemperatureMean, nil
}

func (c *Client) get(ctx context.Context, service, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.LookupDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.LookupRequests.WithLabelValues(service, "error").Inc()
		return fmt.Errorf("%s request: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.LookupRequests.WithLabelValues(service, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("open-meteo %s API error: status %d: %s", service, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.metrics.LookupRequests.WithLabelValues(service, "error").Inc()
		return fmt.Errorf("decode %s response: %w", service, err)
	}
	return nil
}

// Open-Meteo API response types.

type geocodingResponse struct {
	Results []place `json:"results"`
}

type place struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
}

type archiveResponse struct {
	Daily *daily `json:"daily"`
}

type daily struct {
	Time            []string   `json:"time"`
	TemperatureMean []*float64 `json:"temperature_2m_mean"`
}
