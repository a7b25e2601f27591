// Package geodb implements the population registry port on top of the GeoDB
// Cities API served through RapidAPI.
package geodb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/couchcryptid/city-stats-service/internal/observability"
)

const (
	DefaultBaseURL = "https://wft-geo-db.p.rapidapi.com"
	DefaultHost    = "wft-geo-db.p.rapidapi.com"

	service     = "geodb"
	breakerName = "geodb"

	// consecutive failures before the breaker opens
	tripAfter = 5
)

// ErrMissingAPIKey is returned by NewClient when no RapidAPI key is configured.
var ErrMissingAPIKey = errors.New("geodb: API key is required")

// Options configures a Client.
type Options struct {
	BaseURL string
	Host    string
	APIKey  string
	Timeout time.Duration

	// BreakerTimeout is how long the breaker stays open before letting a
	// probe request through. Zero means one minute.
	BreakerTimeout time.Duration
}

// Client implements domain.PopulationRegistry.
type Client struct {
	httpClient *http.Client
	baseURL    string
	host       string
	apiKey     string
	breaker    *gobreaker.CircuitBreaker[*int64]
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a GeoDB client guarded by a circuit breaker.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) (*Client, error) {
	if opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = time.Minute
	}

	c := &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    opts.BaseURL,
		host:       opts.Host,
		apiKey:     opts.APIKey,
		metrics:    metrics,
		logger:     logger,
	}
	c.breaker = newBreaker(opts.BreakerTimeout, metrics, logger)
	return c, nil
}

func newBreaker(timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *gobreaker.CircuitBreaker[*int64] {
	metrics.BreakerState.WithLabelValues(breakerName).Set(0)

	return gobreaker.NewCircuitBreaker[*int64](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			metrics.BreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// LookupPopulation returns the population of the first city starting with
// namePrefix in countryCode. Nil means no match or no population on the match.
// While the breaker is open calls fail fast with gobreaker.ErrOpenState.
func (c *Client) LookupPopulation(ctx context.Context, namePrefix, countryCode string) (*int64, error) {
	population, err := c.breaker.Execute(func() (*int64, error) {
		return c.lookup(ctx, namePrefix, countryCode)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.metrics.LookupRequests.WithLabelValues(service, "rejected").Inc()
		return nil, fmt.Errorf("population registry unavailable: %w", err)
	}
	return population, err
}

func (c *Client) lookup(ctx context.Context, namePrefix, countryCode string) (*int64, error) {
	params := url.Values{
		"namePrefix": {namePrefix},
		"countryIds": {countryCode},
		"limit":      {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/geo/cities?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.LookupDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.LookupRequests.WithLabelValues(service, "error").Inc()
		return nil, fmt.Errorf("geodb request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.LookupRequests.WithLabelValues(service, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("geodb API error: status %d: %s", resp.StatusCode, body)
	}

	var out citiesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.metrics.LookupRequests.WithLabelValues(service, "error").Inc()
		return nil, fmt.Errorf("decode geodb response: %w", err)
	}

	if len(out.Data) == 0 || out.Data[0].Population == nil {
		c.metrics.LookupRequests.WithLabelValues(service, "empty").Inc()
		return nil, nil
	}
	c.metrics.LookupRequests.WithLabelValues(service, "success").Inc()
	return out.Data[0].Population, nil
}

// GeoDB API response types.

type citiesResponse struct {
	Data []city `json:"data"`
}

type city struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	CountryCode string `json:"countryCode"`
	Population  *int64 `json:"population"`
}
