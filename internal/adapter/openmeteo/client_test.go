package openmeteo

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/city-stats-service/internal/observability"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 5 * time.Second},
		geocodingURL: baseURL,
		archiveURL:   baseURL,
		metrics:      metrics,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func jsonHandler(t *testing.T, body string, check func(r *http.Request)) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(body))
	}
}

func TestClient_ForwardGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t,
		`{"results":[{"name":"Amman","latitude":31.95522,"longitude":35.94503,"country":"Jordan"}]}`,
		func(r *http.Request) {
			assert.Equal(t, "/v1/search", r.URL.Path)
			assert.Equal(t, "Amman,Jordan", r.URL.Query().Get("name"))
			assert.Equal(t, "1", r.URL.Query().Get("count"))
			assert.Equal(t, "en", r.URL.Query().Get("language"))
			assert.Equal(t, "json", r.URL.Query().Get("format"))
		}))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	c := testClient(srv.URL, metrics)

	result, err := c.ForwardGeocode(context.Background(), "Amman", "Jordan")
	require.NoError(t, err)

	assert.True(t, result.Found)
	assert.Equal(t, "Amman", result.Name)
	assert.InDelta(t, 31.95522, result.Lat, 1e-9)
	assert.InDelta(t, 35.94503, result.Lon, 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.LookupRequests.WithLabelValues(serviceGeocoding, "success")), 0)
}

func TestClient_ForwardGeocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, `{"generationtime_ms":0.5}`, nil))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	c := testClient(srv.URL, metrics)

	result, err := c.ForwardGeocode(context.Background(), "Atlantis", "Nowhere")
	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.LookupRequests.WithLabelValues(serviceGeocoding, "empty")), 0)
}

func TestClient_ForwardGeocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"reason":"rate limited"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, observability.NewMetricsForTesting())

	_, err := c.ForwardGeocode(context.Background(), "Amman", "Jordan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClient_ForwardGeocode_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, `{"results":[`, nil))
	defer srv.Close()

	c := testClient(srv.URL, observability.NewMetricsForTesting())

	_, err := c.ForwardGeocode(context.Background(), "Amman", "Jordan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestClient_ForwardGeocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL, observability.NewMetricsForTesting())
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}

	_, err := c.ForwardGeocode(context.Background(), "Amman", "Jordan")
	require.Error(t, err)
}

func TestClient_DailyMeanTemperatures_Success(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t,
		`{"daily":{"time":["2024-01-01","2024-01-02","2024-01-03","2024-01-04"],"temperature_2m_mean":[10,null,12,14]}}`,
		func(r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, "/v1/archive", r.URL.Path)
			assert.Equal(t, "31.9552", q.Get("latitude"))
			assert.Equal(t, "35.9450", q.Get("longitude"))
			assert.Equal(t, "2024-01-01", q.Get("start_date"))
			assert.Equal(t, "2024-12-31", q.Get("end_date"))
			assert.Equal(t, "temperature_2m_mean", q.Get("daily"))
			assert.Equal(t, "auto", q.Get("timezone"))
		}))
	defer srv.Close()

	c := testClient(srv.URL, observability.NewMetricsForTesting())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	series, err := c.DailyMeanTemperatures(context.Background(), 31.95522, 35.94503, start, end)
	require.NoError(t, err)
	require.Len(t, series, 4)
	assert.InDelta(t, 10, *series[0], 0)
	assert.Nil(t, series[1])
	assert.InDelta(t, 14, *series[3], 0)
}

func TestClient_DailyMeanTemperatures_NoDaily(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, `{"latitude":1,"longitude":2}`, nil))
	defer srv.Close()

	c := testClient(srv.URL, observability.NewMetricsForTesting())

	series, err := c.DailyMeanTemperatures(context.Background(), 1, 2, time.Now(), time.Now())
	require.NoError(t, err)
	assert.Nil(t, series)
}

func TestClient_DailyMeanTemperatures_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":true,"reason":"Parameter 'start_date' is out of allowed range"}`))
	}))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	c := testClient(srv.URL, metrics)

	_, err := c.DailyMeanTemperatures(context.Background(), 1, 2, time.Now(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.LookupRequests.WithLabelValues(serviceArchive, "error")), 0)
}

func TestNewClient_DefaultURLs(t *testing.T) {
	c := NewClient("", "", time.Second, observability.NewMetricsForTesting(), slog.Default())
	assert.Equal(t, DefaultGeocodingURL, c.geocodingURL)
	assert.Equal(t, DefaultArchiveURL, c.archiveURL)
}
