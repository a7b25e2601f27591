package http_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/city-stats-service/internal/adapter/http"
	"github.com/couchcryptid/city-stats-service/internal/catalog"
	"github.com/couchcryptid/city-stats-service/internal/domain"
	"github.com/couchcryptid/city-stats-service/internal/observability"
)

type stubCatalog struct {
	err error
}

func (m *stubCatalog) CheckReadiness(context.Context) error { return m.err }

func (m *stubCatalog) Search(string, bool) catalog.SearchResult { return catalog.SearchResult{} }

func (m *stubCatalog) Get(string) (domain.City, error) { return domain.City{}, catalog.ErrNotFound }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() httpadapter.Options {
	return httpadapter.Options{
		Addr:              ":0",
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		CORSOrigins:       []string{"*"},
	}
}

func newCatalogServer(t *testing.T) *httpadapter.Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cities.csv")
	csv := "City,Country,Population,Area_km2,PopulationDensity,Average_Temp_C\n" +
		"Amman,Jordan,4000000,1680,2380.95,18\n" +
		"Paris,France,2100000,105.4,19924.1,12\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	cat := catalog.New(path, observability.NewMetricsForTesting(), discardLogger())
	require.NoError(t, cat.Load())
	return httpadapter.NewServer(testOptions(), cat, discardLogger())
}

func serve(srv http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	srv := httpadapter.NewServer(testOptions(), &stubCatalog{}, discardLogger())
	rec := serve(srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReflectsCatalog(t *testing.T) {
	ready := httpadapter.NewServer(testOptions(), &stubCatalog{}, discardLogger())
	assert.Equal(t, http.StatusOK, serve(ready, "/readyz").Code)

	notReady := httpadapter.NewServer(testOptions(), &stubCatalog{err: fmt.Errorf("dataset not loaded")}, discardLogger())
	assert.Equal(t, http.StatusServiceUnavailable, serve(notReady, "/readyz").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := httpadapter.NewServer(testOptions(), &stubCatalog{}, discardLogger())
	rec := serve(srv, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestSearchCities(t *testing.T) {
	srv := newCatalogServer(t)

	rec := serve(srv, "/api/cities?q=par&searched=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var res catalog.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Cities, 1)
	assert.Equal(t, "Paris", res.Cities[0].Name)
	require.Len(t, res.Points, 1)
	assert.Empty(t, res.Warning)
}

func TestSearchCities_Warnings(t *testing.T) {
	srv := newCatalogServer(t)

	var res catalog.SearchResult
	require.NoError(t, json.Unmarshal(serve(srv, "/api/cities?q=&searched=1").Body.Bytes(), &res))
	assert.Equal(t, "Please enter a city name.", res.Warning)
	assert.NotNil(t, res.Points)
	assert.Empty(t, res.Points)

	require.NoError(t, json.Unmarshal(serve(srv, "/api/cities?q=Oslo").Body.Bytes(), &res))
	assert.Equal(t, "No data found for 'Oslo'.", res.Warning)
}

func TestGetCity(t *testing.T) {
	srv := newCatalogServer(t)

	rec := serve(srv, "/api/cities/amman")
	require.Equal(t, http.StatusOK, rec.Code)

	var city domain.City
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &city))
	assert.Equal(t, "Amman", city.Name)
	require.NotNil(t, city.AverageTempC)
	assert.Equal(t, 18, *city.AverageTempC)
}

func TestGetCity_NotFound(t *testing.T) {
	srv := newCatalogServer(t)

	rec := serve(srv, "/api/cities/Oslo")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "City not found", body["error"])
}

func TestCORSPreflight(t *testing.T) {
	srv := newCatalogServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/cities", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServe_StopsOnCancel(t *testing.T) {
	opts := testOptions()
	opts.Addr = "127.0.0.1:0"
	opts.ShutdownTimeout = time.Second
	srv := httpadapter.NewServer(opts, &stubCatalog{}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
