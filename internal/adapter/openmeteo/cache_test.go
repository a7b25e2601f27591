package openmeteo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/city-stats-service/internal/domain"
	"github.com/couchcryptid/city-stats-service/internal/observability"
)

type countingGeocoder struct {
	calls  int
	result domain.GeocodingResult
	err    error
}

func (m *countingGeocoder) ForwardGeocode(_ context.Context, _, _ string) (domain.GeocodingResult, error) {
	m.calls++
	return m.result, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var amman = domain.GeocodingResult{Lat: 31.9, Lon: 35.9, Name: "Amman", Found: true}

func TestCachedGeocoder_CacheHit(t *testing.T) {
	inner := &countingGeocoder{result: amman}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedGeocoder(inner, "", metrics, discardLogger())

	r1, err := cached.ForwardGeocode(context.Background(), "Amman", "Jordan")
	require.NoError(t, err)
	r2, err := cached.ForwardGeocode(context.Background(), "AMMAN", "jordan")
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("miss")), 0)
}

func TestCachedGeocoder_PersistsAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "geocode.json")

	first := &countingGeocoder{result: amman}
	lastYear := NewCachedGeocoder(first, path, observability.NewMetricsForTesting(), discardLogger())
	_, err := lastYear.ForwardGeocode(context.Background(), "Amman", "Jordan")
	require.NoError(t, err)
	require.NoError(t, lastYear.Save())

	second := &countingGeocoder{err: errors.New("geocoder must not be called")}
	thisYear := NewCachedGeocoder(second, path, observability.NewMetricsForTesting(), discardLogger())
	assert.Equal(t, 1, thisYear.Len())

	got, err := thisYear.ForwardGeocode(context.Background(), "Amman", "Jordan")
	require.NoError(t, err)
	assert.Equal(t, amman, got)
	assert.Zero(t, second.calls)
}

func TestCachedGeocoder_SaveWithoutChangesLeavesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geocode.json")
	cached := NewCachedGeocoder(&countingGeocoder{}, path, observability.NewMetricsForTesting(), discardLogger())

	_, _ = cached.ForwardGeocode(context.Background(), "Atlantis", "Nowhere")
	require.NoError(t, cached.Save())
	assert.NoFileExists(t, path)
}

func TestCachedGeocoder_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geocode.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	inner := &countingGeocoder{result: amman}
	cached := NewCachedGeocoder(inner, path, observability.NewMetricsForTesting(), discardLogger())
	assert.Zero(t, cached.Len())

	_, err := cached.ForwardGeocode(context.Background(), "Amman", "Jordan")
	require.NoError(t, err)
	require.NoError(t, cached.Save())

	reloaded := NewCachedGeocoder(inner, path, observability.NewMetricsForTesting(), discardLogger())
	assert.Equal(t, 1, reloaded.Len())
}

func TestCachedGeocoder_MissesNotCached(t *testing.T) {
	inner := &countingGeocoder{}
	cached := NewCachedGeocoder(inner, "", observability.NewMetricsForTesting(), discardLogger())

	_, _ = cached.ForwardGeocode(context.Background(), "Atlantis", "Nowhere")
	_, _ = cached.ForwardGeocode(context.Background(), "Atlantis", "Nowhere")

	assert.Equal(t, 2, inner.calls)
}

func TestCachedGeocoder_ErrorsNotCached(t *testing.T) {
	inner := &countingGeocoder{err: errors.New("boom")}
	cached := NewCachedGeocoder(inner, "", observability.NewMetricsForTesting(), discardLogger())

	_, err := cached.ForwardGeocode(context.Background(), "Amman", "Jordan")
	require.Error(t, err)
	_, err = cached.ForwardGeocode(context.Background(), "Amman", "Jordan")
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedGeocoder_SameCityDifferentCountry(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{Found: true}}
	cached := NewCachedGeocoder(inner, "", observability.NewMetricsForTesting(), discardLogger())

	_, _ = cached.ForwardGeocode(context.Background(), "Córdoba", "Spain")
	_, _ = cached.ForwardGeocode(context.Background(), "Córdoba", "Argentina")

	assert.Equal(t, 2, inner.calls)
}
