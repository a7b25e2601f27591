package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/cities.csv", cfg.DatasetPath)
	assert.Equal(t, "data/all.csv", cfg.CountryCodesPath)
	assert.Empty(t, cfg.CountryOverridesPath)
	assert.Empty(t, cfg.BackupDir)
	assert.Equal(t, 5, cfg.BackupRetention)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 1100*time.Millisecond, cfg.RequestInterval)
	assert.Empty(t, cfg.RefreshPolicy)
	assert.Zero(t, cfg.ClimateYear)
	assert.Equal(t, "https://geocoding-api.open-meteo.com", cfg.OpenMeteoGeocodingURL)
	assert.Equal(t, "https://archive-api.open-meteo.com", cfg.OpenMeteoArchiveURL)
	assert.Equal(t, 30*time.Second, cfg.OpenMeteoTimeout)
	assert.Equal(t, "data/geocode_cache.json", cfg.GeocodeCachePath)
	assert.Equal(t, "wft-geo-db.p.rapidapi.com", cfg.GeoDBHost)
	assert.Equal(t, 5*time.Second, cfg.GeoDBTimeout)
	assert.True(t, cfg.GitEnabled)
	assert.True(t, cfg.GitPull)
	assert.Equal(t, "origin", cfg.GitRemote)
	assert.Equal(t, "main", cfg.GitBranch)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, "city-stats-refreshed", cfg.KafkaTopic)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 100, cfg.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("DATASET_PATH", "/srv/data/cities.csv")
	t.Setenv("BACKUP_DIR", "/srv/backups")
	t.Setenv("BACKUP_RETENTION", "10")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("REQUEST_INTERVAL", "1s")
	t.Setenv("REFRESH_POLICY", "always")
	t.Setenv("CLIMATE_YEAR", "2023")
	t.Setenv("GEODB_API_KEY", "secret")
	t.Setenv("GIT_ENABLED", "false")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/data/cities.csv", cfg.DatasetPath)
	assert.Equal(t, "/srv/backups", cfg.BackupDir)
	assert.Equal(t, 10, cfg.BackupRetention)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, time.Second, cfg.RequestInterval)
	assert.Equal(t, "always", cfg.RefreshPolicy)
	assert.Equal(t, 2023, cfg.ClimateYear)
	assert.Equal(t, "secret", cfg.GeoDBAPIKey)
	assert.False(t, cfg.GitEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dataset_path: /from/file.csv\nlog_level: warn\nbackup_retention: 3\n"), 0o644))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/from/file.csv", cfg.DatasetPath)
	assert.Equal(t, 3, cfg.BackupRetention)
	assert.Equal(t, "error", cfg.LogLevel, "environment overrides the file")
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_RequestIntervalOutOfRange(t *testing.T) {
	for _, v := range []string{"500ms", "2s"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("REQUEST_INTERVAL", v)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "REQUEST_INTERVAL")
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := map[string]string{
		"REFRESH_POLICY":          "sometimes",
		"LOG_FORMAT":              "xml",
		"BACKUP_RETENTION":        "0",
		"OPENMETEO_GEOCODING_URL": "not a url",
		"RATE_LIMIT_REQUESTS":     "0",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_GitEnabledRequiresRemote(t *testing.T) {
	t.Setenv("GIT_REMOTE", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GIT_REMOTE")

	t.Setenv("GIT_ENABLED", "false")
	_, err = Load()
	require.NoError(t, err)
}

func TestLoad_IgnoresUnrelatedEnv(t *testing.T) {
	t.Setenv("PATHEXT", "whatever")
	t.Setenv("HOME_DIR_SIZE", "huge")
	_, err := Load()
	require.NoError(t, err)
}
