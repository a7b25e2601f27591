package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings. Each koanf key is the lower-cased name
// of the environment variable that sets it.
type Config struct {
	DatasetPath          string `koanf:"dataset_path" validate:"required"`
	CountryCodesPath     string `koanf:"country_codes_path" validate:"required"`
	CountryOverridesPath string `koanf:"country_overrides_path"`

	// Empty BackupDir, LogDir and RefreshPolicy fall back to per-job defaults.
	BackupDir       string `koanf:"backup_dir"`
	BackupRetention int    `koanf:"backup_retention" validate:"min=1"`
	LogDir          string `koanf:"log_dir"`
	LogLevel        string `koanf:"log_level" validate:"oneof=debug info warn error"`
	LogFormat       string `koanf:"log_format" validate:"oneof=text json"`
	LockPath        string `koanf:"lock_path"`
	MetricsTextfile string `koanf:"metrics_textfile"`

	RequestInterval time.Duration `koanf:"request_interval" validate:"min=1s,max=1200ms"`
	RefreshPolicy   string        `koanf:"refresh_policy" validate:"omitempty,oneof=fill-missing always"`
	ClimateYear     int           `koanf:"climate_year" validate:"min=0"`

	OpenMeteoGeocodingURL string        `koanf:"openmeteo_geocoding_url" validate:"required,url"`
	OpenMeteoArchiveURL   string        `koanf:"openmeteo_archive_url" validate:"required,url"`
	OpenMeteoTimeout      time.Duration `koanf:"openmeteo_timeout" validate:"gt=0"`
	GeocodeCachePath      string        `koanf:"geocode_cache_path"`

	GeoDBURL     string        `koanf:"geodb_url" validate:"required,url"`
	GeoDBHost    string        `koanf:"geodb_host" validate:"required"`
	GeoDBAPIKey  string        `koanf:"geodb_api_key"`
	GeoDBTimeout time.Duration `koanf:"geodb_timeout" validate:"gt=0"`

	GitEnabled bool   `koanf:"git_enabled"`
	GitRepoDir string `koanf:"git_repo_dir"`
	GitRemote  string `koanf:"git_remote" validate:"required_if=GitEnabled true"`
	GitBranch  string `koanf:"git_branch" validate:"required_if=GitEnabled true"`
	GitPull    bool   `koanf:"git_pull"`

	// KafkaBrokers is empty when notifications are off.
	KafkaBrokers []string `koanf:"kafka_brokers"`
	KafkaTopic   string   `koanf:"kafka_topic" validate:"required"`

	HTTPAddr          string        `koanf:"http_addr" validate:"required"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	CORSOrigins       []string      `koanf:"cors_origins"`

	ShutdownTimeout time.Duration `koanf:"-"`
}

func defaults() Config {
	return Config{
		DatasetPath:      "data/cities.csv",
		CountryCodesPath: "data/all.csv",
		BackupRetention:  5,
		LogLevel:         "info",
		LogFormat:        "text",
		RequestInterval:  1100 * time.Millisecond,

		OpenMeteoGeocodingURL: "https://geocoding-api.open-meteo.com",
		OpenMeteoArchiveURL:   "https://archive-api.open-meteo.com",
		OpenMeteoTimeout:      30 * time.Second,
		GeocodeCachePath:      "data/geocode_cache.json",

		GeoDBURL:     "https://wft-geo-db.p.rapidapi.com",
		GeoDBHost:    "wft-geo-db.p.rapidapi.com",
		GeoDBTimeout: 5 * time.Second,

		GitEnabled: true,
		GitRepoDir: ".",
		GitRemote:  "origin",
		GitBranch:  "main",
		GitPull:    true,

		KafkaTopic: "city-stats-refreshed",

		HTTPAddr:          ":8080",
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		CORSOrigins:       []string{"*"},
	}
}

// listKeys are read from the environment as comma-separated values.
var listKeys = []string{"kafka_brokers", "cors_origins"}

// Load layers defaults, the optional YAML file named by CONFIG_PATH and the
// environment, in increasing priority, then validates the result.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := sharedcfg.EnvOrDefault("CONFIG_PATH", ""); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	known := knownKeys()
	if err := k.Load(env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if !known[key] {
			return ""
		}
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	for _, key := range listKeys {
		if s, ok := k.Get(key).(string); ok {
			split := splitList
			if key == "kafka_brokers" {
				split = sharedcfg.ParseBrokers
			}
			if err := k.Set(key, split(s)); err != nil {
				return nil, fmt.Errorf("set %s: %w", key, err)
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ShutdownTimeout = shutdownTimeout

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// KafkaEnabled reports whether refresh notifications should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their environment variable name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return strings.ToUpper(name)
	})
	return v
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("invalid %s: %v (must satisfy %s=%s)", fe.Field(), fe.Value(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("invalid %s: %v (%s)", fe.Field(), fe.Value(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

func knownKeys() map[string]bool {
	keys := make(map[string]bool)
	t := reflect.TypeOf(Config{})
	for i := range t.NumField() {
		name := strings.SplitN(t.Field(i).Tag.Get("koanf"), ",", 2)[0]
		if name != "" && name != "-" {
			keys[name] = true
		}
	}
	return keys
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
