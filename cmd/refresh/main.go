// Command refresh runs one enrichment pass over the city dataset, then commits
// and pushes the result.
//
// Usage:
//
//	refresh -job population
//	refresh -job temperature
//
// Exit status is 0 on success, 1 when the run failed, 2 on usage or
// configuration errors and 3 when another run holds the lock.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/city-stats-service/internal/adapter/geodb"
	gitadapter "github.com/couchcryptid/city-stats-service/internal/adapter/git"
	kafkaadapter "github.com/couchcryptid/city-stats-service/internal/adapter/kafka"
	"github.com/couchcryptid/city-stats-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/city-stats-service/internal/backup"
	"github.com/couchcryptid/city-stats-service/internal/config"
	"github.com/couchcryptid/city-stats-service/internal/countrycode"
	"github.com/couchcryptid/city-stats-service/internal/domain"
	"github.com/couchcryptid/city-stats-service/internal/observability"
	"github.com/couchcryptid/city-stats-service/internal/pipeline"
)

const (
	exitOK = iota
	exitFailed
	exitUsage
	exitLocked
)

func main() {
	os.Exit(run())
}

func run() int {
	jobName := flag.String("job", "", "refresh job to run: population or temperature")
	flag.Parse()

	defaults, ok := pipeline.Defaults[*jobName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown job %q\n", *jobName)
		flag.Usage()
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return exitUsage
	}
	applyDefaults(cfg, defaults)

	clock := clockwork.NewRealClock()
	runLog, err := observability.OpenRunLog(cfg.LogDir, clock.Now())
	if err != nil {
		slog.Error("failed to open run log", "error", err)
		return exitFailed
	}
	defer runLog.Close()

	runID := uuid.NewString()
	logger := observability.NewLogger(io.MultiWriter(os.Stderr, runLog), cfg.LogLevel, cfg.LogFormat).
		With("run_id", runID, "job", *jobName)
	slog.SetDefault(logger)
	metrics := observability.NewMetrics()

	job, finish, err := buildJob(*jobName, cfg, metrics, logger)
	if err != nil {
		logger.Error("failed to build job", "error", err)
		return exitUsage
	}
	defer finish()

	opts := pipeline.Options{
		DatasetPath: cfg.DatasetPath,
		LockPath:    cfg.LockPath,
		Pull:        cfg.GitPull,
		RunID:       runID,
		Clock:       clock,
	}
	if cfg.GitEnabled {
		opts.Publisher = gitadapter.NewPublisher(gitadapter.ExecRunner{}, cfg.GitRepoDir, cfg.GitRemote, cfg.GitBranch, metrics, logger)
	}
	if cfg.KafkaEnabled() {
		notifier := kafkaadapter.NewNotifier(cfg, logger)
		defer func() {
			if err := notifier.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		opts.Notifier = notifier
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := pipeline.New(job, opts, metrics, logger).Run(ctx)
	writeMetrics(cfg.MetricsTextfile, logger)
	switch {
	case pipeline.IsLocked(err):
		logger.Error("refresh skipped", "error", err)
		return exitLocked
	case err != nil:
		logger.Error("refresh failed", "error", err)
		return exitFailed
	}

	logger.Info("refresh complete",
		"updated", summary.Counts[domain.StatusUpdated],
		"unchanged", summary.Counts[domain.StatusUnchanged],
		"skipped", summary.Counts[domain.StatusSkipped],
		"failed", summary.Counts[domain.StatusFailed],
		"backup", summary.Backup.Created,
		"published", summary.Published,
	)
	if summary.PublishErr != nil {
		return exitFailed
	}
	return exitOK
}

// applyDefaults fills the per-job settings the configuration left empty.
func applyDefaults(cfg *config.Config, d pipeline.JobDefaults) {
	if cfg.BackupDir == "" {
		cfg.BackupDir = d.BackupDir
	}
	if cfg.LogDir == "" {
		cfg.LogDir = d.LogDir
	}
	if cfg.RefreshPolicy == "" {
		cfg.RefreshPolicy = string(d.Policy)
	}
}

// buildJob wires the enricher of the named job. The returned func persists
// state the job accumulated and must run after the refresh.
func buildJob(name string, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (pipeline.Job, func(), error) {
	defaults := pipeline.Defaults[name]
	backups := backup.NewRotator(cfg.BackupDir, defaults.BackupPrefix, cfg.BackupRetention, metrics, logger)
	pacer := pipeline.NewPacer(cfg.RequestInterval, nil)
	policy := domain.Policy(cfg.RefreshPolicy)

	switch name {
	case pipeline.JobPopulation:
		codes, err := countrycode.Load(cfg.CountryCodesPath, cfg.CountryOverridesPath)
		if err != nil {
			return pipeline.Job{}, nil, err
		}
		logger.Info("country codes loaded", "entries", codes.Len())

		registry, err := geodb.NewClient(geodb.Options{
			BaseURL: cfg.GeoDBURL,
			Host:    cfg.GeoDBHost,
			APIKey:  cfg.GeoDBAPIKey,
			Timeout: cfg.GeoDBTimeout,
		}, metrics, logger)
		if err != nil {
			return pipeline.Job{}, nil, err
		}
		enricher := domain.NewPopulationEnricher(registry, codes, pacer, policy, logger)
		return pipeline.NewPopulationJob(enricher, backups), func() {}, nil

	case pipeline.JobTemperature:
		client := openmeteo.NewClient(cfg.OpenMeteoGeocodingURL, cfg.OpenMeteoArchiveURL, cfg.OpenMeteoTimeout, metrics, logger)
		geocoder := openmeteo.NewCachedGeocoder(client, cfg.GeocodeCachePath, metrics, logger)
		enricher := domain.NewTemperatureEnricher(geocoder, client, pacer, policy, cfg.ClimateYear, logger)
		logger.Info("climate window", "year", enricher.Window().Year, "cached_places", geocoder.Len())
		saveCache := func() {
			if err := geocoder.Save(); err != nil {
				logger.Error("failed to save geocode cache", "path", cfg.GeocodeCachePath, "error", err)
			}
		}
		return pipeline.NewTemperatureJob(enricher, backups), saveCache, nil
	}
	return pipeline.Job{}, nil, fmt.Errorf("unknown job %q", name)
}

func writeMetrics(path string, logger *slog.Logger) {
	if path == "" {
		return
	}
	if err := observability.WriteTextfile(path); err != nil {
		logger.Error("failed to write metrics textfile", "path", path, "error", err)
	}
}
