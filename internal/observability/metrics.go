package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "city_stats"

// Metrics holds the Prometheus collectors shared by the refresh jobs and the
// dashboard server.
type Metrics struct {
	// Refresh run metrics.
	EnrichOutcomes *prometheus.CounterVec   // labels: field, status={updated,unchanged,skipped,failed}
	RunDuration    *prometheus.HistogramVec // labels: job
	LastSuccess    *prometheus.GaugeVec     // labels: job
	Records        *prometheus.GaugeVec     // labels: job

	// Third-party lookups.
	LookupRequests *prometheus.CounterVec   // labels: service={geocoding,archive,geodb}, outcome={success,error,empty}
	LookupDuration *prometheus.HistogramVec // labels: service
	GeocodeCache   *prometheus.CounterVec   // labels: result={hit,miss}
	BreakerState   *prometheus.GaugeVec     // labels: name; 0 closed, 1 half-open, 2 open

	// Backups and publishing.
	BackupsCreated  prometheus.Counter
	BackupsPruned   prometheus.Counter
	PublishOutcomes *prometheus.CounterVec // labels: outcome={committed,clean,error}
	Notifications   *prometheus.CounterVec // labels: outcome={sent,error}

	// Dashboard catalog.
	CatalogCities  prometheus.Gauge
	CatalogReloads *prometheus.CounterVec // labels: result={success,error}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		EnrichOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrich_outcomes_total",
			Help:      "Per-record enrichment results by field and status.",
		}, []string{"field", "status"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_run_duration_seconds",
			Help:      "Duration of a complete refresh run.",
			Buckets:   []float64{1, 10, 30, 60, 120, 300, 600, 1200, 2400},
		}, []string{"job"}),
		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_last_success_timestamp_seconds",
			Help:      "Unix time of the last refresh run that saved the dataset.",
		}, []string{"job"}),
		Records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_records",
			Help:      "Number of records processed by the last refresh run.",
		}, []string{"job"}),
		LookupRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_requests_total",
			Help:      "Third-party API requests by service and outcome.",
		}, []string{"service", "outcome"}),
		LookupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_duration_seconds",
			Help:      "Third-party API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"service"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}, []string{"name"}),
		BackupsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backups_created_total",
			Help:      "Dataset backups written.",
		}),
		BackupsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backups_pruned_total",
			Help:      "Old dataset backups deleted by rotation.",
		}),
		PublishOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_outcomes_total",
			Help:      "Version-control publish attempts by outcome.",
		}, []string{"outcome"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Refresh notifications by outcome.",
		}, []string{"outcome"}),
		CatalogCities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_cities",
			Help:      "Number of cities currently served by the dashboard API.",
		}),
		CatalogReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_reloads_total",
			Help:      "Dataset reloads triggered by file changes, by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.EnrichOutcomes,
		m.RunDuration,
		m.LastSuccess,
		m.Records,
		m.LookupRequests,
		m.LookupDuration,
		m.GeocodeCache,
		m.BreakerState,
		m.BackupsCreated,
		m.BackupsPruned,
		m.PublishOutcomes,
		m.Notifications,
		m.CatalogCities,
		m.CatalogReloads,
	}
}

// WriteTextfile writes the default registry to path in the node-exporter
// textfile format. Batch jobs call it on exit since nothing scrapes them.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
