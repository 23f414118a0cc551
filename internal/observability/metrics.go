package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_digest"

// Metrics holds the Prometheus collectors for the digest job and the weather adapter.
type Metrics struct {
	DigestRuns        prometheus.Counter
	DigestEmails      *prometheus.CounterVec // labels: outcome={sent,failed}
	DigestCityFetches *prometheus.CounterVec // labels: outcome={ok,unavailable}
	DigestDuration    prometheus.Histogram
	DigestRunning     prometheus.Gauge

	WeatherRequests    *prometheus.CounterVec   // labels: endpoint={current,forecast}, outcome={success,not_found,error}
	WeatherCache       *prometheus.CounterVec   // labels: result={hit,miss}
	WeatherAPIDuration *prometheus.HistogramVec // labels: endpoint
}

func newMetrics() *Metrics {
	return &Metrics{
		DigestRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digest_runs_total",
			Help:      "Digest dispatch runs started.",
		}),
		DigestEmails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digest_emails_total",
			Help:      "Digest emails by delivery outcome.",
		}, []string{"outcome"}),
		DigestCityFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digest_city_fetches_total",
			Help:      "Per-city weather lookups made while composing digests.",
		}, []string{"outcome"}),
		DigestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "digest_run_duration_seconds",
			Help:      "Wall time of one digest run.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}),
		DigestRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "digest_running",
			Help:      "1 while a digest run is in progress.",
		}),
		WeatherRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_requests_total",
			Help:      "Upstream weather API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cache_total",
			Help:      "Current-weather cache lookups by result.",
		}, []string{"result"}),
		WeatherAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weather_api_duration_seconds",
			Help:      "Upstream weather API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"endpoint"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.DigestRuns,
		m.DigestEmails,
		m.DigestCityFetches,
		m.DigestDuration,
		m.DigestRunning,
		m.WeatherRequests,
		m.WeatherCache,
		m.WeatherAPIDuration,
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered nowhere, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
