// Package observability holds the service's logger setup and Prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_alerts"

// Metrics holds the Prometheus collectors for notification runs and upstream calls.
type Metrics struct {
	NotifyRuns          *prometheus.CounterVec // labels: result={success,no_subscribers,store_error}
	SubscriberOutcomes  *prometheus.CounterVec // labels: outcome={sent,unmatched,skipped,fetch_failed,send_failed}
	NotifyRunDuration   prometheus.Histogram
	UpstreamFetches     *prometheus.CounterVec   // labels: provider, outcome={success,error}
	UpstreamFetchDur    *prometheus.HistogramVec // labels: provider
	ForecastCacheLookup *prometheus.CounterVec   // labels: result={hit,miss,error}
	Subscriptions       *prometheus.CounterVec   // labels: action={subscribe,unsubscribe}, outcome
}

func newMetrics() *Metrics {
	return &Metrics{
		NotifyRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_runs_total",
			Help:      "Notification batch runs by result.",
		}, []string{"result"}),
		SubscriberOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_subscriber_outcomes_total",
			Help:      "Per-subscriber outcomes of notification runs.",
		}, []string{"outcome"}),
		NotifyRunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "notify_run_duration_seconds",
			Help:      "Duration of a complete notification batch run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		UpstreamFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_fetches_total",
			Help:      "Forecast provider requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		UpstreamFetchDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_fetch_duration_seconds",
			Help:      "Forecast provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		ForecastCacheLookup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_cache_lookups_total",
			Help:      "Forecast cache lookups by result.",
		}, []string{"result"}),
		Subscriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_requests_total",
			Help:      "Subscribe and unsubscribe requests by outcome.",
		}, []string{"action", "outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.NotifyRuns,
		m.SubscriberOutcomes,
		m.NotifyRunDuration,
		m.UpstreamFetches,
		m.UpstreamFetchDur,
		m.ForecastCacheLookup,
		m.Subscriptions,
	}
}

// NewMetrics creates all metrics and registers them with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsWithRegistry registers the metrics with reg instead of the default registry.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
