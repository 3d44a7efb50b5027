package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for WorkAssist
type Metrics struct {
	// Dispatch metrics
	DispatchesTotal  *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
	ProviderErrors   *prometheus.CounterVec
	ProviderTokens   *prometheus.CounterVec

	// Session metrics
	SessionsActive prometheus.Gauge
	TasksLogged    *prometheus.CounterVec
	TasksCleared   prometheus.Counter

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Event metrics
	EventsPublished *prometheus.CounterVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// NewMetrics creates and registers all Prometheus metrics. Registration with
// promauto happens once per process.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			DispatchesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "workassist_dispatches_total",
					Help: "Total number of completion dispatches",
				},
				[]string{"persona", "result"},
			),
			DispatchDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "workassist_dispatch_duration_seconds",
					Help:    "Duration of completion dispatches in seconds",
					Buckets: prometheus.ExponentialBuckets(0.25, 2, 9), // 0.25s to 64s
				},
				[]string{"persona"},
			),
			ProviderErrors: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "workassist_provider_errors_total",
					Help: "Provider failures by kind",
				},
				[]string{"kind"},
			),
			ProviderTokens: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "workassist_provider_tokens_total",
					Help: "Tokens consumed by provider requests",
				},
				[]string{"direction"},
			),
			SessionsActive: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "workassist_sessions_active",
					Help: "Number of live sessions with task logs",
				},
			),
			TasksLogged: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "workassist_tasks_logged_total",
					Help: "Tasks appended to session logs",
				},
				[]string{"status"},
			),
			TasksCleared: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "workassist_tasks_cleared_total",
					Help: "Number of task-list clear operations",
				},
			),
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "workassist_http_requests_total",
					Help: "Total HTTP requests served",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "workassist_http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "path"},
			),
			EventsPublished: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "workassist_events_published_total",
					Help: "Events published on the internal bus",
				},
				[]string{"type"},
			),
		}
	})
	return sharedMetrics
}
