package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Generations        *prometheus.CounterVec
	GenerationLatency  *prometheus.HistogramVec
	CredentialPrompts  *prometheus.CounterVec
	AuthorizationRetry *prometheus.CounterVec
	VideoPolls         prometheus.Histogram
	VideoJobsInFlight  prometheus.Gauge
	HTTPRequests       *prometheus.CounterVec
}

// NewMetrics registers the instruments on a fresh registry under namespace.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Generations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Model calls by action and outcome.",
		}, []string{"action", "outcome"}),
		GenerationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_latency_seconds",
			Help:      "Latency of model calls by action.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 90, 180, 600},
		}, []string{"action"}),
		CredentialPrompts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_selections_total",
			Help:      "Credential selections by outcome.",
		}, []string{"outcome"}),
		AuthorizationRetry: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorization_retries_total",
			Help:      "Requests repeated after a credential re-selection, by action.",
		}, []string{"action"}),
		VideoPolls: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "video_polls",
			Help:      "Status polls needed per finished video job.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 120},
		}),
		VideoJobsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "video_jobs_in_flight",
			Help:      "Video jobs currently being polled.",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status class.",
		}, []string{"route", "status"}),
	}
}

// ObserveGeneration records one model call.
func (m *Metrics) ObserveGeneration(action, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Generations.WithLabelValues(action, outcome).Inc()
	m.GenerationLatency.WithLabelValues(action).Observe(d.Seconds())
}

func (m *Metrics) ObserveCredentialPrompt(outcome string) {
	if m == nil {
		return
	}
	m.CredentialPrompts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveAuthorizationRetry(action string) {
	if m == nil {
		return
	}
	m.AuthorizationRetry.WithLabelValues(action).Inc()
}

func (m *Metrics) ObserveVideoPolls(n int) {
	if m == nil {
		return
	}
	m.VideoPolls.Observe(float64(n))
}

// VideoJobStarted and VideoJobFinished bracket a running job.
func (m *Metrics) VideoJobStarted() {
	if m == nil {
		return
	}
	m.VideoJobsInFlight.Inc()
}

func (m *Metrics) VideoJobFinished() {
	if m == nil {
		return
	}
	m.VideoJobsInFlight.Dec()
}

func (m *Metrics) ObserveHTTPRequest(route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
