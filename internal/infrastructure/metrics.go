package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/yourusername/media-proxy-go/internal/domain"
)

// Metrics holds the Prometheus collectors for download processing.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	attempts    *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	engineCalls *prometheus.HistogramVec
	bytesServed prometheus.Counter
	filesSwept  prometheus.Counter
}

// NewMetrics creates the collectors and registers them on a new registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "media_proxy",
			Name:      "download_attempts_total",
			Help:      "Engine download attempts by option variant and result.",
		}, []string{"variant", "result"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "media_proxy",
			Name:      "download_outcomes_total",
			Help:      "Finished download requests by media kind and error kind.",
		}, []string{"kind", "error_kind"}),
		engineCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "media_proxy",
			Name:      "engine_call_duration_seconds",
			Help:      "Duration of extraction engine invocations.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"mode"}),
		bytesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "media_proxy",
			Name:      "bytes_served_total",
			Help:      "Bytes streamed to clients.",
		}),
		filesSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "media_proxy",
			Name:      "files_swept_total",
			Help:      "Stale files removed from the downloads directory.",
		}),
	}

	m.registry.MustRegister(
		m.attempts,
		m.outcomes,
		m.engineCalls,
		m.bytesServed,
		m.filesSwept,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry backing the /metrics endpoint
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// ObserveAttempt records one engine download attempt
func (m *Metrics) ObserveAttempt(variant string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.attempts.WithLabelValues(variant, result).Inc()
}

// ObserveOutcome records a finished request
func (m *Metrics) ObserveOutcome(kind domain.MediaKind, outcome *domain.DownloadOutcome) {
	if m == nil {
		return
	}
	errorKind := "none"
	if !outcome.Success {
		errorKind = string(outcome.ErrorKind)
	}
	m.outcomes.WithLabelValues(string(kind), errorKind).Inc()
}

// ObserveEngineCall records how long an engine invocation took
func (m *Metrics) ObserveEngineCall(mode string, seconds float64) {
	if m == nil {
		return
	}
	m.engineCalls.WithLabelValues(mode).Observe(seconds)
}

// AddBytesServed counts streamed bytes
func (m *Metrics) AddBytesServed(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesServed.Add(float64(n))
}

// AddFilesSwept counts files removed by the janitor
func (m *Metrics) AddFilesSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.filesSwept.Add(float64(n))
}
