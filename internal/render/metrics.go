package render

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks render pipeline activity on a private registry.
type Metrics struct {
	registry             *prometheus.Registry
	submittedTotal       *prometheus.CounterVec
	finishedTotal        *prometheus.CounterVec
	renderDuration       *prometheus.HistogramVec
	creditsConsumedTotal prometheus.Counter
	activeRenders        prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		submittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aquarelle_renders_submitted_total",
			Help: "Total accepted render submissions by tier.",
		}, []string{"tier"}),
		finishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aquarelle_renders_finished_total",
			Help: "Total finished renders by tier and terminal status.",
		}, []string{"tier", "status"}),
		renderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aquarelle_render_duration_seconds",
			Help:    "Pipeline duration for each finished render.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}, []string{"tier", "status"}),
		creditsConsumedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aquarelle_credits_consumed_total",
			Help: "Total free-tier credits consumed by successful renders.",
		}),
		activeRenders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "aquarelle_active_renders",
			Help: "Current number of renders being processed.",
		}),
	}

	registry.MustRegister(
		m.submittedTotal,
		m.finishedTotal,
		m.renderDuration,
		m.creditsConsumedTotal,
		m.activeRenders,
	)
	return m
}

// Handler serves the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) submitted(tier string) {
	if m == nil {
		return
	}
	m.submittedTotal.WithLabelValues(tier).Inc()
}

func (m *Metrics) finished(tier, status string, seconds float64) {
	if m == nil {
		return
	}
	m.finishedTotal.WithLabelValues(tier, status).Inc()
	m.renderDuration.WithLabelValues(tier, status).Observe(seconds)
}

func (m *Metrics) creditConsumed() {
	if m == nil {
		return
	}
	m.creditsConsumedTotal.Inc()
}

func (m *Metrics) renderStarted() {
	if m == nil {
		return
	}
	m.activeRenders.Inc()
}

func (m *Metrics) renderStopped() {
	if m == nil {
		return
	}
	m.activeRenders.Dec()
}
