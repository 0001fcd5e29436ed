package metrics

import (
	"net/http"
	"time"

	"github.com/harun/roundtable/pkg/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application. It receives
// generation and cache events from the performance monitor and health
// reports from the checker.
type Metrics struct {
	registry *prometheus.Registry

	// Generation metrics
	GenerationRequestsTotal *prometheus.CounterVec
	GenerationDuration      *prometheus.HistogramVec
	GenerationRetriesTotal  *prometheus.CounterVec

	// Cache metrics
	CacheLookupsTotal *prometheus.CounterVec

	// Health metrics
	BackendUp      prometheus.Gauge
	ModelAvailable *prometheus.GaugeVec
	HealthChecks   prometheus.Counter

	// Meeting metrics
	MeetingsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics under namespace
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		GenerationRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_requests_total",
				Help:      "Total number of logical generation requests",
			},
			[]string{"persona", "model", "status"},
		),
		GenerationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Duration of generation requests including retries",
				Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
			},
			[]string{"model"},
		),
		GenerationRetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_retries_total",
				Help:      "Total number of retried generation attempts",
			},
			[]string{"model"},
		),

		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Response cache lookups by result",
			},
			[]string{"result"},
		),

		BackendUp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "backend_up",
				Help:      "Whether the generation backend answered the last health check",
			},
		),
		ModelAvailable: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "model_available",
				Help:      "Whether a required model was installed at the last health check",
			},
			[]string{"model"},
		),
		HealthChecks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "health_checks_total",
				Help:      "Total number of health checks run",
			},
		),

		MeetingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "meetings_total",
				Help:      "Meetings finished by terminal state",
			},
			[]string{"state"},
		),
	}

	m.registerMetrics()

	return m
}

func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.GenerationRequestsTotal)
	m.registry.MustRegister(m.GenerationDuration)
	m.registry.MustRegister(m.GenerationRetriesTotal)
	m.registry.MustRegister(m.CacheLookupsTotal)
	m.registry.MustRegister(m.BackendUp)
	m.registry.MustRegister(m.ModelAvailable)
	m.registry.MustRegister(m.HealthChecks)
	m.registry.MustRegister(m.MeetingsTotal)
}

// ObserveGeneration records one finished logical request
func (m *Metrics) ObserveGeneration(persona, model string, duration time.Duration, success bool, retries int) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.GenerationRequestsTotal.WithLabelValues(persona, model, status).Inc()
	m.GenerationDuration.WithLabelValues(model).Observe(duration.Seconds())
	if retries > 0 {
		m.GenerationRetriesTotal.WithLabelValues(model).Add(float64(retries))
	}
}

// ObserveCache records a cache lookup
func (m *Metrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveHealth publishes the latest health report
func (m *Metrics) ObserveHealth(r health.Report) {
	m.HealthChecks.Inc()
	if r.BackendUp {
		m.BackendUp.Set(1)
	} else {
		m.BackendUp.Set(0)
	}
	for model, ok := range r.Models {
		v := 0.0
		if ok {
			v = 1
		}
		m.ModelAvailable.WithLabelValues(model).Set(v)
	}
}

// ObserveMeeting counts a finished meeting
func (m *Metrics) ObserveMeeting(state string) {
	m.MeetingsTotal.WithLabelValues(state).Inc()
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
