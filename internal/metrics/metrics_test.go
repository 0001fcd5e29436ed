package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/harun/roundtable/pkg/health"
	"github.com/harun/roundtable/pkg/perf"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var (
	_ perf.Sink       = (*Metrics)(nil)
	_ health.Observer = (*Metrics)(nil)
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("roundtable")

	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
	if m.registry == nil {
		t.Error("Registry is nil")
	}
	if m.GenerationRequestsTotal == nil || m.GenerationDuration == nil || m.GenerationRetriesTotal == nil {
		t.Error("generation metrics are nil")
	}
	if m.CacheLookupsTotal == nil {
		t.Error("CacheLookupsTotal is nil")
	}
	if m.BackendUp == nil || m.ModelAvailable == nil || m.HealthChecks == nil {
		t.Error("health metrics are nil")
	}
}

func TestObserveGeneration(t *testing.T) {
	m := NewMetrics("roundtable")

	m.ObserveGeneration("alpha", "llama3", 2*time.Second, true, 0)
	m.ObserveGeneration("alpha", "llama3", 5*time.Second, false, 3)
	m.ObserveGeneration("beta", "llama3", time.Second, true, 1)

	if got := testutil.ToFloat64(m.GenerationRequestsTotal.WithLabelValues("alpha", "llama3", "success")); got != 1 {
		t.Errorf("alpha success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.GenerationRequestsTotal.WithLabelValues("alpha", "llama3", "failure")); got != 1 {
		t.Errorf("alpha failure = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.GenerationRetriesTotal.WithLabelValues("llama3")); got != 4 {
		t.Errorf("retries = %v, want 4", got)
	}
	if got := testutil.CollectAndCount(m.GenerationDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestObserveCache(t *testing.T) {
	m := NewMetrics("roundtable")

	m.ObserveCache(true)
	m.ObserveCache(true)
	m.ObserveCache(false)

	if got := testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("hit")); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("miss")); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
}

func TestObserveHealth(t *testing.T) {
	m := NewMetrics("roundtable")

	m.ObserveHealth(health.Report{
		BackendUp: true,
		Models:    map[string]bool{"llama3": true, "phi3": false},
	})

	if got := testutil.ToFloat64(m.BackendUp); got != 1 {
		t.Errorf("backend_up = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ModelAvailable.WithLabelValues("llama3")); got != 1 {
		t.Errorf("llama3 available = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ModelAvailable.WithLabelValues("phi3")); got != 0 {
		t.Errorf("phi3 available = %v, want 0", got)
	}

	m.ObserveHealth(health.Report{BackendUp: false})
	if got := testutil.ToFloat64(m.BackendUp); got != 0 {
		t.Errorf("backend_up = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.HealthChecks); got != 2 {
		t.Errorf("health checks = %v, want 2", got)
	}
}

func TestMonitorFeedsMetrics(t *testing.T) {
	m := NewMetrics("roundtable")
	monitor := perf.NewMonitor(m)

	monitor.Record("alpha", "llama3", time.Second, true, 0)
	monitor.CacheHit()

	if got := testutil.ToFloat64(m.GenerationRequestsTotal.WithLabelValues("alpha", "llama3", "success")); got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("hit")); got != 1 {
		t.Errorf("hits = %v, want 1", got)
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics("roundtable")

	m.ObserveGeneration("alpha", "llama3", time.Second, true, 1)
	m.ObserveCache(false)
	m.ObserveHealth(health.Report{BackendUp: true, Models: map[string]bool{"llama3": true}})
	m.ObserveMeeting("DONE")

	handler := m.Handler()
	if handler == nil {
		t.Fatal("Handler returned nil")
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	body := w.Body.String()
	expectedMetrics := []string{
		"roundtable_generation_requests_total",
		"roundtable_generation_duration_seconds",
		"roundtable_generation_retries_total",
		"roundtable_cache_lookups_total",
		"roundtable_backend_up",
		"roundtable_model_available",
		"roundtable_health_checks_total",
		"roundtable_meetings_total",
	}
	for _, metric := range expectedMetrics {
		if !strings.Contains(body, metric) {
			t.Errorf("Metrics output missing: %s", metric)
		}
	}
}

func TestMetricsRegistry(t *testing.T) {
	m := NewMetrics("")

	m.ObserveGeneration("alpha", "llama3", time.Second, true, 1)
	m.ObserveCache(true)
	m.ObserveHealth(health.Report{BackendUp: true, Models: map[string]bool{"llama3": true}})
	m.ObserveMeeting("DONE")

	metricFamilies, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	metricNames := make(map[string]bool)
	for _, mf := range metricFamilies {
		metricNames[mf.GetName()] = true
	}

	expectedCount := 8
	if len(metricNames) != expectedCount {
		t.Errorf("Expected %d metrics, got %d", expectedCount, len(metricNames))
	}
	if !metricNames["generation_requests_total"] {
		t.Error("empty namespace should leave names unprefixed")
	}
}
