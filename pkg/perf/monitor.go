// Package perf aggregates latency and success telemetry for generation calls.
package perf

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Sink receives every observation recorded by a Monitor
type Sink interface {
	ObserveGeneration(persona, model string, duration time.Duration, success bool, retries int)
	ObserveCache(hit bool)
}

// Stats is the running breakdown for one persona or model
type Stats struct {
	Requests    int     `json:"requests"`
	Successes   int     `json:"successes"`
	AvgTime     float64 `json:"avg_time"`
	SuccessRate float64 `json:"success_rate"`
}

func (s *Stats) record(seconds float64, success bool) {
	s.Requests++
	if success {
		s.Successes++
	}
	s.AvgTime += (seconds - s.AvgTime) / float64(s.Requests)
	s.SuccessRate = float64(s.Successes) / float64(s.Requests)
}

// Snapshot is a point-in-time copy of the collected metrics
type Snapshot struct {
	TotalRequests       int               `json:"total_requests"`
	SuccessfulRequests  int               `json:"successful_requests"`
	FailedRequests      int               `json:"failed_requests"`
	RetryCount          int               `json:"retry_count"`
	AverageResponseTime float64           `json:"average_response_time"`
	PersonaPerformance  map[string]*Stats `json:"persona_performance"`
	ModelPerformance    map[string]*Stats `json:"model_performance"`
	CacheHits           int               `json:"cache_hits"`
	CacheMisses         int               `json:"cache_misses"`
}

// SuccessRate returns successful/total, 0 when nothing was recorded
func (s Snapshot) SuccessRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.SuccessfulRequests) / float64(s.TotalRequests)
}

// CacheHitRate returns hits/(hits+misses), 0 when nothing was looked up
func (s Snapshot) CacheHitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total)
}

// Monitor is a goroutine-safe metrics aggregator
type Monitor struct {
	mu    sync.Mutex
	data  Snapshot
	sinks []Sink
	now   func() time.Time
}

// NewMonitor creates an empty Monitor mirroring records into sinks
func NewMonitor(sinks ...Sink) *Monitor {
	return &Monitor{
		data: Snapshot{
			PersonaPerformance: make(map[string]*Stats),
			ModelPerformance:   make(map[string]*Stats),
		},
		sinks: sinks,
		now:   time.Now,
	}
}

// Record adds one completed generation request
func (m *Monitor) Record(persona, model string, duration time.Duration, success bool, retries int) {
	seconds := duration.Seconds()

	m.mu.Lock()
	d := &m.data
	d.TotalRequests++
	if success {
		d.SuccessfulRequests++
	} else {
		d.FailedRequests++
	}
	d.RetryCount += retries
	d.AverageResponseTime += (seconds - d.AverageResponseTime) / float64(d.TotalRequests)

	statsFor(d.PersonaPerformance, persona).record(seconds, success)
	statsFor(d.ModelPerformance, model).record(seconds, success)
	m.mu.Unlock()

	for _, sink := range m.sinks {
		sink.ObserveGeneration(persona, model, duration, success, retries)
	}
}

func statsFor(m map[string]*Stats, key string) *Stats {
	s, ok := m[key]
	if !ok {
		s = &Stats{}
		m[key] = s
	}
	return s
}

// CacheHit counts a response served from cache
func (m *Monitor) CacheHit() {
	m.mu.Lock()
	m.data.CacheHits++
	m.mu.Unlock()
	for _, sink := range m.sinks {
		sink.ObserveCache(true)
	}
}

// CacheMiss counts a lookup that fell through to the backend
func (m *Monitor) CacheMiss() {
	m.mu.Lock()
	m.data.CacheMisses++
	m.mu.Unlock()
	for _, sink := range m.sinks {
		sink.ObserveCache(false)
	}
}

// Snapshot returns a deep copy of the current metrics
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.data
	out.PersonaPerformance = copyStats(m.data.PersonaPerformance)
	out.ModelPerformance = copyStats(m.data.ModelPerformance)
	return out
}

func copyStats(src map[string]*Stats) map[string]*Stats {
	dst := make(map[string]*Stats, len(src))
	for k, v := range src {
		s := *v
		dst[k] = &s
	}
	return dst
}

// PersonaRank is one line of the ranking in Report
type PersonaRank struct {
	Persona string
	Stats
}

// RankPersonas orders personas by success rate desc, average latency asc, then id
func (s Snapshot) RankPersonas() []PersonaRank {
	ranks := make([]PersonaRank, 0, len(s.PersonaPerformance))
	for id, st := range s.PersonaPerformance {
		ranks = append(ranks, PersonaRank{Persona: id, Stats: *st})
	}
	sort.Slice(ranks, func(i, j int) bool {
		a, b := ranks[i], ranks[j]
		if a.SuccessRate != b.SuccessRate {
			return a.SuccessRate > b.SuccessRate
		}
		if a.AvgTime != b.AvgTime {
			return a.AvgTime < b.AvgTime
		}
		return a.Persona < b.Persona
	})
	return ranks
}

const reportTopPersonas = 5

// Report renders a human-readable summary of the current metrics
func (m *Monitor) Report() string {
	return m.Snapshot().Report()
}

// Report renders a human-readable summary of s
func (s Snapshot) Report() string {
	var b strings.Builder
	b.WriteString("=== Performance Monitoring Report ===\n")
	fmt.Fprintf(&b, "Total Requests: %d\n", s.TotalRequests)
	fmt.Fprintf(&b, "Success Rate: %.1f%%\n", s.SuccessRate()*100)
	fmt.Fprintf(&b, "Average Response Time: %.2fs\n", s.AverageResponseTime)
	fmt.Fprintf(&b, "Total Retries: %d\n", s.RetryCount)
	fmt.Fprintf(&b, "Cache Hit Rate: %.1f%%\n", s.CacheHitRate()*100)
	b.WriteString("\n=== Top Performing Personas ===")

	ranks := s.RankPersonas()
	if len(ranks) > reportTopPersonas {
		ranks = ranks[:reportTopPersonas]
	}
	for _, r := range ranks {
		fmt.Fprintf(&b, "\n%s: %.1f%% success, %.2fs avg", r.Persona, r.SuccessRate*100, r.AvgTime)
	}
	return b.String()
}

// Flush writes a timestamped JSON snapshot to w
func (m *Monitor) Flush(w io.Writer) error {
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	_, err = fmt.Fprintf(w, "\n=== Performance Session %s ===\n%s\n%s\n",
		m.now().Format(time.RFC3339), data, strings.Repeat("=", 50))
	return err
}

// Save appends a snapshot to the performance log at path
func (m *Monitor) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open performance log: %w", err)
	}
	defer f.Close()

	return m.Flush(f)
}
