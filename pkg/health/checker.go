// Package health checks the generation backend and reports which models are installed.
// Results are advisory: nothing here blocks a meeting.
package health

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/harun/roundtable/pkg/generation"
	"github.com/rs/zerolog"
)

const (
	DefaultCheckTimeout = 5 * time.Second
	DefaultListTimeout  = 10 * time.Second
)

// ErrPullUnsupported is returned by Pull for backends that cannot fetch models
var ErrPullUnsupported = errors.New("backend does not support pulling models")

// Report is a point-in-time view of system health
type Report struct {
	BackendUp    bool            `json:"backend_up"`
	Models       map[string]bool `json:"models"`
	CacheReady   bool            `json:"cache_ready"`
	PerfLogReady bool            `json:"perf_log_ready"`
	CheckedAt    time.Time       `json:"checked_at"`
}

// Healthy reports whether the backend is up and at least one required model is available
func (r Report) Healthy() bool {
	if !r.BackendUp {
		return false
	}
	for _, ok := range r.Models {
		if ok {
			return true
		}
	}
	return false
}

// Missing returns the unavailable models in sorted order
func (r Report) Missing() []string {
	var missing []string
	for model, ok := range r.Models {
		if !ok {
			missing = append(missing, model)
		}
	}
	sort.Strings(missing)
	return missing
}

// Observer receives every report produced by a Checker
type Observer interface {
	ObserveHealth(r Report)
}

// Config configures a Checker
type Config struct {
	Backend      generation.ModelLister
	CheckTimeout time.Duration
	ListTimeout  time.Duration
	// CacheReady reports whether the response cache is usable. Optional.
	CacheReady  func(ctx context.Context) bool
	PerfLogPath string
	Observer    Observer
	Logger      zerolog.Logger
}

// Checker runs health checks against a backend
type Checker struct {
	backend      generation.ModelLister
	checkTimeout time.Duration
	listTimeout  time.Duration
	cacheReady   func(ctx context.Context) bool
	perfLogPath  string
	observer     Observer
	logger       zerolog.Logger
	now          func() time.Time
}

// NewChecker creates a Checker
func NewChecker(cfg Config) (*Checker, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = DefaultCheckTimeout
	}
	if cfg.ListTimeout <= 0 {
		cfg.ListTimeout = DefaultListTimeout
	}
	return &Checker{
		backend:      cfg.Backend,
		checkTimeout: cfg.CheckTimeout,
		listTimeout:  cfg.ListTimeout,
		cacheReady:   cfg.CacheReady,
		perfLogPath:  cfg.PerfLogPath,
		observer:     cfg.Observer,
		logger:       cfg.Logger,
		now:          time.Now,
	}, nil
}

// CheckBackend reports whether the backend answers a listing within the check timeout
func (c *Checker) CheckBackend(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	if _, err := c.backend.ListModels(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Generation backend is not reachable")
		return false
	}
	return true
}

// CheckModels reports availability of each required model. A listing failure marks all unavailable.
func (c *Checker) CheckModels(ctx context.Context, required []string) map[string]bool {
	status := make(map[string]bool, len(required))
	for _, model := range required {
		status[model] = false
	}

	ctx, cancel := context.WithTimeout(ctx, c.listTimeout)
	defer cancel()

	installed, err := c.backend.ListModels(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Model listing failed")
		return status
	}

	for _, model := range required {
		status[model] = Available(installed, model)
	}
	return status
}

// Available reports whether model appears in installed, either exactly or
// as an untagged name matching a tagged listing ("llama3" matches "llama3:latest").
func Available(installed []string, model string) bool {
	for _, name := range installed {
		if name == model || strings.HasPrefix(name, model+":") {
			return true
		}
	}
	return false
}

// Report gathers the full health picture
func (c *Checker) Report(ctx context.Context, required []string) Report {
	r := Report{
		BackendUp: c.CheckBackend(ctx),
		CheckedAt: c.now(),
	}
	if r.BackendUp {
		r.Models = c.CheckModels(ctx, required)
	} else {
		r.Models = make(map[string]bool, len(required))
		for _, model := range required {
			r.Models[model] = false
		}
	}
	if c.cacheReady != nil {
		r.CacheReady = c.cacheReady(ctx)
	}
	if c.perfLogPath != "" {
		_, err := os.Stat(c.perfLogPath)
		r.PerfLogReady = err == nil
	}

	if missing := r.Missing(); len(missing) > 0 {
		c.logger.Warn().Strs("models", missing).Msg("Required models are not available")
	}
	if c.observer != nil {
		c.observer.ObserveHealth(r)
	}
	return r
}

// Pull fetches each model the backend does not already have. It blocks until
// every pull finishes and is not subject to per-call generation timeouts.
func (c *Checker) Pull(ctx context.Context, models []string) error {
	puller, ok := c.backend.(generation.ModelPuller)
	if !ok {
		return ErrPullUnsupported
	}

	installed, err := c.backend.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	var errs []error
	for _, model := range models {
		if Available(installed, model) {
			continue
		}
		c.logger.Info().Str("model", model).Msg("Pulling model")
		if err := puller.PullModel(ctx, model); err != nil {
			errs = append(errs, fmt.Errorf("pull %s: %w", model, err))
		}
	}
	return errors.Join(errs...)
}
