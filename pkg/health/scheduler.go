package health

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultSchedule checks every five minutes
const DefaultSchedule = "*/5 * * * *"

// Scheduler runs health reports on a cron schedule and keeps the latest one
type Scheduler struct {
	checker  *Checker
	required func() []string
	cron     *cron.Cron
	logger   zerolog.Logger

	mu     sync.RWMutex
	latest *Report
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a Scheduler. required is called on every run so that
// roster reloads change which models are checked.
func NewScheduler(checker *Checker, schedule string, required func() []string, logger zerolog.Logger) (*Scheduler, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		checker:  checker,
		required: required,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor))),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	if _, err := s.cron.AddFunc(schedule, func() { s.RunNow(s.ctx) }); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid health schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins scheduled checks
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Msg("Health scheduler started")
}

// Stop halts checking and waits for a running check to finish
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Health scheduler stopped")
}

// RunNow produces a report immediately and stores it as the latest
func (s *Scheduler) RunNow(ctx context.Context) Report {
	r := s.checker.Report(ctx, s.required())

	s.mu.Lock()
	s.latest = &r
	s.mu.Unlock()

	s.logger.Debug().Bool("backend_up", r.BackendUp).Bool("healthy", r.Healthy()).Msg("Health check completed")
	return r
}

// Latest returns the most recent report, if any
func (s *Scheduler) Latest() (Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return Report{}, false
	}
	return *s.latest, true
}
