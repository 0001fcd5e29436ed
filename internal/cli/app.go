package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harun/roundtable/internal/config"
	"github.com/harun/roundtable/internal/logger"
	"github.com/harun/roundtable/internal/metrics"
	"github.com/harun/roundtable/pkg/commandqueue"
	"github.com/harun/roundtable/pkg/generation"
	"github.com/harun/roundtable/pkg/health"
	"github.com/harun/roundtable/pkg/meeting"
	"github.com/harun/roundtable/pkg/perf"
	"github.com/harun/roundtable/pkg/persona"
	"github.com/harun/roundtable/pkg/respcache"
	"github.com/harun/roundtable/pkg/retry"
	"github.com/harun/roundtable/pkg/transcript"
	"github.com/harun/roundtable/pkg/vote"
	"github.com/rs/zerolog"
)

// AppOptions overrides parts of the wiring
type AppOptions struct {
	// Generator replaces the configured backend
	Generator generation.Generator
	// Console enables stderr logging
	Console bool
}

// App holds every long-lived component a command needs
type App struct {
	Config *config.Config
	Log    zerolog.Logger

	logs        *logger.Logger
	Generator   generation.Generator
	Cache       *respcache.Cache
	Monitor     *perf.Monitor
	Metrics     *metrics.Metrics
	Queue       *commandqueue.CommandQueue
	Retry       *retry.Orchestrator
	Health      *health.Checker
	Personas    persona.Source
	Transcripts *transcript.Store
}

// NewApp builds the component graph described by cfg
func NewApp(cfg *config.Config, opts AppOptions) (*App, error) {
	logs, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   opts.Console,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	app := &App{
		Config: cfg,
		Log:    logs.Zerolog(),
		logs:   logs,
	}

	app.Generator = opts.Generator
	if app.Generator == nil {
		app.Generator, err = generation.NewGenerator(generation.BackendConfig{
			Provider:       cfg.Backend.Provider,
			BaseURL:        cfg.Backend.BaseURL,
			APIKey:         cfg.Backend.APIKey,
			MaxTokens:      cfg.Backend.MaxTokens,
			RequestsPerSec: cfg.Backend.RequestsPerSec,
			Burst:          cfg.Backend.Burst,
		})
		if err != nil {
			app.Close()
			return nil, err
		}
	}

	app.Metrics = metrics.NewMetrics(cfg.Metrics.Namespace)
	app.Monitor = perf.NewMonitor(app.Metrics)
	app.Queue = commandqueue.New(logs.Component("commandqueue"))

	if cfg.Cache.Enabled {
		store := respcache.OpenStore(cfg.Cache.Path, cfg.Cache.MemorySize, logs.Component("respcache"))
		app.Cache = respcache.New(respcache.Config{
			Store:  store,
			TTL:    cfg.Cache.TTL(),
			Logger: logs.Component("respcache"),
		})
	}

	retryCfg := retry.Config{
		Generator:   app.Generator,
		Monitor:     app.Monitor,
		Queue:       app.Queue,
		BackoffBase: cfg.Meeting.BackoffBase(),
		Logger:      logs.Component("retry"),
	}
	if app.Cache != nil {
		retryCfg.Cache = app.Cache
	}
	app.Retry = retry.New(retryCfg)

	if lister, ok := app.Generator.(generation.ModelLister); ok {
		healthCfg := health.Config{
			Backend:      lister,
			CheckTimeout: seconds(cfg.Health.CheckTimeoutSeconds),
			ListTimeout:  seconds(cfg.Health.ListTimeoutSeconds),
			PerfLogPath:  cfg.Metrics.PerfLog,
			Observer:     app.Metrics,
			Logger:       logs.Component("health"),
		}
		if app.Cache != nil {
			healthCfg.CacheReady = app.Cache.Ready
		}
		app.Health, err = health.NewChecker(healthCfg)
		if err != nil {
			app.Close()
			return nil, err
		}
	}

	app.Personas = persona.NewDirSource(
		cfg.Personas.Dir,
		cfg.Personas.DefaultModel,
		cfg.Personas.FinalReviewer,
		cfg.Personas.ModelMap,
		logs.Component("persona"),
	)

	if cfg.Meeting.SaveTranscripts {
		app.Transcripts, err = transcript.New(cfg.TranscriptDir(), logs.Component("transcript"))
		if err != nil {
			app.Close()
			return nil, err
		}
	}

	return app, nil
}

// MeetingConfig returns the meeting settings for one deliberation over roster
func (a *App) MeetingConfig(title, agenda string, roster *persona.Roster, decider meeting.Decider) meeting.Config {
	m := a.Config.Meeting
	mc := meeting.Config{
		Title:          title,
		Agenda:         agenda,
		Roster:         roster,
		Requester:      a.Retry,
		Decider:        decider,
		Metrics:        a.Monitor,
		PerfLogPath:    a.Config.Metrics.PerfLog,
		MaxRounds:      m.MaxRounds,
		Parallelism:    m.Parallelism,
		MaxRetries:     m.MaxRetries,
		Timeout:        m.Timeout(),
		SummaryTimeout: m.SummaryTimeout(),
		VoteTimeout:    m.VoteTimeout(),
		WarmUpTimeout:  m.WarmUpTimeout(),
		WarmUp:         m.WarmUp,
		AskUser:        m.AskUser,
		PeerQuestions:  m.PeerQuestions,
		ActionItems:    m.ActionItems,
		ActionModel:    m.ActionModel,
		Ballot: vote.Options{
			MinLength: m.MinRecommendation,
			Size:      m.BallotSize,
			MinSize:   m.BallotMinSize,
		},
		Logger: a.logs.Component("meeting"),
	}
	if !m.UserQuestions {
		mc.UserQuestions = []meeting.UserQuestion{}
	}
	if a.Health != nil {
		mc.Health = a.Health
	}
	if a.Transcripts != nil {
		mc.Transcripts = a.Transcripts
	}
	return mc
}

// Roster loads the current persona roster
func (a *App) Roster(ctx context.Context) (*persona.Roster, error) {
	roster, err := a.Personas.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load personas from %s: %w", a.Config.Personas.Dir, err)
	}
	return roster, nil
}

// Close releases files and background workers
func (a *App) Close() error {
	var errs []error
	if a.Queue != nil {
		errs = append(errs, a.Queue.Close())
	}
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.logs != nil {
		errs = append(errs, a.logs.Close())
	}
	return errors.Join(errs...)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
