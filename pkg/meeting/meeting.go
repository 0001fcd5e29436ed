package meeting

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/harun/roundtable/internal/tracing"
	"github.com/harun/roundtable/pkg/extract"
	"github.com/harun/roundtable/pkg/health"
	"github.com/harun/roundtable/pkg/persona"
	"github.com/harun/roundtable/pkg/retry"
	"github.com/harun/roundtable/pkg/transcript"
	"github.com/harun/roundtable/pkg/vote"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "roundtable.meeting"

const (
	DefaultMaxRounds      = 3
	DefaultSummaryTimeout = 15 * time.Second
	DefaultVoteTimeout    = 10 * time.Second
	DefaultWarmUpTimeout  = 30 * time.Second
)

// errExit unwinds the phases when the participant leaves
var errExit = errors.New("participant exited")

// Requester answers generation calls. It must always return a Result.
type Requester interface {
	Generate(ctx context.Context, call retry.Call) retry.Result
}

// HealthReporter produces an advisory health report before the meeting
type HealthReporter interface {
	Report(ctx context.Context, required []string) health.Report
}

// TranscriptSink persists transcript entries as they are produced
type TranscriptSink interface {
	Append(ctx context.Context, meetingID string, entries ...transcript.Entry) error
}

// MetricsSaver flushes performance metrics when a meeting ends
type MetricsSaver interface {
	Save(path string) error
}

// Config configures a Meeting
type Config struct {
	ID     string
	Title  string
	Agenda string

	Roster    *persona.Roster
	Requester Requester
	Decider   Decider

	Health      HealthReporter
	Transcripts TranscriptSink
	Metrics     MetricsSaver
	PerfLogPath string

	MaxRounds int
	// Parallelism bounds concurrent persona calls per round. 1 is sequential.
	Parallelism int
	// MaxRetries is passed to every call. 0 disables retries.
	MaxRetries     int
	Timeout        time.Duration
	SummaryTimeout time.Duration
	VoteTimeout    time.Duration
	WarmUpTimeout  time.Duration

	WarmUp bool
	// UserQuestions frame the meeting. Nil uses DefaultUserQuestions; an
	// empty non-nil slice skips them along with the free-text question.
	UserQuestions []UserQuestion
	// AskUser lets one discussant per round put a question to the user
	AskUser bool
	// PeerQuestions lets one discussant per round raise a point with the
	// others. The first substantive option is taken as their answer.
	PeerQuestions bool
	Ballot        vote.Options

	// ActionItems adds a synthesis call after the vote that turns the
	// discussion into concrete recommendations
	ActionItems bool
	// ActionModel runs the synthesis. Empty uses the final reviewer's model,
	// or the first persona's when there is no final reviewer.
	ActionModel string

	Now    func() time.Time
	Logger zerolog.Logger
}

// Outcome summarizes a finished meeting
type Outcome struct {
	MeetingID string
	State     State
	// Exited is set when the participant left at a prompt
	Exited      bool
	Rounds      int
	FinalReview string
	// Recommendations maps persona ID to its summary, abstentions included
	Recommendations map[string]string
	Ballot          []string
	ExternalVote    string
	Tally           vote.Result
	// Actions is set when ActionItems is enabled and the vote phase completed
	Actions    *ActionPlan
	Transcript []transcript.Entry
}

// ActionPlan is the synthesized list of next steps
type ActionPlan struct {
	Items []extract.Action
	// Text is the raw synthesis response
	Text   string
	Failed bool
}

// Meeting runs one deliberation. A Meeting is single-use.
type Meeting struct {
	cfg    Config
	id     string
	roster *persona.Roster
	memory *Memory
	logger zerolog.Logger

	mu         sync.RWMutex
	state      State
	entries    []transcript.Entry
	userCtx    UserContext
	rounds     int
	outcome    *Outcome
	hasStarted bool
}

// New validates cfg and creates a Meeting in state INIT
func New(cfg Config) (*Meeting, error) {
	if cfg.Roster == nil || cfg.Roster.Len() == 0 {
		return nil, persona.ErrNoPersonas
	}
	if cfg.Requester == nil {
		return nil, fmt.Errorf("requester is required")
	}
	if cfg.Decider == nil {
		return nil, fmt.Errorf("decider is required")
	}

	if cfg.ID == "" {
		cfg.ID = tracing.NewMeetingID()
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = retry.DefaultTimeout
	}
	if cfg.SummaryTimeout <= 0 {
		cfg.SummaryTimeout = DefaultSummaryTimeout
	}
	if cfg.VoteTimeout <= 0 {
		cfg.VoteTimeout = DefaultVoteTimeout
	}
	if cfg.WarmUpTimeout <= 0 {
		cfg.WarmUpTimeout = DefaultWarmUpTimeout
	}
	if cfg.UserQuestions == nil {
		cfg.UserQuestions = DefaultUserQuestions
	}
	if cfg.Ballot == (vote.Options{}) {
		cfg.Ballot = vote.DefaultOptions()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Meeting{
		cfg:     cfg,
		id:      cfg.ID,
		roster:  cfg.Roster,
		memory:  NewMemory(),
		logger:  cfg.Logger.With().Str("meeting_id", cfg.ID).Logger(),
		state:   StateInit,
		userCtx: UserContext{Title: cfg.Title, Agenda: cfg.Agenda},
	}, nil
}

// ID returns the meeting ID
func (m *Meeting) ID() string {
	return m.id
}

// State returns the current phase
func (m *Meeting) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Meeting) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Transcript returns a copy of the entries recorded so far
func (m *Meeting) Transcript() []transcript.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]transcript.Entry(nil), m.entries...)
}

// Memory returns the meeting's full history
func (m *Meeting) Memory() *Memory {
	return m.memory
}

// Context returns the meeting context shared with every persona
func (m *Meeting) Context() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userCtx.Summary()
}

// Run drives the meeting to DONE or FAILED. The returned Outcome is never nil.
// Errors are always *PhaseError.
func (m *Meeting) Run(ctx context.Context) (outcome *Outcome, err error) {
	m.mu.Lock()
	if m.hasStarted {
		m.mu.Unlock()
		return &Outcome{MeetingID: m.id, State: m.State()}, &PhaseError{Phase: StateInit, Err: fmt.Errorf("meeting %s already ran", m.id)}
	}
	m.hasStarted = true
	m.outcome = &Outcome{MeetingID: m.id, Recommendations: make(map[string]string)}
	m.mu.Unlock()

	ctx = tracing.NewMeetingContext(ctx, m.id)
	logger := tracing.LoggerFromContext(ctx, m.logger)
	outcome = m.outcome

	defer func() {
		if r := recover(); r != nil {
			phase := m.State()
			logger.Error().
				Str("phase", string(phase)).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Meeting phase panicked")
			err = &PhaseError{Phase: phase, Err: fmt.Errorf("panic: %v", r)}
		}

		switch {
		case err == nil:
			m.setState(StateDone)
		case errors.Is(err, errExit):
			err = nil
			outcome.Exited = true
			m.setState(StateDone)
			logger.Info().Msg("Participant exited the meeting")
		default:
			m.setState(StateFailed)
			logger.Error().Err(err).Msg("Meeting failed")
		}

		m.flushMetrics(logger)
		outcome.State = m.State()
		outcome.Transcript = m.Transcript()
		m.mu.RLock()
		outcome.Rounds = m.rounds
		m.mu.RUnlock()
	}()

	logger.Info().
		Str("title", m.cfg.Title).
		Int("personas", m.roster.Len()).
		Int("max_rounds", m.cfg.MaxRounds).
		Msg("Meeting started")

	steps := []struct {
		state State
		run   func(context.Context) error
	}{
		{StateInit, m.runInit},
		{StatePrep, m.runPrep},
		{StateDiscuss, m.runDiscussion},
		{StateConclude, m.runConclusion},
		{StateVote, m.runVote},
	}
	for _, step := range steps {
		if err := m.phase(ctx, step.state, step.run); err != nil {
			return outcome, err
		}
	}

	logger.Info().Int("rounds", m.rounds).Str("winner", outcome.Tally.Winner).Msg("Meeting finished")
	return outcome, nil
}

func (m *Meeting) phase(ctx context.Context, state State, run func(context.Context) error) error {
	m.setState(state)
	ctx = tracing.WithPhase(ctx, string(state))
	ctx, span := tracing.StartSpan(ctx, tracerName, "meeting.phase",
		attribute.String("phase", string(state)),
	)
	defer span.End()

	logger := tracing.LoggerFromContext(ctx, m.logger)
	logger.Debug().Msg("Entering phase")

	if err := ctx.Err(); err != nil {
		tracing.RecordError(span, err)
		return &PhaseError{Phase: state, Err: err}
	}
	if err := run(ctx); err != nil {
		if errors.Is(err, errExit) {
			return err
		}
		tracing.RecordError(span, err)
		return &PhaseError{Phase: state, Err: err}
	}
	return nil
}

func (m *Meeting) flushMetrics(logger zerolog.Logger) {
	if m.cfg.Metrics == nil || m.cfg.PerfLogPath == "" {
		return
	}
	if err := m.cfg.Metrics.Save(m.cfg.PerfLogPath); err != nil {
		logger.Warn().Err(err).Str("path", m.cfg.PerfLogPath).Msg("Failed to save performance metrics")
	}
}

// appendEntries records entries in order and persists them when a sink is set
func (m *Meeting) appendEntries(ctx context.Context, entries ...transcript.Entry) {
	if len(entries) == 0 {
		return
	}

	m.mu.Lock()
	m.entries = append(m.entries, entries...)
	m.mu.Unlock()

	if m.cfg.Transcripts == nil {
		return
	}
	if err := m.cfg.Transcripts.Append(ctx, m.id, entries...); err != nil {
		logger := tracing.LoggerFromContext(ctx, m.logger)
		logger.Warn().Err(err).Msg("Failed to persist transcript entries")
	}
}
