package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/harun/roundtable/internal/tracing"
	"github.com/harun/roundtable/pkg/commandqueue"
	"github.com/harun/roundtable/pkg/generation"
	"github.com/harun/roundtable/pkg/respcache"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "roundtable.retry"

// Sentinel is returned as the response text when every attempt failed
const Sentinel = "Response failed after multiple retries."

const (
	// DefaultTimeout bounds a single attempt when the call sets none
	DefaultTimeout = 10 * time.Second
	// DefaultMaxRetries is the number of retries after the first attempt
	DefaultMaxRetries = 3
	// DefaultBackoffBase scales the 2^attempt + jitter backoff
	DefaultBackoffBase = time.Second
)

// Cache is the response cache consulted before every request
type Cache interface {
	Get(ctx context.Context, prompt, model string) (string, bool)
	Set(ctx context.Context, prompt, model, text string)
}

// Recorder receives request outcomes
type Recorder interface {
	Record(persona, model string, duration time.Duration, success bool, retries int)
	CacheHit()
	CacheMiss()
}

// Call describes one logical generation request
type Call struct {
	PersonaID  string
	Prompt     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// Result is the outcome of a Call
type Result struct {
	Text     string
	Attempts int
	Cached   bool
	Failed   bool
	Duration time.Duration
}

// Config configures an Orchestrator
type Config struct {
	Generator generation.Generator
	Cache     Cache
	Monitor   Recorder
	// Queue serializes identical requests. Optional.
	Queue *commandqueue.CommandQueue

	BackoffBase time.Duration
	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Jitter returns a value in [0,1). Defaults to math/rand.
	Jitter func() float64
	Now    func() time.Time
	Logger zerolog.Logger
}

// Orchestrator runs generation calls with caching and retry
type Orchestrator struct {
	gen         generation.Generator
	cache       Cache
	monitor     Recorder
	queue       *commandqueue.CommandQueue
	backoffBase time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	jitter      func() float64
	now         func() time.Time
	logger      zerolog.Logger
}

// New creates an Orchestrator
func New(cfg Config) *Orchestrator {
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if cfg.Jitter == nil {
		cfg.Jitter = rand.Float64
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{
		gen:         cfg.Generator,
		cache:       cfg.Cache,
		monitor:     cfg.Monitor,
		queue:       cfg.Queue,
		backoffBase: cfg.BackoffBase,
		sleep:       cfg.Sleep,
		jitter:      cfg.Jitter,
		now:         cfg.Now,
		logger:      cfg.Logger,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Backoff returns the wait after the given 0-based attempt: base * (2^attempt + jitter)
func Backoff(base time.Duration, attempt int, jitter float64) time.Duration {
	return time.Duration((math.Pow(2, float64(attempt)) + jitter) * float64(base))
}

// Generate answers call from the cache or the backend. It always returns a Result.
func (o *Orchestrator) Generate(ctx context.Context, call Call) Result {
	if call.Timeout <= 0 {
		call.Timeout = DefaultTimeout
	}
	if call.MaxRetries < 0 {
		call.MaxRetries = 0
	}

	if o.queue == nil {
		return o.generate(ctx, call)
	}

	lane := "generate:" + respcache.Digest(call.Prompt, call.Model)
	value, err := o.queue.Enqueue(ctx, lane, func(ctx context.Context) (any, error) {
		return o.generate(ctx, call), nil
	})
	if err != nil {
		o.logger.Warn().Err(err).Str("persona", call.PersonaID).Msg("Generation request abandoned before it ran")
		return Result{Text: Sentinel, Failed: true}
	}
	return value.(Result)
}

func (o *Orchestrator) generate(ctx context.Context, call Call) Result {
	ctx, span := tracing.StartSpan(ctx, tracerName, "retry.generate",
		attribute.String("model", call.Model),
		attribute.Int("max_retries", call.MaxRetries),
	)
	defer span.End()

	logger := tracing.LoggerFromContext(ctx, o.logger).With().Str("model", call.Model).Logger()
	start := o.now()

	if o.cache != nil {
		if text, ok := o.cache.Get(ctx, call.Prompt, call.Model); ok {
			o.cacheHit()
			span.SetAttributes(attribute.Bool("cached", true))
			logger.Debug().Msg("Response served from cache")
			return Result{Text: text, Cached: true, Duration: o.now().Sub(start)}
		}
		o.cacheMiss()
	}

	attempts := 0
	for attempt := 0; attempt <= call.MaxRetries; attempt++ {
		attempts++
		text, err := o.attempt(ctx, call, attempt)
		if err == nil {
			duration := o.now().Sub(start)
			if o.cache != nil {
				o.cache.Set(ctx, call.Prompt, call.Model, text)
			}
			o.record(call, duration, true, attempt)
			span.SetAttributes(attribute.Int("attempts", attempts))
			return Result{Text: text, Attempts: attempts, Duration: duration}
		}

		logger.Warn().
			Err(err).
			Str("failure", failureKind(err)).
			Int("attempt", attempt+1).
			Int("max_attempts", call.MaxRetries+1).
			Msg("Generation attempt failed")

		if attempt == call.MaxRetries {
			break
		}

		wait := Backoff(o.backoffBase, attempt, o.jitter())
		if err := o.sleep(ctx, wait); err != nil {
			logger.Warn().Err(err).Msg("Retry loop cancelled during backoff")
			break
		}
	}

	duration := o.now().Sub(start)
	o.record(call, duration, false, attempts-1)
	span.SetAttributes(attribute.Int("attempts", attempts))
	logger.Error().Int("attempts", attempts).Msg("All generation attempts failed")

	return Result{Text: Sentinel, Attempts: attempts, Failed: true, Duration: duration}
}

func (o *Orchestrator) attempt(ctx context.Context, call Call, attempt int) (string, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "generation.attempt",
		attribute.Int("attempt", attempt),
	)
	defer span.End()

	text, err := o.gen.Generate(ctx, generation.Request{
		Prompt:  call.Prompt,
		Model:   call.Model,
		Timeout: call.Timeout,
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = &generation.Error{Provider: o.gen.Provider(), Model: call.Model, Kind: generation.ErrEmptyResponse}
	}
	tracing.RecordError(span, err)
	return text, err
}

// failureKind labels a failed attempt for logs
func failureKind(err error) string {
	switch {
	case generation.IsTimeout(err):
		return "timeout"
	case errors.Is(err, generation.ErrEmptyResponse):
		return "empty"
	default:
		return "backend"
	}
}

func (o *Orchestrator) record(call Call, duration time.Duration, success bool, retries int) {
	if o.monitor != nil {
		o.monitor.Record(call.PersonaID, call.Model, duration, success, retries)
	}
}

func (o *Orchestrator) cacheHit() {
	if o.monitor != nil {
		o.monitor.CacheHit()
	}
}

func (o *Orchestrator) cacheMiss() {
	if o.monitor != nil {
		o.monitor.CacheMiss()
	}
}
