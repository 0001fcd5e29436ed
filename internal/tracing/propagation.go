package tracing

import (
	"context"

	"github.com/rs/zerolog"
)

// ForPersona scopes ctx to one persona's turn within the current meeting phase
func ForPersona(ctx context.Context, personaID string) context.Context {
	if GetTraceID(ctx) == "" {
		ctx = WithTraceID(ctx, NewTraceID())
	}
	return WithPersonaID(ctx, personaID)
}

// PropagateToLogger adds tracing context to a zerolog logger
func PropagateToLogger(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	tc := FromContext(ctx)

	if tc.TraceID != "" {
		logger = logger.With().Str("trace_id", tc.TraceID).Logger()
	}
	if tc.MeetingID != "" {
		logger = logger.With().Str("meeting_id", tc.MeetingID).Logger()
	}
	if tc.PersonaID != "" {
		logger = logger.With().Str("persona_id", tc.PersonaID).Logger()
	}
	if tc.Phase != "" {
		logger = logger.With().Str("phase", tc.Phase).Logger()
	}

	return logger
}

// LoggerFromContext creates a logger with tracing context from the given context
func LoggerFromContext(ctx context.Context, baseLogger zerolog.Logger) zerolog.Logger {
	return PropagateToLogger(ctx, baseLogger)
}

// MergeContext copies tracing values missing from target out of source.
// Useful when a detached context must keep the caller's identifiers.
func MergeContext(target, source context.Context) context.Context {
	tc := FromContext(source)

	if tc.TraceID != "" && GetTraceID(target) == "" {
		target = WithTraceID(target, tc.TraceID)
	}
	if tc.MeetingID != "" && GetMeetingID(target) == "" {
		target = WithMeetingID(target, tc.MeetingID)
	}
	if tc.PersonaID != "" && GetPersonaID(target) == "" {
		target = WithPersonaID(target, tc.PersonaID)
	}
	if tc.Phase != "" && GetPhase(target) == "" {
		target = WithPhase(target, tc.Phase)
	}

	return target
}

// CloneContext creates a new background context with the same tracing information
func CloneContext(ctx context.Context) context.Context {
	return NewContext(context.Background(), FromContext(ctx))
}
