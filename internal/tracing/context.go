package tracing

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// TraceIDKey is the context key for trace ID
	TraceIDKey ContextKey = "trace_id"
	// MeetingIDKey is the context key for the meeting ID
	MeetingIDKey ContextKey = "meeting_id"
	// PersonaIDKey is the context key for the persona currently speaking
	PersonaIDKey ContextKey = "persona_id"
	// PhaseKey is the context key for the meeting phase
	PhaseKey ContextKey = "phase"
)

// TraceContext holds tracing information
type TraceContext struct {
	TraceID   string
	MeetingID string
	PersonaID string
	Phase     string
}

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// NewMeetingID generates a new meeting ID
func NewMeetingID() string {
	return uuid.New().String()
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithMeetingID adds a meeting ID to the context
func WithMeetingID(ctx context.Context, meetingID string) context.Context {
	return context.WithValue(ctx, MeetingIDKey, meetingID)
}

// WithPersonaID adds a persona ID to the context
func WithPersonaID(ctx context.Context, personaID string) context.Context {
	return context.WithValue(ctx, PersonaIDKey, personaID)
}

// WithPhase adds a meeting phase to the context
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, PhaseKey, phase)
}

func getString(ctx context.Context, key ContextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(ctx context.Context) string {
	return getString(ctx, TraceIDKey)
}

// GetMeetingID retrieves the meeting ID from the context
func GetMeetingID(ctx context.Context) string {
	return getString(ctx, MeetingIDKey)
}

// GetPersonaID retrieves the persona ID from the context
func GetPersonaID(ctx context.Context) string {
	return getString(ctx, PersonaIDKey)
}

// GetPhase retrieves the meeting phase from the context
func GetPhase(ctx context.Context) string {
	return getString(ctx, PhaseKey)
}

// FromContext extracts all tracing information from the context
func FromContext(ctx context.Context) *TraceContext {
	return &TraceContext{
		TraceID:   GetTraceID(ctx),
		MeetingID: GetMeetingID(ctx),
		PersonaID: GetPersonaID(ctx),
		Phase:     GetPhase(ctx),
	}
}

// NewContext creates a new context with tracing information
func NewContext(ctx context.Context, tc *TraceContext) context.Context {
	if tc.TraceID != "" {
		ctx = WithTraceID(ctx, tc.TraceID)
	}
	if tc.MeetingID != "" {
		ctx = WithMeetingID(ctx, tc.MeetingID)
	}
	if tc.PersonaID != "" {
		ctx = WithPersonaID(ctx, tc.PersonaID)
	}
	if tc.Phase != "" {
		ctx = WithPhase(ctx, tc.Phase)
	}
	return ctx
}

// NewMeetingContext starts a trace for a meeting. An empty meetingID gets a fresh one.
func NewMeetingContext(ctx context.Context, meetingID string) context.Context {
	if meetingID == "" {
		meetingID = NewMeetingID()
	}
	if GetTraceID(ctx) == "" {
		ctx = WithTraceID(ctx, NewTraceID())
	}
	return WithMeetingID(ctx, meetingID)
}
