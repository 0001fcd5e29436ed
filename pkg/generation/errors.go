package generation

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTimeout indicates the backend did not answer within the request timeout
	ErrTimeout = errors.New("generation timed out")

	// ErrBackend indicates the backend rejected or failed the request
	ErrBackend = errors.New("generation backend error")

	// ErrEmptyResponse indicates the backend answered with blank text
	ErrEmptyResponse = errors.New("generation returned empty response")

	// ErrUnsupportedProvider is returned by the factory for unknown providers
	ErrUnsupportedProvider = errors.New("unsupported provider")
)

// Error wraps a failed generation attempt with its provider and model.
type Error struct {
	Provider string
	Model    string
	Kind     error
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provider %s model %s: %v", e.Provider, e.Model, e.Kind)
	}
	return fmt.Sprintf("provider %s model %s: %v: %v", e.Provider, e.Model, e.Kind, e.Err)
}

// Unwrap exposes both the failure kind and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// classify maps a raw backend error to one of the generation failure kinds.
func classify(ctx context.Context, provider, model string, err error) error {
	kind := ErrBackend
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		kind = ErrTimeout
	}
	return &Error{Provider: provider, Model: model, Kind: kind, Err: err}
}

// IsTimeout reports whether err is a generation timeout
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
