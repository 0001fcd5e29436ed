package generation

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited bounds the request rate to a backend. Waiting for a token is
// part of the attempt, so it counts against the request timeout.
type RateLimited struct {
	next    Generator
	limiter *rate.Limiter
}

// NewRateLimited wraps gen with a token bucket of rps requests per second
func NewRateLimited(gen Generator, rps float64, burst int) *RateLimited {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{
		next:    gen,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Provider returns the wrapped provider name
func (r *RateLimited) Provider() string {
	return r.next.Provider()
}

// Generate waits for a token and delegates one call
func (r *RateLimited) Generate(ctx context.Context, req Request) (string, error) {
	waitCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}
	if err := r.limiter.Wait(waitCtx); err != nil {
		return "", classify(waitCtx, r.Provider(), req.Model, err)
	}
	return r.next.Generate(ctx, req)
}

// ListModels delegates when the wrapped backend supports listing
func (r *RateLimited) ListModels(ctx context.Context) ([]string, error) {
	if lister, ok := r.next.(ModelLister); ok {
		return lister.ListModels(ctx)
	}
	return nil, ErrUnsupportedProvider
}

// PullModel delegates when the wrapped backend supports pulling
func (r *RateLimited) PullModel(ctx context.Context, model string) error {
	if puller, ok := r.next.(ModelPuller); ok {
		return puller.PullModel(ctx, model)
	}
	return ErrUnsupportedProvider
}
