// Package generation performs single calls to an external text-generation backend.
//
// Invariants:
// - Generate performs exactly one backend call: no retry, no caching.
// - Failures are typed: every error matches one of ErrTimeout, ErrBackend or
//   ErrEmptyResponse through errors.Is.
// - Callers outside pkg/retry must not call a Generator directly.
//
// Usage:
//
//	gen, _ := generation.NewGenerator(generation.BackendConfig{Provider: "ollama"})
//	text, err := gen.Generate(ctx, generation.Request{
//		Prompt:  "hello",
//		Model:   "llama3.1",
//		Timeout: 10 * time.Second,
//	})
package generation
