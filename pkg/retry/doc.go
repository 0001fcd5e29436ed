// Package retry wraps every generation request in a cache lookup and a
// bounded retry loop with exponential backoff.
//
// Invariants:
// - Generate never returns an error; exhausted requests yield Sentinel.
// - A request makes at most MaxRetries+1 backend calls.
// - Only non-empty responses are cached or counted as successes.
// - Concurrent calls with the same prompt and model run one at a time, so
//   duplicates are answered from the cache.
//
// Usage:
//
//	orch := retry.New(retry.Config{Generator: gen, Cache: cache, Monitor: monitor, Queue: queue})
//	res := orch.Generate(ctx, retry.Call{PersonaID: "skeptic", Prompt: p, Model: "llama3", MaxRetries: 3})
package retry
