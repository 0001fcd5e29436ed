// Package respcache stores generated responses keyed by a digest of the prompt
// and model, so identical requests within the TTL skip the backend.
//
// Invariants:
// - Expired entries are never returned; a lookup that finds one deletes it.
// - Store failures degrade to misses and are logged, never surfaced to callers.
// - Reads and writes of the same digest are serialized.
package respcache
