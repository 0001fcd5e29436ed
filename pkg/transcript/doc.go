// Package transcript persists meeting transcripts as JSONL, one file per meeting.
//
// Invariants:
// - Meeting IDs are validated and path-safe.
// - Appends to the same meeting are serialized and synced before returning.
// - Lines that fail to parse are skipped on load, not fatal.
//
// Usage:
//
//	store, _ := transcript.New("/tmp/roundtable/transcripts", logger)
//	_ = store.Append(ctx, meetingID, entry)
//	entries, _ := store.Load(ctx, meetingID)
package transcript
