// Package commandqueue serializes tasks per lane with FIFO ordering.
//
// A lane is any string key. The retry layer uses one lane per cache digest so
// that concurrent identical generation requests run one after another and the
// later ones observe the cached result of the first.
//
// Invariants:
// - Tasks in the same lane execute in FIFO order, one at a time by default.
// - Tasks in different lanes may execute concurrently.
// - A lane exists only while it has queued or running tasks.
//
// Usage:
//
//	queue := commandqueue.New(logger)
//	defer queue.Close()
//	result, err := queue.Enqueue(ctx, "digest:abc", func(ctx context.Context) (any, error) {
//		return "ok", nil
//	})
package commandqueue
