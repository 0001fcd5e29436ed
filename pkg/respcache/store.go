package respcache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"time"
)

// Entry is a cached response and its creation time
type Entry struct {
	Response  string
	CreatedAt time.Time
}

// Store persists cache entries by digest
type Store interface {
	Load(ctx context.Context, key string) (Entry, bool, error)
	Save(ctx context.Context, key string, entry Entry) error
	Delete(ctx context.Context, key string) error
	// PurgeBefore removes entries created at or before cutoff and returns how many were removed
	PurgeBefore(ctx context.Context, cutoff time.Time) (int, error)
	Len(ctx context.Context) (int, error)
	Close() error
}

// Digest returns the cache key for a prompt and model: hex MD5 of prompt + "_" + model.
func Digest(prompt, model string) string {
	sum := md5.Sum([]byte(prompt + "_" + model))
	return hex.EncodeToString(sum[:])
}
