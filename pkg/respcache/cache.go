package respcache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTTL is how long a cached response stays valid
const DefaultTTL = time.Hour

// Config configures a Cache
type Config struct {
	Store  Store
	TTL    time.Duration
	Now    func() time.Time
	Logger zerolog.Logger
}

// Cache is a TTL cache of generated responses over a Store
type Cache struct {
	store  Store
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
	locks  keyLock
}

// New creates a Cache. A nil Store gets an in-memory LRU.
func New(cfg Config) *Cache {
	if cfg.Store == nil {
		cfg.Store, _ = NewMemoryStore(0)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Cache{
		store:  cfg.Store,
		ttl:    cfg.TTL,
		now:    cfg.Now,
		logger: cfg.Logger,
	}
}

// Get returns the cached response for prompt and model if it has not expired.
// An expired entry is deleted.
func (c *Cache) Get(ctx context.Context, prompt, model string) (string, bool) {
	key := Digest(prompt, model)
	unlock := c.locks.lock(key)
	defer unlock()

	entry, ok, err := c.store.Load(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache lookup failed")
		return "", false
	}
	if !ok {
		return "", false
	}

	if c.now().Sub(entry.CreatedAt) >= c.ttl {
		if err := c.store.Delete(ctx, key); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("Failed to delete expired cache entry")
		}
		return "", false
	}
	return entry.Response, true
}

// Set stores text for prompt and model stamped with the current time
func (c *Cache) Set(ctx context.Context, prompt, model, text string) {
	key := Digest(prompt, model)
	unlock := c.locks.lock(key)
	defer unlock()

	if err := c.store.Save(ctx, key, Entry{Response: text, CreatedAt: c.now()}); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

// Purge removes every expired entry
func (c *Cache) Purge(ctx context.Context) (int, error) {
	return c.store.PurgeBefore(ctx, c.now().Add(-c.ttl))
}

// Len returns the number of stored entries, expired ones included
func (c *Cache) Len(ctx context.Context) (int, error) {
	return c.store.Len(ctx)
}

// TTL returns the configured expiry
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Ready reports whether the backing store answers queries
func (c *Cache) Ready(ctx context.Context) bool {
	_, err := c.store.Len(ctx)
	return err == nil
}

// Close releases the backing store
func (c *Cache) Close() error {
	return c.store.Close()
}
