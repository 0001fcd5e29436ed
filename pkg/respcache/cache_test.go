package respcache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestDigest(t *testing.T) {
	assert.Equal(t, "140afd75d3503ef1d72572c293c4c129", Digest("hello", "llama3"))
	assert.NotEqual(t, Digest("hello", "llama3"), Digest("hello", "mistral"))
}

func stores(t *testing.T) map[string]Store {
	mem, err := NewMemoryStore(16)
	require.NoError(t, err)

	sqlite, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{"memory": mem, "sqlite": sqlite}
}

func TestCache_GetSet(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			clock := newClock()
			c := New(Config{Store: store, TTL: time.Hour, Now: clock.Now, Logger: zerolog.Nop()})
			ctx := context.Background()

			_, ok := c.Get(ctx, "prompt", "model")
			assert.False(t, ok)

			c.Set(ctx, "prompt", "model", "answer")
			text, ok := c.Get(ctx, "prompt", "model")
			require.True(t, ok)
			assert.Equal(t, "answer", text)

			_, ok = c.Get(ctx, "prompt", "other-model")
			assert.False(t, ok)
		})
	}
}

func TestCache_ExpiredEntryIsPurgedOnLookup(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			clock := newClock()
			c := New(Config{Store: store, TTL: time.Hour, Now: clock.Now, Logger: zerolog.Nop()})
			ctx := context.Background()

			c.Set(ctx, "p", "m", "old")
			clock.Advance(59 * time.Minute)
			_, ok := c.Get(ctx, "p", "m")
			assert.True(t, ok)

			clock.Advance(2 * time.Minute)
			_, ok = c.Get(ctx, "p", "m")
			assert.False(t, ok)

			n, err := c.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, n)
		})
	}
}

func TestCache_Purge(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			clock := newClock()
			c := New(Config{Store: store, TTL: time.Hour, Now: clock.Now, Logger: zerolog.Nop()})
			ctx := context.Background()

			c.Set(ctx, "a", "m", "1")
			clock.Advance(90 * time.Minute)
			c.Set(ctx, "b", "m", "2")

			removed, err := c.Purge(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, removed)

			_, ok := c.Get(ctx, "b", "m")
			assert.True(t, ok)
		})
	}
}

func TestCache_PurgeAgreesWithLookupAtExactTTL(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			clock := newClock()
			c := New(Config{Store: store, TTL: time.Hour, Now: clock.Now, Logger: zerolog.Nop()})
			ctx := context.Background()

			c.Set(ctx, "edge", "m", "1")
			clock.Advance(time.Hour)

			removed, err := c.Purge(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, removed, "an entry exactly TTL old is expired")

			n, err := c.Len(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	store, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	c := New(Config{Store: store, Logger: zerolog.Nop()})
	c.Set(ctx, "p", "m", "persisted")
	require.NoError(t, c.Close())

	store, err = OpenSQLiteStore(path)
	require.NoError(t, err)
	c = New(Config{Store: store, Logger: zerolog.Nop()})
	defer c.Close()

	text, ok := c.Get(ctx, "p", "m")
	require.True(t, ok)
	assert.Equal(t, "persisted", text)
}

func TestOpenStore_CorruptFileFailsOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not a sqlite database, just garbage bytes"), 0o644))

	store := OpenStore(path, 8, zerolog.Nop())
	defer store.Close()

	c := New(Config{Store: store, Logger: zerolog.Nop()})
	ctx := context.Background()
	_, ok := c.Get(ctx, "p", "m")
	assert.False(t, ok)

	c.Set(ctx, "p", "m", "fresh")
	text, ok := c.Get(ctx, "p", "m")
	require.True(t, ok)
	assert.Equal(t, "fresh", text)
	assert.True(t, c.Ready(ctx))

	_, err := os.Stat(path + ".corrupt")
	assert.NoError(t, err)
}

func TestMemoryStore_Bounded(t *testing.T) {
	store, err := NewMemoryStore(2)
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, store.Save(ctx, key, Entry{Response: key, CreatedAt: time.Now()}))
	}

	n, _ := store.Len(ctx)
	assert.Equal(t, 2, n)
	_, ok, _ := store.Load(ctx, "a")
	assert.False(t, ok)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New(Config{Logger: zerolog.Nop()})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Set(ctx, "p", "m", "x")
			c.Get(ctx, "p", "m")
		}()
	}
	wg.Wait()

	text, ok := c.Get(ctx, "p", "m")
	require.True(t, ok)
	assert.Equal(t, "x", text)
}
