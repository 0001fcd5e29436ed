package respcache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoryEntries bounds MemoryStore when no size is given
const DefaultMemoryEntries = 4096

// MemoryStore keeps entries in a bounded in-process LRU
type MemoryStore struct {
	entries *lru.Cache[string, Entry]
}

// NewMemoryStore creates a MemoryStore holding at most size entries
func NewMemoryStore(size int) (*MemoryStore, error) {
	if size <= 0 {
		size = DefaultMemoryEntries
	}
	entries, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{entries: entries}, nil
}

func (s *MemoryStore) Load(_ context.Context, key string) (Entry, bool, error) {
	entry, ok := s.entries.Get(key)
	return entry, ok, nil
}

func (s *MemoryStore) Save(_ context.Context, key string, entry Entry) error {
	s.entries.Add(key, entry)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.entries.Remove(key)
	return nil
}

func (s *MemoryStore) PurgeBefore(_ context.Context, cutoff time.Time) (int, error) {
	removed := 0
	for _, key := range s.entries.Keys() {
		entry, ok := s.entries.Peek(key)
		if ok && !entry.CreatedAt.After(cutoff) {
			s.entries.Remove(key)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Len(_ context.Context) (int, error) {
	return s.entries.Len(), nil
}

func (s *MemoryStore) Close() error {
	s.entries.Purge()
	return nil
}
