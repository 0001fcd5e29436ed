package respcache

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// keyLock is a fixed set of mutexes indexed by key hash
type keyLock struct {
	stripes [lockStripes]sync.Mutex
}

func (k *keyLock) lock(key string) func() {
	h := fnv.New32a()
	h.Write([]byte(key))
	mu := &k.stripes[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}
