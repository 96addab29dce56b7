package translation

import (
	"context"
	"sync"
	"time"
)

// Cache memoizes translation results by fingerprint key.
type Cache interface {
	Get(ctx context.Context, key string) (map[string][]string, bool, error)
	Set(ctx context.Context, key string, results map[string][]string, ttl time.Duration) error
}

type memoryEntry struct {
	results   map[string][]string
	expiresAt time.Time
}

// MemoryCache is a process-local TTL map.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (map[string][]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return copyResults(e.results), true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, results map[string][]string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{
		results:   copyResults(results),
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// Sweep drops expired entries and reports how many were removed.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func copyResults(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}
