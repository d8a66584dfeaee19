package feed

import (
	"sync"
	"time"
)

type cacheEntry struct {
	body      []byte
	fetchedAt time.Time
}

// BodyCache keeps recently fetched feed bodies keyed by source.
type BodyCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

func NewBodyCache(ttl time.Duration) *BodyCache {
	return &BodyCache{entries: make(map[string]cacheEntry), ttl: ttl}
}

func (c *BodyCache) Get(source string) []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[source]
	if !ok || c.ttl <= 0 || time.Since(e.fetchedAt) > c.ttl {
		return nil
	}

	result := make([]byte, len(e.body))
	copy(result, e.body)
	return result
}

func (c *BodyCache) Set(source string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make([]byte, len(body))
	copy(stored, body)
	c.entries[source] = cacheEntry{body: stored, fetchedAt: time.Now()}
}

func (c *BodyCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry)
}
