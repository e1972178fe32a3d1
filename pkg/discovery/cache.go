package discovery

import (
	"sync"
	"time"
)

// cacheTTL bounds how long a discovery result may be served from cache.
const cacheTTL = 10 * time.Minute

// Fingerprint derives the cache partition token for an API key: the first
// four plus the last four characters. An empty key maps to "none"; keys too
// short to sample without exposing them map to "***". Two credentials never
// share a partition unless their fingerprints collide.
func Fingerprint(apiKey string) string {
	if apiKey == "" {
		return "none"
	}
	if len(apiKey) <= 8 {
		return "***"
	}
	return apiKey[:4] + apiKey[len(apiKey)-4:]
}

type cacheKey struct {
	provider    string
	baseURL     string
	fingerprint string
}

type cacheEntry struct {
	result   Result
	storedAt time.Time
}

// modelCache is a process-wide TTL cache of discovery results. The mutex
// guards read-modify-write sequences; entries expire lazily on lookup.
type modelCache struct {
	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

func newModelCache(ttl time.Duration, now func() time.Time) *modelCache {
	return &modelCache{
		entries: make(map[cacheKey]cacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

// get returns a detached copy of the cached result, or ok=false when the
// entry is absent or older than the TTL. Expired entries are removed.
func (c *modelCache) get(key cacheKey) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		delete(c.entries, key)
		return Result{}, false
	}
	return entry.result.clone(), true
}

// put stores a detached copy of the result under key.
func (c *modelCache) put(key cacheKey, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{result: result.clone(), storedAt: c.now()}
}

// clear removes all entries for the given provider id, or every entry when
// the id is empty.
func (c *modelCache) clear(providerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if providerID == "" {
		c.entries = make(map[cacheKey]cacheEntry)
		return
	}
	for key := range c.entries {
		if key.provider == providerID {
			delete(c.entries, key)
		}
	}
}
