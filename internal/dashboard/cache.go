package dashboard

import (
	"sync"
	"time"
)

type cacheKey struct {
	userID string
	rng    TimeRange
}

type cacheEntry struct {
	expiry  time.Time
	summary Summary
}

// Cache holds computed summaries per (user, range) until they expire or the
// user records a new transaction. Each Invalidate bumps the user's generation;
// SetIfCurrent refuses summaries computed under an older one.
type Cache struct {
	entries map[cacheKey]cacheEntry
	gens    map[string]uint64
	stopCh  chan struct{}
	now     func() time.Time
	ttl     time.Duration
	mu      sync.RWMutex
	once    sync.Once
}

// NewCache creates a cache with the given TTL and starts its cleanup loop.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	c := &Cache{
		entries: make(map[cacheKey]cacheEntry),
		gens:    make(map[string]uint64),
		stopCh:  make(chan struct{}),
		now:     time.Now,
		ttl:     ttl,
	}

	go c.cleanup()

	return c
}

// Get returns the cached summary if present and not expired.
func (c *Cache) Get(userID string, r TimeRange) (Summary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[cacheKey{userID, r}]
	if !ok || c.now().After(entry.expiry) {
		return Summary{}, false
	}
	return entry.summary, true
}

// Set stores a summary unconditionally.
func (c *Cache) Set(userID string, r TimeRange, s Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(userID, r, s)
}

// Generation returns the user's invalidation counter. Read it before loading
// the rows a summary is computed from.
func (c *Cache) Generation(userID string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[userID]
}

// SetIfCurrent stores s only if userID has not been invalidated since gen was
// read. It reports whether s was stored.
func (c *Cache) SetIfCurrent(userID string, r TimeRange, s Summary, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gens[userID] != gen {
		return false
	}
	c.store(userID, r, s)
	return true
}

func (c *Cache) store(userID string, r TimeRange, s Summary) {
	c.entries[cacheKey{userID, r}] = cacheEntry{
		summary: s,
		expiry:  c.now().Add(c.ttl),
	}
}

// Invalidate drops every cached range of userID.
func (c *Cache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gens[userID]++

	for k := range c.entries {
		if k.userID == userID {
			delete(c.entries, k)
		}
	}
}

func (c *Cache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *Cache) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if now.After(e.expiry) {
			delete(c.entries, k)
		}
	}
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stopCh) })
}
