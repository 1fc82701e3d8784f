// Package cache holds JIRA reference-data responses (fields, issue types, link types)
// for a short TTL so repeated lookups skip the network.
package cache

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CachedResponse holds a cached JIRA response. Attempts and Exhausted travel with a
// shared fill so every waiting caller sees the same retry outcome.
type CachedResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Attempts   int
	Exhausted  bool
}

// entry wraps a cached response with expiry and insertion order tracking.
type entry struct {
	resp      *CachedResponse
	expiry    time.Time
	insertIdx int64
}

// ResponseCache caches successful GET responses keyed by "method:url".
// Concurrent misses for the same key share one fill.
type ResponseCache struct {
	mu         sync.RWMutex
	items      map[string]entry
	ttl        time.Duration
	maxEntries int
	nextIdx    int64

	group singleflight.Group
	now   func() time.Time
}

// New creates a new ResponseCache with the given TTL and max entry count.
func New(ttl time.Duration, maxEntries int) *ResponseCache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &ResponseCache{
		items:      make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// MakeKey builds a cache key from HTTP method and full request URL.
func MakeKey(method, url string) string {
	return method + ":" + url
}

// Get returns a cached response if found and not expired.
func (c *ResponseCache) Get(key string) (*CachedResponse, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if c.now().After(e.expiry) {
		c.mu.Lock()
		if e2, ok2 := c.items[key]; ok2 && c.now().After(e2.expiry) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.resp, true
}

// Set stores a response in the cache. Evicts the oldest entry if at capacity.
func (c *ResponseCache) Set(key string, resp *CachedResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{
		resp:      resp,
		expiry:    c.now().Add(c.ttl),
		insertIdx: c.nextIdx,
	}
	c.nextIdx++

	if _, exists := c.items[key]; exists {
		c.items[key] = e
		return
	}

	if len(c.items) >= c.maxEntries {
		c.evictOldest()
	}

	c.items[key] = e
}

// GetOrFill returns the cached response for key, or calls fill once for all
// concurrent callers. Only 2xx results are stored. hit reports a cache hit.
func (c *ResponseCache) GetOrFill(key string, fill func() (*CachedResponse, error)) (resp *CachedResponse, hit bool, err error) {
	if r, ok := c.Get(key); ok {
		return r, true, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if r, ok := c.Get(key); ok {
			return r, nil
		}
		r, err := fill()
		if err != nil {
			return nil, err
		}
		if r.StatusCode >= 200 && r.StatusCode < 300 {
			c.Set(key, r)
		}
		return r, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*CachedResponse), false, nil
}

// Len returns the number of entries, including expired ones not yet removed.
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// evictOldest removes the entry with the lowest insertIdx. Must be called with mu held.
func (c *ResponseCache) evictOldest() {
	var oldestKey string
	var oldestIdx int64 = -1

	for key, e := range c.items {
		if oldestIdx == -1 || e.insertIdx < oldestIdx {
			oldestIdx = e.insertIdx
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
