package cache

import (
	"sync"
	"time"
)

// Cache is an in-memory cache with per-item TTL and a background sweeper
type Cache[V any] struct {
	mu       sync.RWMutex
	items    map[string]cacheItem[V]
	ttl      time.Duration
	now      func() time.Time
	stopOnce sync.Once
	stopChan chan struct{}
}

type cacheItem[V any] struct {
	value      V
	expiration time.Time
}

// New creates a cache with the given default TTL, sweeping expired items every sweep interval
func New[V any](ttl, sweep time.Duration) *Cache[V] {
	c := &Cache[V]{
		items:    make(map[string]cacheItem[V]),
		ttl:      ttl,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	if sweep > 0 {
		go c.cleanup(sweep)
	}

	return c
}

// Get retrieves a value; expired entries are reported as missing
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || c.now().After(item.expiration) {
		var zero V
		return zero, false
	}

	return item.value, true
}

// Set stores a value with the default TTL
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with a custom TTL
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = cacheItem[V]{
		value:      value,
		expiration: c.now().Add(ttl),
	}
}

// Delete removes a value
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Size returns the number of stored items, including expired ones not yet swept
func (c *Cache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stop stops the sweeper goroutine. Safe to call more than once
func (c *Cache[V]) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

// cleanup periodically removes expired items
func (c *Cache[V]) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.RemoveExpired()
		case <-c.stopChan:
			return
		}
	}
}

// RemoveExpired deletes every expired item and returns how many were removed
func (c *Cache[V]) RemoveExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, item := range c.items {
		if now.After(item.expiration) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}
