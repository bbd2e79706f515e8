// Package cache provides a small in-memory TTL cache used by the store for
// hot read models. It is intentionally process-local; the engine runs as a
// single instance per deployment.
package cache

import (
	"sync"
	"time"
)

// Config configures a Cache.
type Config struct {
	// DefaultTTL is applied to entries set without an explicit TTL.
	DefaultTTL time.Duration
	// CleanupInterval is how often expired entries are evicted in the
	// background.
	CleanupInterval time.Duration
	// MaxItems caps the cache size; at the cap, Set evicts the entry
	// closest to expiry.
	MaxItems int
}

type item struct {
	value     any
	expiresAt time.Time
}

// Cache is a concurrency-safe in-memory cache with per-entry expiry.
type Cache struct {
	config Config

	mu    sync.RWMutex
	items map[string]item

	done chan struct{}
	once sync.Once
}

// New creates a Cache and starts its background cleanup goroutine.
func New(config Config) *Cache {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 10 * time.Minute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	if config.MaxItems <= 0 {
		config.MaxItems = 1000
	}

	c := &Cache{
		config: config,
		items:  make(map[string]item),
		done:   make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Get returns the cached value for key, if present and not expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(it.expiresAt) {
		return nil, false
	}
	return it.value, true
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.config.DefaultTTL)
}

// SetWithTTL stores value under key with an explicit TTL.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) >= c.config.MaxItems {
		if _, exists := c.items[key]; !exists {
			c.evictSoonestLocked()
		}
	}
	c.items[key] = item{value: value, expiresAt: time.Now().Add(ttl)}
}

// Delete removes key from the cache.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]item)
	c.mu.Unlock()
}

// Close stops the background cleanup goroutine.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *Cache) evictSoonestLocked() {
	var victim string
	var soonest time.Time
	for key, it := range c.items {
		if victim == "" || it.expiresAt.Before(soonest) {
			victim = key
			soonest = it.expiresAt
		}
	}
	if victim != "" {
		delete(c.items, victim)
	}
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, it := range c.items {
				if now.After(it.expiresAt) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		case <-c.done:
			return
		}
	}
}
