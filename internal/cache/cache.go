package cache

import (
	"context"
	"sync"
	"time"
)

// Package cache provides an in-memory TTL cache used to avoid redundant
// embedding and search calls.
//
// Responsibilities:
//   - Cache query embeddings (avoid redundant embedding API calls)
//   - Cache incident search results for repeated alert signatures
//   - Manage entry lifetime and bounded memory use
//
// Cache Key Strategy:
//   - Callers build keys from operation name + input hash
//   - Example: "embedding:" + sha256(query text)
//
// Memory Management:
//   - Oldest-entry eviction when the cache exceeds max entries
//   - Background cleanup of expired entries every 30 seconds

// Cache defines the interface for caching operations.
type Cache interface {
	// Get retrieves a cached value by key.
	// Returns: value, found (bool), error
	Get(ctx context.Context, key string) (interface{}, bool, error)

	// Set stores a value with given key and TTL.
	// ttlSeconds: time to live in seconds (0 = never expire)
	Set(ctx context.Context, key string, value interface{}, ttlSeconds int) error

	// Delete removes a key from cache.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries from cache.
	Clear(ctx context.Context) error

	// Has checks if key exists and is not expired.
	Has(ctx context.Context, key string) (bool, error)

	// Stats returns hit/miss counters and the current entry count.
	Stats(ctx context.Context) (hits, misses, entries int64)

	// Close stops the background cleanup goroutine.
	Close()
}

type cacheEntry struct {
	value     interface{}
	storedAt  time.Time
	expiresAt time.Time // zero = never expires
}

type memoryCache struct {
	mu         sync.RWMutex
	entries    map[string]*cacheEntry
	maxEntries int
	hits       int64
	misses     int64
	stopCh     chan struct{}
	stopOnce   sync.Once
}

// NewCache creates an in-memory cache bounded to maxEntries.
func NewCache(maxEntries int) Cache {
	if maxEntries < 1 {
		maxEntries = 1024
	}

	c := &memoryCache{
		entries:    make(map[string]*cacheEntry),
		maxEntries: maxEntries,
		stopCh:     make(chan struct{}),
	}

	go c.cleanupLoop()

	return c
}

func (c *memoryCache) Get(ctx context.Context, key string) (interface{}, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || entry.expired(time.Now()) {
		if ok {
			delete(c.entries, key)
		}
		c.misses++
		return nil, false, nil
	}

	c.hits++
	return entry.value, true, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	entry := &cacheEntry{
		value:    value,
		storedAt: now,
	}
	if ttlSeconds > 0 {
		entry.expiresAt = now.Add(time.Duration(ttlSeconds) * time.Second)
	}

	c.entries[key] = entry

	if len(c.entries) > c.maxEntries {
		c.evictOldestLocked()
	}

	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

func (c *memoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	return nil
}

func (c *memoryCache) Has(ctx context.Context, key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	return ok && !entry.expired(time.Now()), nil
}

func (c *memoryCache) Stats(ctx context.Context) (int64, int64, int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.hits, c.misses, int64(len(c.entries))
}

func (c *memoryCache) Close() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

func (e *cacheEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// evictOldestLocked removes the entry with the oldest storedAt timestamp.
// Caller must hold the write lock.
func (c *memoryCache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.storedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.storedAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// cleanupLoop periodically removes expired entries.
func (c *memoryCache) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, entry := range c.entries {
				if entry.expired(now) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}
