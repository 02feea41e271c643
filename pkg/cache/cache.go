package cache

import (
	"sync"
	"time"
)

// Entry represents a cached value with expiration
type Entry struct {
	Value     interface{}
	ExpiresAt time.Time
}

func (e *Entry) expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Cache is a simple in-memory cache with TTL
type Cache struct {
	mu    sync.RWMutex
	items map[string]*Entry
	now   func() time.Time
}

// New creates a new cache
func New() *Cache {
	return NewWithClock(time.Now)
}

// NewWithClock creates a cache that reads the time from now
func NewWithClock(now func() time.Time) *Cache {
	return &Cache{items: map[string]*Entry{}, now: now}
}

// Set stores a value in the cache with a given TTL
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = &Entry{
		Value:     value,
		ExpiresAt: c.now().Add(ttl),
	}
}

// Get retrieves a value from the cache if it hasn't expired
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, exists := c.items[key]
	if !exists || entry.expired(c.now()) {
		return nil, false
	}
	return entry.Value, true
}

// Update replaces the value under key with fn(current) and resets its TTL.
// current is nil when the key is missing or expired.
func (c *Cache) Update(key string, ttl time.Duration, fn func(current interface{}) interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	var current interface{}
	if entry, ok := c.items[key]; ok && !entry.expired(now) {
		current = entry.Value
	}
	c.items[key] = &Entry{Value: fn(current), ExpiresAt: now.Add(ttl)}
}

// Take removes key and returns its value if it hadn't expired
func (c *Cache) Take(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, exists := c.items[key]
	if !exists {
		return nil, false
	}
	delete(c.items, key)
	if entry.expired(c.now()) {
		return nil, false
	}
	return entry.Value, true
}

// Delete removes a key from the cache
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// PurgeExpired drops every expired entry and returns how many were removed
func (c *Cache) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for key, entry := range c.items {
		if entry.expired(now) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
