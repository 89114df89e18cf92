// Package cache provides the TTL cache implementations behind the
// CacheRepository port: an in-process map for development and tests,
// and a Redis client for deployments.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/outbound"
)

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is a map backed cache with a background janitor.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]memoryItem
	stop chan struct{}
	once sync.Once
}

const defaultTTL = 24 * time.Hour

// NewMemoryCache creates the cache and starts its janitor.
func NewMemoryCache() *MemoryCache {
	c := &MemoryCache{
		data: make(map[string]memoryItem),
		stop: make(chan struct{}),
	}
	go c.janitor()
	return c
}

var _ outbound.CacheRepository = (*MemoryCache)(nil)

// Get returns the value for key or outbound.ErrCacheMiss.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	item, ok := c.data[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(item.expiresAt) {
		return nil, outbound.ErrCacheMiss
	}
	return item.value, nil
}

// Set stores value under key. A zero ttl gets the default.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	c.mu.Lock()
	c.data[key] = memoryItem{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Delete removes key.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
	return nil
}

// Exists reports whether key holds a live value.
func (c *MemoryCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.RLock()
	item, ok := c.data[key]
	c.mu.RUnlock()
	return ok && time.Now().Before(item.expiresAt), nil
}

// Close stops the janitor.
func (c *MemoryCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *MemoryCache) janitor() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, item := range c.data {
				if now.After(item.expiresAt) {
					delete(c.data, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
