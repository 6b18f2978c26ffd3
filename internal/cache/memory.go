package cache

import (
	"sync"
	"time"
)

// InMemoryCache is a process-local Provider. Expired entries are dropped
// lazily on read and swept whenever the item count passes sweepThreshold.
type InMemoryCache struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

type memoryItem struct {
	value    []byte
	expireAt time.Time
}

const sweepThreshold = 4096

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{items: make(map[string]memoryItem)}
}

func (c *InMemoryCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(item.expireAt) {
		c.Invalidate(key)
		return nil, false
	}
	return item.value, true
}

func (c *InMemoryCache) Set(key string, value []byte, ttl time.Duration) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) >= sweepThreshold {
		for k, item := range c.items {
			if now.After(item.expireAt) {
				delete(c.items, k)
			}
		}
	}

	c.items[key] = memoryItem{value: value, expireAt: now.Add(ttl)}
}

func (c *InMemoryCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func (c *InMemoryCache) Flush() {
	c.mu.Lock()
	c.items = make(map[string]memoryItem)
	c.mu.Unlock()
}
