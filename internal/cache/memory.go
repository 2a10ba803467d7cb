package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const defaultMemoryCapacity = 1000

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// MemoryCache is a size-bounded LRU with per-entry TTL and per-scope
// generations.
type MemoryCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	lru      *list.List
	gens     map[string]uint64
	now      func() time.Time
}

// NewMemoryCache creates a cache holding at most capacity entries.
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		lru:      list.New(),
		gens:     make(map[string]uint64),
		now:      time.Now,
	}
}

func (c *MemoryCache) entryKey(scope, key string) string {
	return versionedKey(scope, c.gens[scope], key)
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, scope, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[c.entryKey(scope, key)]
	if !ok {
		return nil, false, nil
	}
	entry := el.Value.(*memoryEntry)
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.removeElement(el)
		return nil, false, nil
	}
	c.lru.MoveToFront(el)
	return entry.value, true, nil
}

// Set implements Cache. A non-positive ttl keeps the entry until eviction.
func (c *MemoryCache) Set(_ context.Context, scope, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(scope, c.gens[scope], key, value, ttl)
	return nil
}

// Generation implements Cache.
func (c *MemoryCache) Generation(_ context.Context, scope string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[scope], nil
}

// SetAt implements Cache. Writes for a superseded generation are dropped.
func (c *MemoryCache) SetAt(_ context.Context, scope string, gen uint64, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gens[scope] {
		return nil
	}
	c.set(scope, gen, key, value, ttl)
	return nil
}

// set must be called with mu held.
func (c *MemoryCache) set(scope string, gen uint64, key string, value []byte, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	k := versionedKey(scope, gen, key)
	if el, ok := c.items[k]; ok {
		entry := el.Value.(*memoryEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		c.lru.MoveToFront(el)
		return
	}

	c.items[k] = c.lru.PushFront(&memoryEntry{key: k, value: value, expiresAt: expiresAt})
	for c.lru.Len() > c.capacity {
		c.removeElement(c.lru.Back())
	}
}

// InvalidateScope implements Cache. Entries of older generations become
// unreachable and age out through LRU eviction.
func (c *MemoryCache) InvalidateScope(_ context.Context, scope string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[scope]++
	return nil
}

// Len returns the number of stored entries, including unreachable ones.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *MemoryCache) removeElement(el *list.Element) {
	entry := c.lru.Remove(el).(*memoryEntry)
	delete(c.items, entry.key)
}
