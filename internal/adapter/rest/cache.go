package rest

import (
	"container/list"
	"sync"
)

// lruCache is a thread-safe LRU for linked-record names. put reports whether
// it displaced the least recently used entry, so callers can account for
// churn against an undersized cache.
type lruCache struct {
	capacity int
	mu       sync.Mutex
	index    map[string]*list.Element
	order    *list.List // front = most recently used
}

type cacheEntry struct {
	key  string
	name string
}

func newLRUCache(capacity int) *lruCache {
	return &lruCache{
		capacity: capacity,
		index:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *lruCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		return "", false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).name, true
}

func (c *lruCache) put(key, name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		el.Value.(*cacheEntry).name = name
		c.order.MoveToFront(el)
		return false
	}

	c.index[key] = c.order.PushFront(&cacheEntry{key: key, name: name})
	if c.order.Len() <= c.capacity {
		return false
	}

	oldest := c.order.Back()
	c.order.Remove(oldest)
	delete(c.index, oldest.Value.(*cacheEntry).key)
	return true
}
