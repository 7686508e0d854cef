// Package cache holds downloaded cover images in memory so the facade does
// not hit the remote store for every render.
package cache

import (
	"container/list"
	"sync"
)

// ByteCache is a thread-safe LRU cache of opaque byte blobs, bounded both
// by entry count and total size in bytes.
type ByteCache struct {
	capacity int
	size     int64
	maxSize  int64
	entries  map[string]*list.Element
	order    *list.List
	mu       sync.RWMutex
}

type entry struct {
	key  string
	data []byte
}

func NewByteCache(capacity int, maxSizeBytes int64) *ByteCache {
	return &ByteCache{
		capacity: capacity,
		maxSize:  maxSizeBytes,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *ByteCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*entry).data, true
	}
	return nil, false
}

// Set stores data under key, evicting least-recently-used entries until
// both bounds hold. Blobs larger than the size bound are not cached.
func (c *ByteCache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dataSize := int64(len(data))
	if dataSize > c.maxSize {
		return
	}

	if elem, ok := c.entries[key]; ok {
		old := elem.Value.(*entry)
		c.size += dataSize - int64(len(old.data))
		old.data = data
		c.order.MoveToFront(elem)
		return
	}

	for c.order.Len() >= c.capacity || (c.size+dataSize > c.maxSize && c.order.Len() > 0) {
		c.evictOldest()
	}

	elem := c.order.PushFront(&entry{key: key, data: data})
	c.entries[key] = elem
	c.size += dataSize
}

// Clear drops every entry, used when the credential is invalidated so no
// stale covers survive a sign-out.
func (c *ByteCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.size = 0
}

func (c *ByteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

func (c *ByteCache) Size() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.size
}

func (c *ByteCache) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	e := elem.Value.(*entry)
	c.order.Remove(elem)
	delete(c.entries, e.key)
	c.size -= int64(len(e.data))
}
