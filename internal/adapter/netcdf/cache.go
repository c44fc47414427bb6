package netcdf

import (
	"fmt"
	"sync"

	"github.com/ctessum/sparse"
)

// CachedReader memoizes ReadVar calls with an in-memory LRU cache. Sample
// assembly revisits the same daily files for every overlapping lag/lead
// window, so caching the decoded grids avoids rereading them per target date.
type CachedReader struct {
	cache *lruCache
}

// NewCachedReader creates a reader cache holding up to maxEntries grids.
func NewCachedReader(maxEntries int) *CachedReader {
	return &CachedReader{cache: newLRUCache(maxEntries)}
}

// ReadVar returns the named variable from path, from cache when possible.
// Callers must not mutate the returned array.
func (c *CachedReader) ReadVar(path, name string) (*sparse.DenseArray, error) {
	key := fmt.Sprintf("%s|%s", path, name)
	if arr, ok := c.cache.get(key); ok {
		return arr, nil
	}
	arr, err := ReadVar(path, name)
	if err != nil {
		return nil, err
	}
	c.cache.put(key, arr)
	return arr, nil
}

// lruCache is a simple thread-safe LRU cache for decoded grids.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value *sparse.DenseArray
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (*sparse.DenseArray, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value *sparse.DenseArray) {
	if c.maxEntries <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.pushFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictOldest()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if c.head == e {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

func (c *lruCache) pushFront(e *entry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (c *lruCache) evictOldest() {
	oldest := c.tail
	if oldest == nil {
		return
	}
	c.unlink(oldest)
	delete(c.entries, oldest.key)
}
