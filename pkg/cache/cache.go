// Package cache provides a thread-safe LRU cache for compiled JSONiq
// expressions.
//
// The cache is used by the runtime engine when query compilation caching is
// enabled. It avoids re-running static analysis and iterator-tree
// construction for the same query text on every call, which matters most
// when a FLWOR expression is evaluated once per input document in a
// streaming pipeline. JSONiq query text can embed large literal arrays and
// objects (spec §9's constructors), so the LRU index keys on an xxhash sum
// of the source rather than the source string itself — the same hash
// dependency pkg/flwor/groupby.go uses to key group-by partitions off a key
// vector's byte encoding, applied here to a query string instead.
//
// # Example
//
//	c := cache.New(1024)
//	expr, err := c.GetOrCompile("for $x in $.items where $x.price > 100 return $x", compile)
package cache

import (
	"container/list"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// entry is a cache entry stored in the doubly-linked list. source is kept
// alongside the hash so a 64-bit xxhash collision between two distinct
// query strings is detected as a miss rather than returning the wrong
// compiled Expression.
type entry struct {
	hash   uint64
	source string
	expr   *types.Expression
}

// Cache is a thread-safe LRU (Least Recently Used) cache for compiled
// expressions, indexed by an xxhash sum of the query source rather than the
// source string itself.
//
// Safe for concurrent use by multiple goroutines.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	ll       *list.List
	items    map[uint64]*list.Element
}

// New creates a new LRU cache with the given capacity.
// capacity must be > 0; if <= 0, a default of 256 is used.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 256
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[uint64]*list.Element, capacity),
	}
}

// Get retrieves a compiled expression from the cache by source text.
// Returns (expr, true) if found and moves the entry to front (MRU).
// Returns (nil, false) if not present, including on a hash collision
// against a different source string.
func (c *Cache) Get(source string) (*types.Expression, bool) {
	h := xxhash.Sum64String(source)

	c.mu.RLock()
	el, ok := c.items[h]
	alreadyFront := ok && c.ll.Front() == el
	c.mu.RUnlock()
	if !ok || el.Value.(*entry).source != source {
		return nil, false
	}

	if !alreadyFront {
		// Promote to front under write lock; re-check in case of concurrent eviction.
		c.mu.Lock()
		el, ok = c.items[h]
		if ok && el.Value.(*entry).source == source {
			c.ll.MoveToFront(el)
		}
		c.mu.Unlock()

		if !ok || el.Value.(*entry).source != source {
			return nil, false
		}
	}
	return el.Value.(*entry).expr, true
}

// Set inserts or replaces an expression in the cache under source's hash.
// If at capacity, the least recently used entry is evicted first. A hash
// collision against a different source string evicts the stale entry
// instead of aliasing two distinct queries onto one slot.
func (c *Cache) Set(source string, expr *types.Expression) {
	h := xxhash.Sum64String(source)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[h]; ok {
		ent := el.Value.(*entry)
		ent.source = source
		ent.expr = expr
		c.ll.MoveToFront(el)
		return
	}

	if c.ll.Len() >= c.capacity {
		c.evictLocked()
	}

	el := c.ll.PushFront(&entry{hash: h, source: source, expr: expr})
	c.items[h] = el
}

// GetOrCompile retrieves the expression for source from cache, or calls
// compile() to create it, caches the result, and returns it.
// compile is called at most once per source (no negative caching of errors).
func (c *Cache) GetOrCompile(source string, compile func() (*types.Expression, error)) (*types.Expression, error) {
	if expr, ok := c.Get(source); ok {
		return expr, nil
	}
	expr, err := compile()
	if err != nil {
		return nil, err
	}
	c.Set(source, expr)
	return expr, nil
}

// Len returns the number of entries currently in the cache.
func (c *Cache) Len() int {
	c.mu.RLock()
	n := len(c.items)
	c.mu.RUnlock()
	return n
}

// Capacity returns the maximum number of entries the cache can hold.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Invalidate removes a single entry from the cache by source text.
func (c *Cache) Invalidate(source string) {
	h := xxhash.Sum64String(source)
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[h]; ok && el.Value.(*entry).source == source {
		c.ll.Remove(el)
		delete(c.items, h)
	}
}

// Clear removes all entries from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[uint64]*list.Element, c.capacity)
}

// evictLocked removes the least recently used entry.
// Must be called with c.mu held for writing.
func (c *Cache) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).hash)
}
