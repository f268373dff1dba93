package tactics

import (
	"container/list"
	"sync"
)

// CacheKey identifies one evaluation request. Depth and MultiPV are part of
// the key: an entry computed at a shallower depth must never satisfy a
// deeper request.
type CacheKey struct {
	Pos     Packed256
	Depth   int
	MultiPV int
}

type cacheEntry struct {
	key  CacheKey
	eval Evaluation
}

// EvalCache memoizes engine evaluations per worker. Capacity 0 means
// unbounded, acceptable for batch runs whose lifetime bounds the working
// set; otherwise least-recently-used entries are evicted.
type EvalCache struct {
	capacity int

	mu      sync.Mutex
	entries map[CacheKey]*list.Element
	order   *list.List
	hits    int64
	misses  int64
}

// NewEvalCache creates a cache with the given capacity (0 = unbounded).
func NewEvalCache(capacity int) *EvalCache {
	return &EvalCache{
		capacity: capacity,
		entries:  make(map[CacheKey]*list.Element),
		order:    list.New(),
	}
}

// GetOrCompute returns the cached evaluation for key, or runs compute and
// stores its result. Errors are not cached.
func (c *EvalCache) GetOrCompute(key CacheKey, compute func() (Evaluation, error)) (Evaluation, error) {
	c.mu.Lock()
	if elem, ok := c.entries[key]; ok {
		c.order.MoveToFront(elem)
		c.hits++
		eval := elem.Value.(*cacheEntry).eval
		c.mu.Unlock()
		return eval, nil
	}
	c.misses++
	c.mu.Unlock()

	eval, err := compute()
	if err != nil {
		return Evaluation{}, err
	}

	c.mu.Lock()
	if _, ok := c.entries[key]; !ok {
		c.entries[key] = c.order.PushFront(&cacheEntry{key: key, eval: eval})
		if c.capacity > 0 && c.order.Len() > c.capacity {
			oldest := c.order.Back()
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
	c.mu.Unlock()
	return eval, nil
}

// Len returns the number of cached entries.
func (c *EvalCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns hit and miss counts since creation.
func (c *EvalCache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
