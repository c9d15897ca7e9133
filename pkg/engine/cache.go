package engine

import lru "github.com/hashicorp/golang-lru/v2"

// Cache is a shared, bounded value cache a Backend may consult on Get
// before touching disk. It is the application-level analog of
// original_source/src/caches.rs's shared rocksdb::Cache: one Cache
// instance is meant to be constructed once per process and handed to
// every family (or every Engine) that should share its capacity,
// rather than each family growing its own unbounded cache.
//
// goleveldb manages its own internal block cache
// (opt.Options.BlockCacheCapacity) that this type does not replace;
// Cache sits one layer up, keyed by the fully-qualified family+key
// pair, and is consulted by pkg/engine/ldb and pkg/engine/kvfile as an
// optional read-through layer in front of the backend's native cache.
type Cache struct {
	lru      *lru.Cache[string, []byte]
	capacity int
}

// NewCache constructs a Cache holding at most capacity entries,
// evicted least-recently-used first.
func NewCache(capacity int) (*Cache, error) {
	c, err := lru.New[string, []byte](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c, capacity: capacity}, nil
}

func cacheKey(family string, key []byte) string {
	return family + "\x00" + string(key)
}

// Get returns the cached value for (family, key), if present.
func (c *Cache) Get(family string, key []byte) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(cacheKey(family, key))
}

// Put stores value under (family, key).
func (c *Cache) Put(family string, key, value []byte) {
	if c == nil {
		return
	}
	c.lru.Add(cacheKey(family, key), value)
}

// Invalidate drops any cached entry for (family, key), called after a
// Put or Delete against that key so reads never observe stale data.
func (c *Cache) Invalidate(family string, key []byte) {
	if c == nil {
		return
	}
	c.lru.Remove(cacheKey(family, key))
}

// Len reports the number of entries currently cached.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// Capacity reports the maximum number of entries this Cache can hold.
func (c *Cache) Capacity() int {
	if c == nil {
		return 0
	}
	return c.capacity
}
