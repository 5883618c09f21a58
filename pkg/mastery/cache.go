package mastery

import "sync"

// cache holds computed scores keyed by (user, lesson) with a generation
// token per key. Invalidate bumps the token; a recompute that started under
// an older token never lands, so a read after invalidation cannot observe
// the pre-invalidation value.
type cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	gen   uint64
	valid bool
	score Score
}

func newCache() *cache {
	return &cache{entries: make(map[string]*cacheEntry)}
}

func (c *cache) entry(key string) *cacheEntry {
	e := c.entries[key]
	if e == nil {
		e = &cacheEntry{}
		c.entries[key] = e
	}
	return e
}

// snapshot returns the cached score, the current generation token, and
// whether the score is valid.
func (c *cache) snapshot(key string) (Score, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(key)
	return e.score, e.gen, e.valid
}

// store caches a score computed under the given generation token. It is a
// no-op if the key was invalidated since the token was read.
func (c *cache) store(key string, gen uint64, s Score) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(key)
	if e.gen != gen {
		return
	}
	e.score = s
	e.valid = true
}

// invalidate bumps the key's generation and drops the cached value.
func (c *cache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(key)
	e.gen++
	e.valid = false
}
