package generic

import "sync"

// =============================================================================
// VERSION CACHE - One computed result per source version
// =============================================================================

// VersionCache memoizes a single value keyed by a version string (a file
// modification stamp or a content hash).
//
// INVARIANTS:
//   - At most one entry is held. Storing a new key evicts the old one.
//   - A value is computed at most once per key while that key is current.
//   - Errors are never cached; the next call retries.
type VersionCache[V any] struct {
	mu    sync.Mutex
	key   string
	value V
	valid bool

	hits   uint64
	misses uint64
}

// NewVersionCache returns an empty cache.
func NewVersionCache[V any]() *VersionCache[V] {
	return &VersionCache[V]{}
}

// Get returns the value if key is the current version.
func (c *VersionCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid && c.key == key {
		c.hits++
		return c.value, true
	}
	var zero V
	return zero, false
}

// Put stores value under key, replacing whatever was held.
func (c *VersionCache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key, c.value, c.valid = key, value, true
}

// GetOrLoad returns the cached value for key, or runs load and stores the
// result. The lock is held across load so concurrent callers for the same
// version wait for one computation instead of racing. The bool reports a hit.
func (c *VersionCache[V]) GetOrLoad(key string, load func() (V, error)) (V, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && c.key == key {
		c.hits++
		return c.value, true, nil
	}
	c.misses++

	v, err := load()
	if err != nil {
		var zero V
		return zero, false, err
	}
	c.key, c.value, c.valid = key, v, true
	return v, false, nil
}

// Invalidate drops the held entry.
func (c *VersionCache[V]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	c.key, c.value, c.valid = "", zero, false
}

// Key returns the current version, or "" when empty.
func (c *VersionCache[V]) Key() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return ""
	}
	return c.key
}

// Stats returns hit and miss counts since creation.
func (c *VersionCache[V]) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
