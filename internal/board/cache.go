package board

import (
	"sync"
	"time"
)

// Slice names a separately loaded part of the board state.
type Slice string

const (
	SliceIssues  Slice = "issues"
	SliceSprints Slice = "sprints"
)

type cacheEntry struct {
	count    int
	loadedAt time.Time
	failed   bool
}

type cacheKey struct {
	projectID int64
	slice     Slice
}

// LoadCache remembers which project slices already loaded successfully.
// An entry only counts as loaded when the last load succeeded and
// returned at least one record; a failed or empty load never masks a
// later retry. Each project carries an epoch that Invalidate advances;
// a session holding data from an older epoch must refetch.
type LoadCache struct {
	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
	epochs  map[int64]uint64
	ttl     time.Duration
	now     func() time.Time
}

// NewLoadCache creates a cache. A zero ttl keeps entries until invalidated.
func NewLoadCache(ttl time.Duration) *LoadCache {
	return &LoadCache{
		entries: make(map[cacheKey]cacheEntry),
		epochs:  make(map[int64]uint64),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Fresh reports whether slice of projectID can be served without a fetch.
func (c *LoadCache) Fresh(projectID int64, slice Slice) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[cacheKey{projectID, slice}]
	if !ok || e.failed || e.count == 0 {
		return false
	}
	if c.ttl > 0 && c.now().Sub(e.loadedAt) > c.ttl {
		return false
	}
	return true
}

// Record stores the outcome of a load.
func (c *LoadCache) Record(projectID int64, slice Slice, count int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{projectID, slice}] = cacheEntry{
		count:    count,
		loadedAt: c.now(),
		failed:   err != nil,
	}
}

// Epoch returns how many times projectID has been invalidated.
func (c *LoadCache) Epoch(projectID int64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epochs[projectID]
}

// Invalidate forgets every slice of projectID and advances its epoch.
func (c *LoadCache) Invalidate(projectID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epochs[projectID]++
	for k := range c.entries {
		if k.projectID == projectID {
			delete(c.entries, k)
		}
	}
}
