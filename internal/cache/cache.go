package cache

import (
	"sync"
	"sync/atomic"

	"github.com/launchwatch/launchcoin-feed/internal/models"
)

// DefaultCapacity is the number of launches kept in memory
const DefaultCapacity = 100

// BoundedCache keeps the most recent records in arrival order.
// Every append publishes a new immutable slice, so readers never block the
// writer and never see a half-applied append or eviction.
type BoundedCache struct {
	capacity int
	mu       sync.Mutex
	records  atomic.Pointer[[]models.Record]
}

// NewBoundedCache creates a cache holding at most capacity records
func NewBoundedCache(capacity int) *BoundedCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &BoundedCache{capacity: capacity}
	empty := make([]models.Record, 0)
	c.records.Store(&empty)
	return c
}

// Append adds a record at the tail, evicting from the head when full
func (c *BoundedCache) Append(record models.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := *c.records.Load()
	drop := len(current) + 1 - c.capacity
	if drop < 0 {
		drop = 0
	}

	next := make([]models.Record, 0, len(current)+1-drop)
	next = append(next, current[drop:]...)
	next = append(next, record)
	c.records.Store(&next)
}

// Snapshot returns a copy of the cached records, oldest first
func (c *BoundedCache) Snapshot() []models.Record {
	current := *c.records.Load()
	out := make([]models.Record, len(current))
	copy(out, current)
	return out
}

// Len returns the number of cached records
func (c *BoundedCache) Len() int {
	return len(*c.records.Load())
}

// Capacity returns the maximum number of records kept
func (c *BoundedCache) Capacity() int {
	return c.capacity
}

// Reader exposes the cache to the serving layer without write access
type Reader struct {
	cache *BoundedCache
}

// NewReader creates a read-only accessor over the cache
func NewReader(cache *BoundedCache) *Reader {
	return &Reader{cache: cache}
}

// Current returns the cached records, most recently appended last
func (r *Reader) Current() []models.Record {
	return r.cache.Snapshot()
}
