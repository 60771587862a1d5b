package cache

import (
	"strconv"
	"sync"
)

// Watermark tracks the newest tweet id already fetched
type Watermark struct {
	mu sync.RWMutex
	id string
}

// Get returns the current id, empty when nothing has been fetched yet
func (w *Watermark) Get() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.id
}

// Advance moves the watermark to id if it is newer than the current value.
// It reports whether the watermark moved.
func (w *Watermark) Advance(id string) bool {
	if id == "" {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.id != "" && !newerID(id, w.id) {
		return false
	}
	w.id = id
	return true
}

// newerID compares tweet ids; snowflake ids compare numerically
func newerID(candidate, current string) bool {
	a, errA := strconv.ParseUint(candidate, 10, 64)
	b, errB := strconv.ParseUint(current, 10, 64)
	if errA == nil && errB == nil {
		return a > b
	}
	if len(candidate) != len(current) {
		return len(candidate) > len(current)
	}
	return candidate > current
}
