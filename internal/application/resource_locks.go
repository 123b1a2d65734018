package application

import "sync"

// ResourceLocks hands out one mutex per resource id so check-then-insert runs
// as a critical section per resource while requests against different
// resources proceed without blocking each other. Both booking ledger
// instances share a single set so room and vehicle ledgers can never race on
// the same resource id.
//
// Locks are never reclaimed; the resource catalog is small and read-mostly, so
// the map grows to at most one entry per resource ever booked.
type ResourceLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewResourceLocks returns an empty lock set.
func NewResourceLocks() *ResourceLocks {
	return &ResourceLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for the resource id, creating it on first use, and
// returns the unlock function.
func (r *ResourceLocks) Lock(resourceID string) func() {
	r.mu.Lock()
	lock, ok := r.locks[resourceID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[resourceID] = lock
	}
	r.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
