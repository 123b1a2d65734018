package interval

import (
	"sort"
	"sync"
	"time"
)

// Booking is the slice of a committed reservation the index needs to answer
// overlap queries. Intervals are half-open: [Start, End).
type Booking struct {
	BookingID  string
	ResourceID string
	Start      time.Time
	End        time.Time
}

type entry struct {
	bookingID string
	start     time.Time
	end       time.Time
}

// Index maintains per-resource interval sets ordered by start time. It holds
// derived data only; the booking ledger is the source of truth and callers
// must keep the index in lockstep with committed bookings.
//
// The index is safe for concurrent readers. Check-then-insert atomicity is the
// caller's responsibility: Query and Insert for the same resource must run
// under the caller's per-resource critical section.
type Index struct {
	mu         sync.RWMutex
	byResource map[string][]entry
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{byResource: make(map[string][]entry)}
}

// NewIndexFromBookings builds an index seeded with the provided committed
// bookings, typically loaded from the ledger at startup.
func NewIndexFromBookings(bookings []Booking) *Index {
	idx := NewIndex()
	for _, booking := range bookings {
		idx.Insert(booking.ResourceID, booking.BookingID, booking.Start, booking.End)
	}
	return idx
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching boundaries do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Query reports whether any active interval on the resource overlaps
// [start, end).
func (idx *Index) Query(resourceID string, start, end time.Time) bool {
	if idx == nil {
		return false
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entries := idx.byResource[resourceID]
	if len(entries) == 0 {
		return false
	}

	// Entries are ordered by start. Only entries starting before the query end
	// can overlap; walk them and stop at the first start at or past the end.
	limit := sort.Search(len(entries), func(i int) bool {
		return !entries[i].start.Before(end)
	})
	for i := 0; i < limit; i++ {
		if entries[i].end.After(start) {
			return true
		}
	}
	return false
}

// Insert adds an interval for the booking. The caller guarantees the interval
// does not overlap any existing interval on the resource; the guarantee must
// come from a Query issued under the same critical section.
func (idx *Index) Insert(resourceID, bookingID string, start, end time.Time) {
	if idx == nil {
		return
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	entries := idx.byResource[resourceID]
	pos := sort.Search(len(entries), func(i int) bool {
		if entries[i].start.Equal(start) {
			return entries[i].bookingID >= bookingID
		}
		return entries[i].start.After(start)
	})

	entries = append(entries, entry{})
	copy(entries[pos+1:], entries[pos:])
	entries[pos] = entry{bookingID: bookingID, start: start, end: end}
	idx.byResource[resourceID] = entries
}

// Remove deletes the interval registered for the booking on the resource.
// Removing an unknown booking is a no-op so cancellation stays idempotent
// against index rebuilds.
func (idx *Index) Remove(resourceID, bookingID string) {
	if idx == nil {
		return
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	entries := idx.byResource[resourceID]
	for i, e := range entries {
		if e.bookingID != bookingID {
			continue
		}
		entries = append(entries[:i], entries[i+1:]...)
		if len(entries) == 0 {
			delete(idx.byResource, resourceID)
		} else {
			idx.byResource[resourceID] = entries
		}
		return
	}
}

// Rebuild discards all intervals and reloads the index from the provided
// bookings.
func (idx *Index) Rebuild(bookings []Booking) {
	if idx == nil {
		return
	}

	idx.mu.Lock()
	idx.byResource = make(map[string][]entry, len(bookings))
	idx.mu.Unlock()

	for _, booking := range bookings {
		idx.Insert(booking.ResourceID, booking.BookingID, booking.Start, booking.End)
	}
}

// Count returns the number of intervals currently tracked for the resource.
func (idx *Index) Count(resourceID string) int {
	if idx == nil {
		return 0
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.byResource[resourceID])
}
