// Package dedupe tracks recently seen event IDs so resubmitted events are
// detected at the ingestion boundary.
//
// The hot store is keyed by event ID, so a duplicate that slips past this
// guard overwrites its own record rather than duplicating it. The guard
// exists to keep duplicate work off the stream, not to be the source of
// truth.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Default bound on remembered IDs.
const defaultMaxSize = 50000

// Deduper records seen event IDs to keep duplicates off the stream.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an ID from the seen set, allowing it to be retried.
	// Used when an event was recorded but its stream append failed.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper implements Deduper with a map plus a FIFO ring of IDs in
// insertion order. When the bound is reached the oldest remembered ID is
// forgotten first. A non-positive maxSize disables eviction.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	ring    []string
	head    int
	tail    int
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration
// options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]struct{})
	if d.maxSize > 0 {
		// One spare slot distinguishes full from empty.
		d.ring = make([]string, d.maxSize+1)
	}

	return d
}

// SeenAndRecord atomically checks if id was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	if d.maxSize > 0 {
		if len(d.seen) >= d.maxSize {
			d.evictOldest()
		}
		d.ring[d.tail] = id
		d.tail = (d.tail + 1) % len(d.ring)
	}

	d.seen[id] = struct{}{}
	d.size.Add(1)
	return false
}

// Unrecord removes an ID from the seen set. The ring slot is left behind;
// eviction skips slots whose ID is no longer in the map.
func (d *inMemoryDeduper) Unrecord(ctx context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; !exists {
		return
	}
	delete(d.seen, id)
	d.size.Add(-1)
}

// evictOldest forgets remembered IDs in insertion order until one live entry
// has been removed. Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	for d.head != d.tail {
		id := d.ring[d.head]
		d.ring[d.head] = ""
		d.head = (d.head + 1) % len(d.ring)

		if _, live := d.seen[id]; live {
			delete(d.seen, id)
			d.size.Add(-1)
			return
		}
	}
}

// Size returns the current number of remembered IDs.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
