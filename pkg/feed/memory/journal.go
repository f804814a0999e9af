// Package memory implements an in-memory change-feed journal.
//
// Suitable for tests and single-process deployments that do not need the
// event history to survive restarts. For persistence, use the BadgerDB
// journal instead.
package memory

import (
	"sync"

	"github.com/datahaven/aclfs/pkg/feed"
)

// Journal is a bounded in-memory event journal.
//
// Thread Safety:
// All operations are protected by a mutex.
type Journal struct {
	mu sync.Mutex

	// events holds the retained history in ascending sequence order.
	events []feed.Event

	// next is the next sequence number to assign.
	next uint64

	// maxEntries bounds the retained history. 0 means unbounded.
	maxEntries int
}

// New creates a journal retaining at most maxEntries events
// (0 = unbounded). Sequence numbers keep increasing even after old
// events are trimmed.
func New(maxEntries int) *Journal {
	return &Journal{next: 1, maxEntries: maxEntries}
}

// Append stores the event and returns its assigned sequence number.
func (j *Journal) Append(event feed.Event) (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	event.Seq = j.next
	j.next++
	j.events = append(j.events, event)

	if j.maxEntries > 0 && len(j.events) > j.maxEntries {
		trimmed := len(j.events) - j.maxEntries
		j.events = append(j.events[:0:0], j.events[trimmed:]...)
	}

	return event.Seq, nil
}

// ReplaySince returns all retained events with Seq > since.
func (j *Journal) ReplaySince(since uint64) ([]feed.Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]feed.Event, 0)
	for _, ev := range j.events {
		if ev.Seq > since {
			out = append(out, ev)
		}
	}
	return out, nil
}

// Close is a no-op for the in-memory journal.
func (j *Journal) Close() error {
	return nil
}
