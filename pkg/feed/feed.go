// Package feed provides the ordered change feed published by the
// permission mutation service.
//
// Every successful policy write produces one Event with a monotonically
// increasing sequence number. Consumers either subscribe for live
// delivery or replay past events from the journal by sequence number.
// The engine core stays free of transport concerns: the hub fans out to
// plain channels and never blocks a publisher on a slow subscriber.
package feed

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType classifies a change-feed event.
type EventType string

const (
	// EventPolicyWrite is emitted when a policy file is created or
	// rewritten wholesale (e.g. first mutation in a directory).
	EventPolicyWrite EventType = "policy-write"

	// EventGrant is emitted when a principal is added to a level.
	EventGrant EventType = "grant"

	// EventRevoke is emitted when a principal is removed from a level.
	EventRevoke EventType = "revoke"
)

// Event is one change-feed entry.
type Event struct {
	// Seq is the monotonically increasing sequence number, assigned by
	// the journal on publish. Starts at 1.
	Seq uint64 `json:"seq"`

	// Type classifies the change.
	Type EventType `json:"type"`

	// Directory is the workspace-relative directory whose policy file
	// changed.
	Directory string `json:"directory"`

	// Path is the workspace-relative target path of the mutation.
	Path string `json:"path"`

	// Principal is the affected principal, if any.
	Principal string `json:"principal,omitempty"`

	// Level is the affected permission level, if any.
	Level string `json:"level,omitempty"`

	// Time is when the change was committed.
	Time time.Time `json:"time"`
}

// Journal persists the ordered event history and owns sequence numbers.
//
// Implementations must be safe for concurrent use.
type Journal interface {
	// Append stores the event, assigning and returning its sequence
	// number.
	Append(event Event) (uint64, error)

	// ReplaySince returns all stored events with Seq > since, in
	// ascending order.
	ReplaySince(since uint64) ([]Event, error)

	// Close releases journal resources.
	Close() error
}

// DroppedEventRecorder counts events dropped on full subscriber buffers.
// Satisfied by metrics.ACLMetrics.
type DroppedEventRecorder interface {
	RecordDroppedEvent()
}

// Hub couples a Journal with live fan-out to subscribers.
//
// Publish assigns sequence numbers through the journal, then delivers to
// every subscriber without blocking: a subscriber whose buffer is full
// misses the event and is expected to ReplaySince its last seen sequence
// number to catch up.
type Hub struct {
	mu      sync.RWMutex
	journal Journal
	subs    map[uuid.UUID]chan Event
	metrics DroppedEventRecorder
	closed  bool
}

// NewHub creates a hub over the given journal. metrics may be nil.
func NewHub(journal Journal, metrics DroppedEventRecorder) *Hub {
	return &Hub{
		journal: journal,
		subs:    make(map[uuid.UUID]chan Event),
		metrics: metrics,
	}
}

// Publish appends the event to the journal and fans it out to all
// current subscribers. Returns the assigned sequence number.
func (h *Hub) Publish(event Event) (uint64, error) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return 0, fmt.Errorf("feed hub is closed")
	}

	seq, err := h.journal.Append(event)
	if err != nil {
		return 0, fmt.Errorf("failed to append feed event: %w", err)
	}
	event.Seq = seq

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
			// Slow subscriber: drop rather than stall the mutation path.
			if h.metrics != nil {
				h.metrics.RecordDroppedEvent()
			}
		}
	}

	return seq, nil
}

// Subscribe registers a new subscriber with the given channel buffer and
// returns its identifier together with the receive channel. The channel
// is closed by Unsubscribe or Close.
func (h *Hub) Subscribe(buffer int) (uuid.UUID, <-chan Event) {
	if buffer < 1 {
		buffer = 1
	}

	id := uuid.New()
	ch := make(chan Event, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[id] = ch

	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
// Unknown identifiers are ignored.
func (h *Hub) Unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// ReplaySince returns all journaled events with Seq > since.
func (h *Hub) ReplaySince(since uint64) ([]Event, error) {
	return h.journal.ReplaySince(since)
}

// Close unsubscribes everyone and closes the journal.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	h.mu.Unlock()

	return h.journal.Close()
}
