package mempool

import (
	"sort"
	"sync"

	"solana-sandwich-watch/internal/domain"
)

// EventBuffer is the bounded, time-ordered store of recently observed
// transactions. Ingest is idempotent by signature; snapshots are deep
// copies so correlation passes never iterate live data. The lock is held
// only for insert, delete and snapshot copy, never across analysis.
type EventBuffer struct {
	mu   sync.RWMutex
	data map[string]*domain.TransactionEvent // keyed by signature
}

// NewEventBuffer creates an empty event buffer.
func NewEventBuffer() *EventBuffer {
	return &EventBuffer{data: make(map[string]*domain.TransactionEvent)}
}

// Ingest validates and stores an event. Re-ingestion of the same signature
// replaces the stored record; when two events for the same signature race,
// the one with the later ObservedAt wins regardless of arrival order.
func (b *EventBuffer) Ingest(event *domain.TransactionEvent) error {
	verr := &domain.ValidationError{}
	if event == nil {
		verr.Add("event", "event is required")
		return verr
	}
	if event.Signature == "" {
		verr.Add("signature", "signature is required")
	}
	if event.Sender == "" {
		verr.Add("sender", "sender is required")
	}
	if verr.HasErrors() {
		return verr
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.data[event.Signature]; ok && existing.ObservedAt > event.ObservedAt {
		return nil
	}
	b.data[event.Signature] = event.Clone()
	return nil
}

// Get returns the event for a signature, or nil if absent.
func (b *EventBuffer) Get(signature string) *domain.TransactionEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.data[signature]
	if !ok {
		return nil
	}
	return e.Clone()
}

// Snapshot returns a consistent copy of all events ordered by ObservedAt
// ascending (signature breaks ties).
func (b *EventBuffer) Snapshot() []*domain.TransactionEvent {
	b.mu.RLock()
	events := make([]*domain.TransactionEvent, 0, len(b.data))
	for _, e := range b.data {
		events = append(events, e.Clone())
	}
	b.mu.RUnlock()

	sort.Slice(events, func(i, j int) bool {
		if events[i].ObservedAt != events[j].ObservedAt {
			return events[i].ObservedAt < events[j].ObservedAt
		}
		return events[i].Signature < events[j].Signature
	})
	return events
}

// Recent returns up to n events, newest first.
func (b *EventBuffer) Recent(n int) []*domain.TransactionEvent {
	if n <= 0 {
		return []*domain.TransactionEvent{}
	}

	events := b.Snapshot()
	// Reverse to newest first.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	if len(events) > n {
		events = events[:n]
	}
	return events
}

// Evict removes every event with ObservedAt < now - horizonMs and returns
// the count removed. In-flight correlation passes keep working on their
// own snapshots.
func (b *EventBuffer) Evict(now, horizonMs int64) int {
	cutoff := now - horizonMs

	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for sig, e := range b.data {
		if e.ObservedAt < cutoff {
			delete(b.data, sig)
			removed++
		}
	}
	return removed
}

// Len returns the number of buffered events.
func (b *EventBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}
