package audit

import (
	"context"
	"sync"
)

// DefaultMemoryCapacity is the number of events a MemoryLogger retains by default
const DefaultMemoryCapacity = 10000

// MemoryLogger keeps the most recent events in a bounded ring.
// It backs the tenant audit endpoint and tests.
type MemoryLogger struct {
	mu     sync.RWMutex
	events []*Event
	next   int
	full   bool
}

// NewMemoryLogger creates an in-memory audit logger holding up to capacity events
func NewMemoryLogger(capacity int) *MemoryLogger {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryLogger{events: make([]*Event, capacity)}
}

// Log stores a copy of the event
func (m *MemoryLogger) Log(ctx context.Context, event *Event) error {
	e := *event
	if event.Changes != nil {
		e.Changes = append([]string(nil), event.Changes...)
	}

	m.mu.Lock()
	m.events[m.next] = &e
	m.next = (m.next + 1) % len(m.events)
	if m.next == 0 {
		m.full = true
	}
	m.mu.Unlock()
	return nil
}

// Events returns the retained events, oldest first
func (m *MemoryLogger) Events() []*Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ordered()
}

// Search returns matching events, newest first, up to f.Limit when set
func (m *MemoryLogger) Search(f Filter) []*Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ordered := m.ordered()
	out := make([]*Event, 0)
	for i := len(ordered) - 1; i >= 0; i-- {
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
		if f.Match(ordered[i]) {
			out = append(out, ordered[i])
		}
	}
	return out
}

func (m *MemoryLogger) ordered() []*Event {
	out := make([]*Event, 0, len(m.events))
	if m.full {
		out = append(out, m.events[m.next:]...)
	}
	return append(out, m.events[:m.next]...)
}

// Close is a no-op
func (m *MemoryLogger) Close() error {
	return nil
}
