package publisher

import (
	"context"
	"sync"

	"trustgrid/pkg/platform/audit"
)

// Memory collects events in process memory for tests and local runs.
type Memory struct {
	mu     sync.Mutex
	events []audit.Event
}

// NewMemory constructs an empty in-memory publisher.
func NewMemory() *Memory {
	return &Memory{}
}

// Emit appends the event.
func (m *Memory) Emit(_ context.Context, event audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of everything emitted so far.
func (m *Memory) Events() []audit.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]audit.Event, len(m.events))
	copy(out, m.events)
	return out
}

// Noop drops every event. The resolver's default when auditing is not wired.
type Noop struct{}

// Emit discards the event.
func (Noop) Emit(context.Context, audit.Event) error { return nil }
