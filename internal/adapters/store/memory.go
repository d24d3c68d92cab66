package store

import (
	"context"
	"sync"

	"github.com/easyshift/presence/internal/domain/model"
)

// MemoryStore implements Store in memory. It backs tests and simulations
// and can be scripted to fail, one error per Write call, to exercise the
// submitter's retry taxonomy.
type MemoryStore struct {
	mu       sync.Mutex
	events   map[string]model.AttendanceEvent
	failures []error
	writes   int
}

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithFailures scripts the store to return each error, in order, for the
// next Write calls before succeeding.
func WithFailures(errs ...error) MemoryOption {
	return func(m *MemoryStore) {
		m.failures = append(m.failures, errs...)
	}
}

// NewMemoryStore creates an in-memory attendance store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		events: make(map[string]model.AttendanceEvent),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Write implements Store.
func (m *MemoryStore) Write(_ context.Context, ev model.AttendanceEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writes++
	if len(m.failures) > 0 {
		err := m.failures[0]
		m.failures = m.failures[1:]
		return err
	}

	if _, exists := m.events[ev.SessionID]; exists {
		return nil // idempotent ack
	}
	m.events[ev.SessionID] = ev
	return nil
}

// Count implements Store.
func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events), nil
}

// Events returns a copy of all persisted events.
func (m *MemoryStore) Events() []model.AttendanceEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.AttendanceEvent, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev)
	}
	return out
}

// Writes reports how many Write calls were made, including failed ones.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
