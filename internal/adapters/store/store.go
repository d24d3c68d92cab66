// Package store is the persistence sink for attendance events. Writes are
// idempotent on session id: a retried submission after an ambiguous network
// failure never creates a duplicate record.
package store

import (
	"context"

	"github.com/easyshift/presence/internal/domain/model"
)

// Store persists attendance events.
type Store interface {
	// Write durably records one event. Writing the same session id twice is
	// an acknowledged no-op.
	Write(ctx context.Context, ev model.AttendanceEvent) error

	// Count returns the number of persisted events.
	Count(ctx context.Context) (int, error)

	// Close releases the underlying resource. Idempotent.
	Close() error
}
