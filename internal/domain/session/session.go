// Package session holds the scan-session state machine and the detection
// arbiter. A Session is an explicit value mutated only through named
// transitions; there are no ambient flags scattered across call sites.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/easyshift/presence/internal/domain/model"
)

// Status is the lifecycle state of a scan session.
type Status string

// Session states. Failed is reachable from any non-terminal state.
const (
	StatusIdle             Status = "idle"
	StatusRequestingAccess Status = "requesting_access"
	StatusStreaming        Status = "streaming"
	StatusScanning         Status = "scanning"
	StatusDetected         Status = "detected"
	StatusSubmitting       Status = "submitting"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Session is one end-to-end attempt to detect a code and produce an
// attendance event. Safe for concurrent use: the controller drives the
// lifecycle while the arbiter records acceptance.
type Session struct {
	mu sync.RWMutex

	id              string
	startedAt       time.Time
	status          Status
	active          map[model.StrategyID]struct{}
	lastDetectionAt time.Time
	err             error
}

// New returns an Idle session with the given id.
func New(id string) *Session {
	return &Session{
		id:        id,
		startedAt: time.Now(),
		status:    StatusIdle,
		active:    make(map[model.StrategyID]struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// StartedAt returns when the scan attempt began.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Err returns why the session failed; nil unless Status is Failed.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// LastDetectionAt returns the acceptance timestamp, zero before any.
func (s *Session) LastDetectionAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastDetectionAt
}

// ActiveStrategies returns the strategies currently allowed to produce.
func (s *Session) ActiveStrategies() []model.StrategyID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.StrategyID, 0, len(s.active))
	for id := range s.active {
		out = append(out, id)
	}
	return out
}

// legal transitions, keyed by source state.
var transitions = map[Status][]Status{
	StatusIdle:             {StatusRequestingAccess},
	StatusRequestingAccess: {StatusStreaming},
	StatusStreaming:        {StatusScanning},
	StatusScanning:         {StatusDetected},
	StatusDetected:         {StatusSubmitting},
	StatusSubmitting:       {StatusCompleted},
}

// transition must be called with s.mu held.
func (s *Session) transition(to Status) error {
	if s.status.Terminal() {
		return fmt.Errorf("session %s: %w: %s -> %s", s.id, ErrTerminalState, s.status, to)
	}
	for _, next := range transitions[s.status] {
		if next == to {
			s.status = to
			return nil
		}
	}
	return fmt.Errorf("session %s: %w: %s -> %s", s.id, ErrBadTransition, s.status, to)
}

// Begin moves Idle -> RequestingAccess when a scan attempt starts.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(StatusRequestingAccess)
}

// StreamUp moves RequestingAccess -> Streaming after the capture device
// opened.
func (s *Session) StreamUp() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(StatusStreaming)
}

// ScanStart moves Streaming -> Scanning and records the strategies that
// will run concurrently.
func (s *Session) ScanStart(active ...model.StrategyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transition(StatusScanning); err != nil {
		return err
	}
	for _, id := range active {
		s.active[id] = struct{}{}
	}
	return nil
}

// Accept moves Scanning -> Detected for the winning detection and clears
// the active strategy set: nothing may produce after acceptance.
func (s *Session) Accept(at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transition(StatusDetected); err != nil {
		return err
	}
	s.lastDetectionAt = at
	s.active = make(map[model.StrategyID]struct{})
	return nil
}

// Submit moves Detected -> Submitting.
func (s *Session) Submit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(StatusSubmitting)
}

// Complete moves Submitting -> Completed.
func (s *Session) Complete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(StatusCompleted)
}

// Fail moves any non-terminal state to Failed, recording cause. A terminal
// session is left untouched; the first cause wins. Returns true when the
// state actually changed.
func (s *Session) Fail(cause error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.Terminal() {
		return false
	}
	s.status = StatusFailed
	s.err = cause
	s.active = make(map[model.StrategyID]struct{})
	return true
}
