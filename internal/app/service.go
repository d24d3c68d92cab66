// Package service provides the scan-session controller: the top-level
// orchestrator wiring capture, sampling, recognition, arbitration, and
// submission into one lifecycle per scan attempt.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/easyshift/presence/internal/adapters/capture"
	"github.com/easyshift/presence/internal/adapters/sampler"
	"github.com/easyshift/presence/internal/adapters/store"
	"github.com/easyshift/presence/internal/domain/model"
	"github.com/easyshift/presence/internal/domain/recognize"
	"github.com/easyshift/presence/internal/domain/session"
	"github.com/easyshift/presence/internal/domain/submit"
	"github.com/easyshift/presence/pkg/logger"
	"github.com/easyshift/presence/pkg/metrics"
)

// IdentityProvider supplies the authenticated user a session attaches its
// attendance event to. External collaborator; read-only input.
type IdentityProvider interface {
	Current(ctx context.Context) (model.Identity, error)
}

// CapabilitySource answers the one-shot platform capability query at
// session start.
type CapabilitySource interface {
	Capability(ctx context.Context) (model.Capability, error)
}

// Overlay receives state and advisory geometry events for the UI layer.
// The pipeline emits; it owns no rendering.
type Overlay interface {
	StateChanged(sessionID string, state session.Status)
	DetectionGeometry(sessionID string, quad model.Quad)
}

// noopOverlay is the default Overlay.
type noopOverlay struct{}

func (noopOverlay) StateChanged(string, session.Status)  {}
func (noopOverlay) DetectionGeometry(string, model.Quad) {}

// StaticIdentity is an IdentityProvider for single-worker deployments where
// the device is bound to one account.
type StaticIdentity struct {
	ID model.Identity
}

// Current implements IdentityProvider.
func (s StaticIdentity) Current(_ context.Context) (model.Identity, error) {
	if s.ID.UserID == "" {
		return model.Identity{}, ErrNoIdentity
	}
	return s.ID, nil
}

// StaticCapability is a fixed CapabilitySource.
type StaticCapability struct {
	Cap model.Capability
}

// Capability implements CapabilitySource.
func (s StaticCapability) Capability(_ context.Context) (model.Capability, error) {
	return s.Cap, nil
}

// Service implements the scan-session controller.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     store.Store
	submitter *submit.Submitter
	source    capture.Source
	engine    recognize.Engine
	identity  IdentityProvider
	caps      CapabilitySource
	overlay   Overlay

	// Configuration
	cooldown        time.Duration
	fastInterval    time.Duration
	slowInterval    time.Duration
	preferredFacing model.Facing
	submitAttempts  int
	submitBackoff   time.Duration

	// State
	started  bool
	runCtx   context.Context
	runStop  context.CancelFunc
	sessions map[string]*runner
	live     string // session id currently holding the camera, "" if none

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		overlay:         noopOverlay{},
		cooldown:        2 * time.Second,
		fastInterval:    sampler.DefaultFastInterval,
		slowInterval:    sampler.DefaultSlowInterval,
		preferredFacing: model.FacingEnvironment,
		submitAttempts:  3,
		submitBackoff:   250 * time.Millisecond,
		sessions:        make(map[string]*runner),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components. Idempotent.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("scan")
	}
	if s.store == nil {
		s.store = store.NewMemoryStore()
	}
	if s.identity == nil {
		s.identity = StaticIdentity{}
	}
	if s.caps == nil {
		s.caps = StaticCapability{Cap: model.Capability{
			NativeInferenceSupported: s.engine != nil,
			FacingOptions:            []model.Facing{model.FacingEnvironment, model.FacingUser, model.FacingAny},
		}}
	}
	if s.submitter == nil {
		s.submitter = submit.New(s.store,
			submit.WithMaxAttempts(s.submitAttempts),
			submit.WithBackoff(s.submitBackoff, 8*s.submitBackoff),
			submit.WithRetryableErrors(store.ErrUnavailable),
			submit.WithLogger(s.logger.Named("submit")),
		)
	}

	s.runCtx, s.runStop = context.WithCancel(context.WithoutCancel(ctx))
	s.started = true
	s.logger.Info(ctx, "scan service started",
		logger.Duration("cooldown", s.cooldown),
		logger.Duration("fastInterval", s.fastInterval),
		logger.Duration("slowInterval", s.slowInterval),
		logger.Bool("nativeEngine", s.engine != nil),
	)
	return nil
}

// Stop tears down every live session and closes the store. Idempotent.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	runners := make([]*runner, 0, len(s.sessions))
	for _, r := range s.sessions {
		runners = append(runners, r)
	}
	stop := s.runStop
	s.mu.Unlock()

	stop()
	for _, r := range runners {
		r.wait()
	}

	s.mu.Lock()
	if s.store != nil {
		_ = s.store.Close()
	}
	s.mu.Unlock()

	s.logger.Info(context.Background(), "scan service stopped")
}

// StartSession begins one live scan attempt: camera acquisition, concurrent
// recognition, arbitration, submission. It returns the new session id
// immediately; progress is observable via SessionStatus and the overlay.
// The camera is exclusive, so a second live session is refused while one is
// running.
func (s *Service) StartSession(ctx context.Context) (string, error) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return "", ErrNotStarted
	}
	if s.source == nil {
		s.mu.Unlock()
		return "", ErrNoCaptureSource
	}
	if s.live != "" {
		if r, ok := s.sessions[s.live]; ok && !r.terminal() {
			s.mu.Unlock()
			return "", ErrSessionActive
		}
		s.live = ""
	}
	identity, err := s.identity.Current(ctx)
	if err != nil || identity.UserID == "" {
		s.mu.Unlock()
		return "", ErrNoIdentity
	}
	capability, err := s.caps.Capability(ctx)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}

	sess := session.New(uuid.NewString())
	r := newRunner(s, sess, identity, capability)
	s.sessions[sess.ID()] = r
	s.live = sess.ID()
	s.mu.Unlock()

	metrics.RecordSessionStarted()
	s.updateActiveSessions()

	go r.run(s.runCtx)
	return sess.ID(), nil
}

// CancelSession cancels a session from whatever state it is in, triggering
// the same total teardown acceptance would. Idempotent; cancelling a
// terminal or unknown session is a no-op error the caller can ignore.
func (s *Service) CancelSession(id string) error {
	s.mu.RLock()
	r, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}
	r.cancel()
	return nil
}

// SessionStatus returns a snapshot of a session's state.
func (s *Service) SessionStatus(id string) (SessionSnapshot, error) {
	s.mu.RLock()
	r, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return SessionSnapshot{}, ErrSessionNotFound
	}
	return r.snapshot(), nil
}

// SessionSnapshot is the read shape returned by status queries.
type SessionSnapshot struct {
	ID         string         `json:"id"`
	Status     session.Status `json:"status"`
	StartedAt  time.Time      `json:"started_at"`
	Payload    string         `json:"payload,omitempty"`
	Method     model.Method   `json:"method,omitempty"`
	StaleCount int64          `json:"stale_count"`
	Error      string         `json:"error,omitempty"`
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := 0
	for _, r := range s.sessions {
		if !r.terminal() {
			active++
		}
	}
	stats := map[string]interface{}{
		"started":        s.started,
		"sessions":       len(s.sessions),
		"activeSessions": active,
	}
	if s.store != nil {
		if n, err := s.store.Count(context.Background()); err == nil {
			stats["eventsPersisted"] = n
		}
	}
	return stats
}

func (s *Service) updateActiveSessions() {
	s.mu.RLock()
	active := 0
	for _, r := range s.sessions {
		if !r.terminal() {
			active++
		}
	}
	s.mu.RUnlock()
	metrics.UpdateActiveSessions(active)
}

func (s *Service) releaseCamera(id string) {
	s.mu.Lock()
	if s.live == id {
		s.live = ""
	}
	s.mu.Unlock()
}
