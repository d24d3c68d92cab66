// Package submit converts an accepted detection into a single idempotent
// write to the attendance store, owning retry, backoff, and the error
// taxonomy for submissions.
package submit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/easyshift/presence/internal/domain/model"
	"github.com/easyshift/presence/pkg/logger"
	"github.com/easyshift/presence/pkg/metrics"
)

// Default submission configuration constants.
const (
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 250 * time.Millisecond
	defaultMaxBackoff     = 2 * time.Second
)

// Sink is what the submitter needs from the persistence layer. The store is
// expected to be idempotent on session id, so a retried write after an
// ambiguous failure cannot duplicate a record.
type Sink interface {
	Write(ctx context.Context, ev model.AttendanceEvent) error
}

// Submitter performs at most one in-flight submission per session.
type Submitter struct {
	sink           Sink
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	retryable      []error

	mu       sync.Mutex
	inFlight map[string]struct{}

	log logger.Logger
}

// New creates a submitter over sink.
func New(sink Sink, opts ...Option) *Submitter {
	s := &Submitter{
		sink:           sink,
		maxAttempts:    defaultMaxAttempts,
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
		inFlight:       make(map[string]struct{}),
		log:            logger.Get().Named("submit"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit persists ev, retrying transient failures with exponential backoff
// up to the configured attempt count. Fatal errors fail immediately. The
// single-flight guard refuses a second concurrent submission for the same
// session; the caller's session is already Submitting, so a second call is
// always a bug upstream, never a legitimate retry path.
func (s *Submitter) Submit(ctx context.Context, ev model.AttendanceEvent) error {
	if err := s.acquire(ev.SessionID); err != nil {
		return err
	}
	defer s.release(ev.SessionID)

	start := time.Now()
	defer func() {
		metrics.RecordSubmissionLatency(float64(time.Since(start).Milliseconds()))
	}()

	attempt := 0
	op := func() error {
		attempt++
		err := s.sink.Write(ctx, ev)
		if err == nil {
			return nil
		}
		if s.isRetryable(err) {
			metrics.RecordSubmissionRetry()
			s.log.Warn(ctx, "submission attempt failed; will retry",
				logger.String("session", ev.SessionID),
				logger.Int("attempt", attempt),
				logger.Error(err),
			)
			return err
		}
		return backoff.Permanent(err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.initialBackoff
	bo.MaxInterval = s.maxBackoff

	err := backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(s.maxAttempts-1)), ctx))
	if err != nil {
		if s.isRetryable(err) {
			metrics.RecordSubmissionFailure("retryable_exhausted")
			return fmt.Errorf("%w after %d attempts: %v", ErrExhausted, attempt, err)
		}
		metrics.RecordSubmissionFailure("fatal")
		return fmt.Errorf("submit attendance: %w", err)
	}

	metrics.RecordSubmission()
	s.log.Info(ctx, "attendance event persisted",
		logger.String("session", ev.SessionID),
		logger.String("method", string(ev.Method)),
		logger.Int("attempts", attempt),
	)
	return nil
}

// isRetryable classifies an error against the configured transient kinds.
// Context timeouts are always transient; context cancellation is not.
func (s *Submitter) isRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	for _, kind := range s.retryable {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func (s *Submitter) acquire(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inFlight[sessionID]; busy {
		return fmt.Errorf("session %s: %w", sessionID, ErrInFlight)
	}
	s.inFlight[sessionID] = struct{}{}
	return nil
}

func (s *Submitter) release(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, sessionID)
}
