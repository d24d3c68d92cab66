package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/easyshift/presence/internal/domain/model"
	"github.com/easyshift/presence/pkg/logger"
	"github.com/easyshift/presence/pkg/metrics"
)

// defaultCooldown suppresses a second read of the same code when two
// strategies fire within one frame-processing burst.
const defaultCooldown = 2 * time.Second

// FreezeFunc tears the live pipeline down after a detection is accepted:
// stop the sampler, release the camera, cancel in-flight strategy calls.
// It must be idempotent; the arbiter may run it at most once.
type FreezeFunc func()

// Arbiter is the single-assignment winner slot for a session. Strategies
// offer candidate detections concurrently; the first acceptable one wins and
// every later offer is a no-op counted as stale. "Already decided" is a
// cheap check under one mutex, so no offer path ever blocks for long.
type Arbiter struct {
	mu       sync.Mutex
	sess     *Session
	cooldown time.Duration
	freeze   FreezeFunc
	frozen   bool
	winner   *model.Detection
	stale    atomic.Int64

	log logger.Logger
}

// ArbiterOption configures an Arbiter.
type ArbiterOption func(*Arbiter)

// WithCooldown overrides the duplicate-read cooldown window.
func WithCooldown(d time.Duration) ArbiterOption {
	return func(a *Arbiter) {
		if d > 0 {
			a.cooldown = d
		}
	}
}

// WithFreeze registers the pipeline teardown hook run on acceptance.
func WithFreeze(f FreezeFunc) ArbiterOption {
	return func(a *Arbiter) { a.freeze = f }
}

// WithArbiterLogger sets a custom logger.
func WithArbiterLogger(l logger.Logger) ArbiterOption {
	return func(a *Arbiter) {
		if l != nil {
			a.log = l
		}
	}
}

// NewArbiter creates an arbiter owning acceptance decisions for sess.
func NewArbiter(sess *Session, opts ...ArbiterOption) *Arbiter {
	a := &Arbiter{
		sess:     sess,
		cooldown: defaultCooldown,
		log:      logger.Get().Named("arbiter"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Offer presents a candidate detection. It returns true when det was
// promoted to the session's single accepted detection. A detection is
// accepted only if nothing has been accepted yet, the arbiter has not been
// frozen, the session is still Scanning, and the cooldown has elapsed since
// the last detection.
func (a *Arbiter) Offer(ctx context.Context, det model.Detection) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.frozen || a.winner != nil || a.sess.Status() != StatusScanning {
		a.discard(ctx, det, "already decided")
		return false
	}
	if last := a.sess.LastDetectionAt(); !last.IsZero() && det.DetectedAt.Sub(last) < a.cooldown {
		a.discard(ctx, det, "within cooldown")
		return false
	}
	if err := a.sess.Accept(det.DetectedAt); err != nil {
		a.discard(ctx, det, "transition refused")
		return false
	}

	d := det
	a.winner = &d
	metrics.RecordDetectionAccepted(string(det.Strategy))
	a.log.Info(ctx, "detection accepted",
		logger.String("session", a.sess.ID()),
		logger.String("strategy", string(det.Strategy)),
	)
	a.runFreeze()
	return true
}

// discard counts and logs a losing offer. Stale results are not errors, but
// they must be observable so tests can assert arbitration determinism.
func (a *Arbiter) discard(ctx context.Context, det model.Detection, reason string) {
	a.stale.Add(1)
	metrics.RecordStaleResult(string(det.Strategy))
	a.log.Debug(ctx, "stale detection discarded",
		logger.String("session", a.sess.ID()),
		logger.String("strategy", string(det.Strategy)),
		logger.String("reason", reason),
	)
}

// runFreeze must be called with a.mu held.
func (a *Arbiter) runFreeze() {
	if a.frozen || a.freeze == nil {
		a.frozen = true
		return
	}
	a.frozen = true
	a.freeze()
}

// Freeze runs the teardown hook without accepting anything. Used on cancel
// and unmount so teardown is total from any state. Idempotent.
func (a *Arbiter) Freeze() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runFreeze()
}

// Winner returns the accepted detection, or nil while undecided.
func (a *Arbiter) Winner() *model.Detection {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.winner
}

// StaleCount reports how many offers were discarded.
func (a *Arbiter) StaleCount() int64 {
	return a.stale.Load()
}
