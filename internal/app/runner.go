package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/easyshift/presence/internal/adapters/capture"
	"github.com/easyshift/presence/internal/adapters/sampler"
	"github.com/easyshift/presence/internal/domain/model"
	"github.com/easyshift/presence/internal/domain/recognize"
	"github.com/easyshift/presence/internal/domain/session"
	"github.com/easyshift/presence/pkg/logger"
	"github.com/easyshift/presence/pkg/metrics"
)

// runner drives one live scan session through its lifecycle. All session
// state mutation happens on the runner goroutine or under the arbiter's
// lock; callers read through snapshots.
type runner struct {
	svc        *Service
	identity   model.Identity
	capability model.Capability

	mu     sync.Mutex
	sess   *session.Session
	arb    *session.Arbiter
	winner *model.Detection

	cancelOnce sync.Once
	cancelCh   chan struct{}
	done       chan struct{}
}

func newRunner(svc *Service, sess *session.Session, identity model.Identity, capability model.Capability) *runner {
	return &runner{
		svc:        svc,
		identity:   identity,
		capability: capability,
		sess:       sess,
		cancelCh:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (r *runner) cancel() {
	r.cancelOnce.Do(func() { close(r.cancelCh) })
}

func (r *runner) wait() { <-r.done }

func (r *runner) terminal() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sess.Status().Terminal()
}

func (r *runner) snapshot() SessionSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := SessionSnapshot{
		ID:        r.sess.ID(),
		Status:    r.sess.Status(),
		StartedAt: r.sess.StartedAt(),
	}
	if r.arb != nil {
		snap.StaleCount = r.arb.StaleCount()
	}
	if r.winner != nil {
		snap.Payload = r.winner.Payload
		snap.Method = model.Method(r.winner.Strategy)
	}
	if err := r.sess.Err(); err != nil {
		snap.Error = err.Error()
	}
	return snap
}

// emit publishes a state change to the overlay after a transition.
func (r *runner) emit() {
	r.mu.Lock()
	id, status := r.sess.ID(), r.sess.Status()
	r.mu.Unlock()
	r.svc.overlay.StateChanged(id, status)
}

func (r *runner) fail(ctx context.Context, cause error, reason string) {
	r.mu.Lock()
	changed := r.sess.Fail(cause)
	r.mu.Unlock()
	if !changed {
		return
	}
	if errors.Is(cause, session.ErrCancelled) {
		metrics.RecordSessionCancelled()
	} else {
		metrics.RecordSessionFailed(reason)
	}
	r.svc.logger.Info(ctx, "scan session failed",
		logger.String("session", r.sess.ID()),
		logger.String("reason", reason),
		logger.Error(cause),
	)
	r.emit()
}

// run executes the session lifecycle: open camera, sample concurrently,
// arbitrate, submit. It owns total teardown on every exit path.
func (r *runner) run(ctx context.Context) {
	start := time.Now()
	defer func() {
		close(r.done)
		r.svc.releaseCamera(r.sess.ID())
		r.svc.updateActiveSessions()
		metrics.RecordSessionDuration(time.Since(start).Seconds())
	}()

	// Per-session context: user cancel and service stop share one path.
	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()
	go func() {
		select {
		case <-r.cancelCh:
			stopRun()
		case <-runCtx.Done():
		}
	}()

	r.mu.Lock()
	err := r.sess.Begin()
	r.mu.Unlock()
	if err != nil {
		r.fail(runCtx, err, "bad_transition")
		return
	}
	r.emit()

	device := capture.NewDevice(r.svc.source,
		capture.WithFacingOrder(r.capability.FacingOptions),
		capture.WithLogger(r.svc.logger.Named("capture")),
	)
	defer func() { _ = device.Close() }()

	stream, err := device.Open(runCtx, r.svc.preferredFacing)
	if err != nil {
		r.fail(runCtx, err, capture.Kind(err))
		return
	}

	r.mu.Lock()
	err = r.sess.StreamUp()
	r.mu.Unlock()
	if err != nil {
		r.fail(runCtx, err, "bad_transition")
		return
	}
	r.emit()

	// scanCtx ends the moment the session is decided; the arbiter's freeze
	// hook cancels it rather than blocking inside a tap goroutine.
	scanCtx, stopScan := context.WithCancel(runCtx)
	defer stopScan()

	r.mu.Lock()
	r.arb = session.NewArbiter(r.sess,
		session.WithCooldown(r.svc.cooldown),
		session.WithFreeze(func() { stopScan() }),
		session.WithArbiterLogger(r.svc.logger.Named("arbiter")),
	)
	arb := r.arb
	r.mu.Unlock()

	taps, active := r.buildTaps(arb)

	r.mu.Lock()
	err = r.sess.ScanStart(active...)
	r.mu.Unlock()
	if err != nil {
		r.fail(runCtx, err, "bad_transition")
		return
	}
	r.emit()

	smplr := sampler.New(sampler.WithLogger(r.svc.logger.Named("sampler")))
	if err := smplr.Start(scanCtx, stream, taps); err != nil {
		r.fail(runCtx, err, "sampler")
		return
	}

	// Wait until a detection is accepted, the user cancels, or the service
	// stops. Teardown below is identical for all three. Freeze comes first:
	// a tap still in flight while the sampler drains must not be able to
	// win after the session was already torn down.
	<-scanCtx.Done()
	arb.Freeze()
	smplr.Stop()
	_ = device.Close()

	winner := arb.Winner()
	if winner == nil {
		r.fail(runCtx, session.ErrCancelled, "cancelled")
		return
	}

	r.mu.Lock()
	r.winner = winner
	r.mu.Unlock()
	r.emit()
	if winner.Geometry != nil {
		r.svc.overlay.DetectionGeometry(r.sess.ID(), *winner.Geometry)
	}

	r.submit(runCtx, winner)
}

// buildTaps assembles the concurrent recognition taps for this session:
// software decode on the fast cadence always, native inference on the slow
// cadence only when the platform supports it.
func (r *runner) buildTaps(arb *session.Arbiter) ([]sampler.Tap, []model.StrategyID) {
	software := recognize.NewSoftwareDecode()
	taps := []sampler.Tap{
		{
			Name:     string(software.ID()),
			Interval: r.svc.fastInterval,
			Fn:       r.tapFn(arb, software),
		},
	}
	active := []model.StrategyID{software.ID()}

	if r.capability.NativeInferenceSupported && r.svc.engine != nil {
		native := recognize.NewNativeInference(r.svc.engine,
			recognize.WithNativeLogger(r.svc.logger.Named("native")),
		)
		taps = append(taps, sampler.Tap{
			Name:     string(native.ID()),
			Interval: r.svc.slowInterval,
			Fn:       r.tapFn(arb, native),
		})
		active = append(active, native.ID())
	}
	return taps, active
}

func (r *runner) tapFn(arb *session.Arbiter, strategy recognize.Strategy) func(context.Context, model.Frame) {
	return func(ctx context.Context, frame model.Frame) {
		det, err := strategy.TryDetect(ctx, frame)
		if err != nil || det == nil {
			return
		}
		arb.Offer(ctx, *det)
	}
}

func (r *runner) submit(ctx context.Context, winner *model.Detection) {
	r.mu.Lock()
	err := r.sess.Submit()
	r.mu.Unlock()
	if err != nil {
		r.fail(ctx, err, "bad_transition")
		return
	}
	r.emit()

	ev := model.AttendanceEvent{
		SessionID:   r.sess.ID(),
		UserID:      r.identity.UserID,
		Payload:     winner.Payload,
		Method:      model.Method(winner.Strategy),
		CapturedAt:  winner.DetectedAt,
		SubmittedAt: time.Now(),
	}
	if err := r.svc.submitter.Submit(ctx, ev); err != nil {
		r.fail(ctx, err, "submission")
		return
	}

	r.mu.Lock()
	err = r.sess.Complete()
	r.mu.Unlock()
	if err != nil {
		r.fail(ctx, err, "bad_transition")
		return
	}
	metrics.RecordSessionCompleted()
	r.svc.logger.Info(ctx, "scan session completed",
		logger.String("session", r.sess.ID()),
		logger.String("method", string(ev.Method)),
	)
	r.emit()
}
