package scansim

import (
	"context"
	"fmt"
	"time"

	"github.com/easyshift/presence/internal/adapters/capture"
	"github.com/easyshift/presence/internal/adapters/store"
	service "github.com/easyshift/presence/internal/app"
	"github.com/easyshift/presence/internal/domain/model"
	"github.com/easyshift/presence/internal/domain/recognize"
	"github.com/easyshift/presence/internal/domain/session"
	"github.com/easyshift/presence/pkg/logger"
)

// Simulated native engine latency, mirroring on-device inference cost.
const engineLatency = 40 * time.Millisecond

// Poll cadence while waiting for a session to reach a terminal state.
const pollInterval = 25 * time.Millisecond

// Run executes the complete simulation: N live scan sessions, a cancel
// scenario, a dual-strategy race, duplicate submission probing, and the
// photo path, then verifies the pipeline's guarantees against the store.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting presence scan simulation",
		logger.Int("sessions", config.Sessions),
		logger.String("payload", config.Payload),
		logger.Duration("fastInterval", config.FastInterval),
		logger.Duration("slowInterval", config.SlowInterval),
		logger.Bool("native", config.Native),
		logger.String("storeDSN", config.StoreDSN),
	)

	st, events, err := buildStore(ctx, config)
	if err != nil {
		return fmt.Errorf("store setup failed: %w", err)
	}

	if err := runLiveSessions(ctx, config, st, events, stats); err != nil {
		return fmt.Errorf("live session scenario failed: %w", err)
	}
	if err := runCancelScenario(ctx, config, st, stats); err != nil {
		return fmt.Errorf("cancel scenario failed: %w", err)
	}
	if err := runDuplicateScenario(ctx, st, events); err != nil {
		return fmt.Errorf("duplicate submission scenario failed: %w", err)
	}
	if err := runPhotoScenario(ctx, config, st, stats); err != nil {
		return fmt.Errorf("photo scenario failed: %w", err)
	}

	n, err := st.Count(ctx)
	if err != nil {
		return fmt.Errorf("store count failed: %w", err)
	}
	stats.EventsPersisted = n

	if err := verifyResults(ctx, config, events(), stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return st.Close()
}

// buildStore selects the persistence sink and a way to read it back.
func buildStore(ctx context.Context, config *Config) (store.Store, func() []model.AttendanceEvent, error) {
	if config.StoreDSN == "" {
		mem := store.NewMemoryStore()
		return mem, mem.Events, nil
	}
	db, err := store.NewSQLiteStore(ctx, config.StoreDSN)
	if err != nil {
		return nil, nil, err
	}
	return db, func() []model.AttendanceEvent {
		evs, err := db.Events(ctx)
		if err != nil {
			logger.Get().Error(ctx, "reading events back failed", logger.Error(err))
			return nil
		}
		return evs
	}, nil
}

// sharedStore shields a store shared across scenario services from the
// Close each service issues on Stop. Run closes the real store once.
type sharedStore struct {
	store.Store
}

func (sharedStore) Close() error { return nil }

func newService(config *Config, st store.Store, src capture.Source) *service.Service {
	opts := []service.Option{
		service.WithStore(sharedStore{Store: st}),
		service.WithSource(src),
		service.WithIdentityProvider(service.StaticIdentity{
			ID: model.Identity{UserID: "sim-worker", Email: "sim@easyshift.example"},
		}),
		service.WithSamplingIntervals(config.FastInterval, config.SlowInterval),
		service.WithLogger(logger.Get().Named("sim")),
	}
	if config.Native {
		opts = append(opts, service.WithEngine(
			recognize.NewMultiFormatEngine(recognize.WithEngineLatency(engineLatency)),
		))
	}
	return service.New(opts...)
}

// runLiveSessions drives config.Sessions full camera sessions to
// completion, each against a fresh scripted camera showing the payload.
func runLiveSessions(ctx context.Context, config *Config, st store.Store, events func() []model.AttendanceEvent, stats *Stats) error {
	for i := 0; i < config.Sessions; i++ {
		src, err := NewCameraSource(config.Payload)
		if err != nil {
			return err
		}
		svc := newService(config, st, src)
		if err := svc.Start(ctx); err != nil {
			return err
		}

		before := len(events())

		id, err := svc.StartSession(ctx)
		if err != nil {
			svc.Stop()
			return err
		}
		stats.SessionsRun++

		snap, err := waitTerminal(ctx, svc, id, config.Timeout)
		if err != nil {
			svc.Stop()
			return err
		}
		switch snap.Status {
		case session.StatusCompleted:
			stats.SessionsCompleted++
		default:
			stats.SessionsFailed++
			logger.Get().Warn(ctx, "live session did not complete",
				logger.String("session", id),
				logger.String("status", string(snap.Status)),
				logger.String("error", snap.Error),
			)
		}

		// At-most-one acceptance: a session persists at most one event.
		if got := len(events()) - before; got > 1 {
			svc.Stop()
			return fmt.Errorf("session %s persisted %d events", id, got)
		}
		svc.Stop()
	}
	return nil
}

// runCancelScenario starts a session against a camera that never shows a
// code and cancels it mid-scan. Teardown must be total and no event may
// be persisted.
func runCancelScenario(ctx context.Context, config *Config, st store.Store, stats *Stats) error {
	svc := newService(config, st, NewIdleCameraSource())
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	before, err := st.Count(ctx)
	if err != nil {
		return err
	}

	id, err := svc.StartSession(ctx)
	if err != nil {
		return err
	}
	stats.SessionsRun++

	// Let a few sampling ticks pass before cancelling.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(3 * config.FastInterval):
	}
	if err := svc.CancelSession(id); err != nil {
		return err
	}

	snap, err := waitTerminal(ctx, svc, id, config.Timeout)
	if err != nil {
		return err
	}
	if snap.Status != session.StatusFailed {
		return fmt.Errorf("cancelled session ended %s, want %s", snap.Status, session.StatusFailed)
	}
	stats.SessionsCancelled++

	after, err := st.Count(ctx)
	if err != nil {
		return err
	}
	if after != before {
		return fmt.Errorf("cancelled session persisted %d events", after-before)
	}
	return nil
}

// runDuplicateScenario writes the same attendance event twice, straight at
// the store contract: the second write must ack cleanly without a second
// row.
func runDuplicateScenario(ctx context.Context, st store.Store, events func() []model.AttendanceEvent) error {
	ev := model.AttendanceEvent{
		SessionID:   "sim-duplicate-probe",
		UserID:      "sim-worker",
		Payload:     "DUP-PROBE",
		Method:      model.MethodSoftwareDecode,
		CapturedAt:  time.Now(),
		SubmittedAt: time.Now(),
	}
	if err := st.Write(ctx, ev); err != nil {
		return err
	}
	if err := st.Write(ctx, ev); err != nil {
		return fmt.Errorf("duplicate write did not ack cleanly: %w", err)
	}

	seen := 0
	for _, got := range events() {
		if got.SessionID == ev.SessionID {
			seen++
		}
	}
	if seen != 1 {
		return fmt.Errorf("duplicate probe persisted %d rows, want 1", seen)
	}
	return nil
}

// runPhotoScenario exercises the static-image path: one decodable upload,
// one blank upload that must miss.
func runPhotoScenario(ctx context.Context, config *Config, st store.Store, stats *Stats) error {
	svc := newService(config, st, NewIdleCameraSource())
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	code, err := EncodeQR(config.Payload, frameSize)
	if err != nil {
		return err
	}
	ev, err := svc.SubmitImage(ctx, code)
	if err != nil {
		return fmt.Errorf("decodable photo rejected: %w", err)
	}
	if ev.Payload != config.Payload {
		return fmt.Errorf("photo payload %q, want %q", ev.Payload, config.Payload)
	}
	stats.PhotosSubmitted++

	if _, err := svc.SubmitImage(ctx, BlankImage(noiseWidth, noiseHeight)); err == nil {
		return fmt.Errorf("blank photo produced an attendance event")
	}
	stats.PhotoMisses++
	return nil
}

// waitTerminal polls a session until it reaches a terminal state.
func waitTerminal(ctx context.Context, svc *service.Service, id string, timeout time.Duration) (service.SessionSnapshot, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		snap, err := svc.SessionStatus(id)
		if err != nil {
			return service.SessionSnapshot{}, err
		}
		if snap.Status.Terminal() {
			return snap, nil
		}
		if time.Now().After(deadline) {
			return snap, fmt.Errorf("session %s still %s after %s", id, snap.Status, timeout)
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ticker.C:
		}
	}
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(stats *Stats) {
	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("sessionsRun", stats.SessionsRun),
		logger.Int("sessionsCompleted", stats.SessionsCompleted),
		logger.Int("sessionsFailed", stats.SessionsFailed),
		logger.Int("sessionsCancelled", stats.SessionsCancelled),
		logger.Int("photosSubmitted", stats.PhotosSubmitted),
		logger.Int("photoMisses", stats.PhotoMisses),
		logger.Int("eventsPersisted", stats.EventsPersisted),
		logger.String("duration", stats.Duration.String()),
	)
}
