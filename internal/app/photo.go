package service

import (
	"context"
	"image"
	"time"

	"github.com/google/uuid"

	"github.com/easyshift/presence/internal/domain/model"
	"github.com/easyshift/presence/internal/domain/recognize"
	"github.com/easyshift/presence/internal/domain/session"
	"github.com/easyshift/presence/pkg/logger"
	"github.com/easyshift/presence/pkg/metrics"
)

// SubmitImage runs the photo-upload path: a one-shot decode of a still
// image followed by the same submission the live path performs. The call
// is synchronous; no camera is involved and the live-session exclusivity
// rule does not apply. A decode miss fails the attempt without retrying.
func (s *Service) SubmitImage(ctx context.Context, img image.Image) (model.AttendanceEvent, error) {
	s.mu.RLock()
	started := s.started
	identityProvider := s.identity
	submitter := s.submitter
	s.mu.RUnlock()

	if !started {
		return model.AttendanceEvent{}, ErrNotStarted
	}
	identity, err := identityProvider.Current(ctx)
	if err != nil || identity.UserID == "" {
		return model.AttendanceEvent{}, ErrNoIdentity
	}

	sess := session.New(uuid.NewString())
	metrics.RecordSessionStarted()

	// The still path walks the same lifecycle; camera stages are vacuous.
	if err := sess.Begin(); err != nil {
		return model.AttendanceEvent{}, err
	}
	if err := sess.StreamUp(); err != nil {
		return model.AttendanceEvent{}, err
	}
	if err := sess.ScanStart(model.StrategyStaticImage); err != nil {
		return model.AttendanceEvent{}, err
	}

	det, err := recognize.NewStaticImage().DetectImage(img)
	if err != nil {
		sess.Fail(err)
		metrics.RecordSessionFailed("decode_miss")
		s.logger.Info(ctx, "photo decode missed",
			logger.String("session", sess.ID()),
			logger.Error(err),
		)
		return model.AttendanceEvent{}, err
	}

	arb := session.NewArbiter(sess,
		session.WithArbiterLogger(s.logger.Named("arbiter")),
	)
	if !arb.Offer(ctx, *det) {
		sess.Fail(session.ErrBadTransition)
		metrics.RecordSessionFailed("arbitration")
		return model.AttendanceEvent{}, session.ErrBadTransition
	}

	if err := sess.Submit(); err != nil {
		return model.AttendanceEvent{}, err
	}
	ev := model.AttendanceEvent{
		SessionID:   sess.ID(),
		UserID:      identity.UserID,
		Payload:     det.Payload,
		Method:      model.MethodStaticImage,
		CapturedAt:  det.DetectedAt,
		SubmittedAt: time.Now(),
	}
	if err := submitter.Submit(ctx, ev); err != nil {
		sess.Fail(err)
		metrics.RecordSessionFailed("submission")
		return model.AttendanceEvent{}, err
	}
	if err := sess.Complete(); err != nil {
		return model.AttendanceEvent{}, err
	}
	metrics.RecordSessionCompleted()
	s.logger.Info(ctx, "photo attendance submitted",
		logger.String("session", sess.ID()),
		logger.String("payload", det.Payload),
	)
	return ev, nil
}
