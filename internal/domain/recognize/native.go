package recognize

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/easyshift/presence/internal/domain/model"
	"github.com/easyshift/presence/pkg/logger"
	"github.com/easyshift/presence/pkg/metrics"
)

// NativeInference wraps a platform engine. It must only be constructed when
// the capability query reports native support; the controller enforces
// that, so a session without support never reaches a platform call.
type NativeInference struct {
	engine Engine

	permOnce sync.Once
	disabled atomic.Bool

	log logger.Logger
}

// NewNativeInference creates the native strategy over the given engine.
func NewNativeInference(engine Engine, opts ...NativeOption) *NativeInference {
	n := &NativeInference{
		engine: engine,
		log:    logger.Get().Named("native"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NativeOption applies a configuration option to NativeInference.
type NativeOption func(*NativeInference)

// WithNativeLogger sets a custom logger.
func WithNativeLogger(l logger.Logger) NativeOption {
	return func(n *NativeInference) {
		if l != nil {
			n.log = l
		}
	}
}

// ID implements Strategy.
func (n *NativeInference) ID() model.StrategyID { return model.StrategyNativeInference }

// Disabled reports whether the strategy shut itself off for this session.
func (n *NativeInference) Disabled() bool { return n.disabled.Load() }

// TryDetect implements Strategy. Platform permission is requested on the
// first call only; a refusal disables the strategy for the whole session
// instead of re-prompting every cycle.
func (n *NativeInference) TryDetect(ctx context.Context, frame model.Frame) (*model.Detection, error) {
	if n.disabled.Load() {
		return nil, nil
	}

	n.permOnce.Do(func() {
		if err := n.engine.RequestAccess(ctx); err != nil {
			n.disabled.Store(true)
			metrics.RecordErrorByComponent("native", "permission_refused")
			n.log.Warn(ctx, "native engine access refused; disabling for session",
				logger.Error(err),
			)
		}
	})
	if n.disabled.Load() {
		return nil, nil
	}

	start := time.Now()
	result, err := n.engine.Detect(ctx, frame)
	metrics.RecordDecodeLatency(string(n.ID()), float64(time.Since(start).Milliseconds()))
	if err != nil {
		// Cancellation races with acceptance; a late or aborted call is
		// expected, not a session failure.
		if ctx.Err() != nil {
			return nil, nil
		}
		metrics.RecordErrorByComponent("native", "engine_error")
		n.log.Warn(ctx, "native engine call failed", logger.Error(err))
		return nil, nil
	}
	if result == nil {
		metrics.RecordDecodeMiss(string(n.ID()))
		return nil, nil
	}

	return &model.Detection{
		Strategy:   n.ID(),
		Payload:    result.Payload,
		Confidence: result.Confidence,
		DetectedAt: time.Now(),
	}, nil
}
