// Package sampler pulls frames from a live capture stream at fixed cadences
// and hands them to recognition taps. It is purely mechanical: no decision
// logic, no frame retention.
package sampler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/easyshift/presence/internal/adapters/capture"
	"github.com/easyshift/presence/internal/domain/model"
	"github.com/easyshift/presence/pkg/logger"
	"github.com/easyshift/presence/pkg/metrics"
)

// Cadence defaults. The fast cadence serves the low-latency software
// decoder; the slow one serves native inference, which may cost seconds per
// call.
const (
	DefaultFastInterval = 300 * time.Millisecond
	DefaultSlowInterval = 3 * time.Second
)

// Tap receives frames at one cadence. Fn runs in the tap's own goroutine,
// so a slow tap never stalls a fast one.
type Tap struct {
	Name     string
	Interval time.Duration
	Fn       func(ctx context.Context, frame model.Frame)
}

// Sampler runs one goroutine per tap against a single stream.
type Sampler struct {
	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool

	log logger.Logger
}

// Option applies a configuration option to the Sampler.
type Option func(*Sampler)

// WithLogger sets a custom logger for the sampler.
func WithLogger(l logger.Logger) Option {
	return func(s *Sampler) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a sampler.
func New(opts ...Option) *Sampler {
	s := &Sampler{
		log: logger.Get().Named("sampler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins fixed-cadence pulls for every tap. Each tick pulls the
// latest frame from the stream; frames are never queued, so a tap always
// sees the newest frame and memory stays bounded regardless of feed rate.
// Starting an already-running sampler is a no-op.
func (s *Sampler) Start(ctx context.Context, stream *capture.Stream, taps []Tap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if stream == nil || !stream.Live() {
		return ErrStreamDown
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	for _, tap := range taps {
		if tap.Fn == nil || tap.Interval <= 0 {
			continue
		}
		s.wg.Add(1)
		go s.run(runCtx, stream, tap)
	}
	return nil
}

func (s *Sampler) run(ctx context.Context, stream *capture.Stream, tap Tap) {
	defer s.wg.Done()

	ticker := time.NewTicker(tap.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := stream.Frame(ctx)
			if err != nil {
				if errors.Is(err, capture.ErrStreamClosed) {
					// Stream torn down underneath us; sampling is over.
					return
				}
				s.log.Warn(ctx, "frame pull failed",
					logger.String("tap", tap.Name),
					logger.Error(err),
				)
				continue
			}
			metrics.RecordFrameSampled(tap.Name)
			tap.Fn(ctx, frame)
		}
	}
}

// Stop halts all pulls and waits for in-flight tap invocations to return.
// Idempotent; safe to call from any state.
func (s *Sampler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}
