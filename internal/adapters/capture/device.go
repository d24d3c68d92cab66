// Package capture owns the camera stream: it requests access, negotiates
// facing mode and resolution with fallbacks, exposes frames, and releases
// hardware handles. Exactly one stream may be live per device at a time.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/easyshift/presence/internal/domain/model"
	"github.com/easyshift/presence/pkg/logger"
	"github.com/easyshift/presence/pkg/metrics"
)

// Constraints describe one acquisition attempt against the platform camera.
// Zero width/height means unconstrained.
type Constraints struct {
	Facing model.Facing
	Width  int
	Height int
}

// resolutionTiers are tried in order, most demanding first, mirroring the
// ideal-then-relax negotiation a browser performs for getUserMedia.
var resolutionTiers = []Constraints{
	{Width: 1920, Height: 1080},
	{Width: 1280, Height: 720},
	{Width: 640, Height: 480},
	{}, // unconstrained
}

// defaultFacingOrder prefers the rear camera: it points at the code being
// scanned rather than at the worker.
var defaultFacingOrder = []model.Facing{model.FacingEnvironment, model.FacingUser, model.FacingAny}

// Device coordinates acquisition and release of a single camera stream.
type Device struct {
	mu          sync.Mutex
	source      Source
	stream      *Stream
	facingOrder []model.Facing

	log logger.Logger
}

// NewDevice creates a capture device over the given platform source.
func NewDevice(source Source, opts ...Option) *Device {
	d := &Device{
		source:      source,
		facingOrder: defaultFacingOrder,
		log:         logger.Get().Named("capture"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open acquires a hardware stream, trying facing modes in priority order
// (preferred first) and progressively relaxed resolution constraints within
// each facing. Opening while a stream is live is a no-op returning the
// existing stream; no duplicate hardware request is made.
func (d *Device) Open(ctx context.Context, preferred model.Facing) (*Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream != nil && d.stream.Live() {
		return d.stream, nil
	}

	var lastErr error
	for _, facing := range d.facingPriority(preferred) {
		for _, tier := range resolutionTiers {
			c := Constraints{Facing: facing, Width: tier.Width, Height: tier.Height}
			src, err := d.source.Acquire(ctx, c)
			if err == nil {
				stream := newStream(src, c)
				d.stream = stream
				metrics.RecordCaptureOpen()
				d.log.Info(ctx, "camera stream opened",
					logger.String("facing", string(facing)),
					logger.Int("width", c.Width),
					logger.Int("height", c.Height),
				)
				return stream, nil
			}

			lastErr = classify(err)
			metrics.RecordCaptureOpenError(Kind(lastErr))
			switch {
			case errors.Is(lastErr, ErrPermissionDenied), errors.Is(lastErr, ErrDeviceBusy):
				// No facing or resolution change will help; fail fast so the
				// caller can show an actionable message.
				return nil, lastErr
			case errors.Is(lastErr, ErrNoDevice):
				// This facing has no camera; skip remaining tiers.
			case errors.Is(lastErr, ErrConstraints):
				continue // relax and retry
			default:
				continue
			}
			break
		}
	}

	if lastErr == nil {
		lastErr = ErrNoDevice
	}
	return nil, fmt.Errorf("open camera: %w", lastErr)
}

// Close releases all hardware handles. Idempotent: closing an already-closed
// device is safe, as is closing one that never opened.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream == nil {
		return nil
	}
	err := d.stream.close()
	d.stream = nil
	metrics.RecordCaptureClose()
	return err
}

// facingPriority puts preferred first, then the configured order minus
// duplicates.
func (d *Device) facingPriority(preferred model.Facing) []model.Facing {
	order := make([]model.Facing, 0, len(d.facingOrder)+1)
	if preferred != "" {
		order = append(order, preferred)
	}
	for _, f := range d.facingOrder {
		if f != preferred {
			order = append(order, f)
		}
	}
	return order
}

// classify maps raw source errors onto the package's sentinel kinds. Errors
// already wrapped in a kind pass through unchanged.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrPermissionDenied),
		errors.Is(err, ErrNoDevice),
		errors.Is(err, ErrDeviceBusy),
		errors.Is(err, ErrConstraints):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrConstraints, err)
	}
}
