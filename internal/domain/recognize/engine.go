package recognize

import (
	"context"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/datamatrix"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/easyshift/presence/internal/domain/model"
)

// EngineResult is one recognition hit from a native engine.
type EngineResult struct {
	Payload    string
	Format     string
	Confidence float64
}

// Engine abstracts a platform-provided recognition capability. Compared to
// the software path it typically accepts more symbologies and may take
// seconds per call; Detect must honor ctx so an in-flight call can be
// cancelled when the session is decided.
type Engine interface {
	// RequestAccess asks the platform for permission to use the engine.
	// Called once per session; ErrEngineDenied (possibly wrapped) means the
	// strategy disables itself rather than retrying every cycle.
	RequestAccess(ctx context.Context) error

	// Detect attempts recognition on one frame. (nil, nil) is a miss.
	Detect(ctx context.Context, frame model.Frame) (*EngineResult, error)
}

// MultiFormatEngine is the reference engine: a reader set over the broader
// symbology family (QR, Code 128, EAN-13, Data Matrix), standing in where
// the platform offers no native recognizer of its own.
type MultiFormatEngine struct {
	readers []gozxing.Reader
	hints   map[gozxing.DecodeHintType]interface{}
	// perCall simulates the platform engine's per-invocation cost; zero in
	// production, configurable in simulations.
	perCall time.Duration
}

// EngineOption applies a configuration option to the MultiFormatEngine.
type EngineOption func(*MultiFormatEngine)

// WithEngineLatency sets a simulated per-call latency.
func WithEngineLatency(d time.Duration) EngineOption {
	return func(e *MultiFormatEngine) {
		if d > 0 {
			e.perCall = d
		}
	}
}

// NewMultiFormatEngine creates the reference multi-symbology engine.
func NewMultiFormatEngine(opts ...EngineOption) *MultiFormatEngine {
	e := &MultiFormatEngine{
		readers: []gozxing.Reader{
			qrcode.NewQRCodeReader(),
			oned.NewCode128Reader(),
			oned.NewEAN13Reader(),
			datamatrix.NewDataMatrixReader(),
		},
		hints: decodeHints(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RequestAccess implements Engine. The in-process engine needs no platform
// permission.
func (e *MultiFormatEngine) RequestAccess(_ context.Context) error { return nil }

// Detect implements Engine, trying each reader in turn.
func (e *MultiFormatEngine) Detect(ctx context.Context, frame model.Frame) (*EngineResult, error) {
	if e.perCall > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.perCall):
		}
	}

	for _, reader := range e.readers {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if result := decodeWithPolarity(reader, e.hints, frame.Image); result != nil {
			return &EngineResult{
				Payload: result.GetText(),
				Format:  result.GetBarcodeFormat().String(),
			}, nil
		}
	}
	return nil, nil
}
