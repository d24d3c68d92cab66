package recognize

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/easyshift/presence/internal/domain/model"
	"github.com/easyshift/presence/pkg/metrics"
)

// StaticImage decodes one user-supplied still image. It runs the same
// polarity-tolerant routine as SoftwareDecode but terminates after a single
// attempt: success or ErrDecodeMiss, never an automatic retry.
type StaticImage struct {
	reader gozxing.Reader
	hints  map[gozxing.DecodeHintType]interface{}
}

// NewStaticImage creates the static-image strategy.
func NewStaticImage() *StaticImage {
	return &StaticImage{
		reader: qrcode.NewQRCodeReader(),
		hints:  decodeHints(),
	}
}

// ID implements Strategy.
func (s *StaticImage) ID() model.StrategyID { return model.StrategyStaticImage }

// TryDetect implements Strategy for a frame wrapping the uploaded image.
func (s *StaticImage) TryDetect(_ context.Context, frame model.Frame) (*model.Detection, error) {
	return s.DetectImage(frame.Image)
}

// DetectImage runs the one-shot decode against a still image.
func (s *StaticImage) DetectImage(img image.Image) (*model.Detection, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDecodeLatency(string(s.ID()), float64(time.Since(start).Milliseconds()))
	}()

	result := decodeWithPolarity(s.reader, s.hints, img)
	if result == nil {
		metrics.RecordDecodeMiss(string(s.ID()))
		return nil, fmt.Errorf("static image decode: %w", ErrDecodeMiss)
	}

	return &model.Detection{
		Strategy:   s.ID(),
		Payload:    result.GetText(),
		Geometry:   quadFromPoints(result.GetResultPoints()),
		DetectedAt: time.Now(),
	}, nil
}
