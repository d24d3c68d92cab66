package recognize

import (
	"context"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/easyshift/presence/internal/domain/model"
	"github.com/easyshift/presence/pkg/metrics"
)

// SoftwareDecode recognizes QR codes purely from pixel data. It is the
// portable path: it works wherever a frame buffer is available, attempts
// both polarities per frame, and reports the code's corner points so the UI
// can draw feedback.
type SoftwareDecode struct {
	reader gozxing.Reader
	hints  map[gozxing.DecodeHintType]interface{}
}

// NewSoftwareDecode creates the software QR decoding strategy.
func NewSoftwareDecode() *SoftwareDecode {
	return &SoftwareDecode{
		reader: qrcode.NewQRCodeReader(),
		hints:  decodeHints(),
	}
}

// ID implements Strategy.
func (s *SoftwareDecode) ID() model.StrategyID { return model.StrategySoftwareDecode }

// TryDetect implements Strategy. A frame with no code yields (nil, nil).
func (s *SoftwareDecode) TryDetect(_ context.Context, frame model.Frame) (*model.Detection, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDecodeLatency(string(s.ID()), float64(time.Since(start).Milliseconds()))
	}()

	result := decodeWithPolarity(s.reader, s.hints, frame.Image)
	if result == nil {
		metrics.RecordDecodeMiss(string(s.ID()))
		return nil, nil
	}

	return &model.Detection{
		Strategy:   s.ID(),
		Payload:    result.GetText(),
		Geometry:   quadFromPoints(result.GetResultPoints()),
		DetectedAt: time.Now(),
	}, nil
}
