package scansim

import (
	"fmt"
	"image"
	"math/rand"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/easyshift/presence/internal/adapters/capture"
)

// Default frame dimensions for simulated camera output.
const (
	frameSize   = 256
	noiseWidth  = 320
	noiseHeight = 240
)

// EncodeQR renders payload as a decodable QR code image.
func EncodeQR(payload string, size int) (image.Image, error) {
	writer := qrcode.NewQRCodeWriter()
	matrix, err := writer.Encode(payload, gozxing.BarcodeFormat_QR_CODE, size, size, nil)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return matrix, nil
}

// BlankImage returns a uniform mid-gray image no decoder can match.
func BlankImage(w, h int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	return img
}

// NoiseImage returns a deterministic noise image for a given seed. It
// simulates motion blur and bad lighting between readable frames.
func NoiseImage(w, h int, seed int64) image.Image {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return img
}

// NewCameraSource builds a simulated camera: a short run of unreadable
// frames, then a steady view of the encoded payload. The shape mirrors a
// worker raising a badge into view.
func NewCameraSource(payload string) (*capture.ScriptedSource, error) {
	code, err := EncodeQR(payload, frameSize)
	if err != nil {
		return nil, err
	}
	return capture.NewScriptedSource(
		BlankImage(noiseWidth, noiseHeight),
		NoiseImage(noiseWidth, noiseHeight, 1),
		NoiseImage(noiseWidth, noiseHeight, 2),
		code,
	), nil
}

// NewIdleCameraSource builds a camera that never shows a readable code.
func NewIdleCameraSource() *capture.ScriptedSource {
	return capture.NewScriptedSource(
		BlankImage(noiseWidth, noiseHeight),
	)
}
