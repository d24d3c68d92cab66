// Package recognize holds the recognition strategy set. Strategies are a
// small closed family — native inference, software decode, static image —
// behind one interface, selected at session start from the platform
// capability query.
package recognize

import (
	"context"
	"image"

	"github.com/makiuchi-d/gozxing"

	"github.com/easyshift/presence/internal/domain/model"
)

// Strategy attempts to extract a code payload from a frame. TryDetect is
// non-blocking with respect to other strategies: each runs in its own
// sampling goroutine and never waits on a sibling.
//
// A (nil, nil) return is a miss, which is not an error during live
// scanning; the sampler simply feeds the next frame.
type Strategy interface {
	ID() model.StrategyID
	TryDetect(ctx context.Context, frame model.Frame) (*model.Detection, error)
}

// decodeHints asks the decoder to spend extra effort per frame. Camera
// frames are noisy; the default fast path misses codes a TRY_HARDER pass
// finds.
func decodeHints() map[gozxing.DecodeHintType]interface{} {
	return map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
}

// decodeImage runs one reader over one image, returning nil on any miss.
func decodeImage(reader gozxing.Reader, hints map[gozxing.DecodeHintType]interface{}, img image.Image) *gozxing.Result {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil
	}
	result, err := reader.Decode(bmp, hints)
	if err != nil {
		return nil
	}
	return result
}

// decodeWithPolarity tries the image as-is and then with inverted
// luminance, tolerating light-on-dark code backgrounds.
func decodeWithPolarity(reader gozxing.Reader, hints map[gozxing.DecodeHintType]interface{}, img image.Image) *gozxing.Result {
	if result := decodeImage(reader, hints, img); result != nil {
		return result
	}
	return decodeImage(reader, hints, invert(img))
}

// invert returns a grayscale copy of img with luminance flipped.
func invert(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma, same weighting the decoder applies.
			luma := (299*r + 587*g + 114*bl) / 1000
			out.Pix[out.PixOffset(x, y)] = 255 - uint8(luma>>8)
		}
	}
	return out
}

// quadFromPoints reduces the decoder's result points to a four-corner
// bounding quad. The geometry is advisory, for UI overlay only; it never
// feeds business logic.
func quadFromPoints(points []gozxing.ResultPoint) *model.Quad {
	if len(points) == 0 {
		return nil
	}
	minX, minY := points[0].GetX(), points[0].GetY()
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		x, y := p.GetX(), p.GetY()
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}
	return &model.Quad{
		{X: minX, Y: minY},
		{X: maxX, Y: minY},
		{X: maxX, Y: maxY},
		{X: minX, Y: maxY},
	}
}
