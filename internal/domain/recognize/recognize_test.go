package recognize_test

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/smartystreets/goconvey/convey"

	"github.com/easyshift/presence/internal/domain/model"
	"github.com/easyshift/presence/internal/domain/recognize"
	"github.com/easyshift/presence/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// qrImage encodes payload as a decodable QR code.
func qrImage(payload string) image.Image {
	writer := qrcode.NewQRCodeWriter()
	matrix, err := writer.Encode(payload, gozxing.BarcodeFormat_QR_CODE, 256, 256, nil)
	if err != nil {
		panic(err)
	}
	return matrix
}

// invertedCopy flips every pixel, producing a light-on-dark code.
func invertedCopy(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			out.Pix[out.PixOffset(x, y)] = 255 - uint8(r>>8)
		}
	}
	return out
}

func blankImage() image.Image {
	img := image.NewGray(image.Rect(0, 0, 320, 240))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	return img
}

func frameOf(img image.Image) model.Frame {
	b := img.Bounds()
	return model.Frame{
		Width:      b.Dx(),
		Height:     b.Dy(),
		Image:      img,
		CapturedAt: time.Now(),
	}
}

func TestSoftwareDecode(t *testing.T) {
	convey.Convey("Given the software decode strategy", t, func() {
		ctx := context.Background()
		strategy := recognize.NewSoftwareDecode()

		convey.Convey("When a frame shows a QR code", func() {
			det, err := strategy.TryDetect(ctx, frameOf(qrImage("BADGE-1234")))

			convey.Convey("Then it detects the payload with corner geometry", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(det, convey.ShouldNotBeNil)
				convey.So(det.Payload, convey.ShouldEqual, "BADGE-1234")
				convey.So(det.Strategy, convey.ShouldEqual, model.StrategySoftwareDecode)
				convey.So(det.Geometry, convey.ShouldNotBeNil)
				convey.So(det.DetectedAt.IsZero(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the code polarity is inverted", func() {
			det, err := strategy.TryDetect(ctx, frameOf(invertedCopy(qrImage("BADGE-INV"))))

			convey.Convey("Then the inverted pass still reads it", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(det, convey.ShouldNotBeNil)
				convey.So(det.Payload, convey.ShouldEqual, "BADGE-INV")
			})
		})

		convey.Convey("When a frame shows nothing", func() {
			det, err := strategy.TryDetect(ctx, frameOf(blankImage()))

			convey.Convey("Then it misses without error", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(det, convey.ShouldBeNil)
			})
		})
	})
}

func TestStaticImage(t *testing.T) {
	convey.Convey("Given the static image strategy", t, func() {
		strategy := recognize.NewStaticImage()

		convey.Convey("When the uploaded image contains a code", func() {
			det, err := strategy.DetectImage(qrImage("PHOTO-77"))

			convey.Convey("Then one attempt succeeds", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(det, convey.ShouldNotBeNil)
				convey.So(det.Payload, convey.ShouldEqual, "PHOTO-77")
				convey.So(det.Strategy, convey.ShouldEqual, model.StrategyStaticImage)
			})
		})

		convey.Convey("When the uploaded image contains no code", func() {
			det, err := strategy.DetectImage(blankImage())

			convey.Convey("Then it fails with a decode miss, no retry", func() {
				convey.So(det, convey.ShouldBeNil)
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, recognize.ErrDecodeMiss), convey.ShouldBeTrue)
			})
		})
	})
}

// deniedEngine refuses platform access.
type deniedEngine struct {
	calls int
}

func (d *deniedEngine) RequestAccess(context.Context) error {
	d.calls++
	return recognize.ErrEngineDenied
}

func (d *deniedEngine) Detect(context.Context, model.Frame) (*recognize.EngineResult, error) {
	return nil, errors.New("detect must not run without access")
}

func TestNativeInference(t *testing.T) {
	convey.Convey("Given the native inference strategy", t, func() {
		ctx := context.Background()

		convey.Convey("When backed by the multi-format engine", func() {
			strategy := recognize.NewNativeInference(recognize.NewMultiFormatEngine())

			det, err := strategy.TryDetect(ctx, frameOf(qrImage("NATIVE-9")))

			convey.Convey("Then it detects the payload", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(det, convey.ShouldNotBeNil)
				convey.So(det.Payload, convey.ShouldEqual, "NATIVE-9")
				convey.So(det.Strategy, convey.ShouldEqual, model.StrategyNativeInference)
			})
		})

		convey.Convey("When the platform refuses engine access", func() {
			engine := &deniedEngine{}
			strategy := recognize.NewNativeInference(engine)

			first, err1 := strategy.TryDetect(ctx, frameOf(qrImage("X")))
			second, err2 := strategy.TryDetect(ctx, frameOf(qrImage("X")))

			convey.Convey("Then the strategy disables itself after one prompt", func() {
				convey.So(err1, convey.ShouldBeNil)
				convey.So(first, convey.ShouldBeNil)
				convey.So(err2, convey.ShouldBeNil)
				convey.So(second, convey.ShouldBeNil)
				convey.So(engine.calls, convey.ShouldEqual, 1)
				convey.So(strategy.Disabled(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the session is cancelled mid-call", func() {
			engine := recognize.NewMultiFormatEngine(recognize.WithEngineLatency(time.Second))
			strategy := recognize.NewNativeInference(engine)

			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			det, err := strategy.TryDetect(cancelled, frameOf(qrImage("LATE")))

			convey.Convey("Then the aborted call is a quiet miss", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(det, convey.ShouldBeNil)
			})
		})
	})
}

func TestMultiFormatEngine(t *testing.T) {
	convey.Convey("Given the multi-format engine", t, func() {
		ctx := context.Background()
		engine := recognize.NewMultiFormatEngine()

		convey.Convey("When a QR frame is offered", func() {
			result, err := engine.Detect(ctx, frameOf(qrImage("ENGINE-1")))

			convey.Convey("Then it reports payload and format", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(result, convey.ShouldNotBeNil)
				convey.So(result.Payload, convey.ShouldEqual, "ENGINE-1")
				convey.So(result.Format, convey.ShouldEqual, "QR_CODE")
			})
		})

		convey.Convey("When nothing is recognizable", func() {
			result, err := engine.Detect(ctx, frameOf(blankImage()))

			convey.Convey("Then it misses without error", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(result, convey.ShouldBeNil)
			})
		})
	})
}
