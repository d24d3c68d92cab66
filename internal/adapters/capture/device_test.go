package capture_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/easyshift/presence/internal/adapters/capture"
	"github.com/easyshift/presence/internal/domain/model"
	"github.com/easyshift/presence/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakeSource scripts acquisition outcomes per constraint set and records
// every attempt so tests can assert the negotiation order.
type fakeSource struct {
	mu       sync.Mutex
	attempts []capture.Constraints
	decide   func(capture.Constraints) error
}

func (f *fakeSource) Acquire(_ context.Context, c capture.Constraints) (capture.FrameSource, error) {
	f.mu.Lock()
	f.attempts = append(f.attempts, c)
	f.mu.Unlock()

	if f.decide != nil {
		if err := f.decide(c); err != nil {
			return nil, err
		}
	}
	return &fakeStream{}, nil
}

func (f *fakeSource) recorded() []capture.Constraints {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]capture.Constraints, len(f.attempts))
	copy(out, f.attempts)
	return out
}

type fakeStream struct {
	released bool
}

func (f *fakeStream) Frame(_ context.Context) (model.Frame, error) {
	return model.Frame{Width: 1, Height: 1, CapturedAt: time.Now()}, nil
}

func (f *fakeStream) Release() error {
	f.released = true
	return nil
}

func TestDeviceOpen(t *testing.T) {
	convey.Convey("Given a capture device", t, func() {
		ctx := context.Background()

		convey.Convey("When the first acquisition succeeds", func() {
			src := &fakeSource{}
			dev := capture.NewDevice(src)

			stream, err := dev.Open(ctx, model.FacingEnvironment)

			convey.Convey("Then the stream uses the preferred facing at the top tier", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stream, convey.ShouldNotBeNil)
				convey.So(stream.Live(), convey.ShouldBeTrue)
				convey.So(stream.Facing(), convey.ShouldEqual, model.FacingEnvironment)

				attempts := src.recorded()
				convey.So(len(attempts), convey.ShouldEqual, 1)
				convey.So(attempts[0].Width, convey.ShouldEqual, 1920)
				convey.So(attempts[0].Height, convey.ShouldEqual, 1080)
			})

			convey.Convey("And opening again returns the same stream without a new request", func() {
				again, err := dev.Open(ctx, model.FacingEnvironment)
				convey.So(err, convey.ShouldBeNil)
				convey.So(again, convey.ShouldEqual, stream)
				convey.So(len(src.recorded()), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the rear camera cannot satisfy any resolution", func() {
			src := &fakeSource{decide: func(c capture.Constraints) error {
				if c.Facing == model.FacingEnvironment {
					return capture.ErrConstraints
				}
				if c.Width > 640 {
					return capture.ErrConstraints
				}
				return nil
			}}
			dev := capture.NewDevice(src)

			stream, err := dev.Open(ctx, model.FacingEnvironment)

			convey.Convey("Then it relaxes within the facing, then falls through to the next", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stream.Facing(), convey.ShouldEqual, model.FacingUser)

				attempts := src.recorded()
				// 4 environment tiers, then user 1920, 1280, 640.
				convey.So(len(attempts), convey.ShouldEqual, 7)
				convey.So(attempts[4].Facing, convey.ShouldEqual, model.FacingUser)
				convey.So(attempts[6].Width, convey.ShouldEqual, 640)
			})
		})

		convey.Convey("When permission is denied", func() {
			src := &fakeSource{decide: func(capture.Constraints) error {
				return capture.ErrPermissionDenied
			}}
			dev := capture.NewDevice(src)

			stream, err := dev.Open(ctx, model.FacingEnvironment)

			convey.Convey("Then it fails fast without walking the ladder", func() {
				convey.So(stream, convey.ShouldBeNil)
				convey.So(errors.Is(err, capture.ErrPermissionDenied), convey.ShouldBeTrue)
				convey.So(len(src.recorded()), convey.ShouldEqual, 1)
				convey.So(capture.Kind(err), convey.ShouldEqual, "permission_denied")
			})
		})

		convey.Convey("When the device is busy", func() {
			src := &fakeSource{decide: func(capture.Constraints) error {
				return capture.ErrDeviceBusy
			}}
			dev := capture.NewDevice(src)

			_, err := dev.Open(ctx, model.FacingEnvironment)

			convey.Convey("Then it fails fast as busy", func() {
				convey.So(errors.Is(err, capture.ErrDeviceBusy), convey.ShouldBeTrue)
				convey.So(len(src.recorded()), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When one facing has no camera at all", func() {
			src := &fakeSource{decide: func(c capture.Constraints) error {
				if c.Facing == model.FacingEnvironment {
					return capture.ErrNoDevice
				}
				return nil
			}}
			dev := capture.NewDevice(src)

			stream, err := dev.Open(ctx, model.FacingEnvironment)

			convey.Convey("Then remaining tiers for that facing are skipped", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stream.Facing(), convey.ShouldEqual, model.FacingUser)

				attempts := src.recorded()
				convey.So(len(attempts), convey.ShouldEqual, 2)
				convey.So(attempts[0].Facing, convey.ShouldEqual, model.FacingEnvironment)
				convey.So(attempts[1].Facing, convey.ShouldEqual, model.FacingUser)
			})
		})

		convey.Convey("When no facing works", func() {
			src := &fakeSource{decide: func(capture.Constraints) error {
				return capture.ErrNoDevice
			}}
			dev := capture.NewDevice(src)

			stream, err := dev.Open(ctx, model.FacingEnvironment)

			convey.Convey("Then the open fails with a typed error", func() {
				convey.So(stream, convey.ShouldBeNil)
				convey.So(errors.Is(err, capture.ErrNoDevice), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When raw source errors are not classified", func() {
			src := &fakeSource{decide: func(c capture.Constraints) error {
				if c.Width != 0 {
					return errors.New("OverconstrainedError")
				}
				return nil
			}}
			dev := capture.NewDevice(src)

			stream, err := dev.Open(ctx, model.FacingEnvironment)

			convey.Convey("Then they are treated as constraint failures and relaxed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stream, convey.ShouldNotBeNil)
				convey.So(len(src.recorded()), convey.ShouldEqual, 4)
			})
		})
	})
}

func TestDeviceClose(t *testing.T) {
	convey.Convey("Given an open capture device", t, func() {
		ctx := context.Background()
		src := &fakeSource{}
		dev := capture.NewDevice(src)

		stream, err := dev.Open(ctx, model.FacingEnvironment)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When the device is closed", func() {
			convey.So(dev.Close(), convey.ShouldBeNil)

			convey.Convey("Then the stream is dead and frame pulls are refused", func() {
				convey.So(stream.Live(), convey.ShouldBeFalse)
				_, err := stream.Frame(ctx)
				convey.So(errors.Is(err, capture.ErrStreamClosed), convey.ShouldBeTrue)
			})

			convey.Convey("And closing again is a no-op", func() {
				convey.So(dev.Close(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When a device that never opened is closed", func() {
			fresh := capture.NewDevice(&fakeSource{})
			convey.So(fresh.Close(), convey.ShouldBeNil)
		})
	})
}
