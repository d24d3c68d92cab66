package sampler_test

import (
	"context"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/easyshift/presence/internal/adapters/capture"
	"github.com/easyshift/presence/internal/adapters/sampler"
	"github.com/easyshift/presence/internal/domain/model"
	"github.com/easyshift/presence/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func openStream(t *testing.T) (*capture.Device, *capture.Stream) {
	t.Helper()
	dev := capture.NewDevice(capture.NewStillSource(image.NewGray(image.Rect(0, 0, 8, 8))))
	stream, err := dev.Open(context.Background(), model.FacingEnvironment)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	return dev, stream
}

func TestSampler(t *testing.T) {
	convey.Convey("Given a sampler over a live stream", t, func() {
		ctx := context.Background()

		convey.Convey("When two taps run at different cadences", func() {
			dev, stream := openStream(t)
			defer func() { _ = dev.Close() }()

			var fast, slow atomic.Int64
			s := sampler.New()
			err := s.Start(ctx, stream, []sampler.Tap{
				{Name: "fast", Interval: 10 * time.Millisecond, Fn: func(context.Context, model.Frame) { fast.Add(1) }},
				{Name: "slow", Interval: 50 * time.Millisecond, Fn: func(context.Context, model.Frame) { slow.Add(1) }},
			})
			convey.So(err, convey.ShouldBeNil)

			time.Sleep(120 * time.Millisecond)
			s.Stop()

			convey.Convey("Then the fast tap fires more often than the slow one", func() {
				convey.So(fast.Load(), convey.ShouldBeGreaterThan, slow.Load())
				convey.So(slow.Load(), convey.ShouldBeGreaterThan, 0)
			})

			convey.Convey("And no tap fires after Stop returns", func() {
				settled := fast.Load()
				time.Sleep(50 * time.Millisecond)
				convey.So(fast.Load(), convey.ShouldEqual, settled)
			})
		})

		convey.Convey("When the stream closes underneath the sampler", func() {
			dev, stream := openStream(t)

			var pulls atomic.Int64
			s := sampler.New()
			err := s.Start(ctx, stream, []sampler.Tap{
				{Name: "fast", Interval: 5 * time.Millisecond, Fn: func(context.Context, model.Frame) { pulls.Add(1) }},
			})
			convey.So(err, convey.ShouldBeNil)

			time.Sleep(20 * time.Millisecond)
			convey.So(dev.Close(), convey.ShouldBeNil)
			time.Sleep(20 * time.Millisecond)

			convey.Convey("Then sampling winds down without error", func() {
				s.Stop()
				settled := pulls.Load()
				time.Sleep(20 * time.Millisecond)
				convey.So(pulls.Load(), convey.ShouldEqual, settled)
			})
		})

		convey.Convey("When started against a dead stream", func() {
			dev, stream := openStream(t)
			convey.So(dev.Close(), convey.ShouldBeNil)

			s := sampler.New()
			err := s.Start(ctx, stream, nil)

			convey.Convey("Then it refuses to start", func() {
				convey.So(err, convey.ShouldEqual, sampler.ErrStreamDown)
			})
		})

		convey.Convey("When started twice", func() {
			dev, stream := openStream(t)
			defer func() { _ = dev.Close() }()

			s := sampler.New()
			convey.So(s.Start(ctx, stream, nil), convey.ShouldBeNil)

			convey.Convey("Then the second start is a no-op", func() {
				convey.So(s.Start(ctx, stream, nil), convey.ShouldBeNil)
				s.Stop()
			})
		})

		convey.Convey("When stopped without ever starting", func() {
			s := sampler.New()

			convey.Convey("Then Stop is safe", func() {
				s.Stop()
			})
		})
	})
}
