package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/easyshift/presence/internal/domain/model"
	"github.com/easyshift/presence/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func scanningSession(id string) *Session {
	s := New(id)
	_ = s.Begin()
	_ = s.StreamUp()
	_ = s.ScanStart(model.StrategySoftwareDecode, model.StrategyNativeInference)
	return s
}

func detection(strategy model.StrategyID, payload string) model.Detection {
	return model.Detection{
		Strategy:   strategy,
		Payload:    payload,
		DetectedAt: time.Now(),
	}
}

func TestArbiter(t *testing.T) {
	convey.Convey("Given an arbiter for a scanning session", t, func() {
		ctx := context.Background()

		convey.Convey("When the first detection is offered", func() {
			s := scanningSession("sess-a")
			var frozen atomic.Int64
			a := NewArbiter(s, WithFreeze(func() { frozen.Add(1) }))

			accepted := a.Offer(ctx, detection(model.StrategySoftwareDecode, "BADGE-1"))

			convey.Convey("Then it wins, the session is detected, and teardown ran once", func() {
				convey.So(accepted, convey.ShouldBeTrue)
				convey.So(s.Status(), convey.ShouldEqual, StatusDetected)
				convey.So(a.Winner(), convey.ShouldNotBeNil)
				convey.So(a.Winner().Payload, convey.ShouldEqual, "BADGE-1")
				convey.So(frozen.Load(), convey.ShouldEqual, 1)
			})

			convey.Convey("And every later offer is discarded as stale", func() {
				convey.So(a.Offer(ctx, detection(model.StrategyNativeInference, "BADGE-2")), convey.ShouldBeFalse)
				convey.So(a.Offer(ctx, detection(model.StrategySoftwareDecode, "BADGE-3")), convey.ShouldBeFalse)
				convey.So(a.Winner().Payload, convey.ShouldEqual, "BADGE-1")
				convey.So(a.StaleCount(), convey.ShouldEqual, 2)
			})

			convey.Convey("And Freeze stays idempotent after acceptance", func() {
				a.Freeze()
				a.Freeze()
				convey.So(frozen.Load(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When many strategies race to offer", func() {
			s := scanningSession("sess-race")
			a := NewArbiter(s)

			const offers = 32
			var wins atomic.Int64
			var wg sync.WaitGroup
			wg.Add(offers)
			for i := 0; i < offers; i++ {
				go func() {
					defer wg.Done()
					if a.Offer(ctx, detection(model.StrategySoftwareDecode, "RACE")) {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()

			convey.Convey("Then exactly one wins and the rest are stale", func() {
				convey.So(wins.Load(), convey.ShouldEqual, 1)
				convey.So(a.StaleCount(), convey.ShouldEqual, offers-1)
				convey.So(s.Status(), convey.ShouldEqual, StatusDetected)
			})
		})

		convey.Convey("When a detection lands within the cooldown window", func() {
			s := scanningSession("sess-cooldown")
			s.mu.Lock()
			s.lastDetectionAt = time.Now()
			s.mu.Unlock()
			a := NewArbiter(s, WithCooldown(500*time.Millisecond))

			accepted := a.Offer(ctx, detection(model.StrategySoftwareDecode, "BADGE-DUP"))

			convey.Convey("Then it is discarded without changing state", func() {
				convey.So(accepted, convey.ShouldBeFalse)
				convey.So(a.Winner(), convey.ShouldBeNil)
				convey.So(s.Status(), convey.ShouldEqual, StatusScanning)
				convey.So(a.StaleCount(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the cooldown has elapsed", func() {
			s := scanningSession("sess-settled")
			s.mu.Lock()
			s.lastDetectionAt = time.Now().Add(-time.Second)
			s.mu.Unlock()
			a := NewArbiter(s, WithCooldown(500*time.Millisecond))

			convey.Convey("Then a new detection is accepted", func() {
				convey.So(a.Offer(ctx, detection(model.StrategySoftwareDecode, "BADGE-NEW")), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When teardown froze the arbiter while the session still scans", func() {
			s := scanningSession("sess-frozen")
			a := NewArbiter(s)

			a.Freeze()

			convey.Convey("Then a late offer from a draining tap is refused", func() {
				convey.So(a.Offer(ctx, detection(model.StrategySoftwareDecode, "AFTER-TEARDOWN")), convey.ShouldBeFalse)
				convey.So(a.Winner(), convey.ShouldBeNil)
				convey.So(s.Status(), convey.ShouldEqual, StatusScanning)
				convey.So(a.StaleCount(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the session is cancelled before any detection", func() {
			s := scanningSession("sess-cancel")
			var frozen atomic.Int64
			a := NewArbiter(s, WithFreeze(func() { frozen.Add(1) }))

			a.Freeze()
			s.Fail(ErrCancelled)

			convey.Convey("Then teardown ran and offers are refused", func() {
				convey.So(frozen.Load(), convey.ShouldEqual, 1)
				convey.So(a.Offer(ctx, detection(model.StrategySoftwareDecode, "LATE")), convey.ShouldBeFalse)
				convey.So(a.Winner(), convey.ShouldBeNil)
			})
		})
	})
}
