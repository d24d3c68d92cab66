package config_test

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/easyshift/presence/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.StoreDSN, convey.ShouldBeEmpty)
			convey.So(cfg.FastIntervalMS, convey.ShouldEqual, 300)
			convey.So(cfg.SlowIntervalMS, convey.ShouldEqual, 3000)
			convey.So(cfg.CooldownMS, convey.ShouldEqual, 2000)
			convey.So(cfg.SubmitAttempts, convey.ShouldEqual, 3)
			convey.So(cfg.SubmitBackoffMS, convey.ShouldEqual, 250)
			convey.So(cfg.FacingOrder, convey.ShouldResemble, []string{"environment", "user", "any"})
			convey.So(cfg.NativeInference, convey.ShouldBeTrue)
		})
	})
}
