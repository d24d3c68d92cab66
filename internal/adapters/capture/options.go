package capture

import (
	"github.com/easyshift/presence/internal/domain/model"
	"github.com/easyshift/presence/pkg/logger"
)

// Option applies a configuration option to the Device.
type Option func(*Device)

// WithFacingOrder overrides the facing-mode fallback order.
func WithFacingOrder(order []model.Facing) Option {
	return func(d *Device) {
		if len(order) > 0 {
			d.facingOrder = order
		}
	}
}

// WithLogger sets a custom logger for the device.
func WithLogger(l logger.Logger) Option {
	return func(d *Device) {
		if l != nil {
			d.log = l
		}
	}
}
