package capture

import "errors"

// Sentinel kinds for capture errors. Every open failure is classified into
// one of these before it leaves the package; nothing surfaces untyped.
var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrNoDevice         = errors.New("no camera device found")
	ErrDeviceBusy       = errors.New("camera device busy")
	ErrConstraints      = errors.New("camera constraints unsatisfiable")
	ErrStreamClosed     = errors.New("camera stream closed")
)

// Kind returns the metric/log label for a classified capture error.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrNoDevice):
		return "no_device"
	case errors.Is(err, ErrDeviceBusy):
		return "device_busy"
	case errors.Is(err, ErrConstraints):
		return "constraints"
	case errors.Is(err, ErrStreamClosed):
		return "stream_closed"
	default:
		return "unknown"
	}
}
