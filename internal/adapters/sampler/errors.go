package sampler

import "errors"

// Sentinel kinds for sampler errors.
var (
	ErrStreamDown = errors.New("capture stream not live")
)
