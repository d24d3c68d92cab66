package recognize

import "errors"

// Sentinel kinds for recognition errors.
var (
	// ErrDecodeMiss reports that a static image held no decodable code.
	// During live scanning a miss is not an error; only the one-shot static
	// path surfaces it.
	ErrDecodeMiss = errors.New("no code found in image")

	// ErrEngineDenied reports that the platform refused access to the
	// native inference engine.
	ErrEngineDenied = errors.New("native engine access denied")
)
