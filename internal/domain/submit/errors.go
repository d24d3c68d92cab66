package submit

import "errors"

// Sentinel kinds for submission errors.
var (
	// ErrInFlight reports a second concurrent submission for one session.
	ErrInFlight = errors.New("submission already in flight")

	// ErrExhausted reports that retryable failures outlasted the attempt
	// budget.
	ErrExhausted = errors.New("submission retries exhausted")
)
