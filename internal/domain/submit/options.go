package submit

import (
	"time"

	"github.com/easyshift/presence/pkg/logger"
)

// Option applies a configuration option to the Submitter.
type Option func(*Submitter)

// WithMaxAttempts bounds the total number of write attempts.
func WithMaxAttempts(n int) Option {
	return func(s *Submitter) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithBackoff sets the initial and maximum backoff intervals.
func WithBackoff(initial, max time.Duration) Option {
	return func(s *Submitter) {
		if initial > 0 {
			s.initialBackoff = initial
		}
		if max >= initial && max > 0 {
			s.maxBackoff = max
		}
	}
}

// WithRetryableErrors registers error kinds the submitter treats as
// transient. Anything else fails the submission immediately.
func WithRetryableErrors(errs ...error) Option {
	return func(s *Submitter) {
		s.retryable = append(s.retryable, errs...)
	}
}

// WithLogger sets a custom logger for the submitter.
func WithLogger(l logger.Logger) Option {
	return func(s *Submitter) {
		if l != nil {
			s.log = l
		}
	}
}
