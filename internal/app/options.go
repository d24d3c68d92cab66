package service

import (
	"time"

	"github.com/easyshift/presence/internal/adapters/capture"
	"github.com/easyshift/presence/internal/adapters/store"
	"github.com/easyshift/presence/internal/domain/model"
	"github.com/easyshift/presence/internal/domain/recognize"
	"github.com/easyshift/presence/pkg/logger"
)

// Option configures the Service.
type Option func(*Service)

// WithStore sets the attendance event store.
func WithStore(st store.Store) Option {
	return func(s *Service) {
		s.store = st
	}
}

// WithSource sets the camera source the capture device negotiates against.
func WithSource(src capture.Source) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithEngine enables the native inference strategy backed by the given
// engine. Without it only software decode runs.
func WithEngine(e recognize.Engine) Option {
	return func(s *Service) {
		s.engine = e
	}
}

// WithIdentityProvider sets the identity source for submissions.
func WithIdentityProvider(p IdentityProvider) Option {
	return func(s *Service) {
		s.identity = p
	}
}

// WithCapabilitySource sets the platform capability query.
func WithCapabilitySource(c CapabilitySource) Option {
	return func(s *Service) {
		s.caps = c
	}
}

// WithOverlay sets the UI overlay sink for state and geometry events.
func WithOverlay(o Overlay) Option {
	return func(s *Service) {
		if o != nil {
			s.overlay = o
		}
	}
}

// WithCooldown sets the settling window after a prior detection during
// which new results are discarded.
func WithCooldown(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cooldown = d
		}
	}
}

// WithSamplingIntervals sets the fast (software decode) and slow (native
// inference) frame sampling cadences.
func WithSamplingIntervals(fast, slow time.Duration) Option {
	return func(s *Service) {
		if fast > 0 {
			s.fastInterval = fast
		}
		if slow > 0 {
			s.slowInterval = slow
		}
	}
}

// WithPreferredFacing sets the camera facing tried first.
func WithPreferredFacing(f model.Facing) Option {
	return func(s *Service) {
		if f != "" {
			s.preferredFacing = f
		}
	}
}

// WithSubmitAttempts sets the submission attempt ceiling.
func WithSubmitAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.submitAttempts = n
		}
	}
}

// WithSubmitBackoff sets the initial submission retry backoff.
func WithSubmitBackoff(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.submitBackoff = d
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}
