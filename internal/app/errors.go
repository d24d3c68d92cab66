package service

import "errors"

var (
	// ErrNotStarted is returned when a session is requested before Start.
	ErrNotStarted = errors.New("service not started")

	// ErrNoCaptureSource is returned when no camera source is configured.
	ErrNoCaptureSource = errors.New("no capture source configured")

	// ErrSessionActive is returned when a live session already holds the
	// camera.
	ErrSessionActive = errors.New("a scan session is already active")

	// ErrNoIdentity is returned when no authenticated identity is
	// available to attach an attendance event to.
	ErrNoIdentity = errors.New("no authenticated identity")

	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
)
