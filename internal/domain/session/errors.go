package session

import "errors"

// Sentinel kinds for session errors.
var (
	ErrBadTransition = errors.New("illegal state transition")
	ErrTerminalState = errors.New("session already terminal")
	ErrCancelled     = errors.New("session cancelled")
)
