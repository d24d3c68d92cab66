package store

import "errors"

// Sentinel kinds for store errors.
var (
	// ErrUnavailable reports a transient failure; the submitter may retry.
	ErrUnavailable = errors.New("store unavailable")

	// ErrRejected reports that the store refused the event outright;
	// retrying cannot help.
	ErrRejected = errors.New("event rejected by store")
)
