package engine

import "errors"

// Errors returned by engine operations.
var (
	// ErrStopped indicates the engine loop has exited and no further
	// work is accepted.
	ErrStopped = errors.New("engine stopped")

	// ErrUnknownMode indicates a mode operation named a mode the
	// loaded profile does not define.
	ErrUnknownMode = errors.New("unknown mode")

	// ErrNilProfile indicates a profile swap was attempted without a
	// profile.
	ErrNilProfile = errors.New("nil profile")
)
