package lua

import "errors"

// Errors for Lua plugin operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when execution times out.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrStateBusy is returned by TryCall while another call holds the
	// state.
	ErrStateBusy = errors.New("lua state is busy")

	// ErrNotFunction is returned when a called global is not a function.
	ErrNotFunction = errors.New("lua global is not a function")

	// ErrNoEntryPoint is returned when a plugin directory has no main script.
	ErrNoEntryPoint = errors.New("plugin has no entry point")

	// ErrInvalidManifest is returned when manifest validation fails.
	ErrInvalidManifest = errors.New("invalid plugin manifest")
)
