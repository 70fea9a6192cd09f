package action

import "errors"

// Action registry errors.
var (
	// ErrUnknownAction is reported when a cell has no action of the given name.
	ErrUnknownAction = errors.New("action: unknown action")

	// ErrNoFactory is reported when no real API factory has been set.
	ErrNoFactory = errors.New("action: no api factory")

	// ErrPanic wraps a value recovered from an action body or API call.
	ErrPanic = errors.New("action: panic")
)
