package restsync

import "errors"

var (
	// ErrNotInitialized is returned before the table has initialized the
	// plugin.
	ErrNotInitialized = errors.New("restsync: plugin not initialized")

	// ErrCircuitOpen is returned while the transport refuses requests after
	// repeated failures.
	ErrCircuitOpen = errors.New("restsync: circuit open")

	// ErrStatus is returned for a non-2xx response.
	ErrStatus = errors.New("restsync: unexpected status")

	// ErrPayload is returned for a response body that is not the expected
	// JSON.
	ErrPayload = errors.New("restsync: invalid payload")
)
