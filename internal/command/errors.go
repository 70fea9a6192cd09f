package command

import "errors"

// Command registry errors.
var (
	// ErrHandlerPanic wraps a value recovered from a panicking handler.
	ErrHandlerPanic = errors.New("command: handler panic")

	// ErrInterceptorPanic wraps a value recovered from a panicking plugin interceptor.
	ErrInterceptorPanic = errors.New("command: interceptor panic")
)
