package config

import (
	"errors"
	"fmt"
)

// Errors returned by configuration operations.
var (
	// ErrInvalidValue indicates a setting holds a value outside its domain.
	ErrInvalidValue = errors.New("invalid configuration value")

	// ErrDecode indicates the merged settings do not fit the Config shape.
	ErrDecode = errors.New("cannot decode configuration")
)

// ValidationError names the setting that failed validation.
type ValidationError struct {
	// Path is the dotted setting path, for example "logging.level".
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidValue
}
