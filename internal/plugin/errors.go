package plugin

import (
	"errors"
	"fmt"
	"strings"
)

// Plugin system errors.
var (
	// ErrAlreadyRegistered is returned when a plugin name is registered twice.
	ErrAlreadyRegistered = errors.New("plugin is already registered")

	// ErrInvalidPlugin is returned when plugin validation fails.
	ErrInvalidPlugin = errors.New("invalid plugin")

	// ErrPhaseViolation is returned when a dependency is not in the
	// dependent's phase, including unknown dependencies.
	ErrPhaseViolation = errors.New("plugin dependency outside its phase")

	// ErrCircularDependency is returned when plugins in a phase form a cycle.
	ErrCircularDependency = errors.New("circular plugin dependency")

	// ErrHookPanic wraps a value recovered from a plugin hook.
	ErrHookPanic = errors.New("plugin hook panic")
)

// ConfigError describes a plugin ordering failure.
type ConfigError struct {
	Plugin string
	Phase  Phase
	// Path is the dependency path that failed, ending at the offending name.
	Path []string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("plugin %q (%s phase): %v: %s", e.Plugin, e.Phase, e.Err, strings.Join(e.Path, " -> "))
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
