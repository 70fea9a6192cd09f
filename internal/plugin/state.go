package plugin

// State represents the lifecycle state of a plugin.
type State int

// Plugin states.
const (
	// StateRegistered - Plugin is known to the manager.
	StateRegistered State = iota

	// StateInitialized - OnInit ran successfully (or the plugin has none).
	StateInitialized

	// StateDestroyed - OnDestroy ran.
	StateDestroyed

	// StateError - A lifecycle hook failed.
	StateError
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateInitialized:
		return "initialized"
	case StateDestroyed:
		return "destroyed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// IsUsable returns true if the plugin takes part in dispatch.
func (s State) IsUsable() bool {
	return s == StateRegistered || s == StateInitialized
}

// Phase is the ordering phase of a plugin.
type Phase int

const (
	PhaseNormal Phase = iota
	PhaseLast
)

// String returns a string representation of the phase.
func (p Phase) String() string {
	if p == PhaseLast {
		return "processLast"
	}
	return "normal"
}
