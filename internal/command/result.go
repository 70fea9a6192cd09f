package command

// Status is the outcome of a dispatch.
type Status int

const (
	// StatusDelivered means the target handler ran without error.
	StatusDelivered Status = iota
	// StatusBlocked means a plugin dropped the command.
	StatusBlocked
	// StatusNoTarget means the command had no target and was seen only by plugins.
	StatusNoTarget
	// StatusNoHandler means nothing is registered for the target.
	StatusNoHandler
	// StatusFailed means the handler failed and an error command was sent.
	StatusFailed
)

// String returns a string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusDelivered:
		return "delivered"
	case StatusBlocked:
		return "blocked"
	case StatusNoTarget:
		return "no-target"
	case StatusNoHandler:
		return "no-handler"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result describes what happened to a dispatched command.
type Result struct {
	Status Status

	// BlockedBy names the plugin that dropped the command.
	BlockedBy string

	// Err is the handler failure for StatusFailed.
	Err error
}

// Delivered reports whether the target handler ran successfully.
func (r Result) Delivered() bool {
	return r.Status == StatusDelivered
}
