package command

import (
	"fmt"
	"time"
)

// Name is the constraint satisfied by the closed command-name sets.
type Name interface {
	~string
}

// CellName names a command delivered to a cell.
type CellName string

// Cell commands.
const (
	// CellKey carries a key.Event. Raw keyboard commands have no target and
	// are only seen by plugins.
	CellKey CellName = "key"
	// CellFocus asks the cell to take visual focus.
	CellFocus CellName = "focus"
	// CellBlur asks the cell to drop visual focus.
	CellBlur CellName = "blur"
	// CellEdit asks the cell to enter edit mode.
	CellEdit CellName = "edit"
	// CellSave carries a new value for the cell.
	CellSave CellName = "save"
	// CellUpdate asks the cell to re-render.
	CellUpdate CellName = "update"
	// CellError carries an ErrorPayload after the cell's handler failed.
	CellError CellName = "error"
	// CellDestroy tells the cell it is being removed.
	CellDestroy CellName = "destroy"
)

// RowName names a command delivered to a row.
type RowName string

// Row commands.
const (
	RowUpdate  RowName = "update"
	RowDestroy RowName = "destroy"
	RowError   RowName = "error"
)

// SpaceName names a command delivered to a space.
type SpaceName string

// Space commands.
const (
	// SpaceUpdate tells the presentation layer the space's rows changed.
	SpaceUpdate SpaceName = "update"
	SpaceError  SpaceName = "error"
)

// Command is a message targeted at a cell, row or space.
// A command must not be modified once dispatched.
type Command[N Name] struct {
	Name N

	// TargetID is the id of the receiving cell, row or space. Only cell
	// commands may omit it.
	TargetID string

	Payload any

	// Origin names the plugin that issued the command. That plugin is
	// skipped in the interception chain.
	Origin string

	Timestamp time.Time
}

// String returns a compact description for logs.
func (c Command[N]) String() string {
	if c.Origin != "" {
		return fmt.Sprintf("%s->%s (from %s)", string(c.Name), c.TargetID, c.Origin)
	}
	return fmt.Sprintf("%s->%s", string(c.Name), c.TargetID)
}

// Command variants.
type (
	CellCommand  = Command[CellName]
	RowCommand   = Command[RowName]
	SpaceCommand = Command[SpaceName]
)

// ErrorPayload is the payload of a synthetic error command.
type ErrorPayload struct {
	// Err is the failure returned or raised by the handler.
	Err error
	// Failed is the command whose handler failed.
	Failed any
}

// Handler receives commands for one target.
type Handler[N Name] func(cmd Command[N]) error

// Interceptor is one plugin's link in a dispatch chain. Returning false
// drops the command.
type Interceptor[N Name] struct {
	Plugin string
	Fn     func(cmd Command[N]) bool
}

// ChainFunc returns the current interception chain in plugin order.
type ChainFunc[N Name] func() []Interceptor[N]
