package plugin

import (
	"context"
	"encoding/json"

	"github.com/go-logr/logr"

	"github.com/dshills/gridstorm/internal/action"
	"github.com/dshills/gridstorm/internal/command"
	"github.com/dshills/gridstorm/internal/spatial"
)

// Plugin is the identity every plugin provides. Behaviour is added by
// implementing any of the optional hook interfaces below.
type Plugin interface {
	Name() string
	Version() string
	// Dependencies names plugins that must be ordered before this one.
	Dependencies() []string
	// ProcessLast moves the plugin, and every plugin depending on it, into
	// the late phase.
	ProcessLast() bool
}

// Initializer is implemented by plugins that need the table API.
type Initializer interface {
	OnInit(ctx context.Context, env InitContext) error
}

// Destroyer is implemented by plugins holding resources.
type Destroyer interface {
	OnDestroy(ctx context.Context) error
}

// CellInterceptor sees cell commands before delivery. Returning false
// drops the command.
type CellInterceptor interface {
	OnBeforeCellCommand(cmd command.CellCommand) bool
}

// RowInterceptor sees row commands before delivery.
type RowInterceptor interface {
	OnBeforeRowCommand(cmd command.RowCommand) bool
}

// SpaceInterceptor sees space commands before delivery.
type SpaceInterceptor interface {
	OnBeforeSpaceCommand(cmd command.SpaceCommand) bool
}

// ActionInterceptor observes cell actions before they are replayed.
// Returning false stops later plugins from being consulted.
type ActionInterceptor interface {
	OnBeforeAction(cellID, name string, obs action.Observer) bool
}

// SaveObserver is told about saves that reached their cell: the save call
// survived the action chain, the save command was not blocked and the
// cell's handler accepted it.
type SaveObserver interface {
	OnCellSaved(cellID string, value any)
}

// SpaceOwner is implemented by plugins that own a space of rows.
type SpaceOwner interface {
	SpaceName() string
}

// InitContext is handed to a plugin exactly once, at initialization.
type InitContext struct {
	// API is scoped to the plugin: commands and actions it issues carry
	// the plugin's name as origin.
	API API

	// SpaceID is the plugin's own space, empty unless it is a SpaceOwner.
	SpaceID string

	Logger logr.Logger
}

// Button is a toolbar button contributed by a plugin.
type Button struct {
	ID      string
	Label   string
	Plugin  string
	OnClick func()
}

// API is the plugin-scoped table capability.
type API interface {
	// AddRow inserts a row at one end of a space and returns its id.
	AddRow(spaceID string, pos action.Position, data json.RawMessage) (string, error)
	DeleteRow(rowID string) error
	// SetRowData replaces a row's payload and notifies the row.
	SetRowData(rowID string, data json.RawMessage) error
	Row(rowID string) (spatial.Row, bool)
	Cell(cellID string) (spatial.Cell, bool)
	// Rows returns the row ids of a space, top to bottom.
	Rows(spaceID string) []string
	// TableSpace returns the id of the table's own data space.
	TableSpace() string
	// AllRows returns every row id in global order.
	AllRows() []string

	CompareVertical(a, b string) (int, error)
	CompareHorizontal(a, b string) (int, error)

	RunAction(cellID, name string, payload any) action.Report
	DispatchCell(cmd command.CellCommand) command.Result
	DispatchRow(cmd command.RowCommand) command.Result

	// Focused returns the focused cell id, or "".
	Focused() string
	Focus(cellID string) error

	RegisterButton(b Button) error
	RemoveButton(id string)
}

// Base implements Plugin for embedding.
type Base struct {
	PluginName    string
	PluginVersion string
	Deps          []string
	Last          bool
}

func (b Base) Name() string           { return b.PluginName }
func (b Base) Version() string        { return b.PluginVersion }
func (b Base) Dependencies() []string { return b.Deps }
func (b Base) ProcessLast() bool      { return b.Last }
