package action

// Direction is a navigation direction.
type Direction int

// Navigation directions.
const (
	Up Direction = iota
	Down
	Left
	Right
)

// String returns a string representation of the direction.
func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// ParseDirection converts a direction name to a Direction.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "up":
		return Up, true
	case "down":
		return Down, true
	case "left":
		return Left, true
	case "right":
		return Right, true
	}
	return 0, false
}

// Position selects the end of a space a row is inserted at.
type Position int

const (
	// Bottom inserts after the last row.
	Bottom Position = iota
	// Top inserts before the first row.
	Top
)

// String returns a string representation of the position.
func (p Position) String() string {
	if p == Top {
		return "top"
	}
	return "bottom"
}

// API is the capability set available to a cell's actions. Every method is
// scoped to the cell the action runs on.
type API interface {
	// Save stores a new value for the cell.
	Save(value any) error
	// Navigate moves focus from the cell to its neighbour.
	Navigate(dir Direction) error
	Focus() error
	Blur() error
	// TakeKeyboard makes the cell the keyboard owner.
	TakeKeyboard() error
	ReleaseKeyboard() error
	// InsertRow inserts an empty row into the cell's space.
	InsertRow(pos Position) error
	// DeleteRow deletes the cell's row.
	DeleteRow() error
}

// Func is an action body. It is run against a Recorder, so it must express
// every side effect as calls on api.
type Func func(api API, payload any) error

// Factory returns the real API for a cell. origin is the plugin running
// the action, or "" for the cell itself; commands the API dispatches carry
// it so the plugin does not intercept its own calls.
type Factory func(cellID, origin string) API
