package table

import "errors"

// Errors returned by table operations.
var (
	// ErrSpaceNotFound indicates an unknown space id.
	ErrSpaceNotFound = errors.New("space not found")

	// ErrRowNotFound indicates an unknown row id.
	ErrRowNotFound = errors.New("row not found")

	// ErrCellNotFound indicates an unknown cell id.
	ErrCellNotFound = errors.New("cell not found")

	// ErrCellExists indicates a cell id is already registered.
	ErrCellExists = errors.New("cell already registered")

	// ErrKeyboardOwned indicates another cell owns the keyboard.
	ErrKeyboardOwned = errors.New("keyboard owned by another cell")

	// ErrButtonExists indicates a duplicate toolbar button id.
	ErrButtonExists = errors.New("button already registered")

	// ErrButtonNotFound indicates an unknown toolbar button id.
	ErrButtonNotFound = errors.New("button not found")

	// ErrInvalidButton indicates a button without id or label.
	ErrInvalidButton = errors.New("invalid button")

	// ErrClosed indicates the table has been closed.
	ErrClosed = errors.New("table closed")
)
