package table

import (
	"fmt"

	"github.com/dshills/gridstorm/internal/action"
	"github.com/dshills/gridstorm/internal/command"
	"github.com/dshills/gridstorm/internal/input/key"
	"github.com/dshills/gridstorm/internal/spatial"
)

// Focused returns the focused cell id, or "".
func (t *Table) Focused() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.focused
}

// Focus moves focus to cellID, sending blur to the previous cell and focus
// to the new one.
func (t *Table) Focus(cellID string) error {
	return t.focus(cellID, "")
}

// Blur drops focus if cellID holds it.
func (t *Table) Blur(cellID string) error {
	return t.blur(cellID, "")
}

// Navigate moves focus from cellID to its neighbour in dir. Moving off the
// edge of the grid is a no-op.
func (t *Table) Navigate(cellID string, dir action.Direction) error {
	return t.navigate(cellID, dir, "")
}

func (t *Table) navigate(cellID string, dir action.Direction, origin string) error {
	t.mu.RLock()
	c, ok := t.cells.Get(cellID)
	var next string
	if ok {
		next = c.Neighbor(sideOf(dir))
	}
	t.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrCellNotFound, cellID)
	}
	if next == "" {
		return nil
	}
	return t.focus(next, origin)
}

func (t *Table) focus(cellID, origin string) error {
	t.mu.Lock()
	if !t.cells.Has(cellID) {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrCellNotFound, cellID)
	}
	prev := t.focused
	if prev == cellID {
		t.mu.Unlock()
		return nil
	}
	t.focused = cellID
	t.mu.Unlock()

	if prev != "" {
		t.cellCmds.Dispatch(command.CellCommand{Name: command.CellBlur, TargetID: prev, Origin: origin})
	}
	t.cellCmds.Dispatch(command.CellCommand{Name: command.CellFocus, TargetID: cellID, Origin: origin})
	return nil
}

func (t *Table) blur(cellID, origin string) error {
	t.mu.Lock()
	if !t.cells.Has(cellID) {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrCellNotFound, cellID)
	}
	if t.focused != cellID {
		t.mu.Unlock()
		return nil
	}
	t.focused = ""
	t.mu.Unlock()

	t.cellCmds.Dispatch(command.CellCommand{Name: command.CellBlur, TargetID: cellID, Origin: origin})
	return nil
}

func sideOf(dir action.Direction) spatial.Side {
	switch dir {
	case action.Up:
		return spatial.SideTop
	case action.Down:
		return spatial.SideBottom
	case action.Left:
		return spatial.SideLeft
	default:
		return spatial.SideRight
	}
}

// KeyboardOwner returns the cell owning the keyboard, or "".
func (t *Table) KeyboardOwner() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.keyboardOwner
}

// TakeKeyboard gives cellID exclusive keyboard input. At most one cell
// owns the keyboard; taking it again is a no-op.
func (t *Table) TakeKeyboard(cellID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.cells.Has(cellID) {
		return fmt.Errorf("%w: %s", ErrCellNotFound, cellID)
	}
	switch t.keyboardOwner {
	case "", cellID:
		t.keyboardOwner = cellID
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrKeyboardOwned, t.keyboardOwner)
	}
}

// ReleaseKeyboard releases the keyboard if cellID owns it.
func (t *Table) ReleaseKeyboard(cellID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.keyboardOwner == cellID {
		t.keyboardOwner = ""
	}
}

// HandleKey broadcasts a key press to the plugins as a target-less key
// command. While a cell owns the keyboard nothing is dispatched and
// HandleKey returns false; the owner's own input handling takes the key.
func (t *Table) HandleKey(ev key.Event) bool {
	if t.KeyboardOwner() != "" {
		return false
	}
	t.cellCmds.Dispatch(command.CellCommand{Name: command.CellKey, Payload: ev})
	return true
}
