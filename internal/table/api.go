package table

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/dshills/gridstorm/internal/action"
	"github.com/dshills/gridstorm/internal/command"
	"github.com/dshills/gridstorm/internal/plugin"
	"github.com/dshills/gridstorm/internal/spatial"
)

// pluginAPI is the table capability handed to one plugin.
type pluginAPI struct {
	t    *Table
	name string
}

var _ plugin.API = (*pluginAPI)(nil)

// PluginAPI returns the capability scoped to the named plugin. Commands,
// actions and row changes made through it carry the plugin as origin.
func (t *Table) PluginAPI(name string) plugin.API {
	return &pluginAPI{t: t, name: name}
}

func (a *pluginAPI) AddRow(spaceID string, pos action.Position, data json.RawMessage) (string, error) {
	return a.t.addRow(spaceID, pos, data, a.name)
}

func (a *pluginAPI) DeleteRow(rowID string) error { return a.t.deleteRow(rowID, a.name) }

func (a *pluginAPI) SetRowData(rowID string, data json.RawMessage) error {
	return a.t.setRowData(rowID, data, a.name)
}

func (a *pluginAPI) Row(rowID string) (spatial.Row, bool)       { return a.t.Row(rowID) }
func (a *pluginAPI) Cell(cellID string) (spatial.Cell, bool)    { return a.t.Cell(cellID) }
func (a *pluginAPI) Rows(spaceID string) []string               { return a.t.Rows(spaceID) }
func (a *pluginAPI) TableSpace() string                         { return a.t.TableSpace() }
func (a *pluginAPI) CompareVertical(x, y string) (int, error)   { return a.t.CompareVertical(x, y) }
func (a *pluginAPI) CompareHorizontal(x, y string) (int, error) { return a.t.CompareHorizontal(x, y) }
func (a *pluginAPI) AllRows() []string                          { return a.t.AllRows() }
func (a *pluginAPI) Focused() string                            { return a.t.Focused() }
func (a *pluginAPI) Focus(cellID string) error                  { return a.t.focus(cellID, a.name) }

func (a *pluginAPI) RunAction(cellID, name string, payload any) action.Report {
	return a.t.actions.Execute(cellID, name, payload, a.name)
}

func (a *pluginAPI) DispatchCell(cmd command.CellCommand) command.Result {
	cmd.Origin = a.name
	return a.t.cellCmds.Dispatch(cmd)
}

func (a *pluginAPI) DispatchRow(cmd command.RowCommand) command.Result {
	cmd.Origin = a.name
	return a.t.rowCmds.Dispatch(cmd)
}

func (a *pluginAPI) RegisterButton(b plugin.Button) error {
	b.Plugin = a.name
	return a.t.RegisterButton(b)
}

// RemoveButton removes one of the plugin's own buttons.
func (a *pluginAPI) RemoveButton(id string) {
	for _, b := range a.t.Buttons() {
		if b.ID == id && b.Plugin == a.name {
			a.t.RemoveButton(id)
			return
		}
	}
}

// RowAPI is the capability the presentation layer uses to mount one row.
type RowAPI struct {
	t     *Table
	rowID string
}

// RowAPI returns the capability scoped to a row.
func (t *Table) RowAPI(rowID string) *RowAPI {
	return &RowAPI{t: t, rowID: rowID}
}

// ID returns the row id.
func (r *RowAPI) ID() string { return r.rowID }

// Row returns a copy of the row.
func (r *RowAPI) Row() (spatial.Row, bool) { return r.t.Row(r.rowID) }

// RegisterCell creates the cell of column in this row without placing it.
func (r *RowAPI) RegisterCell(column string) (string, error) {
	t := r.t
	id := spatial.CellID(r.rowID, column)

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.rows.Has(r.rowID) {
		return "", fmt.Errorf("%w: %s", ErrRowNotFound, r.rowID)
	}
	if t.cells.Has(id) {
		return "", fmt.Errorf("%w: %s", ErrCellExists, id)
	}
	t.cells.Register(id, &spatial.Cell{ID: id, RowID: r.rowID, Column: column})
	return id, nil
}

// AddCellToRow appends a registered cell to the row and links it to its
// left neighbour and to the same-position cells of the rows above and
// below.
func (r *RowAPI) AddCellToRow(cellID string) error {
	t := r.t

	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows.Get(r.rowID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRowNotFound, r.rowID)
	}
	if c, ok := t.cells.Get(cellID); !ok || c.RowID != r.rowID {
		return fmt.Errorf("%w: %s", ErrCellNotFound, cellID)
	}
	if row.CellIndex(cellID) >= 0 {
		return nil
	}

	i := len(row.CellIDs)
	if i > 0 {
		t.cellCoord.LinkHorizontal(row.CellIDs[i-1], cellID)
	}
	row.CellIDs = append(row.CellIDs, cellID)

	if up, ok := t.rows.Get(row.Top); ok && i < len(up.CellIDs) {
		t.cellCoord.LinkVertical(up.CellIDs[i], cellID)
	}
	if down, ok := t.rows.Get(row.Bottom); ok && i < len(down.CellIDs) {
		t.cellCoord.LinkVertical(cellID, down.CellIDs[i])
	}
	return nil
}

// AddCells registers and places one cell per column, in order.
func (r *RowAPI) AddCells(columns ...string) ([]string, error) {
	ids := make([]string, 0, len(columns))
	for _, col := range columns {
		id, err := r.RegisterCell(col)
		if err != nil {
			return ids, err
		}
		if err := r.AddCellToRow(id); err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// RegisterCellCommands sets the command handler of one of the row's cells.
func (r *RowAPI) RegisterCellCommands(cellID string, h command.Handler[command.CellName]) error {
	c, ok := r.t.Cell(cellID)
	if !ok || c.RowID != r.rowID {
		return fmt.Errorf("%w: %s", ErrCellNotFound, cellID)
	}
	r.t.cellCmds.Register(cellID, h)
	return nil
}

// RegisterRowHandler sets the row's command handler.
func (r *RowAPI) RegisterRowHandler(h command.Handler[command.RowName]) error {
	if _, ok := r.t.Row(r.rowID); !ok {
		return fmt.Errorf("%w: %s", ErrRowNotFound, r.rowID)
	}
	r.t.rowCmds.Register(r.rowID, h)
	return nil
}

// UnregisterRowHandler removes the row's command handler.
func (r *RowAPI) UnregisterRowHandler() {
	r.t.rowCmds.Unregister(r.rowID)
}

// UnregisterCell removes a cell from the row, closing the gap in the
// horizontal links, and drops its handlers and actions.
func (r *RowAPI) UnregisterCell(cellID string) error {
	t := r.t

	t.mu.Lock()
	c, ok := t.cells.Get(cellID)
	if !ok || c.RowID != r.rowID {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrCellNotFound, cellID)
	}
	left, right := c.Left, c.Right
	t.cellCoord.UnlinkCell(cellID)
	t.cellCoord.LinkHorizontal(left, right)
	if row, ok := t.rows.Get(r.rowID); ok {
		row.CellIDs = slices.DeleteFunc(row.CellIDs, func(id string) bool { return id == cellID })
	}
	t.cells.Unregister(cellID)
	if t.focused == cellID {
		t.focused = ""
	}
	if t.keyboardOwner == cellID {
		t.keyboardOwner = ""
	}
	t.mu.Unlock()

	t.cellCmds.Unregister(cellID)
	t.actions.Unregister(cellID)
	return nil
}

// CellAPI is the capability a widget uses for one cell.
type CellAPI struct {
	t      *Table
	cellID string
}

// CellAPI returns the capability scoped to a cell.
func (t *Table) CellAPI(cellID string) *CellAPI {
	return &CellAPI{t: t, cellID: cellID}
}

// ID returns the cell id.
func (c *CellAPI) ID() string { return c.cellID }

// Cell returns a copy of the cell.
func (c *CellAPI) Cell() (spatial.Cell, bool) { return c.t.Cell(c.cellID) }

// HasKeyboard reports whether the cell owns the keyboard.
func (c *CellAPI) HasKeyboard() bool { return c.t.KeyboardOwner() == c.cellID }

// Focused reports whether the cell holds focus.
func (c *CellAPI) Focused() bool { return c.t.Focused() == c.cellID }

// RegisterCommands sets the cell's command handler.
func (c *CellAPI) RegisterCommands(h command.Handler[command.CellName]) error {
	if _, ok := c.t.Cell(c.cellID); !ok {
		return fmt.Errorf("%w: %s", ErrCellNotFound, c.cellID)
	}
	c.t.cellCmds.Register(c.cellID, h)
	return nil
}

// RegisterActions sets the cell's actions, replacing earlier ones.
func (c *CellAPI) RegisterActions(actions map[string]action.Func) error {
	if _, ok := c.t.Cell(c.cellID); !ok {
		return fmt.Errorf("%w: %s", ErrCellNotFound, c.cellID)
	}
	c.t.actions.Register(c.cellID, actions)
	return nil
}

// RunAction executes one of the cell's actions.
func (c *CellAPI) RunAction(name string, payload any) action.Report {
	return c.t.actions.Execute(c.cellID, name, payload, "")
}

// cellActions is the real action.API replayed after interception.
type cellActions struct {
	t      *Table
	cellID string
	origin string
}

var _ action.API = (*cellActions)(nil)

func (a *cellActions) Save(value any) error {
	if _, ok := a.t.Cell(a.cellID); !ok {
		return fmt.Errorf("%w: %s", ErrCellNotFound, a.cellID)
	}
	res := a.t.cellCmds.Dispatch(command.CellCommand{Name: command.CellSave, TargetID: a.cellID, Payload: value, Origin: a.origin})
	if res.Delivered() {
		a.t.plugins.NotifySaved(a.cellID, value, a.origin)
	}
	return res.Err
}

func (a *cellActions) Navigate(dir action.Direction) error { return a.t.navigate(a.cellID, dir, a.origin) }
func (a *cellActions) Focus() error                        { return a.t.focus(a.cellID, a.origin) }
func (a *cellActions) Blur() error                         { return a.t.blur(a.cellID, a.origin) }
func (a *cellActions) TakeKeyboard() error                 { return a.t.TakeKeyboard(a.cellID) }

func (a *cellActions) ReleaseKeyboard() error {
	a.t.ReleaseKeyboard(a.cellID)
	return nil
}

// InsertRow defers a row insertion at pos in the cell's space.
func (a *cellActions) InsertRow(pos action.Position) error {
	row, err := a.row()
	if err != nil {
		return err
	}
	return a.t.queue.Enqueue("insertRow", func() error {
		_, err := a.t.addRow(row.SpaceID, pos, nil, a.origin)
		return err
	})
}

// DeleteRow defers the deletion of the cell's row.
func (a *cellActions) DeleteRow() error {
	row, err := a.row()
	if err != nil {
		return err
	}
	return a.t.queue.Enqueue("deleteRow", func() error {
		return a.t.deleteRow(row.ID, a.origin)
	})
}

func (a *cellActions) row() (spatial.Row, error) {
	a.t.mu.RLock()
	defer a.t.mu.RUnlock()
	r, err := a.t.rowOfLocked(a.cellID)
	if err != nil {
		return spatial.Row{}, err
	}
	return r.Clone(), nil
}
