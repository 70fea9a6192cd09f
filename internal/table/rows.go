package table

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/dshills/gridstorm/internal/action"
	"github.com/dshills/gridstorm/internal/command"
	"github.com/dshills/gridstorm/internal/order"
	"github.com/dshills/gridstorm/internal/spatial"
)

// AddRow inserts an empty-celled row at one end of a space and returns its
// id. A nil payload becomes an empty JSON object.
func (t *Table) AddRow(spaceID string, pos action.Position, data json.RawMessage) (string, error) {
	return t.addRow(spaceID, pos, data, "")
}

// DeleteRow destroys a row, its cells and its order key.
func (t *Table) DeleteRow(rowID string) error {
	return t.deleteRow(rowID, "")
}

// SetRowData replaces a row's payload and sends it an update command.
func (t *Table) SetRowData(rowID string, data json.RawMessage) error {
	return t.setRowData(rowID, data, "")
}

func (t *Table) addRow(spaceID string, pos action.Position, data json.RawMessage, origin string) (string, error) {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return "", ErrClosed
	}
	space, ok := t.spaces.Get(spaceID)
	if !ok {
		t.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrSpaceNotFound, spaceID)
	}

	upper, lower := t.neighboursLocked(space, pos)
	key, err := t.keyBetweenLocked(upper, lower)
	if err != nil {
		t.mu.Unlock()
		return "", fmt.Errorf("add row to space %s: %w", spaceID, err)
	}

	id := t.newID()
	t.rows.Register(id, &spatial.Row{
		ID:      id,
		SpaceID: spaceID,
		Data:    slices.Clone(data),
		Key:     key,
	})
	t.cellCoord.LinkRows(upper, id)
	t.cellCoord.LinkRows(id, lower)
	if pos == action.Top {
		space.RowIDs = slices.Insert(space.RowIDs, 0, id)
	} else {
		space.RowIDs = append(space.RowIDs, id)
	}
	t.mu.Unlock()

	t.log.V(1).Info("row added", "row", id, "space", spaceID, "position", pos.String(), "origin", origin)
	t.spaceCmds.Dispatch(command.SpaceCommand{Name: command.SpaceUpdate, TargetID: spaceID, Payload: id, Origin: origin})
	return id, nil
}

// neighboursLocked returns the rows that will sit directly above and below
// a row inserted at pos in space, across space boundaries.
func (t *Table) neighboursLocked(space *spatial.Space, pos action.Position) (upper, lower string) {
	switch {
	case len(space.RowIDs) == 0:
		return t.nearestRowLocked(space.ID, true), t.nearestRowLocked(space.ID, false)
	case pos == action.Top:
		return t.nearestRowLocked(space.ID, true), space.FirstRow()
	default:
		return space.LastRow(), t.nearestRowLocked(space.ID, false)
	}
}

// nearestRowLocked walks the space chain away from spaceID and returns the
// closest row of the first non-empty space: its last row going up, its
// first row going down.
func (t *Table) nearestRowLocked(spaceID string, up bool) string {
	next := t.spaceCoord.SpaceBelow
	if up {
		next = t.spaceCoord.SpaceAbove
	}
	seen := map[string]bool{spaceID: true}
	for id := next(spaceID); id != "" && !seen[id]; id = next(id) {
		seen[id] = true
		s, ok := t.spaces.Get(id)
		if !ok || len(s.RowIDs) == 0 {
			continue
		}
		if up {
			return s.LastRow()
		}
		return s.FirstRow()
	}
	return ""
}

// keyBetweenLocked issues an order key for a row placed between the rows
// upper and lower, either of which may be empty.
func (t *Table) keyBetweenLocked(upper, lower string) (order.Ref, error) {
	var lo, hi order.Ref
	if r, ok := t.rows.Get(upper); ok {
		lo = r.Key
	}
	if r, ok := t.rows.Get(lower); ok {
		hi = r.Key
	}

	switch {
	case lo != order.NoRef && hi != order.NoRef:
		return t.indexer.Between(lo, hi)
	case lo != order.NoRef:
		return t.indexer.Above(lo)
	case hi != order.NoRef:
		return t.indexer.Below(hi)
	default:
		return t.indexer.Above(order.NoRef)
	}
}

func (t *Table) deleteRow(rowID, origin string) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	row, ok := t.rows.Get(rowID)
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRowNotFound, rowID)
	}

	cellIDs := slices.Clone(row.CellIDs)
	for _, c := range cellIDs {
		t.cellCoord.UnlinkCell(c)
		t.cells.Unregister(c)
		if t.focused == c {
			t.focused = ""
		}
		if t.keyboardOwner == c {
			t.keyboardOwner = ""
		}
	}

	upper, lower := row.Top, row.Bottom
	t.cellCoord.LinkRows(upper, lower)
	if u, ok := t.rows.Get(upper); ok {
		if l, ok := t.rows.Get(lower); ok {
			t.cellCoord.LinkRowsCells(u.CellIDs, l.CellIDs)
		}
	}
	row.Top, row.Bottom = "", ""

	spaceID := row.SpaceID
	if space, ok := t.spaces.Get(spaceID); ok {
		space.RowIDs = slices.DeleteFunc(space.RowIDs, func(id string) bool { return id == rowID })
	}
	key := row.Key
	t.mu.Unlock()

	for _, c := range cellIDs {
		t.cellCmds.Dispatch(command.CellCommand{Name: command.CellDestroy, TargetID: c, Origin: origin})
		t.cellCmds.Unregister(c)
		t.actions.Unregister(c)
	}
	t.rowCmds.Dispatch(command.RowCommand{Name: command.RowDestroy, TargetID: rowID, Origin: origin})
	t.rowCmds.Unregister(rowID)

	t.mu.Lock()
	t.rows.Unregister(rowID)
	t.mu.Unlock()
	t.indexer.Release(key)

	t.log.V(1).Info("row deleted", "row", rowID, "space", spaceID, "origin", origin)
	t.spaceCmds.Dispatch(command.SpaceCommand{Name: command.SpaceUpdate, TargetID: spaceID, Payload: rowID, Origin: origin})
	return nil
}

func (t *Table) setRowData(rowID string, data json.RawMessage, origin string) error {
	t.mu.Lock()
	row, ok := t.rows.Get(rowID)
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRowNotFound, rowID)
	}
	row.Data = slices.Clone(data)
	t.mu.Unlock()

	t.rowCmds.Dispatch(command.RowCommand{Name: command.RowUpdate, TargetID: rowID, Payload: data, Origin: origin})
	return nil
}

// CompareVertical orders two cells by their rows' order keys.
func (t *Table) CompareVertical(a, b string) (int, error) {
	t.mu.RLock()
	ra, err := t.rowOfLocked(a)
	if err != nil {
		t.mu.RUnlock()
		return 0, err
	}
	rb, err := t.rowOfLocked(b)
	t.mu.RUnlock()
	if err != nil {
		return 0, err
	}
	if ra.ID == rb.ID {
		return 0, nil
	}
	return t.indexer.Compare(ra.Key, rb.Key)
}

// CompareHorizontal orders two cells by their position in their rows.
func (t *Table) CompareHorizontal(a, b string) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ra, err := t.rowOfLocked(a)
	if err != nil {
		return 0, err
	}
	rb, err := t.rowOfLocked(b)
	if err != nil {
		return 0, err
	}
	ia, ib := ra.CellIndex(a), rb.CellIndex(b)
	switch {
	case ia < ib:
		return -1, nil
	case ia > ib:
		return 1, nil
	default:
		return 0, nil
	}
}

func (t *Table) rowOfLocked(cellID string) (*spatial.Row, error) {
	c, ok := t.cells.Get(cellID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCellNotFound, cellID)
	}
	r, ok := t.rows.Get(c.RowID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRowNotFound, c.RowID)
	}
	return r, nil
}
