package spatial

import (
	"github.com/google/uuid"
)

// CellCoordinator maintains the up/down/left/right links between cells and
// the up/down links between rows.
//
// Coordinators mutate registry objects in place. Callers serialize
// structural changes; the table core holds its structure lock around every
// coordinator call.
type CellCoordinator struct {
	cells *Registry[Cell]
	rows  *Registry[Row]
}

// NewCellCoordinator creates a coordinator over the given registries.
func NewCellCoordinator(cells *Registry[Cell], rows *Registry[Row]) *CellCoordinator {
	return &CellCoordinator{cells: cells, rows: rows}
}

// LinkVertical makes top and bottom vertical neighbours.
// It is a no-op if either cell is missing.
func (c *CellCoordinator) LinkVertical(top, bottom string) {
	t, ok := c.cells.Get(top)
	if !ok {
		return
	}
	b, ok := c.cells.Get(bottom)
	if !ok {
		return
	}
	t.Bottom = bottom
	b.Top = top
}

// LinkHorizontal makes left and right horizontal neighbours.
// It is a no-op if either cell is missing.
func (c *CellCoordinator) LinkHorizontal(left, right string) {
	l, ok := c.cells.Get(left)
	if !ok {
		return
	}
	r, ok := c.cells.Get(right)
	if !ok {
		return
	}
	l.Right = right
	r.Left = left
}

// ClearCoordinate breaks the link on side s of cellID, on both ends.
func (c *CellCoordinator) ClearCoordinate(cellID string, s Side) {
	cell, ok := c.cells.Get(cellID)
	if !ok {
		return
	}
	other := cell.Neighbor(s)
	cell.setNeighbor(s, "")
	if other == "" {
		return
	}
	if o, ok := c.cells.Get(other); ok && o.Neighbor(s.Opposite()) == cellID {
		o.setNeighbor(s.Opposite(), "")
	}
}

// LinkRows sets the row links between topRowID and bottomRowID. Either id
// may be empty, in which case only the other row's link is cleared.
func (c *CellCoordinator) LinkRows(topRowID, bottomRowID string) {
	if t, ok := c.rows.Get(topRowID); ok {
		t.Bottom = bottomRowID
	}
	if b, ok := c.rows.Get(bottomRowID); ok {
		b.Top = topRowID
	}
}

// LinkRowsCells links same-index cells of two rows vertically, up to the
// shorter row's length.
func (c *CellCoordinator) LinkRowsCells(topCells, bottomCells []string) {
	n := min(len(topCells), len(bottomCells))
	for i := range n {
		c.LinkVertical(topCells[i], bottomCells[i])
	}
}

// UnlinkCell clears every link of cellID on both ends.
func (c *CellCoordinator) UnlinkCell(cellID string) {
	for _, s := range []Side{SideTop, SideBottom, SideLeft, SideRight} {
		c.ClearCoordinate(cellID, s)
	}
}

// SpaceCoordinator maintains the vertical chain of spaces.
type SpaceCoordinator struct {
	spaces *Registry[Space]
	newID  func() string
}

// NewSpaceCoordinator creates a coordinator over the space registry.
func NewSpaceCoordinator(spaces *Registry[Space]) *SpaceCoordinator {
	return &SpaceCoordinator{
		spaces: spaces,
		newID:  uuid.NewString,
	}
}

// CreatePluginSpace creates a space owned by plugin, appends it to the
// bottom of the chain and returns its id.
func (c *SpaceCoordinator) CreatePluginSpace(name, plugin string) string {
	tail := c.tail("")
	id := c.newID()
	c.spaces.Register(id, &Space{ID: id, Name: name, Plugin: plugin})
	if tail != "" {
		c.LinkVertical(tail, id)
	}
	return id
}

// LinkVertical makes top and bottom vertical neighbours.
func (c *SpaceCoordinator) LinkVertical(top, bottom string) {
	t, ok := c.spaces.Get(top)
	if !ok {
		return
	}
	b, ok := c.spaces.Get(bottom)
	if !ok {
		return
	}
	t.Bottom = bottom
	b.Top = top
}

// SpaceAbove returns the id of the space above id, or "".
func (c *SpaceCoordinator) SpaceAbove(id string) string {
	if s, ok := c.spaces.Get(id); ok {
		return s.Top
	}
	return ""
}

// SpaceBelow returns the id of the space below id, or "".
func (c *SpaceCoordinator) SpaceBelow(id string) string {
	if s, ok := c.spaces.Get(id); ok {
		return s.Bottom
	}
	return ""
}

// LinkLastPluginSpaceToTableSpace attaches the table space beneath the
// current chain tail, making it the terminal space.
func (c *SpaceCoordinator) LinkLastPluginSpaceToTableSpace(tableSpaceID string) {
	tail := c.tail(tableSpaceID)
	if tail == "" {
		return
	}
	c.LinkVertical(tail, tableSpaceID)
}

// Chain returns the space ids from top to bottom.
func (c *SpaceCoordinator) Chain() []string {
	head := c.head()
	var out []string
	seen := make(map[string]bool)
	for id := head; id != "" && !seen[id]; id = c.SpaceBelow(id) {
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// head returns the space with no top link.
func (c *SpaceCoordinator) head() string {
	for _, id := range c.spaces.List() {
		if s, _ := c.spaces.Get(id); s != nil && s.Top == "" {
			return id
		}
	}
	return ""
}

// tail returns the space with no bottom link, ignoring exclude.
func (c *SpaceCoordinator) tail(exclude string) string {
	for _, id := range c.spaces.List() {
		if id == exclude {
			continue
		}
		if s, _ := c.spaces.Get(id); s != nil && s.Bottom == "" {
			return id
		}
	}
	return ""
}
