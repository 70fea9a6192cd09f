// Package spatial holds the grid's relational model: cells, rows and spaces
// stored in id-keyed registries and linked to each other by id.
//
// Links are plain id fields, never pointers; an empty id means "no
// neighbour". Registries own the objects and coordinators maintain the
// symmetric links between them.
package spatial

import (
	"encoding/json"
	"slices"

	"github.com/dshills/gridstorm/internal/order"
)

// Side names one of a cell's four neighbour links.
type Side int

const (
	SideTop Side = iota
	SideBottom
	SideLeft
	SideRight
)

// Opposite returns the side facing s.
func (s Side) Opposite() Side {
	switch s {
	case SideTop:
		return SideBottom
	case SideBottom:
		return SideTop
	case SideLeft:
		return SideRight
	default:
		return SideLeft
	}
}

// String returns a string representation of the side.
func (s Side) String() string {
	switch s {
	case SideTop:
		return "top"
	case SideBottom:
		return "bottom"
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return "unknown"
	}
}

// Cell is a purely relational grid position. Its display value lives in
// the widget that registered it.
type Cell struct {
	ID     string
	RowID  string
	Column string

	Top    string
	Bottom string
	Left   string
	Right  string
}

// Neighbor returns the id linked on side s.
func (c *Cell) Neighbor(s Side) string {
	switch s {
	case SideTop:
		return c.Top
	case SideBottom:
		return c.Bottom
	case SideLeft:
		return c.Left
	case SideRight:
		return c.Right
	default:
		return ""
	}
}

func (c *Cell) setNeighbor(s Side, id string) {
	switch s {
	case SideTop:
		c.Top = id
	case SideBottom:
		c.Bottom = id
	case SideLeft:
		c.Left = id
	case SideRight:
		c.Right = id
	}
}

// Row belongs to exactly one space and orders itself with an indexer key.
type Row struct {
	ID      string
	SpaceID string
	CellIDs []string

	Top    string
	Bottom string

	Data json.RawMessage
	Key  order.Ref
}

// CellIndex returns the position of cellID in the row, or -1.
func (r *Row) CellIndex(cellID string) int {
	return slices.Index(r.CellIDs, cellID)
}

// Clone returns a copy that shares nothing with r.
func (r *Row) Clone() Row {
	out := *r
	out.CellIDs = slices.Clone(r.CellIDs)
	out.Data = slices.Clone(r.Data)
	return out
}

// Space is an ordered container of rows chained vertically with other
// spaces. Plugin is empty for the table's own space.
type Space struct {
	ID     string
	Name   string
	Plugin string
	RowIDs []string

	Top    string
	Bottom string
}

// Clone returns a copy that shares nothing with s.
func (s *Space) Clone() Space {
	out := *s
	out.RowIDs = slices.Clone(s.RowIDs)
	return out
}

// FirstRow returns the top-most row id, or "".
func (s *Space) FirstRow() string {
	if len(s.RowIDs) == 0 {
		return ""
	}
	return s.RowIDs[0]
}

// LastRow returns the bottom-most row id, or "".
func (s *Space) LastRow() string {
	if len(s.RowIDs) == 0 {
		return ""
	}
	return s.RowIDs[len(s.RowIDs)-1]
}

// CellID composes the id of the cell at column in row.
func CellID(rowID, column string) string {
	return rowID + "/" + column
}
