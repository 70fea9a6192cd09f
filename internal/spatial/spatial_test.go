package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry[Cell]()

	assert.True(t, r.Register("a", &Cell{ID: "a"}))
	assert.True(t, r.Register("b", &Cell{ID: "b"}))
	assert.False(t, r.Register("a", &Cell{ID: "a", Column: "x"}), "re-register should overwrite")

	got, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, "x", got.Column)
	assert.Equal(t, []string{"a", "b"}, r.List())
	assert.Equal(t, 2, r.Len())

	assert.True(t, r.Unregister("a"))
	assert.False(t, r.Unregister("a"))
	assert.False(t, r.Has("a"))
	assert.Equal(t, []string{"b"}, r.List())

	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.List())
}

func newCells(t *testing.T, ids ...string) (*Registry[Cell], *Registry[Row], *CellCoordinator) {
	t.Helper()
	cells := NewRegistry[Cell]()
	rows := NewRegistry[Row]()
	for _, id := range ids {
		cells.Register(id, &Cell{ID: id})
	}
	return cells, rows, NewCellCoordinator(cells, rows)
}

func TestLinkVerticalAndHorizontal(t *testing.T) {
	cells, _, cc := newCells(t, "a", "b", "c")

	cc.LinkVertical("a", "b")
	cc.LinkHorizontal("b", "c")
	cc.LinkVertical("a", "missing")

	a, _ := cells.Get("a")
	b, _ := cells.Get("b")
	c, _ := cells.Get("c")
	assert.Equal(t, "b", a.Bottom)
	assert.Equal(t, "a", b.Top)
	assert.Equal(t, "c", b.Right)
	assert.Equal(t, "b", c.Left)
}

func TestClearCoordinateIsSymmetric(t *testing.T) {
	cells, _, cc := newCells(t, "a", "b")
	cc.LinkHorizontal("a", "b")

	cc.ClearCoordinate("b", SideLeft)

	a, _ := cells.Get("a")
	b, _ := cells.Get("b")
	assert.Empty(t, a.Right)
	assert.Empty(t, b.Left)
}

func TestLinkRowsCells(t *testing.T) {
	cells, rows, cc := newCells(t, "t1", "t2", "t3", "b1", "b2")
	rows.Register("top", &Row{ID: "top"})
	rows.Register("bottom", &Row{ID: "bottom"})

	cc.LinkRows("top", "bottom")
	cc.LinkRowsCells([]string{"t1", "t2", "t3"}, []string{"b1", "b2"})

	top, _ := rows.Get("top")
	bottom, _ := rows.Get("bottom")
	assert.Equal(t, "bottom", top.Bottom)
	assert.Equal(t, "top", bottom.Top)

	t1, _ := cells.Get("t1")
	t3, _ := cells.Get("t3")
	b2, _ := cells.Get("b2")
	assert.Equal(t, "b1", t1.Bottom)
	assert.Equal(t, "t2", b2.Top)
	assert.Empty(t, t3.Bottom, "linking stops at the shorter row")
}

func TestUnlinkCell(t *testing.T) {
	cells, _, cc := newCells(t, "c", "n", "s", "w", "e")
	cc.LinkVertical("n", "c")
	cc.LinkVertical("c", "s")
	cc.LinkHorizontal("w", "c")
	cc.LinkHorizontal("c", "e")

	cc.UnlinkCell("c")

	for _, id := range []string{"n", "s", "w", "e"} {
		cell, _ := cells.Get(id)
		assert.NotEqual(t, "c", cell.Top, id)
		assert.NotEqual(t, "c", cell.Bottom, id)
		assert.NotEqual(t, "c", cell.Left, id)
		assert.NotEqual(t, "c", cell.Right, id)
	}
}

func TestSpaceChain(t *testing.T) {
	spaces := NewRegistry[Space]()
	sc := NewSpaceCoordinator(spaces)

	first := sc.CreatePluginSpace("header", "p1")
	second := sc.CreatePluginSpace("filters", "p2")

	spaces.Register("table", &Space{ID: "table", Name: "table"})
	sc.LinkLastPluginSpaceToTableSpace("table")

	assert.Equal(t, []string{first, second, "table"}, sc.Chain())
	assert.Equal(t, second, sc.SpaceAbove("table"))
	assert.Equal(t, "table", sc.SpaceBelow(second))
	assert.Empty(t, sc.SpaceBelow("table"))
	assert.Empty(t, sc.SpaceAbove(first))

	s, _ := spaces.Get(first)
	assert.Equal(t, "p1", s.Plugin)
}

func TestSpaceChainTableOnly(t *testing.T) {
	spaces := NewRegistry[Space]()
	sc := NewSpaceCoordinator(spaces)
	spaces.Register("table", &Space{ID: "table"})
	sc.LinkLastPluginSpaceToTableSpace("table")

	assert.Equal(t, []string{"table"}, sc.Chain())
}

func TestSideOpposite(t *testing.T) {
	assert.Equal(t, SideBottom, SideTop.Opposite())
	assert.Equal(t, SideLeft, SideRight.Opposite())
	assert.Equal(t, "left", SideLeft.String())
}

func TestRowHelpers(t *testing.T) {
	r := &Row{ID: "r", CellIDs: []string{"r/a", "r/b"}, Data: []byte(`{"a":1}`)}
	assert.Equal(t, 1, r.CellIndex("r/b"))
	assert.Equal(t, -1, r.CellIndex("r/z"))

	c := r.Clone()
	c.CellIDs[0] = "changed"
	assert.Equal(t, "r/a", r.CellIDs[0])
	assert.Equal(t, "r/b", CellID("r", "b"))

	s := &Space{RowIDs: []string{"x", "y"}}
	assert.Equal(t, "x", s.FirstRow())
	assert.Equal(t, "y", s.LastRow())
	assert.Empty(t, (&Space{}).LastRow())
}
