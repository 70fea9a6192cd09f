package table_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/gridstorm/internal/action"
	"github.com/dshills/gridstorm/internal/command"
	"github.com/dshills/gridstorm/internal/table"
)

// TestRowScenario inserts R1 and R2, places R3 between them, deletes R3
// and checks that R1 and R2 relink without their keys changing.
func TestRowScenario(t *testing.T) {
	tbl := newTable(t, newOwner("drafts", "drafts"))
	drafts := tbl.PluginSpace("drafts")

	r1, c1 := addRow(t, tbl, drafts, action.Bottom)
	r2, c2 := addRow(t, tbl, tbl.TableSpace(), action.Bottom)
	k1, k2 := orderKey(t, tbl, r1), orderKey(t, tbl, r2)
	assert.Less(t, k1, k2)

	// R3 lands at the bottom of drafts, between R1 and R2.
	r3, c3 := addRow(t, tbl, drafts, action.Bottom)
	k3 := orderKey(t, tbl, r3)
	assert.Less(t, k1, k3)
	assert.Less(t, k3, k2)

	row1, _ := tbl.Row(r1)
	row3, _ := tbl.Row(r3)
	assert.Equal(t, r3, row1.Bottom)
	assert.Equal(t, r1, row3.Top)
	assert.Equal(t, r2, row3.Bottom)

	cell, _ := tbl.Cell(c3[1])
	assert.Equal(t, c1[1], cell.Top)
	assert.Equal(t, c2[1], cell.Bottom)

	require.NoError(t, tbl.DeleteRow(r3))

	row1, _ = tbl.Row(r1)
	row2, _ := tbl.Row(r2)
	assert.Equal(t, r2, row1.Bottom)
	assert.Equal(t, r1, row2.Top)
	for i := range c1 {
		top, _ := tbl.Cell(c1[i])
		bottom, _ := tbl.Cell(c2[i])
		assert.Equal(t, c2[i], top.Bottom)
		assert.Equal(t, c1[i], bottom.Top)
	}

	assert.Equal(t, k1, orderKey(t, tbl, r1))
	assert.Equal(t, k2, orderKey(t, tbl, r2))
	_, err := tbl.OrderKey(r3)
	assert.ErrorIs(t, err, table.ErrRowNotFound)
}

func TestCrossSpaceOrdering(t *testing.T) {
	tbl := newTable(t, newOwner("a", "a"), newOwner("b", "b", "a"))
	spaceA, spaceB, data := tbl.PluginSpace("a"), tbl.PluginSpace("b"), tbl.TableSpace()

	// Fill from the middle outwards, leaving b empty until last.
	steps := []struct {
		space string
		pos   action.Position
	}{
		{data, action.Bottom},
		{spaceA, action.Bottom},
		{spaceA, action.Top},
		{data, action.Top},
		{data, action.Bottom},
		{spaceA, action.Bottom},
		{spaceB, action.Top},
		{spaceB, action.Bottom},
		{spaceB, action.Top},
	}
	for _, s := range steps {
		_, err := tbl.AddRow(s.space, s.pos, nil)
		require.NoError(t, err)
	}

	all := tbl.AllRows()
	require.Len(t, all, len(steps))
	for i := 1; i < len(all); i++ {
		assert.Less(t, orderKey(t, tbl, all[i-1]), orderKey(t, tbl, all[i]), "row %d", i)

		upper, _ := tbl.Row(all[i-1])
		lower, _ := tbl.Row(all[i])
		assert.Equal(t, lower.ID, upper.Bottom)
		assert.Equal(t, upper.ID, lower.Top)
	}

	assert.Len(t, tbl.Rows(spaceA), 3)
	assert.Len(t, tbl.Rows(spaceB), 3)
	assert.Len(t, tbl.Rows(data), 3)
}

func TestAddRowErrors(t *testing.T) {
	tbl := newTable(t)
	_, err := tbl.AddRow("nowhere", action.Bottom, nil)
	assert.ErrorIs(t, err, table.ErrSpaceNotFound)
	assert.ErrorIs(t, tbl.DeleteRow("ghost"), table.ErrRowNotFound)
}

func TestDeleteRowRelinksAndCleansUp(t *testing.T) {
	tbl := newTable(t)
	space := tbl.TableSpace()
	top, topCells := addRow(t, tbl, space, action.Bottom)
	mid, midCells := addRow(t, tbl, space, action.Bottom)
	bottom, bottomCells := addRow(t, tbl, space, action.Bottom)

	var rowCmds []command.RowName
	require.NoError(t, tbl.RowAPI(mid).RegisterRowHandler(func(cmd command.RowCommand) error {
		rowCmds = append(rowCmds, cmd.Name)
		return nil
	}))
	var spaceCmds []any
	require.NoError(t, tbl.RegisterSpaceHandler(space, func(cmd command.SpaceCommand) error {
		spaceCmds = append(spaceCmds, cmd.Payload)
		return nil
	}))
	require.NoError(t, tbl.CellAPI(midCells[0]).RegisterActions(map[string]action.Func{
		"noop": func(action.API, any) error { return nil },
	}))
	var cellCmds []command.CellName
	require.NoError(t, tbl.CellAPI(midCells[1]).RegisterCommands(func(cmd command.CellCommand) error {
		cellCmds = append(cellCmds, cmd.Name)
		return nil
	}))
	require.NoError(t, tbl.Focus(midCells[0]))

	require.NoError(t, tbl.DeleteRow(mid))

	assert.Equal(t, []command.CellName{command.CellDestroy}, cellCmds)
	assert.Equal(t, []command.RowName{command.RowDestroy}, rowCmds)
	assert.Equal(t, []any{mid}, spaceCmds)
	assert.Equal(t, []string{top, bottom}, tbl.Rows(space))
	assert.Empty(t, tbl.Focused())

	upper, _ := tbl.Row(top)
	lower, _ := tbl.Row(bottom)
	assert.Equal(t, bottom, upper.Bottom)
	assert.Equal(t, top, lower.Top)
	cell, _ := tbl.Cell(topCells[0])
	assert.Equal(t, bottomCells[0], cell.Bottom)

	for _, c := range midCells {
		_, ok := tbl.Cell(c)
		assert.False(t, ok)
	}
	report := tbl.RunAction(midCells[0], "noop", nil)
	assert.ErrorIs(t, report.Err, action.ErrUnknownAction)
	assert.Equal(t, 2, tbl.Stats().Indexer.Live)

	// Deleting the top row leaves the next row without a top link.
	require.NoError(t, tbl.DeleteRow(top))
	lower, _ = tbl.Row(bottom)
	assert.Empty(t, lower.Top)
	cell, _ = tbl.Cell(bottomCells[0])
	assert.Empty(t, cell.Top)
}

func TestCompare(t *testing.T) {
	tbl := newTable(t)
	_, upper := addRow(t, tbl, tbl.TableSpace(), action.Bottom)
	_, lower := addRow(t, tbl, tbl.TableSpace(), action.Bottom)

	v, err := tbl.CompareVertical(upper[0], lower[1])
	require.NoError(t, err)
	assert.Equal(t, -1, v)
	v, err = tbl.CompareVertical(lower[0], upper[0])
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, err = tbl.CompareVertical(upper[0], upper[1])
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	h, err := tbl.CompareHorizontal(upper[0], lower[1])
	require.NoError(t, err)
	assert.Equal(t, -1, h)
	h, err = tbl.CompareHorizontal(upper[1], lower[1])
	require.NoError(t, err)
	assert.Equal(t, 0, h)

	_, err = tbl.CompareVertical(upper[0], "ghost")
	assert.ErrorIs(t, err, table.ErrCellNotFound)
}

func TestRowAPICells(t *testing.T) {
	tbl := newTable(t)
	rowID, err := tbl.AddRow(tbl.TableSpace(), action.Bottom, nil)
	require.NoError(t, err)
	api := tbl.RowAPI(rowID)

	cells, err := api.AddCells("a", "b", "c")
	require.NoError(t, err)
	_, err = api.RegisterCell("a")
	assert.ErrorIs(t, err, table.ErrCellExists)

	a, _ := tbl.Cell(cells[0])
	assert.Equal(t, "a", a.Column)
	assert.Equal(t, cells[1], a.Right)

	require.NoError(t, api.UnregisterCell(cells[1]))
	a, _ = tbl.Cell(cells[0])
	c, _ := tbl.Cell(cells[2])
	assert.Equal(t, cells[2], a.Right)
	assert.Equal(t, cells[0], c.Left)

	row, _ := api.Row()
	assert.Equal(t, []string{cells[0], cells[2]}, row.CellIDs)
	assert.ErrorIs(t, api.UnregisterCell(cells[1]), table.ErrCellNotFound)

	_, err = tbl.RowAPI("ghost").RegisterCell("a")
	assert.ErrorIs(t, err, table.ErrRowNotFound)
}

func TestFocusAndNavigate(t *testing.T) {
	tbl := newTable(t)
	_, upper := addRow(t, tbl, tbl.TableSpace(), action.Bottom)
	_, lower := addRow(t, tbl, tbl.TableSpace(), action.Bottom)

	var got []string
	for _, c := range append(append([]string{}, upper...), lower...) {
		id := c
		require.NoError(t, tbl.CellAPI(id).RegisterCommands(func(cmd command.CellCommand) error {
			got = append(got, string(cmd.Name)+":"+id)
			return nil
		}))
	}

	require.NoError(t, tbl.Focus(upper[0]))
	require.NoError(t, tbl.Navigate(upper[0], action.Down))
	assert.Equal(t, lower[0], tbl.Focused())
	require.NoError(t, tbl.Navigate(lower[0], action.Down), "moving off the grid is a no-op")
	require.NoError(t, tbl.Navigate(lower[0], action.Right))
	require.NoError(t, tbl.Blur(lower[1]))
	assert.Empty(t, tbl.Focused())

	assert.Equal(t, []string{
		"focus:" + upper[0],
		"blur:" + upper[0], "focus:" + lower[0],
		"blur:" + lower[0], "focus:" + lower[1],
		"blur:" + lower[1],
	}, got)

	assert.ErrorIs(t, tbl.Focus("ghost"), table.ErrCellNotFound)
	assert.ErrorIs(t, tbl.Navigate("ghost", action.Up), table.ErrCellNotFound)
}
