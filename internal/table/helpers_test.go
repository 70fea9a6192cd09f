package table_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/gridstorm/internal/action"
	"github.com/dshills/gridstorm/internal/command"
	"github.com/dshills/gridstorm/internal/plugin"
	"github.com/dshills/gridstorm/internal/table"
)

// spy is a configurable test plugin.
type spy struct {
	plugin.Base

	blockCells bool
	veto       []action.Method

	cellCmds []command.CellCommand
	actions  []string
	inits    []plugin.InitContext
	destroys int

	onInit func(env plugin.InitContext)
}

func newSpy(name string, deps ...string) *spy {
	return &spy{Base: plugin.Base{PluginName: name, PluginVersion: "1.0.0", Deps: deps}}
}

func (p *spy) OnInit(ctx context.Context, env plugin.InitContext) error {
	p.inits = append(p.inits, env)
	if p.onInit != nil {
		p.onInit(env)
	}
	return nil
}

func (p *spy) OnDestroy(ctx context.Context) error {
	p.destroys++
	return nil
}

func (p *spy) OnBeforeCellCommand(cmd command.CellCommand) bool {
	p.cellCmds = append(p.cellCmds, cmd)
	return !p.blockCells
}

func (p *spy) OnBeforeAction(cellID, name string, obs action.Observer) bool {
	p.actions = append(p.actions, name)
	for _, m := range p.veto {
		obs.On(m, func(action.Call) bool { return false })
	}
	return true
}

// owner is a spy that owns a space.
type owner struct {
	*spy
	space string
}

func (o owner) SpaceName() string { return o.space }

func newOwner(name, space string, deps ...string) owner {
	return owner{spy: newSpy(name, deps...), space: space}
}

func newTable(t *testing.T, plugins ...plugin.Plugin) *table.Table {
	t.Helper()
	tbl, err := table.New(table.DefaultConfig(), plugins...)
	require.NoError(t, err)
	return tbl
}

// addRow adds a row with cells a and b.
func addRow(t *testing.T, tbl *table.Table, spaceID string, pos action.Position) (string, []string) {
	t.Helper()
	id, err := tbl.AddRow(spaceID, pos, nil)
	require.NoError(t, err)
	cells, err := tbl.RowAPI(id).AddCells("a", "b")
	require.NoError(t, err)
	return id, cells
}

func orderKey(t *testing.T, tbl *table.Table, rowID string) string {
	t.Helper()
	k, err := tbl.OrderKey(rowID)
	require.NoError(t, err)
	return k
}
