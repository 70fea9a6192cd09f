package lua

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/gridstorm/internal/action"
	"github.com/dshills/gridstorm/internal/command"
	"github.com/dshills/gridstorm/internal/plugin"
	"github.com/dshills/gridstorm/internal/spatial"
)

func writePlugin(t *testing.T, root, name, manifest, script string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte(manifest), 0o644))
	if script != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "init.lua"), []byte(script), 0o644))
	}
	return dir
}

// stubAPI records the calls a script makes through the grid module.
type stubAPI struct {
	added   []string
	rows    map[string][]string
	data    map[string]string
	focused string
}

func (a *stubAPI) AddRow(spaceID string, pos action.Position, data json.RawMessage) (string, error) {
	id := spaceID + "-" + pos.String() + ":" + string(data)
	a.added = append(a.added, id)
	return id, nil
}
func (a *stubAPI) DeleteRow(string) error { return nil }
func (a *stubAPI) SetRowData(rowID string, data json.RawMessage) error {
	if a.data == nil {
		a.data = make(map[string]string)
	}
	a.data[rowID] = string(data)
	return nil
}

func (a *stubAPI) Row(string) (spatial.Row, bool)                { return spatial.Row{}, false }
func (a *stubAPI) Cell(string) (spatial.Cell, bool)              { return spatial.Cell{}, false }
func (a *stubAPI) Rows(spaceID string) []string                  { return a.rows[spaceID] }
func (a *stubAPI) TableSpace() string                            { return "table" }
func (a *stubAPI) CompareVertical(string, string) (int, error)   { return 0, nil }
func (a *stubAPI) CompareHorizontal(string, string) (int, error) { return 0, nil }
func (a *stubAPI) RunAction(string, string, any) action.Report   { return action.Report{} }
func (a *stubAPI) DispatchCell(command.CellCommand) command.Result {
	return command.Result{}
}
func (a *stubAPI) DispatchRow(command.RowCommand) command.Result { return command.Result{} }
func (a *stubAPI) AllRows() []string                             { return nil }
func (a *stubAPI) Focused() string                               { return a.focused }
func (a *stubAPI) Focus(cellID string) error                     { a.focused = cellID; return nil }
func (a *stubAPI) RegisterButton(plugin.Button) error            { return nil }
func (a *stubAPI) RemoveButton(string)                           {}

const readonlyScript = `
blocked = 0

function on_init(space_id)
  local id = grid.add_row(grid.table_space(), "top", {name = "seed"})
  grid.set_row_data(id, {name = "seeded"})
  grid.focus("c1")
end

function on_before_cell_command(cmd)
  if cmd.name == "edit" and cmd.target == "locked" then
    blocked = blocked + 1
    return false
  end
  return true
end

function on_before_action(cell_id, action, methods)
  if cell_id == "locked" then
    return {"save", "deleteRow"}, false
  end
  return {}
end
`

func TestScriptHooks(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "readonly", "name: readonly\nversion: 1.2.0\ndependencies: [nav]\n", readonlyScript)

	plugins, err := LoadAll(root, WithLogger(logr.Discard()))
	require.NoError(t, err)
	require.Len(t, plugins, 1)

	p := plugins[0]
	assert.Equal(t, "readonly", p.Name())
	assert.Equal(t, "1.2.0", p.Version())
	assert.Equal(t, []string{"nav"}, p.Dependencies())
	_, owner := p.(plugin.SpaceOwner)
	assert.False(t, owner)

	api := &stubAPI{}
	require.NoError(t, p.(plugin.Initializer).OnInit(context.Background(), plugin.InitContext{API: api}))
	assert.Equal(t, []string{`table-top:{"name":"seed"}`}, api.added)
	assert.Equal(t, map[string]string{`table-top:{"name":"seed"}`: `{"name":"seeded"}`}, api.data)
	assert.Equal(t, "c1", api.focused)

	cells := p.(plugin.CellInterceptor)
	assert.False(t, cells.OnBeforeCellCommand(command.CellCommand{Name: command.CellEdit, TargetID: "locked"}))
	assert.True(t, cells.OnBeforeCellCommand(command.CellCommand{Name: command.CellEdit, TargetID: "open"}))
	assert.True(t, p.(plugin.RowInterceptor).OnBeforeRowCommand(command.RowCommand{Name: command.RowUpdate}))

	require.NoError(t, p.(plugin.Destroyer).OnDestroy(context.Background()))
}

func TestScriptVetoThroughActionRegistry(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "readonly", "name: readonly\nversion: 1.0.0\n", readonlyScript)
	plugins, err := LoadAll(root)
	require.NoError(t, err)
	p := plugins[0]

	reg := action.NewRegistry(logr.Discard())
	rec := &action.Recorder{}
	reg.SetFactory(func(string, string) action.API { return rec })
	reg.SetChain(func() []action.Interceptor {
		return []action.Interceptor{{Plugin: p.Name(), Fn: p.(plugin.ActionInterceptor).OnBeforeAction}}
	})
	body := func(api action.API, payload any) error {
		_ = api.Save(payload)
		return api.Blur()
	}
	reg.Register("locked", map[string]action.Func{"save": body})
	reg.Register("open", map[string]action.Func{"save": body})

	report := reg.Execute("locked", "save", "v", "")
	require.Len(t, report.Vetoed, 1)
	assert.Equal(t, action.MethodSave, report.Vetoed[0].Method())
	assert.Len(t, report.Executed, 1)

	report = reg.Execute("open", "save", "v", "")
	assert.Empty(t, report.Vetoed)
}

func TestSpaceOwnerManifest(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "drafts", "name: drafts\nspace: Drafts\nprocessLast: true\n", "")
	require.NoError(t, os.WriteFile(filepath.Join(root, "drafts", "init.lua"), []byte("-- empty"), 0o644))

	plugins, err := LoadAll(root)
	require.NoError(t, err)
	require.Len(t, plugins, 1)

	owner, ok := plugins[0].(plugin.SpaceOwner)
	require.True(t, ok)
	assert.Equal(t, "Drafts", owner.SpaceName())
	assert.True(t, plugins[0].ProcessLast())
	assert.Equal(t, "0.0.0", plugins[0].Version())

	// Undefined hooks pass.
	assert.True(t, plugins[0].(plugin.CellInterceptor).OnBeforeCellCommand(command.CellCommand{Name: command.CellFocus}))
}

func TestDiscoverErrors(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "Bad_Name", "name: Bad_Name\n", "")
	writePlugin(t, root, "nomain", "name: nomain\n", "")
	writePlugin(t, root, "ok", "name: ok\n", "return")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "not-a-plugin"), 0o755))

	plugins, err := LoadAll(root)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidManifest)
	assert.ErrorIs(t, err, ErrNoEntryPoint)
	require.Len(t, plugins, 1)
	assert.Equal(t, "ok", plugins[0].Name())

	none, err := Discover(filepath.Join(root, "missing"))
	assert.NoError(t, err)
	assert.Empty(t, none)
}

func TestSandbox(t *testing.T) {
	s := NewState()
	defer s.Close()

	require.NoError(t, s.DoString(`x = string.upper("ok")`))
	for _, code := range []string{`dofile("/etc/passwd")`, `require("os")`, `io.write("x")`, `os.exit(1)`} {
		assert.Error(t, s.DoString(code), code)
	}
}

func TestExecutionTimeout(t *testing.T) {
	s := NewState(WithExecutionTimeout(50 * time.Millisecond))
	defer s.Close()

	require.NoError(t, s.DoString(`function spin() while true do end end`))
	_, err := s.Call("spin")
	assert.ErrorIs(t, err, ErrExecutionTimeout)

	_, err = s.Call("missing")
	assert.ErrorIs(t, err, ErrNotFunction)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.DoString("x = 1"), ErrStateClosed)
}

func TestBridgeRoundTrip(t *testing.T) {
	s := NewState()
	defer s.Close()
	b := NewBridge(s.L)

	v := b.ToGoValue(b.ToLuaValue(json.RawMessage(`{"a":[1,2,"x"],"b":true}`)))
	m, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{int64(1), int64(2), "x"}, m["a"])
	assert.Equal(t, true, m["b"])
}
