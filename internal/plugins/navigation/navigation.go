// Package navigation is the built-in plugin that turns broadcast key
// presses into focus moves, cell actions and row edits.
//
// It listens to the target-less key commands the table emits while no cell
// owns the keyboard, looks the key up in its keymap and acts on the
// focused cell through its plugin API.
package navigation

import (
	"context"
	"errors"
	"sync"

	"github.com/go-logr/logr"

	"github.com/dshills/gridstorm/internal/action"
	"github.com/dshills/gridstorm/internal/command"
	"github.com/dshills/gridstorm/internal/input/key"
	"github.com/dshills/gridstorm/internal/input/keymap"
	"github.com/dshills/gridstorm/internal/plugin"
	"github.com/dshills/gridstorm/internal/spatial"
)

// Name is the plugin name.
const Name = "navigation"

// ButtonAddRow is the id of the toolbar button that appends a row.
const ButtonAddRow = "navigation.add-row"

// MoveAction is the cell action used for moves; cells without it are
// focused directly.
const MoveAction = "move"

// Plugin maps keys to grid operations.
type Plugin struct {
	plugin.Base

	keymap *keymap.Keymap

	mu  sync.RWMutex
	api plugin.API
	log logr.Logger
}

var (
	_ plugin.Initializer     = (*Plugin)(nil)
	_ plugin.CellInterceptor = (*Plugin)(nil)
)

// New creates the plugin around a keymap.
func New(km *keymap.Keymap) *Plugin {
	return &Plugin{
		Base:   plugin.Base{PluginName: Name, PluginVersion: "1.0.0"},
		keymap: km,
		log:    logr.Discard(),
	}
}

// Keymap returns the live keymap.
func (p *Plugin) Keymap() *keymap.Keymap {
	return p.keymap
}

// SetBindings replaces the keymap bindings, e.g. after a config reload.
func (p *Plugin) SetBindings(m map[string]string) error {
	return p.keymap.Replace(m)
}

// OnInit keeps the API and contributes the add-row button.
func (p *Plugin) OnInit(ctx context.Context, env plugin.InitContext) error {
	p.mu.Lock()
	p.api = env.API
	p.log = env.Logger
	p.mu.Unlock()

	return env.API.RegisterButton(plugin.Button{
		ID:    ButtonAddRow,
		Label: "+ Row",
		OnClick: func() {
			if _, err := env.API.AddRow(env.API.TableSpace(), action.Bottom, nil); err != nil {
				p.log.Error(err, "add row failed")
			}
		},
	})
}

// OnBeforeCellCommand acts on broadcast key commands. It never blocks.
func (p *Plugin) OnBeforeCellCommand(cmd command.CellCommand) bool {
	if cmd.Name != command.CellKey || cmd.TargetID != "" {
		return true
	}
	ev, ok := cmd.Payload.(key.Event)
	if !ok {
		return true
	}
	b, ok := p.keymap.Lookup(ev)
	if !ok {
		return true
	}

	p.mu.RLock()
	api, log := p.api, p.log
	p.mu.RUnlock()
	if api == nil {
		return true
	}

	if err := p.apply(api, b.Target); err != nil {
		log.Error(err, "binding failed", "key", b.Keys, "target", b.Target.String())
	}
	return true
}

func (p *Plugin) apply(api plugin.API, t keymap.Target) error {
	focused := api.Focused()
	if focused == "" {
		if t.Kind == keymap.KindInsert {
			_, err := api.AddRow(api.TableSpace(), t.Position, nil)
			return err
		}
		return focusFirst(api)
	}

	switch t.Kind {
	case keymap.KindNavigate:
		report := api.RunAction(focused, MoveAction, t.Direction)
		if errors.Is(report.Err, action.ErrUnknownAction) {
			return move(api, focused, t.Direction)
		}
		return report.Err
	case keymap.KindAction:
		return api.RunAction(focused, t.Action, nil).Err
	case keymap.KindInsert:
		c, ok := api.Cell(focused)
		if !ok {
			return nil
		}
		row, ok := api.Row(c.RowID)
		if !ok {
			return nil
		}
		_, err := api.AddRow(row.SpaceID, t.Position, nil)
		return err
	case keymap.KindDelete:
		return deleteFocusedRow(api, focused)
	}
	return nil
}

// focusFirst focuses the first cell of the topmost row with cells.
func focusFirst(api plugin.API) error {
	for _, id := range api.AllRows() {
		if row, ok := api.Row(id); ok && len(row.CellIDs) > 0 {
			return api.Focus(row.CellIDs[0])
		}
	}
	return nil
}

func move(api plugin.API, cellID string, dir action.Direction) error {
	c, ok := api.Cell(cellID)
	if !ok {
		return nil
	}
	next := c.Neighbor(sideOf(dir))
	if next == "" {
		return nil
	}
	return api.Focus(next)
}

// deleteFocusedRow deletes the focused cell's row and moves focus to the
// same column of the row below, or above when there is none.
func deleteFocusedRow(api plugin.API, cellID string) error {
	c, ok := api.Cell(cellID)
	if !ok {
		return nil
	}
	next := c.Bottom
	if next == "" {
		next = c.Top
	}
	if err := api.DeleteRow(c.RowID); err != nil {
		return err
	}
	if next == "" {
		return nil
	}
	return api.Focus(next)
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
