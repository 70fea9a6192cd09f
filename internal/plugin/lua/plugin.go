package lua

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/gridstorm/internal/action"
	"github.com/dshills/gridstorm/internal/command"
	"github.com/dshills/gridstorm/internal/plugin"
)

// Script hook names.
const (
	hookInit               = "on_init"
	hookDestroy            = "on_destroy"
	hookBeforeCellCommand  = "on_before_cell_command"
	hookBeforeRowCommand   = "on_before_row_command"
	hookBeforeSpaceCommand = "on_before_space_command"
	hookBeforeAction       = "on_before_action"
)

// Option configures a Script.
type Option func(*options)

type options struct {
	log     logr.Logger
	timeout time.Duration
}

// WithLogger sets the logger of loaded scripts.
func WithLogger(log logr.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithTimeout bounds each call into a script.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// Script is a plugin implemented by a Lua file. Hooks the script does not
// define behave as a pass.
type Script struct {
	manifest *Manifest
	state    *State
	bridge   *Bridge
	log      logr.Logger

	api     plugin.API
	spaceID string
}

var (
	_ plugin.Plugin            = (*Script)(nil)
	_ plugin.Initializer       = (*Script)(nil)
	_ plugin.Destroyer         = (*Script)(nil)
	_ plugin.CellInterceptor   = (*Script)(nil)
	_ plugin.RowInterceptor    = (*Script)(nil)
	_ plugin.SpaceInterceptor  = (*Script)(nil)
	_ plugin.ActionInterceptor = (*Script)(nil)
)

// spaceScript is a Script that owns a space.
type spaceScript struct {
	*Script
}

func (s spaceScript) SpaceName() string { return s.manifest.Space }

// New loads the script of a manifest. The result implements
// plugin.SpaceOwner when the manifest names a space.
func New(m *Manifest, opts ...Option) (plugin.Plugin, error) {
	o := options{log: logr.Discard(), timeout: DefaultExecutionTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	if _, err := os.Stat(m.MainPath()); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoEntryPoint, m.MainPath())
	}

	log := o.log.WithName("lua").WithValues("plugin", m.Name)
	state := NewState(WithExecutionTimeout(o.timeout), WithStateLogger(log))
	if err := state.DoFile(m.MainPath()); err != nil {
		state.Close()
		return nil, fmt.Errorf("failed to load %s: %w", m.MainPath(), err)
	}

	s := &Script{
		manifest: m,
		state:    state,
		bridge:   NewBridge(state.L),
		log:      log,
	}
	if m.Space != "" {
		return spaceScript{s}, nil
	}
	return s, nil
}

func (s *Script) Name() string           { return s.manifest.Name }
func (s *Script) Version() string        { return s.manifest.Version }
func (s *Script) Dependencies() []string { return s.manifest.Dependencies }
func (s *Script) ProcessLast() bool      { return s.manifest.ProcessLast }

// Manifest returns the plugin manifest.
func (s *Script) Manifest() *Manifest {
	return s.manifest
}

// OnInit installs the grid module and calls on_init(space_id).
func (s *Script) OnInit(ctx context.Context, env plugin.InitContext) error {
	s.api = env.API
	s.spaceID = env.SpaceID
	s.state.RegisterModule("grid", s.gridModule())

	if !s.state.HasFunction(hookInit) {
		return nil
	}
	_, err := s.state.Call(hookInit, lua.LString(env.SpaceID))
	return err
}

// OnDestroy calls on_destroy and closes the Lua state.
func (s *Script) OnDestroy(ctx context.Context) error {
	var err error
	if s.state.HasFunction(hookDestroy) {
		_, err = s.state.Call(hookDestroy)
	}
	if cerr := s.state.Close(); err == nil {
		err = cerr
	}
	return err
}

func (s *Script) OnBeforeCellCommand(cmd command.CellCommand) bool {
	return s.intercept(hookBeforeCellCommand, string(cmd.Name), cmd.TargetID, cmd.Origin, cmd.Payload)
}

func (s *Script) OnBeforeRowCommand(cmd command.RowCommand) bool {
	return s.intercept(hookBeforeRowCommand, string(cmd.Name), cmd.TargetID, cmd.Origin, cmd.Payload)
}

func (s *Script) OnBeforeSpaceCommand(cmd command.SpaceCommand) bool {
	return s.intercept(hookBeforeSpaceCommand, string(cmd.Name), cmd.TargetID, cmd.Origin, cmd.Payload)
}

// intercept calls a command hook with a command table. Only an explicit
// false blocks; script errors pass. A command raised while the script is
// already running passes without reaching it.
func (s *Script) intercept(hook, name, target, origin string, payload any) bool {
	ret, err := s.state.TryCall(hook, func(*lua.LState) []lua.LValue {
		return []lua.LValue{s.bridge.Table(map[string]any{
			"name":    name,
			"target":  target,
			"origin":  origin,
			"payload": payload,
		})}
	})
	if s.skipped(hook, err) {
		return true
	}
	if err != nil {
		s.log.Error(err, "hook failed", "hook", hook)
		return true
	}
	return len(ret) == 0 || ret[0] != lua.LFalse
}

// allMethods lists the API methods offered to on_before_action.
var allMethods = []action.Method{
	action.MethodSave,
	action.MethodNavigate,
	action.MethodFocus,
	action.MethodBlur,
	action.MethodTakeKeyboard,
	action.MethodReleaseKeyboard,
	action.MethodInsertRow,
	action.MethodDeleteRow,
}

// OnBeforeAction calls on_before_action(cell_id, action, methods). The
// script returns a list of method names to veto and, optionally, false to
// stop later plugins.
func (s *Script) OnBeforeAction(cellID, name string, obs action.Observer) bool {
	var recorded []string
	for _, m := range allMethods {
		if obs.Has(m) {
			recorded = append(recorded, string(m))
		}
	}

	ret, err := s.state.TryCall(hookBeforeAction, func(*lua.LState) []lua.LValue {
		return []lua.LValue{lua.LString(cellID), lua.LString(name), s.bridge.ToLuaValue(recorded)}
	})
	if s.skipped(hookBeforeAction, err) {
		return true
	}
	if err != nil {
		s.log.Error(err, "hook failed", "hook", hookBeforeAction)
		return true
	}

	if len(ret) > 0 {
		if vetoes, ok := ret[0].(*lua.LTable); ok {
			vetoes.ForEach(func(_, v lua.LValue) {
				obs.On(action.Method(v.String()), func(action.Call) bool { return false })
			})
		}
	}
	return len(ret) < 2 || ret[1] != lua.LFalse
}

// skipped reports whether a hook did not run because the script does not
// define it or is already running.
func (s *Script) skipped(hook string, err error) bool {
	switch {
	case errors.Is(err, ErrNotFunction), errors.Is(err, ErrStateClosed):
		return true
	case errors.Is(err, ErrStateBusy):
		s.log.V(1).Info("hook skipped while script is running", "hook", hook)
		return true
	}
	return false
}

// gridModule exposes the plugin API to the script as the global "grid".
func (s *Script) gridModule() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"log": func(L *lua.LState) int {
			s.log.Info(L.CheckString(1))
			return 0
		},
		"space": func(L *lua.LState) int {
			L.Push(lua.LString(s.spaceID))
			return 1
		},
		"table_space": func(L *lua.LState) int {
			L.Push(lua.LString(s.api.TableSpace()))
			return 1
		},
		"focused": func(L *lua.LState) int {
			L.Push(lua.LString(s.api.Focused()))
			return 1
		},
		"rows": func(L *lua.LState) int {
			L.Push(s.bridge.ToLuaValue(s.api.Rows(L.CheckString(1))))
			return 1
		},
		"add_row": func(L *lua.LState) int {
			pos := action.Bottom
			if L.OptString(2, "bottom") == "top" {
				pos = action.Top
			}
			var data json.RawMessage
			if v := L.Get(3); v != lua.LNil {
				raw, err := json.Marshal(s.bridge.ToGoValue(v))
				if err != nil {
					L.Push(lua.LNil)
					L.Push(lua.LString(err.Error()))
					return 2
				}
				data = raw
			}
			id, err := s.api.AddRow(L.CheckString(1), pos, data)
			if err != nil {
				L.Push(lua.LNil)
				L.Push(lua.LString(err.Error()))
				return 2
			}
			L.Push(lua.LString(id))
			return 1
		},
		"set_row_data": func(L *lua.LState) int {
			raw, err := json.Marshal(s.bridge.ToGoValue(L.CheckTable(2)))
			if err == nil {
				err = s.api.SetRowData(L.CheckString(1), raw)
			}
			if err != nil {
				L.Push(lua.LFalse)
				L.Push(lua.LString(err.Error()))
				return 2
			}
			L.Push(lua.LTrue)
			return 1
		},
		"focus": func(L *lua.LState) int {
			if err := s.api.Focus(L.CheckString(1)); err != nil {
				L.Push(lua.LFalse)
				L.Push(lua.LString(err.Error()))
				return 2
			}
			L.Push(lua.LTrue)
			return 1
		},
		"delete_row": func(L *lua.LState) int {
			if err := s.api.DeleteRow(L.CheckString(1)); err != nil {
				L.Push(lua.LFalse)
				L.Push(lua.LString(err.Error()))
				return 2
			}
			L.Push(lua.LTrue)
			return 1
		},
		"run_action": func(L *lua.LState) int {
			report := s.api.RunAction(L.CheckString(1), L.CheckString(2), s.bridge.ToGoValue(L.Get(3)))
			if report.Err != nil {
				L.Push(lua.LNil)
				L.Push(lua.LString(report.Err.Error()))
				return 2
			}
			L.Push(lua.LNumber(len(report.Executed)))
			return 1
		},
	}
}
