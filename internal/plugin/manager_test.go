package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/gridstorm/internal/action"
	"github.com/dshills/gridstorm/internal/command"
)

type testPlugin struct {
	Base
	log        *[]string
	initErr    error
	destroyErr error
	block      bool
}

func (p *testPlugin) OnInit(ctx context.Context, env InitContext) error {
	*p.log = append(*p.log, "init:"+p.Name())
	return p.initErr
}

func (p *testPlugin) OnDestroy(ctx context.Context) error {
	*p.log = append(*p.log, "destroy:"+p.Name())
	return p.destroyErr
}

func (p *testPlugin) OnBeforeCellCommand(cmd command.CellCommand) bool {
	*p.log = append(*p.log, "cell:"+p.Name())
	return !p.block
}

func (p *testPlugin) OnBeforeAction(cellID, name string, obs action.Observer) bool {
	*p.log = append(*p.log, "action:"+p.Name())
	return true
}

func newTestPlugin(log *[]string, name string, last bool, deps ...string) *testPlugin {
	return &testPlugin{Base: Base{PluginName: name, PluginVersion: "1.0.0", Deps: deps, Last: last}, log: log}
}

func names(ps []Plugin) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name()
	}
	return out
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	var log []string
	m := NewManager(logr.Discard())

	require.NoError(t, m.Register(newTestPlugin(&log, "a", false)))
	err := m.Register(newTestPlugin(&log, "a", false))
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	assert.ErrorIs(t, m.Register(newTestPlugin(&log, "", false)), ErrInvalidPlugin)
	assert.Equal(t, 1, m.Count())

	state, ok := m.State("a")
	require.True(t, ok)
	assert.Equal(t, StateRegistered, state)
}

func TestOrderDependenciesFirst(t *testing.T) {
	var log []string
	m := NewManager(logr.Discard())
	require.NoError(t, m.Register(newTestPlugin(&log, "x", false, "y")))
	require.NoError(t, m.Register(newTestPlugin(&log, "y", false)))
	require.NoError(t, m.Register(newTestPlugin(&log, "z", false, "x", "y")))

	ordered, err := m.Order()
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "x", "z"}, names(ordered))
}

func TestOrderProcessLastClosure(t *testing.T) {
	var log []string
	m := NewManager(logr.Discard())
	require.NoError(t, m.Register(newTestPlugin(&log, "y", false, "x")))
	require.NoError(t, m.Register(newTestPlugin(&log, "x", true)))
	require.NoError(t, m.Register(newTestPlugin(&log, "w", false, "y")))
	require.NoError(t, m.Register(newTestPlugin(&log, "n", false)))

	ordered, err := m.Order()
	require.NoError(t, err)
	got := names(ordered)

	assert.Equal(t, "n", got[0], "normal phase comes first")
	assert.Less(t, indexOf(got, "x"), indexOf(got, "y"))
	assert.Less(t, indexOf(got, "y"), indexOf(got, "w"))
	assert.Equal(t, []string{"n", "x", "y", "w"}, got)
}

func TestOrderConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		plugins func(log *[]string) []Plugin
		want    error
	}{
		{
			name: "unknown dependency",
			plugins: func(log *[]string) []Plugin {
				return []Plugin{newTestPlugin(log, "a", false, "ghost")}
			},
			want: ErrPhaseViolation,
		},
		{
			name: "late plugin depends on normal plugin",
			plugins: func(log *[]string) []Plugin {
				return []Plugin{
					newTestPlugin(log, "base", false),
					newTestPlugin(log, "tail", true, "base"),
				}
			},
			want: ErrPhaseViolation,
		},
		{
			name: "cycle",
			plugins: func(log *[]string) []Plugin {
				return []Plugin{
					newTestPlugin(log, "a", false, "b"),
					newTestPlugin(log, "b", false, "c"),
					newTestPlugin(log, "c", false, "a"),
				}
			},
			want: ErrCircularDependency,
		},
		{
			name: "self cycle in late phase",
			plugins: func(log *[]string) []Plugin {
				return []Plugin{newTestPlugin(log, "a", true, "a")}
			},
			want: ErrCircularDependency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var log []string
			m := NewManager(logr.Discard())
			for _, p := range tt.plugins(&log) {
				require.NoError(t, m.Register(p))
			}

			_, err := m.Order()
			require.ErrorIs(t, err, tt.want)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.NotEmpty(t, cfgErr.Path)

			assert.ErrorIs(t, m.InitializePlugins(context.Background(), nil), tt.want)
			assert.Empty(t, log)
		})
	}
}

func TestInitializeOnceInOrder(t *testing.T) {
	var log []string
	m := NewManager(logr.Discard())
	require.NoError(t, m.Register(newTestPlugin(&log, "b", false, "a")))
	require.NoError(t, m.Register(newTestPlugin(&log, "a", false)))

	var envs []string
	env := func(p Plugin) InitContext {
		envs = append(envs, p.Name())
		return InitContext{SpaceID: "space-" + p.Name()}
	}

	require.NoError(t, m.InitializePlugins(context.Background(), env))
	require.NoError(t, m.InitializePlugins(context.Background(), env))

	assert.Equal(t, []string{"init:a", "init:b"}, log)
	assert.Equal(t, []string{"a", "b"}, envs)
	assert.True(t, m.Initialized())
}

func TestInitializeFailureIsolated(t *testing.T) {
	var log []string
	m := NewManager(logr.Discard())
	bad := newTestPlugin(&log, "bad", false)
	bad.initErr = errors.New("no")
	require.NoError(t, m.Register(bad))
	require.NoError(t, m.Register(newTestPlugin(&log, "good", false)))

	var events []ManagerEvent
	m.Subscribe(func(e ManagerEvent) { events = append(events, e) })

	err := m.InitializePlugins(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, log, "init:good")

	state, _ := m.State("bad")
	assert.Equal(t, StateError, state)
	require.NotEmpty(t, events)
	assert.Equal(t, EventPluginError, events[0].Type)

	// A failed plugin no longer intercepts.
	log = nil
	for _, link := range m.CellChain()() {
		link.Fn(command.CellCommand{Name: command.CellFocus})
	}
	assert.Equal(t, []string{"cell:good"}, log)
}

func TestDestroyReverseOrder(t *testing.T) {
	var log []string
	m := NewManager(logr.Discard())
	require.NoError(t, m.Register(newTestPlugin(&log, "a", false)))
	b := newTestPlugin(&log, "b", false, "a")
	b.destroyErr = errors.New("stuck")
	require.NoError(t, m.Register(b))
	require.NoError(t, m.Register(newTestPlugin(&log, "c", true)))

	require.NoError(t, m.InitializePlugins(context.Background(), nil))
	log = nil

	err := m.Destroy(context.Background())
	assert.Error(t, err)
	assert.Equal(t, []string{"destroy:c", "destroy:b", "destroy:a"}, log)

	assert.NoError(t, m.Destroy(context.Background()))
	assert.Len(t, log, 3)
	assert.Empty(t, m.CellChain()())
}

func TestChainsFollowOrder(t *testing.T) {
	var log []string
	m := NewManager(logr.Discard())
	require.NoError(t, m.Register(newTestPlugin(&log, "late", true)))
	require.NoError(t, m.Register(newTestPlugin(&log, "b", false, "a")))
	require.NoError(t, m.Register(newTestPlugin(&log, "a", false)))

	var plugins []string
	for _, link := range m.CellChain()() {
		plugins = append(plugins, link.Plugin)
	}
	assert.Equal(t, []string{"a", "b", "late"}, plugins)

	plugins = nil
	for _, link := range m.ActionChain()() {
		plugins = append(plugins, link.Plugin)
	}
	assert.Equal(t, []string{"a", "b", "late"}, plugins)

	assert.Empty(t, m.RowChain()(), "no plugin implements the row hook")
}

func TestHookPanicBecomesError(t *testing.T) {
	m := NewManager(logr.Discard())
	require.NoError(t, m.Register(panicky{Base{PluginName: "p"}}))

	err := m.InitializePlugins(context.Background(), nil)
	assert.ErrorIs(t, err, ErrHookPanic)
}

type panicky struct{ Base }

func (panicky) OnInit(context.Context, InitContext) error { panic("boom") }

func TestSubscribeUnsubscribe(t *testing.T) {
	var log []string
	m := NewManager(logr.Discard())

	var count int
	unsubscribe := m.Subscribe(func(ManagerEvent) { count++ })
	m.Subscribe(func(ManagerEvent) { panic("ignored") })

	require.NoError(t, m.Register(newTestPlugin(&log, "a", false)))
	assert.Equal(t, 1, count)

	unsubscribe()
	require.NoError(t, m.Register(newTestPlugin(&log, "b", false)))
	assert.Equal(t, 1, count)
}
