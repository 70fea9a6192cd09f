package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"

	"github.com/dshills/gridstorm/internal/action"
	"github.com/dshills/gridstorm/internal/command"
)

// Manager holds the plugins of one table, orders them and drives their
// lifecycle.
type Manager struct {
	mu sync.RWMutex

	// Registered plugins by name
	plugins map[string]Plugin
	states  map[string]State

	// Registration order (for deterministic iteration)
	loadOrder []string

	// Resolved order; nil until resolved or after a registration
	ordered []Plugin

	initialized bool
	destroyed   bool

	// Event handlers (protected by mu)
	eventHandlers []EventHandler

	log logr.Logger
}

// EventHandler handles plugin manager events.
// Handlers must be non-blocking and should not call back into the Manager
// to avoid deadlocks. Panics in handlers are recovered.
type EventHandler func(event ManagerEvent)

// ManagerEvent represents a plugin manager event.
type ManagerEvent struct {
	Type   ManagerEventType
	Plugin string
	Error  error
}

// ManagerEventType is the type of manager event.
type ManagerEventType int

const (
	// EventPluginRegistered is emitted when a plugin is registered.
	EventPluginRegistered ManagerEventType = iota
	// EventPluginInitialized is emitted after a plugin's OnInit.
	EventPluginInitialized
	// EventPluginDestroyed is emitted after a plugin's OnDestroy.
	EventPluginDestroyed
	// EventPluginError is emitted when a plugin hook fails.
	EventPluginError
)

// String returns a string representation of the event type.
func (t ManagerEventType) String() string {
	switch t {
	case EventPluginRegistered:
		return "registered"
	case EventPluginInitialized:
		return "initialized"
	case EventPluginDestroyed:
		return "destroyed"
	case EventPluginError:
		return "error"
	default:
		return "unknown"
	}
}

// NewManager creates a new plugin manager.
func NewManager(log logr.Logger) *Manager {
	return &Manager{
		plugins:   make(map[string]Plugin),
		states:    make(map[string]State),
		loadOrder: make([]string, 0),
		log:       log.WithName("plugins"),
	}
}

// Register adds a plugin. Names must be unique and non-empty.
func (m *Manager) Register(p Plugin) error {
	if p == nil || p.Name() == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidPlugin)
	}
	name := p.Name()

	m.mu.Lock()
	if _, exists := m.plugins[name]; exists {
		m.mu.Unlock()
		return fmt.Errorf("plugin %q: %w", name, ErrAlreadyRegistered)
	}
	m.plugins[name] = p
	m.states[name] = StateRegistered
	m.loadOrder = append(m.loadOrder, name)
	m.ordered = nil
	m.mu.Unlock()

	m.log.V(1).Info("plugin registered", "plugin", name, "version", p.Version())
	m.emitEvent(ManagerEvent{Type: EventPluginRegistered, Plugin: name})
	return nil
}

// Get returns a plugin by name.
func (m *Manager) Get(name string) (Plugin, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, exists := m.plugins[name]
	return p, exists
}

// List returns all plugins in registration order.
func (m *Manager) List() []Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Plugin, 0, len(m.loadOrder))
	for _, name := range m.loadOrder {
		result = append(result, m.plugins[name])
	}
	return result
}

// Count returns the number of registered plugins.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.plugins)
}

// State returns the lifecycle state of a plugin.
func (m *Manager) State(name string) (State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[name]
	return s, ok
}

// Order resolves and caches the plugin order. It fails with a *ConfigError
// wrapping ErrPhaseViolation or ErrCircularDependency.
func (m *Manager) Order() ([]Plugin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ordered == nil {
		plugins := make([]Plugin, 0, len(m.loadOrder))
		for _, name := range m.loadOrder {
			plugins = append(plugins, m.plugins[name])
		}
		ordered, err := resolveOrder(plugins)
		if err != nil {
			return nil, err
		}
		m.ordered = ordered
	}

	out := make([]Plugin, len(m.ordered))
	copy(out, m.ordered)
	return out, nil
}

// PluginsInOrder returns the resolved order, or registration order when
// the plugin set cannot be ordered.
func (m *Manager) PluginsInOrder() []Plugin {
	ordered, err := m.Order()
	if err != nil {
		return m.List()
	}
	return ordered
}

// Initialized reports whether InitializePlugins has run.
func (m *Manager) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// InitializePlugins calls OnInit on every plugin in order. It runs at most
// once per manager; later calls return nil. env builds each plugin's
// InitContext. Hook failures are joined into the returned error and the
// plugin is left in StateError; remaining plugins still initialize.
func (m *Manager) InitializePlugins(ctx context.Context, env func(Plugin) InitContext) error {
	ordered, err := m.Order()
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.initialized || m.destroyed {
		m.mu.Unlock()
		return nil
	}
	m.initialized = true
	m.mu.Unlock()

	var initErrors []error
	for _, p := range ordered {
		name := p.Name()
		init, ok := p.(Initializer)
		if !ok {
			m.setState(name, StateInitialized)
			continue
		}

		var ictx InitContext
		if env != nil {
			ictx = env(p)
		}
		if err := callHook(func() error { return init.OnInit(ctx, ictx) }); err != nil {
			m.setState(name, StateError)
			m.log.Error(err, "plugin init failed", "plugin", name)
			m.emitEvent(ManagerEvent{Type: EventPluginError, Plugin: name, Error: err})
			initErrors = append(initErrors, fmt.Errorf("%s: %w", name, err))
			continue
		}
		m.setState(name, StateInitialized)
		m.emitEvent(ManagerEvent{Type: EventPluginInitialized, Plugin: name})
	}

	if len(initErrors) > 0 {
		return fmt.Errorf("failed to initialize %d plugins: %w", len(initErrors), errors.Join(initErrors...))
	}
	return nil
}

// Destroy calls OnDestroy on every plugin in reverse order. Only the first
// call has any effect.
func (m *Manager) Destroy(ctx context.Context) error {
	ordered := m.PluginsInOrder()

	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return nil
	}
	m.destroyed = true
	m.mu.Unlock()

	var destroyErrors []error
	for i := len(ordered) - 1; i >= 0; i-- {
		p := ordered[i]
		name := p.Name()
		if d, ok := p.(Destroyer); ok {
			if err := callHook(func() error { return d.OnDestroy(ctx) }); err != nil {
				m.log.Error(err, "plugin destroy failed", "plugin", name)
				m.emitEvent(ManagerEvent{Type: EventPluginError, Plugin: name, Error: err})
				destroyErrors = append(destroyErrors, fmt.Errorf("%s: %w", name, err))
			}
		}
		m.setState(name, StateDestroyed)
		m.emitEvent(ManagerEvent{Type: EventPluginDestroyed, Plugin: name})
	}

	if len(destroyErrors) > 0 {
		return fmt.Errorf("failed to destroy %d plugins: %w", len(destroyErrors), errors.Join(destroyErrors...))
	}
	return nil
}

// Subscribe adds an event handler.
// Returns an unsubscribe function to remove the handler.
func (m *Manager) Subscribe(handler EventHandler) func() {
	if handler == nil {
		return func() {}
	}

	m.mu.Lock()
	m.eventHandlers = append(m.eventHandlers, handler)
	index := len(m.eventHandlers) - 1
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		// Set to nil instead of removing to avoid index shifting issues
		if index < len(m.eventHandlers) {
			m.eventHandlers[index] = nil
		}
	}
}

// CellChain returns the cell command interception chain source.
func (m *Manager) CellChain() command.ChainFunc[command.CellName] {
	return func() []command.Interceptor[command.CellName] {
		var links []command.Interceptor[command.CellName]
		for _, p := range m.active() {
			if h, ok := p.(CellInterceptor); ok {
				links = append(links, command.Interceptor[command.CellName]{Plugin: p.Name(), Fn: h.OnBeforeCellCommand})
			}
		}
		return links
	}
}

// RowChain returns the row command interception chain source.
func (m *Manager) RowChain() command.ChainFunc[command.RowName] {
	return func() []command.Interceptor[command.RowName] {
		var links []command.Interceptor[command.RowName]
		for _, p := range m.active() {
			if h, ok := p.(RowInterceptor); ok {
				links = append(links, command.Interceptor[command.RowName]{Plugin: p.Name(), Fn: h.OnBeforeRowCommand})
			}
		}
		return links
	}
}

// SpaceChain returns the space command interception chain source.
func (m *Manager) SpaceChain() command.ChainFunc[command.SpaceName] {
	return func() []command.Interceptor[command.SpaceName] {
		var links []command.Interceptor[command.SpaceName]
		for _, p := range m.active() {
			if h, ok := p.(SpaceInterceptor); ok {
				links = append(links, command.Interceptor[command.SpaceName]{Plugin: p.Name(), Fn: h.OnBeforeSpaceCommand})
			}
		}
		return links
	}
}

// ActionChain returns the action interception chain source.
func (m *Manager) ActionChain() action.ChainFunc {
	return func() []action.Interceptor {
		var links []action.Interceptor
		for _, p := range m.active() {
			if h, ok := p.(ActionInterceptor); ok {
				links = append(links, action.Interceptor{Plugin: p.Name(), Fn: h.OnBeforeAction})
			}
		}
		return links
	}
}

// NotifySaved calls every active SaveObserver except origin, in plugin
// order. A panicking observer is logged and skipped.
func (m *Manager) NotifySaved(cellID string, value any, origin string) {
	for _, p := range m.active() {
		obs, ok := p.(SaveObserver)
		if !ok || p.Name() == origin {
			continue
		}
		err := callHook(func() error {
			obs.OnCellSaved(cellID, value)
			return nil
		})
		if err != nil {
			m.log.Error(err, "save observer failed", "plugin", p.Name(), "cell", cellID)
		}
	}
}

// active returns the ordered plugins that take part in dispatch.
func (m *Manager) active() []Plugin {
	ordered := m.PluginsInOrder()

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := ordered[:0]
	for _, p := range ordered {
		if m.states[p.Name()].IsUsable() {
			out = append(out, p)
		}
	}
	return out
}

func (m *Manager) setState(name string, s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[name] = s
}

// emitEvent sends an event to all handlers.
// Handlers are called outside any locks and panics are recovered.
func (m *Manager) emitEvent(event ManagerEvent) {
	m.mu.RLock()
	handlers := make([]EventHandler, len(m.eventHandlers))
	copy(handlers, m.eventHandlers)
	m.mu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		func() {
			defer func() {
				if v := recover(); v != nil {
					m.log.Error(fmt.Errorf("%w: %v", ErrHookPanic, v), "plugin event handler failed", "event", event.Type.String())
				}
			}()
			handler(event)
		}()
	}
}

// callHook runs a lifecycle hook, converting a panic into an error.
func callHook(fn func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("%w: %v", ErrHookPanic, v)
		}
	}()
	return fn()
}
