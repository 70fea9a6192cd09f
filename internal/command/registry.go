package command

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// Config configures a Registry.
type Config struct {
	// Logger receives chain and handler failures.
	Logger logr.Logger

	// EnableMetrics enables dispatch counters.
	EnableMetrics bool
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Logger:        logr.Discard(),
		EnableMetrics: true,
	}
}

// WithLogger returns a copy of the config with the logger set.
func (c Config) WithLogger(log logr.Logger) Config {
	c.Logger = log
	return c
}

// Registry delivers commands to one handler per target id after running
// them through the plugin interception chain.
type Registry[N Name] struct {
	mu       sync.RWMutex
	kind     string
	handlers map[string]Handler[N]
	chain    ChainFunc[N]

	errorName N
	log       logr.Logger
	metrics   *Metrics
}

// Registry variants.
type (
	CellRegistry  = Registry[CellName]
	RowRegistry   = Registry[RowName]
	SpaceRegistry = Registry[SpaceName]
)

// NewRegistry creates a registry. errorName is the command name used for
// synthetic error commands.
func NewRegistry[N Name](kind string, errorName N, config Config) *Registry[N] {
	r := &Registry[N]{
		kind:      kind,
		handlers:  make(map[string]Handler[N]),
		errorName: errorName,
		log:       config.Logger.WithName(kind + "-commands"),
	}
	if config.EnableMetrics {
		r.metrics = NewMetrics()
	}
	return r
}

// NewCellRegistry creates a registry for cell commands.
func NewCellRegistry(config Config) *CellRegistry {
	return NewRegistry("cell", CellError, config)
}

// NewRowRegistry creates a registry for row commands.
func NewRowRegistry(config Config) *RowRegistry {
	return NewRegistry("row", RowError, config)
}

// NewSpaceRegistry creates a registry for space commands.
func NewSpaceRegistry(config Config) *SpaceRegistry {
	return NewRegistry("space", SpaceError, config)
}

// SetChain sets the source of the interception chain.
func (r *Registry[N]) SetChain(chain ChainFunc[N]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chain = chain
}

// Register sets the handler for targetID. The last registration wins.
func (r *Registry[N]) Register(targetID string, h Handler[N]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[targetID] = h
}

// Unregister removes the handler for targetID.
func (r *Registry[N]) Unregister(targetID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, targetID)
}

// Has reports whether a handler is registered for targetID.
func (r *Registry[N]) Has(targetID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[targetID]
	return ok
}

// Len returns the number of registered handlers.
func (r *Registry[N]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Metrics returns the dispatch counters (nil if disabled).
func (r *Registry[N]) Metrics() *Metrics {
	return r.metrics
}

// Dispatch runs cmd through the interception chain and delivers it to the
// target's handler. It never panics; failures are reported in the Result
// and logged.
func (r *Registry[N]) Dispatch(cmd Command[N]) Result {
	if cmd.Timestamp.IsZero() {
		cmd.Timestamp = time.Now()
	}

	result := r.dispatch(cmd)
	if r.metrics != nil {
		r.metrics.Record(result.Status)
	}
	r.log.V(1).Info("dispatched", "command", string(cmd.Name), "target", cmd.TargetID, "origin", cmd.Origin, "status", result.Status.String())
	return result
}

func (r *Registry[N]) dispatch(cmd Command[N]) Result {
	if blocker, blocked := r.runChain(cmd); blocked {
		return Result{Status: StatusBlocked, BlockedBy: blocker}
	}

	if cmd.TargetID == "" {
		return Result{Status: StatusNoTarget}
	}

	h := r.handler(cmd.TargetID)
	if h == nil {
		return Result{Status: StatusNoHandler}
	}

	if err := r.invoke(h, cmd); err != nil {
		r.log.Error(err, "command handler failed", "command", string(cmd.Name), "target", cmd.TargetID)
		r.deliverError(cmd, err)
		return Result{Status: StatusFailed, Err: err}
	}
	return Result{Status: StatusDelivered}
}

// runChain consults each interceptor in plugin order, skipping the
// command's origin. It returns the blocking plugin, if any.
func (r *Registry[N]) runChain(cmd Command[N]) (string, bool) {
	r.mu.RLock()
	chain := r.chain
	r.mu.RUnlock()
	if chain == nil {
		return "", false
	}

	for _, link := range chain() {
		if link.Fn == nil || (cmd.Origin != "" && link.Plugin == cmd.Origin) {
			continue
		}
		if !r.intercept(link, cmd) {
			return link.Plugin, true
		}
	}
	return "", false
}

// intercept runs one interceptor. A panicking interceptor is logged and
// treated as a pass.
func (r *Registry[N]) intercept(link Interceptor[N], cmd Command[N]) (pass bool) {
	defer func() {
		if v := recover(); v != nil {
			r.log.Error(fmt.Errorf("%w: %v", ErrInterceptorPanic, v), "plugin interceptor failed",
				"plugin", link.Plugin, "command", string(cmd.Name), "target", cmd.TargetID)
			if r.metrics != nil {
				r.metrics.RecordInterceptorPanic()
			}
			pass = true
		}
	}()
	return link.Fn(cmd)
}

func (r *Registry[N]) handler(targetID string) Handler[N] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[targetID]
}

// invoke calls h, converting a panic into an error.
func (r *Registry[N]) invoke(h Handler[N], cmd Command[N]) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, v)
		}
	}()
	return h(cmd)
}

// deliverError sends a synthetic error command to the failed command's
// target, bypassing the chain. Failures here are only logged.
func (r *Registry[N]) deliverError(failed Command[N], cause error) {
	h := r.handler(failed.TargetID)
	if h == nil {
		return
	}
	errCmd := Command[N]{
		Name:      r.errorName,
		TargetID:  failed.TargetID,
		Payload:   ErrorPayload{Err: cause, Failed: failed},
		Timestamp: time.Now(),
	}
	if err := r.invoke(h, errCmd); err != nil {
		r.log.Error(err, "error command not delivered", "target", failed.TargetID)
	}
}
