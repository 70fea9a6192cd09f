package action

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-logr/logr"
)

// Interceptor is one plugin's link in the action chain. Returning false
// stops further plugins from being consulted; vetoes already registered
// still apply.
type Interceptor struct {
	Plugin string
	Fn     func(cellID, action string, obs Observer) bool
}

// ChainFunc returns the current interception chain in plugin order.
type ChainFunc func() []Interceptor

// Report describes one Execute.
type Report struct {
	CellID string
	Action string

	// Recorded is every call the action made, in order.
	Recorded []Call
	Executed []Call
	Vetoed   []Call
	Failed   []Call

	// Err is set when the action did not run at all.
	Err error
}

// Registry holds per-cell actions and runs them in three phases: record,
// intercept, replay.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]map[string]Func
	factory Factory
	chain   ChainFunc
	log     logr.Logger
}

// NewRegistry creates an empty action registry.
func NewRegistry(log logr.Logger) *Registry {
	return &Registry{
		actions: make(map[string]map[string]Func),
		log:     log.WithName("actions"),
	}
}

// Register sets the actions of a cell, replacing any previous set.
func (r *Registry) Register(cellID string, actions map[string]Func) {
	set := make(map[string]Func, len(actions))
	for name, fn := range actions {
		if fn != nil {
			set[name] = fn
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[cellID] = set
}

// Unregister removes every action of a cell.
func (r *Registry) Unregister(cellID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.actions, cellID)
}

// Has reports whether the cell has an action named name.
func (r *Registry) Has(cellID, name string) bool {
	return r.lookup(cellID, name) != nil
}

// Names returns the sorted action names of a cell.
func (r *Registry) Names(cellID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.actions[cellID]))
	for name := range r.actions[cellID] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetFactory sets the source of the real API used in the replay phase.
func (r *Registry) SetFactory(f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factory = f
}

// SetChain sets the source of the interception chain.
func (r *Registry) SetChain(c ChainFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chain = c
}

// Execute runs the named action of a cell. The action body runs against a
// Recorder; plugins other than origin then register vetoes on the recorded
// calls; finally the calls are replayed in order on the real API, skipping
// vetoed ones. Failures are logged and reported, never returned.
func (r *Registry) Execute(cellID, name string, payload any, origin string) Report {
	report := Report{CellID: cellID, Action: name}
	log := r.log.WithValues("cell", cellID, "action", name)

	fn := r.lookup(cellID, name)
	if fn == nil {
		report.Err = fmt.Errorf("%w: %q on cell %q", ErrUnknownAction, name, cellID)
		log.Info("unknown action")
		return report
	}

	// Record.
	rec := &Recorder{}
	if err := r.record(fn, rec, payload); err != nil {
		log.Error(err, "action body failed; later calls dropped")
	}
	report.Recorded = rec.Calls()

	// Intercept.
	obs := newObserver(report.Recorded)
	r.intercept(cellID, name, origin, obs)

	// Replay.
	r.mu.RLock()
	factory := r.factory
	r.mu.RUnlock()
	if factory == nil {
		report.Err = ErrNoFactory
		log.Error(ErrNoFactory, "cannot replay action")
		return report
	}
	api := factory(cellID, origin)
	if api == nil {
		report.Err = ErrNoFactory
		log.Error(ErrNoFactory, "factory returned no api")
		return report
	}

	for _, call := range report.Recorded {
		if r.vetoed(obs, call) {
			log.V(1).Info("call vetoed", "call", call.String())
			report.Vetoed = append(report.Vetoed, call)
			continue
		}
		if err := r.apply(api, call); err != nil {
			log.Error(err, "api call failed", "call", call.String())
			report.Failed = append(report.Failed, call)
			continue
		}
		report.Executed = append(report.Executed, call)
	}
	return report
}

func (r *Registry) lookup(cellID, name string) Func {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.actions[cellID][name]
}

// record runs the action body. Calls recorded before a failure are kept.
func (r *Registry) record(fn Func, rec *Recorder, payload any) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, v)
		}
	}()
	return fn(rec, payload)
}

func (r *Registry) intercept(cellID, name, origin string, obs Observer) {
	r.mu.RLock()
	chain := r.chain
	r.mu.RUnlock()
	if chain == nil {
		return
	}

	for _, link := range chain() {
		if link.Fn == nil || (origin != "" && link.Plugin == origin) {
			continue
		}
		if !r.consult(link, cellID, name, obs) {
			return
		}
	}
}

// consult runs one interceptor. A panic counts as "continue".
func (r *Registry) consult(link Interceptor, cellID, name string, obs Observer) (next bool) {
	defer func() {
		if v := recover(); v != nil {
			r.log.Error(fmt.Errorf("%w: %v", ErrPanic, v), "plugin action hook failed",
				"plugin", link.Plugin, "cell", cellID, "action", name)
			next = true
		}
	}()
	return link.Fn(cellID, name, obs)
}

// vetoed runs every veto registered for the call's method; any false
// skips the call. A panicking veto does not.
func (r *Registry) vetoed(obs *observer, call Call) bool {
	skip := false
	for _, veto := range obs.vetoes[call.Method()] {
		func() {
			defer func() {
				if v := recover(); v != nil {
					r.log.Error(fmt.Errorf("%w: %v", ErrPanic, v), "veto failed", "call", call.String())
				}
			}()
			if !veto(call) {
				skip = true
			}
		}()
		if skip {
			return true
		}
	}
	return false
}

func (r *Registry) apply(api API, call Call) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, v)
		}
	}()
	return call.apply(api)
}
