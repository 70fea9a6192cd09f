package keymap

import (
	"errors"
	"sort"
	"sync"

	"github.com/dshills/gridstorm/internal/input/key"
)

// Keymap holds key bindings. It is safe for concurrent use.
type Keymap struct {
	mu       sync.RWMutex
	name     string
	bindings map[string]Binding
}

// New creates an empty keymap.
func New(name string) *Keymap {
	return &Keymap{name: name, bindings: make(map[string]Binding)}
}

// FromMap builds a keymap from key specifications to targets. Blank
// targets are skipped. Every invalid entry is reported.
func FromMap(name string, m map[string]string) (*Keymap, error) {
	bindings, err := parseMap(m)
	if err != nil {
		return nil, err
	}
	return &Keymap{name: name, bindings: bindings}, nil
}

// Name returns the keymap name.
func (k *Keymap) Name() string {
	return k.name
}

// Bind adds or replaces the binding of one key.
func (k *Keymap) Bind(spec, target string) error {
	b, err := NewBinding(spec, target)
	if err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.bindings[b.Keys] = b
	return nil
}

// Unbind removes the binding of a key, if any.
func (k *Keymap) Unbind(spec string) error {
	ev, err := key.Parse(spec)
	if err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.bindings, ev.String())
	return nil
}

// Replace swaps in the bindings of m. On error the keymap is unchanged.
func (k *Keymap) Replace(m map[string]string) error {
	bindings, err := parseMap(m)
	if err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.bindings = bindings
	return nil
}

// Lookup returns the binding of a key event.
func (k *Keymap) Lookup(ev key.Event) (Binding, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	b, ok := k.bindings[ev.String()]
	return b, ok
}

// Bindings returns every binding sorted by key.
func (k *Keymap) Bindings() []Binding {
	k.mu.RLock()
	defer k.mu.RUnlock()

	out := make([]Binding, 0, len(k.bindings))
	for _, b := range k.bindings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Keys < out[j].Keys })
	return out
}

// Len returns the number of bindings.
func (k *Keymap) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.bindings)
}

func parseMap(m map[string]string) (map[string]Binding, error) {
	bindings := make(map[string]Binding, len(m))
	var errs []error
	for spec, target := range m {
		if target == "" {
			continue
		}
		b, err := NewBinding(spec, target)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		bindings[b.Keys] = b
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return bindings, nil
}
