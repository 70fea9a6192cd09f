package keymap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/gridstorm/internal/action"
	"github.com/dshills/gridstorm/internal/input/key"
)

// ErrInvalidTarget is returned for a binding target that cannot be parsed.
var ErrInvalidTarget = errors.New("invalid binding target")

// Kind is what a binding does.
type Kind string

// Binding kinds.
const (
	KindNavigate Kind = "navigate"
	KindAction   Kind = "action"
	KindInsert   Kind = "insert"
	KindDelete   Kind = "delete"
)

// Target is a parsed binding target.
type Target struct {
	Kind      Kind
	Direction action.Direction
	Position  action.Position
	Action    string
}

// ParseTarget parses a target such as "navigate:down" or "action:edit".
func ParseTarget(s string) (Target, error) {
	kind, arg, _ := strings.Cut(strings.TrimSpace(s), ":")
	t := Target{Kind: Kind(kind)}

	switch t.Kind {
	case KindNavigate:
		dir, ok := action.ParseDirection(arg)
		if !ok {
			return Target{}, fmt.Errorf("%w: %q", ErrInvalidTarget, s)
		}
		t.Direction = dir
	case KindAction:
		if arg == "" {
			return Target{}, fmt.Errorf("%w: %q: missing action name", ErrInvalidTarget, s)
		}
		t.Action = arg
	case KindInsert:
		switch arg {
		case "top":
			t.Position = action.Top
		case "bottom":
			t.Position = action.Bottom
		default:
			return Target{}, fmt.Errorf("%w: %q", ErrInvalidTarget, s)
		}
	case KindDelete:
		if arg != "" {
			return Target{}, fmt.Errorf("%w: %q", ErrInvalidTarget, s)
		}
	default:
		return Target{}, fmt.Errorf("%w: %q", ErrInvalidTarget, s)
	}
	return t, nil
}

// String returns the target in the form ParseTarget accepts.
func (t Target) String() string {
	switch t.Kind {
	case KindNavigate:
		return string(t.Kind) + ":" + t.Direction.String()
	case KindAction:
		return string(t.Kind) + ":" + t.Action
	case KindInsert:
		return string(t.Kind) + ":" + t.Position.String()
	default:
		return string(t.Kind)
	}
}

// Binding maps one key to a target.
type Binding struct {
	// Keys is the canonical key specification, e.g. "Ctrl+N".
	Keys   string
	Event  key.Event
	Target Target
}

// NewBinding parses a key specification and a target.
func NewBinding(spec, target string) (Binding, error) {
	ev, err := key.Parse(spec)
	if err != nil {
		return Binding{}, fmt.Errorf("key %q: %w", spec, err)
	}
	t, err := ParseTarget(target)
	if err != nil {
		return Binding{}, fmt.Errorf("key %q: %w", spec, err)
	}
	return Binding{Keys: ev.String(), Event: ev, Target: t}, nil
}
