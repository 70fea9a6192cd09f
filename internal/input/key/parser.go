package key

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Parse errors
var (
	ErrEmptySpec   = errors.New("empty key specification")
	ErrInvalidSpec = errors.New("invalid key specification")
)

// Parse parses a key specification into an Event with a zero timestamp.
//
// Supported formats:
//   - Single character: "a", "A", "1", "@"
//   - Special keys: "Enter", "Escape", "Tab", "Backspace", "Space"
//   - With modifiers: "Ctrl+S", "Alt+F4", "Shift+Tab"
func Parse(spec string) (Event, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Event{}, ErrEmptySpec
	}
	if !isModifierSpec(spec) {
		return parseKey(spec, ModNone)
	}

	// "Ctrl++" names the plus key.
	keyPart := spec[strings.LastIndex(spec, "+")+1:]
	modPart := spec[:len(spec)-len(keyPart)-1]
	if keyPart == "" && strings.HasSuffix(modPart, "+") {
		keyPart = "+"
		modPart = strings.TrimSuffix(modPart, "+")
	}

	var mods Modifier
	for _, p := range strings.Split(modPart, "+") {
		mod := ModifierFromName(p)
		if mod == ModNone {
			return Event{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalidSpec, p)
		}
		mods = mods.With(mod)
	}
	return parseKey(keyPart, mods)
}

// MustParse is like Parse but panics on error.
func MustParse(spec string) Event {
	e, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return e
}

func parseKey(name string, mods Modifier) (Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Event{}, ErrInvalidSpec
	}
	if k := KeyFromName(name); k != KeyNone {
		if k == KeySpace {
			return Event{Key: KeyRune, Rune: ' ', Modifiers: mods}, nil
		}
		if k == KeyTab && mods.Has(ModShift) {
			return Event{Key: KeyBacktab, Modifiers: mods &^ ModShift}, nil
		}
		return Event{Key: k, Modifiers: mods}, nil
	}

	runes := []rune(name)
	if len(runes) != 1 {
		return Event{}, fmt.Errorf("%w: %q", ErrInvalidSpec, name)
	}
	r := runes[0]
	if mods.Has(ModCtrl | ModAlt | ModMeta) {
		r = unicode.ToLower(r)
	} else if unicode.IsUpper(r) {
		mods = mods.With(ModShift)
	}
	return Event{Key: KeyRune, Rune: r, Modifiers: mods}, nil
}
