package key

import (
	"strings"
	"time"
	"unicode"
)

// Event represents a single key press.
type Event struct {
	// Key identifies the key pressed.
	Key Key

	// Rune is the character for KeyRune events.
	Rune rune

	// Modifiers contains the active modifier keys.
	Modifiers Modifier

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// NewRuneEvent creates a key event for a character.
func NewRuneEvent(r rune, mods Modifier) Event {
	return Event{Key: KeyRune, Rune: r, Modifiers: mods, Timestamp: time.Now()}
}

// NewSpecialEvent creates a key event for a special key.
func NewSpecialEvent(k Key, mods Modifier) Event {
	return Event{Key: k, Modifiers: mods, Timestamp: time.Now()}
}

// IsRune returns true if this is a character key event.
func (e Event) IsRune() bool {
	return e.Key == KeyRune && e.Rune != 0
}

// IsChar returns true if this is an unmodified printable character.
func (e Event) IsChar() bool {
	return e.IsRune() && unicode.IsPrint(e.Rune) && !e.Modifiers.Has(ModCtrl|ModAlt|ModMeta)
}

// String returns the canonical specification of the event, for example
// "a", "Enter" or "Ctrl+N". Parse(e.String()) matches e.
func (e Event) String() string {
	mods := e.Modifiers
	name := e.Key.String()
	if e.Key == KeyRune {
		switch {
		case e.Rune == ' ':
			name = "Space"
		case mods.Has(ModCtrl | ModAlt | ModMeta):
			name = string(unicode.ToUpper(e.Rune))
		default:
			name = string(e.Rune)
		}
		// Shift is part of the character itself.
		mods &^= ModShift
	}
	if prefix := mods.String(); prefix != "" {
		return prefix + "+" + name
	}
	return name
}

// Matches reports whether e is the key described by o, ignoring the
// timestamp. Letters match case-insensitively under Ctrl, Alt or Meta.
func (e Event) Matches(o Event) bool {
	return e.String() == o.String()
}

// Normalize returns e with its timestamp cleared, for use as a map key.
func (e Event) Normalize() Event {
	e.Timestamp = time.Time{}
	return e
}

func isModifierSpec(s string) bool {
	return strings.Contains(s, "+") && len(s) > 1
}
