package table

import (
	"fmt"
	"slices"

	"github.com/dshills/gridstorm/internal/plugin"
)

// RegisterButton adds a toolbar button. Ids are unique.
func (t *Table) RegisterButton(b plugin.Button) error {
	if b.ID == "" || b.Label == "" {
		return fmt.Errorf("%w: id and label are required", ErrInvalidButton)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.buttonIndexLocked(b.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrButtonExists, b.ID)
	}
	t.buttons = append(t.buttons, b)
	return nil
}

// RemoveButton removes a toolbar button. Unknown ids are ignored.
func (t *Table) RemoveButton(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i := t.buttonIndexLocked(id); i >= 0 {
		t.buttons = slices.Delete(t.buttons, i, i+1)
	}
}

// Buttons returns the toolbar buttons in registration order.
func (t *Table) Buttons() []plugin.Button {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.buttons)
}

// Click runs a button's callback. A panicking callback is logged.
func (t *Table) Click(id string) error {
	t.mu.RLock()
	i := t.buttonIndexLocked(id)
	var b plugin.Button
	if i >= 0 {
		b = t.buttons[i]
	}
	t.mu.RUnlock()

	if i < 0 {
		return fmt.Errorf("%w: %s", ErrButtonNotFound, id)
	}
	if b.OnClick == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			t.log.Error(fmt.Errorf("button panicked: %v", r), "button click failed", "button", id, "plugin", b.Plugin)
		}
	}()
	b.OnClick()
	return nil
}

func (t *Table) buttonIndexLocked(id string) int {
	return slices.IndexFunc(t.buttons, func(b plugin.Button) bool { return b.ID == id })
}
