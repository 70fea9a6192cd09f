package widget

import (
	"fmt"
	"sync"
	"unicode"

	"github.com/go-logr/logr"
	"github.com/tidwall/gjson"

	"github.com/dshills/gridstorm/internal/action"
	"github.com/dshills/gridstorm/internal/command"
	"github.com/dshills/gridstorm/internal/input/key"
	"github.com/dshills/gridstorm/internal/table"
)

// Action names registered by every Text.
const (
	ActionEdit = "edit"
	ActionSave = "save"
	ActionExit = "exit"
	ActionMove = "move"
)

// Text is a single-line text cell.
type Text struct {
	mu sync.Mutex

	api    *table.CellAPI
	column string
	log    logr.Logger

	value   string
	draft   []rune
	focused bool
	lastErr error
	dead    bool

	onChange func()
}

// Option configures a Text.
type Option func(*Text)

// WithLogger sets the widget logger.
func WithLogger(log logr.Logger) Option {
	return func(t *Text) { t.log = log }
}

// WithOnChange sets a callback run after every visible change, without
// the widget lock held.
func WithOnChange(fn func()) Option {
	return func(t *Text) { t.onChange = fn }
}

// NewText mounts a Text on a registered cell: it registers the cell's
// command handler and actions.
func NewText(api *table.CellAPI, opts ...Option) (*Text, error) {
	c, ok := api.Cell()
	if !ok {
		return nil, fmt.Errorf("%w: %s", table.ErrCellNotFound, api.ID())
	}
	t := &Text{api: api, column: c.Column, log: logr.Discard()}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.WithName("widget").WithValues("cell", api.ID())

	if err := api.RegisterCommands(t.handle); err != nil {
		return nil, err
	}
	if err := api.RegisterActions(map[string]action.Func{
		ActionEdit: editAction,
		ActionSave: saveAction,
		ActionExit: exitAction,
		ActionMove: moveAction,
	}); err != nil {
		return nil, err
	}
	return t, nil
}

func editAction(api action.API, _ any) error {
	if err := api.Focus(); err != nil {
		return err
	}
	return api.TakeKeyboard()
}

func saveAction(api action.API, payload any) error {
	if err := api.Save(payload); err != nil {
		return err
	}
	return api.ReleaseKeyboard()
}

func exitAction(api action.API, _ any) error {
	return api.ReleaseKeyboard()
}

// moveAction expects an action.Direction payload.
func moveAction(api action.API, payload any) error {
	dir, ok := payload.(action.Direction)
	if !ok {
		return fmt.Errorf("move: unexpected payload %T", payload)
	}
	if err := api.ReleaseKeyboard(); err != nil {
		return err
	}
	return api.Navigate(dir)
}

// ID returns the cell id.
func (t *Text) ID() string { return t.api.ID() }

// Column returns the cell's column key.
func (t *Text) Column() string { return t.column }

// Value returns the saved value.
func (t *Text) Value() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

// Display returns the text to draw: the draft while editing, else the
// value.
func (t *Text) Display() string {
	editing := t.api.HasKeyboard()
	t.mu.Lock()
	defer t.mu.Unlock()
	if editing && t.draft != nil {
		return string(t.draft)
	}
	return t.value
}

// Focused reports whether the cell holds focus.
func (t *Text) Focused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.focused
}

// Editing reports whether the widget owns the keyboard.
func (t *Text) Editing() bool {
	return t.api.HasKeyboard()
}

// Err returns the last error reported to the cell.
func (t *Text) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// Destroyed reports whether the cell has been destroyed.
func (t *Text) Destroyed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dead
}

// Load sets the value from a row's JSON payload. Missing columns read as
// empty.
func (t *Text) Load(data []byte) {
	t.setValue(gjson.GetBytes(data, gjson.Escape(t.column)).String())
}

// Edit runs the edit action.
func (t *Text) Edit() action.Report {
	return t.api.RunAction(ActionEdit, nil)
}

func (t *Text) setValue(v string) {
	t.mu.Lock()
	t.value = v
	t.draft = nil
	t.mu.Unlock()
	t.changed()
}

func (t *Text) handle(cmd command.CellCommand) error {
	switch cmd.Name {
	case command.CellFocus:
		t.mu.Lock()
		t.focused = true
		t.mu.Unlock()
	case command.CellBlur:
		t.mu.Lock()
		t.focused = false
		t.draft = nil
		t.mu.Unlock()
	case command.CellEdit:
		t.Edit()
	case command.CellSave, command.CellUpdate:
		t.setValue(valueString(cmd.Payload))
		return nil
	case command.CellKey:
		ev, ok := cmd.Payload.(key.Event)
		if !ok {
			return fmt.Errorf("key command: unexpected payload %T", cmd.Payload)
		}
		t.handleKey(ev)
	case command.CellError:
		if p, ok := cmd.Payload.(command.ErrorPayload); ok {
			t.mu.Lock()
			t.lastErr = p.Err
			t.mu.Unlock()
			t.log.V(1).Info("cell error", "error", p.Err.Error())
		}
	case command.CellDestroy:
		t.mu.Lock()
		t.dead = true
		t.mu.Unlock()
		return nil
	}
	t.changed()
	return nil
}

// handleKey edits the draft. Keys arriving while the widget does not own
// the keyboard are ignored.
func (t *Text) handleKey(ev key.Event) {
	if !t.api.HasKeyboard() {
		return
	}

	t.mu.Lock()
	if t.draft == nil {
		t.draft = []rune(t.value)
	}
	switch {
	case ev.Key == key.KeyEnter:
		v := string(t.draft)
		t.draft = nil
		t.mu.Unlock()
		t.run(ActionSave, v)
		return
	case ev.Key == key.KeyEscape:
		t.draft = nil
		t.mu.Unlock()
		t.run(ActionExit, nil)
		return
	case ev.Key == key.KeyTab:
		v := string(t.draft)
		t.draft = nil
		t.mu.Unlock()
		t.run(ActionSave, v)
		t.run(ActionMove, action.Right)
		return
	case ev.Key == key.KeyBackspace:
		if n := len(t.draft); n > 0 {
			t.draft = t.draft[:n-1]
		}
	case ev.IsChar() && unicode.IsPrint(ev.Rune):
		t.draft = append(t.draft, ev.Rune)
	}
	t.mu.Unlock()
}

// run executes one of the cell's actions and logs what went wrong.
func (t *Text) run(name string, payload any) {
	report := t.api.RunAction(name, payload)
	if report.Err != nil {
		t.log.Error(report.Err, "action failed", "action", name)
		return
	}
	for _, call := range report.Failed {
		t.log.Info("action call failed", "action", name, "call", call.String())
	}
}

func (t *Text) changed() {
	if t.onChange != nil {
		t.onChange()
	}
}

func valueString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
