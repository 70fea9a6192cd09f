package presenter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/go-logr/logr"

	"github.com/dshills/gridstorm/internal/command"
	"github.com/dshills/gridstorm/internal/input/key"
	"github.com/dshills/gridstorm/internal/table"
	"github.com/dshills/gridstorm/internal/widget"
)

// Screen rows used by chrome.
const (
	toolbarRow = 0
	headerRow  = 1
	firstRow   = 2
)

var (
	styleDefault = tcell.StyleDefault
	styleToolbar = tcell.StyleDefault.Reverse(true)
	styleHeader  = tcell.StyleDefault.Bold(true)
	styleFocused = tcell.StyleDefault.Reverse(true)
	styleEditing = tcell.StyleDefault.Underline(true).Bold(true)
	styleStatus  = tcell.StyleDefault.Dim(true)
)

// Option configures a Presenter.
type Option func(*Presenter)

// WithLogger sets the presenter logger.
func WithLogger(log logr.Logger) Option {
	return func(p *Presenter) { p.log = log }
}

// WithColumns sets the column keys mounted in every row.
func WithColumns(columns ...string) Option {
	return func(p *Presenter) { p.columns = columns }
}

type hit struct {
	x0, x1 int
	id     string
}

// Presenter mounts and draws one table.
type Presenter struct {
	screen  tcell.Screen
	tbl     *table.Table
	columns []string
	log     logr.Logger

	mu      sync.Mutex
	widgets map[string][]*widget.Text
	buttons []hit
	top     int
	status  string
}

// New creates a presenter. The screen must already be initialized.
func New(screen tcell.Screen, tbl *table.Table, opts ...Option) *Presenter {
	p := &Presenter{
		screen:  screen,
		tbl:     tbl,
		columns: []string{"value"},
		log:     logr.Discard(),
		widgets: make(map[string][]*widget.Text),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.WithName("presenter")
	return p
}

// Mount registers the space handlers, mounts every existing row and
// reports the table ready.
func (p *Presenter) Mount(ctx context.Context) error {
	for _, space := range p.tbl.Spaces() {
		if err := p.tbl.RegisterSpaceHandler(space, p.onSpace); err != nil {
			return err
		}
	}
	for _, rowID := range p.tbl.AllRows() {
		if err := p.mountRow(rowID); err != nil {
			return err
		}
	}
	if err := p.tbl.Ready(ctx); err != nil {
		// Plugin init failures leave the table usable.
		p.log.Error(err, "plugin initialization failed")
		p.setStatus(err.Error())
	}
	// Rows added by plugins during init are mounted by onSpace.
	p.Draw()
	return nil
}

// Widgets returns the widgets of a row.
func (p *Presenter) Widgets(rowID string) []*widget.Text {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*widget.Text(nil), p.widgets[rowID]...)
}

func (p *Presenter) mountRow(rowID string) error {
	p.mu.Lock()
	_, mounted := p.widgets[rowID]
	p.mu.Unlock()
	if mounted {
		return nil
	}

	api := p.tbl.RowAPI(rowID)
	row, ok := api.Row()
	if !ok {
		return fmt.Errorf("%w: %s", table.ErrRowNotFound, rowID)
	}
	ids, err := api.AddCells(p.columns...)
	if err != nil {
		return fmt.Errorf("mount row %s: %w", rowID, err)
	}

	texts := make([]*widget.Text, 0, len(ids))
	for _, id := range ids {
		w, err := widget.NewText(p.tbl.CellAPI(id), widget.WithLogger(p.log))
		if err != nil {
			return fmt.Errorf("mount cell %s: %w", id, err)
		}
		w.Load(row.Data)
		texts = append(texts, w)
	}
	if err := api.RegisterRowHandler(func(cmd command.RowCommand) error {
		return p.onRow(rowID, cmd)
	}); err != nil {
		return err
	}

	p.mu.Lock()
	p.widgets[rowID] = texts
	p.mu.Unlock()
	return nil
}

func (p *Presenter) onRow(rowID string, cmd command.RowCommand) error {
	switch cmd.Name {
	case command.RowUpdate:
		data, ok := cmd.Payload.(json.RawMessage)
		if !ok {
			return fmt.Errorf("row update: unexpected payload %T", cmd.Payload)
		}
		for _, w := range p.Widgets(rowID) {
			w.Load(data)
		}
	case command.RowDestroy:
		p.mu.Lock()
		delete(p.widgets, rowID)
		p.mu.Unlock()
	case command.RowError:
		if e, ok := cmd.Payload.(command.ErrorPayload); ok {
			p.setStatus(e.Err.Error())
		}
	}
	return nil
}

// onSpace mounts rows that appeared in a space. Deleted rows were already
// dropped by their destroy command.
func (p *Presenter) onSpace(cmd command.SpaceCommand) error {
	rowID, ok := cmd.Payload.(string)
	if !ok {
		return nil
	}
	if _, exists := p.tbl.Row(rowID); !exists {
		return nil
	}
	return p.mountRow(rowID)
}

// HandleEvent processes one screen event and redraws. It reports whether
// the presenter should quit.
func (p *Presenter) HandleEvent(ev tcell.Event) bool {
	switch e := ev.(type) {
	case *tcell.EventKey:
		k, ok := convertKey(e)
		if ok && isQuit(k) {
			return true
		}
		if ok {
			p.routeKey(k)
		}
	case *tcell.EventMouse:
		if e.Buttons()&tcell.Button1 != 0 {
			x, y := e.Position()
			p.click(x, y)
		}
	case *tcell.EventResize:
		p.screen.Sync()
	}

	p.flush()
	p.Draw()
	return false
}

func (p *Presenter) flush() {
	if err := p.tbl.Flush(); err != nil {
		p.log.Error(err, "deferred operations failed")
		p.setStatus(err.Error())
	}
}

type flushRequest struct{}

// FlushRequest returns a table OnPending callback that wakes the presenter
// running on screen so deferred operations queued outside event handling
// are flushed.
func FlushRequest(screen tcell.Screen) func() {
	return func() {
		_ = screen.PostEvent(tcell.NewEventInterrupt(flushRequest{}))
	}
}

func (p *Presenter) routeKey(ev key.Event) {
	if p.tbl.HandleKey(ev) {
		return
	}
	owner := p.tbl.KeyboardOwner()
	if owner == "" {
		return
	}
	res := p.tbl.DispatchCell(command.CellCommand{Name: command.CellKey, TargetID: owner, Payload: ev})
	if res.Err != nil {
		p.setStatus(res.Err.Error())
	}
}

func (p *Presenter) click(x, y int) {
	p.mu.Lock()
	var id string
	if y == toolbarRow {
		for _, b := range p.buttons {
			if x >= b.x0 && x < b.x1 {
				id = b.id
				break
			}
		}
	}
	p.mu.Unlock()

	if id != "" {
		if err := p.tbl.Click(id); err != nil {
			p.setStatus(err.Error())
		}
		return
	}

	if y < firstRow {
		return
	}
	rows := p.tbl.AllRows()
	p.mu.Lock()
	i := p.top + y - firstRow
	p.mu.Unlock()
	if i >= len(rows) {
		return
	}
	col := x / p.colWidth()
	if ws := p.Widgets(rows[i]); col < len(ws) {
		if err := p.tbl.Focus(ws[col].ID()); err != nil && !errors.Is(err, table.ErrCellNotFound) {
			p.setStatus(err.Error())
		}
	}
}

func (p *Presenter) setStatus(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = s
}

func (p *Presenter) colWidth() int {
	w, _ := p.screen.Size()
	n := len(p.columns)
	if n == 0 || w/n < 1 {
		return 1
	}
	return w / n
}

// Run polls events until Ctrl+Q, Ctrl+C or ctx is done.
func (p *Presenter) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = p.screen.PostEvent(tcell.NewEventInterrupt(nil))
	}()

	for {
		ev := p.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if _, ok := ev.(*tcell.EventInterrupt); ok {
			if ctx.Err() != nil {
				return nil
			}
			p.flush()
			p.Draw()
			continue
		}
		if p.HandleEvent(ev) {
			return nil
		}
	}
}

// Draw renders the whole table.
func (p *Presenter) Draw() {
	s := p.screen
	w, h := s.Size()
	s.Clear()

	p.drawToolbar(w)

	cw := p.colWidth()
	for i, col := range p.columns {
		drawText(s, i*cw, headerRow, cw, col, styleHeader)
	}

	rows := p.tbl.AllRows()
	visible := h - firstRow - 1
	p.scrollTo(rows, visible)

	p.mu.Lock()
	top, status := p.top, p.status
	p.mu.Unlock()

	focused := p.tbl.Focused()
	owner := p.tbl.KeyboardOwner()
	for i := 0; i < visible && top+i < len(rows); i++ {
		y := firstRow + i
		for j, wdg := range p.Widgets(rows[top+i]) {
			style := styleDefault
			switch wdg.ID() {
			case owner:
				style = styleEditing
			case focused:
				style = styleFocused
			}
			drawText(s, j*cw, y, cw, wdg.Display(), style)
		}
	}

	if status == "" {
		status = fmt.Sprintf("%d rows", len(rows))
		if owner != "" {
			status += "  EDIT"
		}
	}
	drawText(s, 0, h-1, w, status, styleStatus)
	s.Show()
}

func (p *Presenter) drawToolbar(width int) {
	for x := 0; x < width; x++ {
		p.screen.SetContent(x, toolbarRow, ' ', nil, styleToolbar)
	}

	var hits []hit
	x := 0
	for _, b := range p.tbl.Buttons() {
		label := "[" + b.Label + "]"
		drawText(p.screen, x, toolbarRow, width-x, label, styleToolbar)
		hits = append(hits, hit{x0: x, x1: x + len([]rune(label)), id: b.ID})
		x += len([]rune(label)) + 1
		if x >= width {
			break
		}
	}

	p.mu.Lock()
	p.buttons = hits
	p.mu.Unlock()
}

// scrollTo keeps the focused row inside the visible window.
func (p *Presenter) scrollTo(rows []string, visible int) {
	idx := -1
	if c, ok := p.tbl.Cell(p.tbl.Focused()); ok {
		for i, id := range rows {
			if id == c.RowID {
				idx = i
				break
			}
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case visible <= 0:
		p.top = 0
	case idx < 0:
		p.top = min(p.top, max(0, len(rows)-visible))
	case idx < p.top:
		p.top = idx
	case idx >= p.top+visible:
		p.top = idx - visible + 1
	}
}

func drawText(s tcell.Screen, x, y, width int, text string, style tcell.Style) {
	runes := []rune(text)
	for i := 0; i < width; i++ {
		r := ' '
		if i < len(runes) {
			r = runes[i]
		}
		if i == width-1 && len(runes) > width {
			r = '…'
		}
		s.SetContent(x+i, y, r, nil, style)
	}
}

// Line returns the text on screen row y, trailing spaces trimmed.
func Line(s tcell.Screen, y int) string {
	w, _ := s.Size()
	var b strings.Builder
	for x := 0; x < w; x++ {
		r, _, _, _ := s.GetContent(x, y) //nolint:staticcheck // GetContent is the correct API
		if r == 0 {
			r = ' '
		}
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}
