// Package restsync is the plugin that keeps table rows in step with a
// remote JSON store.
//
// It owns no space. Saves are observed once they reach their cell: a
// save vetoed in the action chain, blocked as a command or refused by the
// cell's handler is never pushed. The row payload is patched at the cell's
// column with sjson, stored on the row and pushed through the Transport.
// Load pulls the remote rows into the table space.
package restsync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/gridstorm/internal/action"
	"github.com/dshills/gridstorm/internal/plugin"
)

// Name is the plugin name.
const Name = "restsync"

// ButtonReload is the id of the toolbar button that reloads the rows.
const ButtonReload = "restsync.reload"

// Config configures the plugin.
type Config struct {
	Transport Transport

	// IDField is the payload member holding the remote id.
	IDField string

	// Timeout bounds each push or pull.
	Timeout time.Duration

	// Button adds a reload button to the toolbar.
	Button bool
}

// Plugin syncs saved cells to a Transport.
type Plugin struct {
	plugin.Base
	cfg Config

	mu       sync.Mutex
	api      plugin.API
	log      logr.Logger
	loaded   []string
	requests int
	fails    int
}

var (
	_ plugin.Initializer  = (*Plugin)(nil)
	_ plugin.SaveObserver = (*Plugin)(nil)
)

// New creates the plugin.
func New(cfg Config) *Plugin {
	if cfg.IDField == "" {
		cfg.IDField = "id"
	}
	return &Plugin{
		Base: plugin.Base{PluginName: Name, PluginVersion: "1.0.0", Last: true},
		cfg:  cfg,
		log:  logr.Discard(),
	}
}

// OnInit keeps the API and, if configured, adds the reload button.
func (p *Plugin) OnInit(ctx context.Context, env plugin.InitContext) error {
	p.mu.Lock()
	p.api = env.API
	p.log = env.Logger
	p.mu.Unlock()

	if !p.cfg.Button {
		return nil
	}
	return env.API.RegisterButton(plugin.Button{
		ID:    ButtonReload,
		Label: "Reload",
		OnClick: func() {
			if _, err := p.Reload(context.Background()); err != nil {
				p.log.Error(err, "reload failed")
			}
		},
	})
}

// OnCellSaved pushes the saved value of cellID.
func (p *Plugin) OnCellSaved(cellID string, value any) {
	if err := p.sync(cellID, value); err != nil {
		p.logger().Error(err, "sync failed", "cell", cellID)
	}
}

// sync patches the row of cellID at the cell's column, stores the payload
// on the row and pushes it.
func (p *Plugin) sync(cellID string, value any) error {
	api, err := p.apiOrErr()
	if err != nil {
		return err
	}
	c, ok := api.Cell(cellID)
	if !ok {
		return fmt.Errorf("cell %s not found", cellID)
	}
	row, ok := api.Row(c.RowID)
	if !ok {
		return fmt.Errorf("row %s not found", c.RowID)
	}

	data, err := Patch(row.Data, c.Column, value)
	if err != nil {
		return err
	}

	ctx, cancel := p.context()
	defer cancel()
	stored, err := p.cfg.Transport.Push(ctx, gjson.GetBytes(data, gjson.Escape(p.cfg.IDField)).String(), data)
	p.count(err)
	if err != nil {
		// Keep the local edit even when the push fails.
		return api.SetRowData(c.RowID, data)
	}
	return api.SetRowData(c.RowID, stored)
}

// Patch sets column to value in a JSON object payload. Numbers, booleans
// and nested JSON keep their type; anything else is stored as a string.
func Patch(data []byte, column string, value any) ([]byte, error) {
	if len(data) == 0 || !gjson.ValidBytes(data) {
		data = []byte("{}")
	}
	path := gjson.Escape(column)
	switch v := value.(type) {
	case json.RawMessage:
		return sjson.SetRawBytes(data, path, v)
	case string, bool, int, int64, float64, nil:
		return sjson.SetBytes(data, path, v)
	default:
		return sjson.SetBytes(data, path, fmt.Sprint(v))
	}
}

// Load pulls the remote rows and appends them to the table space. It
// returns the new row ids.
func (p *Plugin) Load(ctx context.Context) ([]string, error) {
	api, err := p.apiOrErr()
	if err != nil {
		return nil, err
	}
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	rows, err := p.cfg.Transport.Pull(ctx)
	p.count(err)
	if err != nil {
		return nil, fmt.Errorf("pull rows: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for _, data := range rows {
		id, err := api.AddRow(api.TableSpace(), action.Bottom, data)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}

	p.mu.Lock()
	p.loaded = append(p.loaded, ids...)
	p.mu.Unlock()
	p.logger().V(1).Info("rows loaded", "count", len(ids))
	return ids, nil
}

// Reload deletes the rows of earlier loads that still exist and loads
// again.
func (p *Plugin) Reload(ctx context.Context) ([]string, error) {
	api, err := p.apiOrErr()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	old := p.loaded
	p.loaded = nil
	p.mu.Unlock()

	for _, id := range old {
		if _, ok := api.Row(id); ok {
			if err := api.DeleteRow(id); err != nil {
				return nil, err
			}
		}
	}
	return p.Load(ctx)
}

// Stats reports push and pull outcomes.
type Stats struct {
	Requests int
	Failures int
}

// Stats returns the request counters.
func (p *Plugin) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Requests: p.requests, Failures: p.fails}
}

func (p *Plugin) count(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests++
	if err != nil {
		p.fails++
	}
}

func (p *Plugin) apiOrErr() (plugin.API, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.api == nil {
		return nil, ErrNotInitialized
	}
	return p.api, nil
}

func (p *Plugin) logger() logr.Logger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.log
}

func (p *Plugin) context() (context.Context, context.CancelFunc) {
	if p.cfg.Timeout > 0 {
		return context.WithTimeout(context.Background(), p.cfg.Timeout)
	}
	return context.WithCancel(context.Background())
}
