package table

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/dshills/gridstorm/internal/action"
	"github.com/dshills/gridstorm/internal/command"
	"github.com/dshills/gridstorm/internal/order"
	"github.com/dshills/gridstorm/internal/plugin"
	"github.com/dshills/gridstorm/internal/scheduler"
	"github.com/dshills/gridstorm/internal/spatial"
)

// Table owns the grid's structure and routes every command and action.
type Table struct {
	// mu guards the spatial graph and the table state below. It is never
	// held while a handler, plugin or button callback runs.
	mu sync.RWMutex

	cfg Config
	log logr.Logger

	indexer *order.Indexer

	cells  *spatial.Registry[spatial.Cell]
	rows   *spatial.Registry[spatial.Row]
	spaces *spatial.Registry[spatial.Space]

	cellCoord  *spatial.CellCoordinator
	spaceCoord *spatial.SpaceCoordinator

	cellCmds  *command.CellRegistry
	rowCmds   *command.RowRegistry
	spaceCmds *command.SpaceRegistry

	actions *action.Registry
	plugins *plugin.Manager
	queue   *scheduler.Queue

	tableSpace   string
	pluginSpaces map[string]string

	focused       string
	keyboardOwner string
	buttons       []plugin.Button

	ready  bool
	closed bool

	newID func() string
}

// New builds a table with the given plugins. It fails only when the
// plugin set is misconfigured: duplicate names, phase violations or
// dependency cycles.
func New(cfg Config, plugins ...plugin.Plugin) (*Table, error) {
	log := cfg.Logger.WithName("table")
	cmdCfg := command.Config{Logger: cfg.Logger, EnableMetrics: cfg.EnableMetrics}

	t := &Table{
		cfg: cfg,
		log: log,
		indexer: order.NewIndexer(
			order.WithRedistributeThreshold(cfg.RedistributeThreshold),
			order.WithLogger(cfg.Logger),
		),
		cells:        spatial.NewRegistry[spatial.Cell](),
		rows:         spatial.NewRegistry[spatial.Row](),
		spaces:       spatial.NewRegistry[spatial.Space](),
		cellCmds:     command.NewCellRegistry(cmdCfg),
		rowCmds:      command.NewRowRegistry(cmdCfg),
		spaceCmds:    command.NewSpaceRegistry(cmdCfg),
		actions:      action.NewRegistry(cfg.Logger),
		plugins:      plugin.NewManager(cfg.Logger),
		queue:        scheduler.New(
			scheduler.WithQueueSize(cfg.QueueSize),
			scheduler.WithLogger(cfg.Logger),
			scheduler.WithNotify(cfg.OnPending),
		),
		pluginSpaces: make(map[string]string),
		newID:        uuid.NewString,
	}
	t.cellCoord = spatial.NewCellCoordinator(t.cells, t.rows)
	t.spaceCoord = spatial.NewSpaceCoordinator(t.spaces)

	for _, p := range plugins {
		if err := t.plugins.Register(p); err != nil {
			return nil, err
		}
	}
	ordered, err := t.plugins.Order()
	if err != nil {
		return nil, fmt.Errorf("invalid plugin configuration: %w", err)
	}

	for _, p := range ordered {
		if owner, ok := p.(plugin.SpaceOwner); ok {
			id := t.spaceCoord.CreatePluginSpace(owner.SpaceName(), p.Name())
			t.pluginSpaces[p.Name()] = id
			log.V(1).Info("plugin space created", "plugin", p.Name(), "space", id)
		}
	}
	t.tableSpace = t.newID()
	t.spaces.Register(t.tableSpace, &spatial.Space{ID: t.tableSpace, Name: cfg.SpaceName})
	t.spaceCoord.LinkLastPluginSpaceToTableSpace(t.tableSpace)

	t.cellCmds.SetChain(t.plugins.CellChain())
	t.rowCmds.SetChain(t.plugins.RowChain())
	t.spaceCmds.SetChain(t.plugins.SpaceChain())
	t.actions.SetChain(t.plugins.ActionChain())
	t.actions.SetFactory(func(cellID, origin string) action.API {
		return &cellActions{t: t, cellID: cellID, origin: origin}
	})

	return t, nil
}

// Ready is called by the presentation layer once every initial cell is
// registered. The first call initializes the plugins in order; later calls
// are no-ops. Plugin init failures are returned but leave the table
// usable.
func (t *Table) Ready(ctx context.Context) error {
	t.mu.Lock()
	if t.ready || t.closed {
		t.mu.Unlock()
		return nil
	}
	t.ready = true
	t.mu.Unlock()

	err := t.plugins.InitializePlugins(ctx, func(p plugin.Plugin) plugin.InitContext {
		return plugin.InitContext{
			API:     t.PluginAPI(p.Name()),
			SpaceID: t.PluginSpace(p.Name()),
			Logger:  t.cfg.Logger.WithName(p.Name()),
		}
	})
	if err != nil {
		t.log.Error(err, "plugin initialization failed")
	}
	return err
}

// IsReady reports whether Ready has been called.
func (t *Table) IsReady() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ready
}

// Close destroys the plugins in reverse order and drops deferred work.
func (t *Table) Close(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.queue.Close()
	return t.plugins.Destroy(ctx)
}

// Flush runs deferred structural operations in FIFO order.
func (t *Table) Flush() error {
	return t.queue.Flush()
}

// Pending returns the number of deferred operations.
func (t *Table) Pending() int {
	return t.queue.Len()
}

// Plugins returns the plugin manager, for event subscription.
func (t *Table) Plugins() *plugin.Manager {
	return t.plugins
}

// TableSpace returns the id of the table's own data space.
func (t *Table) TableSpace() string {
	return t.tableSpace
}

// PluginSpace returns the space owned by a plugin, or "".
func (t *Table) PluginSpace(pluginName string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pluginSpaces[pluginName]
}

// Spaces returns the space ids from top to bottom.
func (t *Table) Spaces() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.spaceCoord.Chain()
}

// Space returns a copy of a space.
func (t *Table) Space(id string) (spatial.Space, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.spaces.Get(id)
	if !ok {
		return spatial.Space{}, false
	}
	return s.Clone(), true
}

// Rows returns the row ids of a space, top to bottom.
func (t *Table) Rows(spaceID string) []string {
	s, ok := t.Space(spaceID)
	if !ok {
		return nil
	}
	return s.RowIDs
}

// AllRows returns every row id in global order, top to bottom.
func (t *Table) AllRows() []string {
	var out []string
	for _, id := range t.Spaces() {
		out = append(out, t.Rows(id)...)
	}
	return out
}

// Row returns a copy of a row.
func (t *Table) Row(id string) (spatial.Row, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.rows.Get(id)
	if !ok {
		return spatial.Row{}, false
	}
	return r.Clone(), true
}

// Cell returns a copy of a cell.
func (t *Table) Cell(id string) (spatial.Cell, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.cells.Get(id)
	if !ok {
		return spatial.Cell{}, false
	}
	return *c, true
}

// OrderKey returns the order string of a row.
func (t *Table) OrderKey(rowID string) (string, error) {
	r, ok := t.Row(rowID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrRowNotFound, rowID)
	}
	return t.indexer.Value(r.Key)
}

// RegisterSpaceHandler sets the presentation handler of a space.
func (t *Table) RegisterSpaceHandler(spaceID string, h command.Handler[command.SpaceName]) error {
	if _, ok := t.Space(spaceID); !ok {
		return fmt.Errorf("%w: %s", ErrSpaceNotFound, spaceID)
	}
	t.spaceCmds.Register(spaceID, h)
	return nil
}

// UnregisterSpaceHandler removes the presentation handler of a space.
func (t *Table) UnregisterSpaceHandler(spaceID string) {
	t.spaceCmds.Unregister(spaceID)
}

// DispatchCell sends a cell command with no plugin origin.
func (t *Table) DispatchCell(cmd command.CellCommand) command.Result {
	return t.cellCmds.Dispatch(cmd)
}

// DispatchRow sends a row command with no plugin origin.
func (t *Table) DispatchRow(cmd command.RowCommand) command.Result {
	return t.rowCmds.Dispatch(cmd)
}

// RunAction executes a cell action with no plugin origin.
func (t *Table) RunAction(cellID, name string, payload any) action.Report {
	return t.actions.Execute(cellID, name, payload, "")
}

// Stats holds counters of the table's components.
type Stats struct {
	Rows      int
	Cells     int
	Indexer   order.Stats
	Scheduler scheduler.Stats

	// Command counters; zero when metrics are disabled.
	CellCommands  command.Snapshot
	RowCommands   command.Snapshot
	SpaceCommands command.Snapshot
}

// Stats returns a snapshot of the table counters.
func (t *Table) Stats() Stats {
	s := Stats{
		Rows:      t.rows.Len(),
		Cells:     t.cells.Len(),
		Indexer:   t.indexer.Stats(),
		Scheduler: t.queue.Stats(),
	}
	if m := t.cellCmds.Metrics(); m != nil {
		s.CellCommands = m.Snapshot()
	}
	if m := t.rowCmds.Metrics(); m != nil {
		s.RowCommands = m.Snapshot()
	}
	if m := t.spaceCmds.Metrics(); m != nil {
		s.SpaceCommands = m.Snapshot()
	}
	return s
}
