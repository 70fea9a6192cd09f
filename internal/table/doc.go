// Package table is the grid's orchestrator. It owns the spatial
// registries, the order indexer, the command and action registries and the
// plugin manager, and it is the only place where rows are created or
// destroyed.
//
// # Spaces
//
// Plugins that own a space get one, in plugin order, at the top of the
// space chain; the table's own data space is always last:
//
//	[plugin space A] -> [plugin space B] -> [table space]
//
// Every row carries an order key issued by the indexer. A row added to a
// space takes a key between its neighbours in the global order, looking
// across empty spaces when needed, so rows sort contiguously per space
// without ever renumbering.
//
// # Capabilities
//
// Callers never see the registries. They receive scoped APIs instead:
//
//   - PluginAPI(name): rows, comparisons, actions and buttons; everything
//     it issues is tagged with the plugin as origin.
//   - RowAPI(rowID): cell registration for the presentation layer.
//   - CellAPI(cellID): command and action registration for widgets.
//
// Structural operations requested by actions (InsertRow, DeleteRow) are
// deferred and run on Flush, in FIFO order.
package table
