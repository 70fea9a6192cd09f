// Package plugin provides the plugin system for gridstorm.
//
// A plugin is any value implementing Plugin. Behaviour is opted into by
// implementing the hook interfaces:
//
//   - Initializer receives the plugin-scoped API once, when the table is ready
//   - Destroyer releases resources when the table closes
//   - CellInterceptor, RowInterceptor and SpaceInterceptor may drop commands
//   - ActionInterceptor may veto individual API calls of a cell action
//   - SpaceOwner gives the plugin its own space of rows above the table's
//
// # Ordering
//
// The Manager orders plugins in two phases. Plugins flagged ProcessLast,
// and every plugin depending on one of them, run in the late phase. Each
// phase is sorted so dependencies come first:
//
//	normal: [y, x]          x depends on y
//	late:   [audit, sync]   sync depends on audit (ProcessLast)
//	order:  y, x, audit, sync
//
// A dependency outside the dependent's phase fails with ErrPhaseViolation
// and a cycle with ErrCircularDependency. Both are fatal to table creation.
//
// # Lifecycle
//
//	m := plugin.NewManager(log)
//	_ = m.Register(nav)
//	ordered, err := m.Order()
//	err = m.InitializePlugins(ctx, envFor) // once; later calls are no-ops
//	defer m.Destroy(ctx)                   // reverse order
//
// Lua plugins are provided by the lua subpackage.
package plugin
