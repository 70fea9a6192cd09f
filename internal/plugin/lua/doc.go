// Package lua loads grid plugins written in Lua.
//
// A plugin is a directory holding manifest.yaml and an entry script:
//
//	plugins/
//	  readonly/
//	    manifest.yaml
//	    init.lua
//
// The manifest names the plugin and its ordering constraints:
//
//	name: readonly
//	version: 1.0.0
//	dependencies: [navigation]
//	processLast: false
//	space: ""        # set to give the plugin its own space
//
// The script may define any of these globals:
//
//	function on_init(space_id) end
//	function on_destroy() end
//	function on_before_cell_command(cmd) return true end   -- cmd.name, cmd.target, cmd.origin, cmd.payload
//	function on_before_row_command(cmd) return true end
//	function on_before_space_command(cmd) return true end
//	function on_before_action(cell_id, action, methods)
//	    return {"save"}, true   -- methods to veto, continue chain
//	end
//
// Returning false from a command hook drops the command. After on_init
// the global table "grid" exposes the plugin API: log, space, table_space,
// focused, rows, add_row, delete_row and run_action.
//
// Scripts run in a sandbox without io, os, debug or module loading, and
// every call is bounded by a timeout.
package lua
