// Package key provides the key events routed through the grid.
//
// Key specifications are written as "a", "Enter", "Ctrl+N" or
// "Shift+Tab"; Parse and Event.String convert between the two forms so
// keymaps can be kept in configuration files.
package key
