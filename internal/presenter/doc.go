// Package presenter draws a table on a tcell screen and feeds it input.
//
// The presenter is the table's presentation layer: it mounts a text widget
// per column for every row, registers the row and space handlers, reports
// readiness, and routes key presses. A key goes to the table first; while
// a cell owns the keyboard the table declines it and the presenter sends
// it to the owning cell as a key command instead.
//
// Screen layout, top to bottom: the toolbar of plugin buttons, the column
// header, the rows, and a status line.
package presenter
