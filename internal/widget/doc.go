// Package widget provides the text cell widget used by the presenter.
//
// A Text widget holds one cell's display value. It reacts to the cell
// commands the table sends it and exposes its behaviour as cell actions,
// so plugins can observe and veto every change:
//
//	edit  focus the cell and take the keyboard
//	save  store a value and release the keyboard
//	exit  drop the draft and release the keyboard
//	move  release the keyboard and move focus
//
// While a Text owns the keyboard the presenter routes keys to it as
// targeted key commands; printable runes edit the draft, Enter saves,
// Escape exits and Tab moves right.
package widget
