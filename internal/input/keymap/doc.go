// Package keymap maps key events to grid bindings.
//
// A binding target is written as one of:
//
//	navigate:<up|down|left|right>  move focus
//	action:<name>                  run a cell action on the focused cell
//	insert:<top|bottom>            insert a row in the focused cell's space
//	delete                         delete the focused cell's row
//
// Keymaps are built from the configuration's key → target map and can be
// replaced atomically on reload:
//
//	km, err := keymap.FromMap("default", cfg.Keymap)
//	if b, ok := km.Lookup(ev); ok {
//	    // act on b.Target
//	}
package keymap
