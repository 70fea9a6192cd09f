package presenter

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
)

func TestConvertKey(t *testing.T) {
	tests := []struct {
		name string
		ev   *tcell.EventKey
		want string
		quit bool
	}{
		{name: "arrow", ev: tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone), want: "Down"},
		{name: "rune", ev: tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone), want: "x"},
		{name: "ctrl constant", ev: tcell.NewEventKey(tcell.KeyCtrlN, 0, tcell.ModCtrl), want: "Ctrl+N"},
		{name: "ctrl rune", ev: tcell.NewEventKey(tcell.KeyRune, 'N', tcell.ModCtrl), want: "Ctrl+N"},
		{name: "quit", ev: tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModCtrl), want: "Ctrl+Q", quit: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := convertKey(tt.ev)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, tt.quit, isQuit(got))
		})
	}

	_, ok := convertKey(tcell.NewEventKey(tcell.KeyF20, 0, tcell.ModNone))
	assert.False(t, ok)
}
