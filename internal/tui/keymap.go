package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// keyMap defines global key bindings used across the TUI.
type keyMap struct {
	Quit      key.Binding
	Help      key.Binding
	Up        key.Binding
	Down      key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Home      key.Binding
	End       key.Binding
	NextMark  key.Binding
	PrevMark  key.Binding
	NextBlock key.Binding
	PrevBlock key.Binding
	Markers   key.Binding
	Search    key.Binding
	Annotate  key.Binding
	Fraction  key.Binding
	Escape    key.Binding
	Enter     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "b"),
			key.WithHelp("pgup/b", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", " "),
			key.WithHelp("pgdn/space", "page down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g", "top"),
		),
		End: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("G", "bottom"),
		),
		NextMark: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next marker"),
		),
		PrevMark: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "previous marker"),
		),
		NextBlock: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next block"),
		),
		PrevBlock: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "previous block"),
		),
		Markers: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "marker list"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "find quote"),
		),
		Annotate: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "annotate block"),
		),
		Fraction: key.NewBinding(
			key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("0-9", "jump to n×10%"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "go"),
		),
	}
}
