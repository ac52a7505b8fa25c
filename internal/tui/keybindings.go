package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the watch view.
type KeyMap struct {
	Quit    key.Binding
	Refresh key.Binding
	Details key.Binding
}

// DefaultKeyMap provides the default key bindings.
var DefaultKeyMap = KeyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Details: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "toggle details"),
	),
}

func (k KeyMap) help() string {
	var parts []string
	for _, b := range []key.Binding{k.Quit, k.Refresh, k.Details} {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return joinDot(parts)
}
