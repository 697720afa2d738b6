package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	rotate key.Binding
	add    key.Binding
	remove key.Binding
	sell   key.Binding
	toggle key.Binding
	cancel key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		rotate: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rotate held")),
		add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add item")),
		remove: key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete hovered")),
		sell:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sell hovered")),
		toggle: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open/close container")),
		cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel drag")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) bindings() []key.Binding {
	return []key.Binding{k.add, k.rotate, k.toggle, k.sell, k.remove, k.cancel, k.quit}
}
