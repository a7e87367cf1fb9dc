package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up     key.Binding
	down   key.Binding
	enter  key.Binding
	back   key.Binding
	reset  key.Binding
	quit   key.Binding
	next   key.Binding
	prev   key.Binding
	left   key.Binding
	right  key.Binding
	toggle key.Binding
	submit key.Binding
	cancel key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		reset:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "root")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		prev:   key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous field")),
		left:   key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "previous option")),
		right:  key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "next option")),
		toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		submit: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "submit")),
		cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.back, k.reset, k.quit},
		{k.next, k.prev, k.toggle, k.submit},
	}
}

func (k keyMap) resourceHelp() []key.Binding {
	return []key.Binding{k.enter, k.back, k.reset, k.quit}
}

func (k keyMap) formHelp() []key.Binding {
	return []key.Binding{k.next, k.left, k.right, k.toggle, k.submit, k.cancel}
}
