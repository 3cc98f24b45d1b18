package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	next    key.Binding
	prev    key.Binding
	search  key.Binding
	upload  key.Binding
	edit    key.Binding
	save    key.Binding
	tab     key.Binding
	code    key.Binding
	restart key.Binding
	reload  key.Binding
	logout  key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		next:    key.NewBinding(key.WithKeys("right", "l", "n"), key.WithHelp("→/n", "next page")),
		prev:    key.NewBinding(key.WithKeys("left", "h", "p"), key.WithHelp("←/p", "prev page")),
		search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		upload:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload")),
		edit:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		save:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch field")),
		code:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "paste code")),
		restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
		reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		logout:  key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "logout")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.next, k.prev, k.search, k.reload},
		{k.upload, k.edit, k.save, k.logout, k.quit},
	}
}
