package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts.
type KeyMap struct {
	// Navigation
	Sections []key.Binding
	Next     key.Binding
	Prev     key.Binding

	// Actions
	Refresh   key.Binding
	SendTest  key.Binding
	SendStats key.Binding
	Alert     key.Binding
	Check     key.Binding
	Generate  key.Binding

	// Input
	Submit key.Binding
	Cancel key.Binding

	// Application
	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	sections := make([]key.Binding, 0, 7)
	for i := 1; i <= 7; i++ {
		k := string(rune('0' + i))
		sections = append(sections, key.NewBinding(
			key.WithKeys(k),
			key.WithHelp(k, "section"),
		))
	}

	return KeyMap{
		Sections: sections,
		Next: key.NewBinding(
			key.WithKeys("tab", "l", "right"),
			key.WithHelp("tab", "next section"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab", "h", "left"),
			key.WithHelp("shift+tab", "previous section"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		SendTest: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "test message"),
		),
		SendStats: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "send statistics"),
		),
		Alert: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "alert"),
		),
		Check: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "check status"),
		),
		Generate: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "daily report"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Refresh, k.SendTest, k.SendStats, k.Alert, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Refresh},
		{k.SendTest, k.SendStats, k.Alert, k.Check},
		{k.Generate, k.Help, k.Quit},
	}
}
