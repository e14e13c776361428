package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Views
	NextView key.Binding
	Chat     key.Binding
	Docs     key.Binding
	Auth     key.Binding

	// Search
	Search key.Binding

	// Command palette
	Command key.Binding

	// Help toggle
	Help key.Binding

	// Inbox
	Reply         key.Binding
	Refresh       key.Binding
	FilterGmail   key.Binding
	FilterOutlook key.Binding

	// Reply dialog
	Regenerate key.Binding
	Send       key.Binding
	NextField  key.Binding

	// Chat
	Ask        key.Binding
	ClearChat  key.Binding
	ExportChat key.Binding

	// Knowledge base
	UpdateKB key.Binding

	// Auth
	GmailAuth     key.Binding
	MicrosoftAuth key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back / cancel"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		NextView: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next view"),
		),
		Chat: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "chat"),
		),
		Docs: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "documents"),
		),
		Auth: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "accounts"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Reply: key.NewBinding(
			key.WithKeys("r", "enter"),
			key.WithHelp("r/enter", "draft reply"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "refresh"),
		),
		FilterGmail: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "toggle gmail"),
		),
		FilterOutlook: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "toggle outlook"),
		),
		Regenerate: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "regenerate draft"),
		),
		Send: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "send reply"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "next field"),
		),
		Ask: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "ask"),
		),
		ClearChat: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "clear chat"),
		),
		ExportChat: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("ctrl+e", "export transcript"),
		),
		UpdateKB: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "update knowledge base"),
		),
		GmailAuth: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "sign in to gmail"),
		),
		MicrosoftAuth: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "sign in to microsoft"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Reply, k.Back,
		k.NextView, k.Help, k.Quit,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Back, k.Quit, k.NextView, k.Chat, k.Docs, k.Auth},
		{k.Reply, k.Refresh, k.Search, k.FilterGmail, k.FilterOutlook, k.Command, k.Help},
		{k.Regenerate, k.Send, k.NextField},
		{k.Ask, k.ClearChat, k.ExportChat, k.UpdateKB, k.GmailAuth, k.MicrosoftAuth},
	}
}
