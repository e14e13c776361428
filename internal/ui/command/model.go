package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/inboxdesk/internal/theme"
)

// CommandMsg is emitted when the user executes a command. It carries the
// canonical command name.
type CommandMsg string

// Command is a palette entry.
type Command struct {
	Name string
	Desc string
}

// Commands lists everything the palette accepts.
var Commands = []Command{
	{Name: "inbox", Desc: "show the email dashboard"},
	{Name: "refresh", Desc: "fetch new email now"},
	{Name: "chat", Desc: "open the knowledge base chat"},
	{Name: "docs", Desc: "list indexed documents"},
	{Name: "auth", Desc: "check and connect accounts"},
	{Name: "setup", Desc: "edit backend settings"},
	{Name: "export", Desc: "save the chat transcript as HTML"},
	{Name: "clear", Desc: "start a new chat"},
	{Name: "quit", Desc: "exit"},
}

// Resolve matches input against the command list. An exact name wins;
// otherwise a unique prefix is accepted.
func Resolve(input string) (string, bool) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return "", false
	}
	var match string
	for _, c := range Commands {
		if c.Name == input {
			return c.Name, true
		}
		if strings.HasPrefix(c.Name, input) {
			if match != "" {
				return "", false
			}
			match = c.Name
		}
	}
	return match, match != ""
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	err    string
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			raw := strings.TrimSpace(m.input.Value())
			if raw == "" {
				return m, nil
			}
			name, ok := Resolve(raw)
			if !ok {
				m.err = "unknown command: " + raw
				return m, nil
			}
			m.input.Reset()
			m.err = ""
			return m, func() tea.Msg {
				return CommandMsg(name)
			}
		case "tab":
			if name, ok := Resolve(m.input.Value()); ok {
				m.input.SetValue(name)
				m.input.CursorEnd()
			}
			return m, nil
		}
	}

	m.err = ""
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	title := theme.TitleStyle.MarginBottom(1).Render("Command Palette")
	lines := []string{title, m.input.View()}

	if m.err != "" {
		lines = append(lines, theme.ChatErrorStyle.Render(m.err))
	} else {
		prefix := strings.ToLower(strings.TrimSpace(m.input.Value()))
		var names []string
		for _, c := range Commands {
			if strings.HasPrefix(c.Name, prefix) {
				names = append(names, c.Name)
			}
		}
		lines = append(lines, theme.HelpStyle.Render(strings.Join(names, "  ")))
	}

	return theme.PanelStyle.
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	m.input.Reset()
	m.err = ""
	return m.input.Focus()
}
