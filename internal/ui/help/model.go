package help

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/inboxdesk/internal/keys"
	"github.com/nhle/inboxdesk/internal/theme"
	"github.com/nhle/inboxdesk/internal/ui/command"
)

// sectionTitles names the groups returned by KeyMap.FullHelp, in order.
var sectionTitles = []string{"Navigation", "Inbox", "Reply", "Chat & accounts"}

// Model is the help overlay listing key bindings and palette commands.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

func New(k *keys.KeyMap, width, height int) Model {
	return Model{keys: k, help: help.New(), width: width, height: height}
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

func (m Model) View() string {
	blocks := []string{theme.TitleStyle.Render("Keyboard shortcuts")}
	for i, group := range m.keys.FullHelp() {
		title := "Other"
		if i < len(sectionTitles) {
			title = sectionTitles[i]
		}
		blocks = append(blocks,
			"",
			theme.LabelStyle.Render(title),
			m.help.FullHelpView([][]key.Binding{group}),
		)
	}

	blocks = append(blocks, "", theme.TitleStyle.Render("Commands"))
	for _, c := range command.Commands {
		blocks = append(blocks, theme.LabelStyle.Render(":"+c.Name)+"  "+theme.HelpStyle.Render(c.Desc))
	}

	return theme.PanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, blocks...))
}

// SetSize updates the overlay dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
