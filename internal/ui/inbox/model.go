package inbox

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/inboxdesk/internal/keys"
	"github.com/nhle/inboxdesk/internal/model"
	"github.com/nhle/inboxdesk/internal/store"
	"github.com/nhle/inboxdesk/internal/theme"
)

// EmailsLoadedMsg is sent when the filtered inbox has been read from the store.
type EmailsLoadedMsg struct {
	Emails []model.EmailSummary
	Err    error
}

// DraftReplyMsg asks the parent to open the reply dialog for Email.
type DraftReplyMsg struct {
	Email model.EmailSummary
}

// RefreshRequestMsg asks the parent to fetch the inbox from the backend now.
type RefreshRequestMsg struct{}

// Model is the unified inbox view.
type Model struct {
	list            list.Model
	store           store.Store
	keys            *keys.KeyMap
	filter          store.EmailFilter
	platformFilters map[model.Platform]bool
	searchMode      bool
	searchInput     textinput.Model
	loaded          bool
	width           int
	height          int
}

// New creates a new inbox model.
func New(s store.Store, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Inbox"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle
	l.SetStatusBarItemName("email", "emails")

	si := textinput.New()
	si.Placeholder = "search subject, sender, snippet..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:            l,
		store:           s,
		keys:            k,
		platformFilters: make(map[model.Platform]bool),
		searchInput:     si,
		width:           width,
		height:          height,
	}
}

// Init returns a command that loads the current snapshot.
func (m Model) Init() tea.Cmd {
	return m.LoadEmails()
}

// Update handles messages for the inbox view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case EmailsLoadedMsg:
		if msg.Err != nil {
			return m, nil
		}
		m.loaded = true
		items := make([]list.Item, len(msg.Emails))
		for i, e := range msg.Emails {
			items[i] = EmailItem{Email: e}
		}
		cmd := m.list.SetItems(items)
		return m, cmd

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.searchInput.Blur()
		m.filter.Query = strings.TrimSpace(m.searchInput.Value())
		return m, m.LoadEmails()

	case "esc":
		m.searchMode = false
		m.searchInput.Blur()
		m.searchInput.Reset()
		m.filter.Query = ""
		return m, m.LoadEmails()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Reply):
		item, ok := m.list.SelectedItem().(EmailItem)
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return DraftReplyMsg{Email: item.Email}
		}

	case key.Matches(msg, m.keys.Refresh):
		return m, func() tea.Msg { return RefreshRequestMsg{} }

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.filter.Query)
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.FilterGmail):
		m.togglePlatform(model.PlatformGmail)
		return m, m.LoadEmails()

	case key.Matches(msg, m.keys.FilterOutlook):
		m.togglePlatform(model.PlatformOutlook)
		return m, m.LoadEmails()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// togglePlatform flips a platform filter and rebuilds the store filter.
func (m *Model) togglePlatform(p model.Platform) {
	if m.platformFilters[p] {
		delete(m.platformFilters, p)
	} else {
		m.platformFilters[p] = true
	}

	var platforms []model.Platform
	for p := range m.platformFilters {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })
	m.filter.Platforms = platforms
}

// Filter returns the active store filter.
func (m Model) Filter() store.EmailFilter {
	return m.filter
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// SelectedEmail returns the highlighted email, if any.
func (m Model) SelectedEmail() (model.EmailSummary, bool) {
	item, ok := m.list.SelectedItem().(EmailItem)
	if !ok {
		return model.EmailSummary{}, false
	}
	return item.Email, true
}

// Len returns the number of listed emails.
func (m Model) Len() int {
	return len(m.list.Items())
}

// View renders the inbox view.
func (m Model) View() string {
	header := m.renderFilterBar()

	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, header, searchBar, m.list.View())
	}

	if len(m.list.Items()) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, header, m.renderEmptyState())
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, m.list.View())
}

func (m Model) renderFilterBar() string {
	var parts []string
	for _, p := range []model.Platform{model.PlatformGmail, model.PlatformOutlook} {
		style := theme.DimmedStyle
		if m.platformFilters[p] {
			style = theme.PlatformBadgeStyle(string(p))
		}
		parts = append(parts, style.Render(p.Label()))
	}
	if m.filter.Query != "" {
		parts = append(parts, theme.DimmedStyle.Render(fmt.Sprintf("search: %q", m.filter.Query)))
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(parts, "  "))
}

// renderEmptyState shows guidance text when no emails are listed.
func (m Model) renderEmptyState() string {
	hasFilters := len(m.filter.Platforms) > 0 || m.filter.Query != ""

	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height - 2).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case !m.loaded:
		return style.Render("Loading emails...")
	case hasFilters:
		return style.Render("No matching emails.\nTry adjusting your filters.")
	default:
		return style.Render(
			"No emails found.\n\n" +
				"Press a to check account sign-in, or R to refresh.",
		)
	}
}

// LoadEmails returns a tea.Cmd that queries the store with the current filter.
func (m Model) LoadEmails() tea.Cmd {
	filter := store.EmailFilter{
		Platforms: append([]model.Platform(nil), m.filter.Platforms...),
		Query:     m.filter.Query,
	}
	s := m.store
	return func() tea.Msg {
		emails, err := s.GetEmails(context.Background(), filter)
		return EmailsLoadedMsg{Emails: emails, Err: err}
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
