package docs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/inboxdesk/internal/backend"
	"github.com/nhle/inboxdesk/internal/keys"
	"github.com/nhle/inboxdesk/internal/model"
	"github.com/nhle/inboxdesk/internal/render"
	"github.com/nhle/inboxdesk/internal/theme"
	"github.com/nhle/inboxdesk/internal/ui"
)

// Client is the subset of the chat backend the documents view needs.
type Client interface {
	ListDocuments(ctx context.Context) ([]model.DocumentRef, error)
	UpdateKnowledgeBase(ctx context.Context) (*model.KnowledgeBaseUpdate, error)
}

type documentsLoadedMsg struct {
	docs []model.DocumentRef
	err  error
}

type updatedMsg struct {
	update *model.KnowledgeBaseUpdate
	err    error
}

// Model lists the indexed knowledge-base documents.
type Model struct {
	client   Client
	keys     *keys.KeyMap
	table    table.Model
	spinner  spinner.Model
	docs     []model.DocumentRef
	status   ui.Status
	loading  bool
	updating bool
	timeout  time.Duration
	logger   *slog.Logger
	width    int
	height   int
}

// New creates the documents view.
func New(c Client, k *keys.KeyMap, timeout time.Duration, logger *slog.Logger, width, height int) Model {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Foreground(theme.ColorBlue).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.ColorBorder).
		BorderBottom(true)
	styles.Selected = styles.Selected.Foreground(theme.ColorBlue)

	t := table.New(
		table.WithColumns(columns(width)),
		table.WithFocused(true),
		table.WithStyles(styles),
	)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	m := Model{
		client:  c,
		keys:    k,
		table:   t,
		spinner: sp,
		timeout: timeout,
		logger:  logger,
	}
	m.SetSize(width, height)
	return m
}

func columns(width int) []table.Column {
	name := width / 3
	if name < 16 {
		name = 16
	}
	rest := width - name - 10
	if rest < 20 {
		rest = 20
	}
	return []table.Column{
		{Title: "Name", Width: name},
		{Title: "Path", Width: rest / 2},
		{Title: "Link", Width: rest - rest/2},
	}
}

// Load fetches the document list.
func (m *Model) Load() tea.Cmd {
	if m.loading {
		return nil
	}
	m.loading = true
	c, timeout := m.client, m.timeout
	return tea.Batch(
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			docs, err := c.ListDocuments(ctx)
			return documentsLoadedMsg{docs: docs, err: err}
		},
		m.spinner.Tick,
	)
}

// Documents returns the currently listed documents.
func (m Model) Documents() []model.DocumentRef {
	return m.docs
}

// Status returns the view's status line.
func (m Model) Status() ui.Status {
	return m.status
}

// Update handles messages for the documents view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case documentsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.logger.Warn("listing indexed documents failed", "error", msg.err)
			m.status = ui.Error("Could not load documents: " + backend.Message(msg.err))
			return m, nil
		}
		m.docs = msg.docs
		rows := make([]table.Row, len(msg.docs))
		for i, d := range msg.docs {
			rows[i] = table.Row{render.Line(d.Name, 0), render.Line(d.Path, 0), render.Line(d.WebURL, 0)}
		}
		m.table.SetRows(rows)
		if !m.updating && m.status.Level != ui.LevelSuccess {
			m.status = ui.Info(fmt.Sprintf("%d documents indexed.", len(msg.docs)))
		}
		return m, nil

	case updatedMsg:
		m.updating = false
		if msg.err != nil {
			m.logger.Warn("knowledge base update failed", "error", msg.err)
			m.status = ui.Error("Knowledge base update failed: " + backend.Message(msg.err))
			return m, nil
		}
		text := msg.update.Message
		if text == "" {
			text = "Knowledge base updated."
		}
		m.status = ui.Success(fmt.Sprintf("%s (%d indexed)", text, msg.update.Indexed))
		return m, m.Load()

	case spinner.TickMsg:
		if !m.loading && !m.updating {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.UpdateKB):
			return m.startUpdate()
		case key.Matches(msg, m.keys.Refresh):
			return m, m.Load()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) startUpdate() (Model, tea.Cmd) {
	if m.updating {
		return m, nil
	}
	m.updating = true
	m.status = ui.Info("Updating knowledge base. This can take a few minutes...")

	c, timeout := m.client, m.timeout
	return m, tea.Batch(
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			update, err := c.UpdateKnowledgeBase(ctx)
			return updatedMsg{update: update, err: err}
		},
		m.spinner.Tick,
	)
}

// View renders the documents view.
func (m Model) View() string {
	title := theme.TitleStyle.Render("Knowledge Base Documents")

	status := m.status.Render(m.width - 6)
	if m.loading || m.updating {
		status = m.spinner.View() + " " + status
	}

	body := m.table.View()
	if len(m.docs) == 0 && !m.loading {
		body = theme.DimmedStyle.Render("No documents indexed yet. Press u to build the index.")
	}

	hints := theme.HelpStyle.Render(fmt.Sprintf("%s %s · %s %s · %s %s",
		m.keys.UpdateKB.Help().Key, m.keys.UpdateKB.Help().Desc,
		m.keys.Refresh.Help().Key, "reload list",
		m.keys.Back.Help().Key, m.keys.Back.Help().Desc,
	))

	return theme.PanelStyle.Width(m.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", status, hints),
	)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetColumns(columns(width - 8))
	m.table.SetWidth(width - 6)
	h := height - 9
	if h < 3 {
		h = 3
	}
	m.table.SetHeight(h)
}
