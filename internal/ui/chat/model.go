package chat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/inboxdesk/internal/backend"
	chathistory "github.com/nhle/inboxdesk/internal/chat"
	"github.com/nhle/inboxdesk/internal/keys"
	"github.com/nhle/inboxdesk/internal/model"
	"github.com/nhle/inboxdesk/internal/render"
	"github.com/nhle/inboxdesk/internal/theme"
	"github.com/nhle/inboxdesk/internal/ui"
)

// Asker sends a question to the knowledge-base backend.
type Asker interface {
	Ask(ctx context.Context, query, history string) (*model.ChatAnswer, error)
}

// ChatCloseMsg signals the parent to leave the chat panel.
type ChatCloseMsg struct{}

// answerMsg carries a backend answer for the request with requestID.
type answerMsg struct {
	requestID uint64
	question  string
	answer    *model.ChatAnswer
	err       error
}

type exportedMsg struct {
	path string
	err  error
}

const (
	roleYou       = "You"
	roleAssistant = "Assistant"
	roleError     = "Error"
)

// displayMessage is a message rendered in the conversation viewport.
type displayMessage struct {
	Role    string
	Content string
	Sources []model.DocumentRef
}

// Options configures the chat panel.
type Options struct {
	// ExportDir receives HTML transcripts. Defaults to the working directory.
	ExportDir string
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Model is the knowledge-base chat panel.
type Model struct {
	asker    Asker
	history  *chathistory.History
	opts     Options
	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	messages []displayMessage
	keys     *keys.KeyMap

	waiting       bool
	lastRequestID uint64
	pendingID     uint64

	width  int
	height int
	now    func() time.Time
}

// New creates a new chat panel.
func New(a Asker, k *keys.KeyMap, opts Options, width, height int) Model {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Minute
	}

	ta := textarea.New()
	ta.Placeholder = "Ask about your SharePoint documents..."
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.CharLimit = 2000
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	m := Model{
		asker:    a,
		history:  chathistory.NewHistory(),
		opts:     opts,
		input:    ta,
		viewport: viewport.New(width-4, 4),
		spinner:  sp,
		messages: make([]displayMessage, 0),
		keys:     k,
		now:      time.Now,
	}
	m.SetSize(width, height)
	m.refreshViewport()
	return m
}

// Init returns the initial command for the chat panel.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// History returns the bounded conversation sent with each query.
func (m Model) History() *chathistory.History {
	return m.history
}

// Waiting reports whether a question is in flight.
func (m Model) Waiting() bool {
	return m.waiting
}

// Update handles messages for the chat panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case answerMsg:
		return m.handleAnswer(msg)

	case exportedMsg:
		if msg.err != nil {
			m.opts.Logger.Warn("exporting transcript failed", "error", msg.err)
			return m, statusCmd(ui.Error("Export failed: " + msg.err.Error()))
		}
		return m, statusCmd(ui.Success("Transcript saved to " + msg.path))

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshViewport()
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	var cmds []tea.Cmd

	var taCmd tea.Cmd
	m.input, taCmd = m.input.Update(msg)
	if taCmd != nil {
		cmds = append(cmds, taCmd)
	}

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	if vpCmd != nil {
		cmds = append(cmds, vpCmd)
	}

	return m, tea.Batch(cmds...)
}

// handleKeyMsg processes keyboard input for the chat panel.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return ChatCloseMsg{} }

	case key.Matches(msg, m.keys.ClearChat):
		m.Reset()
		return m, statusCmd(ui.Info("Conversation cleared."))

	case key.Matches(msg, m.keys.ExportChat):
		return m, m.Export()

	case key.Matches(msg, m.keys.Ask):
		return m.ask()

	case msg.String() == "pgup":
		m.viewport.HalfViewUp()
		return m, nil

	case msg.String() == "pgdown":
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask() (Model, tea.Cmd) {
	if m.waiting {
		return m, nil
	}

	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	m.input.Reset()
	m.messages = append(m.messages, displayMessage{Role: roleYou, Content: text})
	m.waiting = true
	m.lastRequestID++
	m.pendingID = m.lastRequestID
	m.refreshViewport()

	id := m.pendingID
	history := m.history.Format()
	a, timeout := m.asker, m.opts.Timeout
	return m, tea.Batch(
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			answer, err := a.Ask(ctx, text, history)
			return answerMsg{requestID: id, question: text, answer: answer, err: err}
		},
		m.spinner.Tick,
	)
}

func (m Model) handleAnswer(msg answerMsg) (Model, tea.Cmd) {
	if msg.requestID != m.pendingID {
		m.opts.Logger.Debug("ignoring stale chat answer",
			"request_id", msg.requestID, "pending_id", m.pendingID)
		return m, nil
	}

	m.waiting = false
	m.pendingID = 0

	if msg.err != nil {
		m.opts.Logger.Warn("chat request failed", "error", msg.err)
		m.messages = append(m.messages, displayMessage{
			Role:    roleError,
			Content: "Sorry, I encountered an error: " + backend.Message(msg.err),
		})
		m.refreshViewport()
		return m, nil
	}

	m.history.AddExchange(msg.question, msg.answer.Response)
	m.messages = append(m.messages, displayMessage{
		Role:    roleAssistant,
		Content: msg.answer.Response,
		Sources: msg.answer.Sources,
	})
	m.refreshViewport()
	return m, nil
}

// Export writes the conversation to an HTML file.
func (m Model) Export() tea.Cmd {
	var entries []render.TranscriptEntry
	for _, msg := range m.messages {
		switch msg.Role {
		case roleYou:
			entries = append(entries, render.TranscriptEntry{
				Turn: model.ChatTurn{Role: model.RoleUser, Content: msg.Content},
			})
		case roleAssistant:
			entries = append(entries, render.TranscriptEntry{
				Turn:    model.ChatTurn{Role: model.RoleAssistant, Content: msg.Content},
				Sources: msg.Sources,
			})
		}
	}
	if len(entries) == 0 {
		return statusCmd(ui.Warning("Nothing to export yet."))
	}

	now := m.now()
	dir := m.opts.ExportDir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, "chat-transcript-"+now.Format("20060102-150405")+".html")

	return func() tea.Msg {
		f, err := os.Create(path)
		if err != nil {
			return exportedMsg{err: fmt.Errorf("creating %s: %w", path, err)}
		}
		if err := render.WriteTranscript(f, "Knowledge base chat", now, entries); err != nil {
			f.Close()
			return exportedMsg{err: err}
		}
		if err := f.Close(); err != nil {
			return exportedMsg{err: fmt.Errorf("closing %s: %w", path, err)}
		}
		return exportedMsg{path: path}
	}
}

func statusCmd(s ui.Status) tea.Cmd {
	return func() tea.Msg { return ui.StatusMsg{Status: s} }
}

// refreshViewport re-renders the conversation content and scrolls to bottom.
func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

// renderConversation builds the conversation display string.
func (m Model) renderConversation() string {
	if len(m.messages) == 0 {
		return lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("Ask a question about the documents in your knowledge base. " +
				"Answers cite the documents they came from.")
	}

	width := m.viewport.Width - 2
	if width < 10 {
		width = 10
	}
	wrap := lipgloss.NewStyle().Width(width)

	var sections []string
	for _, msg := range m.messages {
		content := render.Sanitize(msg.Content)
		switch msg.Role {
		case roleYou:
			sections = append(sections, theme.UserMsgStyle.Render("You:"))
			sections = append(sections, wrap.Render(content))
		case roleError:
			sections = append(sections, theme.ChatErrorStyle.Render("Assistant:"))
			sections = append(sections, theme.ChatErrorStyle.Width(width).Render(content))
		default:
			sections = append(sections, theme.TitleStyle.Render("Assistant:"))
			sections = append(sections, theme.AssistantMsgStyle.Width(width).Render(content))
			if len(msg.Sources) > 0 {
				sections = append(sections, theme.LabelStyle.Render("Sources:"))
				for _, s := range msg.Sources {
					sections = append(sections, theme.SourceStyle.Render("  • "+formatSource(s, width-4)))
				}
			}
		}
		sections = append(sections, "")
	}

	if m.waiting {
		sections = append(sections, m.spinner.View()+theme.HelpStyle.Render(" thinking..."))
	}

	return strings.Join(sections, "\n")
}

func formatSource(s model.DocumentRef, width int) string {
	name := s.Name
	if name == "" {
		name = s.Path
	}
	text := name
	if s.WebURL != "" {
		text += " (" + s.WebURL + ")"
	} else if s.Path != "" && s.Path != name {
		text += " (" + s.Path + ")"
	}
	return render.Line(text, width)
}

// View renders the chat panel.
func (m Model) View() string {
	title := theme.TitleStyle.MarginBottom(1).Render("Knowledge Base Chat")

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(
		strings.Repeat("─", max(min(m.width-6, 80), 1)),
	)

	hints := theme.HelpStyle.Render(strings.Join([]string{
		helpText(m.keys.Ask), helpText(m.keys.ClearChat),
		helpText(m.keys.ExportChat), helpText(m.keys.Back),
	}, " · "))

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		m.viewport.View(),
		separator,
		m.input.View(),
		hints,
	)

	return theme.PanelStyle.
		Width(m.width - 4).
		Render(content)
}

func helpText(b key.Binding) string {
	h := b.Help()
	return h.Key + " " + h.Desc
}

// SetSize updates the chat panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.SetWidth(width - 6)

	vpHeight := height - 10
	if vpHeight < 4 {
		vpHeight = 4
	}
	m.viewport.Width = width - 6
	m.viewport.Height = vpHeight
	m.refreshViewport()
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}

// Reset clears the conversation. An answer still in flight is dropped
// when it arrives.
func (m *Model) Reset() {
	m.messages = m.messages[:0]
	m.waiting = false
	m.pendingID = 0
	m.history.Reset()
	m.input.Reset()
	m.refreshViewport()
}
