// Package reply implements the reply dialog: it loads the selected email,
// asks the backend for an AI draft, lets the user edit or regenerate it,
// and sends the result through the original provider.
package reply

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/inboxdesk/internal/backend"
	"github.com/nhle/inboxdesk/internal/email"
	"github.com/nhle/inboxdesk/internal/keys"
	"github.com/nhle/inboxdesk/internal/model"
	"github.com/nhle/inboxdesk/internal/render"
	"github.com/nhle/inboxdesk/internal/theme"
	"github.com/nhle/inboxdesk/internal/ui"
)

// Backend is the subset of the mail backend the dialog needs.
type Backend interface {
	EmailDetails(ctx context.Context, platform model.Platform, id string) (*model.EmailDetails, error)
	DraftReply(ctx context.Context, req model.DraftRequest) (*model.Draft, error)
	SendReply(ctx context.Context, req model.SendRequest) (string, error)
}

// Recorder logs sent replies for the session.
type Recorder interface {
	RecordSent(ctx context.Context, reply model.SentReply) (model.SentReply, error)
}

// RefreshInboxMsg asks the inbox to reload after a reply went out.
type RefreshInboxMsg struct{}

// ClosedMsg tells the parent the dialog has closed.
type ClosedMsg struct{}

// detailsLoadedMsg, draftLoadedMsg and sentMsg carry the id of the
// request that produced them. A response whose id is not the one the
// dialog is waiting for is dropped.
type detailsLoadedMsg struct {
	requestID uint64
	details   *model.EmailDetails
	err       error
}

type draftLoadedMsg struct {
	requestID uint64
	draft     *model.Draft
	err       error
}

type sentMsg struct {
	requestID uint64
	message   string
	err       error
}

type closeMsg struct {
	requestID uint64
}

// stage tracks where the dialog is in the load, draft, send sequence.
type stage int

const (
	stageClosed stage = iota
	stageLoadingDetails
	stageDrafting
	stageReady
	stageSending
	stageSent
)

const (
	fieldTo = iota
	fieldSubject
	fieldBody
	fieldCount
)

const loadingText = "Loading..."

// Options configures the dialog.
type Options struct {
	UserName   string
	CloseDelay time.Duration
	Timeout    time.Duration
	Recorder   Recorder
	Logger     *slog.Logger
}

// Model is the reply dialog.
type Model struct {
	backend Backend
	opts    Options
	keys    *keys.KeyMap

	stage    stage
	selected *model.SelectedEmail

	// lastRequestID is the most recently issued id; pendingID is the one
	// the dialog is waiting for, or zero.
	lastRequestID uint64
	pendingID     uint64

	from      string
	subject   string
	original  viewport.Model
	replyTo   textinput.Model
	replySubj textinput.Model
	replyBody textarea.Model
	focus     int
	status    ui.Status
	spinner   spinner.Model
	width     int
	height    int
}

// New creates a closed reply dialog.
func New(b Backend, k *keys.KeyMap, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Minute
	}

	to := textinput.New()
	to.Placeholder = "recipient@example.com"
	to.Prompt = ""

	subj := textinput.New()
	subj.Placeholder = "Subject"
	subj.Prompt = ""

	body := textarea.New()
	body.Placeholder = "Reply body"
	body.ShowLineNumbers = false
	body.Prompt = "│ "
	body.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	m := Model{
		backend:   b,
		opts:      opts,
		keys:      k,
		original:  viewport.New(60, 6),
		replyTo:   to,
		replySubj: subj,
		replyBody: body,
		spinner:   sp,
	}
	m.SetSize(80, 30)
	return m
}

// IsOpen reports whether the dialog is showing.
func (m Model) IsOpen() bool {
	return m.stage != stageClosed
}

// Busy reports whether send and regenerate are disabled.
func (m Model) Busy() bool {
	switch m.stage {
	case stageLoadingDetails, stageDrafting, stageSending, stageSent:
		return true
	}
	return false
}

// Selected returns the email being replied to, or nil.
func (m Model) Selected() *model.SelectedEmail {
	return m.selected
}

// Status returns the dialog's status line.
func (m Model) Status() ui.Status {
	return m.status
}

// Fields returns the current reply-to, subject and body values.
func (m Model) Fields() (to, subject, body string) {
	return m.replyTo.Value(), m.replySubj.Value(), m.replyBody.Value()
}

// SetUserName changes the name sent with later draft requests.
func (m *Model) SetUserName(name string) {
	m.opts.UserName = name
}

// Open starts a reply to e, replacing whatever the dialog was doing.
func (m *Model) Open(e model.EmailSummary) tea.Cmd {
	m.selected = model.NewSelectedEmail(e)
	m.stage = stageLoadingDetails
	m.from = loadingText
	m.subject = loadingText
	m.original.SetContent(loadingText)
	m.original.GotoTop()
	m.replyTo.SetValue("")
	m.replyTo.Placeholder = loadingText
	m.replySubj.SetValue("")
	m.replySubj.Placeholder = loadingText
	m.replyBody.SetValue("")
	m.replyBody.Placeholder = loadingText
	m.status = ui.Info("Loading email details...")

	id := m.nextRequestID()
	m.opts.Logger.Debug("opening reply dialog",
		"platform", e.Platform, "id", e.ID, "request_id", id)

	return tea.Batch(
		m.setFocus(fieldBody),
		m.fetchDetails(id, e.Platform, e.ID),
		m.spinner.Tick,
	)
}

// Close hides the dialog. Responses still in flight become stale.
func (m *Model) Close() tea.Cmd {
	m.stage = stageClosed
	m.pendingID = 0
	m.replyTo.Blur()
	m.replySubj.Blur()
	m.replyBody.Blur()
	return func() tea.Msg { return ClosedMsg{} }
}

func (m *Model) nextRequestID() uint64 {
	m.lastRequestID++
	m.pendingID = m.lastRequestID
	return m.lastRequestID
}

// stale reports whether a response with id should be ignored.
func (m Model) stale(kind string, id uint64) bool {
	if m.stage != stageClosed && id == m.pendingID {
		return false
	}
	m.opts.Logger.Debug("ignoring stale response",
		"kind", kind, "request_id", id, "pending_id", m.pendingID)
	return true
}

// Update handles messages for the reply dialog.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case detailsLoadedMsg:
		if m.stale("details", msg.requestID) {
			return m, nil
		}
		return m.handleDetails(msg)

	case draftLoadedMsg:
		if m.stale("draft", msg.requestID) {
			return m, nil
		}
		return m.handleDraft(msg)

	case sentMsg:
		if m.stale("send", msg.requestID) {
			return m, nil
		}
		return m.handleSent(msg)

	case closeMsg:
		if m.stage != stageSent || msg.requestID != m.pendingID {
			return m, nil
		}
		return m, m.Close()

	case spinner.TickMsg:
		if !m.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m.updateFocused(msg)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, m.Close()

	case key.Matches(msg, m.keys.Send):
		return m.send()

	case key.Matches(msg, m.keys.Regenerate):
		return m.regenerate()

	case key.Matches(msg, m.keys.NextField):
		next := (m.focus + 1) % fieldCount
		if msg.String() == "shift+tab" {
			next = (m.focus + fieldCount - 1) % fieldCount
		}
		return m, m.setFocus(next)

	case msg.String() == "pgup":
		m.original.HalfViewUp()
		return m, nil

	case msg.String() == "pgdown":
		m.original.HalfViewDown()
		return m, nil
	}

	return m.updateFocused(msg)
}

func (m Model) updateFocused(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case fieldTo:
		m.replyTo, cmd = m.replyTo.Update(msg)
	case fieldSubject:
		m.replySubj, cmd = m.replySubj.Update(msg)
	default:
		m.replyBody, cmd = m.replyBody.Update(msg)
	}
	return m, cmd
}

func (m *Model) setFocus(field int) tea.Cmd {
	m.focus = field
	m.replyTo.Blur()
	m.replySubj.Blur()
	m.replyBody.Blur()
	switch field {
	case fieldTo:
		return m.replyTo.Focus()
	case fieldSubject:
		return m.replySubj.Focus()
	default:
		return m.replyBody.Focus()
	}
}

func (m Model) handleDetails(msg detailsLoadedMsg) (Model, tea.Cmd) {
	m.replyTo.Placeholder = "recipient@example.com"
	m.replySubj.Placeholder = "Subject"
	m.replyBody.Placeholder = "Reply body"

	if msg.err != nil {
		text := backend.Message(msg.err)
		m.opts.Logger.Warn("loading email details failed",
			"platform", m.selected.Platform, "id", m.selected.ID, "error", msg.err)
		m.stage = stageReady
		m.pendingID = 0
		m.from = ""
		m.subject = ""
		m.original.SetContent("")
		m.replyBody.SetValue("Error: " + text)
		m.status = ui.Error("Error loading email details: " + text)
		return m, nil
	}

	m.selected.FullDetails = msg.details
	m.from = msg.details.From
	m.subject = msg.details.Subject
	m.original.SetContent(render.Body(msg.details.Body))
	m.original.GotoTop()
	m.replyTo.SetValue(email.ExtractEmailAddress(msg.details.From))
	m.replySubj.SetValue(email.ReplySubject(msg.details.Subject))

	return m, m.startDraft()
}

// startDraft issues a draft request from the cached details.
func (m *Model) startDraft() tea.Cmd {
	d := m.selected.FullDetails
	req := model.DraftRequest{
		Platform: m.selected.Platform,
		UserName: m.opts.UserName,
		Sender:   d.From,
		Subject:  d.Subject,
		Body:     d.Body,
	}

	m.stage = stageDrafting
	m.replyBody.SetValue("")
	m.replyBody.Placeholder = "Generating AI draft..."
	m.status = ui.Info("Generating AI draft...")

	id := m.nextRequestID()
	b, timeout := m.backend, m.opts.Timeout
	return tea.Batch(
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			draft, err := b.DraftReply(ctx, req)
			return draftLoadedMsg{requestID: id, draft: draft, err: err}
		},
		m.spinner.Tick,
	)
}

func (m Model) handleDraft(msg draftLoadedMsg) (Model, tea.Cmd) {
	m.stage = stageReady
	m.pendingID = 0
	m.replyBody.Placeholder = "Reply body"

	if msg.err != nil {
		text := backend.Message(msg.err)
		m.opts.Logger.Warn("draft generation failed", "id", m.selected.ID, "error", msg.err)
		m.replyBody.SetValue("Error generating draft: " + text)
		m.status = ui.Error("Failed to generate AI draft: " + text)
		return m, nil
	}

	m.replyBody.SetValue(msg.draft.Body)
	status := "AI draft generated."
	if len(msg.draft.SharePointDocs) > 0 {
		status += " Consulted: " + strings.Join(msg.draft.SharePointDocs, ", ")
	}
	m.status = ui.Success(status)
	return m, nil
}

func (m Model) regenerate() (Model, tea.Cmd) {
	if m.Busy() {
		return m, nil
	}
	if m.selected == nil || m.selected.FullDetails == nil {
		m.status = ui.Warning("Email details are not loaded; cannot regenerate the draft.")
		return m, nil
	}
	cmd := m.startDraft()
	return m, cmd
}

func (m Model) send() (Model, tea.Cmd) {
	if m.Busy() || m.selected == nil {
		return m, nil
	}

	to, subject, body := m.Fields()
	if err := email.ValidateReply(to, subject, body); err != nil {
		m.status = ui.Warning(capitalize(err.Error()) + ".")
		return m, nil
	}

	inReplyTo, references := m.selected.ThreadingHeaders()
	req := model.SendRequest{
		Platform:          m.selected.Platform,
		OriginalMessageID: m.selected.ID,
		OriginalThreadID:  m.selected.ThreadID,
		To:                strings.TrimSpace(to),
		Subject:           strings.TrimSpace(subject),
		Body:              body,
		InReplyToHeader:   inReplyTo,
		ReferencesHeader:  references,
	}

	m.stage = stageSending
	m.status = ui.Info("Sending reply...")
	id := m.nextRequestID()

	b, rec, timeout, logger := m.backend, m.opts.Recorder, m.opts.Timeout, m.opts.Logger
	return m, tea.Batch(
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			message, err := b.SendReply(ctx, req)
			if err != nil {
				return sentMsg{requestID: id, err: err}
			}

			if rec != nil {
				_, recErr := rec.RecordSent(ctx, model.SentReply{
					Platform:          req.Platform,
					OriginalMessageID: req.OriginalMessageID,
					To:                req.To,
					Subject:           req.Subject,
					Message:           message,
				})
				if recErr != nil {
					logger.Warn("recording sent reply failed", "error", recErr)
				}
			}
			return sentMsg{requestID: id, message: message}
		},
		m.spinner.Tick,
	)
}

func (m Model) handleSent(msg sentMsg) (Model, tea.Cmd) {
	if msg.err != nil {
		text := backend.Message(msg.err)
		m.opts.Logger.Warn("sending reply failed", "id", m.selected.ID, "error", msg.err)
		m.stage = stageReady
		m.pendingID = 0
		m.status = ui.Error("Error sending reply: " + text)
		return m, nil
	}

	text := msg.message
	if strings.TrimSpace(text) == "" {
		text = "Reply sent successfully!"
	}
	m.stage = stageSent
	m.status = ui.Success(text)
	m.opts.Logger.Info("reply sent", "platform", m.selected.Platform, "id", m.selected.ID)

	id := msg.requestID
	return m, tea.Batch(
		func() tea.Msg { return RefreshInboxMsg{} },
		func() tea.Msg { return ui.StatusMsg{Status: ui.Success(text)} },
		tea.Tick(m.opts.CloseDelay, func(time.Time) tea.Msg {
			return closeMsg{requestID: id}
		}),
	)
}

func (m *Model) fetchDetails(id uint64, platform model.Platform, emailID string) tea.Cmd {
	b, timeout := m.backend, m.opts.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		details, err := b.EmailDetails(ctx, platform, emailID)
		return detailsLoadedMsg{requestID: id, details: details, err: err}
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// SetSize updates the dialog dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height

	inner := width - 10
	if inner < 20 {
		inner = 20
	}
	m.replyTo.Width = inner - 12
	m.replySubj.Width = inner - 12
	m.replyBody.SetWidth(inner)

	// Roughly a third of the space for the original, the rest for the draft.
	avail := height - 18
	if avail < 6 {
		avail = 6
	}
	m.original.Width = inner
	m.original.Height = avail / 3
	m.replyBody.SetHeight(avail - avail/3)
}

// View renders the dialog.
func (m Model) View() string {
	if !m.IsOpen() {
		return ""
	}

	inner := m.width - 10
	if inner < 20 {
		inner = 20
	}

	platform := model.Platform("")
	if m.selected != nil {
		platform = m.selected.Platform
	}
	title := theme.TitleStyle.Render("Reply") + " " +
		theme.PlatformBadgeStyle(string(platform)).Render(platform.Label())

	label := func(s string) string {
		return theme.LabelStyle.Width(10).Render(s)
	}
	sep := lipgloss.NewStyle().Foreground(theme.ColorSubtle).Render(strings.Repeat("─", inner))

	status := m.status.Render(inner - 2)
	if m.Busy() && m.stage != stageSent {
		status = m.spinner.View() + " " + status
	}

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		"",
		label("From:")+render.Line(m.from, inner-10),
		label("Subject:")+render.Line(m.subject, inner-10),
		sep,
		m.original.View(),
		sep,
		label("Reply-To:")+m.replyTo.View(),
		label("Subject:")+m.replySubj.View(),
		label("Body:"),
		m.replyBody.View(),
		"",
		status,
		m.renderHints(),
	)

	return theme.ModalStyle.Width(m.width - 4).Render(content)
}

func (m Model) renderHints() string {
	hint := func(b key.Binding, enabled bool) string {
		h := b.Help()
		text := fmt.Sprintf("%s %s", h.Key, h.Desc)
		if !enabled {
			return lipgloss.NewStyle().Foreground(theme.ColorSubtle).Strikethrough(true).Render(text)
		}
		return theme.HelpStyle.Render(text)
	}

	enabled := !m.Busy()
	return strings.Join([]string{
		hint(m.keys.Regenerate, enabled),
		hint(m.keys.Send, enabled),
		hint(m.keys.NextField, true),
		hint(m.keys.Back, true),
	}, theme.HelpStyle.Render(" · "))
}
