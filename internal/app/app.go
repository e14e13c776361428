package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/inboxdesk/internal/backend"
	"github.com/nhle/inboxdesk/internal/config"
	"github.com/nhle/inboxdesk/internal/keys"
	"github.com/nhle/inboxdesk/internal/store"
	appsync "github.com/nhle/inboxdesk/internal/sync"
	"github.com/nhle/inboxdesk/internal/ui"
	authview "github.com/nhle/inboxdesk/internal/ui/auth"
	chatview "github.com/nhle/inboxdesk/internal/ui/chat"
	"github.com/nhle/inboxdesk/internal/ui/command"
	docsview "github.com/nhle/inboxdesk/internal/ui/docs"
	helpview "github.com/nhle/inboxdesk/internal/ui/help"
	"github.com/nhle/inboxdesk/internal/ui/inbox"
	"github.com/nhle/inboxdesk/internal/ui/reply"
	"github.com/nhle/inboxdesk/internal/ui/setup"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewInbox ViewState = iota
	ViewChat
	ViewDocs
	ViewAuth
	ViewSetup
	ViewHelp
	ViewCommand
)

// tabs are the views reachable with the NextView key, in order.
var tabs = []struct {
	view  ViewState
	title string
}{
	{ViewInbox, "Inbox"},
	{ViewChat, "Chat"},
	{ViewDocs, "Docs"},
	{ViewAuth, "Auth"},
}

// MailBackend is everything the dashboard asks of the mail backend.
type MailBackend interface {
	reply.Backend
	authview.Client
}

// ChatBackend is everything the dashboard asks of the chat backend.
type ChatBackend interface {
	chatview.Asker
	docsview.Client
}

// Deps wires the root model to its collaborators.
type Deps struct {
	Config     *config.AppConfig
	ConfigPath string
	Store      store.Store
	Mail       MailBackend
	Chat       ChatBackend
	Poller     *appsync.Poller
	Logger     *slog.Logger
	// FirstRun opens the setup form before anything talks to the backends.
	FirstRun bool
	// Validate tests backend connectivity after setup saves.
	Validate setup.Validator
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and the shared status banner.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	cfg          *config.AppConfig
	logger       *slog.Logger

	inbox       inbox.Model
	reply       reply.Model
	chat        chatview.Model
	docs        docsview.Model
	auth        authview.Model
	setup       setup.Model
	helpView    helpview.Model
	commandView command.Model

	poller   *appsync.Poller
	firstRun bool
	banner   ui.Status
	ready    bool
}

// New creates the root application model.
func New(d Deps) Model {
	k := keys.DefaultKeyMap()
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg := d.Config
	view := ViewInbox
	if d.FirstRun {
		view = ViewSetup
	}

	return Model{
		currentView: view,
		keys:        k,
		cfg:         cfg,
		logger:      logger,
		inbox:       inbox.New(d.Store, k, 80, 24),
		reply: reply.New(d.Mail, k, reply.Options{
			UserName:   cfg.User.Name,
			CloseDelay: cfg.CloseDelay(),
			Timeout:    cfg.Timeout(),
			Recorder:   d.Store,
			Logger:     logger.With("component", "reply"),
		}),
		chat: chatview.New(d.Chat, k, chatview.Options{
			Timeout: cfg.Timeout(),
			Logger:  logger.With("component", "chat"),
		}, 80, 24),
		docs: docsview.New(d.Chat, k, cfg.Timeout(), logger.With("component", "docs"), 80, 24),
		auth: authview.New(d.Mail, k, cfg.Timeout(), logger.With("component", "auth"), 80, 24),
		setup: setup.New(cfg, k, setup.Options{
			Path:     d.ConfigPath,
			Validate: d.Validate,
		}, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		poller:      d.Poller,
		firstRun:    d.FirstRun,
	}
}

// Init opens the setup form on first run; otherwise it loads the inbox
// snapshot and starts polling.
func (m Model) Init() tea.Cmd {
	if m.firstRun {
		return m.setup.Init()
	}
	return tea.Batch(m.inbox.Init(), m.startPolling())
}

// startPolling is a no-op once the poller is running.
func (m Model) startPolling() tea.Cmd {
	if m.poller == nil {
		return nil
	}
	return m.poller.Start()
}

// CurrentView returns the active view.
func (m Model) CurrentView() ViewState {
	return m.currentView
}

// Banner returns the shared status banner.
func (m Model) Banner() ui.Status {
	return m.banner
}

// Update handles messages and dispatches to the sub-views.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.inbox.SetSize(w, h)
		m.reply.SetSize(w, h)
		m.chat.SetSize(w, h)
		m.docs.SetSize(w, h)
		m.auth.SetSize(w, h)
		m.setup.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		var cmd tea.Cmd
		m.setup, cmd = m.setup.Update(msg)
		return m, cmd

	case ui.StatusMsg:
		m.banner = msg.Status
		return m, nil

	case appsync.InboxResultMsg:
		cmd := m.handleInboxResult(msg)
		if m.poller != nil {
			cmd = tea.Batch(cmd, m.poller.WaitForNextResult())
		}
		return m, cmd

	case inbox.DraftReplyMsg:
		return m, m.reply.Open(msg.Email)

	case inbox.RefreshRequestMsg, reply.RefreshInboxMsg:
		return m, m.refresh()

	case reply.ClosedMsg:
		return m, nil

	case chatview.ChatCloseMsg:
		m.currentView = ViewInbox
		return m, nil

	case setup.SavedMsg:
		m.cfg = msg.Config
		m.reply.SetUserName(msg.Config.User.Name)
		m.banner = ui.Success("Settings saved. Backend URL changes apply on restart.")
		return m, nil

	case setup.DoneMsg:
		m.currentView = ViewInbox
		if m.firstRun {
			m.firstRun = false
			return m, tea.Batch(m.inbox.Init(), m.startPolling())
		}
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m.executeCommand(string(msg))

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m.broadcast(msg)
}

// broadcast delivers a non-key message to every sub-view. Responses to
// background commands must reach their view even when it is not on screen.
func (m Model) broadcast(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.reply, cmd = m.reply.Update(msg)
	cmds = append(cmds, cmd)
	m.inbox, cmd = m.inbox.Update(msg)
	cmds = append(cmds, cmd)
	m.chat, cmd = m.chat.Update(msg)
	cmds = append(cmds, cmd)
	m.docs, cmd = m.docs.Update(msg)
	cmds = append(cmds, cmd)
	m.auth, cmd = m.auth.Update(msg)
	cmds = append(cmds, cmd)
	if m.currentView == ViewSetup {
		m.setup, cmd = m.setup.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.currentView == ViewCommand {
		m.commandView, cmd = m.commandView.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleInboxResult(msg appsync.InboxResultMsg) tea.Cmd {
	if msg.Error != nil {
		m.logger.Warn("inbox refresh failed", "error", msg.Error)
		m.banner = ui.Error("Could not refresh inbox: " + backend.Message(msg.Error))
		return nil
	}
	switch {
	case msg.NewCount == 1:
		m.banner = ui.Info("1 new email")
	case msg.NewCount > 1:
		m.banner = ui.Info(fmt.Sprintf("%d new emails", msg.NewCount))
	case m.banner.Text == refreshingText:
		m.banner = ui.Success(fmt.Sprintf("Inbox up to date (%d emails)", msg.Count))
	}
	return m.inbox.LoadEmails()
}

const refreshingText = "Refreshing inbox..."

func (m *Model) refresh() tea.Cmd {
	if m.poller == nil {
		return nil
	}
	m.banner = ui.Info(refreshingText)
	return m.poller.Refresh()
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	// The reply dialog is modal.
	if m.reply.IsOpen() {
		var cmd tea.Cmd
		m.reply, cmd = m.reply.Update(msg)
		return m, cmd
	}

	switch m.currentView {
	case ViewSetup:
		var cmd tea.Cmd
		m.setup, cmd = m.setup.Update(msg)
		return m, cmd

	case ViewChat:
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(msg)
		return m, cmd

	case ViewHelp:
		if key.Matches(msg, m.keys.Help, m.keys.Back, m.keys.Quit) {
			m.currentView = m.previousView
		}
		return m, nil

	case ViewCommand:
		if key.Matches(msg, m.keys.Back) {
			m.currentView = m.previousView
			return m, nil
		}
		var cmd tea.Cmd
		m.commandView, cmd = m.commandView.Update(msg)
		return m, cmd

	case ViewInbox:
		if m.inbox.Searching() {
			var cmd tea.Cmd
			m.inbox, cmd = m.inbox.Update(msg)
			return m, cmd
		}
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Help):
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m, m.commandView.Focus()

	case key.Matches(msg, m.keys.NextView):
		return m.switchTo(m.nextTab())

	case key.Matches(msg, m.keys.Back) && m.currentView != ViewInbox:
		m.currentView = ViewInbox
		return m, nil

	case m.currentView == ViewInbox && key.Matches(msg, m.keys.Chat):
		return m.switchTo(ViewChat)

	case m.currentView == ViewInbox && key.Matches(msg, m.keys.Docs):
		return m.switchTo(ViewDocs)

	case m.currentView == ViewInbox && key.Matches(msg, m.keys.Auth):
		return m.switchTo(ViewAuth)
	}

	var cmd tea.Cmd
	switch m.currentView {
	case ViewInbox:
		m.inbox, cmd = m.inbox.Update(msg)
	case ViewDocs:
		m.docs, cmd = m.docs.Update(msg)
	case ViewAuth:
		m.auth, cmd = m.auth.Update(msg)
	}
	return m, cmd
}

func (m Model) nextTab() ViewState {
	for i, t := range tabs {
		if t.view == m.currentView {
			return tabs[(i+1)%len(tabs)].view
		}
	}
	return ViewInbox
}

// switchTo activates v, loading its data when it is opened.
func (m Model) switchTo(v ViewState) (tea.Model, tea.Cmd) {
	m.previousView = m.currentView
	m.currentView = v
	switch v {
	case ViewChat:
		return m, m.chat.Focus()
	case ViewDocs:
		return m, m.docs.Load()
	case ViewAuth:
		return m, m.auth.Load()
	case ViewSetup:
		return m, m.setup.Start()
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.poller != nil {
		m.poller.Stop()
	}
	return m, tea.Quit
}

// executeCommand handles a command name from the command palette.
func (m Model) executeCommand(name string) (tea.Model, tea.Cmd) {
	switch name {
	case "inbox":
		m.currentView = ViewInbox
		return m, nil
	case "refresh":
		return m, m.refresh()
	case "chat":
		return m.switchTo(ViewChat)
	case "docs":
		return m.switchTo(ViewDocs)
	case "auth":
		return m.switchTo(ViewAuth)
	case "setup":
		return m.switchTo(ViewSetup)
	case "export":
		m.currentView = ViewChat
		return m, m.chat.Export()
	case "clear":
		m.currentView = ViewChat
		m.chat.Reset()
		return m, func() tea.Msg { return ui.StatusMsg{Status: ui.Info("Conversation cleared.")} }
	case "quit":
		return m.quit()
	}
	return m, nil
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("inboxdesk", m.renderTabs()+"  "+m.syncStatus())
	banner := m.banner.Render(m.layout.Width)
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, m.renderContent(), banner, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	if m.reply.IsOpen() {
		return m.layout.Center(m.reply.View())
	}
	switch m.currentView {
	case ViewInbox:
		return m.inbox.View()
	case ViewChat:
		return m.chat.View()
	case ViewDocs:
		return m.docs.View()
	case ViewAuth:
		return m.auth.View()
	case ViewSetup:
		return m.setup.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

func (m Model) renderTabs() string {
	titles := make([]string, len(tabs))
	active := -1
	for i, t := range tabs {
		titles[i] = t.title
		if t.view == m.currentView {
			active = i
		}
	}
	return m.layout.RenderTabs(titles, active)
}

// syncStatus returns a short string describing the inbox refresh state.
func (m Model) syncStatus() string {
	if m.poller == nil {
		return ""
	}
	s := m.poller.Status()
	switch s.State {
	case appsync.SyncRunning:
		return "syncing"
	case appsync.SyncError:
		return "⚠ backend unreachable"
	}
	if s.LastSync.IsZero() {
		return "idle"
	}
	return "synced " + s.LastSync.Format("15:04")
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.reply.IsOpen() {
		return "ctrl+g regenerate | ctrl+s send | tab field | pgup/pgdn scroll | esc cancel"
	}
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewChat:
		return "enter ask | ctrl+r clear | ctrl+e export | pgup/pgdn scroll | esc back"
	case ViewDocs:
		return "u update knowledge base | R reload | tab next view | esc back"
	case ViewAuth:
		return "g gmail | m microsoft | R refresh | tab next view | esc back"
	case ViewSetup:
		return "enter next | shift+tab back | esc cancel"
	default:
		if summary := filterSummary(m.inbox.Filter()); summary != "" {
			return summary + " | q quit | ? help"
		}
		return "q quit | ? help | r reply | R refresh | / search | 1 gmail | 2 outlook | c chat | d docs | a auth"
	}
}

func filterSummary(f store.EmailFilter) string {
	var parts []string
	for _, p := range f.Platforms {
		parts = append(parts, p.Label())
	}
	if f.Query != "" {
		parts = append(parts, fmt.Sprintf("%q", f.Query))
	}
	if len(parts) == 0 {
		return ""
	}
	return "filter: " + strings.Join(parts, ", ")
}

// ValidateBackend returns a setup.Validator that asks the mail backend for
// its auth status with a client built from the saved settings.
func ValidateBackend(opts ...backend.Option) setup.Validator {
	return func(ctx context.Context, cfg *config.AppConfig) error {
		c := backend.NewMailClient(backend.NewClient(cfg.Backend.MailURL, cfg.Timeout(), opts...))
		if _, err := c.AuthStatus(ctx); err != nil {
			return fmt.Errorf("checking %s: %w", cfg.Backend.MailURL, err)
		}
		return nil
	}
}
