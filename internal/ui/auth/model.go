package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/nhle/inboxdesk/internal/backend"
	"github.com/nhle/inboxdesk/internal/keys"
	"github.com/nhle/inboxdesk/internal/model"
	"github.com/nhle/inboxdesk/internal/render"
	"github.com/nhle/inboxdesk/internal/theme"
	"github.com/nhle/inboxdesk/internal/ui"
)

// Client is the subset of the mail backend the auth view needs.
type Client interface {
	AuthStatus(ctx context.Context) (*model.AuthStatus, error)
	InitiateGmailAuth(ctx context.Context) (string, error)
	InitiateMicrosoftAuth(ctx context.Context) (*model.DeviceCode, error)
}

type statusLoadedMsg struct {
	status *model.AuthStatus
	err    error
}

type gmailStartedMsg struct {
	url string
	err error
}

type deviceCodeMsg struct {
	code *model.DeviceCode
	err  error
}

// Model shows integration readiness and drives the sign-in flows.
type Model struct {
	client  Client
	keys    *keys.KeyMap
	spinner spinner.Model
	logger  *slog.Logger
	timeout time.Duration

	auth       *model.AuthStatus
	gmailURL   string
	deviceCode *model.DeviceCode
	qr         string
	status     ui.Status
	busy       bool
	width      int
	height     int
}

// New creates the auth view.
func New(c Client, k *keys.KeyMap, timeout time.Duration, logger *slog.Logger, width, height int) Model {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)
	return Model{
		client:  c,
		keys:    k,
		spinner: sp,
		logger:  logger,
		timeout: timeout,
		width:   width,
		height:  height,
	}
}

// Load fetches the current authentication status.
func (m *Model) Load() tea.Cmd {
	m.busy = true
	c, timeout := m.client, m.timeout
	return tea.Batch(func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s, err := c.AuthStatus(ctx)
		return statusLoadedMsg{status: s, err: err}
	}, m.spinner.Tick)
}

// AuthStatus returns the last loaded status, or nil.
func (m Model) AuthStatus() *model.AuthStatus {
	return m.auth
}

// Status returns the view's status line.
func (m Model) Status() ui.Status {
	return m.status
}

// Update handles messages for the auth view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statusLoadedMsg:
		m.busy = false
		if msg.err != nil {
			m.logger.Warn("auth status check failed", "error", msg.err)
			m.status = ui.Error("Could not check auth status: " + backend.Message(msg.err))
			return m, nil
		}
		m.auth = msg.status
		return m, nil

	case gmailStartedMsg:
		m.busy = false
		if msg.err != nil {
			m.status = ui.Error("Gmail sign-in failed: " + backend.Message(msg.err))
			return m, nil
		}
		m.gmailURL = msg.url
		m.deviceCode = nil
		m.qr = qrFor(msg.url)
		m.status = ui.Info("Open the link below to authorize Gmail, then press R.")
		return m, nil

	case deviceCodeMsg:
		m.busy = false
		if msg.err != nil {
			m.status = ui.Error("Microsoft sign-in failed: " + backend.Message(msg.err))
			return m, nil
		}
		m.deviceCode = msg.code
		m.gmailURL = ""
		m.qr = qrFor(msg.code.VerificationURI)
		m.status = ui.Info("Enter the code on the Microsoft page, then press R.")
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.GmailAuth):
			return m.startGmail()
		case key.Matches(msg, m.keys.MicrosoftAuth):
			return m.startMicrosoft()
		case key.Matches(msg, m.keys.Refresh):
			m.status = ui.Status{}
			return m, m.Load()
		}
	}
	return m, nil
}

func (m Model) startGmail() (Model, tea.Cmd) {
	m.busy = true
	m.status = ui.Info("Starting Gmail sign-in...")
	c, timeout := m.client, m.timeout
	return m, tea.Batch(func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		url, err := c.InitiateGmailAuth(ctx)
		return gmailStartedMsg{url: url, err: err}
	}, m.spinner.Tick)
}

func (m Model) startMicrosoft() (Model, tea.Cmd) {
	m.busy = true
	m.status = ui.Info("Requesting a Microsoft device code...")
	c, timeout := m.client, m.timeout
	return m, tea.Batch(func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		code, err := c.InitiateMicrosoftAuth(ctx)
		return deviceCodeMsg{code: code, err: err}
	}, m.spinner.Tick)
}

// qrFor renders content as a terminal QR code, or "" when it cannot be encoded.
func qrFor(content string) string {
	if content == "" {
		return ""
	}
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return ""
	}
	return strings.TrimRight(q.ToSmallString(false), "\n")
}

func readyLine(label string, ready bool) string {
	state := "not connected"
	if ready {
		state = "ready"
	}
	return fmt.Sprintf("%-12s %s", label, theme.ReadyStyle(ready).Render(state))
}

// View renders the auth view.
func (m Model) View() string {
	sections := []string{theme.TitleStyle.Render("Accounts"), ""}

	if m.auth == nil {
		sections = append(sections, theme.DimmedStyle.Render("Status unknown."))
	} else {
		sections = append(sections,
			readyLine("Gmail", m.auth.Gmail),
			readyLine("Outlook", m.auth.Outlook),
			readyLine("SharePoint", m.auth.SharePointReady),
		)
	}

	if m.gmailURL != "" {
		sections = append(sections, "",
			theme.LabelStyle.Render("Authorization URL:"),
			render.Line(m.gmailURL, 0),
		)
	}
	if dc := m.deviceCode; dc != nil {
		sections = append(sections, "")
		if dc.Message != "" {
			sections = append(sections, lipgloss.NewStyle().Width(m.width-8).Render(render.Line(dc.Message, 0)))
		}
		sections = append(sections,
			theme.LabelStyle.Render("Visit: ")+render.Line(dc.VerificationURI, 0),
			theme.LabelStyle.Render("Code:  ")+theme.TitleStyle.Render(render.Line(dc.UserCode, 0)),
		)
		if dc.ExpiresIn > 0 {
			sections = append(sections, theme.DimmedStyle.Render(fmt.Sprintf("Expires in %d minutes.", dc.ExpiresIn/60)))
		}
	}
	if m.qr != "" && m.height > 30 {
		sections = append(sections, "", m.qr)
	}

	status := m.status.Render(m.width - 6)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	hints := theme.HelpStyle.Render(fmt.Sprintf("%s gmail · %s microsoft · %s refresh · %s back",
		m.keys.GmailAuth.Help().Key,
		m.keys.MicrosoftAuth.Help().Key,
		m.keys.Refresh.Help().Key,
		m.keys.Back.Help().Key,
	))
	sections = append(sections, "", status, hints)

	return theme.PanelStyle.Width(m.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
