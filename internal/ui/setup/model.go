package setup

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/inboxdesk/internal/backend"
	"github.com/nhle/inboxdesk/internal/config"
	"github.com/nhle/inboxdesk/internal/credential"
	"github.com/nhle/inboxdesk/internal/keys"
	"github.com/nhle/inboxdesk/internal/theme"
)

// Mode represents the current state of the setup view.
type Mode int

const (
	ModeForm       Mode = iota // Editing settings
	ModeSaving                 // Writing the file and token
	ModeValidating             // Testing the mail backend
	ModeResult                 // Showing the connection test result
)

// DoneMsg signals the setup view should close.
type DoneMsg struct{}

// SavedMsg carries the configuration that was just written.
type SavedMsg struct {
	Config *config.AppConfig
}

// ValidateResultMsg carries the result of a connection test.
type ValidateResultMsg struct {
	Err error
}

// Validator checks that the backends described by cfg are reachable.
type Validator func(ctx context.Context, cfg *config.AppConfig) error

type savedInternalMsg struct {
	cfg *config.AppConfig
	err error
}

type formValues struct {
	MailURL  string
	ChatURL  string
	Name     string
	Interval string
	Token    string
}

// Options configures the setup view.
type Options struct {
	// Path is where the configuration file is written.
	Path string
	// Validate runs after a successful save. Nil skips the test.
	Validate Validator
	// SaveToken stores a new backend token. Defaults to the system keyring.
	SaveToken func(token string) error
}

// Model is the Bubble Tea model for the settings form.
type Model struct {
	mode    Mode
	cfg     *config.AppConfig
	opts    Options
	keys    *keys.KeyMap
	spinner spinner.Model
	form    *huh.Form

	// Shared across model copies so the form's bindings stay live.
	values *formValues

	statusMsg  string
	validError error
	width      int
	height     int
}

// New creates the setup view prefilled from cfg.
func New(cfg *config.AppConfig, k *keys.KeyMap, opts Options, width, height int) Model {
	if opts.SaveToken == nil {
		opts.SaveToken = func(token string) error {
			return credential.Set(credential.TokenKey, token)
		}
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		cfg:     cfg,
		opts:    opts,
		keys:    k,
		spinner: sp,
		width:   width,
		height:  height,
	}
	m.reset()
	return m
}

func (m *Model) reset() {
	m.mode = ModeForm
	m.values = &formValues{
		MailURL:  m.cfg.Backend.MailURL,
		ChatURL:  m.cfg.Backend.ChatURL,
		Name:     m.cfg.User.Name,
		Interval: strconv.Itoa(m.cfg.Inbox.RefreshIntervalSec),
	}
	m.statusMsg = ""
	m.validError = nil
	m.form = m.buildForm()
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Start resets the form to the current configuration and focuses it.
func (m *Model) Start() tea.Cmd {
	m.reset()
	return m.form.Init()
}

// Mode returns the current state of the view.
func (m Model) Mode() Mode {
	return m.mode
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Mail backend URL").
				Description("Serves the inbox, drafting and sending endpoints").
				Placeholder("http://localhost:5000").
				Value(&m.values.MailURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Chat backend URL").
				Description("Serves the knowledge base chat").
				Placeholder("http://localhost:5001").
				Value(&m.values.ChatURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Your name").
				Description("Used to sign drafted replies").
				Value(&m.values.Name).
				Validate(validateRequired("Name")),
			huh.NewInput().
				Title("Refresh interval (seconds)").
				Description("0 disables background refresh").
				Value(&m.values.Interval).
				Validate(validateInterval),
			huh.NewInput().
				Title("API token").
				Description("Optional. Leave blank to keep the stored token").
				EchoMode(huh.EchoModePassword).
				Value(&m.values.Token),
		),
	).WithWidth(m.formWidth()).WithShowHelp(true)
}

// Update handles messages and dispatches based on the current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case savedInternalMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error saving settings: %v", msg.err)
			m.mode = ModeForm
			m.form = m.buildForm()
			return m, m.form.Init()
		}
		m.cfg = msg.cfg
		m.values.Token = ""
		saved := func() tea.Msg { return SavedMsg{Config: msg.cfg} }
		if m.opts.Validate == nil {
			m.statusMsg = "Settings saved"
			m.mode = ModeResult
			return m, saved
		}
		m.mode = ModeValidating
		return m, tea.Batch(saved, m.validate(msg.cfg), m.spinner.Tick)

	case ValidateResultMsg:
		m.validError = msg.Err
		m.mode = ModeResult
		return m, nil

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeValidating:
			if key.Matches(msg, m.keys.Back) {
				m.mode = ModeResult
				m.validError = fmt.Errorf("connection test cancelled")
			}
			return m, nil
		case ModeResult:
			switch msg.String() {
			case "r":
				if m.validError != nil && m.opts.Validate != nil {
					m.mode = ModeValidating
					return m, tea.Batch(m.validate(m.cfg), m.spinner.Tick)
				}
			case "enter", "esc":
				return m, func() tea.Msg { return DoneMsg{} }
			}
			return m, nil
		}
	}

	return m.updateForm(msg)
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.mode != ModeForm {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m.save()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return DoneMsg{} }
	}
	return m, cmd
}

// save applies the form values to a copy of the configuration and writes it.
func (m Model) save() (Model, tea.Cmd) {
	cfg := *m.cfg
	cfg.Backend.MailURL = strings.TrimRight(strings.TrimSpace(m.values.MailURL), "/")
	cfg.Backend.ChatURL = strings.TrimRight(strings.TrimSpace(m.values.ChatURL), "/")
	cfg.User.Name = strings.TrimSpace(m.values.Name)
	cfg.Inbox.RefreshIntervalSec, _ = strconv.Atoi(strings.TrimSpace(m.values.Interval))

	token := strings.TrimSpace(m.values.Token)
	path, saveToken := m.opts.Path, m.opts.SaveToken
	m.mode = ModeSaving
	return m, func() tea.Msg {
		if err := cfg.Validate(); err != nil {
			return savedInternalMsg{err: err}
		}
		if token != "" {
			if err := saveToken(token); err != nil {
				return savedInternalMsg{err: fmt.Errorf("storing token: %w", err)}
			}
		}
		if err := config.Save(path, &cfg); err != nil {
			return savedInternalMsg{err: err}
		}
		return savedInternalMsg{cfg: &cfg}
	}
}

func (m Model) validate(cfg *config.AppConfig) tea.Cmd {
	validate := m.opts.Validate
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
		defer cancel()
		return ValidateResultMsg{Err: validate(ctx, cfg)}
	}
}

// View renders the setup view based on the current mode.
func (m Model) View() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	switch m.mode {
	case ModeSaving:
		return style.Render("Saving settings...")

	case ModeValidating:
		return style.Render(fmt.Sprintf(
			"%s Testing connection to %s...\n\nPress esc to cancel.",
			m.spinner.View(), m.cfg.Backend.MailURL,
		))

	case ModeResult:
		if m.validError != nil {
			return style.Render(
				theme.LevelStyle("error").Render("Connection failed") + "\n\n" +
					backend.Message(m.validError) + "\n\n" +
					theme.HelpStyle.Render("r retry | enter/esc back"),
			)
		}
		text := m.statusMsg
		if text == "" {
			text = "Connection successful"
		}
		return style.Render(
			theme.LevelStyle("success").Render(text) + "\n\n" +
				theme.HelpStyle.Render("enter/esc back"),
		)
	}

	title := theme.TitleStyle.Render("Settings")
	content := title + "\n\n" + m.form.View()
	if m.statusMsg != "" {
		content += "\n" + theme.LevelStyle("error").Render(m.statusMsg)
	}
	return style.Render(content)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth())
	}
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., http://localhost:5000)")
	}
	return nil
}

func validateInterval(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("interval must be a whole number of seconds")
	}
	if n < 0 {
		return fmt.Errorf("interval must not be negative")
	}
	return nil
}
