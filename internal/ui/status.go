package ui

import (
	"github.com/nhle/inboxdesk/internal/render"
	"github.com/nhle/inboxdesk/internal/theme"
)

// Level is the severity of a status line.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Status is a one-line message shown in a banner or a panel status area.
type Status struct {
	Text  string
	Level Level
}

// Info, Success, Warning and Error build a Status of the matching level.
func Info(text string) Status    { return Status{Text: text, Level: LevelInfo} }
func Success(text string) Status { return Status{Text: text, Level: LevelSuccess} }
func Warning(text string) Status { return Status{Text: text, Level: LevelWarning} }
func Error(text string) Status   { return Status{Text: text, Level: LevelError} }

// IsZero reports whether there is nothing to show.
func (s Status) IsZero() bool {
	return s.Text == ""
}

// Render draws the status on a single line no wider than width.
func (s Status) Render(width int) string {
	if s.IsZero() {
		return ""
	}
	text := render.Line(s.Text, width)
	return theme.LevelStyle(string(s.Level)).Render(text)
}

// StatusMsg asks the root model to replace the global banner.
type StatusMsg struct {
	Status Status
}
