package inbox

import (
	"fmt"
	"io"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/inboxdesk/internal/email"
	"github.com/nhle/inboxdesk/internal/model"
	"github.com/nhle/inboxdesk/internal/render"
	"github.com/nhle/inboxdesk/internal/theme"
)

// EmailItem wraps a model.EmailSummary so it can be used in a bubbles/list.
type EmailItem struct {
	Email model.EmailSummary
}

// FilterValue returns the string used for fuzzy filtering.
func (i EmailItem) FilterValue() string { return i.Email.Subject }

// Title returns the email subject for the list.
func (i EmailItem) Title() string { return i.Email.Subject }

// Description returns the sender and snippet.
func (i EmailItem) Description() string {
	return i.Email.From + " | " + i.Email.Snippet
}

// ItemDelegate renders an inbox entry on two lines: badge, sender,
// subject and date, then the snippet.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 2 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 1 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single inbox entry.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(EmailItem)
	if !ok {
		return
	}
	e := it.Email
	isSelected := index == m.Index()

	width := m.Width() - 4
	if width < 20 {
		width = 20
	}

	badge := theme.PlatformBadgeStyle(string(e.Platform)).
		Width(9).
		Render(e.Platform.Label())

	sender := render.Line(email.DisplayName(e.From), 24)
	when := relativeTime(parseDate(e.Date))
	if when == "" {
		when = render.Line(e.Date, 16)
	}

	subject := e.Subject
	if strings.TrimSpace(subject) == "" {
		subject = "(no subject)"
	}
	subjectWidth := width - 9 - 26 - len(when) - 2
	if subjectWidth < 10 {
		subjectWidth = 10
	}

	first := fmt.Sprintf("%s %-24s %s  %s",
		badge,
		sender,
		render.Line(subject, subjectWidth),
		theme.DimmedStyle.Render(when),
	)
	second := theme.DimmedStyle.Render(
		strings.Repeat(" ", 10) + render.Line(e.Snippet, width-10),
	)

	line := first + "\n" + second
	if isSelected {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// dateLayouts are the formats the backend uses for the date field,
// besides RFC 5322 dates.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.0000000Z",
	"2006-01-02 15:04:05",
}

// parseDate turns a backend date string into a time, or zero when it
// cannot be parsed.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := netmail.ParseDate(s); err == nil {
		return t
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Local().Format("Jan 02")
	}
}
