package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/nhle/inboxdesk/internal/theme"
)

// Layout manages the multi-panel terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	BannerHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions. The
// header, status banner and key hint bar take one line each.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		BannerHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.BannerHeight - l.StatusBarHeight
	if h < 0 {
		return 0
	}
	return h
}

// RenderHeader renders the top header bar with a title and the view tabs.
func (l Layout) RenderHeader(title string, right string) string {
	titleRendered := theme.HeaderStyle.Render(title)

	rightRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(right)

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(rightRendered)
	if gap < 0 {
		gap = 0
	}

	// The filler must not pick up the header padding.
	filler := lipgloss.NewStyle().
		Width(gap).
		Background(theme.HeaderStyle.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		rightRendered,
	)
}

// RenderTabs renders view titles separated by dots, highlighting active.
func (l Layout) RenderTabs(titles []string, active int) string {
	parts := make([]string, len(titles))
	for i, t := range titles {
		if i == active {
			parts[i] = lipgloss.NewStyle().Bold(true).Underline(true).Render(t)
		} else {
			parts[i] = t
		}
	}
	return strings.Join(parts, " · ")
}

// RenderStatusBar renders the bottom status bar with keyboard hints,
// truncated to the terminal width.
func (l Layout) RenderStatusBar(hints string) string {
	if limit := l.Width - 2; limit > 0 {
		hints = ansi.Truncate(hints, limit, "…")
	}
	rendered := theme.StatusBarStyle.Render(hints)

	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(theme.StatusBarStyle.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, banner and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	banner string,
	statusBar string,
) string {
	content = lipgloss.NewStyle().
		Height(l.ContentHeight()).
		MaxHeight(l.ContentHeight()).
		Render(content)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		banner,
		statusBar,
	)
}

// Center places content in the middle of the content area.
func (l Layout) Center(content string) string {
	return lipgloss.Place(
		l.Width, l.ContentHeight(),
		lipgloss.Center, lipgloss.Center,
		content,
	)
}
