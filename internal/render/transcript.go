package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/nhle/inboxdesk/internal/model"
)

// TranscriptEntry is one rendered exchange of the chat panel.
type TranscriptEntry struct {
	Turn    model.ChatTurn
	Sources []model.DocumentRef
}

// markdown renders assistant answers. Raw HTML in answers is dropped
// because goldmark's unsafe mode stays off.
var markdown = goldmark.New()

// WriteTranscript writes the conversation as a standalone HTML page.
// User text is escaped verbatim; assistant answers are rendered from
// Markdown.
func WriteTranscript(w io.Writer, title string, generated time.Time, entries []TranscriptEntry) error {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>%s</title></head><body>\n",
		EscapeHTML(title))
	fmt.Fprintf(&buf, "<h1>%s</h1>\n<p><small>%s</small></p>\n",
		EscapeHTML(title), EscapeHTML(generated.Format(time.RFC1123)))

	for _, e := range entries {
		switch e.Turn.Role {
		case model.RoleUser:
			fmt.Fprintf(&buf, "<div class=\"user\"><strong>You:</strong><p>%s</p></div>\n",
				EscapeHTML(e.Turn.Content))
		default:
			buf.WriteString("<div class=\"assistant\"><strong>Assistant:</strong>\n")
			if err := markdown.Convert([]byte(e.Turn.Content), &buf); err != nil {
				return fmt.Errorf("rendering answer: %w", err)
			}
			writeSources(&buf, e.Sources)
			buf.WriteString("</div>\n")
		}
	}

	buf.WriteString("</body></html>\n")

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}
	return nil
}

func writeSources(buf *bytes.Buffer, sources []model.DocumentRef) {
	if len(sources) == 0 {
		return
	}
	buf.WriteString("<p><em>Sources:</em></p>\n<ul>\n")
	for _, s := range sources {
		label := s.Name
		if label == "" {
			label = s.Path
		}
		if isWebURL(s.WebURL) {
			fmt.Fprintf(buf, "<li><a href=\"%s\">%s</a></li>\n", EscapeHTML(s.WebURL), EscapeHTML(label))
		} else {
			fmt.Fprintf(buf, "<li>%s</li>\n", EscapeHTML(label))
		}
	}
	buf.WriteString("</ul>\n")
}

// isWebURL limits citation links to http(s) targets.
func isWebURL(u string) bool {
	l := strings.ToLower(strings.TrimSpace(u))
	return strings.HasPrefix(l, "https://") || strings.HasPrefix(l, "http://")
}
