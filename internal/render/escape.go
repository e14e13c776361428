package render

import (
	"html"
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// EscapeHTML escapes ampersands, angle brackets and quotes so untrusted
// email or AI text can be placed inside HTML.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

var (
	scriptPattern     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	stylePattern      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	breakPattern      = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</div>|</tr>|</li>`)
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	blankLinesPattern = regexp.MustCompile(`\n{3,}`)
	spacesPattern     = regexp.MustCompile(`[ \t]+`)
)

// LooksLikeHTML reports whether a body is an HTML document rather than
// plain text.
func LooksLikeHTML(s string) bool {
	t := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(t, "<!doctype") ||
		strings.HasPrefix(t, "<html") ||
		strings.Contains(t, "<body") ||
		strings.Contains(t, "<div") ||
		strings.Contains(t, "<p>") ||
		strings.Contains(t, "<br")
}

// HTMLToText flattens an HTML body into readable plain text.
func HTMLToText(s string) string {
	s = scriptPattern.ReplaceAllString(s, "")
	s = stylePattern.ReplaceAllString(s, "")
	s = breakPattern.ReplaceAllString(s, "\n")
	s = htmlTagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = spacesPattern.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = strings.Join(lines, "\n")
	s = blankLinesPattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Sanitize strips terminal escape sequences and stray control characters
// from backend text before it is drawn. Newlines and tabs survive.
func Sanitize(s string) string {
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\r':
			return -1
		case r < 0x20 || r == 0x7f:
			return -1
		default:
			return r
		}
	}, s)
}

// Body prepares an email body for display in the terminal.
func Body(s string) string {
	if LooksLikeHTML(s) {
		s = HTMLToText(s)
	}
	return Sanitize(s)
}

// Line collapses text to a single sanitised line, truncated to max runes
// with an ellipsis. A max of zero disables truncation.
func Line(s string, max int) string {
	s = strings.Join(strings.Fields(Sanitize(s)), " ")
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}
