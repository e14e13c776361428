package email

import (
	"regexp"
	"strings"

	"github.com/emersion/go-message/mail"
)

// addressPattern matches the first email-address-shaped token in a header.
var addressPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// ExtractEmailAddress pulls the bare address out of a From header such as
// "John Doe <john@x.com>". Parsing is best effort: RFC 5322 first, then a
// pattern match, and finally the raw header unchanged.
func ExtractEmailAddress(header string) string {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return header
	}

	if addr, err := mail.ParseAddress(trimmed); err == nil && addr.Address != "" {
		return addr.Address
	}

	if match := addressPattern.FindString(trimmed); match != "" {
		return match
	}

	return header
}

// DisplayName returns the human part of a From header, falling back to
// the address and then the raw header.
func DisplayName(header string) string {
	trimmed := strings.TrimSpace(header)
	if addr, err := mail.ParseAddress(trimmed); err == nil {
		if addr.Name != "" {
			return addr.Name
		}
		return addr.Address
	}
	if i := strings.Index(trimmed, "<"); i > 0 {
		return strings.Trim(strings.TrimSpace(trimmed[:i]), `"`)
	}
	return trimmed
}
