package email

import (
	"fmt"
	"strings"
)

// ReplySubject prefixes subject with "Re: " unless it already carries a
// reply prefix in any letter case.
func ReplySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

// MissingFieldError names the reply fields left blank.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("please fill in %s before sending", strings.Join(e.Fields, ", "))
}

// ValidateReply checks that the recipient, subject and body are all
// non-empty after trimming.
func ValidateReply(to, subject, body string) error {
	var missing []string
	if strings.TrimSpace(to) == "" {
		missing = append(missing, "reply-to")
	}
	if strings.TrimSpace(subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(body) == "" {
		missing = append(missing, "body")
	}
	if len(missing) > 0 {
		return &MissingFieldError{Fields: missing}
	}
	return nil
}
