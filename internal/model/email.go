package model

import "strings"

// Platform identifies the mail provider an email was fetched from.
type Platform string

const (
	PlatformGmail   Platform = "gmail"
	PlatformOutlook Platform = "outlook"
)

// Label returns the short badge text shown next to an email.
func (p Platform) Label() string {
	switch p {
	case PlatformGmail:
		return "GMAIL"
	case PlatformOutlook:
		return "OUTLOOK"
	default:
		return strings.ToUpper(string(p))
	}
}

// EmailSummary is a single entry of the unified inbox as returned by the
// backend list endpoint.
type EmailSummary struct {
	Platform        Platform `json:"platform" db:"platform"`
	ID              string   `json:"id" db:"id"`
	ThreadID        string   `json:"threadId" db:"thread_id"`
	Subject         string   `json:"subject" db:"subject"`
	From            string   `json:"from" db:"sender"`
	Date            string   `json:"date" db:"date"`
	Snippet         string   `json:"snippet" db:"snippet"`
	MessageIDHeader string   `json:"message_id_header" db:"message_id_header"`
	ReferencesHdr   string   `json:"references_header" db:"references_header"`
	InReplyToHdr    string   `json:"in_reply_to_header" db:"in_reply_to_header"`
}

// EmailDetails is the full content of a single email.
type EmailDetails struct {
	From          string `json:"from"`
	Subject       string `json:"subject"`
	Body          string `json:"body"`
	InReplyToHdr  string `json:"in_reply_to_header"`
	ReferencesHdr string `json:"references_header"`
}

// SelectedEmail is the email the reply dialog is currently working on.
// FullDetails stays nil until the details request has succeeded.
type SelectedEmail struct {
	Platform         Platform
	ID               string
	ThreadID         string
	MessageIDHeader  string
	ReferencesHeader string
	InReplyToHeader  string
	FullDetails      *EmailDetails
}

// NewSelectedEmail captures the identifying fields of a listed email.
func NewSelectedEmail(e EmailSummary) *SelectedEmail {
	return &SelectedEmail{
		Platform:         e.Platform,
		ID:               e.ID,
		ThreadID:         e.ThreadID,
		MessageIDHeader:  e.MessageIDHeader,
		ReferencesHeader: e.ReferencesHdr,
		InReplyToHeader:  e.InReplyToHdr,
	}
}

// ThreadingHeaders returns the In-Reply-To and References values for a
// reply. Values from the fetched details win over the list entry.
func (s *SelectedEmail) ThreadingHeaders() (inReplyTo, references string) {
	inReplyTo = s.MessageIDHeader
	references = s.ReferencesHeader
	if s.FullDetails != nil {
		if v := strings.TrimSpace(s.FullDetails.InReplyToHdr); v != "" {
			inReplyTo = v
		}
		if v := strings.TrimSpace(s.FullDetails.ReferencesHdr); v != "" {
			references = v
		}
	}
	return inReplyTo, references
}

// DraftRequest is the payload sent to the AI drafting endpoint.
type DraftRequest struct {
	Platform Platform `json:"platform"`
	UserName string   `json:"userName"`
	Sender   string   `json:"sender"`
	Subject  string   `json:"subject"`
	Body     string   `json:"body"`
}

// Draft is a generated reply body.
type Draft struct {
	Body string
	// SharePointDocs lists documents the backend consulted, if any.
	SharePointDocs []string
}

// SendRequest is the payload sent to the reply endpoint.
type SendRequest struct {
	Platform          Platform `json:"platform"`
	OriginalMessageID string   `json:"originalMessageId"`
	OriginalThreadID  string   `json:"originalThreadId"`
	To                string   `json:"to"`
	Subject           string   `json:"subject"`
	Body              string   `json:"body"`
	InReplyToHeader   string   `json:"inReplyToHeader"`
	ReferencesHeader  string   `json:"referencesHeader"`
}
