package backend

import (
	"context"
	"net/url"
	"strings"

	"github.com/nhle/inboxdesk/internal/model"
)

// MailClient talks to the unified mail backend: inbox listing, message
// details, AI drafting, sending, and provider sign-in.
type MailClient struct {
	c *Client
}

// NewMailClient wraps c with the mail backend endpoints.
func NewMailClient(c *Client) *MailClient {
	return &MailClient{c: c}
}

// ListEmails returns the unified inbox for folder, newest first.
func (m *MailClient) ListEmails(ctx context.Context, folder string) ([]model.EmailSummary, error) {
	q := url.Values{}
	if folder != "" {
		q.Set("folder", folder)
	}

	var emails []model.EmailSummary
	if err := m.c.Get(ctx, "list emails", "/emails", q, &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

type detailsResponse struct {
	model.EmailDetails
	Error string `json:"error"`
}

// EmailDetails fetches the full content of one email.
func (m *MailClient) EmailDetails(ctx context.Context, platform model.Platform, id string) (*model.EmailDetails, error) {
	q := url.Values{}
	q.Set("platform", string(platform))
	q.Set("id", id)

	var resp detailsResponse
	if err := m.c.Get(ctx, "fetch email details", "/email-details", q, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &APIError{Kind: KindApplication, Op: "fetch email details", Message: resp.Error}
	}

	details := resp.EmailDetails
	return &details, nil
}

type draftResponse struct {
	Draft          *string  `json:"draft"`
	SharePointDocs []string `json:"sharepoint_docs_found"`
	Error          string   `json:"error"`
}

// DraftReply asks the backend to write a reply to the given email.
func (m *MailClient) DraftReply(ctx context.Context, req model.DraftRequest) (*model.Draft, error) {
	var resp draftResponse
	if err := m.c.Post(ctx, "draft reply", "/draft-ai-reply", req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &APIError{Kind: KindApplication, Op: "draft reply", Message: resp.Error}
	}
	if resp.Draft == nil {
		return nil, &APIError{Kind: KindApplication, Op: "draft reply", Message: "backend returned no draft"}
	}

	return &model.Draft{
		Body:           *resp.Draft,
		SharePointDocs: resp.SharePointDocs,
	}, nil
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// SendReply sends a reply through the email's original provider and
// returns the backend's confirmation message.
func (m *MailClient) SendReply(ctx context.Context, req model.SendRequest) (string, error) {
	var resp statusResponse
	if err := m.c.Post(ctx, "send reply", "/send-platform-reply", req, &resp); err != nil {
		return "", err
	}
	if resp.Status != "success" {
		msg := firstNonEmpty(resp.Message, resp.Error, "backend did not confirm the send")
		return "", &APIError{Kind: KindApplication, Op: "send reply", Message: msg}
	}
	return resp.Message, nil
}

// AuthStatus reports which providers the backend is signed in to.
func (m *MailClient) AuthStatus(ctx context.Context) (*model.AuthStatus, error) {
	var status model.AuthStatus
	if err := m.c.Get(ctx, "auth status", "/auth-status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// InitiateGmailAuth starts the backend's Gmail OAuth flow.
func (m *MailClient) InitiateGmailAuth(ctx context.Context) (string, error) {
	var resp statusResponse
	if err := m.c.Get(ctx, "start gmail auth", "/initiate-gmail-auth", nil, &resp); err != nil {
		return "", err
	}
	if resp.Status != "" && resp.Status != "success" {
		msg := firstNonEmpty(resp.Message, resp.Error, "gmail auth failed")
		return "", &APIError{Kind: KindApplication, Op: "start gmail auth", Message: msg}
	}
	return firstNonEmpty(resp.Message, "Gmail auth flow initiated."), nil
}

type deviceCodeResponse struct {
	model.DeviceCode
	Error string `json:"error"`
}

// InitiateMicrosoftAuth starts a device-code sign-in for Microsoft Graph.
func (m *MailClient) InitiateMicrosoftAuth(ctx context.Context) (*model.DeviceCode, error) {
	var resp deviceCodeResponse
	if err := m.c.Get(ctx, "start microsoft auth", "/initiate-microsoft-auth", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &APIError{Kind: KindApplication, Op: "start microsoft auth", Message: resp.Error}
	}
	code := resp.DeviceCode
	return &code, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
