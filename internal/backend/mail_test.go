package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/inboxdesk/internal/model"
)

func TestMailClient_ListEmails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "inbox", r.URL.Query().Get("folder"))
		writeJSON(w, http.StatusOK, []map[string]string{
			{"platform": "gmail", "id": "g1", "threadId": "t1", "subject": "Hi", "from": "A <a@x.com>"},
			{"platform": "outlook", "id": "o1", "subject": "Hello", "message_id_header": "<m@x>"},
		})
	})

	emails, err := NewMailClient(c).ListEmails(context.Background(), "inbox")
	require.NoError(t, err)
	require.Len(t, emails, 2)
	assert.Equal(t, model.PlatformGmail, emails[0].Platform)
	assert.Equal(t, "t1", emails[0].ThreadID)
	assert.Equal(t, "<m@x>", emails[1].MessageIDHeader)
}

func TestMailClient_EmailDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "outlook", r.URL.Query().Get("platform"))
		assert.Equal(t, "o1", r.URL.Query().Get("id"))
		writeJSON(w, http.StatusOK, map[string]string{
			"from":               "Bob <bob@x.com>",
			"subject":            "Quote",
			"body":               "Please send",
			"in_reply_to_header": "<parent@x>",
		})
	})

	details, err := NewMailClient(c).EmailDetails(context.Background(), model.PlatformOutlook, "o1")
	require.NoError(t, err)
	assert.Equal(t, "Bob <bob@x.com>", details.From)
	assert.Equal(t, "<parent@x>", details.InReplyToHdr)
}

func TestMailClient_EmailDetailsErrorField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"error": "Email not found"})
	})

	_, err := NewMailClient(c).EmailDetails(context.Background(), model.PlatformGmail, "missing")
	assert.Equal(t, KindApplication, KindOf(err))
	assert.Equal(t, "Email not found", Message(err))
}

func TestMailClient_DraftReply(t *testing.T) {
	var got model.DraftRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{
			"draft":                 "Thanks Bob",
			"sharepoint_docs_found": []string{"Pricing.docx"},
		})
	})

	draft, err := NewMailClient(c).DraftReply(context.Background(), model.DraftRequest{
		Platform: model.PlatformGmail,
		UserName: "Ann",
		Sender:   "bob@x.com",
		Subject:  "Quote",
		Body:     "Please send",
	})
	require.NoError(t, err)
	assert.Equal(t, "Thanks Bob", draft.Body)
	assert.Equal(t, []string{"Pricing.docx"}, draft.SharePointDocs)
	assert.Equal(t, "Ann", got.UserName)
	assert.Equal(t, "bob@x.com", got.Sender)
}

func TestMailClient_DraftReplyFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
		kind   ErrorKind
	}{
		{"error field", http.StatusOK, map[string]string{"error": "model offline"}, KindApplication},
		{"missing draft", http.StatusOK, map[string]string{}, KindApplication},
		{"server error", http.StatusInternalServerError, map[string]string{"error": "boom"}, KindHTTP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			_, err := NewMailClient(c).DraftReply(context.Background(), model.DraftRequest{})
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestMailClient_SendReply(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Reply sent via Gmail"})
	})

	msg, err := NewMailClient(c).SendReply(context.Background(), model.SendRequest{
		Platform:          model.PlatformGmail,
		OriginalMessageID: "g1",
		OriginalThreadID:  "t1",
		To:                "bob@x.com",
		Subject:           "Re: Quote",
		Body:              "Done",
		InReplyToHeader:   "<m@x>",
		ReferencesHeader:  "<r@x>",
	})
	require.NoError(t, err)
	assert.Equal(t, "Reply sent via Gmail", msg)
	assert.Equal(t, "g1", got["originalMessageId"])
	assert.Equal(t, "t1", got["originalThreadId"])
	assert.Equal(t, "<m@x>", got["inReplyToHeader"])
	assert.Equal(t, "<r@x>", got["referencesHeader"])
}

func TestMailClient_SendReplyNotSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "message": "quota exceeded"})
	})

	_, err := NewMailClient(c).SendReply(context.Background(), model.SendRequest{})
	assert.Equal(t, KindApplication, KindOf(err))
	assert.Equal(t, "quota exceeded", Message(err))
}

func TestMailClient_InitiateMicrosoftAuth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"message":          "Go to the page",
			"verification_uri": "https://microsoft.com/devicelogin",
			"user_code":        "ABCD-1234",
			"expires_in":       900,
		})
	})

	code, err := NewMailClient(c).InitiateMicrosoftAuth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ABCD-1234", code.UserCode)
	assert.Equal(t, 900, code.ExpiresIn)
}

func TestMailClient_InitiateGmailAuth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Gmail already authenticated."})
	})

	msg, err := NewMailClient(c).InitiateGmailAuth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Gmail already authenticated.", msg)
}
