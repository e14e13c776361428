package reply

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/inboxdesk/internal/backend"
	"github.com/nhle/inboxdesk/internal/keys"
	"github.com/nhle/inboxdesk/internal/model"
	"github.com/nhle/inboxdesk/internal/testutil"
	"github.com/nhle/inboxdesk/internal/ui"
)

// mockBackend records calls and delegates to the configured funcs.
type mockBackend struct {
	mu sync.Mutex

	EmailDetailsFunc func(platform model.Platform, id string) (*model.EmailDetails, error)
	DraftReplyFunc   func(req model.DraftRequest) (*model.Draft, error)
	SendReplyFunc    func(req model.SendRequest) (string, error)

	detailsCalls int
	draftCalls   []model.DraftRequest
	sendCalls    []model.SendRequest
}

func (b *mockBackend) EmailDetails(_ context.Context, platform model.Platform, id string) (*model.EmailDetails, error) {
	b.mu.Lock()
	b.detailsCalls++
	b.mu.Unlock()
	return b.EmailDetailsFunc(platform, id)
}

func (b *mockBackend) DraftReply(_ context.Context, req model.DraftRequest) (*model.Draft, error) {
	b.mu.Lock()
	b.draftCalls = append(b.draftCalls, req)
	b.mu.Unlock()
	return b.DraftReplyFunc(req)
}

func (b *mockBackend) SendReply(_ context.Context, req model.SendRequest) (string, error) {
	b.mu.Lock()
	b.sendCalls = append(b.sendCalls, req)
	b.mu.Unlock()
	return b.SendReplyFunc(req)
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		EmailDetailsFunc: func(platform model.Platform, id string) (*model.EmailDetails, error) {
			return &model.EmailDetails{
				From:    "Bob Smith <bob@example.com>",
				Subject: "Quote for " + id,
				Body:    "Could you send the quote?",
			}, nil
		},
		DraftReplyFunc: func(req model.DraftRequest) (*model.Draft, error) {
			return &model.Draft{Body: "Hi Bob, here it is."}, nil
		},
		SendReplyFunc: func(req model.SendRequest) (string, error) {
			return "Reply sent via Gmail", nil
		},
	}
}

var gmailEmail = model.EmailSummary{
	Platform:        model.PlatformGmail,
	ID:              "g1",
	ThreadID:        "t1",
	Subject:         "Quote",
	From:            "Bob Smith <bob@example.com>",
	MessageIDHeader: "<g1@mail.gmail.com>",
	ReferencesHdr:   "<root@mail.gmail.com>",
}

var outlookEmail = model.EmailSummary{
	Platform: model.PlatformOutlook,
	ID:       "o1",
	Subject:  "Meeting",
	From:     "Carol <carol@example.com>",
}

// collect runs cmd and flattens batches into the messages they produce.
// Commands that do not finish quickly, such as cursor blinks, are skipped.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()

	select {
	case msg := <-ch:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, collect(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// settle feeds the dialog's own messages back into it until none are
// left, returning everything addressed to other components in order.
func settle(m Model, cmd tea.Cmd) (Model, []tea.Msg) {
	var external []tea.Msg
	queue := collect(cmd)
	for len(queue) > 0 {
		msg := queue[0]
		queue = queue[1:]
		switch msg.(type) {
		case detailsLoadedMsg, draftLoadedMsg, sentMsg, closeMsg:
			var next tea.Cmd
			m, next = m.Update(msg)
			queue = append(queue, collect(next)...)
		case spinner.TickMsg:
		default:
			external = append(external, msg)
		}
	}
	return m, external
}

func newTestModel(t *testing.T, b Backend) Model {
	t.Helper()
	return New(b, keys.DefaultKeyMap(), Options{
		UserName:   "Ann",
		CloseDelay: time.Millisecond,
		Recorder:   testutil.NewTestStore(t),
	})
}

func openAndSettle(t *testing.T, m Model, e model.EmailSummary) Model {
	t.Helper()
	cmd := m.Open(e)
	m, _ = settle(m, cmd)
	return m
}

func keyMsg(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func TestOpen_LoadsDetailsThenDraft(t *testing.T) {
	b := newMockBackend()
	b.DraftReplyFunc = func(req model.DraftRequest) (*model.Draft, error) {
		return &model.Draft{Body: "Hi Bob", SharePointDocs: []string{"Pricing.xlsx"}}, nil
	}
	m := newTestModel(t, b)

	cmd := m.Open(gmailEmail)
	assert.True(t, m.IsOpen())
	assert.True(t, m.Busy())
	assert.Nil(t, m.Selected().FullDetails)

	m, _ = settle(m, cmd)

	assert.False(t, m.Busy())
	require.NotNil(t, m.Selected().FullDetails)
	to, subject, body := m.Fields()
	assert.Equal(t, "bob@example.com", to)
	assert.Equal(t, "Re: Quote for g1", subject)
	assert.Equal(t, "Hi Bob", body)
	assert.Equal(t, ui.LevelSuccess, m.Status().Level)
	assert.Contains(t, m.Status().Text, "Pricing.xlsx")

	require.Len(t, b.draftCalls, 1)
	assert.Equal(t, model.DraftRequest{
		Platform: model.PlatformGmail,
		UserName: "Ann",
		Sender:   "Bob Smith <bob@example.com>",
		Subject:  "Quote for g1",
		Body:     "Could you send the quote?",
	}, b.draftCalls[0])
}

func TestOpen_DetailsFailureReenablesControls(t *testing.T) {
	b := newMockBackend()
	b.EmailDetailsFunc = func(model.Platform, string) (*model.EmailDetails, error) {
		return nil, &backend.APIError{Kind: backend.KindHTTP, Op: "fetch email details", StatusCode: 404, Message: "Email not found"}
	}
	m := newTestModel(t, b)

	m = openAndSettle(t, m, gmailEmail)

	assert.True(t, m.IsOpen())
	assert.False(t, m.Busy())
	assert.Nil(t, m.Selected().FullDetails)
	assert.Equal(t, ui.LevelError, m.Status().Level)
	assert.Contains(t, m.Status().Text, "Email not found")
	_, _, body := m.Fields()
	assert.Contains(t, body, "Email not found")
	assert.Empty(t, b.draftCalls)
}

func TestRegenerate_WithoutDetailsWarns(t *testing.T) {
	b := newMockBackend()
	b.EmailDetailsFunc = func(model.Platform, string) (*model.EmailDetails, error) {
		return nil, errors.New("boom")
	}
	m := newTestModel(t, b)
	m = openAndSettle(t, m, gmailEmail)

	m, cmd := m.Update(keyMsg(tea.KeyCtrlG))

	assert.Nil(t, cmd)
	assert.Equal(t, ui.LevelWarning, m.Status().Level)
	assert.Empty(t, b.draftCalls)
}

func TestDraftFailure_IsRecoverable(t *testing.T) {
	b := newMockBackend()
	fail := true
	b.DraftReplyFunc = func(model.DraftRequest) (*model.Draft, error) {
		if fail {
			return nil, &backend.APIError{Kind: backend.KindApplication, Op: "draft reply", Message: "model offline"}
		}
		return &model.Draft{Body: "Second try"}, nil
	}
	m := newTestModel(t, b)
	m = openAndSettle(t, m, gmailEmail)

	assert.False(t, m.Busy())
	assert.Equal(t, ui.LevelError, m.Status().Level)
	_, _, body := m.Fields()
	assert.Contains(t, body, "model offline")

	fail = false
	m, cmd := m.Update(keyMsg(tea.KeyCtrlG))
	assert.True(t, m.Busy())
	m, _ = settle(m, cmd)

	_, _, body = m.Fields()
	assert.Equal(t, "Second try", body)
	assert.Len(t, b.draftCalls, 2)
	assert.Equal(t, 1, b.detailsCalls)
}

func TestSend_BlankFieldsMakeNoCall(t *testing.T) {
	b := newMockBackend()
	b.DraftReplyFunc = func(model.DraftRequest) (*model.Draft, error) {
		return &model.Draft{Body: "   "}, nil
	}
	m := newTestModel(t, b)
	m = openAndSettle(t, m, gmailEmail)

	m, cmd := m.Update(keyMsg(tea.KeyCtrlS))

	assert.Nil(t, cmd)
	assert.Empty(t, b.sendCalls)
	assert.Equal(t, ui.LevelWarning, m.Status().Level)
	assert.Contains(t, m.Status().Text, "body")
	assert.True(t, m.IsOpen())
}

func TestSend_SuccessRefreshesThenCloses(t *testing.T) {
	b := newMockBackend()
	b.EmailDetailsFunc = func(model.Platform, string) (*model.EmailDetails, error) {
		return &model.EmailDetails{
			From:         "Bob Smith <bob@example.com>",
			Subject:      "Quote",
			Body:         "Could you send the quote?",
			InReplyToHdr: "<details@mail.gmail.com>",
		}, nil
	}
	store := testutil.NewTestStore(t)
	m := New(b, keys.DefaultKeyMap(), Options{UserName: "Ann", CloseDelay: time.Millisecond, Recorder: store})
	m = openAndSettle(t, m, gmailEmail)

	m, cmd := m.Update(keyMsg(tea.KeyCtrlS))
	require.NotNil(t, cmd)
	assert.True(t, m.Busy())

	m, external := settle(m, cmd)

	require.Len(t, b.sendCalls, 1)
	assert.Equal(t, model.SendRequest{
		Platform:          model.PlatformGmail,
		OriginalMessageID: "g1",
		OriginalThreadID:  "t1",
		To:                "bob@example.com",
		Subject:           "Re: Quote",
		Body:              "Hi Bob, here it is.",
		InReplyToHeader:   "<details@mail.gmail.com>",
		ReferencesHeader:  "<root@mail.gmail.com>",
	}, b.sendCalls[0])

	refreshAt, closedAt := -1, -1
	for i, msg := range external {
		switch msg.(type) {
		case RefreshInboxMsg:
			refreshAt = i
		case ClosedMsg:
			closedAt = i
		}
	}
	require.NotEqual(t, -1, refreshAt, "expected an inbox refresh")
	require.NotEqual(t, -1, closedAt, "expected the dialog to close")
	assert.Less(t, refreshAt, closedAt)
	assert.False(t, m.IsOpen())

	sent, err := store.GetSentReplies(context.Background())
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "bob@example.com", sent[0].To)
	assert.Equal(t, "Reply sent via Gmail", sent[0].Message)
}

func TestSend_FailureAllowsRetry(t *testing.T) {
	b := newMockBackend()
	b.SendReplyFunc = func(model.SendRequest) (string, error) {
		return "", &backend.APIError{Kind: backend.KindApplication, Op: "send reply", Message: "quota exceeded"}
	}
	m := newTestModel(t, b)
	m = openAndSettle(t, m, gmailEmail)

	m, cmd := m.Update(keyMsg(tea.KeyCtrlS))
	m, external := settle(m, cmd)

	assert.Empty(t, external)
	assert.True(t, m.IsOpen())
	assert.False(t, m.Busy())
	assert.Equal(t, ui.LevelError, m.Status().Level)
	assert.Contains(t, m.Status().Text, "quota exceeded")

	m, cmd = m.Update(keyMsg(tea.KeyCtrlS))
	assert.NotNil(t, cmd)
}

func TestSend_IgnoredWhileSending(t *testing.T) {
	m := newTestModel(t, newMockBackend())
	m = openAndSettle(t, m, gmailEmail)

	m, first := m.Update(keyMsg(tea.KeyCtrlS))
	require.NotNil(t, first)

	m, second := m.Update(keyMsg(tea.KeyCtrlS))
	assert.Nil(t, second)
	_, second = m.Update(keyMsg(tea.KeyCtrlG))
	assert.Nil(t, second)
}

func TestRapidOpens_OnlySecondEmailWins(t *testing.T) {
	b := newMockBackend()
	b.DraftReplyFunc = func(req model.DraftRequest) (*model.Draft, error) {
		return &model.Draft{Body: "Draft for " + req.Subject}, nil
	}
	m := newTestModel(t, b)

	firstCmd := m.Open(gmailEmail)
	secondCmd := m.Open(outlookEmail)

	// The second flow completes first, then the first flow's late
	// responses arrive.
	m, _ = settle(m, secondCmd)
	m, _ = settle(m, firstCmd)

	require.Equal(t, model.PlatformOutlook, m.Selected().Platform)
	assert.Equal(t, "o1", m.Selected().ID)
	to, subject, body := m.Fields()
	assert.Equal(t, "bob@example.com", to)
	assert.Equal(t, "Re: Quote for o1", subject)
	assert.Equal(t, "Draft for Quote for o1", body)
	assert.Len(t, b.draftCalls, 1)
}

func TestCancel_DropsInFlightResponses(t *testing.T) {
	m := newTestModel(t, newMockBackend())

	cmd := m.Open(gmailEmail)
	m, closeCmd := m.Update(keyMsg(tea.KeyEsc))
	assert.False(t, m.IsOpen())
	assert.Equal(t, []tea.Msg{ClosedMsg{}}, collect(closeCmd))

	m, _ = settle(m, cmd)
	assert.False(t, m.IsOpen())
	assert.Nil(t, m.Selected().FullDetails)
}

func TestTabCyclesFields(t *testing.T) {
	m := newTestModel(t, newMockBackend())
	m = openAndSettle(t, m, gmailEmail)
	require.Equal(t, fieldBody, m.focus)

	m, _ = m.Update(keyMsg(tea.KeyTab))
	assert.Equal(t, fieldTo, m.focus)
	m, _ = m.Update(keyMsg(tea.KeyTab))
	assert.Equal(t, fieldSubject, m.focus)
	m, _ = m.Update(keyMsg(tea.KeyShiftTab))
	assert.Equal(t, fieldTo, m.focus)
}

func TestCapitalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"to is required", "To is required"},
		{"émail manquant", "Émail manquant"},
		{"日本", "日本"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, capitalize(tt.in), tt.in)
	}
}
