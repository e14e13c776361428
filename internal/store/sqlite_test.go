package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/inboxdesk/internal/model"
	"github.com/nhle/inboxdesk/internal/store"
	"github.com/nhle/inboxdesk/internal/testutil"
)

func sampleInbox() []model.EmailSummary {
	return []model.EmailSummary{
		{Platform: model.PlatformOutlook, ID: "o2", Subject: "Invoice 42", From: "Billing <billing@acme.com>", Snippet: "Your invoice"},
		{Platform: model.PlatformGmail, ID: "g1", ThreadID: "t1", Subject: "Lunch?", From: "Sam <sam@x.com>", Snippet: "Tomorrow at noon", MessageIDHeader: "<g1@mail>"},
		{Platform: model.PlatformOutlook, ID: "o1", Subject: "Quarterly report", From: "Boss <boss@acme.com>", Snippet: "See attached invoice"},
		{Platform: model.PlatformGmail, ID: "g2", Subject: "Newsletter", From: "news@x.com"},
	}
}

func ids(emails []model.EmailSummary) []string {
	out := make([]string, len(emails))
	for i, e := range emails {
		out[i] = e.ID
	}
	return out
}

func TestGetEmails_KeepsBackendOrder(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceInbox(ctx, sampleInbox()))

	emails, err := s.GetEmails(ctx, store.EmailFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"o2", "g1", "o1", "g2"}, ids(emails))
	assert.Equal(t, "t1", emails[1].ThreadID)
	assert.Equal(t, "<g1@mail>", emails[1].MessageIDHeader)
	assert.Equal(t, "Sam <sam@x.com>", emails[1].From)
}

func TestGetEmails_Filters(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ReplaceInbox(ctx, sampleInbox()))

	tests := []struct {
		name   string
		filter store.EmailFilter
		want   []string
	}{
		{"gmail only", store.EmailFilter{Platforms: []model.Platform{model.PlatformGmail}}, []string{"g1", "g2"}},
		{"outlook only", store.EmailFilter{Platforms: []model.Platform{model.PlatformOutlook}}, []string{"o2", "o1"}},
		{"query matches subject and snippet", store.EmailFilter{Query: "invoice"}, []string{"o2", "o1"}},
		{"query matches sender", store.EmailFilter{Query: "sam@"}, []string{"g1"}},
		{"platform and query", store.EmailFilter{Platforms: []model.Platform{model.PlatformGmail}, Query: "invoice"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emails, err := s.GetEmails(ctx, tt.filter)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, emails)
				return
			}
			assert.Equal(t, tt.want, ids(emails))
		})
	}
}

func TestReplaceInbox_ReplacesSnapshot(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceInbox(ctx, sampleInbox()))
	require.NoError(t, s.ReplaceInbox(ctx, []model.EmailSummary{
		{Platform: model.PlatformGmail, ID: "g9", Subject: "Fresh"},
		{Platform: model.PlatformGmail, ID: "g9", Subject: "Duplicate"},
	}))

	n, err := s.CountEmails(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	emails, err := s.GetEmails(ctx, store.EmailFilter{})
	require.NoError(t, err)
	require.Len(t, emails, 1)
	assert.Equal(t, "Fresh", emails[0].Subject)
}

func TestRecordSent(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	first, err := s.RecordSent(ctx, model.SentReply{
		Platform:          model.PlatformGmail,
		OriginalMessageID: "g1",
		To:                "sam@x.com",
		Subject:           "Re: Lunch?",
		SentAt:            time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	_, err = s.RecordSent(ctx, model.SentReply{
		Platform:          model.PlatformOutlook,
		OriginalMessageID: "o1",
		To:                "boss@acme.com",
		Subject:           "Re: Quarterly report",
		Message:           "Reply sent via Outlook",
		SentAt:            time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	replies, err := s.GetSentReplies(ctx)
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, "o1", replies[0].OriginalMessageID)
	assert.Equal(t, model.PlatformOutlook, replies[0].Platform)
	assert.Equal(t, "boss@acme.com", replies[0].To)
	assert.Equal(t, first.ID, replies[1].ID)
}
