package store

import (
	"context"

	"github.com/nhle/inboxdesk/internal/model"
)

// EmailFilter controls which inbox entries GetEmails returns.
type EmailFilter struct {
	Platforms []model.Platform // nil or empty means all platforms
	Query     string           // matched against subject, sender and snippet
}

// Store holds session state: the latest inbox snapshot and the replies
// sent since the program started.
type Store interface {
	ReplaceInbox(ctx context.Context, emails []model.EmailSummary) error
	GetEmails(ctx context.Context, filter EmailFilter) ([]model.EmailSummary, error)
	CountEmails(ctx context.Context) (int, error)

	RecordSent(ctx context.Context, reply model.SentReply) (model.SentReply, error)
	GetSentReplies(ctx context.Context) ([]model.SentReply, error)
}
