package model

import "time"

// SentReply records a reply sent during the current session.
type SentReply struct {
	ID                string    `db:"id"`
	Platform          Platform  `db:"platform"`
	OriginalMessageID string    `db:"original_message_id"`
	To                string    `db:"recipient"`
	Subject           string    `db:"subject"`
	Message           string    `db:"message"`
	SentAt            time.Time `db:"sent_at"`
}
