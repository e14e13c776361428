package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/inboxdesk/internal/model"
)

// SQLiteStore implements Store on an in-memory SQLite database. Nothing
// outlives the process.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens a fresh in-memory database and applies the schema.
func NewSQLiteStore() (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to :memory: gets its own database.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// ReplaceInbox swaps the stored snapshot for emails, keeping their order.
// Duplicate (platform, id) pairs keep the first occurrence.
func (s *SQLiteStore) ReplaceInbox(ctx context.Context, emails []model.EmailSummary) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM emails"); err != nil {
		return fmt.Errorf("clearing inbox snapshot: %w", err)
	}

	const query = `
		INSERT OR IGNORE INTO emails (
			platform, id, position, thread_id,
			subject, sender, date, snippet,
			message_id_header, references_header, in_reply_to_header
		) VALUES (
			?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?
		)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for i, e := range emails {
		_, err := stmt.ExecContext(ctx,
			string(e.Platform), e.ID, i, e.ThreadID,
			e.Subject, e.From, e.Date, e.Snippet,
			e.MessageIDHeader, e.ReferencesHdr, e.InReplyToHdr,
		)
		if err != nil {
			return fmt.Errorf("inserting email %s/%s: %w", e.Platform, e.ID, err)
		}
	}

	return tx.Commit()
}

// GetEmails returns the snapshot entries matching filter in backend order.
func (s *SQLiteStore) GetEmails(ctx context.Context, filter EmailFilter) ([]model.EmailSummary, error) {
	var conditions []string
	var args []interface{}

	if len(filter.Platforms) > 0 {
		placeholders := make([]string, len(filter.Platforms))
		for i, p := range filter.Platforms {
			placeholders[i] = "?"
			args = append(args, string(p))
		}
		conditions = append(conditions, "platform IN ("+strings.Join(placeholders, ", ")+")")
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		conditions = append(conditions, "(subject LIKE ? OR sender LIKE ? OR snippet LIKE ?)")
		like := "%" + q + "%"
		args = append(args, like, like, like)
	}

	query := `SELECT platform, id, thread_id, subject, sender, date, snippet,
		message_id_header, references_header, in_reply_to_header FROM emails`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY position ASC"

	var emails []model.EmailSummary
	if err := s.db.SelectContext(ctx, &emails, query, args...); err != nil {
		return nil, fmt.Errorf("querying emails: %w", err)
	}
	return emails, nil
}

// CountEmails returns the size of the current snapshot.
func (s *SQLiteStore) CountEmails(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM emails"); err != nil {
		return 0, fmt.Errorf("counting emails: %w", err)
	}
	return n, nil
}

// RecordSent logs a reply sent this session. A missing ID or timestamp
// is filled in.
func (s *SQLiteStore) RecordSent(ctx context.Context, reply model.SentReply) (model.SentReply, error) {
	if reply.ID == "" {
		reply.ID = uuid.New().String()
	}
	if reply.SentAt.IsZero() {
		reply.SentAt = time.Now()
	}
	reply.SentAt = reply.SentAt.UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO sent_replies (id, platform, original_message_id, recipient, subject, message, sent_at)
		VALUES (:id, :platform, :original_message_id, :recipient, :subject, :message, :sent_at)`,
		reply,
	)
	if err != nil {
		return model.SentReply{}, fmt.Errorf("recording sent reply: %w", err)
	}

	return reply, nil
}

// GetSentReplies returns this session's sent replies, newest first.
func (s *SQLiteStore) GetSentReplies(ctx context.Context) ([]model.SentReply, error) {
	var replies []model.SentReply
	err := s.db.SelectContext(ctx, &replies,
		"SELECT * FROM sent_replies ORDER BY sent_at DESC, rowid DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("querying sent replies: %w", err)
	}
	return replies, nil
}
