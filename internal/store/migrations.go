package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS emails (
	platform           TEXT NOT NULL,
	id                 TEXT NOT NULL,
	position           INTEGER NOT NULL,
	thread_id          TEXT NOT NULL DEFAULT '',
	subject            TEXT NOT NULL DEFAULT '',
	sender             TEXT NOT NULL DEFAULT '',
	date               TEXT NOT NULL DEFAULT '',
	snippet            TEXT NOT NULL DEFAULT '',
	message_id_header  TEXT NOT NULL DEFAULT '',
	references_header  TEXT NOT NULL DEFAULT '',
	in_reply_to_header TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (platform, id)
);

CREATE INDEX IF NOT EXISTS idx_emails_position ON emails(position);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS sent_replies (
	id                  TEXT PRIMARY KEY,
	platform            TEXT NOT NULL,
	original_message_id TEXT NOT NULL,
	recipient           TEXT NOT NULL,
	subject             TEXT NOT NULL,
	message             TEXT NOT NULL DEFAULT '',
	sent_at             DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sent_replies_sent_at ON sent_replies(sent_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
