package audit

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jrsteele09/ziris-auth/internal/errors"
)

var _ Sink = (*SQLiteSink)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS audit_log (
	id TEXT PRIMARY KEY,
	action TEXT NOT NULL,
	user_id TEXT,
	username TEXT,
	remote_ip TEXT,
	detail TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_log_user ON audit_log(user_id);
CREATE INDEX IF NOT EXISTS idx_audit_log_created ON audit_log(created_at);
`

// SQLiteSink persists audit entries to an audit_log table.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink creates a SQLite-backed audit sink and ensures the audit_log
// table exists.
func NewSQLiteSink(db *sql.DB) (*SQLiteSink, error) {
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, apperrors.Wrapf(err, "[NewSQLiteSink] initializing schema")
	}
	return &SQLiteSink{db: db}, nil
}

// Record inserts an audit entry. The ID and CreatedAt are generated if empty.
func (s *SQLiteSink) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, action, user_id, username, remote_ip, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Action,
		nullableString(entry.UserID), nullableString(entry.Username),
		nullableString(entry.RemoteIP), nullableString(entry.Detail),
		entry.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return apperrors.Wrapf(err, "[SQLiteSink.Record] inserting entry")
	}
	return nil
}

// List returns the most recent entries, newest first.
func (s *SQLiteSink) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, user_id, username, remote_ip, detail, created_at
		 FROM audit_log ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[SQLiteSink.List] querying entries")
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var entry Entry
		var userID, username, remoteIP, detail sql.NullString
		var createdAt string

		if err := rows.Scan(&entry.ID, &entry.Action, &userID, &username, &remoteIP, &detail, &createdAt); err != nil {
			return nil, apperrors.Wrapf(err, "[SQLiteSink.List] scanning entry")
		}
		entry.UserID = userID.String
		entry.Username = username.String
		entry.RemoteIP = remoteIP.String
		entry.Detail = detail.String
		entry.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrapf(err, "[SQLiteSink.List] iterating entries")
	}
	return entries, nil
}

// nullableString returns nil for empty strings, for nullable TEXT columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
