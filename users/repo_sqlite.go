package users

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jrsteele09/ziris-auth/internal/errors"
)

var _ Repo = (*SQLiteRepo)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'user',
	is_active INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	last_login TEXT
);
CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
`

// SQLiteRepo implements Repo using SQLite.
type SQLiteRepo struct {
	db *sql.DB
}

// NewSQLiteRepo creates a SQLite-backed user repository and ensures the
// users table exists.
func NewSQLiteRepo(db *sql.DB) (*SQLiteRepo, error) {
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, apperrors.Wrapf(err, "[NewSQLiteRepo] initializing schema")
	}
	return &SQLiteRepo{db: db}, nil
}

// Upsert inserts or replaces a user. The ID is generated if empty.
func (r *SQLiteRepo) Upsert(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, role, is_active, created_at, last_login)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			password_hash = excluded.password_hash,
			role = excluded.role,
			is_active = excluded.is_active,
			last_login = excluded.last_login`,
		user.ID, user.Username, user.PasswordHash, string(user.Role),
		boolToInt(user.IsActive), user.CreatedAt.Format(time.RFC3339),
		nullableTime(user.LastLoginAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrUsernameExists
		}
		return apperrors.Wrapf(err, "[SQLiteRepo.Upsert] inserting user")
	}
	return nil
}

// GetByUsername retrieves a user by their username.
func (r *SQLiteRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getUser(ctx,
		"SELECT id, username, password_hash, role, is_active, created_at, last_login FROM users WHERE username = ?",
		username)
}

// GetByID retrieves a user by their unique ID.
func (r *SQLiteRepo) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getUser(ctx,
		"SELECT id, username, password_hash, role, is_active, created_at, last_login FROM users WHERE id = ?",
		id)
}

// List returns all users ordered by creation date.
func (r *SQLiteRepo) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, username, password_hash, role, is_active, created_at, last_login FROM users ORDER BY created_at ASC")
	if err != nil {
		return nil, apperrors.Wrapf(err, "[SQLiteRepo.List] querying users")
	}
	defer rows.Close()

	userList := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		userList = append(userList, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrapf(err, "[SQLiteRepo.List] iterating users")
	}
	return userList, nil
}

// UpdatePasswordHash changes a user's password hash.
func (r *SQLiteRepo) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	return r.updateOne(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, id)
}

// SetActive enables or disables an account.
func (r *SQLiteRepo) SetActive(ctx context.Context, id string, active bool) error {
	return r.updateOne(ctx, "UPDATE users SET is_active = ? WHERE id = ?", boolToInt(active), id)
}

// SetLastLogin records the time of the user's latest successful login.
func (r *SQLiteRepo) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.updateOne(ctx, "UPDATE users SET last_login = ? WHERE id = ?", at.UTC().Format(time.RFC3339), id)
}

// Count returns the total number of user accounts.
func (r *SQLiteRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, apperrors.Wrapf(err, "[SQLiteRepo.Count] counting users")
	}
	return count, nil
}

func (r *SQLiteRepo) updateOne(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.Wrapf(err, "[SQLiteRepo] updating user")
	}
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func (r *SQLiteRepo) getUser(ctx context.Context, query string, args ...any) (*User, error) {
	row := r.db.QueryRowContext(ctx, query, args...)
	return scanUser(row)
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*User, error) {
	var u User
	var role string
	var isActive int
	var createdAt string
	var lastLogin sql.NullString

	err := s.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &isActive, &createdAt, &lastLogin)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrapf(err, "scanning user")
	}

	u.Role = RoleType(role)
	u.IsActive = isActive != 0
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	if lastLogin.Valid {
		u.LastLoginAt, _ = time.Parse(time.RFC3339, lastLogin.String) //nolint:errcheck // format is controlled
	}
	return &u, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
