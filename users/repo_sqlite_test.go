package users_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jrsteele09/ziris-auth/internal/errors"
	"github.com/jrsteele09/ziris-auth/users"
)

// testDB creates a temporary SQLite database. The file is cleaned up when the
// test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "users-test-*.db")
	require.NoError(t, err)
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func TestSQLiteRepoRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, err := users.NewSQLiteRepo(testDB(t))
	require.NoError(t, err)

	user := &users.User{Username: "demo", PasswordHash: "hash", Role: users.RoleUser, IsActive: true}
	require.NoError(t, repo.Upsert(ctx, user))
	require.NotEmpty(t, user.ID)

	stored, err := repo.GetByUsername(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.ID)
	assert.Equal(t, "hash", stored.PasswordHash)
	assert.Equal(t, users.RoleUser, stored.Role)
	assert.True(t, stored.IsActive)
	assert.True(t, stored.LastLoginAt.IsZero())
}

func TestSQLiteRepoDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	repo, err := users.NewSQLiteRepo(testDB(t))
	require.NoError(t, err)

	require.NoError(t, repo.Upsert(ctx, &users.User{Username: "demo", PasswordHash: "a"}))

	err = repo.Upsert(ctx, &users.User{Username: "demo", PasswordHash: "b"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUsernameExists))
}

func TestSQLiteRepoUpdates(t *testing.T) {
	ctx := context.Background()
	repo, err := users.NewSQLiteRepo(testDB(t))
	require.NoError(t, err)

	user := &users.User{Username: "demo", PasswordHash: "old"}
	require.NoError(t, repo.Upsert(ctx, user))

	require.NoError(t, repo.UpdatePasswordHash(ctx, user.ID, "new"))
	require.NoError(t, repo.SetActive(ctx, user.ID, true))

	loginAt := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetLastLogin(ctx, user.ID, loginAt))

	stored, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", stored.PasswordHash)
	assert.True(t, stored.IsActive)
	assert.Equal(t, loginAt, stored.LastLoginAt)

	assert.True(t, apperrors.Is(repo.SetActive(ctx, "missing", true), apperrors.ErrUserNotFound))
	assert.True(t, apperrors.Is(repo.UpdatePasswordHash(ctx, "missing", "x"), apperrors.ErrUserNotFound))
}

func TestSQLiteRepoListAndCount(t *testing.T) {
	ctx := context.Background()
	repo, err := users.NewSQLiteRepo(testDB(t))
	require.NoError(t, err)

	listed, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)

	require.NoError(t, repo.Upsert(ctx, &users.User{Username: "demo", PasswordHash: "a"}))
	require.NoError(t, repo.Upsert(ctx, &users.User{Username: "admin", PasswordHash: "b", Role: users.RoleAdmin}))

	listed, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
