package audit_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/ziris-auth/audit"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "audit-test-*.db")
	require.NoError(t, err)
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	sink, err := audit.NewSQLiteSink(testDB(t))
	require.NoError(t, err)

	base := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, sink.Record(ctx, audit.Entry{
		Action:    audit.ActionLogin,
		UserID:    "user-1",
		Username:  "demo",
		RemoteIP:  "10.0.0.5",
		CreatedAt: base,
	}))
	require.NoError(t, sink.Record(ctx, audit.Entry{
		Action:    audit.ActionLoginFailed,
		Username:  "demo",
		Detail:    "bad password",
		CreatedAt: base.Add(time.Minute),
	}))

	entries, err := sink.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, audit.ActionLoginFailed, entries[0].Action)
	assert.Equal(t, "bad password", entries[0].Detail)
	assert.Empty(t, entries[0].UserID)

	assert.Equal(t, audit.ActionLogin, entries[1].Action)
	assert.Equal(t, "user-1", entries[1].UserID)
	assert.Equal(t, "10.0.0.5", entries[1].RemoteIP)
	assert.NotEmpty(t, entries[1].ID)
}

func TestRecordGeneratesIDAndTimestamp(t *testing.T) {
	ctx := context.Background()
	sink, err := audit.NewSQLiteSink(testDB(t))
	require.NoError(t, err)

	require.NoError(t, sink.Record(ctx, audit.Entry{Action: audit.ActionLogout, UserID: "user-1"}))

	entries, err := sink.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestListLimit(t *testing.T) {
	ctx := context.Background()
	sink, err := audit.NewSQLiteSink(testDB(t))
	require.NoError(t, err)

	base := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, sink.Record(ctx, audit.Entry{
			Action:    audit.ActionRefresh,
			UserID:    "user-1",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := sink.List(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
