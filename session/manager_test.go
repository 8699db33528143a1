package session_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jrsteele09/ziris-auth/internal/errors"
	"github.com/jrsteele09/ziris-auth/session"
)

const testOwner = "user-1"

func newTestManager(options ...session.ManagerOption) *session.Manager {
	return session.NewManager(session.NewInMemoryRepo(), 14*24*time.Hour, 32, options...)
}

func TestIssueReturnsActiveToken(t *testing.T) {
	m := newTestManager()

	token, expiresAt, err := m.Issue(testOwner)
	require.NoError(t, err)
	assert.Len(t, token, 64) // 32 random bytes, hex encoded
	assert.True(t, expiresAt.After(time.Now()))
	assert.True(t, m.IsActive(token))

	owner, err := m.Owner(token)
	require.NoError(t, err)
	assert.Equal(t, testOwner, owner)
}

func TestIssuedTokensAreUnique(t *testing.T) {
	m := newTestManager()

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		token, _, err := m.Issue(testOwner)
		require.NoError(t, err)
		_, dup := seen[token]
		require.False(t, dup)
		seen[token] = struct{}{}
	}
}

func TestRotateRevokesOldAndIssuesNew(t *testing.T) {
	m := newTestManager()

	oldToken, _, err := m.Issue(testOwner)
	require.NoError(t, err)

	newToken, _, err := m.Rotate(oldToken)
	require.NoError(t, err)
	assert.NotEqual(t, oldToken, newToken)
	assert.False(t, m.IsActive(oldToken))
	assert.True(t, m.IsActive(newToken))

	owner, err := m.Owner(newToken)
	require.NoError(t, err)
	assert.Equal(t, testOwner, owner)
}

func TestRotateRejectsReplay(t *testing.T) {
	m := newTestManager()

	oldToken, _, err := m.Issue(testOwner)
	require.NoError(t, err)

	_, _, err = m.Rotate(oldToken)
	require.NoError(t, err)

	// The rotated token is terminal: a second rotation is a replay.
	_, _, err = m.Rotate(oldToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestRotateUnknownToken(t *testing.T) {
	m := newTestManager()

	_, _, err := m.Rotate("never-issued")
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestRotateExpiredToken(t *testing.T) {
	now := time.Now()
	clock := now
	m := newTestManager(session.WithNowFunc(func() time.Time { return clock }))

	token, _, err := m.Issue(testOwner)
	require.NoError(t, err)

	clock = now.Add(15 * 24 * time.Hour)
	_, _, err = m.Rotate(token)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestConcurrentRotateHasExactlyOneWinner(t *testing.T) {
	m := newTestManager()

	oldToken, _, err := m.Issue(testOwner)
	require.NoError(t, err)

	const attempts = 16
	var wg sync.WaitGroup
	results := make([]error, attempts)
	start := make(chan struct{})

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, _, results[i] = m.Rotate(oldToken)
		}(i)
	}
	close(start)
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
		}
	}
	assert.Equal(t, 1, winners)
	assert.False(t, m.IsActive(oldToken))
}

func TestRevokeIsIdempotent(t *testing.T) {
	m := newTestManager()

	token, _, err := m.Issue(testOwner)
	require.NoError(t, err)

	require.NoError(t, m.Revoke(token))
	assert.False(t, m.IsActive(token))

	require.NoError(t, m.Revoke(token))
	assert.False(t, m.IsActive(token))

	require.NoError(t, m.Revoke("never-issued"))
}

func TestRevokeAll(t *testing.T) {
	m := newTestManager()

	first, _, err := m.Issue(testOwner)
	require.NoError(t, err)
	second, _, err := m.Issue(testOwner)
	require.NoError(t, err)
	other, _, err := m.Issue("user-2")
	require.NoError(t, err)

	require.NoError(t, m.RevokeAll(testOwner))
	assert.False(t, m.IsActive(first))
	assert.False(t, m.IsActive(second))
	assert.True(t, m.IsActive(other))
}

func TestRevokedTokenIsRetainedForReplayRejection(t *testing.T) {
	m := newTestManager()

	token, _, err := m.Issue(testOwner)
	require.NoError(t, err)
	require.NoError(t, m.Revoke(token))

	// A revoked token must stay distinguishable from garbage until swept.
	_, _, err = m.Rotate(token)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestSweepReclaimsOnlyLongExpiredTokens(t *testing.T) {
	now := time.Now()
	clock := now
	m := newTestManager(session.WithNowFunc(func() time.Time { return clock }))

	token, _, err := m.Issue(testOwner)
	require.NoError(t, err)

	// Recently expired: kept for replay rejection.
	clock = now.Add(15 * 24 * time.Hour)
	deleted, err := m.Sweep()
	require.NoError(t, err)
	assert.Zero(t, deleted)

	// Long past retention: reclaimed.
	clock = now.Add(60 * 24 * time.Hour)
	deleted, err = m.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.False(t, m.IsActive(token))
}
