package session

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"

	apperrors "github.com/jrsteele09/ziris-auth/internal/errors"
)

// retentionMultiple controls how long revoked/expired tokens stay in the
// lookup structure after expiry, so replayed tokens keep failing as revoked
// rather than becoming unknown-and-forgotten.
const retentionMultiple = 2

// Manager handles refresh token creation, validation, and rotation
type Manager struct {
	repo        Repo
	ttl         time.Duration
	tokenLength int
	nowFunc     func() time.Time
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithNowFunc sets the clock function (primarily for testing)
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// NewManager creates a new refresh token manager. Tokens carry a fixed TTL
// from issuance and at least tokenLength bytes of entropy.
func NewManager(repo Repo, ttl time.Duration, tokenLength int, options ...ManagerOption) *Manager {
	m := &Manager{
		repo:        repo,
		ttl:         ttl,
		tokenLength: tokenLength,
		nowFunc:     time.Now,
	}
	if m.ttl <= 0 {
		m.ttl = 14 * 24 * time.Hour
	}
	if m.tokenLength < 32 {
		m.tokenLength = 32 // 32 bytes = 256 bits
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Issue generates a new refresh token for the owner and records it active.
func (m *Manager) Issue(ownerID string) (string, time.Time, error) {
	token, err := m.generate()
	if err != nil {
		return "", time.Time{}, err
	}
	now := m.nowFunc()
	expiresAt := now.Add(m.ttl)
	if err := m.repo.Insert(&StoredToken{
		Token:     token,
		OwnerID:   ownerID,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}); err != nil {
		return "", time.Time{}, errors.Wrap(err, "[Manager.Issue] repo.Insert")
	}
	return token, expiresAt, nil
}

// Rotate atomically revokes oldToken and returns a freshly issued token for
// the same owner. Exactly one of any set of concurrent callers succeeds; the
// rest fail with ErrInvalidToken (or ErrTokenExpired) and mutate nothing.
func (m *Manager) Rotate(oldToken string) (string, time.Time, error) {
	token, err := m.generate()
	if err != nil {
		return "", time.Time{}, err
	}
	now := m.nowFunc()
	rotated, err := m.repo.Rotate(oldToken, &StoredToken{
		Token:     token,
		ExpiresAt: now.Add(m.ttl),
		CreatedAt: now,
	}, now)
	if err != nil {
		return "", time.Time{}, err
	}
	return rotated.Token, rotated.ExpiresAt, nil
}

// Owner returns the owning user of a token that is currently active.
func (m *Manager) Owner(token string) (string, error) {
	stored, err := m.repo.Get(token)
	if err != nil {
		return "", err
	}
	if stored.Revoked {
		return "", apperrors.ErrInvalidToken
	}
	if !m.nowFunc().Before(stored.ExpiresAt) {
		return "", apperrors.ErrTokenExpired
	}
	return stored.OwnerID, nil
}

// Revoke marks a token revoked. Idempotent: revoking an unknown or
// already-revoked token is a no-op, never an error.
func (m *Manager) Revoke(token string) error {
	return m.repo.Revoke(token)
}

// RevokeAll revokes every active token for the owner (logout everywhere,
// password reset).
func (m *Manager) RevokeAll(ownerID string) error {
	return m.repo.RevokeAll(ownerID)
}

// IsActive reports whether the token exists, is unrevoked, and is unexpired.
func (m *Manager) IsActive(token string) bool {
	stored, err := m.repo.Get(token)
	if err != nil {
		return false
	}
	return stored.Active(m.nowFunc())
}

// Sweep reclaims memory from tokens that expired long enough ago that replay
// rejection no longer needs them. Optional; never required for correctness.
func (m *Manager) Sweep() (int, error) {
	cutoff := m.nowFunc().Add(-retentionMultiple * m.ttl)
	return m.repo.DeleteExpiredBefore(cutoff)
}

func (m *Manager) generate() (string, error) {
	tokenBytes := make([]byte, m.tokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", errors.Wrap(err, "[Manager.generate] rand.Read")
	}
	return hex.EncodeToString(tokenBytes), nil
}
