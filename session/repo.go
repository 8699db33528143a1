// Package session manages refresh tokens: issuance, atomic rotation,
// revocation, and replay rejection.
package session

import "time"

// StoredToken represents the server-side record of a refresh token. The
// client only ever sees the Token field (an opaque random string).
type StoredToken struct {
	Token     string    // The opaque random token string (sent to client)
	OwnerID   string    // Server-side metadata: the owning user
	ExpiresAt time.Time // Fixed TTL from issuance
	Revoked   bool      // Terminal: a revoked token never becomes active again
	CreatedAt time.Time
}

// Active reports whether the token is usable at the given instant.
func (t *StoredToken) Active(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// Repo manages server-side storage of refresh tokens. Revoked and expired
// tokens are retained so replayed tokens are rejected rather than treated as
// unknown; Rotate is the only read-modify-write operation and must be atomic:
// at most one concurrent caller may rotate a given token.
type Repo interface {
	Insert(token *StoredToken) error
	Get(token string) (*StoredToken, error)

	// Rotate atomically checks that oldToken is active at `now`, marks it
	// revoked, and inserts newToken for the same owner. Unknown or revoked
	// tokens fail with ErrInvalidToken, expired ones with ErrTokenExpired;
	// failed rotations mutate nothing.
	Rotate(oldToken string, newToken *StoredToken, now time.Time) (*StoredToken, error)

	// Revoke marks a token revoked. Revoking an unknown or already-revoked
	// token is a no-op.
	Revoke(token string) error

	// RevokeAll marks every active token for the owner revoked.
	RevokeAll(ownerID string) error

	// DeleteExpiredBefore removes tokens whose expiry predates the cutoff,
	// returning the number removed. Memory reclamation only; correctness
	// never depends on it running.
	DeleteExpiredBefore(cutoff time.Time) (int, error)
}
