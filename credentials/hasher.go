// Package credentials hashes and verifies passwords. The current scheme is
// bcrypt; a single legacy scheme (unsalted SHA-256 hex) is recognised for
// verification only, so existing accounts can be migrated on first login.
package credentials

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/jrsteele09/ziris-auth/internal/errors"
)

// legacyHashLength is the hex length of an unsalted SHA-256 digest. Stored
// hashes of this shape predate the bcrypt migration.
const legacyHashLength = 64

// Hasher hashes passwords under a work factor fixed at construction.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher with the given bcrypt cost. It runs a
// hash-and-verify self check so a broken or unavailable hashing backend is a
// startup error, never a silent downgrade to the legacy scheme.
func NewHasher(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, apperrors.Wrapf(apperrors.ErrWeakHashingUnavailable, "bcrypt cost %d out of range", cost)
	}

	h := &Hasher{cost: cost}
	probe, err := bcrypt.GenerateFromPassword([]byte("self-check"), bcrypt.MinCost)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrWeakHashingUnavailable, "bcrypt self check: %v", err)
	}
	if bcrypt.CompareHashAndPassword(probe, []byte("self-check")) != nil {
		return nil, apperrors.ErrWeakHashingUnavailable
	}
	return h, nil
}

// Hash returns the bcrypt hash of the password under the configured cost.
func (h *Hasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", apperrors.Wrapf(err, "hashing password")
	}
	return string(hashed), nil
}

// Verify checks a password against a stored hash. The current scheme is tried
// first (bcrypt's own constant-time comparison); on mismatch, exactly one
// legacy attempt is made. A legacy match returns shouldUpgrade=true so the
// caller can immediately re-hash and persist under the current scheme.
func (h *Hasher) Verify(password, storedHash string) (matched, shouldUpgrade bool) {
	if bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil {
		return true, false
	}
	if isLegacyHash(storedHash) && legacyMatch(password, storedHash) {
		return true, true
	}
	return false, false
}

// isLegacyHash reports whether the stored hash has the shape of the
// pre-migration scheme rather than a bcrypt hash.
func isLegacyHash(storedHash string) bool {
	if len(storedHash) != legacyHashLength {
		return false
	}
	_, err := hex.DecodeString(storedHash)
	return err == nil
}

func legacyMatch(password, storedHash string) bool {
	digest := sha256.Sum256([]byte(password))
	computed := hex.EncodeToString(digest[:])
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
