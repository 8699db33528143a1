// Package reset issues and redeems single-use password reset tokens.
package reset

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/ziris-auth/internal/errors"
)

const (
	defaultTokenTTL    = 2 * time.Hour
	defaultTokenLength = 32
)

type pendingReset struct {
	ownerID   string
	expiresAt time.Time
}

// Store holds outstanding reset tokens. Tokens are opaque random strings,
// redeemable exactly once before their expiry.
type Store struct {
	lock        sync.Mutex
	tokens      map[string]pendingReset
	ttl         time.Duration
	tokenLength int
	nowFunc     func() time.Time
}

// Options configures a Store.
type Options func(*Store)

// WithNowFunc replaces the clock, for tests.
func WithNowFunc(nowFunc func() time.Time) Options {
	return func(s *Store) {
		s.nowFunc = nowFunc
	}
}

// WithTTL overrides the default token lifetime.
func WithTTL(ttl time.Duration) Options {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewStore creates an empty reset token store.
func NewStore(options ...Options) *Store {
	s := &Store{
		tokens:      make(map[string]pendingReset),
		ttl:         defaultTokenTTL,
		tokenLength: defaultTokenLength,
		nowFunc:     time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Request issues a new reset token for the owner. Earlier tokens for the same
// owner stay valid until they expire or are redeemed.
func (s *Store) Request(ownerID string) (string, error) {
	token, err := s.generate()
	if err != nil {
		return "", apperrors.Wrapf(err, "[Store.Request] generating token")
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.tokens[token] = pendingReset{
		ownerID:   ownerID,
		expiresAt: s.nowFunc().Add(s.ttl),
	}
	return token, nil
}

// Confirm redeems a token and returns its owner. Unknown tokens return
// ErrNotFound; expired tokens return ErrTokenExpired. Either way the token is
// gone afterwards, so a token can never be redeemed twice.
func (s *Store) Confirm(token string) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	pending, ok := s.tokens[token]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	delete(s.tokens, token)

	if !s.nowFunc().Before(pending.expiresAt) {
		return "", apperrors.ErrTokenExpired
	}
	return pending.ownerID, nil
}

// Sweep drops expired tokens and returns how many were removed.
func (s *Store) Sweep() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	now := s.nowFunc()
	removed := 0
	for token, pending := range s.tokens {
		if !now.Before(pending.expiresAt) {
			delete(s.tokens, token)
			removed++
		}
	}
	return removed
}

func (s *Store) generate() (string, error) {
	buf := make([]byte, s.tokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
