package session

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	apperrors "github.com/jrsteele09/ziris-auth/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is the volatile in-process token store. All tokens are lost on
// restart; that is an accepted property of the deployment, not a bug.
type InMemoryRepo struct {
	lock    sync.Mutex
	tokens  map[string]*StoredToken
	byOwner map[string]map[string]struct{} // ownerID -> token strings
}

// NewInMemoryRepo creates a new in-memory refresh token repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		tokens:  make(map[string]*StoredToken),
		byOwner: make(map[string]map[string]struct{}),
	}
}

func (r *InMemoryRepo) Insert(token *StoredToken) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.insertLocked(token)
}

func (r *InMemoryRepo) insertLocked(token *StoredToken) error {
	if token.Token == "" || token.OwnerID == "" {
		return errors.New("[InMemoryRepo.Insert] token and owner are required")
	}
	if _, exists := r.tokens[token.Token]; exists {
		// No two live tokens may ever share a string, regardless of owner.
		return errors.New("[InMemoryRepo.Insert] duplicate token string")
	}
	stored := *token
	r.tokens[stored.Token] = &stored
	if _, ok := r.byOwner[stored.OwnerID]; !ok {
		r.byOwner[stored.OwnerID] = make(map[string]struct{})
	}
	r.byOwner[stored.OwnerID][stored.Token] = struct{}{}
	return nil
}

func (r *InMemoryRepo) Get(token string) (*StoredToken, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	stored, ok := r.tokens[token]
	if !ok {
		return nil, apperrors.ErrInvalidToken
	}
	copied := *stored
	return &copied, nil
}

func (r *InMemoryRepo) Rotate(oldToken string, newToken *StoredToken, now time.Time) (*StoredToken, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	stored, ok := r.tokens[oldToken]
	if !ok || stored.Revoked {
		return nil, apperrors.ErrInvalidToken
	}
	if !now.Before(stored.ExpiresAt) {
		return nil, apperrors.ErrTokenExpired
	}

	replacement := *newToken
	replacement.OwnerID = stored.OwnerID
	if err := r.insertLocked(&replacement); err != nil {
		return nil, err
	}
	stored.Revoked = true
	return &replacement, nil
}

func (r *InMemoryRepo) Revoke(token string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if stored, ok := r.tokens[token]; ok {
		stored.Revoked = true
	}
	return nil
}

func (r *InMemoryRepo) RevokeAll(ownerID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for tokenStr := range r.byOwner[ownerID] {
		if stored, ok := r.tokens[tokenStr]; ok {
			stored.Revoked = true
		}
	}
	return nil
}

func (r *InMemoryRepo) DeleteExpiredBefore(cutoff time.Time) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	deleted := 0
	for tokenStr, stored := range r.tokens {
		if stored.ExpiresAt.Before(cutoff) {
			delete(r.tokens, tokenStr)
			if owned, ok := r.byOwner[stored.OwnerID]; ok {
				delete(owned, tokenStr)
				if len(owned) == 0 {
					delete(r.byOwner, stored.OwnerID)
				}
			}
			deleted++
		}
	}
	return deleted, nil
}
