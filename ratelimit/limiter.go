// Package ratelimit provides sliding-window admission control keyed by
// arbitrary strings. It is the backpressure mechanism against credential
// stuffing and brute force: fail closed, no partial admission.
package ratelimit

import (
	"sync"
	"time"

	apperrors "github.com/jrsteele09/ziris-auth/internal/errors"
)

// Limiter tracks hit timestamps per key over a trailing window. Buckets are
// purged lazily on each admission check; Sweep can reclaim idle keys.
type Limiter struct {
	lock    sync.Mutex
	buckets map[string][]time.Time
	nowFunc func() time.Time
}

// Option defines a function type to modify the Limiter instance.
type Option func(*Limiter)

// WithNowFunc sets the clock function (primarily for testing)
func WithNowFunc(now func() time.Time) Option {
	return func(l *Limiter) {
		l.nowFunc = now
	}
}

// New creates a sliding-window rate limiter.
func New(options ...Option) *Limiter {
	l := &Limiter{
		buckets: make(map[string][]time.Time),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// Admit records a hit for the key if fewer than maxHits fall inside the
// trailing window, and fails with ErrTooManyRequests otherwise. The
// check-and-increment is atomic per key: at a full window, concurrent calls
// cannot both take the last slot.
func (l *Limiter) Admit(key string, maxHits int, window time.Duration) error {
	now := l.nowFunc()
	windowStart := now.Add(-window)

	l.lock.Lock()
	defer l.lock.Unlock()

	hits := l.buckets[key]
	kept := hits[:0]
	for _, hit := range hits {
		if !hit.Before(windowStart) {
			kept = append(kept, hit)
		}
	}

	if len(kept) >= maxHits {
		l.buckets[key] = kept
		return apperrors.ErrTooManyRequests
	}

	l.buckets[key] = append(kept, now)
	return nil
}

// Sweep drops keys whose every hit is older than maxAge. Memory reclamation
// only; admission correctness relies on the lazy purge in Admit.
func (l *Limiter) Sweep(maxAge time.Duration) int {
	cutoff := l.nowFunc().Add(-maxAge)

	l.lock.Lock()
	defer l.lock.Unlock()

	removed := 0
	for key, hits := range l.buckets {
		stale := true
		for _, hit := range hits {
			if !hit.Before(cutoff) {
				stale = false
				break
			}
		}
		if stale {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}
