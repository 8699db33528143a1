package ratelimit_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jrsteele09/ziris-auth/internal/errors"
	"github.com/jrsteele09/ziris-auth/ratelimit"
)

func TestAdmitUpToLimit(t *testing.T) {
	l := ratelimit.New()

	for i := 0; i < 10; i++ {
		require.NoError(t, l.Admit("login:1.2.3.4", 10, time.Minute))
	}
	err := l.Admit("login:1.2.3.4", 10, time.Minute)
	assert.ErrorIs(t, err, apperrors.ErrTooManyRequests)
}

func TestKeysAreIndependent(t *testing.T) {
	l := ratelimit.New()

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Admit("login:1.2.3.4", 5, time.Minute))
	}
	require.ErrorIs(t, l.Admit("login:1.2.3.4", 5, time.Minute), apperrors.ErrTooManyRequests)

	// A different key is unaffected by the exhausted one.
	assert.NoError(t, l.Admit("login:5.6.7.8", 5, time.Minute))
	assert.NoError(t, l.Admit("login-user:alice", 5, time.Minute))
}

func TestWindowSlides(t *testing.T) {
	now := time.Now()
	clock := now
	l := ratelimit.New(ratelimit.WithNowFunc(func() time.Time { return clock }))

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Admit("k", 3, time.Minute))
	}
	require.ErrorIs(t, l.Admit("k", 3, time.Minute), apperrors.ErrTooManyRequests)

	// Once the window has elapsed with no new hits, admission resumes.
	clock = now.Add(61 * time.Second)
	assert.NoError(t, l.Admit("k", 3, time.Minute))
}

func TestRejectedCallDoesNotConsumeASlot(t *testing.T) {
	now := time.Now()
	clock := now
	l := ratelimit.New(ratelimit.WithNowFunc(func() time.Time { return clock }))

	require.NoError(t, l.Admit("k", 1, time.Minute))
	for i := 0; i < 5; i++ {
		require.ErrorIs(t, l.Admit("k", 1, time.Minute), apperrors.ErrTooManyRequests)
	}

	// Only the single admitted hit ages out; the rejections left no trace.
	clock = now.Add(61 * time.Second)
	assert.NoError(t, l.Admit("k", 1, time.Minute))
}

func TestConcurrentAdmissionAtBoundary(t *testing.T) {
	const maxHits = 50
	l := ratelimit.New()

	var wg sync.WaitGroup
	admitted := make([]bool, maxHits*2)
	start := make(chan struct{})

	for i := 0; i < maxHits*2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			admitted[i] = l.Admit("k", maxHits, time.Minute) == nil
		}(i)
	}
	close(start)
	wg.Wait()

	count := 0
	for _, ok := range admitted {
		if ok {
			count++
		}
	}
	assert.Equal(t, maxHits, count)
}

func TestSweepDropsIdleKeys(t *testing.T) {
	now := time.Now()
	clock := now
	l := ratelimit.New(ratelimit.WithNowFunc(func() time.Time { return clock }))

	for i := 0; i < 100; i++ {
		require.NoError(t, l.Admit(fmt.Sprintf("k%d", i), 10, time.Minute))
	}

	clock = now.Add(time.Hour)
	require.NoError(t, l.Admit("fresh", 10, time.Minute))

	removed := l.Sweep(30 * time.Minute)
	assert.Equal(t, 100, removed)

	// The fresh key keeps its recorded hit.
	for i := 0; i < 9; i++ {
		require.NoError(t, l.Admit("fresh", 10, time.Minute))
	}
	assert.ErrorIs(t, l.Admit("fresh", 10, time.Minute), apperrors.ErrTooManyRequests)
}
