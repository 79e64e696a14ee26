package token

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizquest/quizquest-go/internal/model"
)

func seededStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	s.Set(model.Token{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		ExpiresAt:    time.Now().Add(-time.Minute),
	})
	return s
}

func TestRefreshSingleFlight(t *testing.T) {
	store := seededStore(t)

	var calls int64
	release := make(chan struct{})
	exchange := func(ctx context.Context, rt string) (model.Token, error) {
		atomic.AddInt64(&calls, 1)
		<-release
		return model.Token{
			AccessToken:  "new-access",
			RefreshToken: "new-refresh",
			ExpiresAt:    time.Now().Add(time.Hour),
		}, nil
	}
	r := NewRefresher(store, exchange, zerolog.Nop())

	const waiters = 8
	var wg sync.WaitGroup
	results := make([]model.Token, waiters)
	errs := make([]error, waiters)

	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.Refresh(context.Background())
		}(i)
	}

	// Let every waiter attach to the in-flight call before it settles.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&calls), "concurrent callers must share one backend call")
	for i := 0; i < waiters; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "new-access", results[i].AccessToken)
	}

	cur, ok := store.Current()
	require.True(t, ok)
	assert.Equal(t, "new-access", cur.AccessToken)
}

func TestRefreshFailureClearsStore(t *testing.T) {
	store := seededStore(t)
	boom := errors.New("refresh token revoked")
	r := NewRefresher(store, func(ctx context.Context, rt string) (model.Token, error) {
		return model.Token{}, boom
	}, zerolog.Nop())

	_, err := r.Refresh(context.Background())
	require.ErrorIs(t, err, boom)

	_, ok := store.Current()
	assert.False(t, ok, "failed refresh must clear the store")
}

func TestRefreshWithoutRefreshToken(t *testing.T) {
	store := NewStore()
	store.Set(model.Token{AccessToken: "only-access", ExpiresAt: time.Now().Add(-time.Minute)})

	r := NewRefresher(store, func(ctx context.Context, rt string) (model.Token, error) {
		t.Fatal("exchange must not be called without a refresh token")
		return model.Token{}, nil
	}, zerolog.Nop())

	_, err := r.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoRefreshToken)
}

func TestRefreshUsesStoredRefreshToken(t *testing.T) {
	store := seededStore(t)
	var seen string
	r := NewRefresher(store, func(ctx context.Context, rt string) (model.Token, error) {
		seen = rt
		return model.Token{AccessToken: "a", RefreshToken: "b", ExpiresAt: time.Now().Add(time.Hour)}, nil
	}, zerolog.Nop())

	_, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "old-refresh", seen)
}
