package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizquest/quizquest-go/internal/model"
	"github.com/quizquest/quizquest-go/internal/token"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func okResponse(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader("")),
		Header:     make(http.Header),
	}
}

func validToken() model.Token {
	return model.Token{AccessToken: "valid-access", ExpiresAt: time.Now().Add(time.Hour)}
}

func expiredToken() model.Token {
	return model.Token{AccessToken: "stale-access", RefreshToken: "rt", ExpiresAt: time.Now().Add(-time.Minute)}
}

type fakeRefresher struct {
	tok   model.Token
	err   error
	calls int64
	store *token.Store
}

func (f *fakeRefresher) Refresh(ctx context.Context) (model.Token, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.err != nil {
		if f.store != nil {
			f.store.Clear()
		}
		return model.Token{}, f.err
	}
	if f.store != nil {
		f.store.Set(f.tok)
	}
	return f.tok, nil
}

func TestNoTokenForwardsUnauthenticated(t *testing.T) {
	store := token.NewStore()
	var sawAuth string
	base := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		sawAuth = req.Header.Get("Authorization")
		return okResponse(http.StatusOK), nil
	})

	a := NewAuthorizer(base, store, nil, Hooks{}, zerolog.Nop())
	req := httptest.NewRequest(http.MethodGet, "http://backend/game/levels/1/next", nil)

	resp, err := a.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, sawAuth)
}

func TestValidTokenAttachesBearer(t *testing.T) {
	store := token.NewStore()
	store.Set(validToken())

	var sawAuth string
	base := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		sawAuth = req.Header.Get("Authorization")
		return okResponse(http.StatusOK), nil
	})

	a := NewAuthorizer(base, store, nil, Hooks{}, zerolog.Nop())
	req := httptest.NewRequest(http.MethodGet, "http://backend/game/levels/1/next", nil)

	_, err := a.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, "Bearer valid-access", sawAuth)
	// The caller's request must not be mutated.
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestExpiredTokenRefreshesBeforeSend(t *testing.T) {
	store := token.NewStore()
	store.Set(expiredToken())
	ref := &fakeRefresher{tok: validToken(), store: store}

	var sawAuth string
	base := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		sawAuth = req.Header.Get("Authorization")
		return okResponse(http.StatusOK), nil
	})

	a := NewAuthorizer(base, store, ref, Hooks{}, zerolog.Nop())
	req := httptest.NewRequest(http.MethodGet, "http://backend/game/levels/1/next", nil)

	_, err := a.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, int64(1), atomic.LoadInt64(&ref.calls))
	assert.Equal(t, "Bearer valid-access", sawAuth)
}

func TestExpiredTokenShortCircuitsWhenRefreshFails(t *testing.T) {
	store := token.NewStore()
	store.Set(expiredToken())
	ref := &fakeRefresher{err: errors.New("revoked"), store: store}

	var expired int64
	base := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		t.Fatal("a doomed request must not reach the wire")
		return nil, nil
	})

	a := NewAuthorizer(base, store, ref, Hooks{
		OnSessionExpired: func() { atomic.AddInt64(&expired, 1) },
	}, zerolog.Nop())
	req := httptest.NewRequest(http.MethodGet, "http://backend/game/levels/1/next", nil)

	_, err := a.RoundTrip(req)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int64(1), atomic.LoadInt64(&expired))
}

func TestExpiryBurstFiresHookOnce(t *testing.T) {
	store := token.NewStore()
	store.Set(expiredToken())
	ref := &fakeRefresher{err: errors.New("revoked"), store: store}

	var expired int64
	a := NewAuthorizer(roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return okResponse(http.StatusOK), nil
	}), store, ref, Hooks{
		OnSessionExpired: func() { atomic.AddInt64(&expired, 1) },
	}, zerolog.Nop())

	const burst = 10
	var wg sync.WaitGroup
	for i := 0; i < burst; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "http://backend/game/levels/1/next", nil)
			_, _ = a.RoundTrip(req)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&expired),
		"a burst of failures must produce exactly one logout/redirect")
}

func TestHookRearmsAfterNewLogin(t *testing.T) {
	store := token.NewStore()
	store.Set(validToken())

	var expired int64
	a := NewAuthorizer(roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return okResponse(http.StatusUnauthorized), nil
	}), store, nil, Hooks{
		OnSessionExpired: func() { atomic.AddInt64(&expired, 1) },
	}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "http://backend/game/levels/1/next", nil)
	resp, err := a.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int64(1), atomic.LoadInt64(&expired))

	// The 401 cleared the store. Logging in again re-arms the guard.
	store.Set(validToken())
	_, err = a.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, int64(2), atomic.LoadInt64(&expired))
}

func TestUnauthorizedClearsStore(t *testing.T) {
	store := token.NewStore()
	store.Set(validToken())

	a := NewAuthorizer(roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return okResponse(http.StatusUnauthorized), nil
	}), store, nil, Hooks{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "http://backend/game/levels/1/next", nil)
	_, err := a.RoundTrip(req)
	require.NoError(t, err)

	_, ok := store.Current()
	assert.False(t, ok)
}

func TestPayloadTooLargeNotifies(t *testing.T) {
	store := token.NewStore()
	store.Set(validToken())

	var notified int64
	a := NewAuthorizer(roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return okResponse(http.StatusRequestEntityTooLarge), nil
	}), store, nil, Hooks{
		OnPayloadTooLarge: func() { atomic.AddInt64(&notified, 1) },
	}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "http://backend/game/tasks/1/submit", nil)
	resp, err := a.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, int64(1), atomic.LoadInt64(&notified))

	// Token survives: 413 is recoverable by user action, not a session error.
	_, ok := store.Current()
	assert.True(t, ok)
}

func TestOtherStatusesPropagateUntouched(t *testing.T) {
	store := token.NewStore()
	store.Set(validToken())

	a := NewAuthorizer(roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return okResponse(http.StatusConflict), nil
	}), store, nil, Hooks{
		OnSessionExpired:  func() { t.Fatal("409 is not a session error") },
		OnPayloadTooLarge: func() { t.Fatal("409 is not a size error") },
	}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "http://backend/game/levels/1/next", nil)
	resp, err := a.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
