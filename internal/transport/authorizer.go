// Package transport provides the authorizing HTTP round tripper that
// annotates outbound requests with the bearer token, coordinates
// refresh-before-send, and funnels session expiry into a single
// logout/redirect path.
package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/quizquest/quizquest-go/internal/model"
	"github.com/quizquest/quizquest-go/internal/token"
)

// ErrSessionExpired is returned instead of sending a request whose
// token is already expired and could not be refreshed.
var ErrSessionExpired = errors.New("session expired")

// Refresher is the subset of the token refresher the authorizer needs.
type Refresher interface {
	Refresh(ctx context.Context) (model.Token, error)
}

// Hooks are the observable side effects of the authorizer. Both are
// optional. OnSessionExpired fires at most once per token generation,
// no matter how many requests fail in the same burst.
type Hooks struct {
	OnSessionExpired  func()
	OnPayloadTooLarge func()
}

// Authorizer is an http.RoundTripper that attaches the bearer token to
// outbound requests. Requests with an expired token are not sent: the
// authorizer first attempts a single-flight refresh, and only if that
// fails short-circuits with ErrSessionExpired.
type Authorizer struct {
	base      http.RoundTripper
	store     *token.Store
	refresher Refresher
	hooks     Hooks
	log       zerolog.Logger

	mu       sync.Mutex
	fired    bool
	firedGen uint64
}

// NewAuthorizer wraps base (nil means http.DefaultTransport).
func NewAuthorizer(base http.RoundTripper, store *token.Store, refresher Refresher, hooks Hooks, log zerolog.Logger) *Authorizer {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Authorizer{
		base:      base,
		store:     store,
		refresher: refresher,
		hooks:     hooks,
		log:       log.With().Str("component", "authorizer").Logger(),
	}
}

// RoundTrip implements http.RoundTripper.
func (a *Authorizer) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, ok := a.store.Current()
	if !ok {
		// No token: forward unauthenticated (login, refresh).
		return a.base.RoundTrip(req)
	}

	if !a.store.Valid() {
		fresh, err := a.tryRefresh(req.Context())
		if err != nil {
			a.expireOnce()
			return nil, ErrSessionExpired
		}
		tok = fresh
	}

	// Clone before mutating: RoundTrippers must not modify the caller's request.
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	resp, err := a.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		a.log.Warn().Str("url", req.URL.Path).Msg("401 from backend, session expired")
		a.store.Clear()
		a.expireOnce()
	case http.StatusRequestEntityTooLarge:
		if a.hooks.OnPayloadTooLarge != nil {
			a.hooks.OnPayloadTooLarge()
		}
	}

	// Status interpretation beyond the session/size concerns belongs to
	// the caller; errors are never swallowed here.
	return resp, nil
}

func (a *Authorizer) tryRefresh(ctx context.Context) (model.Token, error) {
	if a.refresher == nil {
		return model.Token{}, token.ErrNoRefreshToken
	}
	return a.refresher.Refresh(ctx)
}

// expireOnce fires the session-expired hook at most once per token
// generation: a burst of concurrent failures after expiry produces a
// single logout/redirect, and a subsequent login re-arms the guard.
func (a *Authorizer) expireOnce() {
	gen := a.store.Generation()

	a.mu.Lock()
	if a.fired && a.firedGen == gen {
		a.mu.Unlock()
		return
	}
	a.fired = true
	a.firedGen = gen
	a.mu.Unlock()

	if a.hooks.OnSessionExpired != nil {
		a.hooks.OnSessionExpired()
	}
}
