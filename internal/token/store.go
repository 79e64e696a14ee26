package token

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quizquest/quizquest-go/internal/model"
)

// DefaultSkew treats a token expiring within this window as already
// invalid, so the client never sends a request that is doomed to 401.
const DefaultSkew = 10 * time.Second

// Store holds the current token pair. It is the only cross-cutting
// mutable shared state in the client; all mutations go through login,
// refresh or logout, never from arbitrary request code.
//
// Replacement is atomic: readers observe either the old pair or the
// new one, never a half-updated value.
type Store struct {
	mu   sync.RWMutex
	tok  model.Token
	has  bool
	gen  uint64
	skew time.Duration
	now  func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithSkew overrides the validity skew window.
func WithSkew(d time.Duration) Option {
	return func(s *Store) { s.skew = d }
}

// WithClock injects a deterministic clock for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty token store.
func NewStore(opts ...Option) *Store {
	s := &Store{skew: DefaultSkew, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set replaces the stored pair. If the token carries no explicit
// expiry, it is derived once from the JWT exp claim.
func (s *Store) Set(tok model.Token) {
	if tok.ExpiresAt.IsZero() {
		tok.ExpiresAt = expiryFromJWT(tok.AccessToken)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = tok
	s.has = true
	s.gen++
}

// Clear removes the stored pair (logout, unrecoverable refresh failure).
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = model.Token{}
	s.has = false
}

// Current returns the stored pair, if any.
func (s *Store) Current() (model.Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tok, s.has
}

// Valid reports whether a token exists and has not expired, evaluated
// with the negative skew window.
func (s *Store) Valid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.has || s.tok.ExpiresAt.IsZero() {
		return false
	}
	return s.now().Before(s.tok.ExpiresAt.Add(-s.skew))
}

// Generation increments on every Set. Consumers that must act "once
// per token lifetime" (e.g. the session-expired redirect guard)
// compare generations instead of re-deriving state.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// expiryFromJWT extracts the exp claim without verifying the signature.
// The client does not hold the signing secret; expiry is display/bookkeeping
// data here, the server remains the authority.
func expiryFromJWT(raw string) time.Time {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
