package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizquest/quizquest-go/internal/model"
)

func TestStoreSetClearCurrent(t *testing.T) {
	s := NewStore()

	_, ok := s.Current()
	assert.False(t, ok)
	assert.False(t, s.Valid())

	tok := model.Token{AccessToken: "abc", ExpiresAt: time.Now().Add(time.Hour)}
	s.Set(tok)

	got, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "abc", got.AccessToken)
	assert.True(t, s.Valid())

	s.Clear()
	_, ok = s.Current()
	assert.False(t, ok)
	assert.False(t, s.Valid())
}

func TestStoreValidAppliesSkew(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(
		WithClock(func() time.Time { return now }),
		WithSkew(10*time.Second),
	)

	// Expires in 5s: within the skew window, treated as already invalid.
	s.Set(model.Token{AccessToken: "a", ExpiresAt: now.Add(5 * time.Second)})
	assert.False(t, s.Valid())

	// Expires in 30s: comfortably outside the window.
	s.Set(model.Token{AccessToken: "b", ExpiresAt: now.Add(30 * time.Second)})
	assert.True(t, s.Valid())
}

func TestStoreDerivesExpiryFromJWT(t *testing.T) {
	exp := time.Now().Add(20 * time.Minute).Truncate(time.Second)
	claims := jwt.RegisteredClaims{
		Subject:   "player-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	s := NewStore()
	s.Set(model.Token{AccessToken: signed})

	got, ok := s.Current()
	require.True(t, ok)
	assert.True(t, got.ExpiresAt.Equal(exp))
	assert.True(t, s.Valid())
}

func TestStoreGenerationBumpsOnSetOnly(t *testing.T) {
	s := NewStore()
	gen := s.Generation()

	s.Set(model.Token{AccessToken: "a", ExpiresAt: time.Now().Add(time.Hour)})
	assert.Equal(t, gen+1, s.Generation())

	s.Clear()
	assert.Equal(t, gen+1, s.Generation())

	s.Set(model.Token{AccessToken: "b", ExpiresAt: time.Now().Add(time.Hour)})
	assert.Equal(t, gen+2, s.Generation())
}
