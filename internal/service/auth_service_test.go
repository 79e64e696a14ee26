package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizquest/quizquest-go/internal/repository"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := testConfig()
	players, err := DemoPlayers(cfg)
	require.NoError(t, err)

	return NewAuthService(cfg, repository.NewPlayRepository(rdb), players, zerolog.Nop())
}

func TestLoginIssuesValidPair(t *testing.T) {
	s := newAuthService(t)

	tok, player, err := s.Login(context.Background(), "demo", "letmein")
	require.NoError(t, err)
	assert.Equal(t, "p-demo", player.ID)
	assert.NotEmpty(t, tok.AccessToken)
	assert.NotEmpty(t, tok.RefreshToken)
	assert.False(t, tok.ExpiresAt.IsZero())

	claims, err := s.ValidateAccessToken(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "p-demo", claims.UserID)
	assert.Equal(t, "Demo Player", claims.DisplayName)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newAuthService(t)

	_, _, err := s.Login(context.Background(), "demo", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = s.Login(context.Background(), "nobody", "letmein")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRotatesAndRevokes(t *testing.T) {
	s := newAuthService(t)
	ctx := context.Background()

	tok, _, err := s.Login(ctx, "demo", "letmein")
	require.NoError(t, err)

	fresh, err := s.Refresh(ctx, tok.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tok.RefreshToken, fresh.RefreshToken)

	// A refresh token grants exactly one rotation.
	_, err = s.Refresh(ctx, tok.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	// The newest token still works.
	_, err = s.Refresh(ctx, fresh.RefreshToken)
	require.NoError(t, err)
}

func TestValidateRejectsForgedToken(t *testing.T) {
	s := newAuthService(t)

	_, err := s.ValidateAccessToken("not-a-jwt")
	assert.Error(t, err)

	// Token signed with a different secret.
	other := newAuthService(t)
	other.cfg.JWTSecret = "some-other-secret"
	tok, err := other.issuePair(context.Background(), "p-x", "X")
	require.NoError(t, err)

	_, err = s.ValidateAccessToken(tok.AccessToken)
	assert.Error(t, err)
}
