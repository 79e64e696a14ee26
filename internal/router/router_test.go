package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizquest/quizquest-go/internal/api"
	"github.com/quizquest/quizquest-go/internal/config"
	"github.com/quizquest/quizquest-go/internal/handler"
	"github.com/quizquest/quizquest-go/internal/model"
	"github.com/quizquest/quizquest-go/internal/repository"
	"github.com/quizquest/quizquest-go/internal/service"
	"github.com/quizquest/quizquest-go/internal/token"
	"github.com/quizquest/quizquest-go/internal/transport"
	"github.com/quizquest/quizquest-go/internal/validator"
	ws "github.com/quizquest/quizquest-go/internal/websocket"
)

// startServer boots the full server stack over miniredis and returns a
// fully wired client: token store, single-flight refresher and the
// authorizing transport, exactly as cmd/play assembles them.
func startServer(t *testing.T, cfg *config.Config) (*api.Client, *token.Store, *transport.Authorizer) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	validator.Setup()

	playRepo := repository.NewPlayRepository(rdb)
	players, err := service.DemoPlayers(cfg)
	require.NoError(t, err)

	authService := service.NewAuthService(cfg, playRepo, players, zerolog.Nop())
	gameService := service.NewGameService(cfg, playRepo, repository.SeedLevels(), zerolog.Nop())

	hub := ws.NewHub()
	handlers := &Handlers{
		Auth: handler.NewAuthHandler(authService),
		Game: handler.NewGameHandler(gameService),
		WS:   handler.NewWSHandler(hub, gameService, zerolog.Nop(), nil),
	}

	srv := httptest.NewServer(SetupRouter(authService, handlers, cfg))
	t.Cleanup(srv.Close)

	store := token.NewStore(token.WithSkew(cfg.TokenSkew))

	var client *api.Client
	refresher := token.NewRefresher(store, func(ctx context.Context, rt string) (model.Token, error) {
		return client.Refresh(ctx, rt)
	}, zerolog.Nop())

	authorizer := transport.NewAuthorizer(nil, store, refresher, transport.Hooks{}, zerolog.Nop())
	client = api.New(srv.URL+"/api/v1", &http.Client{
		Timeout:   5 * time.Second,
		Transport: authorizer,
	}, zerolog.Nop())

	return client, store, authorizer
}

func integrationConfig() *config.Config {
	return &config.Config{
		GinMode:        "release",
		TokenSkew:      10 * time.Second,
		JWTSecret:      "integration-secret",
		AccessTTL:      15 * time.Minute,
		RefreshTTL:     time.Hour,
		BcryptCost:     4,
		ReplayCooldown: time.Hour,
		TimeoutGrace:   2 * time.Second,
	}
}

func TestFullPlaythrough(t *testing.T) {
	client, store, _ := startServer(t, integrationConfig())
	ctx := context.Background()

	tok, err := client.Login(ctx, "demo", "letmein")
	require.NoError(t, err)
	store.Set(tok)

	intro, err := client.LevelIntro(ctx, "warmup")
	require.NoError(t, err)
	assert.Equal(t, model.LevelNotStarted, intro.Status)

	_, err = client.StartLevel(ctx, "warmup")
	require.NoError(t, err)

	// Task 1: Mars.
	next, err := client.NextTask(ctx, "warmup")
	require.NoError(t, err)
	require.Equal(t, model.NextStatusTask, next.Status)
	assert.Equal(t, "warmup-1", next.Task.TaskID)

	res, err := client.SubmitTask(ctx, next.Task.TaskID, model.SubmitRequest{
		SelectedOptionIDs: []string{"b"},
		AttemptToken:      next.Task.AttemptToken,
	}, "key-1")
	require.NoError(t, err)
	assert.Equal(t, model.VerdictCorrect, res.Result)
	assert.NotEmpty(t, res.ExplanationText)

	// Task 2: red, green, blue.
	next, err = client.NextTask(ctx, "warmup")
	require.NoError(t, err)
	res, err = client.SubmitTask(ctx, next.Task.TaskID, model.SubmitRequest{
		SelectedOptionIDs: []string{"a", "b", "d"},
		AttemptToken:      next.Task.AttemptToken,
	}, "key-2")
	require.NoError(t, err)
	assert.Equal(t, model.VerdictCorrect, res.Result)
	assert.True(t, res.LevelCompleted)

	// Completion signal and the leaderboard entry.
	final, err := client.NextTask(ctx, "warmup")
	require.NoError(t, err)
	assert.Equal(t, model.NextStatusCompleted, final.Status)

	lb, err := client.Leaderboard(ctx, "warmup")
	require.NoError(t, err)
	require.Len(t, lb.Entries, 1)
	assert.Equal(t, "Demo Player", lb.Entries[0].DisplayName)
	assert.Equal(t, 25, lb.Entries[0].Score)

	// Immediate replay is on cooldown with a usable retry_after.
	_, err = client.ReplayLevel(ctx, "warmup")
	cd, ok := api.AsCooldown(err)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), cd.RetryAfter, 10*time.Second)
}

func TestExpiredAccessTokenIsRefreshedTransparently(t *testing.T) {
	cfg := integrationConfig()
	client, store, _ := startServer(t, cfg)
	ctx := context.Background()

	tok, err := client.Login(ctx, "demo", "letmein")
	require.NoError(t, err)

	// Make the stored access token look expired while keeping the valid
	// refresh token. The authorizer must rotate before the request.
	tok.ExpiresAt = time.Now().Add(-time.Minute)
	store.Set(tok)

	intro, err := client.LevelIntro(ctx, "warmup")
	require.NoError(t, err)
	assert.Equal(t, model.LevelNotStarted, intro.Status)

	cur, ok := store.Current()
	require.True(t, ok)
	assert.NotEqual(t, tok.AccessToken, cur.AccessToken, "a fresh pair replaced the expired one")
}

func TestSessionExpiresWhenRefreshTokenRevoked(t *testing.T) {
	client, store, _ := startServer(t, integrationConfig())
	ctx := context.Background()

	tok, err := client.Login(ctx, "demo", "letmein")
	require.NoError(t, err)

	// Burn the refresh token, then present an expired access token.
	_, err = client.Refresh(ctx, tok.RefreshToken)
	require.NoError(t, err)

	tok.ExpiresAt = time.Now().Add(-time.Minute)
	store.Set(tok)

	_, err = client.LevelIntro(ctx, "warmup")
	assert.ErrorIs(t, err, transport.ErrSessionExpired)

	_, ok := store.Current()
	assert.False(t, ok, "failed refresh clears the stored pair")
}

func TestLockedLevelIsForbidden(t *testing.T) {
	client, store, _ := startServer(t, integrationConfig())
	ctx := context.Background()

	tok, err := client.Login(ctx, "demo", "letmein")
	require.NoError(t, err)
	store.Set(tok)

	_, err = client.StartLevel(ctx, "deep-space")
	assert.True(t, api.IsForbidden(err))
}

func TestUnauthenticatedGameAccessRejected(t *testing.T) {
	client, _, _ := startServer(t, integrationConfig())

	_, err := client.LevelIntro(context.Background(), "warmup")
	assert.True(t, api.IsUnauthorized(err))
}

func TestValidationErrorsCarryFieldDetails(t *testing.T) {
	client, store, _ := startServer(t, integrationConfig())
	ctx := context.Background()

	tok, err := client.Login(ctx, "demo", "letmein")
	require.NoError(t, err)
	store.Set(tok)

	_, err = client.StartLevel(ctx, "warmup")
	require.NoError(t, err)
	next, err := client.NextTask(ctx, "warmup")
	require.NoError(t, err)

	// Empty selection fails binding on the server.
	_, err = client.SubmitTask(ctx, next.Task.TaskID, model.SubmitRequest{
		SelectedOptionIDs: []string{},
		AttemptToken:      next.Task.AttemptToken,
	}, "key-x")
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
}
