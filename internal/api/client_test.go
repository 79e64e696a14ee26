package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizquest/quizquest-go/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, &http.Client{Timeout: 5 * time.Second}, zerolog.Nop())
}

func writeData(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}

func writeError(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": body})
}

func TestLoginDecodesEnvelope(t *testing.T) {
	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req model.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "demo", req.Username)

		writeData(w, model.Token{AccessToken: "at", RefreshToken: "rt", ExpiresAt: exp})
	})

	tok, err := c.Login(context.Background(), "demo", "secret")
	require.NoError(t, err)
	assert.Equal(t, "at", tok.AccessToken)
	assert.Equal(t, exp, tok.ExpiresAt.UTC())
}

func TestEveryRequestDisablesCaching(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "no-store", r.Header.Get("Cache-Control"))
		writeData(w, model.NextTaskResult{Status: model.NextStatusCompleted})
	})

	_, err := c.NextTask(context.Background(), "level-1")
	require.NoError(t, err)
}

func TestSubmitSendsIdempotencyKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/game/tasks/t1/submit", r.URL.Path)
		assert.Equal(t, "key-123", r.Header.Get("Idempotency-Key"))

		var req model.SubmitRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "attempt-abc", req.AttemptToken)
		assert.Equal(t, []string{"a", "c"}, req.SelectedOptionIDs)

		writeData(w, model.SubmitResult{Result: model.VerdictCorrect, ScoreDelta: 10})
	})

	res, err := c.SubmitTask(context.Background(), "t1", model.SubmitRequest{
		SelectedOptionIDs: []string{"a", "c"},
		AttemptToken:      "attempt-abc",
	}, "key-123")
	require.NoError(t, err)
	assert.Equal(t, model.VerdictCorrect, res.Result)
	assert.Equal(t, 10, res.ScoreDelta)
}

func TestForbiddenSurfacesAsAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusForbidden, map[string]interface{}{
			"code":    "LEVEL_LOCKED",
			"message": "Complete the previous level first",
		})
	})

	_, err := c.NextTask(context.Background(), "level-9")
	require.Error(t, err)
	assert.True(t, IsForbidden(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "LEVEL_LOCKED", apiErr.Code)
}

func TestReplayCooldownCarriesRetryAfter(t *testing.T) {
	retryAt := time.Now().Add(45 * time.Minute).UTC().Truncate(time.Second)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/game/levels/level-1/replay", r.URL.Path)
		writeError(w, http.StatusTooManyRequests, map[string]interface{}{
			"code":        "REPLAY_COOLDOWN",
			"message":     "Level was replayed recently",
			"retry_after": retryAt,
		})
	})

	_, err := c.ReplayLevel(context.Background(), "level-1")
	require.Error(t, err)

	cd, ok := AsCooldown(err)
	require.True(t, ok)
	assert.Equal(t, retryAt, cd.RetryAfter.UTC())
}

func TestNonJSONErrorBodyStillYieldsStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	})

	_, err := c.Leaderboard(context.Background(), "level-1")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestLevelIDsArePathEscaped(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/game/levels/lv%2F..%2F1/intro", r.URL.EscapedPath())
		writeData(w, model.LevelIntro{LevelID: "lv/../1"})
	})

	intro, err := c.LevelIntro(context.Background(), "lv/../1")
	require.NoError(t, err)
	assert.Equal(t, "lv/../1", intro.LevelID)
}
