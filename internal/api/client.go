// Package api is the typed client for the game backend. All game
// endpoints go through the authorizing transport; auth endpoints use a
// plain client so a refresh can never recurse into itself.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/quizquest/quizquest-go/internal/model"
)

// Client calls the game backend.
type Client struct {
	baseURL string
	game    *http.Client // transport wraps the request authorizer
	plain   *http.Client // unauthenticated, for /auth endpoints
	log     zerolog.Logger
}

// New creates a Client. authorized is the http.Client whose Transport
// is the request authorizer; its Timeout is reused for the plain client.
func New(baseURL string, authorized *http.Client, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		game:    authorized,
		plain:   &http.Client{Timeout: authorized.Timeout},
		log:     log.With().Str("component", "api_client").Logger(),
	}
}

// envelope mirrors the backend response wrapper.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *wireError      `json:"error,omitempty"`
}

type wireError struct {
	Code       string     `json:"code"`
	Message    string     `json:"message"`
	RetryAfter *time.Time `json:"retry_after,omitempty"`
}

// ─── Auth ────────────────────────────────────────────────────────────

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, username, password string) (model.Token, error) {
	var tok model.Token
	err := c.do(ctx, c.plain, http.MethodPost, "/auth/login",
		model.LoginRequest{Username: username, Password: password}, nil, &tok)
	return tok, err
}

// Refresh exchanges a refresh token for a new pair. Deliberately sent
// over the plain client: the authorizer must never gate its own refresh.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (model.Token, error) {
	var tok model.Token
	err := c.do(ctx, c.plain, http.MethodPost, "/auth/refresh",
		model.RefreshRequest{RefreshToken: refreshToken}, nil, &tok)
	return tok, err
}

// ─── Game ────────────────────────────────────────────────────────────

// LevelIntro fetches level metadata including any replay cooldown.
func (c *Client) LevelIntro(ctx context.Context, levelID string) (model.LevelIntro, error) {
	var intro model.LevelIntro
	err := c.do(ctx, c.game, http.MethodGet, "/game/levels/"+url.PathEscape(levelID)+"/intro", nil, nil, &intro)
	return intro, err
}

// StartLevel begins a level for the authenticated player.
func (c *Client) StartLevel(ctx context.Context, levelID string) (model.LevelProgress, error) {
	var prog model.LevelProgress
	err := c.do(ctx, c.game, http.MethodPost, "/game/levels/"+url.PathEscape(levelID)+"/start", nil, nil, &prog)
	return prog, err
}

// ReplayLevel restarts a completed level. A 429 response surfaces as a
// *CooldownError carrying the server's retry_after timestamp.
func (c *Client) ReplayLevel(ctx context.Context, levelID string) (model.LevelProgress, error) {
	var prog model.LevelProgress
	err := c.do(ctx, c.game, http.MethodPost, "/game/levels/"+url.PathEscape(levelID)+"/replay", nil, nil, &prog)
	return prog, err
}

// NextTask fetches the next task for a level, or a completed/locked signal.
func (c *Client) NextTask(ctx context.Context, levelID string) (model.NextTaskResult, error) {
	var res model.NextTaskResult
	err := c.do(ctx, c.game, http.MethodGet, "/game/levels/"+url.PathEscape(levelID)+"/next", nil, nil, &res)
	return res, err
}

// SubmitTask submits an answer. idempotencyKey protects against
// duplicate HTTP delivery at the transport layer; the attempt token in
// req binds the submission to the task instance at the protocol layer.
func (c *Client) SubmitTask(ctx context.Context, taskID string, req model.SubmitRequest, idempotencyKey string) (model.SubmitResult, error) {
	var res model.SubmitResult
	headers := map[string]string{"Idempotency-Key": idempotencyKey}
	err := c.do(ctx, c.game, http.MethodPost, "/game/tasks/"+url.PathEscape(taskID)+"/submit", req, headers, &res)
	return res, err
}

// Leaderboard fetches the current leaderboard snapshot for a level.
func (c *Client) Leaderboard(ctx context.Context, levelID string) (model.Leaderboard, error) {
	var lb model.Leaderboard
	err := c.do(ctx, c.game, http.MethodGet, "/game/levels/"+url.PathEscape(levelID)+"/leaderboard", nil, nil, &lb)
	return lb, err
}

// ─── Plumbing ────────────────────────────────────────────────────────

func (c *Client) do(ctx context.Context, client *http.Client, method, path string, body interface{}, headers map[string]string, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: marshal body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s %s: build request: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// Game responses must never be served from a cache layer.
	req.Header.Set("Cache-Control", "no-store")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		// Keep the chain intact so errors.Is sees transport sentinels
		// (e.g. session expiry from the authorizer).
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if resp.StatusCode >= 400 {
				return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
			}
			return fmt.Errorf("%s %s: decode envelope: %w", method, path, err)
		}
	}

	if resp.StatusCode >= 400 {
		return c.wireToError(resp.StatusCode, env.Error)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	return nil
}

func (c *Client) wireToError(status int, we *wireError) error {
	if status == http.StatusTooManyRequests && we != nil && we.RetryAfter != nil {
		return &CooldownError{RetryAfter: *we.RetryAfter}
	}

	apiErr := &APIError{Status: status}
	if we != nil {
		apiErr.Code = we.Code
		apiErr.Message = we.Message
	}
	c.log.Debug().Int("status", status).Str("code", apiErr.Code).Msg("API error")
	return apiErr
}
