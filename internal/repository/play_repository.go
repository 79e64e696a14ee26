package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quizquest/quizquest-go/internal/config"
	"github.com/quizquest/quizquest-go/internal/model"
)

// ErrRefreshNotFound means the refresh token was never issued, already
// used, or expired.
var ErrRefreshNotFound = errors.New("refresh token not found")

// PlayRepository keeps all mutable play state in Redis: per-level
// progress, pending attempt tokens, idempotency-cached verdicts, replay
// cooldowns and the leaderboard sorted sets.
type PlayRepository struct {
	rdb *redis.Client
}

func NewPlayRepository(rdb *redis.Client) *PlayRepository {
	return &PlayRepository{rdb: rdb}
}

// ─── Progress ────────────────────────────────────────────────────────

// GetProgress returns the player's progress for a level, or nil if the
// level was never started.
func (r *PlayRepository) GetProgress(ctx context.Context, userID, levelID string) (*model.PlayerProgress, error) {
	raw, err := r.rdb.Get(ctx, config.CacheKey.PlayerProgressKey(userID, levelID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}
	var p model.PlayerProgress
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	return &p, nil
}

// SaveProgress persists the player's progress for a level.
func (r *PlayRepository) SaveProgress(ctx context.Context, userID, levelID string, p *model.PlayerProgress) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	return r.rdb.Set(ctx, config.CacheKey.PlayerProgressKey(userID, levelID), raw, 0).Err()
}

// ─── Pending attempts ────────────────────────────────────────────────

// SavePendingAttempt records the attempt token minted for the task
// currently served to the player. One pending attempt per level.
func (r *PlayRepository) SavePendingAttempt(ctx context.Context, userID, levelID string, a *model.PendingAttempt, ttl time.Duration) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode attempt: %w", err)
	}
	return r.rdb.Set(ctx, config.CacheKey.PlayerAttemptKey(userID, levelID), raw, ttl).Err()
}

// GetPendingAttempt returns the pending attempt, or nil if none exists.
func (r *PlayRepository) GetPendingAttempt(ctx context.Context, userID, levelID string) (*model.PendingAttempt, error) {
	raw, err := r.rdb.Get(ctx, config.CacheKey.PlayerAttemptKey(userID, levelID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	var a model.PendingAttempt
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode attempt: %w", err)
	}
	return &a, nil
}

// DeletePendingAttempt invalidates the outstanding attempt token.
func (r *PlayRepository) DeletePendingAttempt(ctx context.Context, userID, levelID string) error {
	return r.rdb.Del(ctx, config.CacheKey.PlayerAttemptKey(userID, levelID)).Err()
}

// ─── Idempotency cache ───────────────────────────────────────────────

// GetCachedSubmit returns the verdict previously produced under the
// same Idempotency-Key, so duplicate delivery replays the result
// instead of grading twice.
func (r *PlayRepository) GetCachedSubmit(ctx context.Context, userID, key string) (*model.SubmitResult, error) {
	raw, err := r.rdb.Get(ctx, config.CacheKey.IdempotencyKey(userID, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached submit: %w", err)
	}
	var res model.SubmitResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode cached submit: %w", err)
	}
	return &res, nil
}

// CacheSubmit stores a verdict under its Idempotency-Key.
func (r *PlayRepository) CacheSubmit(ctx context.Context, userID, key string, res *model.SubmitResult, ttl time.Duration) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode submit: %w", err)
	}
	return r.rdb.Set(ctx, config.CacheKey.IdempotencyKey(userID, key), raw, ttl).Err()
}

// ─── Replay cooldown ─────────────────────────────────────────────────

// SetCooldown records when the level becomes replayable again. The key
// expires at that moment, so presence of the key means "on cooldown".
func (r *PlayRepository) SetCooldown(ctx context.Context, userID, levelID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, config.CacheKey.PlayerCooldownKey(userID, levelID),
		until.UTC().Format(time.RFC3339), ttl).Err()
}

// GetCooldown returns the replay-available time, or nil if no cooldown
// is active.
func (r *PlayRepository) GetCooldown(ctx context.Context, userID, levelID string) (*time.Time, error) {
	raw, err := r.rdb.Get(ctx, config.CacheKey.PlayerCooldownKey(userID, levelID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cooldown: %w", err)
	}
	until, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("decode cooldown: %w", err)
	}
	return &until, nil
}

// ─── Leaderboard ─────────────────────────────────────────────────────

// RecordScore upserts the player's best score for a level and remembers
// the display name for leaderboard rendering.
func (r *PlayRepository) RecordScore(ctx context.Context, levelID, userID, displayName string, score int) error {
	pipe := r.rdb.Pipeline()
	// GT keeps the best run when a replay scores lower.
	pipe.ZAddGT(ctx, config.CacheKey.LeaderboardKey(levelID), redis.Z{
		Score:  float64(score),
		Member: userID,
	})
	pipe.HSet(ctx, config.CacheKey.LeaderboardKey(levelID)+":names", userID, displayName)
	_, err := pipe.Exec(ctx)
	return err
}

// Leaderboard returns the top entries for a level, best score first.
func (r *PlayRepository) Leaderboard(ctx context.Context, levelID string, top int64) (model.Leaderboard, error) {
	lb := model.Leaderboard{LevelID: levelID, UpdatedAt: time.Now().UTC()}

	zs, err := r.rdb.ZRevRangeWithScores(ctx, config.CacheKey.LeaderboardKey(levelID), 0, top-1).Result()
	if err != nil {
		return lb, fmt.Errorf("read leaderboard: %w", err)
	}
	if len(zs) == 0 {
		return lb, nil
	}

	names, err := r.rdb.HGetAll(ctx, config.CacheKey.LeaderboardKey(levelID)+":names").Result()
	if err != nil {
		return lb, fmt.Errorf("read names: %w", err)
	}

	lb.Entries = make([]model.LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		userID, _ := z.Member.(string)
		name := names[userID]
		if name == "" {
			name = userID
		}
		lb.Entries = append(lb.Entries, model.LeaderboardEntry{
			UserID:      userID,
			DisplayName: name,
			Score:       int(z.Score),
		})
	}
	return lb, nil
}

// PublishLeaderboard pushes a fresh snapshot to the level's update
// channel for WebSocket fan-out.
func (r *PlayRepository) PublishLeaderboard(ctx context.Context, levelID string) error {
	lb, err := r.Leaderboard(ctx, levelID, 10)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(lb)
	if err != nil {
		return fmt.Errorf("encode leaderboard: %w", err)
	}
	return r.rdb.Publish(ctx, config.CacheKey.LeaderboardChannel(levelID), raw).Err()
}

// ─── Refresh tokens ──────────────────────────────────────────────────

// refreshRecord is the payload stored per issued refresh token.
type refreshRecord struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// StoreRefreshToken registers an opaque refresh token for a user.
func (r *PlayRepository) StoreRefreshToken(ctx context.Context, token, userID, displayName string, ttl time.Duration) error {
	raw, err := json.Marshal(refreshRecord{UserID: userID, DisplayName: displayName})
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, config.CacheKey.RefreshTokenKey(token), raw, ttl).Err()
}

// ConsumeRefreshToken atomically fetches and revokes a refresh token,
// returning its owner. Rotation means a token grants exactly one refresh.
func (r *PlayRepository) ConsumeRefreshToken(ctx context.Context, token string) (userID, displayName string, err error) {
	raw, err := r.rdb.GetDel(ctx, config.CacheKey.RefreshTokenKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", "", ErrRefreshNotFound
		}
		return "", "", fmt.Errorf("consume refresh token: %w", err)
	}
	var rec refreshRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return "", "", fmt.Errorf("decode refresh record: %w", err)
	}
	return rec.UserID, rec.DisplayName, nil
}
