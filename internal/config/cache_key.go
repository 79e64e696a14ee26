package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// RefreshTokenKey returns the cache key for an issued refresh token.
func (r *CacheKeyStruct) RefreshTokenKey(token string) string {
	return fmt.Sprintf("refresh:%s", token)
}

// PlayerAttemptKey returns the cache key for a player's pending task attempt.
func (r *CacheKeyStruct) PlayerAttemptKey(userID, levelID string) string {
	return fmt.Sprintf("player:%s:level:%s:attempt", userID, levelID)
}

// PlayerProgressKey returns the cache key for a player's level progress.
func (r *CacheKeyStruct) PlayerProgressKey(userID, levelID string) string {
	return fmt.Sprintf("player:%s:level:%s:progress", userID, levelID)
}

// PlayerCooldownKey returns the cache key for a player's replay cooldown.
func (r *CacheKeyStruct) PlayerCooldownKey(userID, levelID string) string {
	return fmt.Sprintf("player:%s:level:%s:cooldown", userID, levelID)
}

// IdempotencyKey returns the cache key for a cached submission result.
func (r *CacheKeyStruct) IdempotencyKey(userID, key string) string {
	return fmt.Sprintf("player:%s:idem:%s", userID, key)
}

// LeaderboardKey returns the sorted-set key holding a level's scores.
func (r *CacheKeyStruct) LeaderboardKey(levelID string) string {
	return fmt.Sprintf("level:%s:leaderboard", levelID)
}

// LeaderboardChannel returns the Redis PubSub channel for leaderboard updates.
func (r *CacheKeyStruct) LeaderboardChannel(levelID string) string {
	return fmt.Sprintf("level:%s:leaderboard:updates", levelID)
}

var CacheKey = NewCacheKeyStruct()
