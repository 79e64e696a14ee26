package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration, shared by the player
// client and the dev game server.
type Config struct {
	// ─── Client ────────────────────────────────────────────────────────
	BaseURL string
	// TokenSkew treats a token expiring within this window as already
	// invalid, so a doomed in-flight request is never sent.
	TokenSkew time.Duration
	// ExplanationDelay is how long the explanation stays on screen
	// before navigating to the level summary.
	ExplanationDelay time.Duration
	HTTPTimeout      time.Duration

	// ─── Logging ───────────────────────────────────────────────────────
	LogLevel  string
	LogFormat string

	// ─── Dev server ────────────────────────────────────────────────────
	ServerPort     string
	GinMode        string
	RedisURL       string
	DatabaseURL    string // optional: empty means built-in seed content
	MaxDBConns     int32
	JWTSecret      string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	BcryptCost     int
	ReplayCooldown time.Duration
	// TimeoutGrace is added to a task's time limit before the server
	// rules a late submission as timed out (network latency allowance).
	TimeoutGrace   time.Duration
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		BaseURL:          getEnv("QUIZQUEST_BASE_URL", "http://localhost:8080/api/v1"),
		TokenSkew:        getEnvDuration("TOKEN_SKEW", 10*time.Second),
		ExplanationDelay: getEnvDuration("EXPLANATION_DELAY", 3*time.Second),
		HTTPTimeout:      getEnvDuration("HTTP_TIMEOUT", 15*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "pretty"),

		ServerPort:     getEnv("SERVER_PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MaxDBConns:     int32(getEnvInt("MAX_DB_CONNS", 8)),
		JWTSecret:      getEnv("JWT_SECRET", "change-this-to-a-secure-random-string"),
		AccessTTL:      getEnvDuration("ACCESS_TTL", 15*time.Minute),
		RefreshTTL:     getEnvDuration("REFRESH_TTL", 72*time.Hour),
		BcryptCost:     getEnvInt("BCRYPT_COST", 6),
		ReplayCooldown: getEnvDuration("REPLAY_COOLDOWN", time.Hour),
		TimeoutGrace:   getEnvDuration("TIMEOUT_GRACE", 2*time.Second),
		AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
