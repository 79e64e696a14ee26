package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/quizquest/quizquest-go/internal/config"
	"github.com/quizquest/quizquest-go/internal/model"
	"github.com/quizquest/quizquest-go/internal/repository"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRefresh     = errors.New("refresh token invalid or revoked")
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// Player is a registered account. The dev server keeps accounts in
// memory; everything per-play lives in Redis keyed by UserID.
type Player struct {
	ID           string
	Username     string
	DisplayName  string
	PasswordHash string
}

// AuthService handles login, JWT issuance and refresh token rotation.
// Access tokens are short-lived HS256 JWTs; refresh tokens are opaque
// one-shot values stored in Redis.
type AuthService struct {
	cfg     *config.Config
	repo    *repository.PlayRepository
	players map[string]*Player // by username
	log     zerolog.Logger
}

// NewAuthService creates an AuthService with the given accounts.
func NewAuthService(cfg *config.Config, repo *repository.PlayRepository, players []*Player, log zerolog.Logger) *AuthService {
	byName := make(map[string]*Player, len(players))
	for _, p := range players {
		byName[p.Username] = p
	}
	return &AuthService{
		cfg:     cfg,
		repo:    repo,
		players: byName,
		log:     log.With().Str("component", "auth_service").Logger(),
	}
}

// DemoPlayers builds the built-in dev accounts. Passwords are hashed at
// startup with the configured bcrypt cost.
func DemoPlayers(cfg *config.Config) ([]*Player, error) {
	seed := []struct {
		id, username, display, password string
	}{
		{"p-demo", "demo", "Demo Player", "letmein"},
		{"p-alice", "alice", "Alice", "wonderland"},
		{"p-bob", "bob", "Bob", "builder"},
	}

	players := make([]*Player, 0, len(seed))
	for _, s := range seed {
		hash, err := bcrypt.GenerateFromPassword([]byte(s.password), cfg.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", s.username, err)
		}
		players = append(players, &Player{
			ID:           s.id,
			Username:     s.username,
			DisplayName:  s.display,
			PasswordHash: string(hash),
		})
	}
	return players, nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Login validates credentials and issues a fresh token pair.
func (s *AuthService) Login(ctx context.Context, username, password string) (model.Token, *Player, error) {
	player, ok := s.players[username]
	if !ok {
		// Burn a hash comparison anyway so the timing of the response
		// does not reveal which usernames exist.
		_ = bcrypt.CompareHashAndPassword(
			[]byte("$2a$06$invalidsaltinvalidsaltinvalidsaltinvalidsaltinvalidsa"), []byte(password))
		return model.Token{}, nil, ErrInvalidCredentials
	}
	if err := s.CheckPassword(player.PasswordHash, password); err != nil {
		return model.Token{}, nil, err
	}

	tok, err := s.issuePair(ctx, player.ID, player.DisplayName)
	if err != nil {
		return model.Token{}, nil, err
	}

	s.log.Info().Str("user_id", player.ID).Msg("Player logged in")
	return tok, player, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a
// new pair is issued. A reused or unknown token yields ErrInvalidRefresh.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.Token, error) {
	userID, displayName, err := s.repo.ConsumeRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshNotFound) {
			return model.Token{}, ErrInvalidRefresh
		}
		return model.Token{}, err
	}

	tok, err := s.issuePair(ctx, userID, displayName)
	if err != nil {
		return model.Token{}, err
	}

	s.log.Debug().Str("user_id", userID).Msg("Token pair rotated")
	return tok, nil
}

// ValidateAccessToken parses and validates an access JWT.
func (s *AuthService) ValidateAccessToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) issuePair(ctx context.Context, userID, displayName string) (model.Token, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:      userID,
		DisplayName: displayName,
	}

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return model.Token{}, fmt.Errorf("sign token: %w", err)
	}

	refresh := uuid.New().String()
	if err := s.repo.StoreRefreshToken(ctx, refresh, userID, displayName, s.cfg.RefreshTTL); err != nil {
		return model.Token{}, fmt.Errorf("store refresh token: %w", err)
	}

	return model.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}, nil
}
