package model

// LoginRequest authenticates a player by username and password.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest exchanges a refresh token for a new token pair.
// Refresh tokens are single-use; the server rotates them on success.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}
