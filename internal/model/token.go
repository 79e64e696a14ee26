package model

import "time"

// Token is an issued access/refresh token pair as seen by the client.
// ExpiresAt is derived once at issuance and never mutated in place;
// the token store replaces the whole value atomically.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// HasRefresh reports whether the pair carries a refresh token.
func (t Token) HasRefresh() bool {
	return t.RefreshToken != ""
}
