package domain

import "time"

// TokenPair is what login, refresh and SSO redemption return: a short-lived
// access token and the refresh token that rotates it.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"`           // access token lifetime
}

// RefreshTokenRecord models a stored refresh token.
//
// A record starts ACTIVE, becomes ROTATED when Reused flips true (one-way),
// and REVOKED when RevokedAt is set. Family groups every record descending
// from one original login so a detected replay can kill the whole chain.
type RefreshTokenRecord struct {
	ID         string
	UserID     string
	TokenHash  string // SHA-256 fingerprint of the token value, unique
	Family     string
	DeviceInfo *string
	IPAddress  string
	UserAgent  string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	Reused     bool
}
