package domain

import "time"

// PasswordResetTokenRecord is a single-use reset grant. UsedAt is set exactly
// once; a consumed or expired record never validates again.
type PasswordResetTokenRecord struct {
	TokenHash string // fingerprint of the reset token, primary key
	UserID    string
	ExpiresAt time.Time
	UsedAt    *time.Time
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}
