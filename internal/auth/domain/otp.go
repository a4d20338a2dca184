package domain

import "time"

// OTPRecord is a numeric one-time code bound to an identifier and purpose.
// At most one unverified record per (UserIdentifier, OTPType) is active at a
// time: generating a new code marks every predecessor verified.
type OTPRecord struct {
	ID             string
	UserIdentifier string
	OTPType        string
	Value          string
	TokenHash      string // fingerprint of the companion otp token
	UserID         *string
	IssuedAt       time.Time
	Verified       bool
}

// OTPVerification is the outcome of an OTP verify call. Failures collapse
// missing, stale and already-used codes into IsValid=false.
type OTPVerification struct {
	IsValid bool    `json:"is_valid"`
	UserID  *string `json:"user_id,omitempty"`
}
