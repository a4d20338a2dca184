package service

import "errors"

// Sentinel errors the HTTP layer maps to stable error codes. Messages stay
// terse; context lives in logs and audit events, never in client responses.
var (
	ErrInvalidCredentials = errors.New("invalid_credentials")

	ErrInvalidRefresh = errors.New("invalid_refresh_token")
	ErrRefreshExpired = errors.New("refresh_token_expired")
	ErrReuseDetected  = errors.New("refresh_token_reuse_detected")

	ErrInvalidResetToken = errors.New("invalid_or_expired_reset_token")
	ErrWeakPassword      = errors.New("weak_password")

	ErrInvalidExchangeToken = errors.New("invalid_sso_exchange_token")
	ErrExchangeExpired      = errors.New("sso_exchange_token_expired")

	ErrInvalidOTPToken = errors.New("invalid_otp_token")
	ErrOTPRateLimited  = errors.New("otp_rate_limited")
)
