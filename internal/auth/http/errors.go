package http

import (
	"net/http"

	"github.com/microplate/platform/pkg/httpx"
)

// Stable error codes for the auth endpoints. Clients branch on the code, so
// these strings are part of the API contract.
var (
	ErrInvalidCredentials = httpx.NewError(http.StatusUnauthorized,
		"INVALID_CREDENTIALS", "Email or password is incorrect.")

	ErrInvalidRefreshToken = httpx.NewError(http.StatusUnauthorized,
		"INVALID_REFRESH_TOKEN", "The refresh token is invalid or has been revoked.")
	ErrRefreshTokenExpired = httpx.NewError(http.StatusUnauthorized,
		"REFRESH_TOKEN_EXPIRED", "The refresh token has expired; sign in again.")
	ErrTokenReuseDetected = httpx.NewError(http.StatusUnauthorized,
		"TOKEN_REUSE_DETECTED", "The refresh token was already used; all sessions in its family have been revoked.")

	ErrInvalidResetToken = httpx.NewError(http.StatusBadRequest,
		"INVALID_OR_EXPIRED_RESET_TOKEN", "The password reset token is invalid, expired or already used.")
	ErrWeakPassword = httpx.NewError(http.StatusBadRequest,
		"WEAK_PASSWORD", "The new password does not meet the minimum requirements.")

	ErrInvalidExchangeToken = httpx.NewError(http.StatusUnauthorized,
		"INVALID_SSO_EXCHANGE_TOKEN", "The exchange token is invalid.")
	ErrExchangeTokenExpired = httpx.NewError(http.StatusUnauthorized,
		"SSO_EXCHANGE_TOKEN_EXPIRED", "The exchange token has expired.")

	ErrInvalidOTPToken = httpx.NewError(http.StatusBadRequest,
		"INVALID_OTP_TOKEN", "The OTP token is invalid.")
	ErrOTPRateLimited = httpx.NewError(http.StatusTooManyRequests,
		"OTP_RATE_LIMITED", "Too many codes requested; wait before retrying.")
)
