package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/microplate/platform/internal/auth/domain"
	"github.com/microplate/platform/pkg/jwtc"
)

// TokenIssuer mints every token kind the service hands out. Each kind gets
// its own TTL and type tag; the fields mirrored into claims differ per kind.
type TokenIssuer struct {
	Codec *jwtc.Codec

	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	ResetTTL    time.Duration
	ExchangeTTL time.Duration
	OTPTTL      time.Duration
}

// IssueAccessToken signs a short-lived bearer token carrying the principal's
// identity and roles.
func (i *TokenIssuer) IssueAccessToken(p domain.Principal) (string, error) {
	return i.Codec.Sign(jwtc.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: p.ID},
		Type:             jwtc.TypeAccess,
		Email:            p.Email,
		Username:         p.Username,
		Roles:            p.Roles,
	}, i.AccessTTL)
}

// IssueRefreshToken signs a long-lived rotation token bound to its family.
// Only subject and family are embedded; everything else lives in the stored
// record keyed by the token's fingerprint.
func (i *TokenIssuer) IssueRefreshToken(p domain.Principal, family string) (string, error) {
	return i.Codec.Sign(jwtc.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: p.ID},
		Type:             jwtc.TypeRefresh,
		Family:           family,
	}, i.RefreshTTL)
}

// IssuePasswordResetToken signs the single-use grant delivered by email.
func (i *TokenIssuer) IssuePasswordResetToken(userID string) (string, error) {
	return i.Codec.Sign(jwtc.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
		Type:             jwtc.TypePasswordReset,
	}, i.ResetTTL)
}

// IssueSSOExchangeToken signs the seconds-lived handoff token a trusted
// upstream redeems for a session.
func (i *TokenIssuer) IssueSSOExchangeToken(userID, continueURL string) (string, error) {
	return i.Codec.Sign(jwtc.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
		Type:             jwtc.TypeSSOExchange,
		ContinueURL:      continueURL,
	}, i.ExchangeTTL)
}

// IssueOTPToken signs the companion token that binds a verify call to the
// identifier and purpose a code was generated for.
func (i *TokenIssuer) IssueOTPToken(identifier, otpType string) (string, error) {
	return i.Codec.Sign(jwtc.Claims{
		Type:       jwtc.TypeOTP,
		Identifier: identifier,
		OTPType:    otpType,
	}, i.OTPTTL)
}
