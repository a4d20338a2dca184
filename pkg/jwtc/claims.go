package jwtc

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType is the closed set of token kinds this service issues. Verifiers
// must check the type matches the operation being performed; the codec itself
// never does.
type TokenType string

const (
	TypeAccess        TokenType = "access"
	TypeRefresh       TokenType = "refresh"
	TypePasswordReset TokenType = "password_reset"
	TypeSSOExchange   TokenType = "sso_exchange"
	TypeOTP           TokenType = "otp"
)

// Claims are the claims embedded in every token the service signs. Additive
// changes only, so older tokens keep verifying across deploys.
type Claims struct {
	jwt.RegisteredClaims

	// Type discriminates access/refresh/reset/sso/otp tokens sharing one codec.
	Type TokenType `json:"typ"`

	// Email and Username mirror the principal for API consumers.
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`

	// Roles carried for downstream authorization decisions.
	Roles []string `json:"roles,omitempty"`

	// Family is the rotation lineage carried by refresh tokens. The stored
	// record stays authoritative; the claim exists for diagnostics.
	Family string `json:"fam,omitempty"`

	// ContinueURL is the post-login redirect carried by sso_exchange tokens.
	ContinueURL string `json:"continue_url,omitempty"`

	// Identifier and OTPType bind an otp token to the code it accompanies.
	Identifier string `json:"identifier,omitempty"`
	OTPType    string `json:"otp_type,omitempty"`
}

// NewJTI returns a fresh random identifier for the "jti" claim.
func NewJTI() string {
	return uuid.NewString()
}

// ValidateType checks the token carries the expected type tag.
func (c *Claims) ValidateType(expected TokenType) error {
	if c.Type != expected {
		return ErrTokenType
	}
	return nil
}

// ValidateIssuer checks the issuer matches the expected value. An empty
// expectation enforces nothing.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks the expected audience is present.
func (c *Claims) ValidateAudience(expected string) error {
	if expected == "" {
		return nil
	}
	for _, aud := range c.Audience {
		if aud == expected {
			return nil
		}
	}
	return ErrAudience
}

// ExpiresIn reports the remaining lifetime at the given instant, never
// negative. Useful for surfacing expiry to clients.
func (c *Claims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	if d := c.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
