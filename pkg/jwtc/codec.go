// Package jwtc signs and verifies the service's bearer tokens with a shared
// symmetric secret. The codec is deliberately dumb: it guarantees signature
// and expiry only, while type/issuer/audience checks belong to the flow that
// presents an expectation.
package jwtc

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoSecret         = errors.New("jwtc: signing secret unavailable")
	ErrMalformed        = errors.New("jwtc: malformed token")
	ErrInvalidSignature = errors.New("jwtc: invalid signature")
	ErrExpired          = errors.New("jwtc: token expired")
	ErrNotYetValid      = errors.New("jwtc: token not yet valid")

	ErrTokenType = errors.New("jwtc: token type mismatch")
	ErrIssuer    = errors.New("jwtc: issuer mismatch")
	ErrAudience  = errors.New("jwtc: audience mismatch")
)

// Codec signs Claims into compact HS256 tokens and verifies them back.
type Codec struct {
	secret   []byte
	issuer   string
	audience string
}

// New builds a Codec. A missing secret is a process-level configuration
// failure, not a per-request error.
func New(secret []byte, issuer, audience string) (*Codec, error) {
	if len(secret) == 0 {
		return nil, ErrNoSecret
	}
	return &Codec{secret: secret, issuer: issuer, audience: audience}, nil
}

// Issuer returns the fixed issuer embedded into signed tokens.
func (c *Codec) Issuer() string { return c.issuer }

// Audience returns the fixed audience embedded into signed tokens.
func (c *Codec) Audience() string { return c.audience }

// Sign embeds iss/aud and derives iat/nbf/exp from ttl, then signs. A fresh
// jti is assigned when the caller did not set one.
func (c *Codec) Sign(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now().UTC()

	claims.Issuer = c.issuer
	claims.Audience = jwt.ClaimStrings{c.audience}
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if claims.ID == "" {
		claims.ID = NewJTI()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify checks signature and expiry and returns the claims. On expiry the
// parsed claims are still returned alongside ErrExpired so callers can
// distinguish a stale-but-authentic token from a forged one.
func (c *Codec) Verify(tokenString string) (Claims, error) {
	claims := Claims{}
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return claims, ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return Claims{}, ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenMalformed):
		return Claims{}, ErrMalformed
	default:
		return Claims{}, ErrInvalidSignature
	}
}

// DecodeUnsafe parses claims without verifying the signature, for display
// purposes like showing expiry in a UI. It must never gate an action.
func (c *Codec) DecodeUnsafe(tokenString string) (Claims, bool) {
	claims := Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, &claims); err != nil {
		return Claims{}, false
	}
	return claims, true
}
