package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/microplate/platform/internal/auth/audit"
	"github.com/microplate/platform/internal/auth/domain"
	"github.com/microplate/platform/internal/auth/store"
	"github.com/microplate/platform/pkg/jwtc"
)

// SSOExchangeService hands a browser session off across origins: a trusted
// upstream mints a seconds-lived exchange token after its own login, the
// destination redeems it for a full token pair.
//
// Exchange tokens are not persisted. Their lifetime is short enough that
// signature plus expiry is the whole validity check; a double redemption
// within the window yields two independent sessions, both attributable to
// the same upstream login.
type SSOExchangeService struct {
	Store  store.Store
	Issuer *TokenIssuer
	Audit  audit.Sink
}

// IssueExchangeToken mints an exchange token for an already-authenticated
// user.
func (s *SSOExchangeService) IssueExchangeToken(ctx context.Context, userID, continueURL string, meta RequestMeta) (string, time.Duration, error) {
	now := time.Now().UTC()

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", 0, ErrInvalidCredentials
		}
		return "", 0, err
	}
	if !user.Active {
		return "", 0, ErrInvalidCredentials
	}

	token, err := s.Issuer.IssueSSOExchangeToken(user.ID, continueURL)
	if err != nil {
		return "", 0, err
	}

	s.record(ctx, audit.Event{Type: audit.EventSsoExchangeIssued, UserID: user.ID, At: now}, meta)
	return token, s.Issuer.ExchangeTTL, nil
}

// Redeem swaps an exchange token for a token pair, starting a new session
// family.
func (s *SSOExchangeService) Redeem(ctx context.Context, exchangeToken string, meta RequestMeta) (*domain.TokenPair, string, error) {
	now := time.Now().UTC()

	claims, err := s.Issuer.Codec.Verify(exchangeToken)
	switch {
	case errors.Is(err, jwtc.ErrExpired):
		return nil, "", ErrExchangeExpired
	case err != nil:
		return nil, "", ErrInvalidExchangeToken
	}
	if claims.ValidateType(jwtc.TypeSSOExchange) != nil ||
		claims.ValidateIssuer(s.Issuer.Codec.Issuer()) != nil ||
		claims.ValidateAudience(s.Issuer.Codec.Audience()) != nil {
		return nil, "", ErrInvalidExchangeToken
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrInvalidExchangeToken
		}
		return nil, "", err
	}
	if !user.Active {
		return nil, "", ErrInvalidExchangeToken
	}

	tokens := &TokenService{Store: s.Store, Issuer: s.Issuer, Audit: s.Audit}
	pair, err := tokens.issuePair(ctx, s.Store, user, uuid.NewString(), now, meta)
	if err != nil {
		return nil, "", err
	}

	s.record(ctx, audit.Event{Type: audit.EventSsoExchangeRedeem, UserID: user.ID, At: now}, meta)
	return pair, claims.ContinueURL, nil
}

func (s *SSOExchangeService) record(ctx context.Context, ev audit.Event, meta RequestMeta) {
	if s.Audit == nil {
		return
	}
	ev.IPAddress = meta.IPAddress
	ev.UserAgent = meta.UserAgent
	s.Audit.Record(ctx, ev)
}
