package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/microplate/platform/internal/auth/audit"
	"github.com/microplate/platform/internal/auth/domain"
	"github.com/microplate/platform/internal/auth/notify"
	"github.com/microplate/platform/internal/auth/store"
	"github.com/microplate/platform/pkg/cryptox"
	"github.com/microplate/platform/pkg/jwtc"
	"github.com/microplate/platform/pkg/slogx"
)

// MinPasswordLength is the default floor for new passwords chosen through
// the reset flow.
const MinPasswordLength = 8

// PasswordResetService implements the forgot-password / reset-password pair.
type PasswordResetService struct {
	Store    store.Store
	Issuer   *TokenIssuer
	Audit    audit.Sink
	Notifier notify.Notifier

	// MinLength overrides MinPasswordLength when positive.
	MinLength int
}

func (s *PasswordResetService) minLength() int {
	if s.MinLength > 0 {
		return s.MinLength
	}
	return MinPasswordLength
}

// checkPasswordPolicy enforces the floor for new credentials: minimum length
// plus at least one letter and one digit.
func (s *PasswordResetService) checkPasswordPolicy(password string) error {
	if len(password) < s.minLength() {
		return ErrWeakPassword
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return ErrWeakPassword
	}
	return nil
}

// RequestReset issues a single-use reset token and emails it to the account
// holder. The response is identical whether or not the email matches an
// account, so the endpoint cannot be used to enumerate users.
func (s *PasswordResetService) RequestReset(ctx context.Context, email, continueURL string, meta RequestMeta) error {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	email = strings.TrimSpace(email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("password reset requested for unknown email")
			return nil
		}
		return err
	}

	token, err := s.Issuer.IssuePasswordResetToken(user.ID)
	if err != nil {
		return err
	}

	rec := domain.PasswordResetTokenRecord{
		TokenHash: cryptox.FingerprintToken(token),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.Issuer.ResetTTL),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		CreatedAt: now,
	}
	if err := s.Store.ResetTokens().CreateResetToken(ctx, rec); err != nil {
		return err
	}

	if s.Notifier != nil {
		// A delivery failure must not change the response; the token simply
		// expires unused.
		if err := s.Notifier.SendPasswordReset(ctx, user.Email, token, continueURL); err != nil {
			l.Warn("password reset email delivery failed",
				slog.String("user_id", user.ID),
				slog.Any("error", err))
		}
	}

	s.record(ctx, audit.Event{Type: audit.EventResetRequested, UserID: user.ID, Identifier: email, At: now}, meta)
	return nil
}

// ResetPassword consumes the reset token, sets the new credential and kills
// every outstanding session. The password update and the session revocation
// commit together or not at all.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, newPassword string, meta RequestMeta) error {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	claims, err := s.Issuer.Codec.Verify(token)
	if err != nil {
		return ErrInvalidResetToken
	}
	if claims.ValidateType(jwtc.TypePasswordReset) != nil ||
		claims.ValidateIssuer(s.Issuer.Codec.Issuer()) != nil ||
		claims.ValidateAudience(s.Issuer.Codec.Audience()) != nil {
		return ErrInvalidResetToken
	}

	// Policy check before the transaction: a rejected password leaves the
	// token unconsumed so the user can retry with the same link.
	if err := s.checkPasswordPolicy(newPassword); err != nil {
		return err
	}

	newHash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	hash := cryptox.FingerprintToken(token)

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		consumed, err := tx.ResetTokens().ConsumeResetToken(ctx, hash, now)
		if err != nil {
			return err
		}
		if !consumed {
			return ErrInvalidResetToken
		}

		if err := tx.Users().UpdatePasswordHash(ctx, claims.Subject, newHash); err != nil {
			return err
		}

		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, claims.Subject, now)
	})
	if err != nil {
		return err
	}

	l.Info("password reset completed", slog.String("user_id", claims.Subject))
	s.record(ctx, audit.Event{Type: audit.EventResetCompleted, UserID: claims.Subject, At: now}, meta)
	return nil
}

func (s *PasswordResetService) record(ctx context.Context, ev audit.Event, meta RequestMeta) {
	if s.Audit == nil {
		return
	}
	ev.IPAddress = meta.IPAddress
	ev.UserAgent = meta.UserAgent
	s.Audit.Record(ctx, ev)
}
