package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/microplate/platform/internal/auth/audit"
	"github.com/microplate/platform/internal/auth/domain"
	"github.com/microplate/platform/internal/auth/notify"
	"github.com/microplate/platform/internal/auth/store"
	"github.com/microplate/platform/pkg/cryptox"
	"github.com/microplate/platform/pkg/idx"
	"github.com/microplate/platform/pkg/jwtc"
	"github.com/microplate/platform/pkg/slogx"
)

// OTPService issues and verifies numeric one-time codes. A verify call must
// present both the code and the companion token minted at generation time,
// so codes cannot be brute forced across identifiers.
type OTPService struct {
	Store    store.Store
	Issuer   *TokenIssuer
	Audit    audit.Sink
	Notifier notify.Notifier

	// Digits is the code length; defaults to 6.
	Digits int

	// ThrottleLimit codes issued per ThrottleWindow per (identifier, type)
	// pair, counting generates and resends alike.
	ThrottleLimit  int
	ThrottleWindow time.Duration
}

func (s *OTPService) digits() int {
	if s.Digits <= 0 {
		return 6
	}
	return s.Digits
}

func (s *OTPService) throttleLimit() int {
	if s.ThrottleLimit <= 0 {
		return 3
	}
	return s.ThrottleLimit
}

func (s *OTPService) throttleWindow() time.Duration {
	if s.ThrottleWindow <= 0 {
		return time.Minute
	}
	return s.ThrottleWindow
}

// checkThrottle enforces the sliding-window issuance ceiling for the pair.
func (s *OTPService) checkThrottle(ctx context.Context, identifier, otpType string, now time.Time, meta RequestMeta) error {
	count, err := s.Store.OTPs().CountOTPsIssuedSince(ctx, identifier, otpType, now.Add(-s.throttleWindow()))
	if err != nil {
		return err
	}
	if count >= s.throttleLimit() {
		s.record(ctx, audit.Event{
			Type:       audit.EventOTPThrottled,
			Identifier: identifier,
			At:         now,
			Detail:     map[string]string{"otp_type": otpType},
		}, meta)
		return ErrOTPRateLimited
	}
	return nil
}

// Generate mints a fresh code for the (identifier, type) pair, invalidating
// any predecessor, and delivers it. The returned token accompanies the code
// at verification. Issuance is throttled per pair regardless of which entry
// point asked for the code.
func (s *OTPService) Generate(ctx context.Context, identifier, otpType string, userID *string, meta RequestMeta) (string, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	identifier = strings.TrimSpace(identifier)

	if err := s.checkThrottle(ctx, identifier, otpType, now, meta); err != nil {
		return "", err
	}

	code, err := cryptox.GenerateNumericCode(s.digits())
	if err != nil {
		return "", err
	}

	token, err := s.Issuer.IssueOTPToken(identifier, otpType)
	if err != nil {
		return "", err
	}

	rec := domain.OTPRecord{
		ID:             idx.New().String(),
		UserIdentifier: identifier,
		OTPType:        otpType,
		Value:          code,
		TokenHash:      cryptox.FingerprintToken(token),
		UserID:         userID,
		IssuedAt:       now,
	}

	// Invalidate-then-insert in one transaction keeps the one-active-code
	// rule intact under concurrent generates.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.OTPs().InvalidateActiveOTPs(ctx, identifier, otpType); err != nil {
			return err
		}
		return tx.OTPs().CreateOTP(ctx, rec)
	})
	if err != nil {
		return "", err
	}

	if s.Notifier != nil {
		if err := s.Notifier.SendOTP(ctx, identifier, otpType, code); err != nil {
			l.Warn("otp delivery failed",
				slog.String("otp_type", otpType),
				slog.Any("error", err))
		}
	}

	s.record(ctx, audit.Event{
		Type:       audit.EventOTPGenerated,
		Identifier: identifier,
		At:         now,
		Detail:     map[string]string{"otp_type": otpType},
	}, meta)
	return token, nil
}

// Verify checks a presented code against the newest active record for the
// pair encoded in the companion token. Missing, stale, mismatched and
// already-used codes all collapse into IsValid=false.
func (s *OTPService) Verify(ctx context.Context, otpToken, code string, meta RequestMeta) (domain.OTPVerification, error) {
	now := time.Now().UTC()

	claims, err := s.Issuer.Codec.Verify(otpToken)
	if err != nil {
		return domain.OTPVerification{}, nil
	}
	if claims.ValidateType(jwtc.TypeOTP) != nil ||
		claims.ValidateIssuer(s.Issuer.Codec.Issuer()) != nil ||
		claims.ValidateAudience(s.Issuer.Codec.Audience()) != nil {
		return domain.OTPVerification{}, nil
	}

	rec, err := s.Store.OTPs().GetActiveOTP(ctx, claims.Identifier, claims.OTPType, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.recordVerifyFailure(ctx, claims, now, meta)
			return domain.OTPVerification{}, nil
		}
		return domain.OTPVerification{}, err
	}

	// The token must be the one minted with this code.
	tokenHash := cryptox.FingerprintToken(otpToken)
	if subtle.ConstantTimeCompare([]byte(tokenHash), []byte(rec.TokenHash)) != 1 {
		s.recordVerifyFailure(ctx, claims, now, meta)
		return domain.OTPVerification{}, nil
	}

	if now.After(rec.IssuedAt.Add(s.Issuer.OTPTTL)) {
		s.recordVerifyFailure(ctx, claims, now, meta)
		return domain.OTPVerification{}, nil
	}

	if err := s.Store.OTPs().MarkOTPVerified(ctx, rec.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.OTPVerification{}, nil
		}
		return domain.OTPVerification{}, err
	}

	s.record(ctx, audit.Event{
		Type:       audit.EventOTPVerified,
		Identifier: rec.UserIdentifier,
		At:         now,
		Detail:     map[string]string{"otp_type": rec.OTPType},
	}, meta)
	return domain.OTPVerification{IsValid: true, UserID: rec.UserID}, nil
}

// Resend issues a replacement code for the pair bound to the companion
// token. The issuance throttle in Generate applies here too, so the delivery
// channel cannot be flooded.
func (s *OTPService) Resend(ctx context.Context, otpToken string, meta RequestMeta) (string, error) {
	claims, err := s.Issuer.Codec.Verify(otpToken)
	if err != nil && !errors.Is(err, jwtc.ErrExpired) {
		return "", ErrInvalidOTPToken
	}
	if claims.ValidateType(jwtc.TypeOTP) != nil {
		return "", ErrInvalidOTPToken
	}

	// Carry the user binding forward from the latest record for the pair.
	var userID *string
	if rec, err := s.Store.OTPs().GetLatestOTP(ctx, claims.Identifier, claims.OTPType); err == nil {
		userID = rec.UserID
	}

	return s.Generate(ctx, claims.Identifier, claims.OTPType, userID, meta)
}

func (s *OTPService) recordVerifyFailure(ctx context.Context, claims jwtc.Claims, now time.Time, meta RequestMeta) {
	s.record(ctx, audit.Event{
		Type:       audit.EventOTPVerifyFailed,
		Identifier: claims.Identifier,
		At:         now,
		Detail:     map[string]string{"otp_type": claims.OTPType},
	}, meta)
}

func (s *OTPService) record(ctx context.Context, ev audit.Event, meta RequestMeta) {
	if s.Audit == nil {
		return
	}
	ev.IPAddress = meta.IPAddress
	ev.UserAgent = meta.UserAgent
	s.Audit.Record(ctx, ev)
}
