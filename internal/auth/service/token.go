package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/microplate/platform/internal/auth/audit"
	"github.com/microplate/platform/internal/auth/domain"
	"github.com/microplate/platform/internal/auth/store"
	"github.com/microplate/platform/pkg/cryptox"
	"github.com/microplate/platform/pkg/idx"
	"github.com/microplate/platform/pkg/jwtc"
	"github.com/microplate/platform/pkg/slogx"
)

// RequestMeta is the per-request context stored alongside issued tokens and
// stamped onto audit events.
type RequestMeta struct {
	IPAddress  string
	UserAgent  string
	DeviceInfo *string
}

// TokenService owns the credential and session lifecycle: login, refresh
// rotation, logout.
type TokenService struct {
	Store  store.Store
	Issuer *TokenIssuer
	Audit  audit.Sink
}

// Login verifies credentials and opens a new session. The refresh token
// starts a fresh family; every rotation descendant inherits it.
func (s *TokenService) Login(ctx context.Context, email, password string, meta RequestMeta) (*domain.TokenPair, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	email = strings.TrimSpace(email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.record(ctx, audit.Event{Type: audit.EventLoginFailed, Identifier: email, At: now}, meta)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		l.Info("login password verification failed", slog.String("user_id", user.ID))
		s.record(ctx, audit.Event{Type: audit.EventLoginFailed, UserID: user.ID, Identifier: email, At: now}, meta)
		return nil, ErrInvalidCredentials
	}

	family := uuid.NewString()
	pair, err := s.issuePair(ctx, s.Store, user, family, now, meta)
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Event{Type: audit.EventLogin, UserID: user.ID, Identifier: email, At: now}, meta)
	return pair, nil
}

// Refresh rotates a refresh token: the presented token is consumed exactly
// once and a new pair in the same family is issued. Presenting an
// already-consumed token is treated as theft and revokes the whole family.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string, meta RequestMeta) (*domain.TokenPair, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	claims, err := s.Issuer.Codec.Verify(refreshToken)
	switch {
	case errors.Is(err, jwtc.ErrExpired):
		return nil, ErrRefreshExpired
	case err != nil:
		return nil, ErrInvalidRefresh
	}
	if claims.ValidateType(jwtc.TypeRefresh) != nil ||
		claims.ValidateIssuer(s.Issuer.Codec.Issuer()) != nil ||
		claims.ValidateAudience(s.Issuer.Codec.Audience()) != nil {
		return nil, ErrInvalidRefresh
	}

	hash := cryptox.FingerprintToken(refreshToken)

	var (
		pair         *domain.TokenPair
		replayed     bool
		replayFamily string
		replayUser   string
	)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		rec, err := tx.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}

		consumed, err := tx.RefreshTokens().ConsumeRefreshToken(ctx, hash, now)
		if err != nil {
			return err
		}
		if !consumed {
			// Re-read: the record changed between lookup and consume, or was
			// already dead. Reused means a second presentation of a rotated
			// token, which is the replay signal.
			rec, err = tx.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return ErrInvalidRefresh
				}
				return err
			}
			switch {
			case rec.RevokedAt != nil:
				// Revoked wins over reused: once the family is dead the
				// replay alarm already fired and must not repeat.
				return ErrInvalidRefresh
			case rec.Reused:
				// The revocation must survive this failing transaction, so
				// it runs after the rollback.
				replayed = true
				replayFamily = rec.Family
				replayUser = rec.UserID
				return ErrReuseDetected
			case !now.Before(rec.ExpiresAt):
				return ErrRefreshExpired
			default:
				return ErrInvalidRefresh
			}
		}

		user, err := tx.Users().GetUserByID(ctx, rec.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}
		if !user.Active {
			return ErrInvalidRefresh
		}

		pair, err = s.issuePair(ctx, tx, user, rec.Family, now, meta)
		if err != nil {
			return err
		}

		s.record(ctx, audit.Event{
			Type:   audit.EventRefresh,
			UserID: user.ID,
			At:     now,
			Detail: map[string]string{"family": rec.Family},
		}, meta)
		return nil
	})
	if replayed {
		if revokeErr := s.Store.RefreshTokens().RevokeFamily(ctx, replayFamily, now); revokeErr != nil {
			l.Error("failed to revoke replayed token family",
				slog.String("family", replayFamily),
				slog.Any("error", revokeErr))
		}
		l.Warn("refresh token replay detected, family revoked",
			slog.String("user_id", replayUser),
			slog.String("family", replayFamily))
		s.record(ctx, audit.Event{
			Type:   audit.EventReuseDetected,
			UserID: replayUser,
			At:     now,
			Detail: map[string]string{"family": replayFamily},
		}, meta)
	}
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// Logout revokes the presented refresh token. Unknown or already-revoked
// tokens succeed silently; logout is idempotent.
func (s *TokenService) Logout(ctx context.Context, refreshToken string, meta RequestMeta) error {
	now := time.Now().UTC()

	claims, err := s.Issuer.Codec.Verify(refreshToken)
	if err != nil && !errors.Is(err, jwtc.ErrExpired) {
		return nil
	}

	hash := cryptox.FingerprintToken(refreshToken)
	if err := s.Store.RefreshTokens().RevokeRefreshToken(ctx, hash, now); err != nil {
		return err
	}

	s.record(ctx, audit.Event{Type: audit.EventLogout, UserID: claims.Subject, At: now}, meta)
	return nil
}

// issuePair mints a new access/refresh pair for the user and persists the
// refresh record in the given family. Runs against either the root store or
// a transaction.
func (s *TokenService) issuePair(ctx context.Context, st store.Store, user domain.Principal, family string, now time.Time, meta RequestMeta) (*domain.TokenPair, error) {
	accessToken, err := s.Issuer.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.Issuer.IssueRefreshToken(user, family)
	if err != nil {
		return nil, err
	}

	rec := domain.RefreshTokenRecord{
		ID:         idx.New().String(),
		UserID:     user.ID,
		TokenHash:  cryptox.FingerprintToken(refreshToken),
		Family:     family,
		DeviceInfo: meta.DeviceInfo,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.Issuer.RefreshTTL),
	}
	if err := st.RefreshTokens().CreateRefreshToken(ctx, rec); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.Issuer.AccessTTL,
	}, nil
}

func (s *TokenService) record(ctx context.Context, ev audit.Event, meta RequestMeta) {
	if s.Audit == nil {
		return
	}
	ev.IPAddress = meta.IPAddress
	ev.UserAgent = meta.UserAgent
	s.Audit.Record(ctx, ev)
}
