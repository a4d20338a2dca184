package store

import (
	"context"
	"errors"
	"time"

	"github.com/microplate/platform/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. Sub-repositories keep concerns tidy and make the
// transactional scope explicit at call sites.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens
	ResetTokens() ResetTokens
	OTPs() OTPs

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST Commit() or Rollback() the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns
	// nil and rolling back otherwise. Multi-step operations that must be
	// atomic (refresh rotation, password reset) go through here.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the narrow slice of the user directory the token flows need.
type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.Principal, error)

	// GetUserByEmail is used by login and forgot-password. Inactive users
	// are not returned.
	GetUserByEmail(ctx context.Context, email string) (domain.Principal, error)

	CreateUser(ctx context.Context, p domain.Principal) error

	// UpdatePasswordHash sets the credential hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, rec domain.RefreshTokenRecord) error

	// GetRefreshTokenByHash returns the record by token fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshTokenRecord, error)

	// ConsumeRefreshToken flips reused false->true if and only if the record
	// is still active. The compare-and-set is the serialization point for
	// concurrent rotations: exactly one caller sees consumed=true.
	ConsumeRefreshToken(ctx context.Context, hash string, now time.Time) (consumed bool, err error)

	// RevokeRefreshToken sets revoked_at. Idempotent: revoking an unknown or
	// already-revoked token is not an error.
	RevokeRefreshToken(ctx context.Context, hash string, now time.Time) error

	// RevokeFamily revokes every record in a token family.
	RevokeFamily(ctx context.Context, family string, now time.Time) error

	// RevokeAllUserRefreshTokens is the bulk revocation run on password reset.
	RevokeAllUserRefreshTokens(ctx context.Context, userID string, now time.Time) error

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) error
}

type ResetTokens interface {
	CreateResetToken(ctx context.Context, rec domain.PasswordResetTokenRecord) error

	// GetActiveResetTokenByHash returns an unconsumed, unexpired record.
	GetActiveResetTokenByHash(ctx context.Context, hash string, now time.Time) (domain.PasswordResetTokenRecord, error)

	// ConsumeResetToken sets used_at if and only if it is still null,
	// reporting whether this caller won the consume.
	ConsumeResetToken(ctx context.Context, hash string, now time.Time) (consumed bool, err error)

	// DeleteExpiredResetTokens is housekeeping.
	DeleteExpiredResetTokens(ctx context.Context, now time.Time) error
}

type OTPs interface {
	CreateOTP(ctx context.Context, rec domain.OTPRecord) error

	// InvalidateActiveOTPs marks every unverified code for the pair verified,
	// enforcing the one-active-code rule before a new code is stored.
	InvalidateActiveOTPs(ctx context.Context, identifier, otpType string) error

	// GetActiveOTP returns the newest unverified record matching all three
	// fields.
	GetActiveOTP(ctx context.Context, identifier, otpType, value string) (domain.OTPRecord, error)

	// GetLatestOTP returns the newest record for the pair regardless of
	// verification state.
	GetLatestOTP(ctx context.Context, identifier, otpType string) (domain.OTPRecord, error)

	MarkOTPVerified(ctx context.Context, id string) error

	// CountOTPsIssuedSince counts codes issued for the pair after the given
	// instant; the resend throttle is built on it.
	CountOTPsIssuedSince(ctx context.Context, identifier, otpType string, since time.Time) (int, error)

	// DeleteOTPsIssuedBefore is housekeeping.
	DeleteOTPsIssuedBefore(ctx context.Context, cutoff time.Time) error
}
