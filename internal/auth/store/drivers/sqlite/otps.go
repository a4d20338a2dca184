package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/microplate/platform/internal/auth/domain"
	"github.com/microplate/platform/internal/auth/store"
)

type otpsRepo struct {
	db dbtx
}

func (r *otpsRepo) CreateOTP(ctx context.Context, rec domain.OTPRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO otps (id, user_identifier, otp_type, value, token_hash, user_id, issued_at, verified)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		rec.ID, rec.UserIdentifier, rec.OTPType, rec.Value, rec.TokenHash,
		mapOptionalString(rec.UserID), rec.IssuedAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *otpsRepo) InvalidateActiveOTPs(ctx context.Context, identifier, otpType string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE otps SET verified = 1 WHERE user_identifier = ? AND otp_type = ? AND verified = 0`,
		identifier, otpType)
	return err
}

func (r *otpsRepo) GetActiveOTP(ctx context.Context, identifier, otpType, value string) (domain.OTPRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_identifier, otp_type, value, token_hash, user_id, issued_at, verified
		   FROM otps
		  WHERE user_identifier = ? AND otp_type = ? AND value = ? AND verified = 0
		  ORDER BY issued_at DESC
		  LIMIT 1`,
		identifier, otpType, value)

	var (
		rec    domain.OTPRecord
		userID sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.UserIdentifier, &rec.OTPType, &rec.Value,
		&rec.TokenHash, &userID, &rec.IssuedAt, &rec.Verified)
	if err != nil {
		return domain.OTPRecord{}, mapNotFound(err)
	}
	rec.UserID = mapNullStringPtr(userID)
	return rec, nil
}

func (r *otpsRepo) GetLatestOTP(ctx context.Context, identifier, otpType string) (domain.OTPRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_identifier, otp_type, value, token_hash, user_id, issued_at, verified
		   FROM otps
		  WHERE user_identifier = ? AND otp_type = ?
		  ORDER BY issued_at DESC
		  LIMIT 1`,
		identifier, otpType)

	var (
		rec    domain.OTPRecord
		userID sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.UserIdentifier, &rec.OTPType, &rec.Value,
		&rec.TokenHash, &userID, &rec.IssuedAt, &rec.Verified)
	if err != nil {
		return domain.OTPRecord{}, mapNotFound(err)
	}
	rec.UserID = mapNullStringPtr(userID)
	return rec, nil
}

func (r *otpsRepo) MarkOTPVerified(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE otps SET verified = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *otpsRepo) CountOTPsIssuedSince(ctx context.Context, identifier, otpType string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM otps WHERE user_identifier = ? AND otp_type = ? AND issued_at > ?`,
		identifier, otpType, since).Scan(&count)
	return count, err
}

func (r *otpsRepo) DeleteOTPsIssuedBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM otps WHERE issued_at <= ?`, cutoff)
	return err
}
