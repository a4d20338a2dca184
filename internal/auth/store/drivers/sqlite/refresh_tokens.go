package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/microplate/platform/internal/auth/domain"
	"github.com/microplate/platform/internal/auth/store"
)

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, rec domain.RefreshTokenRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens
		   (id, user_id, token_hash, family, device_info, ip_address, user_agent, issued_at, expires_at, revoked_at, reused)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, 0)`,
		rec.ID, rec.UserID, rec.TokenHash, rec.Family, mapOptionalString(rec.DeviceInfo),
		rec.IPAddress, rec.UserAgent, rec.IssuedAt, rec.ExpiresAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshTokenRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, family, device_info, ip_address, user_agent,
		        issued_at, expires_at, revoked_at, reused
		   FROM refresh_tokens WHERE token_hash = ?`, hash)

	var (
		rec        domain.RefreshTokenRecord
		deviceInfo sql.NullString
		revokedAt  sql.NullTime
	)
	err := row.Scan(&rec.ID, &rec.UserID, &rec.TokenHash, &rec.Family, &deviceInfo,
		&rec.IPAddress, &rec.UserAgent, &rec.IssuedAt, &rec.ExpiresAt, &revokedAt, &rec.Reused)
	if err != nil {
		return domain.RefreshTokenRecord{}, mapNotFound(err)
	}
	rec.DeviceInfo = mapNullStringPtr(deviceInfo)
	rec.RevokedAt = mapNullTimePtr(revokedAt)
	return rec, nil
}

// ConsumeRefreshToken is the rotation serialization point. The WHERE clause
// only matches a live record, so under concurrent presentation of the same
// token exactly one UPDATE reports a row affected.
func (r *refreshTokensRepo) ConsumeRefreshToken(ctx context.Context, hash string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens
		    SET reused = 1
		  WHERE token_hash = ? AND reused = 0 AND revoked_at IS NULL AND expires_at > ?`,
		hash, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, hash string, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL`,
		now, hash)
	return err
}

func (r *refreshTokensRepo) RevokeFamily(ctx context.Context, family string, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE family = ? AND revoked_at IS NULL`,
		now, family)
	return err
}

func (r *refreshTokensRepo) RevokeAllUserRefreshTokens(ctx context.Context, userID string, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`,
		now, userID)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= ?`, now)
	return err
}
