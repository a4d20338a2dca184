package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/microplate/platform/internal/auth/domain"
	"github.com/microplate/platform/internal/auth/store"
)

type resetTokensRepo struct {
	db dbtx
}

func (r *resetTokensRepo) CreateResetToken(ctx context.Context, rec domain.PasswordResetTokenRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO password_reset_tokens (token_hash, user_id, expires_at, used_at, ip_address, user_agent, created_at)
		 VALUES (?, ?, ?, NULL, ?, ?, ?)`,
		rec.TokenHash, rec.UserID, rec.ExpiresAt, rec.IPAddress, rec.UserAgent, rec.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *resetTokensRepo) GetActiveResetTokenByHash(ctx context.Context, hash string, now time.Time) (domain.PasswordResetTokenRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT token_hash, user_id, expires_at, used_at, ip_address, user_agent, created_at
		   FROM password_reset_tokens
		  WHERE token_hash = ? AND used_at IS NULL AND expires_at > ?`,
		hash, now)

	var (
		rec    domain.PasswordResetTokenRecord
		usedAt sql.NullTime
	)
	err := row.Scan(&rec.TokenHash, &rec.UserID, &rec.ExpiresAt, &usedAt,
		&rec.IPAddress, &rec.UserAgent, &rec.CreatedAt)
	if err != nil {
		return domain.PasswordResetTokenRecord{}, mapNotFound(err)
	}
	rec.UsedAt = mapNullTimePtr(usedAt)
	return rec, nil
}

// ConsumeResetToken stamps used_at once. Losing callers see consumed=false
// and must treat the token as invalid.
func (r *resetTokensRepo) ConsumeResetToken(ctx context.Context, hash string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE password_reset_tokens
		    SET used_at = ?
		  WHERE token_hash = ? AND used_at IS NULL AND expires_at > ?`,
		now, hash, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *resetTokensRepo) DeleteExpiredResetTokens(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM password_reset_tokens WHERE expires_at <= ?`, now)
	return err
}
