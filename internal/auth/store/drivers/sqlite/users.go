package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/microplate/platform/internal/auth/domain"
	"github.com/microplate/platform/internal/auth/store"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, username, password_hash, roles, active, created_at, updated_at`

func scanUser(row *sql.Row) (domain.Principal, error) {
	var (
		p     domain.Principal
		roles string
	)
	err := row.Scan(&p.ID, &p.Email, &p.Username, &p.PasswordHash, &roles, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Principal{}, mapNotFound(err)
	}
	p.Roles = splitRoles(roles)
	return p, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.Principal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.Principal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? AND active = 1`,
		strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, p domain.Principal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, username, password_hash, roles, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, strings.ToLower(strings.TrimSpace(p.Email)), p.Username, p.PasswordHash,
		joinRoles(p.Roles), p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID)
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

// isUniqueViolation matches the sqlite unique-constraint error without
// importing driver internals.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
