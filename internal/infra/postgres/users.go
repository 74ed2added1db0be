package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/bank-backend-go/internal/domain"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, password_hash, role, COALESCE(customer_id::text, ''), COALESCE(employee_id::text, ''),
	failed_attempts, locked_until, last_login_at, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.CustomerID,
		&u.EmployeeID,
		&u.FailedAttempts,
		&u.LockedUntil,
		&u.LastLoginAt,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (t *tx) InsertUser(ctx context.Context, u *domain.User) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, role, customer_id, employee_id, failed_attempts, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid, NULLIF($6, '')::uuid, $7, $8)
	`,
		u.ID,
		u.Email,
		u.PasswordHash,
		string(u.Role),
		u.CustomerID,
		u.EmployeeID,
		u.FailedAttempts,
		u.CreatedAt,
	)
	if err != nil {
		return conflictOr(err, "email already registered")
	}
	return nil
}

func (t *tx) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(t.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "user", id)
	}
	return u, nil
}

func (t *tx) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(t.q.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (t *tx) UpdateUserLogin(ctx context.Context, u *domain.User) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE users SET failed_attempts = $2, locked_until = $3, last_login_at = $4
		WHERE id = $1
	`, u.ID, u.FailedAttempts, u.LockedUntil, u.LastLoginAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &domain.ErrNotFound{Resource: "user", ID: u.ID}
	}
	return nil
}

// DeleteUser also removes the user's refresh tokens (ON DELETE CASCADE).
func (t *tx) DeleteUser(ctx context.Context, id string) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return notFoundOr(err, "user", id)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ErrNotFound{Resource: "user", ID: id}
	}
	return nil
}

// ============================================================
// Refresh tokens
// ============================================================

func (t *tx) StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO refresh_tokens (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id = EXCLUDED.user_id, expires_at = EXCLUDED.expires_at, revoked = FALSE
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (t *tx) FindRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	var rt domain.RefreshToken
	err := t.q.QueryRow(ctx, `
		SELECT user_id::text, token_hash, expires_at, revoked
		FROM refresh_tokens
		WHERE token_hash = $1 AND NOT revoked
	`, tokenHash).Scan(&rt.UserID, &rt.TokenHash, &rt.ExpiresAt, &rt.Revoked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

func (t *tx) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := t.q.Exec(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token_hash = $1`, tokenHash)
	return err
}

func (t *tx) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	_, err := t.q.Exec(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND NOT revoked`, userID)
	return err
}
