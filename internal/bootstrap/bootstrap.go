// Package bootstrap seeds the rows the back-end needs before it can serve
// requests. It runs on startup, after the store is reachable.
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/bank-backend-go/internal/domain"
	"github.com/boddenberg/bank-backend-go/internal/port"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PasswordHasher hashes a plain-text password.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

// EnsureAdmin creates an ADMIN login for email unless one already exists.
// An empty email or password disables seeding.
func EnsureAdmin(ctx context.Context, store port.Store, hasher PasswordHasher, email, password string, logger *zap.Logger) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		logger.Info("bootstrap: admin seeding disabled")
		return nil
	}

	var created bool
	err := store.WithinTx(ctx, func(tx port.Tx) error {
		existing, err := tx.FindUserByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("check admin: %w", err)
		}
		if existing != nil {
			if existing.Role != domain.RoleAdmin {
				return fmt.Errorf("bootstrap email %s belongs to a %s login", email, existing.Role)
			}
			return nil
		}

		hash, err := hasher.HashPassword(password)
		if err != nil {
			return err
		}
		created = true
		return tx.InsertUser(ctx, &domain.User{
			ID:           uuid.NewString(),
			Email:        email,
			PasswordHash: hash,
			Role:         domain.RoleAdmin,
			CreatedAt:    time.Now().UTC(),
		})
	})
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}

	if created {
		logger.Info("bootstrap: admin created", zap.String("email", email))
	} else {
		logger.Info("bootstrap: admin already exists", zap.String("email", email))
	}
	return nil
}
