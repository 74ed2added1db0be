package port

import (
	"context"
	"time"

	"github.com/boddenberg/bank-backend-go/internal/domain"
)

// UserRepository handles logins and their refresh tokens.
type UserRepository interface {
	InsertUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	// UpdateUserLogin persists the lockout bookkeeping of u.
	UpdateUserLogin(ctx context.Context, u *domain.User) error
	DeleteUser(ctx context.Context, id string) error

	StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	FindRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}
