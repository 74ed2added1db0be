// Package service implements the bank use cases. AuthService handles
// registration, login, token refresh and logout for customers, employees
// and admins.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/bank-backend-go/internal/domain"
	"github.com/boddenberg/bank-backend-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var authTracer = otel.Tracer("service/auth")

const (
	maxFailedAttempts = 5
	lockDuration      = 30 * time.Minute
	bcryptCost        = 12
)

// AuthService orchestrates authentication flows.
type AuthService struct {
	store      port.Store
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	hashCost   int
	logger     *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(store port.Store, jwtSecret string, accessTTL, refreshTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		store:      store,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		hashCost:   bcryptCost,
		logger:     logger,
	}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *AuthService) WithHashCost(cost int) *AuthService {
	s.hashCost = cost
	return s
}

// HashPassword hashes a password with the service's bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// ============================================================
// Register: POST /api/auth/register
// ============================================================

// Register creates a USER login and its customer record in one unit of work.
func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.RegisterResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Register")
	defer span.End()

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	ts := now()
	if err := req.Validate(ts); err != nil {
		return nil, err
	}
	dob, _ := domain.ParseBirthDate("dob", req.DOB, ts)

	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CustomerID:   uuid.NewString(),
		CreatedAt:    ts,
	}
	customer := &domain.Customer{
		ID:        user.CustomerID,
		UserID:    user.ID,
		Name:      strings.TrimSpace(req.Name),
		Email:     req.Email,
		DOB:       dob,
		Phone:     req.Phone,
		CreatedAt: ts,
	}

	err = s.store.WithinTx(ctx, func(tx port.Tx) error {
		existing, err := tx.FindUserByEmail(ctx, req.Email)
		if err != nil {
			return fmt.Errorf("check existing user: %w", err)
		}
		if existing != nil {
			return &domain.ErrConflict{Message: "email is already registered"}
		}
		if err := tx.InsertUser(ctx, user); err != nil {
			return err
		}
		return tx.InsertCustomer(ctx, customer)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("customer registered",
		zap.String("user_id", user.ID),
		zap.String("customer_id", customer.ID),
	)

	return &domain.RegisterResponse{
		UserID:     user.ID,
		CustomerID: customer.ID,
		Message:    "registration successful",
	}, nil
}
