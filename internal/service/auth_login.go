package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/bank-backend-go/internal/domain"
	"github.com/boddenberg/bank-backend-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var errBadCredentials = &domain.ErrUnauthorized{Message: "invalid email or password"}

// ============================================================
// Login: POST /api/auth/login
// ============================================================

// Login checks the password and issues an access/refresh token pair.
// Five consecutive failures lock the login for lockDuration.
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, errBadCredentials
	}

	var user *domain.User
	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		var err error
		user, err = tx.FindUserByEmail(ctx, email)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, errBadCredentials
	}
	span.SetAttributes(attribute.String("user_id", user.ID))

	if user.LockedUntil != nil && user.LockedUntil.After(time.Now()) {
		remaining := time.Until(*user.LockedUntil).Minutes()
		s.logger.Warn("login: user temporarily locked",
			zap.String("user_id", user.ID),
			zap.Float64("remaining_minutes", remaining),
		)
		return nil, &domain.ErrUnauthorized{
			Message: fmt.Sprintf("account temporarily locked, try again in %.0f minutes", remaining),
		}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, s.recordFailedLogin(ctx, user)
	}

	ts := now()
	user.FailedAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &ts

	access, err := s.signAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshHash, err := s.generateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	err = s.store.WithinTx(ctx, func(tx port.Tx) error {
		if err := tx.UpdateUserLogin(ctx, user); err != nil {
			return err
		}
		return tx.StoreRefreshToken(ctx, user.ID, refreshHash, ts.Add(s.refreshTTL))
	})
	if err != nil {
		return nil, fmt.Errorf("store login: %w", err)
	}

	s.logger.Info("user logged in",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
	)
	return s.loginResponse(user, access, refresh), nil
}

func (s *AuthService) recordFailedLogin(ctx context.Context, user *domain.User) error {
	user.FailedAttempts++
	if user.FailedAttempts >= maxFailedAttempts {
		lockedUntil := now().Add(lockDuration)
		user.LockedUntil = &lockedUntil
		s.logger.Warn("login: user locked after max attempts",
			zap.String("user_id", user.ID),
			zap.Int("attempts", user.FailedAttempts),
			zap.Duration("lock_duration", lockDuration),
		)
	} else {
		s.logger.Warn("login: failed password attempt",
			zap.String("user_id", user.ID),
			zap.Int("attempts", user.FailedAttempts),
			zap.Int("max", maxFailedAttempts),
		)
	}

	if err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		return tx.UpdateUserLogin(ctx, user)
	}); err != nil {
		s.logger.Error("login: persist failed attempt", zap.String("user_id", user.ID), zap.Error(err))
	}

	if user.FailedAttempts >= maxFailedAttempts {
		return &domain.ErrUnauthorized{
			Message: fmt.Sprintf("account locked for %d minutes after %d failed attempts", int(lockDuration.Minutes()), maxFailedAttempts),
		}
	}
	return errBadCredentials
}

func (s *AuthService) loginResponse(user *domain.User, access, refresh string) *domain.LoginResponse {
	return &domain.LoginResponse{
		Token:        access,
		Type:         "Bearer",
		RefreshToken: refresh,
		ExpiresIn:    int(s.accessTTL.Seconds()),
		ID:           user.ID,
		Username:     user.Email,
		Roles:        []string{"ROLE_" + string(user.Role)},
	}
}
