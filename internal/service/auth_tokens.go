package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/bank-backend-go/internal/domain"
	"github.com/boddenberg/bank-backend-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const tokenIssuer = "bank-backend"

// ============================================================
// Refresh: POST /api/auth/refresh
// ============================================================

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued.
func (s *AuthService) Refresh(ctx context.Context, req *domain.RefreshRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Refresh")
	defer span.End()

	tokenHash := hashToken(req.RefreshToken)
	access, refresh := "", ""
	var user *domain.User

	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		stored, err := tx.FindRefreshToken(ctx, tokenHash)
		if err != nil {
			return fmt.Errorf("find refresh token: %w", err)
		}
		if stored == nil {
			return &domain.ErrUnauthorized{Message: "invalid refresh token"}
		}
		if stored.ExpiresAt.Before(time.Now()) {
			s.logger.Warn("refresh: expired token used", zap.String("user_id", stored.UserID))
			return errExpiredRefresh
		}
		if err := tx.RevokeRefreshToken(ctx, tokenHash); err != nil {
			return fmt.Errorf("revoke refresh token: %w", err)
		}

		user, err = tx.GetUser(ctx, stored.UserID)
		if err != nil {
			return err
		}

		access, err = s.signAccessToken(user)
		if err != nil {
			return fmt.Errorf("sign access token: %w", err)
		}
		var refreshHash string
		refresh, refreshHash, err = s.generateRefreshToken()
		if err != nil {
			return fmt.Errorf("generate refresh token: %w", err)
		}
		return tx.StoreRefreshToken(ctx, user.ID, refreshHash, now().Add(s.refreshTTL))
	})
	if errors.Is(err, errExpiredRefresh) {
		_ = s.store.WithinTx(ctx, func(tx port.Tx) error {
			return tx.RevokeRefreshToken(ctx, tokenHash)
		})
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	return s.loginResponse(user, access, refresh), nil
}

var errExpiredRefresh = &domain.ErrUnauthorized{Message: "refresh token expired"}

// ============================================================
// Logout: POST /api/auth/logout
// ============================================================

// Logout revokes every refresh token of the user.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	if err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		return tx.RevokeAllRefreshTokens(ctx, userID)
	}); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}

	s.logger.Info("user logged out", zap.String("user_id", userID))
	return nil
}

// ============================================================
// ValidateAccessToken, used by middleware
// ============================================================

// JWTClaims represents the custom claims in access tokens. The subject is
// the user id.
type JWTClaims struct {
	Role       domain.Role `json:"role"`
	CustomerID string      `json:"customer_id,omitempty"`
	EmployeeID string      `json:"employee_id,omitempty"`
	Type       string      `json:"type"`
	jwt.RegisteredClaims
}

// Principal converts the claims into the caller identity passed to services.
func (c *JWTClaims) Principal() domain.Principal {
	return domain.Principal{
		UserID:     c.Subject,
		Role:       c.Role,
		CustomerID: c.CustomerID,
		EmployeeID: c.EmployeeID,
	}
}

// ValidateAccessToken parses and verifies an HS256 access token.
func (s *AuthService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token type"}
	}
	return claims, nil
}

// ============================================================
// Internal JWT helpers
// ============================================================

func (s *AuthService) signAccessToken(user *domain.User) (string, error) {
	ts := time.Now()
	claims := JWTClaims{
		Role:       user.Role,
		CustomerID: user.CustomerID,
		EmployeeID: user.EmployeeID,
		Type:       "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(ts),
			ExpiresAt: jwt.NewNumericDate(ts.Add(s.accessTTL)),
			Issuer:    tokenIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) generateRefreshToken() (raw string, hashed string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	hashed = hashToken(raw)
	return raw, hashed, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
