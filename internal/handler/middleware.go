package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/boddenberg/bank-backend-go/internal/domain"
	"github.com/boddenberg/bank-backend-go/internal/service"

	"go.uber.org/zap"
)

type contextKey string

const principalKey contextKey = "principal"

// JWTAuthMiddleware validates Bearer tokens and injects the caller's
// domain.Principal into the request context.
func JWTAuthMiddleware(authSvc *service.AuthService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "missing authentication token")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "invalid token format")
				return
			}

			claims, err := authSvc.ValidateAccessToken(parts[1])
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, claims.Principal())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets the request through only when the authenticated caller
// holds one of roles. It must run after JWTAuthMiddleware.
func RequireRole(logger *zap.Logger, roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !p.HasRole(roles...) {
				logger.Warn("auth: role not allowed",
					zap.String("path", r.URL.Path),
					zap.String("user_id", p.UserID),
					zap.String("role", string(p.Role)),
				)
				writeError(w, http.StatusForbidden, "insufficient role for this operation")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext returns the authenticated caller.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey).(domain.Principal)
	return p, ok
}

// customerFromRequest returns the caller's customer id, writing 403 when the
// caller has none.
func customerFromRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok || p.CustomerID == "" {
		writeError(w, http.StatusForbidden, "caller is not a customer")
		return "", false
	}
	return p.CustomerID, true
}
