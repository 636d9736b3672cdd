package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/regenpay/wallet-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type contextKey string

const userIDKey contextKey = "userID"

// JWTAuthMiddleware validates Bearer tokens and injects the user ID
// into context.
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

			ctx := context.WithValue(r.Context(), userIDKey, claims.Sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

// OwnerOnlyMiddleware rejects requests whose {userId} path parameter
// does not match the authenticated user. Wallets are strictly private.
func OwnerOnlyMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pathUserID := chi.URLParam(r, "userId")
			authUserID := UserIDFromContext(r.Context())
			if pathUserID != "" && pathUserID != authUserID {
				logger.Warn("ownership check failed",
					zap.String("path", r.URL.Path),
					zap.String("auth_user_id", authUserID),
					zap.String("path_user_id", pathUserID),
				)
				writeError(w, http.StatusForbidden, "forbidden: wallet belongs to another user")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
