/**
 * @description
 * Authentication and authorization middleware for the admin-service.
 * Bearer tokens are HS256 JWTs whose subject is the profile id; admin routes
 * additionally require profiles.role = 'admin'.
 */
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/helparo/admin-service/internal/domain"
	"github.com/helparo/admin-service/internal/store"
)

type contextKey string

// UserIDContextKey is the key used to store the caller's user id in the request context.
const UserIDContextKey = contextKey("userID")

const userIDHeader = "X-User-Id"

// AuthConfig selects how callers are identified.
type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	AllowHeaderAuth bool
}

// RoleLookup resolves a profile's role.
type RoleLookup interface {
	GetProfileRole(ctx context.Context, userID string) (string, error)
}

// UserFromContext returns the authenticated user id.
func UserFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(string)
	return userID, ok && userID != ""
}

// AuthMiddleware validates the bearer token and injects the user id into the context.
// With AllowHeaderAuth a request without a bearer token may identify itself with X-User-Id.
func AuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
			if authHeader == "" {
				if cfg.AllowHeaderAuth {
					if userID := strings.TrimSpace(r.Header.Get(userIDHeader)); userID != "" {
						next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserIDContextKey, userID)))
						return
					}
				}
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header required")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid Authorization header format")
				return
			}

			userID, err := parseSubject(tokenString, cfg)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", fmt.Sprintf("Invalid token: %v", err))
				return
			}

			ctx := context.WithValue(r.Context(), UserIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseSubject(tokenString string, cfg AuthConfig) (string, error) {
	if cfg.JWTSecret == "" {
		return "", errors.New("token authentication is not configured")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("token is not valid")
	}

	subject, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("subject not found in token")
	}
	return subject, nil
}

// RequireAdmin rejects callers whose profile role is not admin.
func RequireAdmin(roles RoleLookup, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
				return
			}

			role, err := roles.GetProfileRole(r.Context(), userID)
			switch {
			case errors.Is(err, store.ErrProfileNotFound):
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Admin access required")
				return
			case err != nil:
				logger.Error("failed to resolve caller role", zap.String("user_id", userID), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "INTERNAL", "Failed to verify admin access")
				return
			case role != domain.RoleAdmin:
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Admin access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
