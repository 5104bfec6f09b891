package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/songstudio/studio-api/internal/pkg/jwt"
	"github.com/songstudio/studio-api/internal/pkg/logger"
	"github.com/songstudio/studio-api/internal/pkg/response"
)

type contextKey string

const (
	EmailKey     contextKey = "email"
	RequestIDKey contextKey = "request_id"
)

// AdminKeyHeader carries the shared operator secret.
const AdminKeyHeader = "X-Admin-Key"

// Auth returns middleware that validates JWT
func Auth(jwtService *jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			claims, err := jwtService.ValidateAccessToken(parts[1])
			if err != nil {
				if errors.Is(err, jwt.ErrExpiredToken) {
					response.Unauthorized(w, "Token expired")
				} else {
					response.Unauthorized(w, "Invalid token")
				}
				return
			}

			ctx := WithEmail(r.Context(), claims.Email)
			ctx = logger.With(ctx, map[string]string{"email": claims.Email})

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithEmail stores the authenticated email in ctx.
func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, EmailKey, email)
}

// GetEmail extracts the authenticated email from context
func GetEmail(ctx context.Context) string {
	if email, ok := ctx.Value(EmailKey).(string); ok {
		return email
	}
	return ""
}

// AdminKey guards operator routes with a shared secret. An empty key disables them.
func AdminKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				response.Forbidden(w, "Admin API is disabled")
				return
			}
			given := r.Header.Get(AdminKeyHeader)
			if subtle.ConstantTimeCompare([]byte(given), []byte(key)) != 1 {
				response.Unauthorized(w, "Invalid admin key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
