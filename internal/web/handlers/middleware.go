package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/mealbridge/mealbridge/internal/token"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// sessionContextKey stores the validated session claims.
	sessionContextKey contextKey = "session"
)

// AuthMiddleware requires a valid Bearer session token. On failure it
// returns 401 without touching the handler.
func AuthMiddleware(tokens *token.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				jsonError(w, "Missing bearer token", http.StatusUnauthorized)
				return
			}

			claims, err := tokens.Validate(raw)
			if err != nil {
				jsonError(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware attaches session claims when a valid Bearer
// token is present but lets anonymous requests through. Used on browse
// routes where a session only unlocks extras (mine=1).
func OptionalAuthMiddleware(tokens *token.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if raw, ok := strings.CutPrefix(header, "Bearer "); ok && raw != "" {
				if claims, err := tokens.Validate(raw); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), sessionContextKey, claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromContext extracts the session claims set by AuthMiddleware.
func SessionFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(sessionContextKey).(*token.Claims)
	return claims, ok
}
