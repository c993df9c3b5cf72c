package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// TokenValidator resolves a credential to a user id at connect time.
type TokenValidator interface {
	ValidateToken(tokenStr string) (string, error)
}

// AuthMiddleware rejects a request before any registry mutation when the
// identity cannot be resolved. Websocket and SSE clients cannot always
// set headers, so a ?token= query parameter is accepted as fallback.
func AuthMiddleware(tokenSvc TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token == "" {
				http.Error(w, "Authorization required", http.StatusUnauthorized)
				return
			}
			userID, err := tokenSvc.ValidateToken(token)
			if err != nil {
				http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
