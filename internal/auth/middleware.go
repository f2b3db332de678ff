// internal/auth/middleware.go
package auth

import (
	"context"
	"net/http"
	"slices"
	"strings"
)

type contextKey string

const ClaimsKey contextKey = "claims"

func JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
			return
		}

		tokenStr := strings.TrimPrefix(auth, "Bearer ")
		claims, err := ValidateToken(tokenStr)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects requests whose token role is not one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r)
			if claims == nil || !slices.Contains(roles, claims.Role) {
				http.Error(w, "role not permitted", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetClaims extracts the verified claims from context
func GetClaims(r *http.Request) *Claims {
	if val, ok := r.Context().Value(ClaimsKey).(*Claims); ok {
		return val
	}
	return nil
}

// GetTenantID extracts tenant_id from context
func GetTenantID(r *http.Request) int64 {
	if c := GetClaims(r); c != nil {
		return c.TenantID
	}
	return 0
}
