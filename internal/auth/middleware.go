package auth

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"cartbooking/internal/db"
)

type contextKey string

const claimsKey contextKey = "claims"

// Claims identifies the authenticated user on a request.
type Claims struct {
	UserID int
	Email  string
	Name   string
	Role   string
}

// IsManager reports whether the user may manage reservations (complete or
// cancel other users' bookings).
func (c Claims) IsManager() bool {
	return c.Role == db.RoleAdmin || c.Role == db.RoleOperational
}

func (c Claims) IsAdmin() bool {
	return c.Role == db.RoleAdmin
}

// FromContext returns the claims the middleware stored on the request.
func FromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(Claims)
	return claims, ok
}

// Middleware validates the Bearer token and stores the user's claims in the
// request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		claims, err := ParseToken(tokenString)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

// RequireManager allows only operational and admin users through.
func RequireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := FromContext(r.Context())
		if !ok || !claims.IsManager() {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin allows only admin users through.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := FromContext(r.Context())
		if !ok || !claims.IsAdmin() {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ParseToken validates an HS256 token signed with JWT_SECRET and extracts the
// user claims.
func ParseToken(tokenString string) (Claims, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return Claims{}, fmt.Errorf("JWT_SECRET not set")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return Claims{}, fmt.Errorf("invalid token: %w", err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("unexpected claims type")
	}
	userID, ok := mapClaims["user_id"].(float64)
	if !ok {
		return Claims{}, fmt.Errorf("missing user_id claim")
	}
	email, _ := mapClaims["email"].(string)
	name, _ := mapClaims["name"].(string)
	role, _ := mapClaims["role"].(string)
	return Claims{UserID: int(userID), Email: email, Name: name, Role: role}, nil
}
