package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartbooking/internal/db"
)

func signToken(t *testing.T, secret, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": 3,
		"email":   "user@school.example",
		"name":    "User",
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestMiddlewareStoresClaims(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	var got Claims
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := FromContext(r.Context())
		require.True(t, ok)
		got = claims
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/carts", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "secret", db.RoleProfessor))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, got.UserID)
	assert.Equal(t, db.RoleProfessor, got.Role)
	assert.False(t, got.IsManager())
}

func TestMiddlewareRejectsMissingOrBadToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	handler := Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/carts", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/carts", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", db.RoleProfessor))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoleGates(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	run := func(gate func(http.Handler) http.Handler, role string) int {
		handler := Middleware(gate(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})))
		req := httptest.NewRequest(http.MethodGet, "/admin/reservations", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "secret", role))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusForbidden, run(RequireManager, db.RoleProfessor))
	assert.Equal(t, http.StatusOK, run(RequireManager, db.RoleOperational))
	assert.Equal(t, http.StatusOK, run(RequireManager, db.RoleAdmin))

	assert.Equal(t, http.StatusForbidden, run(RequireAdmin, db.RoleOperational))
	assert.Equal(t, http.StatusOK, run(RequireAdmin, db.RoleAdmin))
}
