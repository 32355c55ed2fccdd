package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func runRequest(t *testing.T, authHeader string) (*httptest.ResponseRecorder, string, string) {
	t.Helper()

	var gotUserID, gotEmail string
	handler := JWTAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = GetUserID(r.Context())
		gotEmail = GetEmail(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/requests", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, gotUserID, gotEmail
}

func TestJWTAuth(t *testing.T) {
	t.Run("valid token passes identity through", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.MapClaims{
			"user_id": "64f000000000000000000001",
			"email":   "nathan@example.com",
			"exp":     time.Now().Add(time.Hour).Unix(),
		})

		rec, userID, email := runRequest(t, "Bearer "+token)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "64f000000000000000000001", userID)
		assert.Equal(t, "nathan@example.com", email)
	})

	t.Run("missing header", func(t *testing.T) {
		rec, _, _ := runRequest(t, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		rec, _, _ := runRequest(t, "Token abc")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signToken(t, "other-secret", jwt.MapClaims{
			"user_id": "64f000000000000000000001",
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		rec, _, _ := runRequest(t, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.MapClaims{
			"user_id": "64f000000000000000000001",
			"exp":     time.Now().Add(-time.Hour).Unix(),
		})
		rec, _, _ := runRequest(t, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token without user_id claim", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.MapClaims{
			"email": "nathan@example.com",
			"exp":   time.Now().Add(time.Hour).Unix(),
		})
		rec, _, _ := runRequest(t, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestGetUserIDUnauthenticated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, GetUserID(req.Context()))
	assert.Empty(t, GetEmail(req.Context()))
}
