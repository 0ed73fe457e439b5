package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAuthenticatorTokenRoundTrip tests that a generated token validates
// and carries its claims back.
func TestAuthenticatorTokenRoundTrip(t *testing.T) {
	auth := NewAuthenticator("test-secret")

	token, err := auth.GenerateToken("dashboard")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "dashboard", claims.Client)
	assert.Equal(t, "netgauge", claims.Issuer)
}

// TestAuthenticatorRejectsWrongSecret tests that tokens signed with a
// different secret are rejected.
func TestAuthenticatorRejectsWrongSecret(t *testing.T) {
	token, err := NewAuthenticator("secret-one").GenerateToken("client")
	require.NoError(t, err)

	_, err = NewAuthenticator("secret-two").ValidateToken(token)
	assert.Error(t, err)
}

// TestAuthenticatorRejectsExpiredToken tests that expiry is enforced.
func TestAuthenticatorRejectsExpiredToken(t *testing.T) {
	auth := NewAuthenticator("test-secret")
	auth.expiry = -time.Hour

	token, err := auth.GenerateToken("client")
	require.NoError(t, err)

	_, err = auth.ValidateToken(token)
	assert.Error(t, err)
}

// TestAuthenticatorRejectsGarbage tests that malformed tokens are
// rejected rather than panicking.
func TestAuthenticatorRejectsGarbage(t *testing.T) {
	_, err := NewAuthenticator("test-secret").ValidateToken("not-a-token")
	assert.Error(t, err)
}

// TestAuthenticatorMiddleware tests the gin middleware across the three
// ways a request can carry (or fail to carry) a token.
func TestAuthenticatorMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := NewAuthenticator("test-secret")

	r := gin.New()
	r.Use(auth.Middleware())
	r.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"client": c.GetString("client")})
	})

	t.Run("missing token is rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "missing token")
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer bogus")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid token")
	})

	t.Run("bearer token is accepted", func(t *testing.T) {
		token, err := auth.GenerateToken("cli")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"client":"cli"`)
	})

	t.Run("query token is accepted", func(t *testing.T) {
		token, err := auth.GenerateToken("browser")
		require.NoError(t, err)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected?token="+token, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"client":"browser"`)
	})
}
