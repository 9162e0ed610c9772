package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/pkg/auth"
)

func authConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "marketplace-test"},
		JWT: config.JWTConfig{
			Secret:             "test-secret-at-least-32-chars-long",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 24 * time.Hour,
		},
	}
}

func mintToken(t *testing.T, cfg *config.Config, isAdmin bool) string {
	t.Helper()
	token, err := auth.NewJWTManager(cfg).GenerateAccessToken(42, "buyer@example.com", isAdmin)
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := authConfig()

	router := gin.New()
	router.Use(AuthMiddleware(cfg))
	router.GET("/me", func(c *gin.Context) {
		userID, ok := GetUserIDFromContext(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})

	// No header
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Malformed header
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid token
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, false))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "42")
}

func TestOptionalAuthMiddlewareLetsGuestsThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := authConfig()

	router := gin.New()
	router.Use(OptionalAuthMiddleware(cfg))
	router.GET("/cart", func(c *gin.Context) {
		_, ok := GetUserIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})

	// Anonymous request passes with no identity
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "false")

	// A garbage token is treated the same as none
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "false")

	// A valid token resolves the user
	req = httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, false))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), "true")
}

func TestAdminMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := authConfig()

	router := gin.New()
	router.Use(AuthMiddleware(cfg), AdminMiddleware())
	router.GET("/admin", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, false))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, true))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
