// internal/interfaces/http/middleware/auth.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/pkg/auth"
)

// Context keys populated by the auth middlewares
const (
	ctxUserID    = "user_id"
	ctxUserEmail = "user_email"
	ctxIsAdmin   = "is_admin"
	ctxClaims    = "token_claims"
)

// AuthMiddleware rejects requests without a valid access token
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	jwtManager := auth.NewJWTManager(cfg)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			c.Abort()
			return
		}

		tokenString := auth.ExtractTokenFromHeader(authHeader)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateAccessToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		storeClaims(c, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware resolves the user when a valid token is present
// and lets the request through anonymously otherwise. Cart and order
// routes use it so guests and logged-in buyers share the same handlers.
func OptionalAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	jwtManager := auth.NewJWTManager(cfg)

	return func(c *gin.Context) {
		tokenString := auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if tokenString != "" {
			if claims, err := jwtManager.ValidateAccessToken(tokenString); err == nil {
				storeClaims(c, claims)
			}
		}
		c.Next()
	}
}

// AdminMiddleware requires an authenticated admin. Mount it after
// AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		isAdmin, exists := c.Get(ctxIsAdmin)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		if !isAdmin.(bool) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Admin access required",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func storeClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxUserEmail, claims.Email)
	c.Set(ctxIsAdmin, claims.IsAdmin)
	c.Set(ctxClaims, claims)
}

// GetUserIDFromContext returns the authenticated user's ID, if any
func GetUserIDFromContext(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return 0, false
	}
	return userID.(uint), true
}

// GetUserEmailFromContext returns the authenticated user's email, if any
func GetUserEmailFromContext(c *gin.Context) (string, bool) {
	email, exists := c.Get(ctxUserEmail)
	if !exists {
		return "", false
	}
	return email.(string), true
}

// IsAdminFromContext reports whether the request is from an admin
func IsAdminFromContext(c *gin.Context) bool {
	isAdmin, exists := c.Get(ctxIsAdmin)
	if !exists {
		return false
	}
	return isAdmin.(bool)
}
