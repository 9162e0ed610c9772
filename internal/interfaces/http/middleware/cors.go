// internal/interfaces/http/middleware/cors.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-backend/internal/config"
)

// CORS answers cross-origin requests for the origins configured in
// Security.CORSAllowedOrigins. The method and header lists are joined
// once at setup, not per request.
func CORS(cfg *config.Config) gin.HandlerFunc {
	allowedMethods := strings.Join(cfg.Security.CORSAllowedMethods, ", ")
	allowedHeaders := strings.Join(cfg.Security.CORSAllowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if originAllowed(origin, cfg.Security.CORSAllowedOrigins) {
			c.Header("Access-Control-Allow-Origin", origin)
		}

		c.Header("Access-Control-Allow-Methods", allowedMethods)
		c.Header("Access-Control-Allow-Headers", allowedHeaders)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// originAllowed matches an Origin header against the allow list.
// Entries of the form "*.example.com" match any subdomain.
func originAllowed(origin string, allowed []string) bool {
	for _, entry := range allowed {
		if entry == "*" || entry == origin {
			return true
		}
		if strings.HasPrefix(entry, "*.") {
			if strings.HasSuffix(origin, strings.TrimPrefix(entry, "*.")) {
				return true
			}
		}
	}
	return false
}
