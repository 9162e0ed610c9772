package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/your-org/marketplace-backend/internal/config"
)

func corsConfig(origins ...string) *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{
			CORSAllowedOrigins: origins,
			CORSAllowedMethods: []string{"GET", "POST"},
			CORSAllowedHeaders: []string{"Content-Type", "Authorization"},
		},
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORS(corsConfig("https://shop.example.com")))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST", w.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORS(corsConfig("*")))

	req := httptest.NewRequest(http.MethodOptions, "/anything", nil)
	req.Header.Set("Origin", "https://elsewhere.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestOriginAllowed(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		allowed []string
		want    bool
	}{
		{"exact match", "https://shop.example.com", []string{"https://shop.example.com"}, true},
		{"wildcard", "https://anywhere.test", []string{"*"}, true},
		{"subdomain wildcard", "https://admin.example.com", []string{"*.example.com"}, true},
		{"no match", "https://evil.test", []string{"https://shop.example.com"}, false},
		{"empty list", "https://shop.example.com", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, originAllowed(tt.origin, tt.allowed))
		})
	}
}
