package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeti47/camkit/ccc/logging"
)

const apiKeyHeader = "X-API-Key"

// AuthMiddleware provides API key authentication middleware for Gin
type AuthMiddleware struct {
	logger   logging.Logger
	verifier KeyVerifier
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(logger logging.Logger, verifier KeyVerifier) *AuthMiddleware {
	if logger == nil {
		logger = logging.NopLogger
	}

	return &AuthMiddleware{
		logger:   logger,
		verifier: verifier,
	}
}

// RequireAPIKey middleware that requires a valid API key. Without a
// configured key every request passes.
func (m *AuthMiddleware) RequireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.verifier == nil || !m.verifier.Enabled() {
			c.Next()
			return
		}

		// Accept either "X-API-Key: <key>" or "Authorization: Bearer <key>"
		key := c.GetHeader(apiKeyHeader)
		if key == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				m.logger.Warn("Missing API key")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing API key"})
				c.Abort()
				return
			}
			if !strings.HasPrefix(authHeader, "Bearer ") {
				m.logger.Warn("Invalid Authorization header format")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid Authorization header format"})
				c.Abort()
				return
			}
			key = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if !m.verifier.VerifyKey(key) {
			m.logger.Warn("Invalid API key", "path", c.Request.URL.Path)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}
