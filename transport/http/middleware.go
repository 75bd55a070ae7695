package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/faucet/core"
	"github.com/layer-3/faucet/service"
	"go.uber.org/zap"
)

const (
	bearerPrefix = "Bearer "

	// ContextAddressKey holds the authenticated address on the gin context
	ContextAddressKey = "userAddress"
)

// AuthMiddleware creates middleware that validates session tokens
func AuthMiddleware(authService *service.AuthService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "authorization header missing"})
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(auth, bearerPrefix))
		if !strings.HasPrefix(auth, bearerPrefix) || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "bearer token missing"})
			return
		}

		session, err := authService.ValidateSessionToken(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, core.ErrInvalidCredential) && !errors.Is(err, core.ErrCredentialExpired) {
				logger.Error("session validation failed", zap.Error(err))
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "token invalid or expired"})
			return
		}

		c.Set(ContextAddressKey, session.Address)

		c.Next()
	}
}
