package handler

import (
	"strings"

	"million-words-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const adminTokenIDKey = "admin_token_id"

// AdminAuthMiddleware requires a valid "Authorization: Bearer <token>" header.
// When no admin password is configured the admin routes stay open.
func (h *StoryHandler) AdminAuthMiddleware() gin.HandlerFunc {
	if h.adminAuth == nil || !h.adminAuth.Enabled() {
		h.logger.Warn("Admin authentication is disabled, admin routes are open")
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			handleServiceError(c, models.ErrUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			h.logger.Warn("Invalid Authorization header format", zap.String("path", c.Request.URL.Path))
			handleServiceError(c, models.ErrTokenInvalid)
			return
		}

		claims, err := h.adminAuth.Verify(parts[1])
		if err != nil {
			h.logger.Warn("Admin token verification failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
			handleServiceError(c, err)
			return
		}

		c.Set(adminTokenIDKey, claims.ID)
		c.Next()
	}
}
