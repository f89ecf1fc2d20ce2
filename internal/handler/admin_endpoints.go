package handler

import (
	"net/http"

	"million-words-server/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *StoryHandler) adminLogin(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request data: " + err.Error()})
		return
	}
	if h.adminAuth == nil {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}

	token, expiresAt, err := h.adminAuth.Login(req.Password)
	if err != nil {
		adminLoginsTotal.WithLabelValues("failure").Inc()
		handleServiceError(c, err)
		return
	}

	adminLoginsTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, adminLoginResponse{Token: token, ExpiresAt: expiresAt})
}
