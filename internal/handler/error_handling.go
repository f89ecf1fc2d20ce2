package handler

import (
	"errors"
	"net/http"

	"million-words-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const msgInternalError = "Internal server error"

func handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var errResp models.ErrorResponse

	switch {
	case errors.Is(err, models.ErrValidation):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Error: err.Error()}
	case errors.Is(err, models.ErrUserBanned):
		statusCode = http.StatusForbidden
		errResp = models.ErrorResponse{Error: "User is banned from submitting stories"}
	case errors.Is(err, models.ErrForbidden):
		statusCode = http.StatusForbidden
		errResp = models.ErrorResponse{Error: "Forbidden"}
	case errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		errResp = models.ErrorResponse{Error: "Story not found"}
	case errors.Is(err, models.ErrInvalidCredentials):
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Error: "Invalid admin password"}
	case errors.Is(err, models.ErrTokenExpired):
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Error: "Token has expired"}
	case errors.Is(err, models.ErrTokenInvalid), errors.Is(err, models.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Error: "Unauthorized"}
	default:
		zap.L().Error("Unhandled internal error in handleServiceError",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		statusCode = http.StatusInternalServerError
		errResp = models.ErrorResponse{Error: msgInternalError}
	}

	c.AbortWithStatusJSON(statusCode, errResp)
}
