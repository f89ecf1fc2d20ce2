package handler

import (
	"net/http"

	"million-words-server/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *StoryHandler) overlayStatus(c *gin.Context) {
	c.JSON(http.StatusOK, toOverlayStatus(h.overlay.Status()))
}

func (h *StoryHandler) overlayNext(c *gin.Context) {
	story, ok := h.overlay.Next()
	h.respondStep(c, story, ok)
}

func (h *StoryHandler) overlayPrevious(c *gin.Context) {
	story, ok := h.overlay.Previous()
	h.respondStep(c, story, ok)
}

func (h *StoryHandler) respondStep(c *gin.Context, story *models.Story, ok bool) {
	if !ok {
		c.AbortWithStatusJSON(http.StatusConflict, models.ErrorResponse{Error: "No stories in rotation"})
		return
	}
	moderationActionsTotal.WithLabelValues("overlay_step").Inc()
	c.JSON(http.StatusOK, overlayStepResponse{Success: true, Story: story})
}

func (h *StoryHandler) overlayPause(c *gin.Context) {
	h.overlay.Pause()
	c.JSON(http.StatusOK, toOverlayStatus(h.overlay.Status()))
}

func (h *StoryHandler) overlayResume(c *gin.Context) {
	h.overlay.Resume()
	c.JSON(http.StatusOK, toOverlayStatus(h.overlay.Status()))
}

func (h *StoryHandler) overlayRefresh(c *gin.Context) {
	if err := h.overlay.Refresh(c.Request.Context()); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOverlayStatus(h.overlay.Status()))
}
