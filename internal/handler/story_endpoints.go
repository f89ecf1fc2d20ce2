package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"million-words-server/internal/models"
	"million-words-server/internal/service"

	"github.com/gin-gonic/gin"
)

const defaultLeaderboardLimit = 10

func (h *StoryHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (h *StoryHandler) submitStory(c *gin.Context) {
	var req submitStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		submissionsTotal.WithLabelValues("invalid").Inc()
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request data: " + err.Error()})
		return
	}

	id, err := h.submissions.Submit(c.Request.Context(), service.SubmitStoryInput{
		Username:  req.Username,
		Title:     req.Title,
		Genre:     req.Genre,
		Body:      req.Story,
		WordCount: req.WordCount,
	})
	if err != nil {
		submissionsTotal.WithLabelValues(submissionResult(err)).Inc()
		handleServiceError(c, err)
		return
	}

	submissionsTotal.WithLabelValues("accepted").Inc()
	c.JSON(http.StatusCreated, models.SubmitResponse{
		Success: true,
		Message: "Story submitted successfully",
		StoryID: id,
	})
}

// listStories returns every story regardless of status.
func (h *StoryHandler) listStories(c *gin.Context) {
	stories, err := h.moderation.ListStories(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if stories == nil {
		stories = []*models.Story{}
	}
	c.JSON(http.StatusOK, stories)
}

// listApprovedStories returns the set currently eligible for display.
func (h *StoryHandler) listApprovedStories(c *gin.Context) {
	stories, err := h.moderation.EligibleStories(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if stories == nil {
		stories = []*models.Story{}
	}
	c.JSON(http.StatusOK, stories)
}

func (h *StoryHandler) approveStory(c *gin.Context) {
	story, err := h.moderation.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	moderationActionsTotal.WithLabelValues("approve").Inc()
	h.refreshOverlay()
	c.JSON(http.StatusOK, models.StoryActionResponse{Success: true, Story: story})
}

func (h *StoryHandler) rejectStory(c *gin.Context) {
	story, err := h.moderation.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	moderationActionsTotal.WithLabelValues("reject").Inc()
	h.refreshOverlay()
	c.JSON(http.StatusOK, models.StoryActionResponse{Success: true, Story: story})
}

func (h *StoryHandler) deleteStory(c *gin.Context) {
	if err := h.moderation.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}
	moderationActionsTotal.WithLabelValues("delete").Inc()
	h.refreshOverlay()
	c.JSON(http.StatusOK, deleteResponse{Success: true})
}

func (h *StoryHandler) banUser(c *gin.Context) {
	username := c.Param("username")
	result, err := h.moderation.BanUser(c.Request.Context(), username)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	moderationActionsTotal.WithLabelValues("ban").Inc()
	if result.RejectedStories > 0 {
		h.refreshOverlay()
	}
	c.JSON(http.StatusOK, models.BanResponse{Success: true, BannedUser: username})
}

func (h *StoryHandler) listBannedUsers(c *gin.Context) {
	users, err := h.moderation.ListBannedUsers(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if users == nil {
		users = []string{}
	}
	c.JSON(http.StatusOK, users)
}

func (h *StoryHandler) getLeaderboard(c *gin.Context) {
	limit := defaultLeaderboardLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	board, err := h.ledger.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if board.Users == nil {
		board.Users = []models.LeaderboardEntry{}
	}
	c.JSON(http.StatusOK, board)
}

// refreshOverlay asks the rotation to pick up moderation changes without
// waiting for the periodic refresh. It does not block the request.
func (h *StoryHandler) refreshOverlay() {
	if h.overlay == nil {
		return
	}
	h.overlay.TriggerRefresh()
}

func submissionResult(err error) string {
	switch {
	case errors.Is(err, models.ErrValidation):
		return "invalid"
	case errors.Is(err, models.ErrUserBanned):
		return "banned"
	default:
		return "error"
	}
}
