package handler

import (
	"context"
	"time"

	"million-words-server/internal/auth"
	"million-words-server/internal/ledger"
	"million-words-server/internal/models"
	"million-words-server/internal/scheduler"
	"million-words-server/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OverlayController is the manual control surface of the display scheduler.
type OverlayController interface {
	Next() (*models.Story, bool)
	Previous() (*models.Story, bool)
	Pause()
	Resume()
	Refresh(ctx context.Context) error
	TriggerRefresh()
	Status() scheduler.Status
}

// AdminAuthenticator issues and checks admin tokens.
type AdminAuthenticator interface {
	Enabled() bool
	Login(password string) (string, time.Time, error)
	Verify(token string) (*auth.AdminClaims, error)
}

// OverlaySocket upgrades overlay browser sources to WebSocket.
type OverlaySocket interface {
	ServeWS(c *gin.Context)
}

// StoryHandler serves the public and admin HTTP API.
type StoryHandler struct {
	submissions service.SubmissionService
	moderation  service.ModerationService
	ledger      ledger.Ledger
	overlay     OverlayController
	socket      OverlaySocket
	adminAuth   AdminAuthenticator
	logger      *zap.Logger
}

func NewStoryHandler(
	submissions service.SubmissionService,
	moderation service.ModerationService,
	ledger ledger.Ledger,
	overlay OverlayController,
	socket OverlaySocket,
	adminAuth AdminAuthenticator,
	logger *zap.Logger,
) *StoryHandler {
	return &StoryHandler{
		submissions: submissions,
		moderation:  moderation,
		ledger:      ledger,
		overlay:     overlay,
		socket:      socket,
		adminAuth:   adminAuth,
		logger:      logger.Named("StoryHandler"),
	}
}

// RegisterRoutes mounts every route. submitLimiter guards the public submit
// endpoint and may be nil.
func (h *StoryHandler) RegisterRoutes(router *gin.Engine, submitLimiter gin.HandlerFunc) {
	api := router.Group("/api")
	{
		api.GET("/health", h.health)
		api.GET("/stories/approved", h.listApprovedStories)
		api.GET("/leaderboard", h.getLeaderboard)
		api.POST("/admin/login", h.adminLogin)

		if submitLimiter != nil {
			api.POST("/submit-story", submitLimiter, h.submitStory)
		} else {
			api.POST("/submit-story", h.submitStory)
		}
	}

	admin := router.Group("/api")
	admin.Use(h.AdminAuthMiddleware())
	{
		admin.GET("/stories", h.listStories)
		admin.POST("/stories/:id/approve", h.approveStory)
		admin.POST("/stories/:id/reject", h.rejectStory)
		admin.DELETE("/stories/:id", h.deleteStory)
		admin.POST("/users/:username/ban", h.banUser)
		admin.GET("/users/banned", h.listBannedUsers)

		admin.GET("/overlay/status", h.overlayStatus)
		admin.POST("/overlay/next", h.overlayNext)
		admin.POST("/overlay/previous", h.overlayPrevious)
		admin.POST("/overlay/pause", h.overlayPause)
		admin.POST("/overlay/resume", h.overlayResume)
		admin.POST("/overlay/refresh", h.overlayRefresh)
	}

	if h.socket != nil {
		router.GET("/ws/overlay", h.socket.ServeWS)
	}
}
