package handler

import (
	"time"

	"million-words-server/internal/models"
	"million-words-server/internal/scheduler"
)

type submitStoryRequest struct {
	Username  string `json:"username"`
	Title     string `json:"title"`
	Genre     string `json:"genre"`
	Story     string `json:"story"`
	WordCount int    `json:"wordCount"`
}

type adminLoginRequest struct {
	Password string `json:"password" binding:"required"`
}

type adminLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type deleteResponse struct {
	Success bool `json:"success"`
}

// overlayStatusResponse reports the rotation; interval is in milliseconds.
type overlayStatusResponse struct {
	State    scheduler.State `json:"state"`
	Count    int             `json:"count"`
	Index    int             `json:"index"`
	Interval int64           `json:"interval"`
	StoryID  string          `json:"storyId,omitempty"`
}

type overlayStepResponse struct {
	Success bool          `json:"success"`
	Story   *models.Story `json:"story"`
}

func toOverlayStatus(s scheduler.Status) overlayStatusResponse {
	return overlayStatusResponse{
		State:    s.State,
		Count:    s.Count,
		Index:    s.Index,
		Interval: s.Interval.Milliseconds(),
		StoryID:  s.StoryID,
	}
}
