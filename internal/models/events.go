package models

import "time"

// StoryEventType names the admin action that changed the story collection.
type StoryEventType string

const (
	StoryEventSubmitted  StoryEventType = "submitted"
	StoryEventApproved   StoryEventType = "approved"
	StoryEventRejected   StoryEventType = "rejected"
	StoryEventDeleted    StoryEventType = "deleted"
	StoryEventUserBanned StoryEventType = "user_banned"
)

// StoryEvent is broadcast to every server instance when the story collection changes.
// Consumers only use it as a hint to refresh the overlay rotation.
type StoryEvent struct {
	Type     StoryEventType `json:"type"`
	StoryID  string         `json:"storyId,omitempty"`
	Username string         `json:"username,omitempty"`
	Status   StoryStatus    `json:"status,omitempty"`
	At       time.Time      `json:"at"`
}

// LeaderboardEntry is one author's cumulative word count.
type LeaderboardEntry struct {
	Username string `json:"username"`
	Words    int64  `json:"words"`
}

// Leaderboard is the public view of the word-count ledger.
type Leaderboard struct {
	TotalWords int64              `json:"totalWords"`
	Users      []LeaderboardEntry `json:"users"`
}
