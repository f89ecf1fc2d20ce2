package models

import (
	"strings"
	"time"
)

// StoryStatus is the moderation state of a submitted story.
type StoryStatus string

const (
	StatusPending  StoryStatus = "pending"  // Submitted, waiting for an admin decision
	StatusApproved StoryStatus = "approved" // Eligible for the overlay rotation until it expires
	StatusRejected StoryStatus = "rejected" // Rejected by an admin or by a user ban
)

// Valid reports whether s is one of the known statuses.
func (s StoryStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Story is a viewer submission. Field names on the wire follow the overlay
// and admin pages: the body is "story" and the submission time is "timestamp".
type Story struct {
	ID          string      `json:"id" db:"id" firestore:"-"`
	Username    string      `json:"username" db:"username" firestore:"username"`
	Title       string      `json:"title" db:"title" firestore:"title"`
	Genre       string      `json:"genre" db:"genre" firestore:"genre"`
	Body        string      `json:"story" db:"body" firestore:"story"`
	WordCount   int         `json:"wordCount" db:"word_count" firestore:"wordCount"`
	Status      StoryStatus `json:"status" db:"status" firestore:"status"`
	SubmittedAt time.Time   `json:"timestamp" db:"submitted_at" firestore:"timestamp"`
	ApprovedAt  *time.Time  `json:"approvedAt" db:"approved_at" firestore:"approvedAt"`
}

// NormalizeUsername returns the key used for ban and ledger lookups.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// IsBy reports whether the story was written by username, ignoring case.
func (s *Story) IsBy(username string) bool {
	return NormalizeUsername(s.Username) == NormalizeUsername(username)
}

// StoryUpdate carries the fields an admin action may change. Nil fields are left as is.
// ApprovedAt is written only when the story is not already approved with a
// timestamp, so repeated approvals keep the first one.
type StoryUpdate struct {
	Status     *StoryStatus
	ApprovedAt *time.Time
}

// KeepsApprovedAt reports whether ApprovedAt must be left as is on s.
func KeepsApprovedAt(s *Story) bool {
	return s.Status == StatusApproved && s.ApprovedAt != nil
}

// Apply copies the non-nil fields of u onto s.
func (u StoryUpdate) Apply(s *Story) {
	if u.ApprovedAt != nil && !KeepsApprovedAt(s) {
		t := *u.ApprovedAt
		s.ApprovedAt = &t
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
}
