package service

import (
	"time"

	"million-words-server/internal/models"
)

// MaxAge returns how long an approved story stays eligible for display.
// The window shrinks as the approved population grows.
func MaxAge(approvedCount int) time.Duration {
	switch {
	case approvedCount < 10:
		return 48 * time.Hour
	case approvedCount < 50:
		return 24 * time.Hour
	case approvedCount < 100:
		return 12 * time.Hour
	default:
		return 6 * time.Hour
	}
}

// EligibleStories filters stories down to the approved, unexpired ones, keeping
// their order. The cutoff is computed from the number of approved stories in
// the input, so callers must pass the whole current approved population.
func EligibleStories(stories []*models.Story, now time.Time) []*models.Story {
	approved := 0
	for _, s := range stories {
		if s.Status == models.StatusApproved {
			approved++
		}
	}
	maxAge := MaxAge(approved)

	eligible := make([]*models.Story, 0, approved)
	for _, s := range stories {
		if s.Status != models.StatusApproved || s.ApprovedAt == nil {
			continue
		}
		if now.Sub(*s.ApprovedAt) <= maxAge {
			eligible = append(eligible, s)
		}
	}
	return eligible
}
