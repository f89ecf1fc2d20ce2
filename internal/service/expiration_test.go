package service

import (
	"fmt"
	"testing"
	"time"

	"million-words-server/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestMaxAge_Steps(t *testing.T) {
	tests := []struct {
		count int
		want  time.Duration
	}{
		{0, 48 * time.Hour},
		{9, 48 * time.Hour},
		{10, 24 * time.Hour},
		{49, 24 * time.Hour},
		{50, 12 * time.Hour},
		{99, 12 * time.Hour},
		{100, 6 * time.Hour},
		{5000, 6 * time.Hour},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaxAge(tt.count), "count=%d", tt.count)
	}
}

func TestMaxAge_NonIncreasing(t *testing.T) {
	prev := MaxAge(0)
	for n := 1; n <= 500; n++ {
		cur := MaxAge(n)
		assert.LessOrEqual(t, cur, prev, "count=%d", n)
		prev = cur
	}
}

func approvedAgo(id string, now time.Time, age time.Duration) *models.Story {
	at := now.Add(-age)
	return &models.Story{ID: id, Status: models.StatusApproved, ApprovedAt: &at}
}

func TestEligibleStories_FiltersAndKeepsOrder(t *testing.T) {
	now := time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)
	rejectedAt := now.Add(-time.Hour)
	stories := []*models.Story{
		approvedAgo("fresh", now, time.Hour),
		{ID: "pending", Status: models.StatusPending},
		approvedAgo("stale", now, 49*time.Hour),
		{ID: "no-timestamp", Status: models.StatusApproved},
		{ID: "rejected", Status: models.StatusRejected, ApprovedAt: &rejectedAt},
		approvedAgo("edge", now, 48*time.Hour),
	}

	got := EligibleStories(stories, now)

	ids := make([]string, 0, len(got))
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"fresh", "edge"}, ids)
}

func TestEligibleStories_CutoffTightensWithPopulation(t *testing.T) {
	now := time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)
	stories := make([]*models.Story, 0, 150)
	for i := 0; i < 149; i++ {
		stories = append(stories, approvedAgo(fmt.Sprintf("s%d", i), now, time.Hour))
	}
	stories = append(stories, approvedAgo("seven-hours", now, 7*time.Hour))

	got := EligibleStories(stories, now)

	assert.Equal(t, 6*time.Hour, MaxAge(150))
	assert.Len(t, got, 149)
	for _, s := range got {
		assert.NotEqual(t, "seven-hours", s.ID)
	}

	// With a small population the same story is still eligible.
	small := EligibleStories(stories[len(stories)-3:], now)
	assert.Len(t, small, 3)
}

func TestEligibleStories_Empty(t *testing.T) {
	assert.Empty(t, EligibleStories(nil, time.Now()))
}
