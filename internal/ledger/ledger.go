// Package ledger keeps the per-user word totals shown on the leaderboard.
//
// Crediting is idempotent per story id: the ledger remembers which stories it
// has already counted, so repeated refreshes of the same approved set never
// inflate the totals.
package ledger

import (
	"context"
	"errors"
	"math"
	"sort"

	"million-words-server/internal/models"
)

// Ledger folds approved stories into per-user word totals.
type Ledger interface {
	// Credit adds the story's word count to its author's total unless the
	// story id was counted before. It reports whether the totals changed.
	Credit(ctx context.Context, story *models.Story) (bool, error)
	// Leaderboard returns the grand total and the top users. limit <= 0 means all.
	Leaderboard(ctx context.Context, limit int) (*models.Leaderboard, error)
}

// ErrWordCountOutOfRange is returned by Credit when a story's word count is
// negative or would overflow the totals. The story stays uncounted.
var ErrWordCountOutOfRange = errors.New("word count out of range")

// fits reports whether words can be added to total without overflow.
func fits(total, words int64) bool {
	return words >= 0 && total <= math.MaxInt64-words
}

// rank orders entries by words descending, then username, and applies limit.
func rank(totals map[string]int64, limit int) []models.LeaderboardEntry {
	users := make([]models.LeaderboardEntry, 0, len(totals))
	for name, words := range totals {
		users = append(users, models.LeaderboardEntry{Username: name, Words: words})
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Words != users[j].Words {
			return users[i].Words > users[j].Words
		}
		return users[i].Username < users[j].Username
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users
}
