package ledger

import (
	"context"
	"fmt"
	"sync"

	"million-words-server/internal/models"
)

var _ Ledger = (*MemoryLedger)(nil)

// MemoryLedger is a process-local Ledger. Totals are lost on restart.
type MemoryLedger struct {
	mu      sync.Mutex
	counted map[string]struct{}
	totals  map[string]int64
	total   int64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		counted: make(map[string]struct{}),
		totals:  make(map[string]int64),
	}
}

func (l *MemoryLedger) Credit(_ context.Context, story *models.Story) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.counted[story.ID]; ok {
		return false, nil
	}
	words := int64(story.WordCount)
	// User totals never exceed the grand total, so checking it covers both.
	if !fits(l.total, words) {
		return false, fmt.Errorf("story %s: %w", story.ID, ErrWordCountOutOfRange)
	}
	l.counted[story.ID] = struct{}{}
	l.totals[models.NormalizeUsername(story.Username)] += words
	l.total += words
	if words > 0 {
		creditedWordsTotal.Add(float64(words))
	}
	return true, nil
}

func (l *MemoryLedger) Leaderboard(_ context.Context, limit int) (*models.Leaderboard, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return &models.Leaderboard{
		TotalWords: l.total,
		Users:      rank(l.totals, limit),
	}, nil
}
