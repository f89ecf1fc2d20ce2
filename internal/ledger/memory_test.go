package ledger

import (
	"context"
	"math"
	"testing"

	"million-words-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func story(id, username string, words int) *models.Story {
	return &models.Story{ID: id, Username: username, WordCount: words, Status: models.StatusApproved}
}

func TestMemoryLedger_CreditIsIdempotent(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	changed, err := l.Credit(ctx, story("s1", "Alice", 120))
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = l.Credit(ctx, story("s1", "Alice", 120))
	require.NoError(t, err)
	assert.False(t, changed)

	board, err := l.Leaderboard(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(120), board.TotalWords)
	assert.Equal(t, []models.LeaderboardEntry{{Username: "alice", Words: 120}}, board.Users)
}

func TestMemoryLedger_FoldsUsernamesCaseInsensitively(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	for _, s := range []*models.Story{
		story("s1", "Alice", 100),
		story("s2", "ALICE", 50),
		story("s3", "bob", 200),
		story("s4", "carol", 150),
		story("s5", "dave", 150),
	} {
		_, err := l.Credit(ctx, s)
		require.NoError(t, err)
	}

	board, err := l.Leaderboard(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(650), board.TotalWords)
	assert.Equal(t, []models.LeaderboardEntry{
		{Username: "bob", Words: 200},
		{Username: "alice", Words: 150},
		{Username: "carol", Words: 150},
		{Username: "dave", Words: 150},
	}, board.Users)

	top, err := l.Leaderboard(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, top.Users, 2)
	assert.Equal(t, int64(650), top.TotalWords)
}

func TestMemoryLedger_EmptyLeaderboard(t *testing.T) {
	board, err := NewMemoryLedger().Leaderboard(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, board.TotalWords)
	assert.Empty(t, board.Users)
}

func TestMemoryLedger_RejectsOverflowingWordCount(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	_, err := l.Credit(ctx, story("s1", "alice", 120))
	require.NoError(t, err)

	changed, err := l.Credit(ctx, story("s2", "mallory", math.MaxInt64))
	require.ErrorIs(t, err, ErrWordCountOutOfRange)
	assert.False(t, changed)

	changed, err = l.Credit(ctx, story("s3", "mallory", -10))
	require.ErrorIs(t, err, ErrWordCountOutOfRange)
	assert.False(t, changed)

	board, err := l.Leaderboard(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(120), board.TotalWords)
	assert.Equal(t, []models.LeaderboardEntry{{Username: "alice", Words: 120}}, board.Users)

	// The refused story was not marked counted.
	_, err = l.Credit(ctx, story("s2", "mallory", math.MaxInt64))
	assert.ErrorIs(t, err, ErrWordCountOutOfRange)
}
