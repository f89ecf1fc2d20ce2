package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"million-words-server/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ Ledger = (*RedisLedger)(nil)

const defaultKeyPrefix = "ledger:"

// creditScript bumps both totals and records the story id in one step.
// INCRBY on the grand total runs first: an overflow aborts the script before
// anything is written. User totals never exceed the grand total.
// KEYS: counted set, per-user hash, grand total. ARGV: story id, username, words.
var creditScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 1 then
  return 0
end
redis.call('INCRBY', KEYS[3], ARGV[3])
redis.call('HINCRBY', KEYS[2], ARGV[2], ARGV[3])
redis.call('SADD', KEYS[1], ARGV[1])
return 1
`)

// RedisLedger persists the counted-id set and totals in Redis, so credits
// survive restarts and are shared between instances.
type RedisLedger struct {
	client     redis.UniversalClient
	logger     *zap.Logger
	countedKey string
	wordsKey   string
	totalKey   string
}

// NewRedisLedger creates a ledger under keyPrefix (default "ledger:").
func NewRedisLedger(client redis.UniversalClient, keyPrefix string, logger *zap.Logger) *RedisLedger {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisLedger{
		client:     client,
		logger:     logger.Named("RedisLedger"),
		countedKey: keyPrefix + "counted",
		wordsKey:   keyPrefix + "words",
		totalKey:   keyPrefix + "total",
	}
}

func (l *RedisLedger) Credit(ctx context.Context, story *models.Story) (bool, error) {
	if story.WordCount < 0 {
		return false, fmt.Errorf("story %s: %w", story.ID, ErrWordCountOutOfRange)
	}
	username := models.NormalizeUsername(story.Username)
	res, err := creditScript.Run(ctx, l.client,
		[]string{l.countedKey, l.wordsKey, l.totalKey},
		story.ID, username, story.WordCount,
	).Int()
	if err != nil {
		if strings.Contains(err.Error(), "overflow") {
			l.logger.Warn("Story word count would overflow the ledger", zap.String("storyID", story.ID), zap.Int("words", story.WordCount))
			return false, fmt.Errorf("story %s: %w", story.ID, ErrWordCountOutOfRange)
		}
		l.logger.Error("Failed to credit story", zap.String("storyID", story.ID), zap.Error(err))
		return false, fmt.Errorf("failed to credit story %s: %w", story.ID, err)
	}
	if res == 1 {
		l.logger.Debug("Story credited",
			zap.String("storyID", story.ID),
			zap.String("username", username),
			zap.Int("words", story.WordCount),
		)
		if story.WordCount > 0 {
			creditedWordsTotal.Add(float64(story.WordCount))
		}
	}
	return res == 1, nil
}

func (l *RedisLedger) Leaderboard(ctx context.Context, limit int) (*models.Leaderboard, error) {
	pipe := l.client.Pipeline()
	wordsCmd := pipe.HGetAll(ctx, l.wordsKey)
	totalCmd := pipe.Get(ctx, l.totalKey)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		l.logger.Error("Failed to read leaderboard", zap.Error(err))
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	var total int64
	if v, err := totalCmd.Int64(); err == nil {
		total = v
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to parse total words: %w", err)
	}

	totals := make(map[string]int64, len(wordsCmd.Val()))
	for name, raw := range wordsCmd.Val() {
		words, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			l.logger.Warn("Skipping malformed ledger entry", zap.String("username", name), zap.String("value", raw))
			continue
		}
		totals[name] = words
	}

	return &models.Leaderboard{
		TotalWords: total,
		Users:      rank(totals, limit),
	}, nil
}
