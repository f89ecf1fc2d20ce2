package ledger

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"million-words-server/internal/models"

	"github.com/docker/docker/client"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

type RedisLedgerSuite struct {
	suite.Suite
	ctx         context.Context
	rdContainer *tcredis.RedisContainer
	client      *redis.Client
}

func (s *RedisLedgerSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error

	s.rdContainer, err = tcredis.Run(s.ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("* Ready to accept connections").
				WithOccurrence(1).
				WithStartupTimeout(1*time.Minute),
		),
	)
	s.Require().NoError(err, "Failed to start redis container")

	host, err := s.rdContainer.Host(s.ctx)
	s.Require().NoError(err)
	port, err := s.rdContainer.MappedPort(s.ctx, "6379/tcp")
	s.Require().NoError(err)

	s.client = redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	s.Require().NoError(s.client.Ping(s.ctx).Err())
}

func (s *RedisLedgerSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Close()
	}
	if s.rdContainer != nil {
		s.NoError(s.rdContainer.Terminate(s.ctx))
	}
}

func (s *RedisLedgerSuite) SetupTest() {
	s.Require().NoError(s.client.FlushDB(s.ctx).Err())
}

func TestRedisLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		t.Skipf("Docker client init error: %v", err)
	}
	if _, err := cli.Ping(context.Background()); err != nil {
		cli.Close()
		t.Skipf("Docker daemon is not accessible: %v", err)
	}
	cli.Close()

	suite.Run(t, new(RedisLedgerSuite))
}

func (s *RedisLedgerSuite) TestCreditIsIdempotent() {
	l := NewRedisLedger(s.client, "", zap.NewNop())

	changed, err := l.Credit(s.ctx, story("s1", "Alice", 80))
	s.Require().NoError(err)
	s.True(changed)
	changed, err = l.Credit(s.ctx, story("s1", "Alice", 80))
	s.Require().NoError(err)
	s.False(changed)

	_, err = l.Credit(s.ctx, story("s2", "bob", 100))
	s.Require().NoError(err)

	board, err := l.Leaderboard(s.ctx, 0)
	s.Require().NoError(err)
	s.Equal(int64(180), board.TotalWords)
	s.Equal([]models.LeaderboardEntry{
		{Username: "bob", Words: 100},
		{Username: "alice", Words: 80},
	}, board.Users)
}

func (s *RedisLedgerSuite) TestConcurrentCreditsCountOnce() {
	l := NewRedisLedger(s.client, "test:", zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Credit(s.ctx, story("same", "carol", 60))
		}()
	}
	wg.Wait()

	board, err := l.Leaderboard(s.ctx, 0)
	s.Require().NoError(err)
	s.Equal(int64(60), board.TotalWords)
}

func (s *RedisLedgerSuite) TestEmptyLeaderboard() {
	board, err := NewRedisLedger(s.client, "", zap.NewNop()).Leaderboard(s.ctx, 5)
	s.Require().NoError(err)
	s.Zero(board.TotalWords)
	s.Empty(board.Users)
}

func (s *RedisLedgerSuite) TestOverflowLeavesStoryUncounted() {
	l := NewRedisLedger(s.client, "", zap.NewNop())

	_, err := l.Credit(s.ctx, story("s1", "alice", 120))
	s.Require().NoError(err)

	changed, err := l.Credit(s.ctx, story("s2", "mallory", math.MaxInt64))
	s.Require().ErrorIs(err, ErrWordCountOutOfRange)
	s.False(changed)

	counted, err := s.client.SIsMember(s.ctx, "ledger:counted", "s2").Result()
	s.Require().NoError(err)
	s.False(counted)

	board, err := l.Leaderboard(s.ctx, 0)
	s.Require().NoError(err)
	s.Equal(int64(120), board.TotalWords)
	s.Equal([]models.LeaderboardEntry{{Username: "alice", Words: 120}}, board.Users)
}
