package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"million-words-server/internal/messaging"
	"million-words-server/internal/models"
	"million-words-server/internal/moderation"
	"million-words-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Submission error messages shown to viewers.
const (
	msgMissingFields = "Missing required fields"
	msgTooShortFmt   = "Story must be at least %d words"
	msgTooLongFmt    = "Story must be at most %d words"
)

// Word count bounds used when the caller passes zero.
const (
	DefaultMinWordCount = 50
	DefaultMaxWordCount = 100000
)

// SubmitStoryInput is a viewer submission as received over HTTP.
type SubmitStoryInput struct {
	Username  string
	Title     string
	Genre     string
	Body      string
	WordCount int
}

// SubmissionService validates viewer stories and stores them as pending.
type SubmissionService interface {
	Submit(ctx context.Context, in SubmitStoryInput) (string, error)
}

type submissionService struct {
	stories      repository.StoryRepository
	banned       repository.BannedUserRepository
	publisher    messaging.StoryEventPublisher
	minWordCount int
	maxWordCount int
	now          func() time.Time
	logger       *zap.Logger
}

// NewSubmissionService creates the submission pipeline. Non-positive bounds
// fall back to DefaultMinWordCount and DefaultMaxWordCount.
func NewSubmissionService(
	stories repository.StoryRepository,
	banned repository.BannedUserRepository,
	publisher messaging.StoryEventPublisher,
	minWordCount, maxWordCount int,
	logger *zap.Logger,
) SubmissionService {
	if minWordCount <= 0 {
		minWordCount = DefaultMinWordCount
	}
	if maxWordCount <= 0 {
		maxWordCount = DefaultMaxWordCount
	}
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &submissionService{
		stories:      stories,
		banned:       banned,
		publisher:    publisher,
		minWordCount: minWordCount,
		maxWordCount: maxWordCount,
		now:          time.Now,
		logger:       logger.Named("SubmissionService"),
	}
}

// Submit runs the gates in order and stops at the first failure; nothing is
// written unless every gate passes.
func (s *submissionService) Submit(ctx context.Context, in SubmitStoryInput) (string, error) {
	username := strings.TrimSpace(in.Username)
	title := strings.TrimSpace(in.Title)
	body := strings.TrimSpace(in.Body)
	log := s.logger.With(zap.String("username", username))

	if username == "" || title == "" || body == "" {
		return "", models.NewValidationError("", msgMissingFields)
	}
	if in.WordCount < s.minWordCount {
		log.Info("Story rejected: too short", zap.Int("wordCount", in.WordCount))
		return "", models.NewValidationError("", fmt.Sprintf(msgTooShortFmt, s.minWordCount))
	}
	// wordCount is credited to the ledger as is, so it must stay bounded.
	if in.WordCount > s.maxWordCount {
		log.Info("Story rejected: too long", zap.Int("wordCount", in.WordCount))
		return "", models.NewValidationError("", fmt.Sprintf(msgTooLongFmt, s.maxWordCount))
	}

	banned, err := s.banned.IsBanned(ctx, username)
	if err != nil {
		log.Error("Failed to check ban list", zap.Error(err))
		return "", err
	}
	if banned {
		log.Warn("Submission from banned user refused")
		return "", models.ErrUserBanned
	}

	if v := moderation.Evaluate(title); !v.Passed {
		log.Info("Story rejected by moderation", zap.String("field", "title"), zap.String("reason", v.Reason))
		return "", models.NewValidationError("title", v.Reason)
	}
	if v := moderation.Evaluate(body); !v.Passed {
		log.Info("Story rejected by moderation", zap.String("field", "story"), zap.String("reason", v.Reason))
		return "", models.NewValidationError("story", v.Reason)
	}

	// Клиентский wordCount остается авторитетным, расхождение только логируем
	if counted := moderation.CountWords(body); counted != in.WordCount {
		log.Debug("Client word count differs from server count",
			zap.Int("clientCount", in.WordCount),
			zap.Int("serverCount", counted),
		)
	}

	story := &models.Story{
		ID:          uuid.NewString(),
		Username:    username,
		Title:       title,
		Genre:       strings.TrimSpace(in.Genre),
		Body:        body,
		WordCount:   in.WordCount,
		Status:      models.StatusPending,
		SubmittedAt: s.now().UTC(),
	}

	id, err := s.stories.Append(ctx, story)
	if err != nil {
		log.Error("Failed to store story", zap.Error(err))
		if !errors.Is(err, models.ErrStorage) {
			err = models.StorageError("append story", err)
		}
		return "", err
	}

	log.Info("Story submitted", zap.String("storyID", id), zap.String("title", title), zap.Int("wordCount", in.WordCount))
	publish(ctx, s.publisher, s.logger, models.StoryEvent{
		Type:     models.StoryEventSubmitted,
		StoryID:  id,
		Username: username,
		Status:   models.StatusPending,
		At:       story.SubmittedAt,
	})
	return id, nil
}

// publish sends a story event. Failures are logged and never fail the caller.
func publish(ctx context.Context, p messaging.StoryEventPublisher, logger *zap.Logger, event models.StoryEvent) {
	if err := p.PublishStoryEvent(ctx, event); err != nil {
		logger.Warn("Failed to publish story event",
			zap.String("type", string(event.Type)),
			zap.String("storyID", event.StoryID),
			zap.Error(err),
		)
	}
}
