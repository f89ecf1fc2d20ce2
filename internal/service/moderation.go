package service

import (
	"context"
	"errors"
	"time"

	"million-words-server/internal/messaging"
	"million-words-server/internal/models"
	"million-words-server/internal/repository"

	"go.uber.org/zap"
)

// BanResult describes a completed ban.
type BanResult struct {
	Username        string // lower-cased key stored in the ban list
	NewlyBanned     bool
	RejectedStories int
}

// ModerationService is the admin side: listing, approving, rejecting,
// deleting stories and banning authors.
type ModerationService interface {
	ListStories(ctx context.Context) ([]*models.Story, error)
	EligibleStories(ctx context.Context) ([]*models.Story, error)
	Approve(ctx context.Context, id string) (*models.Story, error)
	Reject(ctx context.Context, id string) (*models.Story, error)
	Delete(ctx context.Context, id string) error
	BanUser(ctx context.Context, username string) (*BanResult, error)
	ListBannedUsers(ctx context.Context) ([]string, error)
}

type moderationService struct {
	stories   repository.StoryRepository
	banned    repository.BannedUserRepository
	publisher messaging.StoryEventPublisher
	now       func() time.Time
	logger    *zap.Logger
}

func NewModerationService(
	stories repository.StoryRepository,
	banned repository.BannedUserRepository,
	publisher messaging.StoryEventPublisher,
	logger *zap.Logger,
) ModerationService {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &moderationService{
		stories:   stories,
		banned:    banned,
		publisher: publisher,
		now:       time.Now,
		logger:    logger.Named("ModerationService"),
	}
}

func (s *moderationService) ListStories(ctx context.Context) ([]*models.Story, error) {
	return s.stories.GetAll(ctx)
}

// EligibleStories returns the approved stories still inside the expiration window.
func (s *moderationService) EligibleStories(ctx context.Context) ([]*models.Story, error) {
	approved, err := s.stories.GetByStatus(ctx, models.StatusApproved)
	if err != nil {
		return nil, err
	}
	return EligibleStories(approved, s.now()), nil
}

// Approve sets approvedAt only on the transition into approved; the store
// keeps the original timestamp when the story is already approved.
func (s *moderationService) Approve(ctx context.Context, id string) (*models.Story, error) {
	status := models.StatusApproved
	now := s.now().UTC()
	story, err := s.stories.Update(ctx, id, models.StoryUpdate{Status: &status, ApprovedAt: &now})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Story approved", zap.String("storyID", id), zap.String("title", story.Title), zap.String("username", story.Username))
	publish(ctx, s.publisher, s.logger, models.StoryEvent{
		Type:     models.StoryEventApproved,
		StoryID:  id,
		Username: story.Username,
		Status:   story.Status,
		At:       s.now().UTC(),
	})
	return story, nil
}

// Reject never clears approvedAt.
func (s *moderationService) Reject(ctx context.Context, id string) (*models.Story, error) {
	status := models.StatusRejected
	story, err := s.stories.Update(ctx, id, models.StoryUpdate{Status: &status})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Story rejected", zap.String("storyID", id), zap.String("title", story.Title), zap.String("username", story.Username))
	publish(ctx, s.publisher, s.logger, models.StoryEvent{
		Type:     models.StoryEventRejected,
		StoryID:  id,
		Username: story.Username,
		Status:   story.Status,
		At:       s.now().UTC(),
	})
	return story, nil
}

func (s *moderationService) Delete(ctx context.Context, id string) error {
	removed, err := s.stories.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return models.ErrNotFound
	}
	s.logger.Info("Story deleted", zap.String("storyID", id))
	publish(ctx, s.publisher, s.logger, models.StoryEvent{
		Type:    models.StoryEventDeleted,
		StoryID: id,
		At:      s.now().UTC(),
	})
	return nil
}

// BanUser adds the user to the ban list and rejects every story they wrote,
// whatever its current status. Banning twice is harmless.
func (s *moderationService) BanUser(ctx context.Context, username string) (*BanResult, error) {
	key := models.NormalizeUsername(username)
	if key == "" {
		return nil, models.NewValidationError("", "Username is required")
	}
	log := s.logger.With(zap.String("username", key))

	added, err := s.banned.Add(ctx, key)
	if err != nil {
		log.Error("Failed to add user to ban list", zap.Error(err))
		return nil, err
	}

	all, err := s.stories.GetAll(ctx)
	if err != nil {
		log.Error("Failed to load stories for ban sweep", zap.Error(err))
		return nil, err
	}

	rejected := models.StatusRejected
	result := &BanResult{Username: key, NewlyBanned: added}
	for _, st := range all {
		if !st.IsBy(key) || st.Status == models.StatusRejected {
			continue
		}
		if _, err := s.stories.Update(ctx, st.ID, models.StoryUpdate{Status: &rejected}); err != nil {
			// Story deleted concurrently
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			log.Error("Failed to reject story during ban sweep", zap.String("storyID", st.ID), zap.Error(err))
			return nil, err
		}
		result.RejectedStories++
	}

	log.Info("User banned", zap.Bool("newlyBanned", added), zap.Int("rejectedStories", result.RejectedStories))
	publish(ctx, s.publisher, s.logger, models.StoryEvent{
		Type:     models.StoryEventUserBanned,
		Username: key,
		Status:   models.StatusRejected,
		At:       s.now().UTC(),
	})
	return result, nil
}

func (s *moderationService) ListBannedUsers(ctx context.Context) ([]string, error) {
	return s.banned.List(ctx)
}
