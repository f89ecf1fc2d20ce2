package mocks

import (
	"context"

	"million-words-server/internal/models"

	"github.com/stretchr/testify/mock"
)

// Mock StoryEventPublisher
type StoryEventPublisher struct {
	mock.Mock
}

func (m *StoryEventPublisher) PublishStoryEvent(ctx context.Context, event models.StoryEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
