package mocks

import (
	"context"

	"million-words-server/internal/models"

	"github.com/stretchr/testify/mock"
)

// Mock StoryRepository
type StoryRepository struct {
	mock.Mock
}

func (m *StoryRepository) Append(ctx context.Context, story *models.Story) (string, error) {
	args := m.Called(ctx, story)
	return args.String(0), args.Error(1)
}
func (m *StoryRepository) GetAll(ctx context.Context) ([]*models.Story, error) {
	args := m.Called(ctx)
	stories, _ := args.Get(0).([]*models.Story)
	return stories, args.Error(1)
}
func (m *StoryRepository) GetByStatus(ctx context.Context, status models.StoryStatus) ([]*models.Story, error) {
	args := m.Called(ctx, status)
	stories, _ := args.Get(0).([]*models.Story)
	return stories, args.Error(1)
}
func (m *StoryRepository) Update(ctx context.Context, id string, upd models.StoryUpdate) (*models.Story, error) {
	args := m.Called(ctx, id, upd)
	story, _ := args.Get(0).(*models.Story)
	return story, args.Error(1)
}
func (m *StoryRepository) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// Mock BannedUserRepository
type BannedUserRepository struct {
	mock.Mock
}

func (m *BannedUserRepository) Add(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}
func (m *BannedUserRepository) IsBanned(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}
func (m *BannedUserRepository) List(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]string)
	return users, args.Error(1)
}
