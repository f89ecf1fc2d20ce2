// Package repository persists stories and banned users.
//
// Three drivers are provided: a JSON flat-file store (the default), PostgreSQL
// and Firestore. All of them are last-writer-wins; admin actions are rare and
// come from a single operator.
package repository

import (
	"context"

	"million-words-server/internal/models"
)

// StoryRepository is the document interface the core works against.
type StoryRepository interface {
	// Append stores a new story and returns its id.
	Append(ctx context.Context, story *models.Story) (string, error)
	// GetAll returns every story ordered by submission time.
	GetAll(ctx context.Context) ([]*models.Story, error)
	// GetByStatus returns the stories in the given status ordered by submission time.
	GetByStatus(ctx context.Context, status models.StoryStatus) ([]*models.Story, error)
	// Update applies upd to the story and returns the result, or models.ErrNotFound.
	Update(ctx context.Context, id string, upd models.StoryUpdate) (*models.Story, error)
	// Delete removes the story. It reports false when no such story existed.
	Delete(ctx context.Context, id string) (bool, error)
}

// BannedUserRepository holds lower-cased usernames that may no longer submit.
type BannedUserRepository interface {
	// Add bans username. It reports false when the user was already banned.
	Add(ctx context.Context, username string) (bool, error)
	IsBanned(ctx context.Context, username string) (bool, error)
	List(ctx context.Context) ([]string, error)
}

// Subscriber is implemented by stores that can push change notifications.
// onChange is called from a background goroutine whenever the approved
// stories change; the returned function cancels the subscription.
type Subscriber interface {
	Subscribe(ctx context.Context, onChange func()) (cancel func(), err error)
}
