package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"million-words-server/internal/models"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	storiesCollection     = "stories"
	bannedUsersCollection = "bannedUsers"
)

// Compile-time checks
var (
	_ StoryRepository      = (*FirestoreStoryRepository)(nil)
	_ Subscriber           = (*FirestoreStoryRepository)(nil)
	_ BannedUserRepository = (*FirestoreBannedUserRepository)(nil)
)

// FirestoreStoryRepository stores each story as a document keyed by its id.
type FirestoreStoryRepository struct {
	client *firestore.Client
	logger *zap.Logger
}

func NewFirestoreStoryRepository(client *firestore.Client, logger *zap.Logger) *FirestoreStoryRepository {
	return &FirestoreStoryRepository{
		client: client,
		logger: logger.Named("FirestoreStoryRepo"),
	}
}

func (r *FirestoreStoryRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(storiesCollection)
}

func (r *FirestoreStoryRepository) Append(ctx context.Context, s *models.Story) (string, error) {
	if _, err := r.collection().Doc(s.ID).Create(ctx, s); err != nil {
		r.logger.Error("Error creating story document", zap.String("storyID", s.ID), zap.Error(err))
		return "", models.StorageError("create story document", err)
	}
	return s.ID, nil
}

func (r *FirestoreStoryRepository) GetAll(ctx context.Context) ([]*models.Story, error) {
	docs, err := r.collection().OrderBy("timestamp", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		r.logger.Error("Error listing story documents", zap.Error(err))
		return nil, models.StorageError("list story documents", err)
	}
	return r.decode(docs)
}

// GetByStatus filters on status only and sorts in memory, so no composite index is needed.
func (r *FirestoreStoryRepository) GetByStatus(ctx context.Context, st models.StoryStatus) ([]*models.Story, error) {
	docs, err := r.collection().Where("status", "==", string(st)).Documents(ctx).GetAll()
	if err != nil {
		r.logger.Error("Error querying story documents", zap.String("status", string(st)), zap.Error(err))
		return nil, models.StorageError("query story documents", err)
	}
	stories, err := r.decode(docs)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(stories, func(i, j int) bool {
		return stories[i].SubmittedAt.Before(stories[j].SubmittedAt)
	})
	return stories, nil
}

func (r *FirestoreStoryRepository) Update(ctx context.Context, id string, upd models.StoryUpdate) (*models.Story, error) {
	log := r.logger.With(zap.String("storyID", id))
	ref := r.collection().Doc(id)

	if upd.Status != nil || upd.ApprovedAt != nil {
		err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			snap, err := tx.Get(ref)
			if err != nil {
				return err
			}
			current, err := r.decodeOne(snap)
			if err != nil {
				return err
			}
			updates := make([]firestore.Update, 0, 2)
			if upd.Status != nil {
				updates = append(updates, firestore.Update{Path: "status", Value: string(*upd.Status)})
			}
			if upd.ApprovedAt != nil && !models.KeepsApprovedAt(current) {
				updates = append(updates, firestore.Update{Path: "approvedAt", Value: *upd.ApprovedAt})
			}
			return tx.Update(ref, updates)
		})
		if err != nil {
			if status.Code(err) == codes.NotFound {
				log.Warn("Story not found for update")
				return nil, models.ErrNotFound
			}
			if errors.Is(err, models.ErrStorage) {
				return nil, err
			}
			log.Error("Error updating story document", zap.Error(err))
			return nil, models.StorageError("update story document", err)
		}
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, models.ErrNotFound
		}
		log.Error("Error reading updated story document", zap.Error(err))
		return nil, models.StorageError("get story document", err)
	}
	return r.decodeOne(snap)
}

func (r *FirestoreStoryRepository) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := r.collection().Doc(id).Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		r.logger.Error("Error deleting story document", zap.String("storyID", id), zap.Error(err))
		return false, models.StorageError("delete story document", err)
	}
	return true, nil
}

// Subscribe listens to the approved stories query and calls onChange on every
// snapshot after the first one, which only reflects the current state.
func (r *FirestoreStoryRepository) Subscribe(ctx context.Context, onChange func()) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	it := r.collection().Where("status", "==", string(models.StatusApproved)).Snapshots(ctx)

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			it.Stop()
		})
	}

	go func() {
		first := true
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
					r.logger.Debug("Approved stories listener stopped")
					return
				}
				r.logger.Error("Approved stories listener failed", zap.Error(err))
				return
			}
			if first {
				first = false
				continue
			}
			r.logger.Debug("Approved stories changed", zap.Int("changes", len(snap.Changes)))
			onChange()
		}
	}()

	return stop, nil
}

func (r *FirestoreStoryRepository) decode(docs []*firestore.DocumentSnapshot) ([]*models.Story, error) {
	stories := make([]*models.Story, 0, len(docs))
	for _, doc := range docs {
		s, err := r.decodeOne(doc)
		if err != nil {
			return nil, err
		}
		stories = append(stories, s)
	}
	return stories, nil
}

func (r *FirestoreStoryRepository) decodeOne(doc *firestore.DocumentSnapshot) (*models.Story, error) {
	var s models.Story
	if err := doc.DataTo(&s); err != nil {
		r.logger.Error("Malformed story document", zap.String("docID", doc.Ref.ID), zap.Error(err))
		return nil, models.StorageError("decode story document", err)
	}
	s.ID = doc.Ref.ID
	return &s, nil
}

// FirestoreBannedUserRepository stores one document per banned username.
type FirestoreBannedUserRepository struct {
	client *firestore.Client
	logger *zap.Logger
}

func NewFirestoreBannedUserRepository(client *firestore.Client, logger *zap.Logger) *FirestoreBannedUserRepository {
	return &FirestoreBannedUserRepository{
		client: client,
		logger: logger.Named("FirestoreBannedUserRepo"),
	}
}

type bannedUserDoc struct {
	Username string    `firestore:"username"`
	BannedAt time.Time `firestore:"bannedAt"`
}

func (r *FirestoreBannedUserRepository) Add(ctx context.Context, username string) (bool, error) {
	key := models.NormalizeUsername(username)
	_, err := r.client.Collection(bannedUsersCollection).Doc(key).Create(ctx, bannedUserDoc{
		Username: key,
		BannedAt: time.Now().UTC(),
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return false, nil
		}
		r.logger.Error("Error creating banned user document", zap.String("username", key), zap.Error(err))
		return false, models.StorageError("create banned user document", err)
	}
	return true, nil
}

func (r *FirestoreBannedUserRepository) IsBanned(ctx context.Context, username string) (bool, error) {
	_, err := r.client.Collection(bannedUsersCollection).Doc(models.NormalizeUsername(username)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		r.logger.Error("Error reading banned user document", zap.String("username", username), zap.Error(err))
		return false, models.StorageError("get banned user document", err)
	}
	return true, nil
}

func (r *FirestoreBannedUserRepository) List(ctx context.Context) ([]string, error) {
	refs, err := r.client.Collection(bannedUsersCollection).DocumentRefs(ctx).GetAll()
	if err != nil {
		r.logger.Error("Error listing banned user documents", zap.Error(err))
		return nil, models.StorageError("list banned user documents", err)
	}
	users := make([]string, 0, len(refs))
	for _, ref := range refs {
		users = append(users, ref.ID)
	}
	sort.Strings(users)
	return users, nil
}
