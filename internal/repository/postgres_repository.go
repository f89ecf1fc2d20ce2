package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"million-words-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const storyColumns = `id, username, title, genre, body, word_count, status, submitted_at, approved_at`

const (
	insertStoryQuery = `
        INSERT INTO stories (` + storyColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	getAllStoriesQuery      = `SELECT ` + storyColumns + ` FROM stories ORDER BY submitted_at, id`
	getStoriesByStatusQuery = `SELECT ` + storyColumns + ` FROM stories WHERE status = $1 ORDER BY submitted_at, id`
	deleteStoryQuery        = `DELETE FROM stories WHERE id = $1`

	insertBannedUserQuery = `INSERT INTO banned_users (username) VALUES ($1) ON CONFLICT (username) DO NOTHING`
	isBannedQuery         = `SELECT EXISTS (SELECT 1 FROM banned_users WHERE username = $1)`
	listBannedUsersQuery  = `SELECT username FROM banned_users ORDER BY username`
)

// Compile-time checks
var (
	_ StoryRepository      = (*pgStoryRepository)(nil)
	_ BannedUserRepository = (*pgBannedUserRepository)(nil)
)

type pgStoryRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgStoryRepository создает репозиторий историй поверх PostgreSQL.
func NewPgStoryRepository(db DBTX, logger *zap.Logger) *pgStoryRepository {
	return &pgStoryRepository{
		db:     db,
		logger: logger.Named("PgStoryRepo"),
	}
}

func (r *pgStoryRepository) Append(ctx context.Context, s *models.Story) (string, error) {
	log := r.logger.With(zap.String("storyID", s.ID), zap.String("username", s.Username))

	_, err := r.db.Exec(ctx, insertStoryQuery,
		s.ID, s.Username, s.Title, s.Genre, s.Body, s.WordCount, string(s.Status), s.SubmittedAt, s.ApprovedAt,
	)
	if err != nil {
		log.Error("Error inserting story", zap.Error(err))
		return "", models.StorageError("insert story", err)
	}
	log.Debug("Story inserted")
	return s.ID, nil
}

func (r *pgStoryRepository) GetAll(ctx context.Context) ([]*models.Story, error) {
	stories := make([]*models.Story, 0)
	if err := pgxscan.Select(ctx, r.db, &stories, getAllStoriesQuery); err != nil {
		r.logger.Error("Error selecting stories", zap.Error(err))
		return nil, models.StorageError("select stories", err)
	}
	return stories, nil
}

func (r *pgStoryRepository) GetByStatus(ctx context.Context, status models.StoryStatus) ([]*models.Story, error) {
	stories := make([]*models.Story, 0)
	if err := pgxscan.Select(ctx, r.db, &stories, getStoriesByStatusQuery, string(status)); err != nil {
		r.logger.Error("Error selecting stories by status", zap.String("status", string(status)), zap.Error(err))
		return nil, models.StorageError("select stories by status", err)
	}
	return stories, nil
}

// Update builds the SET clause from the non-nil fields of upd.
func (r *pgStoryRepository) Update(ctx context.Context, id string, upd models.StoryUpdate) (*models.Story, error) {
	log := r.logger.With(zap.String("storyID", id))

	setClauses := make([]string, 0, 2)
	args := []any{id}
	if upd.Status != nil {
		args = append(args, string(*upd.Status))
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if upd.ApprovedAt != nil {
		// The right-hand side sees the row before this update.
		args = append(args, *upd.ApprovedAt)
		setClauses = append(setClauses, fmt.Sprintf(
			"approved_at = CASE WHEN status = 'approved' AND approved_at IS NOT NULL THEN approved_at ELSE $%d END", len(args)))
	}

	var query string
	if len(setClauses) == 0 {
		query = `SELECT ` + storyColumns + ` FROM stories WHERE id = $1`
	} else {
		query = `UPDATE stories SET ` + strings.Join(setClauses, ", ") + ` WHERE id = $1 RETURNING ` + storyColumns
	}

	var story models.Story
	if err := pgxscan.Get(ctx, r.db, &story, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Warn("Story not found for update")
			return nil, models.ErrNotFound
		}
		log.Error("Error updating story", zap.Error(err))
		return nil, models.StorageError("update story", err)
	}
	return &story, nil
}

func (r *pgStoryRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, deleteStoryQuery, id)
	if err != nil {
		r.logger.Error("Error deleting story", zap.String("storyID", id), zap.Error(err))
		return false, models.StorageError("delete story", err)
	}
	return tag.RowsAffected() > 0, nil
}

type pgBannedUserRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewPgBannedUserRepository(db DBTX, logger *zap.Logger) *pgBannedUserRepository {
	return &pgBannedUserRepository{
		db:     db,
		logger: logger.Named("PgBannedUserRepo"),
	}
}

func (r *pgBannedUserRepository) Add(ctx context.Context, username string) (bool, error) {
	key := models.NormalizeUsername(username)
	tag, err := r.db.Exec(ctx, insertBannedUserQuery, key)
	if err != nil {
		r.logger.Error("Error inserting banned user", zap.String("username", key), zap.Error(err))
		return false, models.StorageError("insert banned user", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgBannedUserRepository) IsBanned(ctx context.Context, username string) (bool, error) {
	var banned bool
	if err := r.db.QueryRow(ctx, isBannedQuery, models.NormalizeUsername(username)).Scan(&banned); err != nil {
		r.logger.Error("Error checking banned user", zap.String("username", username), zap.Error(err))
		return false, models.StorageError("check banned user", err)
	}
	return banned, nil
}

func (r *pgBannedUserRepository) List(ctx context.Context) ([]string, error) {
	users := make([]string, 0)
	if err := pgxscan.Select(ctx, r.db, &users, listBannedUsersQuery); err != nil {
		r.logger.Error("Error listing banned users", zap.Error(err))
		return nil, models.StorageError("list banned users", err)
	}
	return users, nil
}
