package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"million-words-server/internal/models"

	"go.uber.org/zap"
)

const (
	storiesFileName     = "stories.json"
	bannedUsersFileName = "banned-users.json"
)

// Compile-time checks
var (
	_ StoryRepository      = (*FileStoryRepository)(nil)
	_ BannedUserRepository = (*FileBannedUserRepository)(nil)
)

// jsonFile is a JSON document on disk guarded by a mutex. Every operation
// reads the file, so edits made by hand while the server runs are picked up.
type jsonFile struct {
	mu   sync.Mutex
	path string
}

// initialize creates the file with an empty array when it does not exist yet.
func (f *jsonFile) initialize() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if _, err := os.Stat(f.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", f.path, err)
	}
	return os.WriteFile(f.path, []byte("[]"), 0o644)
}

func (f *jsonFile) read(v any) error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// write replaces the file atomically.
func (f *jsonFile) write(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

// FileStoryRepository keeps all stories in <dataDir>/stories.json.
type FileStoryRepository struct {
	file   jsonFile
	logger *zap.Logger
}

// NewFileStoryRepository creates the data directory and stories file if needed.
func NewFileStoryRepository(dataDir string, logger *zap.Logger) (*FileStoryRepository, error) {
	r := &FileStoryRepository{
		file:   jsonFile{path: filepath.Join(dataDir, storiesFileName)},
		logger: logger.Named("FileStoryRepo"),
	}
	if err := r.file.initialize(); err != nil {
		return nil, models.StorageError("initialize stories file", err)
	}
	return r, nil
}

func (r *FileStoryRepository) load() ([]*models.Story, error) {
	stories := make([]*models.Story, 0)
	if err := r.file.read(&stories); err != nil {
		r.logger.Error("Failed to read stories file", zap.String("path", r.file.path), zap.Error(err))
		return nil, models.StorageError("read stories", err)
	}
	return stories, nil
}

func (r *FileStoryRepository) save(stories []*models.Story) error {
	if err := r.file.write(stories); err != nil {
		r.logger.Error("Failed to write stories file", zap.String("path", r.file.path), zap.Error(err))
		return models.StorageError("write stories", err)
	}
	return nil
}

// Append adds the story at the end of the file.
func (r *FileStoryRepository) Append(ctx context.Context, story *models.Story) (string, error) {
	r.file.mu.Lock()
	defer r.file.mu.Unlock()

	stories, err := r.load()
	if err != nil {
		return "", err
	}
	stories = append(stories, story)
	if err := r.save(stories); err != nil {
		return "", err
	}
	r.logger.Debug("Story appended", zap.String("storyID", story.ID), zap.Int("total", len(stories)))
	return story.ID, nil
}

// GetAll returns the stories in file order, which is submission order.
func (r *FileStoryRepository) GetAll(ctx context.Context) ([]*models.Story, error) {
	r.file.mu.Lock()
	defer r.file.mu.Unlock()
	return r.load()
}

func (r *FileStoryRepository) GetByStatus(ctx context.Context, status models.StoryStatus) ([]*models.Story, error) {
	r.file.mu.Lock()
	defer r.file.mu.Unlock()

	stories, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make([]*models.Story, 0, len(stories))
	for _, s := range stories {
		if s.Status == status {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *FileStoryRepository) Update(ctx context.Context, id string, upd models.StoryUpdate) (*models.Story, error) {
	r.file.mu.Lock()
	defer r.file.mu.Unlock()

	stories, err := r.load()
	if err != nil {
		return nil, err
	}
	idx := slices.IndexFunc(stories, func(s *models.Story) bool { return s.ID == id })
	if idx < 0 {
		r.logger.Warn("Story not found for update", zap.String("storyID", id))
		return nil, models.ErrNotFound
	}
	upd.Apply(stories[idx])
	if err := r.save(stories); err != nil {
		return nil, err
	}
	return stories[idx], nil
}

func (r *FileStoryRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.file.mu.Lock()
	defer r.file.mu.Unlock()

	stories, err := r.load()
	if err != nil {
		return false, err
	}
	kept := slices.DeleteFunc(stories, func(s *models.Story) bool { return s.ID == id })
	if len(kept) == len(stories) {
		return false, nil
	}
	if err := r.save(kept); err != nil {
		return false, err
	}
	return true, nil
}

// FileBannedUserRepository keeps banned usernames in <dataDir>/banned-users.json.
type FileBannedUserRepository struct {
	file   jsonFile
	logger *zap.Logger
}

func NewFileBannedUserRepository(dataDir string, logger *zap.Logger) (*FileBannedUserRepository, error) {
	r := &FileBannedUserRepository{
		file:   jsonFile{path: filepath.Join(dataDir, bannedUsersFileName)},
		logger: logger.Named("FileBannedUserRepo"),
	}
	if err := r.file.initialize(); err != nil {
		return nil, models.StorageError("initialize banned users file", err)
	}
	return r, nil
}

func (r *FileBannedUserRepository) load() ([]string, error) {
	users := make([]string, 0)
	if err := r.file.read(&users); err != nil {
		r.logger.Error("Failed to read banned users file", zap.String("path", r.file.path), zap.Error(err))
		return nil, models.StorageError("read banned users", err)
	}
	return users, nil
}

func (r *FileBannedUserRepository) Add(ctx context.Context, username string) (bool, error) {
	r.file.mu.Lock()
	defer r.file.mu.Unlock()

	key := models.NormalizeUsername(username)
	users, err := r.load()
	if err != nil {
		return false, err
	}
	if slices.Contains(users, key) {
		return false, nil
	}
	users = append(users, key)
	if err := r.file.write(users); err != nil {
		r.logger.Error("Failed to write banned users file", zap.String("path", r.file.path), zap.Error(err))
		return false, models.StorageError("write banned users", err)
	}
	return true, nil
}

func (r *FileBannedUserRepository) IsBanned(ctx context.Context, username string) (bool, error) {
	r.file.mu.Lock()
	defer r.file.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return false, err
	}
	return slices.Contains(users, models.NormalizeUsername(username)), nil
}

func (r *FileBannedUserRepository) List(ctx context.Context) ([]string, error) {
	r.file.mu.Lock()
	defer r.file.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return nil, err
	}
	sort.Strings(users)
	return users, nil
}
