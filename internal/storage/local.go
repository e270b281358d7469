package storage

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"

	"careerboost/internal/errors"
)

// LocalStore keeps objects as files below a directory
type LocalStore struct {
	dir     string
	baseURL string
	logger  *errors.Logger
}

// NewLocalStore creates dir when needed
func NewLocalStore(dir, baseURL string, logger *errors.Logger) (*LocalStore, error) {
	if dir == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "storage localDir is required", nil)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid storage directory", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to create storage directory", err).
			WithContext("dir", abs)
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	logger.Info("Local storage configured", "dir", abs)
	return &LocalStore{dir: abs, baseURL: baseURL, logger: logger}, nil
}

func (s *LocalStore) path(key string) (string, string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", "", err
	}
	return key, filepath.Join(s.dir, filepath.FromSlash(key)), nil
}

// Put writes data to the file for key
func (s *LocalStore) Put(ctx context.Context, key string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to create object directory", err).
			WithContext("key", key)
	}
	if err := os.WriteFile(p, data, 0o640); err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to write object", err).
			WithContext("key", key)
	}
	s.logger.Debug("Object stored", "key", key, "size", len(data))
	return nil
}

// Get reads the file for key
func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewNotFoundError(errors.ErrCodeFileNotFound, "object not found", err).
				WithContext("key", key)
		}
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to read object", err).
			WithContext("key", key)
	}
	return data, nil
}

// Delete removes the file for key. Missing files are not an error.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to delete object", err).
			WithContext("key", key)
	}
	return nil
}

// URL returns the public URL of key, or a file:// URL without a public base
func (s *LocalStore) URL(key string) string {
	if s.baseURL != "" {
		return joinURL(s.baseURL, key)
	}
	return "file://" + filepath.ToSlash(filepath.Join(s.dir, filepath.FromSlash(key)))
}
