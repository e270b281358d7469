package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"careerboost/internal/config"
	"careerboost/internal/errors"
)

// ObjectStore keeps uploaded resume files
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// New builds the object store selected by cfg.Provider
func New(ctx context.Context, cfg *config.StorageConfig, logger *errors.Logger) (ObjectStore, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	switch strings.ToLower(cfg.Provider) {
	case "s3":
		return NewS3Store(ctx, cfg, logger)
	case "local", "":
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL, logger)
	}
	return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
		fmt.Sprintf("unsupported storage provider: %s", cfg.Provider), nil)
}

// cleanKey normalizes an object key and rejects keys escaping the store
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest, "object key is required", nil)
	}
	if strings.Contains(key, "\\") {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest, "object key must use forward slashes", nil).
			WithContext("key", key)
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid object key", nil).
			WithContext("key", key)
	}
	return cleaned, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
