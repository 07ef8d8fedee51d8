package storage

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// LocalStore is the object store used in local mode: objects are expected to
// be materialized on disk already and nothing leaves the machine.
type LocalStore struct {
	logger *zap.Logger
}

func NewLocalStore(logger *zap.Logger) *LocalStore {
	return &LocalStore{logger: logger}
}

func (s *LocalStore) Download(_ context.Context, objectKey string, destPath string) error {
	if _, err := os.Stat(destPath); err != nil {
		s.logger.Error("local file not found", zap.String("key", objectKey), zap.String("path", destPath))
		return fmt.Errorf("local object %s at %s: %w", objectKey, destPath, err)
	}
	s.logger.Info("local file found", zap.String("path", destPath))
	return nil
}

func (s *LocalStore) Upload(_ context.Context, srcPath string, objectKey string) error {
	s.logger.Info("local mode, keeping file on disk", zap.String("path", srcPath), zap.String("key", objectKey))
	return nil
}

func (s *LocalStore) URI(objectKey string) string {
	return objectKey
}
