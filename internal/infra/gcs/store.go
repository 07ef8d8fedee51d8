package gcs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/entity"
	localstorage "github.com/the-code-crafters-hackathon/worker-service/internal/infra/storage"
	"go.uber.org/zap"
)

// Store is the Google Cloud Storage object store used in remote mode.
type Store struct {
	client *storage.Client
	bucket string
	logger *zap.Logger
}

func NewStore(ctx context.Context, bucket string, logger *zap.Logger) (*Store, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &Store{client: client, bucket: bucket, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Download(ctx context.Context, objectKey string, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	r, err := s.client.Bucket(s.bucket).Object(objectKey).NewReader(ctx)
	if err != nil {
		s.logger.Error("gcs download failed", zap.String("key", objectKey), zap.Error(err))
		return fmt.Errorf("failed to create reader for %s: %w", objectKey, err)
	}
	defer func() { _ = r.Close() }()

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(destPath)
		return fmt.Errorf("failed to download %s: %w", objectKey, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(destPath)
		return fmt.Errorf("failed to close local file: %w", err)
	}

	s.logger.Info("video downloaded from GCS", zap.String("key", objectKey), zap.String("path", destPath))
	return nil
}

func (s *Store) Upload(ctx context.Context, srcPath string, objectKey string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", srcPath, err)
	}
	defer f.Close()

	w := s.client.Bucket(s.bucket).Object(objectKey).NewWriter(ctx)
	w.ContentType = localstorage.ContentType(objectKey)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to upload %s: %w", objectKey, err)
	}
	// The object is only committed once the writer closes successfully.
	if err := w.Close(); err != nil {
		s.logger.Error("gcs upload failed", zap.String("key", objectKey), zap.Error(err))
		return fmt.Errorf("failed to finalize %s: %w", objectKey, err)
	}

	s.logger.Info("object uploaded to GCS", zap.String("path", srcPath), zap.String("key", objectKey))
	return nil
}

func (s *Store) URI(objectKey string) string {
	return entity.ObjectURI(entity.SchemeGCS, s.bucket, objectKey)
}
