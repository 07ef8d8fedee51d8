package minio

import (
	"context"
	"fmt"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/entity"
	"github.com/the-code-crafters-hackathon/worker-service/internal/infra/storage"
	"go.uber.org/zap"
)

type Storage struct {
	client *miniogo.Client
	bucket string
	logger *zap.Logger
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

func NewStorage(cfg StorageConfig, logger *zap.Logger) (*Storage, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Storage{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, miniogo.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

func (s *Storage) Download(ctx context.Context, objectKey string, destPath string) error {
	if err := s.client.FGetObject(ctx, s.bucket, objectKey, destPath, miniogo.GetObjectOptions{}); err != nil {
		s.logger.Error("minio download failed", zap.String("key", objectKey), zap.Error(err))
		return fmt.Errorf("download %s: %w", objectKey, err)
	}
	s.logger.Info("video downloaded", zap.String("key", objectKey), zap.String("path", destPath))
	return nil
}

func (s *Storage) Upload(ctx context.Context, srcPath string, objectKey string) error {
	_, err := s.client.FPutObject(ctx, s.bucket, objectKey, srcPath, miniogo.PutObjectOptions{
		ContentType: storage.ContentType(objectKey),
	})
	if err != nil {
		s.logger.Error("minio upload failed", zap.String("key", objectKey), zap.Error(err))
		return fmt.Errorf("upload %s: %w", objectKey, err)
	}
	s.logger.Info("object uploaded", zap.String("key", objectKey), zap.String("path", srcPath))
	return nil
}

func (s *Storage) URI(objectKey string) string {
	return entity.ObjectURI(entity.SchemeS3, s.bucket, objectKey)
}
