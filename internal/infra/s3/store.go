package s3

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/entity"
	"github.com/the-code-crafters-hackathon/worker-service/internal/infra/storage"
	"go.uber.org/zap"
)

// Store is the S3-backed object store used in remote mode.
type Store struct {
	client *awss3.Client
	bucket string
	logger *zap.Logger
}

func NewStore(client *awss3.Client, bucket string, logger *zap.Logger) *Store {
	return &Store{client: client, bucket: bucket, logger: logger}
}

func (s *Store) Download(ctx context.Context, objectKey string, destPath string) error {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		s.logger.Error("s3 download failed", zap.String("key", objectKey), zap.Error(err))
		return fmt.Errorf("S3 GetObject %s: %w", objectKey, err)
	}
	defer out.Body.Close()

	if err := writeFile(destPath, out.Body); err != nil {
		s.logger.Error("s3 download failed", zap.String("key", objectKey), zap.Error(err))
		return err
	}
	s.logger.Info("video downloaded from S3", zap.String("key", objectKey), zap.String("path", destPath))
	return nil
}

func (s *Store) Upload(ctx context.Context, srcPath string, objectKey string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", srcPath, err)
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        f,
		ContentType: aws.String(storage.ContentType(objectKey)),
	})
	if err != nil {
		s.logger.Error("s3 upload failed", zap.String("key", objectKey), zap.Error(err))
		return fmt.Errorf("S3 PutObject %s: %w", objectKey, err)
	}
	s.logger.Info("object uploaded to S3", zap.String("path", srcPath), zap.String("key", objectKey))
	return nil
}

func (s *Store) URI(objectKey string) string {
	return entity.ObjectURI(entity.SchemeS3, s.bucket, objectKey)
}

func writeFile(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
