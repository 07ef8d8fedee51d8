package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/entity"
	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/port"
	"go.uber.org/zap"
)

// OutputsPrefix namespaces uploaded archives in the object store.
const OutputsPrefix = "outputs"

// LocalSink keeps archives on local disk and reports their path.
type LocalSink struct{}

func (LocalSink) Store(_ context.Context, archivePath string) (string, error) {
	return archivePath, nil
}

// RemoteSink uploads archives under outputs/<name>, drops the local copy and
// reports the remote URI.
type RemoteSink struct {
	store  port.ObjectStore
	logger *zap.Logger
}

func NewRemoteSink(store port.ObjectStore, logger *zap.Logger) *RemoteSink {
	return &RemoteSink{store: store, logger: logger}
}

func (s *RemoteSink) Store(ctx context.Context, archivePath string) (string, error) {
	key := path.Join(OutputsPrefix, filepath.Base(archivePath))
	if err := s.store.Upload(ctx, archivePath, key); err != nil {
		// The local archive stays where it is but is never reported as canonical.
		return "", fmt.Errorf("%w: %s: %v", entity.ErrUpload, key, err)
	}
	if err := os.Remove(archivePath); err != nil {
		s.logger.Warn("failed to remove uploaded archive", zap.String("path", archivePath), zap.Error(err))
	}
	return s.store.URI(key), nil
}

// NewSink picks the archive placement strategy for a deployment mode.
func NewSink(remote bool, store port.ObjectStore, logger *zap.Logger) port.ArchiveSink {
	if remote {
		return NewRemoteSink(store, logger)
	}
	return LocalSink{}
}
