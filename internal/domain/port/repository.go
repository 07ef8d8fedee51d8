package port

import (
	"context"

	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/entity"
)

// StatusStore hands out one repository session per work item.
type StatusStore interface {
	Open(ctx context.Context) (StatusRepository, error)
}

// StatusRepository reads and mutates status records. An empty archiveLocation
// leaves the stored file path untouched.
type StatusRepository interface {
	UpdateStatus(ctx context.Context, videoID int64, status entity.VideoStatus, archiveLocation string) (*entity.Video, error)
	GetByID(ctx context.Context, videoID int64) (*entity.Video, error)
	Close()
}
