package port

import (
	"context"

	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/entity"
)

// FrameExtractor samples frames from a local video and packages them into one archive.
type FrameExtractor interface {
	Extract(ctx context.Context, videoPath string, timestamp string) (*entity.ExtractionResult, error)
}
