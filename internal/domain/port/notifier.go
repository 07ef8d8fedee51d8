package port

import (
	"context"

	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/entity"
)

// FailureNotifier reports whether a notice was dispatched. A disabled channel
// returns false without error.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, notice entity.FailureNotice) (bool, error)
}
