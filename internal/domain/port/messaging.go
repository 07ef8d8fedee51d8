package port

import (
	"context"
	"time"

	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/entity"
)

// Queue delivers work items one at a time.
//
// Receive returns nil, nil when nothing arrived within wait. Transport
// failures are returned wrapped in entity.ErrQueueTransport. Release hands an
// unacknowledged delivery back to the queue so it can be delivered again.
type Queue interface {
	Receive(ctx context.Context, wait time.Duration) (*entity.Envelope, error)
	Parse(env *entity.Envelope) (*entity.WorkItem, error)
	Acknowledge(ctx context.Context, env *entity.Envelope) error
	Release(ctx context.Context, env *entity.Envelope) error
	Close() error
}

type StatusPublisher interface {
	PublishStatus(ctx context.Context, event entity.StatusEvent) error
}

type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, msg []byte, reason string) error
}
